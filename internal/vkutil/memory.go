package vkutil

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

// findMemoryType picks the first memory type allowed by typeFilter that has
// every requested property.
func (i *Interface) findMemoryType(typeFilter uint32, properties vulkan.MemoryPropertyFlagBits) (uint32, error) {
	for t := uint32(0); t < i.memProps.MemoryTypeCount; t++ {
		memoryType := i.memProps.MemoryTypes[t]
		memoryType.Deref()
		if typeFilter&(1<<t) != 0 && memoryType.PropertyFlags&vulkan.MemoryPropertyFlags(properties) == vulkan.MemoryPropertyFlags(properties) {
			return t, nil
		}
	}
	return 0, errors.Errorf("no memory type for filter 0x%x with properties 0x%x", typeFilter, properties)
}

func (i *Interface) allocate(req vulkan.MemoryRequirements, properties vulkan.MemoryPropertyFlagBits) (vulkan.DeviceMemory, error) {
	typeIndex, err := i.findMemoryType(req.MemoryTypeBits, properties)
	if err != nil {
		return vulkan.DeviceMemory(vulkan.NullHandle), err
	}
	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vulkan.DeviceMemory
	if err := check(vulkan.AllocateMemory(i.device, &allocInfo, nil, &memory), "allocate memory"); err != nil {
		return vulkan.DeviceMemory(vulkan.NullHandle), err
	}
	return memory, nil
}

func (i *Interface) createImageView(image vulkan.Image, format vulkan.Format) (vulkan.ImageView, error) {
	viewInfo := vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   format,
		Components: vulkan.ComponentMapping{
			R: vulkan.ComponentSwizzleIdentity,
			G: vulkan.ComponentSwizzleIdentity,
			B: vulkan.ComponentSwizzleIdentity,
			A: vulkan.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorRange(),
	}
	var view vulkan.ImageView
	if err := check(vulkan.CreateImageView(i.device, &viewInfo, nil, &view), "create image view"); err != nil {
		return vulkan.ImageView(vulkan.NullHandle), err
	}
	return view, nil
}

// CreateImageView builds a 2-D colour view, e.g. for swapchain images.
func (i *Interface) CreateImageView(image vulkan.Image, format vulkan.Format) (vulkan.ImageView, error) {
	return i.createImageView(image, format)
}

func colorRange() vulkan.ImageSubresourceRange {
	return vulkan.ImageSubresourceRange{
		AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

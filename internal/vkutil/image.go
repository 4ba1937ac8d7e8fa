package vkutil

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

// Image is a device-local 2-D image with one mip level, one layer and a
// matching colour view.
type Image struct {
	iface  *Interface
	image  vulkan.Image
	memory vulkan.DeviceMemory
	view   vulkan.ImageView
	dim    UVec2
	format vulkan.Format
}

func newImage(i *Interface, dim UVec2, format vulkan.Format, usage vulkan.ImageUsageFlags) (*Image, error) {
	createInfo := vulkan.ImageCreateInfo{
		SType:                 vulkan.StructureTypeImageCreateInfo,
		ImageType:             vulkan.ImageType2d,
		Extent:                dim.Extent3D(),
		MipLevels:             1,
		ArrayLayers:           1,
		Format:                format,
		Tiling:                vulkan.ImageTilingOptimal,
		InitialLayout:         vulkan.ImageLayoutUndefined,
		Usage:                 usage,
		Samples:               vulkan.SampleCount1Bit,
		SharingMode:           vulkan.SharingModeExclusive,
		QueueFamilyIndexCount: 1,
		PQueueFamilyIndices:   []uint32{i.family},
	}

	img := &Image{iface: i, dim: dim, format: format}
	if err := check(vulkan.CreateImage(i.device, &createInfo, nil, &img.image), "create image"); err != nil {
		return nil, errors.Wrapf(err, "storage image %s", dim)
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(i.device, img.image, &memReq)
	memReq.Deref()

	memory, err := i.allocate(memReq, vulkan.MemoryPropertyDeviceLocalBit)
	if err != nil {
		img.Destroy()
		return nil, errors.Wrap(err, "allocate image memory")
	}
	img.memory = memory
	if err := check(vulkan.BindImageMemory(i.device, img.image, memory, 0), "bind image memory"); err != nil {
		img.Destroy()
		return nil, err
	}

	view, err := i.createImageView(img.image, format)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	img.view = view
	return img, nil
}

func (m *Image) Handle() vulkan.Image {
	return m.image
}

func (m *Image) View() vulkan.ImageView {
	return m.view
}

func (m *Image) Dimensions() UVec2 {
	return m.dim
}

func (m *Image) Format() vulkan.Format {
	return m.format
}

func (m *Image) Destroy() {
	dev := m.iface.device
	if m.view != vulkan.ImageView(vulkan.NullHandle) {
		vulkan.DestroyImageView(dev, m.view, nil)
		m.view = vulkan.ImageView(vulkan.NullHandle)
	}
	if m.image != vulkan.Image(vulkan.NullHandle) {
		vulkan.DestroyImage(dev, m.image, nil)
		m.image = vulkan.Image(vulkan.NullHandle)
	}
	if m.memory != vulkan.DeviceMemory(vulkan.NullHandle) {
		vulkan.FreeMemory(dev, m.memory, nil)
		m.memory = vulkan.DeviceMemory(vulkan.NullHandle)
	}
}

package vkutil

import (
	"github.com/vulkan-go/vulkan"
)

func (i *Interface) CreateFence(signaled bool) (vulkan.Fence, error) {
	fenceInfo := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceInfo.Flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}
	var fence vulkan.Fence
	if err := check(vulkan.CreateFence(i.device, &fenceInfo, nil, &fence), "create fence"); err != nil {
		return vulkan.Fence(vulkan.NullHandle), err
	}
	return fence, nil
}

func (i *Interface) CreateSemaphore() (vulkan.Semaphore, error) {
	semInfo := vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}
	var sem vulkan.Semaphore
	if err := check(vulkan.CreateSemaphore(i.device, &semInfo, nil, &sem), "create semaphore"); err != nil {
		return vulkan.Semaphore(vulkan.NullHandle), err
	}
	return sem, nil
}

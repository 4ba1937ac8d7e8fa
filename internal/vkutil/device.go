package vkutil

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

const queuePriority = float32(0.5)

func enumeratePhysicalDevices(instance vulkan.Instance) ([]vulkan.PhysicalDevice, error) {
	var count uint32
	if err := check(vulkan.EnumeratePhysicalDevices(instance, &count, nil), "enumerate physical devices"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoDevice
	}
	devices := make([]vulkan.PhysicalDevice, count)
	if err := check(vulkan.EnumeratePhysicalDevices(instance, &count, devices), "enumerate physical devices list"); err != nil {
		return nil, err
	}
	return devices[:count], nil
}

// findQueueFamily returns the first graphics-capable family of device. With a
// surface the family must also be able to present to it.
func findQueueFamily(device vulkan.PhysicalDevice, surface vulkan.Surface) (uint32, bool) {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	props := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &count, props)

	for i := range props {
		props[i].Deref()
		if props[i].QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) == 0 {
			continue
		}
		if surface != vulkan.NullSurface {
			var present vulkan.Bool32
			vulkan.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &present)
			if present != vulkan.True {
				continue
			}
		}
		return uint32(i), true
	}
	return 0, false
}

func pickPhysicalDevice(instance vulkan.Instance, surface vulkan.Surface) (vulkan.PhysicalDevice, uint32, error) {
	devices, err := enumeratePhysicalDevices(instance)
	if err != nil {
		return nil, 0, err
	}
	for _, dev := range devices {
		if family, ok := findQueueFamily(dev, surface); ok {
			return dev, family, nil
		}
	}
	return nil, 0, ErrNoQueueFamily
}

func createLogicalDevice(physical vulkan.PhysicalDevice, family uint32, extensions []string, validation bool) (vulkan.Device, vulkan.Queue, error) {
	queueInfos := []vulkan.DeviceQueueCreateInfo{{
		SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}}

	extensions = terminate(extensions)
	createInfo := vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vulkan.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if validation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = validationLayers
	}

	var device vulkan.Device
	if err := check(vulkan.CreateDevice(physical, &createInfo, nil, &device), "create logical device"); err != nil {
		return nil, nil, err
	}
	var queue vulkan.Queue
	vulkan.GetDeviceQueue(device, family, 0, &queue)
	return device, queue, nil
}

func physicalProperties(device vulkan.PhysicalDevice) vulkan.PhysicalDeviceProperties {
	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(device, &props)
	props.Deref()
	return props
}

func deviceTypeName(t vulkan.PhysicalDeviceType) string {
	switch t {
	case vulkan.PhysicalDeviceTypeIntegratedGpu:
		return "IntegratedGpu"
	case vulkan.PhysicalDeviceTypeDiscreteGpu:
		return "DiscreteGpu"
	case vulkan.PhysicalDeviceTypeVirtualGpu:
		return "VirtualGpu"
	case vulkan.PhysicalDeviceTypeCpu:
		return "Cpu"
	default:
		return "Other"
	}
}

// describe formats a device the way it is reported at startup: "name (type)".
func describe(props vulkan.PhysicalDeviceProperties) string {
	return fmt.Sprintf("%s (%s)", vulkan.ToString(props.DeviceName[:]), deviceTypeName(props.DeviceType))
}

func deviceExtensionsSupported(device vulkan.PhysicalDevice, required []string) error {
	if len(required) == 0 {
		return nil
	}
	var count uint32
	if err := check(vulkan.EnumerateDeviceExtensionProperties(device, "", &count, nil), "enumerate device extensions"); err != nil {
		return err
	}
	props := make([]vulkan.ExtensionProperties, count)
	if err := check(vulkan.EnumerateDeviceExtensionProperties(device, "", &count, props), "enumerate device extensions list"); err != nil {
		return err
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].ExtensionName[:])] = true
	}
	for _, ext := range required {
		if !supported[vulkan.ToString([]byte(ext))] {
			return errors.Errorf("device extension %s not supported", ext)
		}
	}
	return nil
}

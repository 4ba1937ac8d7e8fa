package vkutil

import (
	"log"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation\x00"}

// initLoader installs the instance proc address and loads the global
// Vulkan entry points. A nil procAddr falls back to the system loader.
func initLoader(procAddr unsafe.Pointer) error {
	if procAddr != nil {
		vulkan.SetGetInstanceProcAddr(procAddr)
	} else if err := vulkan.SetDefaultGetInstanceProcAddr(); err != nil {
		return errors.Wrap(err, "locate vulkan loader")
	}
	if err := vulkan.Init(); err != nil {
		return errors.Wrap(err, "vulkan init")
	}
	return nil
}

func createInstance(opts Options, validation bool) (vulkan.Instance, error) {
	appInfo := vulkan.ApplicationInfo{
		SType:              vulkan.StructureTypeApplicationInfo,
		PApplicationName:   opts.appName(),
		ApplicationVersion: vulkan.MakeVersion(0, 1, 0),
		PEngineName:        "No Engine\x00",
		EngineVersion:      vulkan.MakeVersion(0, 1, 0),
		ApiVersion:         vulkan.MakeVersion(1, 0, 0),
	}

	extensions := terminate(opts.InstanceExtensions)
	if validation {
		extensions = append(extensions, "VK_EXT_debug_report\x00")
	}

	createInfo := vulkan.InstanceCreateInfo{
		SType:                   vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if validation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = validationLayers
	}

	var instance vulkan.Instance
	if err := check(vulkan.CreateInstance(&createInfo, nil, &instance), "create vulkan instance"); err != nil {
		return nil, err
	}
	if err := vulkan.InitInstance(instance); err != nil {
		vulkan.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "init instance")
	}
	return instance, nil
}

func validationLayersSupported() bool {
	var count uint32
	if vulkan.EnumerateInstanceLayerProperties(&count, nil) != vulkan.Success {
		return false
	}
	props := make([]vulkan.LayerProperties, count)
	if vulkan.EnumerateInstanceLayerProperties(&count, props) != vulkan.Success {
		return false
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].LayerName[:])] = true
	}
	for _, l := range validationLayers {
		if !supported[vulkan.ToString([]byte(l))] {
			return false
		}
	}
	return true
}

func setupDebugCallback(instance vulkan.Instance, logger *log.Logger) (vulkan.DebugReportCallback, error) {
	createInfo := vulkan.DebugReportCallbackCreateInfo{
		SType: vulkan.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vulkan.DebugReportFlags(
			vulkan.DebugReportErrorBit |
				vulkan.DebugReportWarningBit |
				vulkan.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType, object uint64, location uint, messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vulkan.Bool32 {
			logger.Printf("[VK][%s][0x%x] %s (code=%d)", layerPrefix, flags, message, messageCode)
			return vulkan.False
		},
	}
	var callback vulkan.DebugReportCallback
	if err := check(vulkan.CreateDebugReportCallback(instance, &createInfo, nil, &callback), "create debug callback"); err != nil {
		return vulkan.DebugReportCallback(vulkan.NullHandle), err
	}
	return callback, nil
}

// terminate returns a copy of names with every entry NUL terminated, as the
// binding passes them straight to C.
func terminate(names []string) []string {
	out := make([]string, 0, len(names)+1)
	for _, n := range names {
		if len(n) == 0 || n[len(n)-1] != 0 {
			n += "\x00"
		}
		out = append(out, n)
	}
	return out
}

package vkutil

import (
	"io"
	"log"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

// Options configures how an Interface bootstraps Vulkan.
type Options struct {
	AppName    string
	Validation bool

	// InstanceExtensions are enabled on the instance, e.g. the ones GLFW
	// needs for window surfaces.
	InstanceExtensions []string
	DeviceExtensions   []string

	// ProcAddr, when set, replaces the system loader lookup (GLFW provides one).
	ProcAddr unsafe.Pointer

	// Surface creates the presentation surface once the instance exists. The
	// selected queue family must then support presenting to it.
	Surface func(vulkan.Instance) (vulkan.Surface, error)

	Logger *log.Logger
}

func (o Options) appName() string {
	if o.AppName == "" {
		return "vkplayground\x00"
	}
	return o.AppName + "\x00"
}

// Interface owns one logical device and a single queue together with the
// instance they were created from. It is passed explicitly to every
// resource factory; nothing here is global.
type Interface struct {
	logger *log.Logger

	instance      vulkan.Instance
	debugCallback vulkan.DebugReportCallback
	surface       vulkan.Surface
	physical      vulkan.PhysicalDevice
	props         vulkan.PhysicalDeviceProperties
	memProps      vulkan.PhysicalDeviceMemoryProperties
	device        vulkan.Device
	queue         vulkan.Queue
	family        uint32
	commandPool   vulkan.CommandPool
	info          string
}

// NewCompute sets up an Interface with no surface and no extensions: the
// first physical device with a graphics-capable queue family wins.
func NewCompute(opts Options) (*Interface, error) {
	opts.Surface = nil
	return NewInterface(opts)
}

func NewInterface(opts Options) (*Interface, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if err := initLoader(opts.ProcAddr); err != nil {
		return nil, err
	}

	validation := opts.Validation
	if validation && !validationLayersSupported() {
		logger.Printf("validation layers requested but not available, continuing without")
		validation = false
	}

	i := &Interface{
		logger:        logger,
		debugCallback: vulkan.DebugReportCallback(vulkan.NullHandle),
		surface:       vulkan.NullSurface,
		commandPool:   vulkan.CommandPool(vulkan.NullHandle),
	}

	instance, err := createInstance(opts, validation)
	if err != nil {
		return nil, err
	}
	i.instance = instance

	if validation {
		cb, err := setupDebugCallback(instance, logger)
		if err != nil {
			i.Destroy()
			return nil, err
		}
		i.debugCallback = cb
	}

	if opts.Surface != nil {
		surface, err := opts.Surface(instance)
		if err != nil {
			i.Destroy()
			return nil, errors.Wrap(err, "create surface")
		}
		i.surface = surface
	}

	physical, family, err := pickPhysicalDevice(instance, i.surface)
	if err != nil {
		i.Destroy()
		return nil, err
	}
	if err := deviceExtensionsSupported(physical, opts.DeviceExtensions); err != nil {
		i.Destroy()
		return nil, err
	}
	i.physical = physical
	i.family = family
	i.props = physicalProperties(physical)
	i.info = describe(i.props)
	vulkan.GetPhysicalDeviceMemoryProperties(physical, &i.memProps)
	i.memProps.Deref()

	device, queue, err := createLogicalDevice(physical, family, opts.DeviceExtensions, validation)
	if err != nil {
		i.Destroy()
		return nil, err
	}
	i.device = device
	i.queue = queue

	if err := i.createCommandPool(); err != nil {
		i.Destroy()
		return nil, err
	}
	return i, nil
}

func (i *Interface) createCommandPool() error {
	poolInfo := vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: i.family,
		Flags: vulkan.CommandPoolCreateFlags(
			vulkan.CommandPoolCreateResetCommandBufferBit | vulkan.CommandPoolCreateTransientBit),
	}
	return check(vulkan.CreateCommandPool(i.device, &poolInfo, nil, &i.commandPool), "create command pool")
}

// Info describes the selected physical device as "name (type)".
func (i *Interface) Info() string {
	return i.info
}

func (i *Interface) Instance() vulkan.Instance {
	return i.instance
}

func (i *Interface) Physical() vulkan.PhysicalDevice {
	return i.physical
}

func (i *Interface) Device() vulkan.Device {
	return i.device
}

func (i *Interface) Queue() vulkan.Queue {
	return i.queue
}

func (i *Interface) QueueFamily() uint32 {
	return i.family
}

// Surface is vulkan.NullSurface for compute-only interfaces.
func (i *Interface) Surface() vulkan.Surface {
	return i.surface
}

func (i *Interface) CommandPool() vulkan.CommandPool {
	return i.commandPool
}

func (i *Interface) Logger() *log.Logger {
	return i.logger
}

// StorageImage allocates a device-local 2-D image that compute shaders can
// write and transfers can read, exclusive to the owned queue family.
func (i *Interface) StorageImage(dim UVec2, format vulkan.Format) (*Image, error) {
	usage := vulkan.ImageUsageFlags(vulkan.ImageUsageStorageBit | vulkan.ImageUsageTransferSrcBit | vulkan.ImageUsageTransferDstBit)
	return newImage(i, dim, format, usage)
}

// CPUAccessibleBuffer allocates a zero-filled host-visible buffer of size bytes.
func (i *Interface) CPUAccessibleBuffer(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrEmptyBuffer, "cpu accessible buffer of %d bytes", size)
	}
	return i.CPUAccessibleBufferFrom(make([]byte, size))
}

// CPUAccessibleBufferFrom allocates a host-visible buffer holding exactly data.
func (i *Interface) CPUAccessibleBufferFrom(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrEmptyBuffer, "cpu accessible buffer from empty data")
	}
	usage := vulkan.BufferUsageFlags(
		vulkan.BufferUsageTransferSrcBit | vulkan.BufferUsageTransferDstBit |
			vulkan.BufferUsageUniformBufferBit | vulkan.BufferUsageStorageBufferBit |
			vulkan.BufferUsageVertexBufferBit | vulkan.BufferUsageIndexBufferBit)
	buf, err := newBuffer(i, vulkan.DeviceSize(len(data)), usage,
		vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	if err := buf.Write(data); err != nil {
		buf.Destroy()
		return nil, err
	}
	return buf, nil
}

// AutoCommandBufferBuilder opens a one-time-submit recording session on the
// owned queue family.
func (i *Interface) AutoCommandBufferBuilder() (*CommandBufferBuilder, error) {
	return newCommandBufferBuilder(i)
}

// WriteProperties renders a table describing the selected device.
func (i *Interface) WriteProperties(w io.Writer) {
	writeProperties(w, i.props, i.memProps, i.family)
}

func (i *Interface) WaitIdle() {
	if i.device != nil {
		vulkan.DeviceWaitIdle(i.device)
	}
}

// Destroy waits for the device to go idle and releases everything the
// Interface created, in reverse order. Resources allocated from it must be
// destroyed first.
func (i *Interface) Destroy() {
	if i.device != nil {
		vulkan.DeviceWaitIdle(i.device)
		if i.commandPool != vulkan.CommandPool(vulkan.NullHandle) {
			vulkan.DestroyCommandPool(i.device, i.commandPool, nil)
			i.commandPool = vulkan.CommandPool(vulkan.NullHandle)
		}
		vulkan.DestroyDevice(i.device, nil)
		i.device = nil
	}
	if i.instance == nil {
		return
	}
	if i.surface != vulkan.NullSurface {
		vulkan.DestroySurface(i.instance, i.surface, nil)
		i.surface = vulkan.NullSurface
	}
	if i.debugCallback != vulkan.DebugReportCallback(vulkan.NullHandle) {
		vulkan.DestroyDebugReportCallback(i.instance, i.debugCallback, nil)
		i.debugCallback = vulkan.DebugReportCallback(vulkan.NullHandle)
	}
	vulkan.DestroyInstance(i.instance, nil)
	i.instance = nil
}

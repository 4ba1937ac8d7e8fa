package vkutil

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

// Buffer is a host-visible, host-coherent buffer with its backing memory.
type Buffer struct {
	iface  *Interface
	buffer vulkan.Buffer
	memory vulkan.DeviceMemory
	size   vulkan.DeviceSize
}

func newBuffer(i *Interface, size vulkan.DeviceSize, usage vulkan.BufferUsageFlags, properties vulkan.MemoryPropertyFlagBits) (*Buffer, error) {
	bufferInfo := vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vulkan.SharingModeExclusive,
	}
	var buffer vulkan.Buffer
	if err := check(vulkan.CreateBuffer(i.device, &bufferInfo, nil, &buffer), "create buffer"); err != nil {
		return nil, err
	}
	var memReq vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(i.device, buffer, &memReq)
	memReq.Deref()

	memory, err := i.allocate(memReq, properties)
	if err != nil {
		vulkan.DestroyBuffer(i.device, buffer, nil)
		return nil, errors.Wrap(err, "allocate buffer memory")
	}
	if err := check(vulkan.BindBufferMemory(i.device, buffer, memory, 0), "bind buffer memory"); err != nil {
		vulkan.DestroyBuffer(i.device, buffer, nil)
		vulkan.FreeMemory(i.device, memory, nil)
		return nil, err
	}
	return &Buffer{iface: i, buffer: buffer, memory: memory, size: size}, nil
}

func (b *Buffer) Handle() vulkan.Buffer {
	return b.buffer
}

// Size is the requested size in bytes, not the allocation size.
func (b *Buffer) Size() int {
	return int(b.size)
}

func (b *Buffer) mapped(fn func([]byte)) error {
	var data unsafe.Pointer
	if err := check(vulkan.MapMemory(b.iface.device, b.memory, 0, b.size, 0, &data), "map buffer memory"); err != nil {
		return err
	}
	fn(unsafe.Slice((*byte)(data), int(b.size)))
	vulkan.UnmapMemory(b.iface.device, b.memory)
	return nil
}

// Read returns a copy of the buffer contents. The caller must make sure no
// pending GPU work still writes to it.
func (b *Buffer) Read() ([]byte, error) {
	out := make([]byte, b.size)
	err := b.mapped(func(src []byte) {
		copy(out, src)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write copies data to the start of the buffer.
func (b *Buffer) Write(data []byte) error {
	if len(data) > int(b.size) {
		return errors.Errorf("write of %d bytes exceeds buffer size %d", len(data), b.size)
	}
	return b.mapped(func(dst []byte) {
		copy(dst, data)
	})
}

func (b *Buffer) Destroy() {
	if b.buffer != vulkan.Buffer(vulkan.NullHandle) {
		vulkan.DestroyBuffer(b.iface.device, b.buffer, nil)
		b.buffer = vulkan.Buffer(vulkan.NullHandle)
	}
	if b.memory != vulkan.DeviceMemory(vulkan.NullHandle) {
		vulkan.FreeMemory(b.iface.device, b.memory, nil)
		b.memory = vulkan.DeviceMemory(vulkan.NullHandle)
	}
}

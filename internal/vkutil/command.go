package vkutil

import (
	"time"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

// CommandBufferBuilder records a primary, one-time-submit command buffer.
// A builder must not be shared between goroutines.
type CommandBufferBuilder struct {
	iface *Interface
	cb    vulkan.CommandBuffer
	built bool
}

func newCommandBufferBuilder(i *Interface) (*CommandBufferBuilder, error) {
	cb, err := i.AllocateCommandBuffer()
	if err != nil {
		return nil, err
	}
	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vulkan.BeginCommandBuffer(cb, &beginInfo), "begin command buffer"); err != nil {
		i.FreeCommandBuffer(cb)
		return nil, err
	}
	return &CommandBufferBuilder{iface: i, cb: cb}, nil
}

// AllocateCommandBuffer allocates one primary command buffer from the
// interface's pool.
func (i *Interface) AllocateCommandBuffer() (vulkan.CommandBuffer, error) {
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        i.commandPool,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vulkan.CommandBuffer, 1)
	if err := check(vulkan.AllocateCommandBuffers(i.device, &allocInfo, buffers), "allocate command buffer"); err != nil {
		return nil, err
	}
	return buffers[0], nil
}

func (i *Interface) FreeCommandBuffer(cb vulkan.CommandBuffer) {
	vulkan.FreeCommandBuffers(i.device, i.commandPool, 1, []vulkan.CommandBuffer{cb})
}

// Raw exposes the command buffer for commands the builder does not wrap.
func (b *CommandBufferBuilder) Raw() vulkan.CommandBuffer {
	return b.cb
}

// TransitionImage records a layout transition of the whole colour image.
func (b *CommandBufferBuilder) TransitionImage(img *Image, from, to vulkan.ImageLayout) *CommandBufferBuilder {
	barrier := vulkan.ImageMemoryBarrier{
		SType:               vulkan.StructureTypeImageMemoryBarrier,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		Image:               img.image,
		SubresourceRange:    colorRange(),
	}

	var srcStage, dstStage vulkan.PipelineStageFlagBits
	switch {
	case from == vulkan.ImageLayoutUndefined && to == vulkan.ImageLayoutGeneral:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderWriteBit)
		srcStage = vulkan.PipelineStageTopOfPipeBit
		dstStage = vulkan.PipelineStageComputeShaderBit
	case from == vulkan.ImageLayoutGeneral && to == vulkan.ImageLayoutTransferSrcOptimal:
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessShaderWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessTransferReadBit)
		srcStage = vulkan.PipelineStageComputeShaderBit
		dstStage = vulkan.PipelineStageTransferBit
	default:
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessMemoryWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessMemoryReadBit | vulkan.AccessMemoryWriteBit)
		srcStage = vulkan.PipelineStageAllCommandsBit
		dstStage = vulkan.PipelineStageAllCommandsBit
	}

	vulkan.CmdPipelineBarrier(b.cb,
		vulkan.PipelineStageFlags(srcStage), vulkan.PipelineStageFlags(dstStage),
		vulkan.DependencyFlags(0),
		0, nil,
		0, nil,
		1, []vulkan.ImageMemoryBarrier{barrier})
	return b
}

// Dispatch binds p with its descriptor set and dispatches the given number
// of work groups.
func (b *CommandBufferBuilder) Dispatch(p *ComputePipeline, groups [3]uint32) *CommandBufferBuilder {
	vulkan.CmdBindPipeline(b.cb, vulkan.PipelineBindPointCompute, p.pipeline)
	vulkan.CmdBindDescriptorSets(b.cb, vulkan.PipelineBindPointCompute, p.layout, 0, 1, []vulkan.DescriptorSet{p.set}, 0, nil)
	vulkan.CmdDispatch(b.cb, groups[0], groups[1], groups[2])
	return b
}

// CopyImageToBuffer copies a tightly packed image in TransferSrcOptimal
// layout into buf, followed by a barrier making the data visible to the host.
func (b *CommandBufferBuilder) CopyImageToBuffer(img *Image, buf *Buffer) *CommandBufferBuilder {
	region := vulkan.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vulkan.ImageSubresourceLayers{
			AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vulkan.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: img.dim.Extent3D(),
	}
	vulkan.CmdCopyImageToBuffer(b.cb, img.image, vulkan.ImageLayoutTransferSrcOptimal, buf.buffer, 1, []vulkan.BufferImageCopy{region})

	vulkan.CmdPipelineBarrier(b.cb,
		vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit), vulkan.PipelineStageFlags(vulkan.PipelineStageHostBit),
		vulkan.DependencyFlags(0),
		0, nil,
		1, []vulkan.BufferMemoryBarrier{{
			SType:               vulkan.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       vulkan.AccessFlags(vulkan.AccessTransferWriteBit),
			DstAccessMask:       vulkan.AccessFlags(vulkan.AccessHostReadBit),
			SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			Buffer:              buf.buffer,
			Offset:              0,
			Size:                vulkan.DeviceSize(vulkan.WholeSize),
		}},
		0, nil)
	return b
}

// Build finishes recording. The builder cannot be used afterwards.
func (b *CommandBufferBuilder) Build() (*CommandBuffer, error) {
	if b.built {
		return nil, errors.New("command buffer already built")
	}
	b.built = true
	if err := check(vulkan.EndCommandBuffer(b.cb), "end command buffer"); err != nil {
		b.iface.FreeCommandBuffer(b.cb)
		return nil, err
	}
	return &CommandBuffer{iface: b.iface, cb: b.cb}, nil
}

// CommandBuffer is a finished recording ready for submission.
type CommandBuffer struct {
	iface *Interface
	cb    vulkan.CommandBuffer
}

// Discard frees a command buffer that will not be submitted.
func (c *CommandBuffer) Discard() {
	c.iface.FreeCommandBuffer(c.cb)
}

// Execute submits the command buffer to queue and returns a Future that is
// signalled when the GPU has finished with it.
func (c *CommandBuffer) Execute(queue vulkan.Queue) (*Future, error) {
	fence, err := c.iface.CreateFence(false)
	if err != nil {
		return nil, err
	}
	submitInfo := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vulkan.CommandBuffer{c.cb},
	}
	if err := check(vulkan.QueueSubmit(queue, 1, []vulkan.SubmitInfo{submitInfo}, fence), "queue submit"); err != nil {
		vulkan.DestroyFence(c.iface.device, fence, nil)
		return nil, err
	}
	return &Future{iface: c.iface, fence: fence, cb: c.cb}, nil
}

// Future tracks a submission through its fence. It keeps the command buffer
// alive until Release.
type Future struct {
	iface *Interface
	fence vulkan.Fence
	cb    vulkan.CommandBuffer
}

// Wait blocks until the submission has completed. A zero timeout waits
// forever.
func (f *Future) Wait(timeout time.Duration) error {
	ns := uint64(vulkan.MaxUint64)
	if timeout > 0 {
		ns = uint64(timeout.Nanoseconds())
	}
	res := vulkan.WaitForFences(f.iface.device, 1, []vulkan.Fence{f.fence}, vulkan.True, ns)
	if res == vulkan.Timeout {
		return errors.Errorf("fence not signalled after %s", timeout)
	}
	return check(res, "wait for fence")
}

// Done reports whether the fence has been signalled without blocking.
func (f *Future) Done() bool {
	return vulkan.GetFenceStatus(f.iface.device, f.fence) == vulkan.Success
}

func (f *Future) Release() {
	if f.fence != vulkan.Fence(vulkan.NullHandle) {
		vulkan.DestroyFence(f.iface.device, f.fence, nil)
		f.fence = vulkan.Fence(vulkan.NullHandle)
	}
	if f.cb != nil {
		f.iface.FreeCommandBuffer(f.cb)
		f.cb = nil
	}
}

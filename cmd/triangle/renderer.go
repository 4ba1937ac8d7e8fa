package main

import (
	"log"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"vkplayground/internal/frame"
	"vkplayground/internal/vkutil"
)

const maxFramesInFlight = 2

var errNoSurfaceFormat = errors.New("surface reports no formats")

// wrapResult maps the results the frame loop cares about onto its sentinels.
func wrapResult(res vulkan.Result, op string) error {
	switch res {
	case vulkan.ErrorOutOfDate:
		return errors.Wrap(frame.ErrOutOfDate, op)
	case vulkan.ErrorDeviceLost:
		return errors.Wrap(frame.ErrDeviceLost, op)
	}
	return errors.Wrap(vulkan.Error(res), op)
}

type frameSync struct {
	cb             vulkan.CommandBuffer
	imageAvailable vulkan.Semaphore
	renderFinished vulkan.Semaphore
	inFlight       vulkan.Fence
}

// renderer owns the swapchain and everything that draws into it. It
// implements frame.Target.
type renderer struct {
	iface  *vkutil.Interface
	device vulkan.Device
	logger *log.Logger

	format         vulkan.SurfaceFormat
	renderPass     vulkan.RenderPass
	pipelineLayout vulkan.PipelineLayout
	pipeline       vulkan.Pipeline
	vertices       *vkutil.Buffer

	swapchain    vulkan.Swapchain
	extent       vulkan.Extent2D
	views        []vulkan.ImageView
	framebuffers []vulkan.Framebuffer

	frames         [maxFramesInFlight]frameSync
	imagesInFlight []vulkan.Fence
	current        int

	// syncErr is set when ResetSync could not rebuild a frame's fence or
	// semaphores; the next Acquire reports it.
	syncErr error
}

var _ frame.Target = (*renderer)(nil)

func newRenderer(iface *vkutil.Interface, dim vkutil.UVec2, vert, frag []uint32) (*renderer, error) {
	r := &renderer{
		iface:          iface,
		device:         iface.Device(),
		logger:         iface.Logger(),
		renderPass:     vulkan.RenderPass(vulkan.NullHandle),
		pipelineLayout: vulkan.PipelineLayout(vulkan.NullHandle),
		pipeline:       vulkan.Pipeline(vulkan.NullHandle),
		swapchain:      vulkan.Swapchain(vulkan.NullHandle),
	}

	var err error
	if r.format, err = chooseSurfaceFormat(iface); err != nil {
		return nil, err
	}
	if r.renderPass, err = createRenderPass(r.device, r.format.Format); err != nil {
		r.destroy()
		return nil, err
	}
	if r.pipelineLayout, r.pipeline, err = createPipeline(iface, r.renderPass, vert, frag); err != nil {
		r.destroy()
		return nil, err
	}
	if r.vertices, err = iface.CPUAccessibleBufferFrom(vertexBytes(vertices)); err != nil {
		r.destroy()
		return nil, err
	}
	for i := range r.frames {
		if r.frames[i].cb, err = iface.AllocateCommandBuffer(); err != nil {
			r.destroy()
			return nil, err
		}
		if err := r.createSync(&r.frames[i]); err != nil {
			r.destroy()
			return nil, err
		}
	}
	if err := r.Recreate(dim); err != nil {
		r.destroy()
		return nil, err
	}
	return r, nil
}

func (r *renderer) createSync(f *frameSync) error {
	var err error
	if f.imageAvailable, err = r.iface.CreateSemaphore(); err != nil {
		return err
	}
	if f.renderFinished, err = r.iface.CreateSemaphore(); err != nil {
		return err
	}
	f.inFlight, err = r.iface.CreateFence(true)
	return err
}

func (r *renderer) destroySync(f *frameSync) {
	if f.imageAvailable != vulkan.Semaphore(vulkan.NullHandle) {
		vulkan.DestroySemaphore(r.device, f.imageAvailable, nil)
	}
	if f.renderFinished != vulkan.Semaphore(vulkan.NullHandle) {
		vulkan.DestroySemaphore(r.device, f.renderFinished, nil)
	}
	if f.inFlight != vulkan.Fence(vulkan.NullHandle) {
		vulkan.DestroyFence(r.device, f.inFlight, nil)
	}
	f.imageAvailable = vulkan.Semaphore(vulkan.NullHandle)
	f.renderFinished = vulkan.Semaphore(vulkan.NullHandle)
	f.inFlight = vulkan.Fence(vulkan.NullHandle)
}

func (r *renderer) capabilities() vulkan.SurfaceCapabilities {
	var caps vulkan.SurfaceCapabilities
	vulkan.GetPhysicalDeviceSurfaceCapabilities(r.iface.Physical(), r.iface.Surface(), &caps)
	caps.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps
}

func supported(dim vkutil.UVec2, caps vulkan.SurfaceCapabilities) bool {
	lo, hi := caps.MinImageExtent, caps.MaxImageExtent
	return !dim.Zero() &&
		dim.X >= lo.Width && dim.X <= hi.Width &&
		dim.Y >= lo.Height && dim.Y <= hi.Height
}

func compositeAlpha(caps vulkan.SurfaceCapabilities) vulkan.CompositeAlphaFlagBits {
	for _, bit := range []vulkan.CompositeAlphaFlagBits{
		vulkan.CompositeAlphaOpaqueBit,
		vulkan.CompositeAlphaPreMultipliedBit,
		vulkan.CompositeAlphaPostMultipliedBit,
		vulkan.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vulkan.CompositeAlphaFlags(bit) != 0 {
			return bit
		}
	}
	return vulkan.CompositeAlphaOpaqueBit
}

// Recreate builds a swapchain for dim from the current one. The old
// swapchain and its framebuffers are only released once the new one exists.
func (r *renderer) Recreate(dim vkutil.UVec2) error {
	caps := r.capabilities()
	if !supported(dim, caps) {
		return errors.Wrapf(frame.ErrUnsupportedDimensions, "%s", dim)
	}

	createInfo := vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          r.iface.Surface(),
		MinImageCount:    caps.MinImageCount,
		ImageFormat:      r.format.Format,
		ImageColorSpace:  r.format.ColorSpace,
		ImageExtent:      dim.Extent2D(),
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		ImageSharingMode: vulkan.SharingModeExclusive,
		PreTransform:     vulkan.SurfaceTransformIdentityBit,
		CompositeAlpha:   compositeAlpha(caps),
		PresentMode:      vulkan.PresentModeFifo,
		Clipped:          vulkan.True,
		OldSwapchain:     r.swapchain,
	}
	if caps.SupportedTransforms&vulkan.SurfaceTransformFlags(vulkan.SurfaceTransformIdentityBit) == 0 {
		createInfo.PreTransform = caps.CurrentTransform
	}

	var swapchain vulkan.Swapchain
	if res := vulkan.CreateSwapchain(r.device, &createInfo, nil, &swapchain); res != vulkan.Success {
		return wrapResult(res, "create swapchain")
	}

	vulkan.DeviceWaitIdle(r.device)
	r.destroySwapchain()
	r.swapchain = swapchain
	r.extent = dim.Extent2D()

	var count uint32
	vulkan.GetSwapchainImages(r.device, swapchain, &count, nil)
	images := make([]vulkan.Image, count)
	vulkan.GetSwapchainImages(r.device, swapchain, &count, images)

	r.views = make([]vulkan.ImageView, 0, count)
	r.framebuffers = make([]vulkan.Framebuffer, 0, count)
	for i, img := range images {
		view, err := r.iface.CreateImageView(img, r.format.Format)
		if err != nil {
			return errors.Wrapf(err, "swapchain image %d", i)
		}
		r.views = append(r.views, view)

		fbInfo := vulkan.FramebufferCreateInfo{
			SType:           vulkan.StructureTypeFramebufferCreateInfo,
			RenderPass:      r.renderPass,
			AttachmentCount: 1,
			PAttachments:    []vulkan.ImageView{view},
			Width:           r.extent.Width,
			Height:          r.extent.Height,
			Layers:          1,
		}
		var fb vulkan.Framebuffer
		if res := vulkan.CreateFramebuffer(r.device, &fbInfo, nil, &fb); res != vulkan.Success {
			return wrapResult(res, "create framebuffer")
		}
		r.framebuffers = append(r.framebuffers, fb)
	}
	r.imagesInFlight = make([]vulkan.Fence, count)
	r.logger.Printf("swapchain %s with %d images", dim, count)
	return nil
}

func (r *renderer) destroySwapchain() {
	for _, fb := range r.framebuffers {
		vulkan.DestroyFramebuffer(r.device, fb, nil)
	}
	r.framebuffers = nil
	for _, view := range r.views {
		vulkan.DestroyImageView(r.device, view, nil)
	}
	r.views = nil
	if r.swapchain != vulkan.Swapchain(vulkan.NullHandle) {
		vulkan.DestroySwapchain(r.device, r.swapchain, nil)
		r.swapchain = vulkan.Swapchain(vulkan.NullHandle)
	}
}

// CleanupFinished forgets images whose last frame has completed so Submit
// does not wait on them again.
func (r *renderer) CleanupFinished() {
	for i, fence := range r.imagesInFlight {
		if fence == vulkan.Fence(vulkan.NullHandle) {
			continue
		}
		if vulkan.GetFenceStatus(r.device, fence) == vulkan.Success {
			r.imagesInFlight[i] = vulkan.Fence(vulkan.NullHandle)
		}
	}
}

func (r *renderer) Acquire() (uint32, bool, error) {
	if r.syncErr != nil {
		return 0, false, r.syncErr
	}
	f := &r.frames[r.current]
	if res := vulkan.WaitForFences(r.device, 1, []vulkan.Fence{f.inFlight}, vulkan.True, vulkan.MaxUint64); res != vulkan.Success {
		return 0, false, wrapResult(res, "wait for frame")
	}

	var index uint32
	res := vulkan.AcquireNextImage(r.device, r.swapchain, vulkan.MaxUint64, f.imageAvailable, vulkan.Fence(vulkan.NullHandle), &index)
	switch res {
	case vulkan.Success:
		return index, false, nil
	case vulkan.Suboptimal:
		return index, true, nil
	}
	return 0, false, wrapResult(res, "acquire next image")
}

func (r *renderer) Record(index uint32) error {
	cb := r.frames[r.current].cb
	vulkan.ResetCommandBuffer(cb, 0)

	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vulkan.BeginCommandBuffer(cb, &beginInfo); res != vulkan.Success {
		return wrapResult(res, "begin command buffer")
	}

	area := vulkan.Rect2D{Offset: vulkan.Offset2D{X: 0, Y: 0}, Extent: r.extent}
	renderPassInfo := vulkan.RenderPassBeginInfo{
		SType:           vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:      r.renderPass,
		Framebuffer:     r.framebuffers[index],
		RenderArea:      area,
		ClearValueCount: 1,
		PClearValues:    []vulkan.ClearValue{vulkan.NewClearValue(clearColor[:])},
	}
	vulkan.CmdBeginRenderPass(cb, &renderPassInfo, vulkan.SubpassContentsInline)
	vulkan.CmdBindPipeline(cb, vulkan.PipelineBindPointGraphics, r.pipeline)
	vulkan.CmdSetViewport(cb, 0, 1, []vulkan.Viewport{{
		Width:    float32(r.extent.Width),
		Height:   float32(r.extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	vulkan.CmdSetScissor(cb, 0, 1, []vulkan.Rect2D{area})
	vulkan.CmdBindVertexBuffers(cb, 0, 1, []vulkan.Buffer{r.vertices.Handle()}, []vulkan.DeviceSize{0})
	vulkan.CmdDraw(cb, uint32(len(vertices)), 1, 0, 0)
	vulkan.CmdEndRenderPass(cb)

	if res := vulkan.EndCommandBuffer(cb); res != vulkan.Success {
		return wrapResult(res, "end command buffer")
	}
	return nil
}

func (r *renderer) Submit(index uint32) error {
	f := &r.frames[r.current]
	if fence := r.imagesInFlight[index]; fence != vulkan.Fence(vulkan.NullHandle) {
		vulkan.WaitForFences(r.device, 1, []vulkan.Fence{fence}, vulkan.True, vulkan.MaxUint64)
	}
	r.imagesInFlight[index] = f.inFlight
	vulkan.ResetFences(r.device, 1, []vulkan.Fence{f.inFlight})

	submitInfo := vulkan.SubmitInfo{
		SType:                vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vulkan.Semaphore{f.imageAvailable},
		PWaitDstStageMask:    []vulkan.PipelineStageFlags{vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vulkan.CommandBuffer{f.cb},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vulkan.Semaphore{f.renderFinished},
	}
	if res := vulkan.QueueSubmit(r.iface.Queue(), 1, []vulkan.SubmitInfo{submitInfo}, f.inFlight); res != vulkan.Success {
		return wrapResult(res, "queue submit")
	}
	return nil
}

func (r *renderer) Present(index uint32) error {
	f := &r.frames[r.current]
	presentInfo := vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{f.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{r.swapchain},
		PImageIndices:      []uint32{index},
	}
	res := vulkan.QueuePresent(r.iface.Queue(), &presentInfo)
	r.current = (r.current + 1) % maxFramesInFlight
	if res == vulkan.Success || res == vulkan.Suboptimal {
		return nil
	}
	return wrapResult(res, "queue present")
}

// ResetSync waits for the device and replaces every frame's semaphores and
// fence, since a failed submit or present can leave them signalled with no
// waiter or unsignalled forever.
func (r *renderer) ResetSync() {
	vulkan.DeviceWaitIdle(r.device)
	for i := range r.frames {
		r.destroySync(&r.frames[i])
		if err := r.createSync(&r.frames[i]); err != nil && r.syncErr == nil {
			r.syncErr = errors.Wrapf(err, "recreate frame sync %d", i)
		}
	}
	for i := range r.imagesInFlight {
		r.imagesInFlight[i] = vulkan.Fence(vulkan.NullHandle)
	}
	r.current = 0
}

func (r *renderer) destroy() {
	vulkan.DeviceWaitIdle(r.device)
	r.destroySwapchain()
	for i := range r.frames {
		r.destroySync(&r.frames[i])
		if r.frames[i].cb != nil {
			r.iface.FreeCommandBuffer(r.frames[i].cb)
			r.frames[i].cb = nil
		}
	}
	if r.vertices != nil {
		r.vertices.Destroy()
		r.vertices = nil
	}
	if r.pipeline != vulkan.Pipeline(vulkan.NullHandle) {
		vulkan.DestroyPipeline(r.device, r.pipeline, nil)
		r.pipeline = vulkan.Pipeline(vulkan.NullHandle)
	}
	if r.pipelineLayout != vulkan.PipelineLayout(vulkan.NullHandle) {
		vulkan.DestroyPipelineLayout(r.device, r.pipelineLayout, nil)
		r.pipelineLayout = vulkan.PipelineLayout(vulkan.NullHandle)
	}
	if r.renderPass != vulkan.RenderPass(vulkan.NullHandle) {
		vulkan.DestroyRenderPass(r.device, r.renderPass, nil)
		r.renderPass = vulkan.RenderPass(vulkan.NullHandle)
	}
}

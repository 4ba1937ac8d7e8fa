package mandelbrot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"

	"vkplayground/internal/vkutil"
)

// localSize matches local_size_x/y of the compute shader.
const localSize = 8

// GPU renders with a compute shader. Shader must be SPIR-V for a program
// with a single rgba8 storage image at set 0, binding 0.
type GPU struct {
	Interface *vkutil.Interface
	Shader    []uint32

	// Timeout bounds the fence wait; zero waits forever.
	Timeout time.Duration
}

func (g *GPU) Render(ctx context.Context, dim vkutil.UVec2) ([]byte, error) {
	iface := g.Interface

	img, err := iface.StorageImage(dim, vulkan.FormatR8g8b8a8Unorm)
	if err != nil {
		return nil, err
	}
	defer img.Destroy()

	pipeline, err := iface.NewComputePipeline(g.Shader)
	if err != nil {
		return nil, err
	}
	defer pipeline.Destroy()
	if err := pipeline.BindStorageImage(img); err != nil {
		return nil, err
	}

	buf, err := iface.CPUAccessibleBuffer(int(dim.Area() * 4))
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	builder, err := iface.AutoCommandBufferBuilder()
	if err != nil {
		return nil, err
	}
	builder.
		TransitionImage(img, vulkan.ImageLayoutUndefined, vulkan.ImageLayoutGeneral).
		Dispatch(pipeline, [3]uint32{groups(dim.X), groups(dim.Y), 1}).
		TransitionImage(img, vulkan.ImageLayoutGeneral, vulkan.ImageLayoutTransferSrcOptimal).
		CopyImageToBuffer(img, buf)
	cb, err := builder.Build()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		cb.Discard()
		return nil, err
	}
	future, err := cb.Execute(iface.Queue())
	if err != nil {
		cb.Discard()
		return nil, err
	}
	defer future.Release()
	if err := future.Wait(g.Timeout); err != nil {
		return nil, errors.Wrap(err, "mandelbrot dispatch")
	}
	return buf.Read()
}

func groups(n uint32) uint32 {
	return (n + localSize - 1) / localSize
}

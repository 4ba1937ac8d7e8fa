package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/vulkan-go/vulkan"

	"vkplayground/internal/frame"
	"vkplayground/internal/vkutil"
)

func TestSupported(t *testing.T) {
	var caps vulkan.SurfaceCapabilities
	caps.MinImageExtent = vulkan.Extent2D{Width: 1, Height: 1}
	caps.MaxImageExtent = vulkan.Extent2D{Width: 4096, Height: 2048}

	assert.True(t, supported(vkutil.Vec2(800, 600), caps))
	assert.True(t, supported(vkutil.Vec2(4096, 2048), caps))
	assert.False(t, supported(vkutil.Vec2(0, 0), caps))
	assert.False(t, supported(vkutil.Vec2(800, 0), caps))
	assert.False(t, supported(vkutil.Vec2(800, 4000), caps))
}

func TestCompositeAlpha(t *testing.T) {
	var caps vulkan.SurfaceCapabilities
	caps.SupportedCompositeAlpha = vulkan.CompositeAlphaFlags(vulkan.CompositeAlphaInheritBit | vulkan.CompositeAlphaPreMultipliedBit)
	assert.Equal(t, vulkan.CompositeAlphaPreMultipliedBit, compositeAlpha(caps))
}

func TestWrapResult(t *testing.T) {
	assert.True(t, errors.Is(wrapResult(vulkan.ErrorOutOfDate, "queue present"), frame.ErrOutOfDate))
	assert.True(t, errors.Is(wrapResult(vulkan.ErrorDeviceLost, "queue submit"), frame.ErrDeviceLost))

	err := wrapResult(vulkan.ErrorOutOfHostMemory, "queue submit")
	assert.False(t, errors.Is(err, frame.ErrOutOfDate))
	assert.Contains(t, err.Error(), "queue submit")
}

func TestVertexBytes(t *testing.T) {
	b := vertexBytes(vertices)
	assert.Len(t, b, len(vertices)*8)
}

func TestAcquireAfterFailedResetSync(t *testing.T) {
	r := &renderer{syncErr: errors.Wrap(vulkan.Error(vulkan.ErrorOutOfDeviceMemory), "recreate frame sync 0")}
	_, _, err := r.Acquire()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "recreate frame sync 0")
	assert.False(t, errors.Is(err, frame.ErrOutOfDate))
}

package vkutil

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// UVec2 is a width/height pair used to size images, swapchains and dispatches.
// It is never validated; a zero extent is rejected by the driver when a
// resource is created from it.
type UVec2 struct {
	X uint32
	Y uint32
}

func Vec2(width, height uint32) UVec2 {
	return UVec2{X: width, Y: height}
}

// FromExtent2D converts a Vulkan extent back into a UVec2.
func FromExtent2D(e vulkan.Extent2D) UVec2 {
	return UVec2{X: e.Width, Y: e.Height}
}

func (v UVec2) Extent2D() vulkan.Extent2D {
	return vulkan.Extent2D{Width: v.X, Height: v.Y}
}

// Extent3D returns the extent of a single-layer 2-D image.
func (v UVec2) Extent3D() vulkan.Extent3D {
	return vulkan.Extent3D{Width: v.X, Height: v.Y, Depth: 1}
}

func (v UVec2) Area() uint64 {
	return uint64(v.X) * uint64(v.Y)
}

func (v UVec2) Zero() bool {
	return v.X == 0 || v.Y == 0
}

func (v UVec2) String() string {
	return fmt.Sprintf("%dx%d", v.X, v.Y)
}

// Command triangle opens a window and draws a single triangle through a
// Vulkan swapchain, rebuilding it whenever the window is resized.
package main

import (
	"context"
	"log"
	"runtime"

	"github.com/pkg/errors"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	"github.com/vulkan-go/vulkan"

	"vkplayground/internal/config"
	"vkplayground/internal/frame"
	"vkplayground/internal/shader"
	"vkplayground/internal/vkutil"
)

const (
	windowWidth  = 800
	windowHeight = 600
	windowTitle  = "vulkan playground"
)

func init() {
	// GLFW/Vulkan require the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("triangle: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	compiler := shader.Compiler{Path: cfg.Glslc}
	vert, err := compiler.Compile(context.Background(), shader.Vertex, shader.TriangleVertex)
	if err != nil {
		return err
	}
	frag, err := compiler.Compile(context.Background(), shader.Fragment, shader.TriangleFragment)
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()
	if !glfw.VulkanSupported() {
		return errors.New("GLFW Vulkan loader not found")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	size := func() vkutil.UVec2 {
		w, h := window.GetFramebufferSize()
		return vkutil.Vec2(uint32(w), uint32(h))
	}
	// The first swapchain needs a non-zero framebuffer.
	for size().Zero() {
		glfw.WaitEventsTimeout(0.01)
	}

	iface, err := vkutil.NewInterface(vkutil.Options{
		AppName:            "triangle",
		Validation:         cfg.Validation,
		InstanceExtensions: window.GetRequiredInstanceExtensions(),
		DeviceExtensions:   []string{"VK_KHR_swapchain"},
		ProcAddr:           glfw.GetVulkanGetInstanceProcAddress(),
		Surface: func(instance vulkan.Instance) (vulkan.Surface, error) {
			ptr, err := window.CreateWindowSurface(instance, nil)
			if err != nil {
				return vulkan.NullSurface, err
			}
			return vulkan.SurfaceFromPointer(ptr), nil
		},
	})
	if err != nil {
		return err
	}
	defer iface.Destroy()
	log.Printf("using %s", iface.Info())

	r, err := newRenderer(iface, size(), vert, frag)
	if err != nil {
		return err
	}
	defer r.destroy()

	loop := frame.NewLoop(r, size, log.Default())
	var handleErr error
	handle := func(ev frame.Event) {
		if err := loop.Handle(ev); err != nil && handleErr == nil {
			handleErr = err
		}
	}
	window.SetFramebufferSizeCallback(func(*glfw.Window, int, int) {
		handle(frame.EventResize)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	log.Printf("Entering main loop")
	for !loop.Closed() {
		glfw.PollEvents()
		if window.ShouldClose() {
			handle(frame.EventClose)
			break
		}
		handle(frame.EventRedraw)
		if handleErr != nil {
			return handleErr
		}
	}

	stats := loop.Stats()
	log.Printf("presented %d frames, skipped %d", stats.Presented, stats.Skipped)
	return nil
}

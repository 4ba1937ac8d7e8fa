// Command mandelbrot renders a 1024x1024 Mandelbrot image with a compute
// shader compiled from the embedded GLSL source and writes it to image.png.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"

	"vkplayground/internal/config"
	"vkplayground/internal/mandelbrot"
	"vkplayground/internal/shader"
	"vkplayground/internal/vkutil"
)

const size = 1024

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("mandelbrot: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var iface *vkutil.Interface
	defer func() {
		if iface != nil {
			iface.Destroy()
		}
	}()
	r, _, err := mandelbrot.Init(func() (mandelbrot.Renderer, error) {
		if cfg.Renderer == config.RendererSoftware {
			log.Printf("using software renderer")
			return mandelbrot.Software{}, nil
		}
		var err error
		iface, err = vkutil.NewCompute(vkutil.Options{AppName: "mandelbrot", Validation: cfg.Validation})
		if err != nil {
			return nil, err
		}
		code, err := shader.Compiler{Path: cfg.Glslc}.Compile(ctx, shader.Compute, shader.MandelbrotCompute)
		if err != nil {
			return nil, err
		}
		fmt.Println(iface.Info())
		iface.WriteProperties(os.Stdout)
		return &mandelbrot.GPU{Interface: iface, Shader: code}, nil
	}, log.Default())
	if err != nil {
		return err
	}

	job := mandelbrot.Job{Dim: vkutil.Vec2(size, size), Output: cfg.Output}
	_, err = mandelbrot.Run(ctx, r, job, log.Default())
	return err
}

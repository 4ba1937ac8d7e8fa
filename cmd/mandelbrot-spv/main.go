// Command mandelbrot-spv renders a 2048x2048 Mandelbrot image with a
// precompiled SPIR-V compute shader loaded from disk.
//
// Build the shader first with `go generate ./internal/shader`.
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

const size = 2048

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("mandelbrot-spv: %v", err)
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
		switch cfg.Renderer {
		case config.RendererSoftware:
			log.Printf("using software renderer")
			return mandelbrot.Software{}, nil
		}
		code, err := shader.Load(cfg.Shader)
		if err != nil {
			return nil, err
		}
		iface, err = vkutil.NewCompute(vkutil.Options{AppName: "mandelbrot-spv", Validation: cfg.Validation})
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

// Package mandelbrot renders the escape-time Mandelbrot image, either with a
// Vulkan compute dispatch or on the CPU, and writes it to disk.
package mandelbrot

import (
	"context"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"vkplayground/internal/vkutil"
)

const (
	// MaxIterations is the number of steps the shader takes before it
	// gives up on a point: i runs from 0 to 1 in steps of 0.005.
	MaxIterations = 200
	Bailout       = 4.0

	step = float32(1.0 / MaxIterations)
)

// Renderer produces tightly packed RGBA8 rows of a dim-sized image.
type Renderer interface {
	Render(ctx context.Context, dim vkutil.UVec2) ([]byte, error)
}

// Escape runs the recurrence z = z*z + c and returns the normalised step at
// which |z| exceeded Bailout, or a value >= 1 for points that never did.
func Escape(c mgl32.Vec2) float32 {
	var z mgl32.Vec2
	var i float32
	for i = 0; i < 1; i += step {
		z = mgl32.Vec2{
			z.X()*z.X() - z.Y()*z.Y() + c.X(),
			z.Y()*z.X() + z.X()*z.Y() + c.Y(),
		}
		if z.Len() > Bailout {
			break
		}
	}
	return i
}

// Point maps pixel (x, y) to the complex plane the way the compute shader
// does: the image covers [-2, 0] x [-1, 1].
func Point(x, y uint32, dim vkutil.UVec2) mgl32.Vec2 {
	norm := mgl32.Vec2{
		(float32(x) + 0.5) / float32(dim.X),
		(float32(y) + 0.5) / float32(dim.Y),
	}
	return norm.Sub(mgl32.Vec2{0.5, 0.5}).Mul(2).Sub(mgl32.Vec2{1, 0})
}

// Shade converts an escape value to the grey level an rgba8 UNORM store
// would write.
func Shade(i float32) uint8 {
	return uint8(math.Round(float64(mgl32.Clamp(i, 0, 1)) * 255))
}

// Software computes the image on the CPU, splitting rows across workers.
type Software struct {
	// Workers defaults to GOMAXPROCS.
	Workers int
}

func (s Software) Render(ctx context.Context, dim vkutil.UVec2) ([]byte, error) {
	if dim.Zero() {
		return nil, errors.Errorf("cannot render empty image %s", dim)
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > int(dim.Y) {
		workers = int(dim.Y)
	}

	pix := make([]byte, dim.Area()*4)
	stride := int(dim.X) * 4
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		first := uint32(w)
		g.Go(func() error {
			for y := first; y < dim.Y; y += uint32(workers) {
				if err := ctx.Err(); err != nil {
					return err
				}
				row := pix[int(y)*stride : int(y+1)*stride]
				for x := uint32(0); x < dim.X; x++ {
					v := Shade(Escape(Point(x, y, dim)))
					row[x*4+0] = v
					row[x*4+1] = v
					row[x*4+2] = v
					row[x*4+3] = 255
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pix, nil
}

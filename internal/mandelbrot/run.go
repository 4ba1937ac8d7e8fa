package mandelbrot

import (
	"context"
	"log"
	"time"

	"github.com/loov/hrtime"

	"vkplayground/internal/vkutil"
)

// Job is one render-and-save request.
type Job struct {
	Dim    vkutil.UVec2
	Output string
}

type Timings struct {
	Compute time.Duration
	Encode  time.Duration
}

// Init builds a Renderer with setup and logs how long that took, whatever
// kind of renderer it is.
func Init(setup func() (Renderer, error), logger *log.Logger) (Renderer, time.Duration, error) {
	start := hrtime.Now()
	r, err := setup()
	if err != nil {
		return nil, 0, err
	}
	elapsed := hrtime.Since(start)
	logger.Printf("init: %d ms", elapsed.Milliseconds())
	return r, elapsed, nil
}

// Run renders job.Dim with r and saves the result to job.Output, logging how
// long each phase took.
func Run(ctx context.Context, r Renderer, job Job, logger *log.Logger) (Timings, error) {
	var t Timings

	start := hrtime.Now()
	pix, err := r.Render(ctx, job.Dim)
	if err != nil {
		return t, err
	}
	t.Compute = hrtime.Since(start)
	logger.Printf("compute: %d ms", t.Compute.Milliseconds())

	start = hrtime.Now()
	if err := Save(job.Output, pix, job.Dim); err != nil {
		return t, err
	}
	t.Encode = hrtime.Since(start)
	logger.Printf("encode: %d ms (%s, %s)", t.Encode.Milliseconds(), job.Output, job.Dim)
	return t, nil
}

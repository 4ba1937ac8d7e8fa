package frame

import (
	"log"
	"time"

	"github.com/loov/hrtime"
)

// Stats counts presented and skipped frames and logs the frame rate about
// once a second.
type Stats struct {
	Presented uint64
	Skipped   uint64

	logger *log.Logger
	now    func() time.Duration

	frames int
	last   time.Duration
	fps    float64
}

func NewStats(logger *log.Logger) *Stats {
	return newStats(logger, hrtime.Now)
}

func newStats(logger *log.Logger, now func() time.Duration) *Stats {
	return &Stats{logger: logger, now: now, last: now()}
}

// FPS is the rate measured over the last completed interval.
func (s *Stats) FPS() float64 { return s.fps }

func (s *Stats) skip() { s.Skipped++ }

func (s *Stats) present() {
	s.Presented++
	s.frames++
	now := s.now()
	elapsed := now - s.last
	if elapsed < time.Second {
		return
	}
	s.fps = float64(s.frames) / elapsed.Seconds()
	s.frames = 0
	s.last = now
	s.logger.Printf("fps: %.1f (presented %d, skipped %d)", s.fps, s.Presented, s.Skipped)
}

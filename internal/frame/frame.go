// Package frame drives a present loop: it reacts to window events, rebuilds
// the swapchain when it goes stale and pushes one frame per redraw through
// acquire, record, submit and present.
package frame

import (
	"log"

	"github.com/pkg/errors"

	"vkplayground/internal/vkutil"
)

var (
	// ErrUnsupportedDimensions is returned by Target.Recreate when the surface
	// cannot take the requested size, e.g. while a window is minimised.
	ErrUnsupportedDimensions = errors.New("unsupported swapchain dimensions")
	ErrOutOfDate             = errors.New("swapchain out of date")
	ErrDeviceLost            = errors.New("device lost")
)

type State int

const (
	Idle State = iota
	Acquiring
	Recording
	Submitted
	Presenting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Recording:
		return "recording"
	case Submitted:
		return "submitted"
	case Presenting:
		return "presenting"
	default:
		return "unknown"
	}
}

type Event int

const (
	EventClose Event = iota
	EventResize
	EventRedraw
)

// Target is the swapchain-owning side of the loop.
type Target interface {
	// CleanupFinished releases resources held by frames the GPU has finished.
	CleanupFinished()
	// Recreate rebuilds the swapchain for dim. On ErrUnsupportedDimensions the
	// current swapchain must be left untouched.
	Recreate(dim vkutil.UVec2) error
	// Acquire blocks until a swapchain image is available.
	Acquire() (index uint32, suboptimal bool, err error)
	Record(index uint32) error
	// Submit queues the recorded work after the previous frame and the
	// acquisition of index.
	Submit(index uint32) error
	Present(index uint32) error
	// ResetSync drops the synchronisation chain after a failed flush so the
	// next frame starts from a fresh point.
	ResetSync()
}

type Loop struct {
	target Target
	size   func() vkutil.UVec2
	logger *log.Logger

	state  State
	stale  bool
	closed bool
	stats  *Stats
}

// NewLoop returns a Loop that asks size for the window's framebuffer
// dimensions whenever the swapchain has to be rebuilt.
func NewLoop(target Target, size func() vkutil.UVec2, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		target: target,
		size:   size,
		logger: logger,
		stats:  NewStats(logger),
	}
}

// Handle processes one event. A non-nil error is fatal for the loop.
func (l *Loop) Handle(ev Event) error {
	switch ev {
	case EventClose:
		l.closed = true
	case EventResize:
		l.stale = true
	case EventRedraw:
		if l.closed {
			return nil
		}
		return l.redraw()
	}
	return nil
}

func (l *Loop) Closed() bool { return l.closed }

// Stale reports whether the next redraw will rebuild the swapchain.
func (l *Loop) Stale() bool { return l.stale }

func (l *Loop) State() State { return l.state }

func (l *Loop) Stats() *Stats { return l.stats }

func (l *Loop) redraw() error {
	l.target.CleanupFinished()

	if l.stale {
		err := l.target.Recreate(l.size())
		switch {
		case errors.Is(err, ErrUnsupportedDimensions):
			// Try again next redraw, the window may have been restored by then.
			l.stats.skip()
			return nil
		case err != nil:
			return errors.Wrap(err, "recreate swapchain")
		}
		l.stale = false
	}

	l.state = Acquiring
	index, suboptimal, err := l.target.Acquire()
	switch {
	case errors.Is(err, ErrOutOfDate):
		l.stale = true
		l.state = Idle
		l.stats.skip()
		return nil
	case err != nil:
		l.state = Idle
		return errors.Wrap(err, "acquire next image")
	}
	if suboptimal {
		l.stale = true
	}

	l.state = Recording
	if err := l.target.Record(index); err != nil {
		l.state = Idle
		return errors.Wrap(err, "record frame")
	}

	l.state = Submitted
	if err := l.target.Submit(index); err != nil {
		return l.flushFailed(err)
	}
	l.state = Presenting
	if err := l.target.Present(index); err != nil {
		return l.flushFailed(err)
	}
	l.state = Idle
	l.stats.present()
	return nil
}

func (l *Loop) flushFailed(err error) error {
	l.state = Idle
	l.stats.skip()
	switch {
	case errors.Is(err, ErrDeviceLost):
		return errors.Wrap(err, "flush frame")
	case errors.Is(err, ErrOutOfDate):
		l.stale = true
	default:
		l.logger.Printf("failed to flush frame: %v", err)
	}
	l.target.ResetSync()
	return nil
}

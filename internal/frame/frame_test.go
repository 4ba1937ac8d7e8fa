package frame

import (
	"bytes"
	"fmt"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkplayground/internal/vkutil"
)

type fakeTarget struct {
	calls []string

	swapchain vkutil.UVec2
	maxDim    vkutil.UVec2
	recreated int

	acquireErr error
	suboptimal bool
	submitErr  error
	presentErr error
	resets     int

	// observed is the loop state while each call runs.
	loop     *Loop
	observed []State
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{swapchain: vkutil.Vec2(800, 600), maxDim: vkutil.Vec2(4096, 4096)}
}

func (f *fakeTarget) note(call string) {
	f.calls = append(f.calls, call)
	if f.loop != nil {
		f.observed = append(f.observed, f.loop.State())
	}
}

func (f *fakeTarget) CleanupFinished() { f.note("cleanup") }

func (f *fakeTarget) Recreate(dim vkutil.UVec2) error {
	f.note("recreate " + dim.String())
	if dim.Zero() || dim.X > f.maxDim.X || dim.Y > f.maxDim.Y {
		return errors.Wrapf(ErrUnsupportedDimensions, "%s", dim)
	}
	f.swapchain = dim
	f.recreated++
	return nil
}

func (f *fakeTarget) Acquire() (uint32, bool, error) {
	f.note("acquire")
	err := f.acquireErr
	f.acquireErr = nil
	return 1, f.suboptimal, err
}

func (f *fakeTarget) Record(index uint32) error {
	f.note(fmt.Sprintf("record %d", index))
	return nil
}

func (f *fakeTarget) Submit(index uint32) error {
	f.note(fmt.Sprintf("submit %d", index))
	err := f.submitErr
	f.submitErr = nil
	return err
}

func (f *fakeTarget) Present(index uint32) error {
	f.note(fmt.Sprintf("present %d", index))
	err := f.presentErr
	f.presentErr = nil
	return err
}

func (f *fakeTarget) ResetSync() {
	f.note("reset")
	f.resets++
}

func newTestLoop(target *fakeTarget, size *vkutil.UVec2) (*Loop, *bytes.Buffer) {
	var logs bytes.Buffer
	l := NewLoop(target, func() vkutil.UVec2 { return *size }, log.New(&logs, "", 0))
	target.loop = l
	return l, &logs
}

func TestRedrawSequence(t *testing.T) {
	target := newFakeTarget()
	size := vkutil.Vec2(800, 600)
	l, _ := newTestLoop(target, &size)

	require.NoError(t, l.Handle(EventRedraw))
	assert.Equal(t, []string{"cleanup", "acquire", "record 1", "submit 1", "present 1"}, target.calls)
	assert.Equal(t, []State{Idle, Acquiring, Recording, Submitted, Presenting}, target.observed)
	assert.Equal(t, Idle, l.State())
	assert.Equal(t, uint64(1), l.Stats().Presented)
	assert.False(t, l.Stale())
}

func TestResizeRecreates(t *testing.T) {
	target := newFakeTarget()
	size := vkutil.Vec2(800, 600)
	l, _ := newTestLoop(target, &size)

	require.NoError(t, l.Handle(EventResize))
	assert.True(t, l.Stale())
	size = vkutil.Vec2(1024, 768)
	require.NoError(t, l.Handle(EventRedraw))
	assert.Equal(t, "recreate 1024x768", target.calls[1])
	assert.Equal(t, vkutil.Vec2(1024, 768), target.swapchain)
	assert.False(t, l.Stale())
}

func TestUnsupportedDimensionsKeepsSwapchain(t *testing.T) {
	target := newFakeTarget()
	size := vkutil.Vec2(0, 0)
	l, _ := newTestLoop(target, &size)

	require.NoError(t, l.Handle(EventResize))
	require.NoError(t, l.Handle(EventRedraw))
	assert.Equal(t, []string{"cleanup", "recreate 0x0"}, target.calls)
	assert.Equal(t, vkutil.Vec2(800, 600), target.swapchain)
	assert.Equal(t, 0, target.recreated)
	assert.True(t, l.Stale())
	assert.Equal(t, uint64(1), l.Stats().Skipped)

	// The next tick retries with whatever the window reports now.
	size = vkutil.Vec2(640, 480)
	target.calls = nil
	require.NoError(t, l.Handle(EventRedraw))
	assert.Equal(t, "recreate 640x480", target.calls[1])
	assert.Equal(t, vkutil.Vec2(640, 480), target.swapchain)
	assert.False(t, l.Stale())
	assert.Equal(t, uint64(1), l.Stats().Presented)
}

type failingRecreate struct{ *fakeTarget }

func (failingRecreate) Recreate(vkutil.UVec2) error { return errors.New("out of host memory") }

func TestRecreateOtherErrorIsFatal(t *testing.T) {
	size := vkutil.Vec2(10, 10)
	l := NewLoop(failingRecreate{newFakeTarget()}, func() vkutil.UVec2 { return size }, log.New(&bytes.Buffer{}, "", 0))
	require.NoError(t, l.Handle(EventResize))
	err := l.Handle(EventRedraw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of host memory")
}

func TestAcquireOutOfDate(t *testing.T) {
	target := newFakeTarget()
	target.acquireErr = ErrOutOfDate
	size := vkutil.Vec2(800, 600)
	l, _ := newTestLoop(target, &size)

	require.NoError(t, l.Handle(EventRedraw))
	assert.Equal(t, []string{"cleanup", "acquire"}, target.calls)
	assert.True(t, l.Stale())
	assert.Equal(t, Idle, l.State())

	target.calls = nil
	require.NoError(t, l.Handle(EventRedraw))
	assert.Equal(t, []string{"cleanup", "recreate 800x600", "acquire", "record 1", "submit 1", "present 1"}, target.calls)
}

func TestAcquireOtherErrorIsFatal(t *testing.T) {
	target := newFakeTarget()
	target.acquireErr = errors.New("surface lost")
	size := vkutil.Vec2(800, 600)
	l, _ := newTestLoop(target, &size)
	require.Error(t, l.Handle(EventRedraw))
	assert.Equal(t, Idle, l.State())
}

func TestSuboptimalAcquireStillPresents(t *testing.T) {
	target := newFakeTarget()
	target.suboptimal = true
	size := vkutil.Vec2(800, 600)
	l, _ := newTestLoop(target, &size)

	require.NoError(t, l.Handle(EventRedraw))
	assert.Contains(t, target.calls, "present 1")
	assert.True(t, l.Stale())
}

func TestPresentOutOfDateIsNotFatal(t *testing.T) {
	target := newFakeTarget()
	target.presentErr = errors.Wrap(ErrOutOfDate, "queue present")
	size := vkutil.Vec2(800, 600)
	l, logs := newTestLoop(target, &size)

	require.NoError(t, l.Handle(EventRedraw))
	assert.True(t, l.Stale())
	assert.Equal(t, 1, target.resets)
	assert.Empty(t, logs.String())
	assert.Equal(t, uint64(0), l.Stats().Presented)
	assert.Equal(t, uint64(1), l.Stats().Skipped)
}

func TestFlushOtherErrorIsLogged(t *testing.T) {
	target := newFakeTarget()
	target.submitErr = errors.New("out of device memory")
	size := vkutil.Vec2(800, 600)
	l, logs := newTestLoop(target, &size)

	require.NoError(t, l.Handle(EventRedraw))
	assert.Contains(t, logs.String(), "failed to flush frame: out of device memory")
	assert.Equal(t, 1, target.resets)
	assert.False(t, l.Stale())
	assert.NotContains(t, target.calls, "present 1")

	require.NoError(t, l.Handle(EventRedraw))
	assert.Equal(t, uint64(1), l.Stats().Presented)
}

func TestPresentOtherErrorIsLogged(t *testing.T) {
	target := newFakeTarget()
	target.presentErr = errors.New("surface lost")
	size := vkutil.Vec2(800, 600)
	l, logs := newTestLoop(target, &size)

	require.NoError(t, l.Handle(EventRedraw))
	assert.Contains(t, logs.String(), "failed to flush frame: surface lost")
	assert.Equal(t, 1, target.resets)
	assert.False(t, l.Stale())
	assert.Equal(t, Idle, l.State())
	assert.Equal(t, uint64(1), l.Stats().Skipped)

	require.NoError(t, l.Handle(EventRedraw))
	assert.Equal(t, uint64(1), l.Stats().Presented)
}

func TestDeviceLostIsFatal(t *testing.T) {
	target := newFakeTarget()
	target.presentErr = errors.Wrap(ErrDeviceLost, "queue present")
	size := vkutil.Vec2(800, 600)
	l, _ := newTestLoop(target, &size)

	err := l.Handle(EventRedraw)
	require.ErrorIs(t, err, ErrDeviceLost)
	assert.Equal(t, 0, target.resets)
}

func TestClose(t *testing.T) {
	target := newFakeTarget()
	size := vkutil.Vec2(800, 600)
	l, _ := newTestLoop(target, &size)

	assert.False(t, l.Closed())
	require.NoError(t, l.Handle(EventClose))
	assert.True(t, l.Closed())
	require.NoError(t, l.Handle(EventRedraw))
	assert.Empty(t, target.calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "presenting", Presenting.String())
	assert.Equal(t, "unknown", State(42).String())
}

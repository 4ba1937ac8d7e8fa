package frame

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsFPS(t *testing.T) {
	var now time.Duration
	var logs bytes.Buffer
	s := newStats(log.New(&logs, "", 0), func() time.Duration { return now })

	for i := 0; i < 59; i++ {
		now += 16 * time.Millisecond
		s.present()
	}
	assert.Empty(t, logs.String())
	assert.Zero(t, s.FPS())

	now = 2 * time.Second
	s.present()
	assert.InDelta(t, 30.0, s.FPS(), 0.01)
	assert.Contains(t, logs.String(), "fps: 30.0 (presented 60, skipped 0)")
}

func TestStatsSkip(t *testing.T) {
	s := newStats(log.New(&bytes.Buffer{}, "", 0), func() time.Duration { return 0 })
	s.skip()
	s.skip()
	assert.Equal(t, uint64(2), s.Skipped)
	assert.Equal(t, uint64(0), s.Presented)
}

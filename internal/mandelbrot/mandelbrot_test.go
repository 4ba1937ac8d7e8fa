package mandelbrot

import (
	"bytes"
	"context"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkplayground/internal/vkutil"
)

func TestEscape(t *testing.T) {
	// The origin is in the set and never escapes.
	assert.GreaterOrEqual(t, Escape(mgl32.Vec2{0, 0}), float32(1))
	// Far outside the set escapes on the first step.
	assert.Less(t, Escape(mgl32.Vec2{3, 3}), 2*step)
	// -2 sits on the boundary and stays bounded.
	assert.GreaterOrEqual(t, Escape(mgl32.Vec2{-2, 0}), float32(1))
}

func TestPoint(t *testing.T) {
	dim := vkutil.Vec2(2, 2)
	p := Point(0, 0, dim)
	assert.InDelta(t, -1.5, p.X(), 1e-6)
	assert.InDelta(t, -0.5, p.Y(), 1e-6)
	p = Point(1, 1, dim)
	assert.InDelta(t, -0.5, p.X(), 1e-6)
	assert.InDelta(t, 0.5, p.Y(), 1e-6)
}

func TestShade(t *testing.T) {
	assert.Equal(t, uint8(0), Shade(0))
	assert.Equal(t, uint8(255), Shade(1))
	assert.Equal(t, uint8(255), Shade(1.2))
	assert.Equal(t, uint8(0), Shade(-1))
	assert.Equal(t, uint8(128), Shade(0.5))
}

func TestSoftwareRender(t *testing.T) {
	for _, dim := range []vkutil.UVec2{vkutil.Vec2(1, 1), vkutil.Vec2(7, 3), vkutil.Vec2(64, 64)} {
		pix, err := Software{Workers: 3}.Render(context.Background(), dim)
		require.NoError(t, err, dim)
		require.Len(t, pix, int(dim.Area()*4))
		for i := 3; i < len(pix); i += 4 {
			if pix[i] != 255 {
				t.Fatalf("%s: alpha at %d is %d", dim, i/4, pix[i])
			}
		}
		for i := 0; i < len(pix); i += 4 {
			assert.Equal(t, pix[i], pix[i+1])
			assert.Equal(t, pix[i], pix[i+2])
		}
	}
}

func TestSoftwareRenderInsideSet(t *testing.T) {
	// Pixel (48, 32) of a 64x64 image maps to roughly (-0.48, 0.02), well
	// inside the main cardioid.
	dim := vkutil.Vec2(64, 64)
	pix, err := Software{}.Render(context.Background(), dim)
	require.NoError(t, err)
	off := (32*64 + 48) * 4
	assert.Equal(t, uint8(255), pix[off])
	// The top-left corner (-1.98, -0.98) escapes quickly.
	assert.Less(t, pix[0], uint8(64))
}

func TestSoftwareRenderEmpty(t *testing.T) {
	_, err := Software{}.Render(context.Background(), vkutil.Vec2(0, 16))
	require.Error(t, err)
}

func TestSoftwareRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Software{}.Render(ctx, vkutil.Vec2(32, 32))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun(t *testing.T) {
	var logs bytes.Buffer
	out := filepath.Join(t.TempDir(), "image.png")
	dim := vkutil.Vec2(40, 24)

	timings, err := Run(context.Background(), Software{}, Job{Dim: dim, Output: out}, log.New(&logs, "", 0))
	require.NoError(t, err)
	assert.Greater(t, int64(timings.Compute), int64(0))
	assert.Contains(t, logs.String(), "compute: ")
	assert.Contains(t, logs.String(), "encode: ")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
	for y := 0; y < 24; y++ {
		for x := 0; x < 40; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			require.Equal(t, uint32(0xffff), a)
		}
	}
}

type failingRenderer struct{ err error }

func (f failingRenderer) Render(context.Context, vkutil.UVec2) ([]byte, error) {
	return nil, f.err
}

func TestRunRenderError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "image.png")
	boom := assert.AnError
	_, err := Run(context.Background(), failingRenderer{boom}, Job{Dim: vkutil.Vec2(4, 4), Output: out}, log.New(&bytes.Buffer{}, "", 0))
	require.ErrorIs(t, err, boom)
	assert.NoFileExists(t, out)
}

func TestInitLogsTiming(t *testing.T) {
	var logs bytes.Buffer
	r, elapsed, err := Init(func() (Renderer, error) { return Software{}, nil }, log.New(&logs, "", 0))
	require.NoError(t, err)
	assert.Equal(t, Software{}, r)
	assert.GreaterOrEqual(t, int64(elapsed), int64(0))
	assert.Contains(t, logs.String(), "init: ")
}

func TestInitError(t *testing.T) {
	var logs bytes.Buffer
	_, _, err := Init(func() (Renderer, error) { return nil, assert.AnError }, log.New(&logs, "", 0))
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, logs.String())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := load(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "image.png", cfg.Output)
	assert.True(t, cfg.Validation)
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"VK_VALIDATION":       "0",
		"MANDELBROT_OUTPUT":   "out.ppm",
		"MANDELBROT_RENDERER": "Software",
		"MANDELBROT_SHADER":   "x.spv",
		"GLSLC":               "/opt/bin/glslc",
	}))
	require.NoError(t, err)
	assert.False(t, cfg.Validation)
	assert.Equal(t, "out.ppm", cfg.Output)
	assert.Equal(t, RendererSoftware, cfg.Renderer)
	assert.Equal(t, "x.spv", cfg.Shader)
	assert.Equal(t, "/opt/bin/glslc", cfg.Glslc)
}

func TestValidationValues(t *testing.T) {
	for val, want := range map[string]bool{"0": false, "false": false, "FALSE": false, "1": true, "yes": true} {
		cfg, err := load(env(map[string]string{"VK_VALIDATION": val}))
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Validation, val)
	}
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vkplayground.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
validation = false
output = "fractal.bmp"
renderer = "software"
`), 0o644))

	cfg, err := load(env(map[string]string{"VKPLAYGROUND_CONFIG": path}))
	require.NoError(t, err)
	assert.False(t, cfg.Validation)
	assert.Equal(t, "fractal.bmp", cfg.Output)
	assert.Equal(t, RendererSoftware, cfg.Renderer)
	assert.Equal(t, "glslc", cfg.Glslc)

	cfg, err = load(env(map[string]string{"VKPLAYGROUND_CONFIG": path, "MANDELBROT_OUTPUT": "a.png"}))
	require.NoError(t, err)
	assert.Equal(t, "a.png", cfg.Output)
}

func TestLoadErrors(t *testing.T) {
	_, err := load(env(map[string]string{"MANDELBROT_RENDERER": "opengl"}))
	assert.Error(t, err)

	_, err = load(env(map[string]string{"VKPLAYGROUND_CONFIG": filepath.Join(t.TempDir(), "missing.toml")}))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("output = ["), 0o644))
	_, err = load(env(map[string]string{"VKPLAYGROUND_CONFIG": path}))
	assert.Error(t, err)
}

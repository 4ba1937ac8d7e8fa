// Package config resolves the playground settings: built-in defaults, an
// optional TOML file named by VKPLAYGROUND_CONFIG, then environment overrides.
package config

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	RendererGPU      = "gpu"
	RendererSoftware = "software"
)

type Config struct {
	// Validation enables the Khronos validation layer when it is installed.
	Validation bool `toml:"validation"`

	// Output is where the Mandelbrot programs write their image. The file
	// extension picks the encoding.
	Output string `toml:"output"`

	// Renderer is "gpu" or "software".
	Renderer string `toml:"renderer"`

	// Shader is the precompiled SPIR-V used by mandelbrot-spv.
	Shader string `toml:"shader"`

	// Glslc is the compiler used for embedded GLSL sources.
	Glslc string `toml:"glslc"`
}

func Default() Config {
	return Config{
		Validation: true,
		Output:     "image.png",
		Renderer:   RendererGPU,
		Shader:     "shaders/mandelbrot.spv",
		Glslc:      "glslc",
	}
}

// Load resolves the configuration from the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv("VKPLAYGROUND_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if val := getenv("VK_VALIDATION"); val != "" {
		cfg.Validation = parseBool(val)
	}
	if val := getenv("MANDELBROT_OUTPUT"); val != "" {
		cfg.Output = val
	}
	if val := getenv("MANDELBROT_RENDERER"); val != "" {
		cfg.Renderer = strings.ToLower(val)
	}
	if val := getenv("MANDELBROT_SHADER"); val != "" {
		cfg.Shader = val
	}
	if val := getenv("GLSLC"); val != "" {
		cfg.Glslc = val
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Renderer {
	case RendererGPU, RendererSoftware:
	default:
		return errors.Errorf("unknown renderer %q", c.Renderer)
	}
	if c.Output == "" {
		return errors.New("empty output path")
	}
	return nil
}

func parseBool(val string) bool {
	switch val {
	case "0", "false", "False", "FALSE":
		return false
	default:
		return true
	}
}

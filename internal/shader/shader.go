// Package shader holds the GLSL programs used by the playground and turns
// them into SPIR-V, either at startup through glslc or from a precompiled
// file on disk.
package shader

//go:generate glslc glsl/mandelbrot.comp -o ../../shaders/mandelbrot.spv

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/binary"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Magic is the first word of every SPIR-V module.
const Magic = 0x07230203

var (
	ErrInvalidSPIRV = errors.New("invalid spir-v")
	ErrCompile      = errors.New("shader compilation failed")
)

var (
	//go:embed glsl/mandelbrot.comp
	MandelbrotCompute string

	//go:embed glsl/triangle.vert
	TriangleVertex string

	//go:embed glsl/triangle.frag
	TriangleFragment string
)

// Stage names a pipeline stage the way glslc spells it.
type Stage string

const (
	Compute  Stage = "compute"
	Vertex   Stage = "vertex"
	Fragment Stage = "fragment"
)

// Compiler runs an external GLSL compiler.
type Compiler struct {
	// Path is the glslc binary; empty means "glslc" from PATH.
	Path string
}

func (c Compiler) path() string {
	if c.Path == "" {
		return "glslc"
	}
	return c.Path
}

// Compile feeds source to glslc on stdin and returns the SPIR-V it writes
// to stdout. The compiler's diagnostics are part of the returned error.
func (c Compiler) Compile(ctx context.Context, stage Stage, source string) ([]uint32, error) {
	cmd := exec.CommandContext(ctx, c.path(), "-fshader-stage="+string(stage), "-o", "-", "-")
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.Wrapf(ErrCompile, "%s shader: %s", stage, msg)
	}
	return Words(stdout.Bytes())
}

// Load reads a precompiled SPIR-V module.
func Load(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	words, err := Words(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return words, nil
}

// Words decodes little-endian SPIR-V bytes into 32-bit words.
func Words(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "length %d is not a positive multiple of 4", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if words[0] != Magic {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "bad magic 0x%08x", words[0])
	}
	return words, nil
}

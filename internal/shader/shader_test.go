package shader

import (
	"context"
	"encoding/binary"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirv(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func TestWords(t *testing.T) {
	words, err := Words(spirv(Magic, 0x00010000, 7, 42))
	require.NoError(t, err)
	assert.Equal(t, []uint32{Magic, 0x00010000, 7, 42}, words)
}

func TestWordsRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unaligned", []byte{0x03, 0x02, 0x23, 0x07, 0x00}},
		{"bad magic", spirv(0xdeadbeef, 1)},
		{"big endian", []byte{0x07, 0x23, 0x02, 0x03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Words(tt.data)
			assert.ErrorIs(t, err, ErrInvalidSPIRV)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.spv")
	require.NoError(t, os.WriteFile(path, spirv(Magic, 1, 2), 0o644))

	words, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, words, 3)

	_, err = Load(filepath.Join(dir, "missing.spv"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.spv")
	require.NoError(t, os.WriteFile(bad, []byte("#version 450\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidSPIRV)
}

func TestEmbeddedSources(t *testing.T) {
	for _, src := range []string{MandelbrotCompute, TriangleVertex, TriangleFragment} {
		assert.Contains(t, src, "#version 450")
		assert.Contains(t, src, "void main()")
	}
	assert.Contains(t, MandelbrotCompute, "local_size_x = 8")
}

func TestCompileMissingCompiler(t *testing.T) {
	c := Compiler{Path: filepath.Join(t.TempDir(), "no-such-glslc")}
	_, err := c.Compile(context.Background(), Compute, MandelbrotCompute)
	assert.ErrorIs(t, err, ErrCompile)
}

func TestCompile(t *testing.T) {
	if _, err := exec.LookPath("glslc"); err != nil {
		t.Skip("glslc not installed")
	}
	c := Compiler{}
	ctx := context.Background()

	for _, tt := range []struct {
		stage Stage
		src   string
	}{
		{Compute, MandelbrotCompute},
		{Vertex, TriangleVertex},
		{Fragment, TriangleFragment},
	} {
		words, err := c.Compile(ctx, tt.stage, tt.src)
		require.NoError(t, err, tt.stage)
		assert.Equal(t, uint32(Magic), words[0])
	}

	_, err := c.Compile(ctx, Compute, "#version 450\nvoid main() { broken }\n")
	assert.ErrorIs(t, err, ErrCompile)
}

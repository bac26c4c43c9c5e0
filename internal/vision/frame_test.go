package vision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate-controller/internal/domain/gate"
)

func TestFrameCrop(t *testing.T) {
	t.Parallel()

	// 4x3 frame with pixel value = index.
	f := &Frame{
		Pixels: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		Width:  4,
		Height: 3,
	}

	crop, w, h := f.Crop(gate.Region{X1: 1, Y1: 0, X2: 3, Y2: 2})
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, []byte{1, 2, 5, 6}, crop)
}

func TestFrameCrop_EmptyAfterClamp(t *testing.T) {
	t.Parallel()

	f := &Frame{Pixels: make([]byte, 16), Width: 4, Height: 4}

	crop, w, h := f.Crop(gate.Region{X1: 10, Y1: 10, X2: 20, Y2: 20})
	assert.Nil(t, crop)
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func writePGM(t *testing.T, dir, name string, w, h int) string {
	t.Helper()

	pixels := make([]byte, w*h)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	data := append([]byte(fmt.Sprintf("P5\n%d %d\n255\n", w, h)), pixels...)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDecodePGM(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writePGM(t, dir, "frame.pgm", 6, 4)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	f, err := decodePGM(data)
	require.NoError(t, err)
	assert.Equal(t, 6, f.Width)
	assert.Equal(t, 4, f.Height)
	assert.Len(t, f.Pixels, 24)
	assert.Equal(t, byte(0), f.Pixels[0])
	assert.Equal(t, byte(23), f.Pixels[23])
}

func TestDecodePGM_Rejects(t *testing.T) {
	t.Parallel()

	_, err := decodePGM([]byte("P6\n2 2\n255\n0000"))
	assert.Error(t, err)

	_, err = decodePGM([]byte("P5\n4 4\n255\nxx"))
	assert.Error(t, err, "truncated pixel data")
}

func TestDirSource_ReplaysInOrderThenEnds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePGM(t, dir, "frame_002.pgm", 2, 2)
	writePGM(t, dir, "frame_001.pgm", 3, 3)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	src, err := NewDirSource(dir)
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Width, "lexical order: frame_001 first")

	f, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Width)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestDirSource_EmptyDirFails(t *testing.T) {
	t.Parallel()

	_, err := NewDirSource(t.TempDir())
	assert.Error(t, err)
}

func TestDirSource_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePGM(t, dir, "frame.pgm", 2, 2)

	src, err := NewDirSource(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

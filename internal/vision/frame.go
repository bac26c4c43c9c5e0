package vision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gate-controller/internal/domain/gate"
)

// ErrEndOfStream signals that the frame source has no more frames. The
// session ends without a grant when it is returned.
var ErrEndOfStream = errors.New("end of stream")

// Frame is one captured image as a single grayscale byte plane.
type Frame struct {
	Pixels []byte
	Width  int
	Height int
}

// Crop copies the sub-image covered by the region, clamping coordinates to
// the frame bounds. An empty region after clamping yields a nil crop.
func (f *Frame) Crop(r gate.Region) ([]byte, int, int) {
	x1, y1, x2, y2 := clamp(r.X1, 0, f.Width), clamp(r.Y1, 0, f.Height), clamp(r.X2, 0, f.Width), clamp(r.Y2, 0, f.Height)
	if x2 <= x1 || y2 <= y1 {
		return nil, 0, 0
	}
	w, h := x2-x1, y2-y1
	out := make([]byte, 0, w*h)
	for y := y1; y < y2; y++ {
		row := y * f.Width
		out = append(out, f.Pixels[row+x1:row+x2]...)
	}
	return out, w, h
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FrameSource is the pull-based, ordered capture boundary.
type FrameSource interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// DirSource replays PGM (P5) frames from a directory in lexical order.
// Used for demos and tests in place of a live camera.
type DirSource struct {
	paths []string
	pos   int
}

func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("open frame dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pgm" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("frame dir %s contains no .pgm frames", dir)
	}
	return &DirSource{paths: paths}, nil
}

func (s *DirSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.paths) {
		return nil, ErrEndOfStream
	}
	data, err := os.ReadFile(s.paths[s.pos])
	if err != nil {
		return nil, fmt.Errorf("read frame %s: %w", s.paths[s.pos], err)
	}
	s.pos++
	return decodePGM(data)
}

func (s *DirSource) Close() error { return nil }

// decodePGM parses a binary PGM (P5) image with a 255 maxval.
func decodePGM(data []byte) (*Frame, error) {
	var w, h, maxval int
	n, err := fmt.Sscanf(string(header(data)), "P5 %d %d %d", &w, &h, &maxval)
	if err != nil || n != 3 {
		return nil, errors.New("not a P5 PGM frame")
	}
	if maxval != 255 || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("unsupported PGM geometry %dx%d maxval %d", w, h, maxval)
	}
	if len(data) < w*h {
		return nil, errors.New("truncated PGM frame")
	}
	pixels := data[len(data)-w*h:]
	return &Frame{Pixels: pixels, Width: w, Height: h}, nil
}

// header returns the whitespace-normalized PGM header bytes.
func header(data []byte) []byte {
	out := make([]byte, 0, 32)
	fields := 0
	for i := 0; i < len(data) && fields < 4; i++ {
		c := data[i]
		if c == '\n' || c == '\r' || c == '\t' || c == ' ' {
			if len(out) > 0 && out[len(out)-1] != ' ' {
				out = append(out, ' ')
				fields++
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gate-controller/internal/domain/gate"
)

type stubDetector struct {
	detections []Detection
	err        error
}

func (d stubDetector) Infer(ctx context.Context, frame *Frame) ([]Detection, error) {
	return d.detections, d.err
}

func testFrame(w, h int) *Frame {
	pixels := make([]byte, w*h)
	for i := range pixels {
		pixels[i] = byte(i % 251)
	}
	return &Frame{Pixels: pixels, Width: w, Height: h}
}

// Labels: 0 = car, 1 = license_plate.
var testLabels = LabelTable{"car", "license_plate"}

func TestAdapter_HighestConfidenceWins(t *testing.T) {
	t.Parallel()

	detector := stubDetector{detections: []Detection{
		{ClassIndex: 1, Confidence: 0.40, Region: gate.Region{X1: 0, Y1: 0, X2: 4, Y2: 4}},
		{ClassIndex: 1, Confidence: 0.95, Region: gate.Region{X1: 2, Y1: 2, X2: 8, Y2: 6}},
		{ClassIndex: 1, Confidence: 0.60, Region: gate.Region{X1: 1, Y1: 1, X2: 5, Y2: 5}},
	}}
	a := NewAdapter(detector, testLabels, "license_plate", 0)

	c, err := a.Detect(context.Background(), testFrame(16, 16))
	require.NoError(t, err)
	require.NotNil(t, c)

	// Not the last seen: the most confident region is surfaced.
	assert.Equal(t, 0.95, c.Confidence)
	assert.Equal(t, gate.Region{X1: 2, Y1: 2, X2: 8, Y2: 6}, c.Region)
	assert.Equal(t, 6, c.CropWidth)
	assert.Equal(t, 4, c.CropHeight)
	assert.Len(t, c.Crop, 24)
}

func TestAdapter_TiesKeepFirstSeen(t *testing.T) {
	t.Parallel()

	detector := stubDetector{detections: []Detection{
		{ClassIndex: 1, Confidence: 0.80, Region: gate.Region{X1: 0, Y1: 0, X2: 4, Y2: 4}},
		{ClassIndex: 1, Confidence: 0.80, Region: gate.Region{X1: 8, Y1: 8, X2: 12, Y2: 12}},
	}}
	a := NewAdapter(detector, testLabels, "license_plate", 0)

	c, err := a.Detect(context.Background(), testFrame(16, 16))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, gate.Region{X1: 0, Y1: 0, X2: 4, Y2: 4}, c.Region)
}

func TestAdapter_IgnoresOtherClasses(t *testing.T) {
	t.Parallel()

	detector := stubDetector{detections: []Detection{
		{ClassIndex: 0, Confidence: 0.99, Region: gate.Region{X1: 0, Y1: 0, X2: 10, Y2: 10}},
	}}
	a := NewAdapter(detector, testLabels, "license_plate", 0)

	c, err := a.Detect(context.Background(), testFrame(16, 16))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestAdapter_MinConfidenceFilter(t *testing.T) {
	t.Parallel()

	detector := stubDetector{detections: []Detection{
		{ClassIndex: 1, Confidence: 0.20, Region: gate.Region{X1: 0, Y1: 0, X2: 4, Y2: 4}},
	}}
	a := NewAdapter(detector, testLabels, "license_plate", 0.5)

	c, err := a.Detect(context.Background(), testFrame(16, 16))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestAdapter_RegionClampedToFrame(t *testing.T) {
	t.Parallel()

	detector := stubDetector{detections: []Detection{
		{ClassIndex: 1, Confidence: 0.9, Region: gate.Region{X1: -5, Y1: -5, X2: 100, Y2: 100}},
	}}
	a := NewAdapter(detector, testLabels, "license_plate", 0)

	c, err := a.Detect(context.Background(), testFrame(8, 8))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 8, c.CropWidth)
	assert.Equal(t, 8, c.CropHeight)
	assert.Len(t, c.Crop, 64)
}

func TestAdapter_DegenerateRegionYieldsNoCandidate(t *testing.T) {
	t.Parallel()

	detector := stubDetector{detections: []Detection{
		{ClassIndex: 1, Confidence: 0.9, Region: gate.Region{X1: 5, Y1: 5, X2: 5, Y2: 9}},
	}}
	a := NewAdapter(detector, testLabels, "license_plate", 0)

	c, err := a.Detect(context.Background(), testFrame(8, 8))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestLabelTable_Fallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "car", testLabels.Label(0))
	assert.Equal(t, "license_plate", testLabels.Label(1))
	assert.Equal(t, "7", testLabels.Label(7))
	assert.Equal(t, "-1", testLabels.Label(-1))
}

package vision

import (
	"context"
	"strconv"

	"gate-controller/internal/domain/gate"
)

// Detection is one raw detector hit before adapter filtering.
type Detection struct {
	ClassIndex int
	Confidence float64
	Region     gate.Region
}

// Detector is the external object-detection capability. Calls may block for
// the duration of a model inference.
type Detector interface {
	Infer(ctx context.Context, frame *Frame) ([]Detection, error)
}

// Recognizer is the external text-recognition capability. It returns text
// fragments which callers concatenate in the returned order.
type Recognizer interface {
	ReadText(ctx context.Context, crop []byte, width, height int) ([]string, error)
}

// Labels resolves a detector class index to a label. Implementations must
// always return a label; unknown indices fall back to the stringified index.
type Labels interface {
	Label(classIndex int) string
}

// LabelTable is a Labels backed by the detector's ordered class list.
type LabelTable []string

func (t LabelTable) Label(classIndex int) string {
	if classIndex >= 0 && classIndex < len(t) {
		return t[classIndex]
	}
	return strconv.Itoa(classIndex)
}

// Adapter filters raw detector output down to at most one plate candidate
// per frame. Among detections of the tracked label, the highest confidence
// wins; ties keep the first seen, so the result is deterministic.
type Adapter struct {
	detector      Detector
	labels        Labels
	plateLabel    string
	minConfidence float64
}

func NewAdapter(detector Detector, labels Labels, plateLabel string, minConfidence float64) *Adapter {
	return &Adapter{
		detector:      detector,
		labels:        labels,
		plateLabel:    plateLabel,
		minConfidence: minConfidence,
	}
}

// Detect runs the detector on the frame and surfaces the winning plate
// candidate with its crop, or nil when no tracked region is present.
func (a *Adapter) Detect(ctx context.Context, frame *Frame) (*gate.PlateCandidate, error) {
	detections, err := a.detector.Infer(ctx, frame)
	if err != nil {
		return nil, err
	}

	var best *Detection
	for i := range detections {
		d := &detections[i]
		if a.labels.Label(d.ClassIndex) != a.plateLabel {
			continue
		}
		if d.Confidence < a.minConfidence {
			continue
		}
		if best == nil || d.Confidence > best.Confidence {
			best = d
		}
	}
	if best == nil {
		return nil, nil
	}

	crop, w, h := frame.Crop(best.Region)
	if crop == nil {
		return nil, nil
	}
	return &gate.PlateCandidate{
		Region:     best.Region,
		Confidence: best.Confidence,
		Crop:       crop,
		CropWidth:  w,
		CropHeight: h,
	}, nil
}

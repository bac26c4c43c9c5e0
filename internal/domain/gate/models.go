package gate

import (
	"time"
)

// Outcome is the result of a completed access decision.
type Outcome string

const (
	OutcomeGranted Outcome = "GRANTED"
	OutcomeDenied  Outcome = "DENIED"
)

// Region is a frame-relative bounding box.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// PlateCandidate is a single per-frame plate observation. It lives for one
// decision cycle and is never persisted.
type PlateCandidate struct {
	Region     Region
	Confidence float64
	Crop       []byte
	CropWidth  int
	CropHeight int
}

// AuthorizationRecord maps a canonical plate to its holder.
type AuthorizationRecord struct {
	Plate      string `json:"plate"`
	HolderName string `json:"holder_name"`
}

// DecisionDetail carries the observation context of a single decision,
// stored alongside the audit row.
type DecisionDetail struct {
	SessionID  string  `json:"session_id"`
	FrameIndex int     `json:"frame_index"`
	Confidence float64 `json:"confidence"`
	Region     Region  `json:"region"`
	HolderName string  `json:"holder_name,omitempty"`
}

// AccessLogEntry is one append-only audit row: every recognized plate is
// logged exactly once per recognized frame, granted or not.
type AccessLogEntry struct {
	Plate    string
	Outcome  Outcome
	LoggedAt time.Time
	Detail   DecisionDetail
}

// SessionState is the per-session mutable state of the decision pipeline.
// Granted is sticky: once set it is never cleared within the session.
type SessionState struct {
	Granted           bool
	FrameCount        int
	LastEligibleFrame int
}

// FrameResult is what one decision cycle hands back to the session
// controller for rendering and termination checks.
type FrameResult struct {
	Candidate  *PlateCandidate
	Plate      string
	Outcome    Outcome
	HolderName string
}

// Decided reports whether this frame completed a decision cycle.
func (r FrameResult) Decided() bool {
	return r.Outcome != ""
}

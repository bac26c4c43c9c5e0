package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gate-controller/internal/domain/gate"
	"gate-controller/internal/utils"
	"gate-controller/internal/vision"
)

// AuthorizationStore is the slice of the store the pipeline needs: a pure
// whitelist read and an append-only audit write.
type AuthorizationStore interface {
	Lookup(ctx context.Context, plate string) (*gate.AuthorizationRecord, error)
	Append(ctx context.Context, entry gate.AccessLogEntry) error
}

// CandidateDetector surfaces at most one plate candidate per frame.
type CandidateDetector interface {
	Detect(ctx context.Context, frame *vision.Frame) (*gate.PlateCandidate, error)
}

// Pipeline turns a stream of per-frame observations into access decisions.
// One instance per gate session; instances share nothing but the store.
type Pipeline struct {
	sessionID  string
	detector   CandidateDetector
	recognizer vision.Recognizer
	store      AuthorizationStore
	throttle   *Throttler
	// inferTimeout bounds each detector/recognizer call; 0 disables.
	inferTimeout time.Duration
	log          zerolog.Logger
}

func New(sessionID string, detector CandidateDetector, recognizer vision.Recognizer, store AuthorizationStore, throttle *Throttler, inferTimeout time.Duration, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		sessionID:    sessionID,
		detector:     detector,
		recognizer:   recognizer,
		store:        store,
		throttle:     throttle,
		inferTimeout: inferTimeout,
		log:          log.With().Str("session_id", sessionID).Logger(),
	}
}

// ProcessFrame runs one decision cycle. Every completed decision appends
// exactly one audit row; a grant sets state.Granted and is sticky for the
// rest of the session. Detection or recognition failures abandon the cycle
// for this frame only, and a failed authorization lookup is treated as
// DENIED, never as a grant.
func (p *Pipeline) ProcessFrame(ctx context.Context, frameIndex int, frame *vision.Frame, state *gate.SessionState) gate.FrameResult {
	state.FrameCount++

	candidate, err := p.detect(ctx, frame)
	if err != nil {
		p.log.Error().Err(err).Int("frame", frameIndex).Msg("detection failed, skipping frame")
		return gate.FrameResult{}
	}
	if candidate == nil {
		return gate.FrameResult{}
	}

	if !p.throttle.Eligible(frameIndex) {
		// Visual feedback still gets the box; no recognition work.
		return gate.FrameResult{Candidate: candidate}
	}
	state.LastEligibleFrame = frameIndex

	raw, err := p.readText(ctx, candidate)
	if err != nil {
		p.log.Error().Err(err).Int("frame", frameIndex).Msg("recognition failed, skipping frame")
		return gate.FrameResult{Candidate: candidate}
	}

	plate := utils.NormalizePlate(raw)
	if plate == "" {
		// Unreadable crop: expected, silent, no audit row.
		return gate.FrameResult{Candidate: candidate}
	}

	record, err := p.store.Lookup(ctx, plate)
	if err != nil {
		// Fail closed: an unreachable store never opens the gate.
		p.log.Error().Err(err).Str("plate", plate).Msg("authorization lookup failed, denying")
		record = nil
	}

	outcome := gate.OutcomeDenied
	holder := ""
	if record != nil {
		outcome = gate.OutcomeGranted
		holder = record.HolderName
	}

	entry := gate.AccessLogEntry{
		Plate:    plate,
		Outcome:  outcome,
		LoggedAt: time.Now(),
		Detail: gate.DecisionDetail{
			SessionID:  p.sessionID,
			FrameIndex: frameIndex,
			Confidence: candidate.Confidence,
			Region:     candidate.Region,
			HolderName: holder,
		},
	}
	if err := p.store.Append(ctx, entry); err != nil {
		// Audit is fail-open: the decision already made stands.
		p.log.Warn().Err(err).Str("plate", plate).Msg("audit append failed")
	}

	if outcome == gate.OutcomeGranted {
		state.Granted = true
		p.log.Info().
			Str("plate", plate).
			Str("holder", holder).
			Int("frame", frameIndex).
			Float64("confidence", candidate.Confidence).
			Msg("access granted")
	} else {
		p.log.Info().
			Str("plate", plate).
			Int("frame", frameIndex).
			Float64("confidence", candidate.Confidence).
			Msg("access denied")
	}

	return gate.FrameResult{
		Candidate:  candidate,
		Plate:      plate,
		Outcome:    outcome,
		HolderName: holder,
	}
}

func (p *Pipeline) detect(ctx context.Context, frame *vision.Frame) (*gate.PlateCandidate, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	return p.detector.Detect(ctx, frame)
}

func (p *Pipeline) readText(ctx context.Context, c *gate.PlateCandidate) (string, error) {
	ctx, cancel := p.bound(ctx)
	defer cancel()
	fragments, err := p.recognizer.ReadText(ctx, c.Crop, c.CropWidth, c.CropHeight)
	if err != nil {
		return "", err
	}
	return strings.Join(fragments, ""), nil
}

func (p *Pipeline) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.inferTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.inferTimeout)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gate-controller/internal/domain/gate"
	"gate-controller/internal/vision"
)

// SessionResult is how a gate session ended.
type SessionResult string

const (
	// ResultGranted means the pipeline reached its terminal granted state.
	ResultGranted SessionResult = "granted"
	// ResultExhausted means the frame source ended or failed before a grant.
	ResultExhausted SessionResult = "exhausted"
	// ResultStopped means a stop signal took effect at a frame boundary.
	ResultStopped SessionResult = "stopped"
)

// Renderer receives every frame's result for visual feedback. Rendering runs
// on all frames, including throttled ones.
type Renderer interface {
	Render(frame *vision.Frame, res gate.FrameResult)
}

// NopRenderer discards all frames.
type NopRenderer struct{}

func (NopRenderer) Render(*vision.Frame, gate.FrameResult) {}

// LogRenderer writes one line per completed decision, the way an operator
// console would show it.
type LogRenderer struct {
	Log zerolog.Logger
}

func (r LogRenderer) Render(_ *vision.Frame, res gate.FrameResult) {
	if !res.Decided() {
		return
	}
	holder := res.HolderName
	if holder == "" {
		holder = "-"
	}
	r.Log.Info().
		Str("plate", res.Plate).
		Str("outcome", string(res.Outcome)).
		Str("holder", holder).
		Msg("decision")
}

// Controller owns the frame loop and the session state lifecycle. Frame
// indices are 0-based, monotonically increasing, with no gaps, so the
// throttle schedule is well defined.
type Controller struct {
	source   vision.FrameSource
	pipeline *Pipeline
	renderer Renderer
	// grace keeps the confirmation visible after a grant before the
	// session ends.
	grace time.Duration
	log   zerolog.Logger
}

func NewController(source vision.FrameSource, p *Pipeline, renderer Renderer, grace time.Duration, log zerolog.Logger) *Controller {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Controller{
		source:   source,
		pipeline: p,
		renderer: renderer,
		grace:    grace,
		log:      log,
	}
}

// Run pulls frames until the source ends, the context is cancelled, or the
// pipeline grants access. The session state lives and dies inside this call.
func (c *Controller) Run(ctx context.Context) (SessionResult, error) {
	defer c.source.Close()

	state := &gate.SessionState{}

	for frameIndex := 0; ; frameIndex++ {
		if ctx.Err() != nil {
			c.log.Info().Int("frames", state.FrameCount).Msg("session stopped")
			return ResultStopped, nil
		}

		frame, err := c.source.Next(ctx)
		if errors.Is(err, vision.ErrEndOfStream) {
			c.log.Info().Int("frames", state.FrameCount).Msg("frame source exhausted")
			return ResultExhausted, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ResultStopped, nil
		}
		if err != nil {
			return ResultExhausted, fmt.Errorf("frame source failed: %w", err)
		}

		res := c.pipeline.ProcessFrame(ctx, frameIndex, frame, state)
		c.renderer.Render(frame, res)

		if state.Granted {
			c.holdConfirmation(ctx)
			c.log.Info().Str("plate", res.Plate).Int("frames", state.FrameCount).Msg("session ended with grant")
			return ResultGranted, nil
		}
	}
}

// holdConfirmation surfaces the granted state to observers for the grace
// period, then returns so the session can end.
func (c *Controller) holdConfirmation(ctx context.Context) {
	if c.grace <= 0 {
		return
	}
	t := time.NewTimer(c.grace)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

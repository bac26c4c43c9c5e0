package pipeline

// Throttler bounds the rate of text-recognition work. Detection and
// rendering run on every frame; recognition only on eligible ones.
type Throttler struct {
	interval int
}

// NewThrottler clamps the interval to at least 1 (every frame eligible).
func NewThrottler(interval int) *Throttler {
	if interval < 1 {
		interval = 1
	}
	return &Throttler{interval: interval}
}

// Eligible reports whether the frame may trigger recognition. Frame indices
// are 0-based, so with interval 3 the eligible set is {0, 3, 6, ...}.
func (t *Throttler) Eligible(frameIndex int) bool {
	return frameIndex%t.interval == 0
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottler_IntervalThree(t *testing.T) {
	t.Parallel()

	th := NewThrottler(3)

	var eligible []int
	for i := 0; i < 10; i++ {
		if th.Eligible(i) {
			eligible = append(eligible, i)
		}
	}
	assert.Equal(t, []int{0, 3, 6, 9}, eligible)
}

func TestThrottler_IntervalOneAllowsEveryFrame(t *testing.T) {
	t.Parallel()

	th := NewThrottler(1)
	for i := 0; i < 5; i++ {
		assert.True(t, th.Eligible(i), "frame %d", i)
	}
}

func TestThrottler_ClampsInvalidInterval(t *testing.T) {
	t.Parallel()

	for _, interval := range []int{0, -3} {
		th := NewThrottler(interval)
		for i := 0; i < 5; i++ {
			assert.True(t, th.Eligible(i), "interval %d frame %d", interval, i)
		}
	}
}

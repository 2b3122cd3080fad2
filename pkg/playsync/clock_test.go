package playsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTime(t *testing.T) {
	now := time.Now()

	estimated := EstimateTime(50, now.Add(-time.Second), 0, now)
	assert.InDelta(t, 51, estimated, 0.001)

	estimated = EstimateTime(50, now.Add(-time.Second), 200*time.Millisecond, now)
	assert.InDelta(t, 51.2, estimated, 0.001)

	estimated = EstimateTime(50, now, 0, now)
	assert.InDelta(t, 50, estimated, 0.001)
}

func TestDrift(t *testing.T) {
	assert.Equal(t, 2.0, Drift(12, 10), "local ahead must be positive")
	assert.Equal(t, -2.0, Drift(10, 12), "local behind must be negative")
	assert.Equal(t, 0.0, Drift(10, 10))
}

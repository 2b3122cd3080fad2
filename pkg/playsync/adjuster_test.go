package playsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdjusterSeeksOnStatusMismatch(t *testing.T) {
	a := NewAdjuster(AdjusterConfig{})
	now := time.Now()

	local := State{Status: StatusPaused, Time: 5}
	leader := State{Status: StatusPlaying, Time: 50, Rate: 1, CapturedAt: now.Add(-time.Second)}

	action := a.Decide(local, leader, now)
	assert.Equal(t, ActionSeek, action.Kind)
	assert.InDelta(t, 51, action.SeekTo, 0.05, "must seek to estimated leader time")
	assert.NotEmpty(t, action.Reason)
}

func TestAdjusterLeaderPaused(t *testing.T) {
	a := NewAdjuster(AdjusterConfig{})
	now := time.Now()

	local := State{Status: StatusPaused, Time: 30.5}
	leader := State{Status: StatusPaused, Time: 30, CapturedAt: now.Add(-5 * time.Second)}

	action := a.Decide(local, leader, now)
	assert.Equal(t, ActionSeek, action.Kind)
	assert.Equal(t, 30.0, action.SeekTo, "paused leader time is used as-is, no estimation")

	local.Time = 30.05
	action = a.Decide(local, leader, now)
	assert.Equal(t, ActionNone, action.Kind, "0.05s offset is inside the paused tolerance")
}

func TestAdjusterLargeDrift(t *testing.T) {
	a := NewAdjuster(AdjusterConfig{})
	now := time.Now()

	local := State{Status: StatusPlaying, Time: 10}
	leader := State{Status: StatusPlaying, Time: 20, Rate: 1, CapturedAt: now}

	action := a.Decide(local, leader, now)
	assert.Equal(t, ActionSeek, action.Kind)
	assert.InDelta(t, 20, action.SeekTo, 0.05)
}

func TestAdjusterModerateDriftSeeks(t *testing.T) {
	a := NewAdjuster(AdjusterConfig{})
	now := time.Now()

	local := State{Status: StatusPlaying, Time: 10}
	leader := State{Status: StatusPlaying, Time: 11, Rate: 1, CapturedAt: now}

	action := a.Decide(local, leader, now)
	assert.Equal(t, ActionSeek, action.Kind)
}

func TestAdjusterNoopInsideTolerance(t *testing.T) {
	a := NewAdjuster(AdjusterConfig{})
	now := time.Now()

	local := State{Status: StatusPlaying, Time: 10.3}
	leader := State{Status: StatusPlaying, Time: 10, Rate: 1, CapturedAt: now}

	action := a.Decide(local, leader, now)
	assert.Equal(t, ActionNone, action.Kind, "0.3s drift is inside the soft threshold")
}

func TestAdjusterCustomThresholds(t *testing.T) {
	a := NewAdjuster(AdjusterConfig{SoftThreshold: 5, HardThreshold: 10})
	now := time.Now()

	local := State{Status: StatusPlaying, Time: 10}
	leader := State{Status: StatusPlaying, Time: 13, Rate: 1, CapturedAt: now}

	action := a.Decide(local, leader, now)
	assert.Equal(t, ActionNone, action.Kind, "3s drift is inside a widened soft threshold")
}

func TestAdjusterLeaderBuffering(t *testing.T) {
	a := NewAdjuster(AdjusterConfig{})
	now := time.Now()

	local := State{Status: StatusBuffering, Time: 10}
	leader := State{Status: StatusBuffering, Time: 40, CapturedAt: now}

	action := a.Decide(local, leader, now)
	assert.Equal(t, ActionNone, action.Kind, "no correction while both buffer")
}

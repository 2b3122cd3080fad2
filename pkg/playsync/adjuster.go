package playsync

import (
	"fmt"
	"math"
	"time"
)

const (
	// DefaultPausedTolerance is tight because no drift accumulates
	// while the leader is stopped.
	DefaultPausedTolerance = 0.1
	DefaultSoftThreshold   = 0.5
	DefaultHardThreshold   = 2.0
)

type ActionKind string

const (
	ActionNone    ActionKind = "nothing"
	ActionSeek    ActionKind = "seek"
	ActionSetRate ActionKind = "set_rate"
)

// Action is the single correction an Adjuster decides on: a hard seek,
// a rate change, or nothing. Reason is for observability only.
type Action struct {
	Kind   ActionKind
	SeekTo float64
	Rate   float64
	Reason string
}

type AdjusterConfig struct {
	PausedTolerance float64
	SoftThreshold   float64
	HardThreshold   float64
	Latency         time.Duration
}

// Adjuster reconciles a follower's local playback state against the
// last received leader state. Status transitions (play/pause) are
// applied by the caller, the adjuster only corrects position.
type Adjuster struct {
	cfg AdjusterConfig
}

func NewAdjuster(cfg AdjusterConfig) *Adjuster {
	if cfg.PausedTolerance <= 0 {
		cfg.PausedTolerance = DefaultPausedTolerance
	}
	if cfg.SoftThreshold <= 0 {
		cfg.SoftThreshold = DefaultSoftThreshold
	}
	if cfg.HardThreshold <= 0 {
		cfg.HardThreshold = DefaultHardThreshold
	}

	return &Adjuster{cfg: cfg}
}

// Decide returns the correction for local given the leader state as it
// was received at leader.CapturedAt. First match wins.
func (a Adjuster) Decide(local, leader State, now time.Time) Action {
	estimated := EstimateTime(leader.Time, leader.CapturedAt, a.cfg.Latency, now)

	if local.Status != leader.Status {
		// a paused leader's position does not advance while the sample
		// is in flight
		target := leader.Time
		if leader.Status == StatusPlaying {
			target = estimated
		}

		return Action{
			Kind:   ActionSeek,
			SeekTo: target,
			Reason: fmt.Sprintf("status mismatch: local %s, leader %s", local.Status, leader.Status),
		}
	}

	if leader.Status == StatusPaused {
		if math.Abs(local.Time-leader.Time) > a.cfg.PausedTolerance {
			return Action{
				Kind:   ActionSeek,
				SeekTo: leader.Time,
				Reason: fmt.Sprintf("paused offset %.2fs", local.Time-leader.Time),
			}
		}

		return Action{Kind: ActionNone, Reason: "paused within tolerance"}
	}

	if leader.Status == StatusPlaying {
		drift := Drift(local.Time, estimated)

		if math.Abs(drift) > a.cfg.HardThreshold {
			return Action{
				Kind:   ActionSeek,
				SeekTo: estimated,
				Reason: fmt.Sprintf("large drift %.2fs", drift),
			}
		}

		// No soft rate nudge yet, a moderate drift hard-seeks too.
		if math.Abs(drift) > a.cfg.SoftThreshold {
			return Action{
				Kind:   ActionSeek,
				SeekTo: estimated,
				Reason: fmt.Sprintf("moderate drift %.2fs", drift),
			}
		}

		return Action{Kind: ActionNone, Reason: fmt.Sprintf("drift %.2fs within tolerance", drift)}
	}

	return Action{Kind: ActionNone, Reason: "leader buffering"}
}

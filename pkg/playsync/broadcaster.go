package playsync

import (
	"math"
	"time"
)

const (
	DefaultHeartbeatInterval = 2000 * time.Millisecond
	DefaultSeekThreshold     = 0.5
)

// Broadcaster throttles the controller's outgoing player samples so
// followers get timely updates without flooding the channel. It is a
// pure decision component; sending is the caller's responsibility.
type Broadcaster struct {
	heartbeatInterval time.Duration
	seekThreshold     float64

	lastState       *State
	lastBroadcastAt time.Time
}

func NewBroadcaster(heartbeatInterval time.Duration) *Broadcaster {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}

	return &Broadcaster{
		heartbeatInterval: heartbeatInterval,
		seekThreshold:     DefaultSeekThreshold,
	}
}

// ShouldBroadcast reports whether current is worth sending and, when it
// is, records it as the last broadcast state. A sample is sent when it
// is the first one, when status or rate changed, when the reported time
// diverges from the expected one (an unannounced seek), or when the
// heartbeat interval elapsed with no discrete event.
func (b *Broadcaster) ShouldBroadcast(current State, at time.Time) bool {
	if b.lastState == nil {
		return b.record(current, at)
	}

	if current.Status != b.lastState.Status {
		return b.record(current, at)
	}

	if current.Rate != b.lastState.Rate {
		return b.record(current, at)
	}

	if b.lastState.Status == StatusPlaying {
		elapsed := at.Sub(b.lastBroadcastAt).Seconds()
		expected := b.lastState.Time + elapsed*b.lastState.Rate
		if math.Abs(expected-current.Time) > b.seekThreshold {
			return b.record(current, at)
		}
	}

	if at.Sub(b.lastBroadcastAt) > b.heartbeatInterval {
		return b.record(current, at)
	}

	return false
}

func (b *Broadcaster) record(current State, at time.Time) bool {
	state := current
	b.lastState = &state
	b.lastBroadcastAt = at

	return true
}

// Package playsync implements the playback reconciliation logic shared by
// clients of a watch-together room. The member holding control feeds its
// local player samples through a Broadcaster to decide which ones are worth
// sending; every other member feeds received leader states through an
// Adjuster to compute the correction for its own player. The server only
// relays PLAYER_STATE messages, it never interprets them.
package playsync

import "time"

type Status string

const (
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusBuffering Status = "buffering"
)

// State is a playback sample taken from a player against the sampler's
// own clock.
type State struct {
	Status     Status    `json:"status"`
	Time       float64   `json:"time"`
	Rate       float64   `json:"playback_rate"`
	CapturedAt time.Time `json:"captured_at"`
}

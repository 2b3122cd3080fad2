package playsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBroadcasterSuppressesIdenticalSamples(t *testing.T) {
	b := NewBroadcaster(2000 * time.Millisecond)
	at := time.Now()

	sample := State{Status: StatusPlaying, Time: 10, Rate: 1, CapturedAt: at}
	assert.True(t, b.ShouldBroadcast(sample, at), "first sample must broadcast")

	at = at.Add(100 * time.Millisecond)
	sample = State{Status: StatusPlaying, Time: 10.1, Rate: 1, CapturedAt: at}
	assert.False(t, b.ShouldBroadcast(sample, at), "sample on the expected timeline must be suppressed")
}

func TestBroadcasterStatusChange(t *testing.T) {
	b := NewBroadcaster(2000 * time.Millisecond)
	at := time.Now()

	assert.True(t, b.ShouldBroadcast(State{Status: StatusPlaying, Time: 10, Rate: 1}, at))

	at = at.Add(100 * time.Millisecond)
	assert.True(t, b.ShouldBroadcast(State{Status: StatusPaused, Time: 10.1, Rate: 1}, at), "status change must broadcast")
}

func TestBroadcasterRateChange(t *testing.T) {
	b := NewBroadcaster(2000 * time.Millisecond)
	at := time.Now()

	assert.True(t, b.ShouldBroadcast(State{Status: StatusPlaying, Time: 10, Rate: 1}, at))

	at = at.Add(100 * time.Millisecond)
	assert.True(t, b.ShouldBroadcast(State{Status: StatusPlaying, Time: 10.1, Rate: 1.5}, at), "rate change must broadcast")
}

func TestBroadcasterDetectsSeek(t *testing.T) {
	b := NewBroadcaster(2000 * time.Millisecond)
	at := time.Now()

	assert.True(t, b.ShouldBroadcast(State{Status: StatusPlaying, Time: 10, Rate: 1}, at))

	// expected time after 100ms is ~10.1, a report of 42 is a seek
	at = at.Add(100 * time.Millisecond)
	assert.True(t, b.ShouldBroadcast(State{Status: StatusPlaying, Time: 42, Rate: 1}, at), "unannounced seek must broadcast")
}

func TestBroadcasterHeartbeat(t *testing.T) {
	b := NewBroadcaster(2000 * time.Millisecond)
	at := time.Now()

	assert.True(t, b.ShouldBroadcast(State{Status: StatusPaused, Time: 10, Rate: 1}, at))

	at = at.Add(1900 * time.Millisecond)
	assert.False(t, b.ShouldBroadcast(State{Status: StatusPaused, Time: 10, Rate: 1}, at), "inside heartbeat interval")

	at = at.Add(200 * time.Millisecond)
	assert.True(t, b.ShouldBroadcast(State{Status: StatusPaused, Time: 10, Rate: 1}, at), "heartbeat interval crossed")
}

func TestBroadcasterSeekThresholdScalesWithRate(t *testing.T) {
	b := NewBroadcaster(2000 * time.Millisecond)
	at := time.Now()

	assert.True(t, b.ShouldBroadcast(State{Status: StatusPlaying, Time: 10, Rate: 2}, at))

	// at 2x the expected time after 1s is 12
	at = at.Add(time.Second)
	assert.False(t, b.ShouldBroadcast(State{Status: StatusPlaying, Time: 12.1, Rate: 2}, at))
}

package playsync

import "time"

// EstimateTime converts a remotely reported playback time into the
// estimated current time of the reporting player. The model assumes the
// reported time was accurate at receivedAt and has advanced linearly
// since; latency shifts the estimate for the one-way trip. Every sample
// is treated independently, there is no offset tracking across samples.
func EstimateTime(reported float64, receivedAt time.Time, latency time.Duration, now time.Time) float64 {
	return reported + now.Sub(receivedAt).Seconds() + latency.Seconds()
}

// Drift is the signed difference between a local playback time and a
// target one. Positive means local is ahead.
func Drift(local, target float64) float64 {
	return local - target
}

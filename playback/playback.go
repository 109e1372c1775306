// Package playback schedules synthesized speech chunks on a gapless
// output timeline and supports abrupt full-stop on interruption.
package playback

import "time"

// Handle refers to one scheduled buffer. Stop is safe to call at any
// time, including after the buffer already finished.
type Handle interface {
	Stop()
}

// Device is the narrow surface the scheduler needs from an output
// device: a playback clock and scheduled buffer starts. onEnded fires
// exactly once, on natural completion or forced stop.
type Device interface {
	Now() time.Duration
	Play(samples []int16, at time.Duration, onEnded func()) (Handle, error)
}

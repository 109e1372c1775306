package playback

import "math"

// Cue generates a short decaying sine tick, used as an audible marker
// when a session opens or closes.
func Cue(sampleRate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

// StartCue is the snappy tick played when the session opens.
func StartCue(sampleRate int) []int16 {
	return Cue(sampleRate, 1200, 0.2, 0.5, 60)
}

// EndCue is the lower tick played when the session closes.
func EndCue(sampleRate int) []int16 {
	return Cue(sampleRate, 900, 0.2, 0.5, 40)
}

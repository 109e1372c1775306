package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine is the real Device: a mixer whose Render method is pumped by
// the platform output stream. The sample cursor it advances on every
// render is the playback clock.
type Engine struct {
	sampleRate int

	mu     sync.Mutex
	cursor int64 // samples rendered since the stream opened
	voices map[uuid.UUID]*voice
}

type voice struct {
	samples []int16
	start   int64 // cursor position of the first sample
	onEnded func()
	once    sync.Once
	engine  *Engine
	id      uuid.UUID
}

func NewEngine(sampleRate int) *Engine {
	return &Engine{
		sampleRate: sampleRate,
		voices:     make(map[uuid.UUID]*voice),
	}
}

func (e *Engine) Now() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.samplesToDuration(e.cursor)
}

func (e *Engine) Play(samples []int16, at time.Duration, onEnded func()) (Handle, error) {
	e.mu.Lock()
	start := e.durationToSamples(at)
	if start < e.cursor {
		start = e.cursor
	}
	v := &voice{
		samples: samples,
		start:   start,
		onEnded: onEnded,
		engine:  e,
		id:      uuid.New(),
	}
	e.voices[v.id] = v
	e.mu.Unlock()
	return v, nil
}

// Render fills out with the mix of all scheduled voices overlapping the
// current cursor window and advances the cursor. Called from the output
// stream's pull thread.
func (e *Engine) Render(out []int16) {
	for i := range out {
		out[i] = 0
	}

	e.mu.Lock()
	windowStart := e.cursor
	windowEnd := windowStart + int64(len(out))

	var ended []*voice
	for id, v := range e.voices {
		vEnd := v.start + int64(len(v.samples))
		if v.start < windowEnd && vEnd > windowStart {
			from := max(v.start, windowStart)
			to := min(vEnd, windowEnd)
			for pos := from; pos < to; pos++ {
				mixed := int32(out[pos-windowStart]) + int32(v.samples[pos-v.start])
				if mixed > 32767 {
					mixed = 32767
				} else if mixed < -32768 {
					mixed = -32768
				}
				out[pos-windowStart] = int16(mixed)
			}
		}
		if vEnd <= windowEnd {
			ended = append(ended, v)
			delete(e.voices, id)
		}
	}
	e.cursor = windowEnd
	e.mu.Unlock()

	for _, v := range ended {
		v.fireEnded()
	}
}

// Stop removes the voice from the mix immediately.
func (v *voice) Stop() {
	v.engine.mu.Lock()
	delete(v.engine.voices, v.id)
	v.engine.mu.Unlock()
	v.fireEnded()
}

func (v *voice) fireEnded() {
	v.once.Do(func() {
		if v.onEnded != nil {
			v.onEnded()
		}
	})
}

func (e *Engine) samplesToDuration(n int64) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(e.sampleRate)
}

func (e *Engine) durationToSamples(d time.Duration) int64 {
	return int64(d) * int64(e.sampleRate) / int64(time.Second)
}

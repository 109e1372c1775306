package playback

import (
	"testing"
	"time"
)

func TestEngineRenderPlaysScheduledSamples(t *testing.T) {
	e := NewEngine(24000)

	samples := []int16{100, 200, 300, 400}
	ended := false
	if _, err := e.Play(samples, 0, func() { ended = true }); err != nil {
		t.Fatal(err)
	}

	out := make([]int16, 4)
	e.Render(out)

	for i, want := range samples {
		if out[i] != want {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want)
		}
	}
	if !ended {
		t.Error("onEnded not fired after voice fully rendered")
	}
	if got := e.Now(); got != 4*time.Second/24000 {
		t.Errorf("Now = %v, want %v", got, 4*time.Second/24000)
	}
}

func TestEngineRendersSilenceWhenIdle(t *testing.T) {
	e := NewEngine(24000)
	out := []int16{7, 7, 7}
	e.Render(out)
	for i, s := range out {
		if s != 0 {
			t.Errorf("out[%d] = %d, want silence", i, s)
		}
	}
}

func TestEngineSchedulesAtFutureOffset(t *testing.T) {
	e := NewEngine(24000)

	// Start two samples into the timeline.
	at := 2 * time.Second / 24000
	if _, err := e.Play([]int16{500, 600}, at, nil); err != nil {
		t.Fatal(err)
	}

	out := make([]int16, 4)
	e.Render(out)

	want := []int16{0, 0, 500, 600}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestEngineMixesOverlappingVoicesWithClamp(t *testing.T) {
	e := NewEngine(24000)
	e.Play([]int16{30000, -30000}, 0, nil)
	e.Play([]int16{30000, -30000}, 0, nil)

	out := make([]int16, 2)
	e.Render(out)

	if out[0] != 32767 {
		t.Errorf("positive clamp: got %d, want 32767", out[0])
	}
	if out[1] != -32768 {
		t.Errorf("negative clamp: got %d, want -32768", out[1])
	}
}

func TestEnginePastStartClampsToCursor(t *testing.T) {
	e := NewEngine(24000)
	e.Render(make([]int16, 10)) // cursor at 10 samples

	e.Play([]int16{123}, 0, nil)
	out := make([]int16, 1)
	e.Render(out)
	if out[0] != 123 {
		t.Errorf("late voice not clamped to cursor: got %d", out[0])
	}
}

func TestEngineStopSilencesVoice(t *testing.T) {
	e := NewEngine(24000)

	endedCount := 0
	h, err := e.Play([]int16{100, 100, 100}, 0, func() { endedCount++ })
	if err != nil {
		t.Fatal(err)
	}
	h.Stop()

	out := make([]int16, 3)
	e.Render(out)
	for i, s := range out {
		if s != 0 {
			t.Errorf("out[%d] = %d after Stop, want 0", i, s)
		}
	}
	if endedCount != 1 {
		t.Errorf("onEnded fired %d times, want 1", endedCount)
	}
}

func TestEnginePartialRenderAcrossCalls(t *testing.T) {
	e := NewEngine(24000)
	ended := false
	e.Play([]int16{1, 2, 3, 4}, 0, func() { ended = true })

	first := make([]int16, 2)
	e.Render(first)
	if first[0] != 1 || first[1] != 2 {
		t.Errorf("first window = %v", first)
	}
	if ended {
		t.Error("onEnded fired before voice finished")
	}

	second := make([]int16, 2)
	e.Render(second)
	if second[0] != 3 || second[1] != 4 {
		t.Errorf("second window = %v", second)
	}
	if !ended {
		t.Error("onEnded not fired at natural end")
	}
}

func TestCueShape(t *testing.T) {
	samples := StartCue(24000)
	if len(samples) != 24000/5 {
		t.Errorf("cue length = %d, want %d", len(samples), 24000/5)
	}
	nonZero := false
	for _, s := range samples {
		if s != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("cue is all silence")
	}
}

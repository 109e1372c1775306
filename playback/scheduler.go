package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"parlo/encoder"
	"parlo/log"
)

// Scheduler plays arriving speech chunks back-to-back: each chunk starts
// at max(end of the previous chunk, device clock), so concatenated
// chunks sound continuous.
type Scheduler struct {
	device Device

	mu        sync.Mutex
	pending   map[uuid.UUID]Handle
	nextStart time.Duration
	dropped   int
}

func NewScheduler(device Device) *Scheduler {
	return &Scheduler{
		device:  device,
		pending: make(map[uuid.UUID]Handle),
	}
}

// Enqueue decodes one PCM16 chunk and schedules it on the gapless
// timeline. A chunk that fails to decode is dropped and logged; it does
// not affect subsequent chunks.
func (s *Scheduler) Enqueue(chunk []byte) {
	samples, err := encoder.DecodePCM(chunk)
	if err != nil {
		log.Warnf("dropping audio chunk: %v", err)
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return
	}
	s.schedule(samples)
}

// EnqueueSamples schedules already-decoded samples (UI cues).
func (s *Scheduler) EnqueueSamples(samples []int16) {
	s.schedule(samples)
}

func (s *Scheduler) schedule(samples []int16) {
	if len(samples) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.nextStart
	if now := s.device.Now(); now > start {
		start = now
	}

	id := uuid.New()
	handle, err := s.device.Play(samples, start, func() { s.remove(id) })
	if err != nil {
		log.Warnf("scheduling audio chunk: %v", err)
		s.dropped++
		return
	}

	s.pending[id] = handle
	s.nextStart = start + time.Duration(len(samples))*time.Second/encoder.OutputRate
}

// StopAll force-stops every pending buffer and resets the timeline, so
// the next enqueue schedules from the device's current time.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	handles := make([]Handle, 0, len(s.pending))
	for _, h := range s.pending {
		handles = append(handles, h)
	}
	s.pending = make(map[uuid.UUID]Handle)
	s.nextStart = 0
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

func (s *Scheduler) remove(id uuid.UUID) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// PendingCount reports how many scheduled buffers have not finished.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Dropped reports how many chunks failed to decode or schedule.
func (s *Scheduler) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

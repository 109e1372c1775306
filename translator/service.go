package translator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"parlo/audio"
	"parlo/config"
	"parlo/encoder"
	"parlo/log"
	"parlo/playback"
	"parlo/transcript"
)

// Service is the session controller. One instance is constructed at
// startup; it runs at most one session at a time.
type Service struct {
	cfg       *config.Config
	audioCtx  audio.Context
	dial      Dialer
	callbacks Callbacks
	device    *audio.DeviceInfo

	mu        sync.Mutex
	epoch     uint64
	status    Status
	capture   audio.CaptureDevice
	output    audio.OutputStream
	scheduler *playback.Scheduler
	agg       *transcript.Aggregator
	stream    Stream
	sendBuf   []float32
	stats     sessionStats
}

type sessionStats struct {
	connectStart  time.Time
	listenAt      time.Time
	sentBlocks    int
	sentBytes     int
	recvChunks    int
	recvBytes     int
	turns         int
	interruptions int
	dropped       func() int
}

func New(cfg *config.Config, audioCtx audio.Context, dial Dialer, callbacks Callbacks) *Service {
	return &Service{
		cfg:       cfg,
		audioCtx:  audioCtx,
		dial:      dial,
		callbacks: callbacks,
		status:    StatusIdle,
	}
}

// SetDevice selects the capture device for subsequent sessions.
// nil means the system default.
func (s *Service) SetDevice(d *audio.DeviceInfo) {
	s.mu.Lock()
	s.device = d
	s.mu.Unlock()
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connect validates configuration, opens the playback and capture
// devices, then dials the translation service. The session reaches
// LISTENING once the remote side acknowledges the stream.
func (s *Service) Connect(targetLanguage string) error {
	s.mu.Lock()
	if s.status != StatusIdle {
		status := s.status
		s.mu.Unlock()
		return fmt.Errorf("session already active (status %s)", status)
	}
	if err := s.cfg.Validate(); err != nil {
		s.mu.Unlock()
		s.reportError(err.Error())
		return err
	}
	s.epoch++
	epoch := s.epoch
	s.status = StatusConnecting
	s.sendBuf = nil
	s.stats = sessionStats{connectStart: time.Now()}
	s.mu.Unlock()
	s.emitStatus(StatusConnecting)

	// Output first: playback must be running before the first
	// synthesized chunk arrives.
	engine := playback.NewEngine(encoder.OutputRate)
	output, err := s.audioCtx.NewOutput(audio.OutputConfig{
		SampleRate: encoder.OutputRate,
		Channels:   encoder.Channels,
	}, engine.Render)
	if err != nil {
		return s.connectFailed(epoch, fmt.Errorf("opening audio output: %w", err))
	}
	if err := output.Start(); err != nil {
		output.Close()
		return s.connectFailed(epoch, fmt.Errorf("starting audio output: %w", err))
	}

	capture, err := s.audioCtx.NewCapture(s.device, audio.CaptureConfig{
		SampleRate: encoder.InputRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		output.Stop()
		output.Close()
		return s.connectFailed(epoch, fmt.Errorf("opening microphone: %w", err))
	}

	scheduler := playback.NewScheduler(engine)

	s.mu.Lock()
	if s.epoch != epoch {
		// Disconnected while the devices were opening.
		s.mu.Unlock()
		capture.Close()
		output.Stop()
		output.Close()
		return nil
	}
	s.output = output
	s.capture = capture
	s.scheduler = scheduler
	s.agg = transcript.New(s.emitTranscription)
	s.stats.dropped = scheduler.Dropped
	s.mu.Unlock()

	streamCfg := StreamConfig{
		APIKey:         s.cfg.APIKey,
		Model:          s.cfg.Model,
		Voice:          s.cfg.Voice,
		TargetLanguage: targetLanguage,
	}
	handler := Handler{
		OnOpen:    func() { s.onStreamOpen(epoch) },
		OnMessage: func(m ServerMessage) { s.onStreamMessage(epoch, m) },
		OnError:   func(err error) { s.onStreamError(epoch, err) },
		OnClose:   func() { s.onStreamClose(epoch) },
	}

	go func() {
		stream, err := s.dial(context.Background(), streamCfg, handler)
		if err != nil {
			s.onStreamError(epoch, fmt.Errorf("opening session: %w", err))
			return
		}
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			stream.Close()
			return
		}
		s.stream = stream
		s.mu.Unlock()
	}()

	log.SessionStart(s.cfg.Model, s.cfg.Voice, targetLanguage)
	return nil
}

// Disconnect tears the session down from any state. Idempotent, and
// safe to call while a connect attempt is still in flight.
func (s *Service) Disconnect() {
	s.teardown(0)
}

// Cue schedules a notification sound through the session's output.
// No-op when no session is active.
func (s *Service) Cue(samples []int16) {
	s.mu.Lock()
	scheduler := s.scheduler
	s.mu.Unlock()
	if scheduler != nil {
		scheduler.EnqueueSamples(samples)
	}
}

func (s *Service) connectFailed(epoch uint64, err error) error {
	s.mu.Lock()
	if s.epoch != epoch {
		// A disconnect already superseded this attempt.
		s.mu.Unlock()
		return err
	}
	s.status = StatusIdle
	s.mu.Unlock()
	s.reportError(err.Error())
	s.emitStatus(StatusIdle)
	return err
}

func (s *Service) onStreamOpen(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch || s.status != StatusConnecting {
		s.mu.Unlock()
		return
	}
	s.status = StatusListening
	s.stats.listenAt = time.Now()
	capture := s.capture
	scheduler := s.scheduler
	s.mu.Unlock()

	s.emitStatus(StatusListening)
	scheduler.EnqueueSamples(playback.StartCue(encoder.OutputRate))

	capture.SetCallback(func(samples []float32) {
		s.onCaptureBlock(epoch, samples)
	})
	if err := capture.Start(); err != nil {
		s.onStreamError(epoch, fmt.Errorf("starting microphone: %w", err))
	}
}

// onCaptureBlock accumulates captured samples into fixed-size blocks
// and transmits each one. A failed send is swallowed; capture goes on.
func (s *Service) onCaptureBlock(epoch uint64, samples []float32) {
	if cb := s.callbacks.OnLevel; cb != nil && len(samples) > 0 {
		var sum float64
		for _, v := range samples {
			sum += float64(v) * float64(v)
		}
		cb(math.Sqrt(sum / float64(len(samples))))
	}

	s.mu.Lock()
	if s.epoch != epoch || s.status != StatusListening {
		s.mu.Unlock()
		return
	}
	s.sendBuf = append(s.sendBuf, samples...)
	stream := s.stream
	if stream == nil {
		// Stream not established yet; keep accumulating.
		s.mu.Unlock()
		return
	}
	var blocks [][]float32
	for len(s.sendBuf) >= encoder.BlockSize {
		block := make([]float32, encoder.BlockSize)
		copy(block, s.sendBuf[:encoder.BlockSize])
		s.sendBuf = s.sendBuf[encoder.BlockSize:]
		blocks = append(blocks, block)
	}
	s.mu.Unlock()
	for _, block := range blocks {
		payload := encoder.Envelope(encoder.EncodeBlock(block))
		if err := stream.Send(payload); err != nil {
			log.Warnf("dropping capture block: %v", err)
			continue
		}
		s.mu.Lock()
		s.stats.sentBlocks++
		s.stats.sentBytes += encoder.BlockSize * 2
		s.mu.Unlock()
	}
}

// onStreamMessage applies every signal present in one inbound message:
// audio, transcription fragments, turn completion and interruption.
func (s *Service) onStreamMessage(epoch uint64, msg ServerMessage) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	scheduler := s.scheduler
	agg := s.agg
	s.mu.Unlock()

	if len(msg.Audio) > 0 {
		scheduler.Enqueue(msg.Audio)
		s.mu.Lock()
		s.stats.recvChunks++
		s.stats.recvBytes += len(msg.Audio)
		s.mu.Unlock()
		if tap := s.callbacks.OnAudio; tap != nil {
			if samples, err := encoder.DecodePCM(msg.Audio); err == nil {
				tap(samples)
			}
		}
	}

	if msg.InputText != "" {
		agg.Append(transcript.Input, msg.InputText)
	}
	if msg.OutputText != "" {
		agg.Append(transcript.Output, msg.OutputText)
	}

	if msg.TurnComplete {
		items := agg.CompleteTurn()
		for _, item := range items {
			log.TranscriptLine(string(item.Direction), item.Text)
		}
		if len(items) > 0 {
			s.mu.Lock()
			s.stats.turns++
			s.mu.Unlock()
		}
	}

	if msg.Interrupted {
		scheduler.StopAll()
		s.mu.Lock()
		s.stats.interruptions++
		s.mu.Unlock()
	}
}

func (s *Service) onStreamError(epoch uint64, err error) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.status = StatusError
	s.mu.Unlock()

	s.reportError(err.Error())
	s.emitStatus(StatusError)
	s.teardown(epoch)
}

func (s *Service) onStreamClose(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.teardown(epoch)
}

// teardown releases everything the session holds. epoch 0 means
// unconditional (user-driven disconnect); otherwise the teardown only
// applies if the session that requested it is still current.
func (s *Service) teardown(epoch uint64) {
	s.mu.Lock()
	if epoch != 0 && s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.epoch++
	wasActive := s.status != StatusIdle
	capture := s.capture
	output := s.output
	scheduler := s.scheduler
	stream := s.stream
	stats := s.stats
	s.capture = nil
	s.output = nil
	s.scheduler = nil
	s.agg = nil
	s.stream = nil
	s.sendBuf = nil
	s.status = StatusIdle
	s.mu.Unlock()

	if scheduler != nil {
		scheduler.StopAll()
	}
	if capture != nil {
		capture.Stop()
		capture.ClearCallback()
		capture.Close()
	}
	if stream != nil {
		stream.Close()
	}
	if output != nil {
		output.Stop()
		output.Close()
	}

	if wasActive {
		s.logSessionMetrics(stats)
		log.SessionEnd(stats.turns)
		s.emitStatus(StatusIdle)
	}
}

func (s *Service) logSessionMetrics(stats sessionStats) {
	connectMs := 0.0
	if !stats.listenAt.IsZero() {
		connectMs = float64(stats.listenAt.Sub(stats.connectStart).Milliseconds())
	}
	dropped := 0
	if stats.dropped != nil {
		dropped = stats.dropped()
	}
	log.SessionMetrics(log.SessionMetricsData{
		ConnectMs:     connectMs,
		TotalMs:       float64(time.Since(stats.connectStart).Milliseconds()),
		SentBlocks:    stats.sentBlocks,
		SentKB:        float64(stats.sentBytes) / 1024,
		RecvChunks:    stats.recvChunks,
		RecvKB:        float64(stats.recvBytes) / 1024,
		Turns:         stats.turns,
		Interruptions: stats.interruptions,
		DroppedChunks: dropped,
	})
}

func (s *Service) emitTranscription(e transcript.Event) {
	if cb := s.callbacks.OnTranscription; cb != nil {
		cb(e.Text, e.Direction, e.Final)
	}
}

func (s *Service) emitStatus(status Status) {
	if cb := s.callbacks.OnStatusChange; cb != nil {
		cb(status)
	}
}

func (s *Service) reportError(msg string) {
	log.Error(msg)
	if cb := s.callbacks.OnError; cb != nil {
		cb(msg)
	}
}

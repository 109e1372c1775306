// Package translator drives one live speech-translation session: it
// owns the capture device, the network stream to the translation model
// and the playback pipeline, and reports everything else through a
// small callback contract.
package translator

import (
	"context"

	"parlo/encoder"
	"parlo/transcript"
)

// Status is the session lifecycle state, reported on every transition.
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusConnecting Status = "CONNECTING"
	StatusListening  Status = "LISTENING"
	StatusError      Status = "ERROR"
)

// Callbacks is the contract between the session and the surrounding
// application. All fields are optional.
type Callbacks struct {
	// OnTranscription fires on every fragment (final=false, accumulated
	// text so far) and once per finalized turn per direction (final=true).
	OnTranscription func(text string, direction transcript.Direction, final bool)

	// OnStatusChange fires on every state transition.
	OnStatusChange func(status Status)

	// OnError fires with a human-readable diagnostic on any
	// unrecoverable failure.
	OnError func(msg string)

	// OnAudio taps the decoded synthesized speech, for recording.
	OnAudio func(samples []int16)

	// OnLevel reports the RMS level of each captured block, for meters.
	OnLevel func(level float64)
}

// ServerMessage is one inbound event from the translation service. Any
// combination of signals may be present in the same message.
type ServerMessage struct {
	Audio        []byte // PCM16 little-endian at the output rate
	InputText    string // transcription fragment of the speaker
	OutputText   string // transcription fragment of the translation
	TurnComplete bool
	Interrupted  bool
}

// Handler receives the stream's inbound events.
type Handler struct {
	OnOpen    func()
	OnMessage func(msg ServerMessage)
	OnError   func(err error)
	OnClose   func()
}

// Stream is the narrow surface of the remote session: nothing else of
// the service's API leaks into the session controller.
type Stream interface {
	Send(payload encoder.Payload) error
	Close() error
}

// StreamConfig carries everything needed to open a stream.
type StreamConfig struct {
	APIKey         string
	Model          string
	Voice          string
	TargetLanguage string
}

// Dialer opens a Stream and wires its inbound events to h.
type Dialer func(ctx context.Context, cfg StreamConfig, h Handler) (Stream, error)

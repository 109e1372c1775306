package translator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"nhooyr.io/websocket"

	"parlo/encoder"
	"parlo/log"
)

const geminiEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// instructionTemplate directs the model to act as an interpreter and
// speak back only the translation.
const instructionTemplate = "You are a simultaneous interpreter. Listen to the speaker " +
	"and immediately say back what they said, translated into %s. " +
	"Speak only the translation. Do not answer questions, do not comment, " +
	"do not add anything of your own."

type setupMessage struct {
	Setup struct {
		Model            string `json:"model"`
		GenerationConfig struct {
			ResponseModalities []string `json:"responseModalities"`
			SpeechConfig       struct {
				VoiceConfig struct {
					PrebuiltVoiceConfig struct {
						VoiceName string `json:"voiceName"`
					} `json:"prebuiltVoiceConfig"`
				} `json:"voiceConfig"`
			} `json:"speechConfig"`
		} `json:"generationConfig"`
		SystemInstruction struct {
			Parts []textPart `json:"parts"`
		} `json:"systemInstruction"`
		InputAudioTranscription  struct{} `json:"inputAudioTranscription"`
		OutputAudioTranscription struct{} `json:"outputAudioTranscription"`
	} `json:"setup"`
}

type textPart struct {
	Text string `json:"text"`
}

type realtimeInputMessage struct {
	RealtimeInput struct {
		Audio encoder.Payload `json:"audio"`
	} `json:"realtimeInput"`
}

type serverEnvelope struct {
	SetupComplete *struct{}      `json:"setupComplete"`
	ServerContent *serverContent `json:"serverContent"`
}

type serverContent struct {
	ModelTurn *struct {
		Parts []struct {
			InlineData *struct {
				MIMEType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"modelTurn"`
	InputTranscription *struct {
		Text string `json:"text"`
	} `json:"inputTranscription"`
	OutputTranscription *struct {
		Text string `json:"text"`
	} `json:"outputTranscription"`
	TurnComplete bool `json:"turnComplete"`
	Interrupted  bool `json:"interrupted"`
}

// translateContent flattens one serverContent into the session's
// message shape. Undecodable audio parts are dropped here so a bad part
// cannot mask the message's other signals.
func translateContent(sc *serverContent) ServerMessage {
	var msg ServerMessage
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "audio/pcm") {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				log.Warnf("dropping undecodable audio part: %v", err)
				continue
			}
			msg.Audio = append(msg.Audio, pcm...)
		}
	}
	if sc.InputTranscription != nil {
		msg.InputText = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		msg.OutputText = sc.OutputTranscription.Text
	}
	msg.TurnComplete = sc.TurnComplete
	msg.Interrupted = sc.Interrupted
	return msg
}

type geminiStream struct {
	conn    *websocket.Conn
	ctx     context.Context
	cancel  context.CancelFunc
	closing atomic.Bool
}

// DialGemini opens a live session with the Gemini bidi endpoint. The
// returned stream is not ready until h.OnOpen fires (the server's setup
// acknowledgment).
func DialGemini(ctx context.Context, cfg StreamConfig, h Handler) (Stream, error) {
	endpoint, err := url.Parse(geminiEndpoint)
	if err != nil {
		return nil, err
	}
	q := endpoint.Query()
	q.Set("key", cfg.APIKey)
	endpoint.RawQuery = q.Encode()

	streamCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(streamCtx, endpoint.String(), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	// Synthesized audio chunks can run to hundreds of KB.
	conn.SetReadLimit(8 << 20)

	var setup setupMessage
	setup.Setup.Model = "models/" + cfg.Model
	setup.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	setup.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = cfg.Voice
	setup.Setup.SystemInstruction.Parts = []textPart{
		{Text: fmt.Sprintf(instructionTemplate, cfg.TargetLanguage)},
	}

	setupBytes, err := json.Marshal(setup)
	if err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "")
		return nil, err
	}
	if err := conn.Write(streamCtx, websocket.MessageText, setupBytes); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("sending setup: %w", err)
	}

	s := &geminiStream{conn: conn, ctx: streamCtx, cancel: cancel}
	go s.readLoop(h)
	return s, nil
}

func (s *geminiStream) readLoop(h Handler) {
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.closing.Load() {
				return
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				if h.OnClose != nil {
					h.OnClose()
				}
				return
			}
			if h.OnError != nil {
				h.OnError(err)
			}
			return
		}

		var envelope serverEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			log.Warnf("dropping unparseable server message: %v", err)
			continue
		}

		if envelope.SetupComplete != nil {
			if h.OnOpen != nil {
				h.OnOpen()
			}
			continue
		}
		if envelope.ServerContent != nil {
			if h.OnMessage != nil {
				h.OnMessage(translateContent(envelope.ServerContent))
			}
		}
	}
}

func (s *geminiStream) Send(payload encoder.Payload) error {
	var msg realtimeInputMessage
	msg.RealtimeInput.Audio = payload
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.conn.Write(s.ctx, websocket.MessageText, data)
}

func (s *geminiStream) Close() error {
	s.closing.Store(true)
	err := s.conn.Close(websocket.StatusNormalClosure, "")
	s.cancel()
	return err
}

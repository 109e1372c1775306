package translator

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

func parseEnvelope(t *testing.T, raw string) serverEnvelope {
	t.Helper()
	var env serverEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatal(err)
	}
	return env
}

func TestTranslateContentConcatenatesAudioParts(t *testing.T) {
	a := base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0})
	b := base64.StdEncoding.EncodeToString([]byte{3, 0})
	env := parseEnvelope(t, `{"serverContent":{"modelTurn":{"parts":[
		{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"`+a+`"}},
		{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"`+b+`"}}
	]}}}`)

	msg := translateContent(env.ServerContent)
	want := []byte{1, 0, 2, 0, 3, 0}
	if len(msg.Audio) != len(want) {
		t.Fatalf("audio = %v, want %v", msg.Audio, want)
	}
	for i := range want {
		if msg.Audio[i] != want[i] {
			t.Fatalf("audio = %v, want %v", msg.Audio, want)
		}
	}
}

func TestTranslateContentSkipsNonAudioParts(t *testing.T) {
	good := base64.StdEncoding.EncodeToString([]byte{9, 0})
	env := parseEnvelope(t, `{"serverContent":{"modelTurn":{"parts":[
		{"inlineData":{"mimeType":"image/png","data":"aWdub3JlZA=="}},
		{"text":"not audio"},
		{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"`+good+`"}}
	]}}}`)

	msg := translateContent(env.ServerContent)
	if len(msg.Audio) != 2 || msg.Audio[0] != 9 {
		t.Errorf("audio = %v, want the single pcm part", msg.Audio)
	}
}

func TestTranslateContentDropsUndecodablePart(t *testing.T) {
	env := parseEnvelope(t, `{"serverContent":{
		"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"!!!not base64!!!"}}]},
		"outputTranscription":{"text":"Hola"}
	}}`)

	msg := translateContent(env.ServerContent)
	if len(msg.Audio) != 0 {
		t.Errorf("audio = %v, want none", msg.Audio)
	}
	// The bad part must not mask the rest of the message.
	if msg.OutputText != "Hola" {
		t.Errorf("outputText = %q, want Hola", msg.OutputText)
	}
}

func TestTranslateContentTranscriptionsAndFlags(t *testing.T) {
	env := parseEnvelope(t, `{"serverContent":{
		"inputTranscription":{"text":"Hello"},
		"outputTranscription":{"text":"Hola"},
		"turnComplete":true
	}}`)

	msg := translateContent(env.ServerContent)
	if msg.InputText != "Hello" || msg.OutputText != "Hola" {
		t.Errorf("transcriptions = %q / %q", msg.InputText, msg.OutputText)
	}
	if !msg.TurnComplete || msg.Interrupted {
		t.Errorf("flags = turnComplete %v interrupted %v", msg.TurnComplete, msg.Interrupted)
	}
}

func TestTranslateContentInterrupted(t *testing.T) {
	env := parseEnvelope(t, `{"serverContent":{"interrupted":true}}`)
	if msg := translateContent(env.ServerContent); !msg.Interrupted {
		t.Error("interrupted flag lost")
	}
}

func TestServerEnvelopeDistinguishesSetupComplete(t *testing.T) {
	env := parseEnvelope(t, `{"setupComplete":{}}`)
	if env.SetupComplete == nil {
		t.Error("setupComplete not recognized")
	}
	if env.ServerContent != nil {
		t.Error("spurious serverContent")
	}
}

func TestSetupMessageShape(t *testing.T) {
	var setup setupMessage
	setup.Setup.Model = "models/test-model"
	setup.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	setup.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = "Puck"
	setup.Setup.SystemInstruction.Parts = []textPart{{Text: "interpret"}}

	raw, err := json.Marshal(setup)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		`"model":"models/test-model"`,
		`"responseModalities":["AUDIO"]`,
		`"voiceName":"Puck"`,
		`"inputAudioTranscription":{}`,
		`"outputAudioTranscription":{}`,
	} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("setup message missing %s:\n%s", key, raw)
		}
	}
}

func TestRealtimeInputMessageShape(t *testing.T) {
	var msg realtimeInputMessage
	msg.RealtimeInput.Audio.MIMEType = "audio/pcm;rate=16000"
	msg.RealtimeInput.Audio.Data = "AAAA"

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"realtimeInput":{"audio":{"mimeType":"audio/pcm;rate=16000","data":"AAAA"}}}`
	if string(raw) != want {
		t.Errorf("wire shape = %s, want %s", raw, want)
	}
}

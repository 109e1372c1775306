// Package encoder converts captured audio into the wire format the
// translation service expects, and decodes the service's synthesized
// audio back into playable samples.
package encoder

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	InputRate     = 16000
	OutputRate    = 24000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// InputMIMEType tags outbound microphone audio.
const InputMIMEType = "audio/pcm;rate=16000"

// Payload is the transport envelope for one encoded audio block:
// a MIME tag plus base64 of the little-endian PCM16 bytes.
type Payload struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// EncodeBlock converts float samples in [-1, 1] to little-endian PCM16.
// Out-of-range samples are clamped, NaN maps to zero. Never fails.
func EncodeBlock(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		f := float64(s)
		if math.IsNaN(f) {
			f = 0
		}
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		var v int16
		if f < 0 {
			v = int16(f * 32768)
		} else {
			v = int16(f * 32767)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// Envelope wraps encoded PCM bytes for transmission.
func Envelope(pcm []byte) Payload {
	return Payload{
		MIMEType: InputMIMEType,
		Data:     base64.StdEncoding.EncodeToString(pcm),
	}
}

// DecodePCM converts little-endian PCM16 bytes into samples.
// Odd-length input cannot be valid PCM16 and is rejected.
func DecodePCM(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm data has odd length %d", len(data))
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples, nil
}

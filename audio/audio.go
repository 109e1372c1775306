package audio

import "strings"

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// CaptureCallback receives a block of captured mono float samples in [-1, 1].
type CaptureCallback func(samples []float32)

// RenderCallback fills out with the next mono PCM16 samples to play.
// Unfilled regions must be zeroed by the implementation (silence).
type RenderCallback func(out []int16)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type OutputConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	NewOutput(config OutputConfig, render RenderCallback) (OutputStream, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb CaptureCallback)
	ClearCallback()
}

// OutputStream is a pull-based playback device: once started it keeps
// invoking the RenderCallback it was created with.
type OutputStream interface {
	Start() error
	Stop()
	Close()
}

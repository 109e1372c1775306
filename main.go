package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"parlo/audio"
	"parlo/config"
	"parlo/encoder"
	"parlo/log"
	"parlo/playback"
	"parlo/shutdown"
	"parlo/transcript"
	"parlo/translator"
)

var version = "dev"

// disconnectTail leaves room for the end cue to play before the output
// device is torn down.
const disconnectTail = 400 * time.Millisecond

var (
	transcriptMu sync.Mutex
	turnLines    []string

	toggleChan = make(chan struct{}, 1)
	copyChan   = make(chan struct{}, 1)

	activeService  *translator.Service
	activeRecorder *flacRecorder

	shutdownOnce sync.Once
)

// flacRecorder taps the synthesized translation audio into a FLAC file.
type flacRecorder struct {
	enc  *encoder.FlacEncoder
	path string
}

func newFlacRecorder(path string) (*flacRecorder, error) {
	enc, err := encoder.NewFlac(encoder.OutputRate)
	if err != nil {
		return nil, err
	}
	return &flacRecorder{enc: enc, path: path}, nil
}

func (r *flacRecorder) Feed(samples []int16) {
	if err := r.enc.EncodeBlock(samples); err != nil {
		log.Warnf("recording: %v", err)
	}
}

func (r *flacRecorder) Finish() error {
	if r.enc.TotalFrames() == 0 {
		return nil
	}
	if err := r.enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(r.path, r.enc.Bytes(), 0644)
}

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		if activeService != nil {
			if activeService.Status() != translator.StatusIdle {
				activeService.Cue(playback.EndCue(encoder.OutputRate))
				time.Sleep(disconnectTail)
			}
			activeService.Disconnect()
		}
		if activeRecorder != nil {
			if err := activeRecorder.Finish(); err != nil {
				log.Errorf("writing recording: %v", err)
			}
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

func modeLineText(cfg *config.Config) string {
	return fmt.Sprintf("[%s | %s | → %s]", cfg.Model, cfg.Voice, cfg.Language)
}

func recordTurn(direction transcript.Direction, text string) {
	transcriptMu.Lock()
	defer transcriptMu.Unlock()
	prefix := "you: "
	if direction == transcript.Output {
		prefix = "  →  "
	}
	turnLines = append(turnLines, prefix+text)
}

func copyTranscript() {
	transcriptMu.Lock()
	text := strings.Join(turnLines, "\n")
	transcriptMu.Unlock()
	if text == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		log.Warnf("clipboard: %v", err)
		return
	}
	tuiSend(CopiedMsg{})
}

func sessionCallbacks(headless bool) translator.Callbacks {
	return translator.Callbacks{
		OnTranscription: func(text string, direction transcript.Direction, final bool) {
			if final {
				recordTurn(direction, text)
				tuiSend(FinalMsg{Direction: direction, Text: text})
				if headless && direction == transcript.Output {
					fmt.Println(text)
				}
			} else {
				tuiSend(PartialMsg{Direction: direction, Text: text})
			}
		},
		OnStatusChange: func(status translator.Status) {
			log.Info("status: " + string(status))
			tuiSend(StatusMsg{Status: status})
			if headless {
				fmt.Fprintf(os.Stderr, "[%s]\n", status)
			}
		},
		OnError: func(msg string) {
			tuiSend(ErrorMsg{Text: msg})
			if headless {
				fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
			}
		},
		OnAudio: func(samples []int16) {
			if activeRecorder != nil {
				activeRecorder.Feed(samples)
			}
		},
		OnLevel: func(level float64) {
			tuiSend(LevelMsg{Level: level})
		},
	}
}

func main() {
	run()
}

func run() {
	langFlag := flag.String("lang", "", "Target language to translate into (e.g., Spanish, Japanese)")
	modelFlag := flag.String("model", "", "Live model name")
	voiceFlag := flag.String("voice", "", "Synthesized voice name")
	deviceFlag := flag.String("device", "", "Use named microphone device (substring match)")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	recordFlag := flag.String("record", "", "Record synthesized translation audio to a FLAC file")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("parlo %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *langFlag != "" {
		cfg.Language = *langFlag
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if *voiceFlag != "" {
		cfg.Voice = *voiceFlag
	}
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}
	if *recordFlag != "" {
		cfg.Record = *recordFlag
	}

	// Resolve log directory early
	flagPath := *logPathFlag
	if flagPath == "" {
		flagPath = cfg.LogPath
	}
	logPath, err := log.ResolveDir(flagPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	} else if cfg.Device != "" {
		selectedDevice, err = audio.FindDevice(ctx, cfg.Device)
		if err != nil {
			log.Warnf("device lookup failed: %v", err)
			fmt.Printf("Warning: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	if cfg.Record != "" {
		activeRecorder, err = newFlacRecorder(cfg.Record)
		if err != nil {
			log.Errorf("recorder init error: %v", err)
			fmt.Printf("Error initializing recorder: %v\n", err)
			os.Exit(1)
		}
	}

	svc := translator.New(cfg, ctx, translator.DialGemini, sessionCallbacks(!*tuiFlag))
	svc.SetDevice(selectedDevice)
	activeService = svc

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()

		<-tuiReady
		tuiSend(ModeLineMsg{Text: modeLineText(cfg)})
		tuiSend(DeviceLineMsg{Text: deviceLineText(selectedDevice)})
	} else {
		// Headless mode starts translating right away.
		select {
		case toggleChan <- struct{}{}:
		default:
		}
	}

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	for {
		select {
		case <-toggleChan:
			if svc.Status() == translator.StatusIdle {
				if err := svc.Connect(cfg.Language); err != nil {
					log.Errorf("connect error: %v", err)
				}
			} else {
				svc.Cue(playback.EndCue(encoder.OutputRate))
				time.Sleep(disconnectTail)
				svc.Disconnect()
			}

		case <-copyChan:
			copyTranscript()
		}
	}
}

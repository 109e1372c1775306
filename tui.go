package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parlo/transcript"
	"parlo/translator"
)

// TUI message types
type StatusMsg struct{ Status translator.Status }
type PartialMsg struct {
	Direction transcript.Direction
	Text      string
}
type FinalMsg struct {
	Direction transcript.Direction
	Text      string
}
type LevelMsg struct{ Level float64 }
type ErrorMsg struct{ Text string }
type ModeLineMsg struct{ Text string }   // model/voice/language info
type DeviceLineMsg struct{ Text string } // microphone device name
type CopiedMsg struct{}
type tickMsg time.Time

const historyKeep = 8

type historyLine struct {
	direction transcript.Direction
	text      string
}

type tuiModel struct {
	status        translator.Status
	frame         int
	listenStart   time.Time
	audioLevel    float64
	width, height int
	modeLine      string
	deviceLine    string
	partialIn     string // speaker transcription in flight
	partialOut    string // translation transcription in flight
	history       []historyLine
	errLine       string
	copiedFrame   int // frame at which the copy indicator was shown
}

var (
	tuiProgram   *tea.Program
	tuiMu        sync.Mutex
	tuiReady     = make(chan struct{})
	tuiReadyOnce sync.Once
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Pre-computed styles to avoid allocations in the render loop
var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	listenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	connectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	grayStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	meterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	inputStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("249"))
	outputStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	partialStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	copiedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpBoldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

func NewTUIProgram() *tea.Program {
	m := tuiModel{status: translator.StatusIdle}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	tuiReadyOnce.Do(func() { close(tuiReady) })
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			select {
			case toggleChan <- struct{}{}:
			default:
			}
		case "c":
			select {
			case copyChan <- struct{}{}:
			default:
			}
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case StatusMsg:
		m.status = msg.Status
		switch msg.Status {
		case translator.StatusListening:
			m.listenStart = time.Now()
			m.errLine = ""
		case translator.StatusConnecting:
			m.errLine = ""
		case translator.StatusIdle:
			m.audioLevel = 0
			m.partialIn = ""
			m.partialOut = ""
		}

	case PartialMsg:
		if msg.Direction == transcript.Input {
			m.partialIn = msg.Text
		} else {
			m.partialOut = msg.Text
		}

	case FinalMsg:
		m.history = append(m.history, historyLine{msg.Direction, msg.Text})
		if len(m.history) > historyKeep {
			m.history = m.history[len(m.history)-historyKeep:]
		}
		if msg.Direction == transcript.Input {
			m.partialIn = ""
		} else {
			m.partialOut = ""
		}

	case LevelMsg:
		if m.status == translator.StatusListening {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
		}

	case ErrorMsg:
		m.errLine = msg.Text

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case CopiedMsg:
		m.copiedFrame = m.frame
	}
	return m, nil
}

func (m tuiModel) statusLine() string {
	switch m.status {
	case translator.StatusListening:
		return listenStyle.Render(fmt.Sprintf("● LIVE %s", time.Since(m.listenStart).Round(time.Second)))
	case translator.StatusConnecting:
		return connectStyle.Render(spinnerFrames[m.frame%len(spinnerFrames)] + " CONNECTING")
	case translator.StatusError:
		return errorStyle.Render("✕ ERROR")
	default:
		return idleStyle.Render("○ STANDBY")
	}
}

func (m tuiModel) levelMeter(width int) string {
	if m.status != translator.StatusListening {
		return ""
	}
	filled := int(m.audioLevel * 8 * float64(width))
	if filled > width {
		filled = width
	}
	return meterStyle.Render(strings.Repeat("▮", filled)) +
		grayStyle.Render(strings.Repeat("▯", width-filled))
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	wrapWidth := m.width - 6
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("parlo "+version) + "\n\n")
	b.WriteString(m.statusLine() + "\n")
	if m.modeLine != "" {
		b.WriteString(grayStyle.Render(m.modeLine) + "\n")
	}
	if m.deviceLine != "" {
		b.WriteString(grayStyle.Render(m.deviceLine) + "\n")
	}
	if meter := m.levelMeter(24); meter != "" {
		b.WriteString(meter + "\n")
	}
	b.WriteString("\n")

	for _, line := range m.history {
		style := inputStyle
		prefix := "you  "
		if line.direction == transcript.Output {
			style = outputStyle
			prefix = "  →  "
		}
		for i, wrapped := range wrapText(line.text, wrapWidth) {
			if i == 0 {
				b.WriteString(grayStyle.Render(prefix))
			} else {
				b.WriteString("     ")
			}
			b.WriteString(style.Render(wrapped) + "\n")
		}
	}

	if m.partialIn != "" {
		b.WriteString(grayStyle.Render("you  ") + partialStyle.Render(truncateTail(m.partialIn, wrapWidth)) + "\n")
	}
	if m.partialOut != "" {
		b.WriteString(grayStyle.Render("  →  ") + partialStyle.Render(truncateTail(m.partialOut, wrapWidth)) + "\n")
	}

	if m.errLine != "" {
		b.WriteString("\n" + warnStyle.Render("⚠ "+m.errLine) + "\n")
	}

	// The copy indicator lingers for about two seconds.
	if m.copiedFrame > 0 && m.frame-m.copiedFrame < 25 {
		b.WriteString("\n" + copiedStyle.Render("[✓ copied]") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(helpBoldStyle.Render("space") + helpStyle.Render(" start/stop  ") +
		helpBoldStyle.Render("c") + helpStyle.Render(" copy  ") +
		helpBoldStyle.Render("ctrl+c") + helpStyle.Render(" quit"))

	return b.String()
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

// truncateTail keeps the end of a growing partial line visible.
func truncateTail(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return "…" + string(runes[len(runes)-width+1:])
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// ABOUTME: Bubbletea model for the controller TUI
// ABOUTME: Parameter editing, level bars, and the spectrum strip
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muchfun/muchfun-go/internal/bridge"
	"github.com/muchfun/muchfun-go/internal/dsp"
	"github.com/muchfun/muchfun-go/internal/pattern"
)

// UpdateMsg delivers a bridge update to the TUI.
type UpdateMsg bridge.Update

// ConnectionMsg updates the connection line.
type ConnectionMsg struct {
	Connected bool
	Server    string
}

// param identifies one editable row.
type param int

const (
	paramManual param = iota
	paramSensitivity
	paramFocus
	paramSmoothingMode
	paramStrength
	paramAttack
	paramDecay
	paramWaveform
	paramPatternMax
	paramPatternRate
	paramRandomness
	paramAudioEnabled
	paramPatternEnabled
	paramVisualizer
	paramVerbose
	paramCount
)

var paramNames = [paramCount]string{
	"Manual Intensity",
	"Sensitivity",
	"Spectral Focus",
	"Smoothing",
	"Strength",
	"Attack Time",
	"Decay Time",
	"Pattern",
	"Max Intensity",
	"Pattern Speed",
	"Randomness",
	"Audio Input",
	"Pattern Control",
	"Visualizer",
	"Verbose Logging",
}

// Model represents the TUI state. Parameter edits are published through
// the bridge; producer output arrives as UpdateMsg values. The model
// never shares memory with the producer loops.
type Model struct {
	bridge  *bridge.Bridge
	control *Control
	params  bridge.Params

	selected param

	// Presentation values from producer updates
	bass, mids, treble float64
	mixed, smoothed    float64
	patternLevel       float64
	spectrum           [dsp.SpectrumBins]float64
	commandsPerSec     float64
	commandsSent       int64

	connected  bool
	serverName string
	status     string

	width, height int
	quitting      bool
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case UpdateMsg:
		m.applyUpdate(bridge.Update(msg))

	case ConnectionMsg:
		m.connected = msg.Connected
		m.serverName = msg.Server
	}

	return m, nil
}

// applyUpdate merges one producer update into presentation state.
func (m *Model) applyUpdate(u bridge.Update) {
	if u.Audio != nil {
		m.bass = u.Audio.Bass
		m.mids = u.Audio.Mids
		m.treble = u.Audio.Treble
		m.mixed = u.Audio.Mixed
		m.smoothed = u.Audio.Smoothed
		m.spectrum = u.Audio.Spectrum
	}
	if u.PatternLevel != nil {
		m.patternLevel = *u.PatternLevel
	}
	if u.Stats != nil {
		m.commandsSent = u.Stats.CommandsSent
		m.commandsPerSec = u.Stats.CommandsPerSec
	}
	if u.Status != "" {
		m.status = u.Status
	}
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.control.signalQuit()
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < paramCount-1 {
			m.selected++
		}

	case "left", "h":
		m.adjust(-1)

	case "right", "l":
		m.adjust(1)

	case " ", "enter":
		m.toggle()

	case "e", "esc":
		m.emergencyStop()
	}

	return m, nil
}

// adjust changes the selected parameter by one step in the given
// direction and publishes the new snapshot.
func (m *Model) adjust(dir float64) {
	p := &m.params
	switch m.selected {
	case paramManual:
		p.ManualIntensity = clampRange(p.ManualIntensity+dir*0.05, 0, 1)
	case paramSensitivity:
		p.Sensitivity = clampRange(p.Sensitivity+dir*5, 1, 100)
	case paramFocus:
		p.Focus = clampRange(p.Focus+dir*0.1, -1, 1)
	case paramSmoothingMode:
		p.Smoothing.Mode = cycleMode(p.Smoothing.Mode, int(dir))
	case paramStrength:
		p.Smoothing.Strength = clampRange(p.Smoothing.Strength+dir*0.05, 0, 1)
	case paramAttack:
		p.Smoothing.Attack = clampRange(p.Smoothing.Attack+dir*0.01, 0.01, 1)
	case paramDecay:
		p.Smoothing.Decay = clampRange(p.Smoothing.Decay+dir*0.01, 0.01, 1)
	case paramWaveform:
		p.Pattern.Waveform = cycleWaveform(p.Pattern.Waveform, int(dir))
	case paramPatternMax:
		p.Pattern.MaxIntensity = clampRange(p.Pattern.MaxIntensity+dir*0.05, 0, 1)
	case paramPatternRate:
		p.Pattern.Rate = clampRange(p.Pattern.Rate+dir*0.1, 0.1, 2)
	case paramRandomness:
		p.Pattern.Randomness = clampRange(p.Pattern.Randomness+dir*0.05, 0, 1)
	default:
		m.toggle()
		return
	}
	m.bridge.Store(*p)
}

// toggle flips the selected boolean parameter.
func (m *Model) toggle() {
	p := &m.params
	switch m.selected {
	case paramAudioEnabled:
		p.AudioEnabled = !p.AudioEnabled
	case paramPatternEnabled:
		p.PatternEnabled = !p.PatternEnabled
	case paramVisualizer:
		p.VisualizerEnabled = !p.VisualizerEnabled
	case paramVerbose:
		p.Verbose = !p.Verbose
	default:
		return
	}
	m.bridge.Store(*p)
}

// emergencyStop zeroes manual intensity, disables both channels, and
// signals the engine. The params publish and the signal happen together
// so the actuator cannot be re-driven by a stale snapshot.
func (m *Model) emergencyStop() {
	m.params.ManualIntensity = 0
	m.params.AudioEnabled = false
	m.params.PatternEnabled = false
	m.bridge.Store(m.params)
	m.control.signalStop()
	m.status = "EMERGENCY STOP ACTIVATED"
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	faintStyle = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Shutting down controller...\n"
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("MuchFun Controller"))
	b.WriteString("\n\n")

	b.WriteString(m.renderConnection())
	b.WriteString(m.renderLevels())
	if m.params.VisualizerEnabled {
		b.WriteString(m.renderSpectrum())
	}
	b.WriteString(m.renderParams())

	b.WriteString("\n")
	b.WriteString(faintStyle.Render("↑/↓:Select  ←/→:Adjust  Space:Toggle  e:EMERGENCY STOP  q:Quit"))
	b.WriteString("\n")

	return b.String()
}

// renderConnection renders the connection and statistics lines.
func (m Model) renderConnection() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Connection: "))
	if m.connected {
		b.WriteString(valueStyle.Render(fmt.Sprintf("connected (%s)", m.serverName)))
	} else {
		b.WriteString(alertStyle.Render("disconnected"))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Commands:   "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d sent (%.1f/sec)", m.commandsSent, m.commandsPerSec)))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(headerStyle.Render("Status:     "))
		if strings.Contains(m.status, "EMERGENCY") {
			b.WriteString(alertStyle.Render(m.status))
		} else {
			b.WriteString(valueStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	return b.String()
}

// renderLevels renders the per-channel level bars.
func (m Model) renderLevels() string {
	rows := []struct {
		name  string
		value float64
	}{
		{"Bass    ", m.bass},
		{"Mids    ", m.mids},
		{"Treble  ", m.treble},
		{"Mixed   ", m.mixed},
		{"Smoothed", m.smoothed},
		{"Pattern ", m.patternLevel},
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s [%s] %3.0f%%\n",
			headerStyle.Render(row.name), renderBar(row.value, 100, 24), row.value))
	}
	b.WriteString("\n")

	return b.String()
}

// renderSpectrum renders the 64-bin visualization strip.
func (m Model) renderSpectrum() string {
	blocks := []rune(" ▁▂▃▄▅▆▇█")

	var b strings.Builder
	for _, v := range m.spectrum {
		idx := int(v * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		b.WriteRune(blocks[idx])
	}

	return headerStyle.Render("Spectrum  ") + "[" + b.String() + "]\n\n"
}

// renderParams renders the editable parameter list.
func (m Model) renderParams() string {
	var b strings.Builder

	for p := param(0); p < paramCount; p++ {
		cursor := "  "
		style := valueStyle
		if p == m.selected {
			cursor = "> "
			style = selectedStyle
		}
		b.WriteString(cursor)
		b.WriteString(style.Render(fmt.Sprintf("%-16s %s", paramNames[p], m.paramValue(p))))
		b.WriteString("\n")
	}

	return b.String()
}

// paramValue formats one parameter's current value.
func (m Model) paramValue(p param) string {
	pr := m.params
	switch p {
	case paramManual:
		return fmt.Sprintf("%3.0f%%", pr.ManualIntensity*100)
	case paramSensitivity:
		return fmt.Sprintf("%3.0f%%", pr.Sensitivity)
	case paramFocus:
		return fmt.Sprintf("%+.1f", pr.Focus)
	case paramSmoothingMode:
		return pr.Smoothing.Mode.String()
	case paramStrength:
		return fmt.Sprintf("%3.0f%%", pr.Smoothing.Strength*100)
	case paramAttack:
		return fmt.Sprintf("%.3fs", pr.Smoothing.Attack)
	case paramDecay:
		return fmt.Sprintf("%.3fs", pr.Smoothing.Decay)
	case paramWaveform:
		return pr.Pattern.Waveform.String()
	case paramPatternMax:
		return fmt.Sprintf("%3.0f%%", pr.Pattern.MaxIntensity*100)
	case paramPatternRate:
		return fmt.Sprintf("%.1fx", pr.Pattern.Rate)
	case paramRandomness:
		return fmt.Sprintf("%3.0f%%", pr.Pattern.Randomness*100)
	case paramAudioEnabled:
		return onOff(pr.AudioEnabled)
	case paramPatternEnabled:
		return onOff(pr.PatternEnabled)
	case paramVisualizer:
		return onOff(pr.VisualizerEnabled)
	case paramVerbose:
		return onOff(pr.Verbose)
	}
	return ""
}

// Utility functions
func renderBar(value, max float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > max {
		value = max
	}
	filled := int(value / max * float64(width))

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			b.WriteString("█")
		} else {
			b.WriteString("░")
		}
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cycleMode(m dsp.SmoothingMode, dir int) dsp.SmoothingMode {
	next := (int(m) + dir + 4) % 4
	return dsp.SmoothingMode(next)
}

func cycleWaveform(w pattern.Waveform, dir int) pattern.Waveform {
	n := len(pattern.Waveforms)
	next := (int(w) + dir + n) % n
	return pattern.Waveform(next)
}

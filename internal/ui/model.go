// ABOUTME: Bubbletea model for the speaker TUI
// ABOUTME: Renders pipeline depth, playback clock, and engine counters
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
	"github.com/chipstream-audio/chipstream-go/pkg/render"
)

// pollInterval is how often the TUI samples the renderer.
const pollInterval = 100 * time.Millisecond

// Engine is the slice of the renderer the TUI reads and controls.
type Engine interface {
	BufferSize() int
	SecondsPlayed() float64
	ResetSecondsPlayed()
	Stats() render.Stats
}

// Model represents the TUI state.
type Model struct {
	engine Engine

	// Static identity
	name string
	mode string

	// Pushed by the app via StatusMsg
	format  audio.Format
	senders int

	// Sampled from the engine every poll
	depth   int
	seconds float64
	stats   render.Stats

	showDebug bool

	width  int
	height int
}

// StatusMsg updates externally-owned TUI state.
type StatusMsg struct {
	Format  *audio.Format
	Senders *int
}

// tickMsg drives the engine poll.
type tickMsg time.Time

// NewModel creates a TUI model reading from the given engine.
func NewModel(name, mode string, engine Engine) Model {
	return Model{
		name:   name,
		mode:   mode,
		engine: engine,
	}
}

// Init starts the poll loop.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if m.engine != nil {
			m.depth = m.engine.BufferSize()
			m.seconds = m.engine.SecondsPlayed()
			m.stats = m.engine.Stats()
		}
		return m, tick()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		if m.engine != nil {
			m.engine.ResetSecondsPlayed()
			m.seconds = 0
		}
	case "d":
		m.showDebug = !m.showDebug
	}
	return m, nil
}

func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Format != nil {
		m.format = *msg.Format
	}
	if msg.Senders != nil {
		m.senders = *msg.Senders
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.renderHeader()
	s += m.renderPipeline()
	if m.showDebug {
		s += m.renderDebug()
	}
	s += m.renderHelp()
	return s
}

func (m Model) renderHeader() string {
	format := "no audio yet"
	if m.format.Valid() {
		format = fmt.Sprintf("%dHz %s", m.format.SampleRate, channelName(m.format.Channels))
	}

	return fmt.Sprintf(`┌─ %s ─ %s mode ──────────────────────────┐
│ Format:  %-38s │
│ Senders: %-38d │
├─────────────────────────────────────────────────┤
`, m.name, m.mode, format, m.senders)
}

func (m Model) renderPipeline() string {
	depthMs := 0.0
	if m.format.Valid() {
		depthMs = float64(m.depth) / float64(m.format.SampleRate) * 1000.0
	}

	return fmt.Sprintf("│ Buffer:  %6d samples (%6.1f ms)%-13s │\n"+
		"│ Played:  %10.3f s%-27s │\n"+
		"│ Underruns: %-4d  Format changes: %-4d%-10s │\n",
		m.depth, depthMs, "",
		m.seconds, "",
		m.stats.Underruns, m.stats.FormatChanges, "")
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`├─────────────────────────────────────────────────┤
│ DEBUG: rendered=%d dropped=%d%-18s │
`, m.stats.FramesRendered, m.stats.Dropped, "")
}

func (m Model) renderHelp() string {
	return `├─────────────────────────────────────────────────┤
│ r:Reset clock  d:Debug  q:Quit                  │
└─────────────────────────────────────────────────┘
`
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

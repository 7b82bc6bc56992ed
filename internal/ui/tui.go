// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the speaker UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chipstream-audio/chipstream-go/pkg/audio"
)

// TUI wraps a running bubbletea program.
type TUI struct {
	program *tea.Program
}

// New creates a TUI for the given engine.
func New(name, mode string, engine Engine) *TUI {
	return &TUI{
		program: tea.NewProgram(NewModel(name, mode, engine), tea.WithAltScreen()),
	}
}

// Run blocks until the user quits.
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// SetFormat pushes the current playback format into the view.
func (t *TUI) SetFormat(f audio.Format) {
	t.program.Send(StatusMsg{Format: &f})
}

// SetSenders pushes the connected sender count into the view.
func (t *TUI) SetSenders(n int) {
	t.program.Send(StatusMsg{Senders: &n})
}

// Quit asks the program to exit.
func (t *TUI) Quit() {
	t.program.Quit()
}

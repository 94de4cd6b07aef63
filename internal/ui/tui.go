// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the controller UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muchfun/muchfun-go/internal/bridge"
)

// Control holds channels the TUI uses to signal the main goroutine.
// Signals are level-triggered: repeated key presses collapse into one
// pending signal.
type Control struct {
	Quit          chan struct{}
	EmergencyStop chan struct{}
}

// NewControl creates a new control handler.
func NewControl() *Control {
	return &Control{
		Quit:          make(chan struct{}, 1),
		EmergencyStop: make(chan struct{}, 1),
	}
}

func (c *Control) signalQuit() {
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

func (c *Control) signalStop() {
	select {
	case c.EmergencyStop <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model seeded with the bridge's current
// parameter snapshot.
func NewModel(br *bridge.Bridge, ctrl *Control) Model {
	return Model{
		bridge:  br,
		control: ctrl,
		params:  br.Load(),
	}
}

// Run starts the TUI.
func Run(br *bridge.Bridge, ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(br, ctrl), tea.WithAltScreen())
	return p, nil
}

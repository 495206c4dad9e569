package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/classwatch/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// BadgeProvider is implemented by screens that show a status badge in the
// header, such as LIVE or SIMULATED.
type BadgeProvider interface {
	Badge() string
}

// Broadcast is implemented by messages that must reach every screen on
// the stack, not just the active one. Event pumps use it so a dashboard
// hidden under another screen keeps draining its subscription.
type Broadcast interface {
	Broadcast() bool
}

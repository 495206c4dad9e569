package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/classwatch/internal/ui/theme"
)

// SegmentInput is a single-line entry for typing transcript segments by
// hand. It remembers how the last submission was classified.
type SegmentInput struct {
	Model    textinput.Model
	MaxWidth int

	submitted bool
	onTopic   bool
}

// NewSegmentInput creates a focused input.
func NewSegmentInput(placeholder string, maxWidth int) SegmentInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.Focus()

	if maxWidth > 0 {
		ti.CharLimit = maxWidth
	}

	return SegmentInput{
		Model:    ti,
		MaxWidth: maxWidth,
	}
}

// Init returns the initial command.
func (t SegmentInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages.
func (t SegmentInput) Update(msg tea.Msg) (SegmentInput, tea.Cmd) {
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the input with a marker for the last submission.
func (t SegmentInput) View() string {
	view := t.Model.View()
	if t.submitted {
		if t.onTopic {
			view += " " + lipgloss.NewStyle().Foreground(theme.Success).Render("✓")
		} else {
			view += " " + lipgloss.NewStyle().Foreground(theme.Error).Render("✗")
		}
	}
	return view
}

// Value returns the trimmed input.
func (t SegmentInput) Value() string {
	return strings.TrimSpace(t.Model.Value())
}

// Submit clears the input and records whether the submitted text counted
// as on-topic.
func (t *SegmentInput) Submit(onTopic bool) {
	t.Model.SetValue("")
	t.submitted = true
	t.onTopic = onTopic
}

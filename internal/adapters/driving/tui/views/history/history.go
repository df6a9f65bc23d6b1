// Package history shows the turns the resolver can still refer back to.
package history

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tbqa/internal/core/ports/driving"
)

// View lists the conversation history, newest first.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.TurnList
	statusbar *status.Bar
	qa        driving.QAService

	width  int
	height int
	ready  bool
}

// NewView creates a history view.
func NewView(s *styles.Styles, km *keymap.KeyMap, qa driving.QAService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	bar := status.NewBar(s, km)
	bar.SetState(status.StateHistory)
	return &View{
		styles:    s,
		keymap:    km,
		list:      list.NewTurnList(s),
		statusbar: bar,
		qa:        qa,
	}
}

// Init loads the current history snapshot.
func (v *View) Init() tea.Cmd {
	qa := v.qa
	return func() tea.Msg {
		if qa == nil {
			return messages.HistoryLoaded{}
		}
		return messages.HistoryLoaded{Turns: qa.History()}
	}
}

// Update handles messages for the history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.HistoryLoaded:
		v.list.SetTurns(msg.Turns)
		v.statusbar.SetTurns(len(msg.Turns))
		return v, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), v.keymap.Back) || keymap.Matches(msg.String(), v.keymap.History) {
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }
		}
		var cmd tea.Cmd
		v.list, cmd = v.list.Update(msg)
		return v, cmd
	}
	return v, nil
}

// View renders the history view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("History"),
		"",
		v.list.View(),
		"",
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.list.SetDimensions(width, height-4)
	v.statusbar.SetWidth(width)
}

// Count returns the number of displayed turns.
func (v *View) Count() int {
	return v.list.Count()
}

// Selected returns the selected row.
func (v *View) Selected() int {
	return v.list.Selected()
}

// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// TurnList displays conversation turns in a navigable list, newest first.
type TurnList struct {
	turns    []domain.ConversationTurn
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewTurnList creates a new turn list component.
func NewTurnList(s *styles.Styles) *TurnList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &TurnList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *TurnList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *TurnList) Update(msg tea.Msg) (*TurnList, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}
	switch km.String() {
	case "up", "k":
		l.MoveUp()
	case "down", "j":
		l.MoveDown()
	}
	return l, nil
}

// View renders the list.
func (l *TurnList) View() string {
	if len(l.turns) == 0 {
		return l.styles.Muted.Render("No questions yet")
	}

	lines := make([]string, 0, len(l.turns)*2+2)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Conversation (%d turns)", len(l.turns))), "")

	// Each turn takes two lines.
	visible := (l.height - 4) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := start + visible
	if end > len(l.turns) {
		end = len(l.turns)
	}

	for i := start; i < end; i++ {
		lines = append(lines, l.renderTurn(i, l.turns[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *TurnList) renderTurn(index int, turn domain.ConversationTurn) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	question := truncate(turn.Question, l.width-6)
	var first string
	if index == l.selected {
		first = l.styles.Selected.Render(indicator + question)
	} else {
		first = l.styles.Normal.Render(indicator + question)
	}

	label := "unclassified"
	if turn.HasIntent() {
		label = turn.Intent
		if turn.SubIntent != "" {
			label += "/" + turn.SubIntent
		}
	}
	entities := make([]string, 0, len(turn.Entities))
	for _, e := range turn.Entities {
		entities = append(entities, fmt.Sprintf("%s:%s", e.Type, e.ID))
	}
	room := l.width - 6
	label = truncate(label, room)
	second := "    " + l.styles.IntentTag(turn.Intent).Render(label)
	if len(entities) > 0 {
		if rest := room - len([]rune(label)) - 2; rest >= 10 {
			second += l.styles.Tag.Render("  " + truncate(strings.Join(entities, "  "), rest))
		}
	}

	return first + "\n" + second
}

func truncate(s string, max int) string {
	if max < 10 {
		max = 10
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// SetTurns replaces the list. Turns are given oldest first and shown newest first.
func (l *TurnList) SetTurns(turns []domain.ConversationTurn) {
	l.turns = make([]domain.ConversationTurn, len(turns))
	for i, t := range turns {
		l.turns[len(turns)-1-i] = t
	}
	l.selected = 0
}

// Turns returns the displayed turns, newest first.
func (l *TurnList) Turns() []domain.ConversationTurn {
	return l.turns
}

// Selected returns the index of the selected turn.
func (l *TurnList) Selected() int {
	return l.selected
}

// SelectedTurn returns the selected turn, or nil if the list is empty.
func (l *TurnList) SelectedTurn() *domain.ConversationTurn {
	if l.selected < 0 || l.selected >= len(l.turns) {
		return nil
	}
	return &l.turns[l.selected]
}

// MoveUp moves selection up.
func (l *TurnList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *TurnList) MoveDown() {
	if l.selected < len(l.turns)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *TurnList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of turns.
func (l *TurnList) Count() int {
	return len(l.turns)
}

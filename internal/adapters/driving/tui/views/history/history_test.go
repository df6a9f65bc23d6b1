package history

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tbqa/internal/core/domain"
)

type historyOnly struct {
	turns []domain.ConversationTurn
}

func (h *historyOnly) Answer(context.Context, string) (*domain.Answer, error) { return nil, nil }
func (h *historyOnly) Batch(context.Context, []string) []domain.BatchResult   { return nil }
func (h *historyOnly) AnswerEntries(_ context.Context, in domain.EntriesFile) (domain.EntriesFile, error) {
	return in, nil
}
func (h *historyOnly) Decompose(context.Context, string) (domain.Decomposition, error) {
	return domain.Decomposition{}, nil
}
func (h *historyOnly) FindDrugs(context.Context, string) ([]string, error) { return nil, nil }
func (h *historyOnly) History() []domain.ConversationTurn                  { return h.turns }
func (h *historyOnly) Reset()                                              {}

func turns() []domain.ConversationTurn {
	return []domain.ConversationTurn{
		{ID: "1", Question: "What is Bromfenac?", Entities: []domain.Entity{domain.NewEntity("Bromfenac", "")}},
		{ID: "2", Question: "What are its targets?", Entities: []domain.Entity{domain.NewEntity("Bromfenac", "")},
			Intent: domain.IntentTarget, SubIntent: "target"},
	}
}

func TestView_Init_LoadsHistory(t *testing.T) {
	v := NewView(nil, nil, &historyOnly{turns: turns()})

	msg := v.Init()()

	loaded, ok := msg.(messages.HistoryLoaded)
	require.True(t, ok)
	assert.Len(t, loaded.Turns, 2)
}

func TestView_Init_NoService(t *testing.T) {
	v := NewView(nil, nil, nil)

	assert.Equal(t, messages.HistoryLoaded{}, v.Init()())
}

func TestView_Update_HistoryLoaded(t *testing.T) {
	v := NewView(nil, nil, nil)
	v.SetDimensions(100, 30)

	v, _ = v.Update(messages.HistoryLoaded{Turns: turns()})

	assert.Equal(t, 2, v.Count())
	view := v.View()
	assert.Contains(t, view, "What are its targets?")
	assert.Contains(t, view, "2 remembered turns")
}

func TestView_Update_Navigates(t *testing.T) {
	v := NewView(nil, nil, nil)
	v, _ = v.Update(messages.HistoryLoaded{Turns: turns()})

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})

	assert.Equal(t, 1, v.Selected())
}

func TestView_Update_BackToChat(t *testing.T) {
	for _, key := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlO}} {
		v := NewView(nil, nil, nil)

		_, cmd := v.Update(key)

		require.NotNil(t, cmd)
		assert.Equal(t, messages.ViewChanged{View: messages.ViewChat}, cmd())
	}
}

func TestView_NotReady(t *testing.T) {
	assert.Equal(t, "Initialising...", NewView(nil, nil, nil).View())
}

func TestView_WindowSize(t *testing.T) {
	v := NewView(nil, nil, nil)

	v, _ = v.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.NotEqual(t, "Initialising...", v.View())
}

package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tbqa/internal/core/domain"
)

func newTestApp(t *testing.T, qa *mockQAService) *App {
	t.Helper()
	app, err := NewApp(NewPorts(qa))
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(NewPorts(&mockQAService{}))

	require.NoError(t, err)
	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingQAService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := NewApp(NewPorts(&mockQAService{}))
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	assert.Same(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app, _ := NewApp(NewPorts(&mockQAService{}))

	assert.NotNil(t, app.Init())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, _ := NewApp(NewPorts(&mockQAService{}))

	_, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "tbqa")
}

func TestApp_Update_CtrlCQuits(t *testing.T) {
	app := newTestApp(t, &mockQAService{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_Update_QuitMessage(t *testing.T) {
	app := newTestApp(t, &mockQAService{})

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuestionRoundTrip(t *testing.T) {
	qa := &mockQAService{answerFunc: func(_ context.Context, q string) (*domain.Answer, error) {
		return &domain.Answer{Question: q, Text: "Bromfenac targets Rv1484."}, nil
	}}
	app := newTestApp(t, qa)
	for _, r := range "What are the targets of Bromfenac?" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	answer, err := qa.Answer(context.Background(), "What are the targets of Bromfenac?")
	require.NoError(t, err)
	app.Update(messages.AnswerCompleted{Question: "What are the targets of Bromfenac?", Answer: answer})

	assert.NoError(t, app.Err())
	assert.Contains(t, app.View(), "Bromfenac targets Rv1484.")
}

func TestApp_AnswerError(t *testing.T) {
	app := newTestApp(t, &mockQAService{})
	boom := errors.New("llm unavailable")

	app.Update(messages.AnswerCompleted{Question: "q", Err: boom})

	assert.ErrorIs(t, app.Err(), boom)

	app.Update(messages.ConversationReset{})
	assert.NoError(t, app.Err())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t, &mockQAService{})
	boom := errors.New("boom")

	app.Update(messages.ErrorOccurred{Err: boom})

	assert.ErrorIs(t, app.Err(), boom)
}

func TestApp_HistoryNavigation(t *testing.T) {
	qa := &mockQAService{turns: []domain.ConversationTurn{
		{ID: "1", Question: "What is Ebselen?", Entities: []domain.Entity{domain.NewEntity("Ebselen", "")}},
	}}
	app := newTestApp(t, qa)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, cmd)
	_, cmd = app.Update(cmd())
	assert.Equal(t, messages.ViewHistory, app.CurrentView())

	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Contains(t, app.View(), "What is Ebselen?")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_HelpView(t *testing.T) {
	app := newTestApp(t, &mockQAService{})

	app.Update(messages.ViewChanged{View: messages.ViewHelp})

	view := app.View()
	assert.Contains(t, view, "Help")
	assert.Contains(t, view, "ctrl+r")
	assert.Contains(t, view, "new conversation")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_ResetClearsConversation(t *testing.T) {
	qa := &mockQAService{}
	app := newTestApp(t, qa)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlR})

	require.NotNil(t, cmd)
	assert.Equal(t, 1, qa.resets)
	assert.IsType(t, messages.ConversationReset{}, cmd())
}

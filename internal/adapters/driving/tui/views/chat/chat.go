// Package chat provides the conversational question view for the TUI.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driving"
)

// chrome is the number of lines used by the header, input and status bar.
const chrome = 8

// exchange is one question and its outcome in the transcript.
type exchange struct {
	question string
	answer   *domain.Answer
	err      error
}

// View is the chat view: a scrolling transcript above a question input.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript viewport.Model
	statusbar  *status.Bar

	qa  driving.QAService
	ctx context.Context

	exchanges []exchange
	pending   bool

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, qa driving.QAService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: viewport.New(80, 24-chrome),
		statusbar:  status.NewBar(s, km),
		qa:         qa,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
}

// WithContext sets the context used for pipeline calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.pending = false
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.statusbar, cmd = v.statusbar.Update(msg)
	cmds = append(cmds, cmd)
	v.input, cmd = v.input.Update(msg)
	cmds = append(cmds, cmd)
	return v, tea.Batch(cmds...)
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Help):
		return v, changeView(messages.ViewHelp)

	case keymap.Matches(k, v.keymap.History):
		return v, changeView(messages.ViewHistory)

	case keymap.Matches(k, v.keymap.ScrollUp):
		v.transcript.HalfViewUp()
		return v, nil

	case keymap.Matches(k, v.keymap.ScrollDown):
		v.transcript.HalfViewDown()
		return v, nil

	case keymap.Matches(k, v.keymap.Reset):
		if v.pending {
			return v, nil
		}
		return v, v.reset()

	case keymap.Matches(k, v.keymap.Submit):
		question := strings.TrimSpace(v.input.Value())
		if question == "" || v.pending {
			return v, nil
		}
		v.pending = true
		v.input.Reset()
		v.exchanges = append(v.exchanges, exchange{question: question})
		v.refresh()
		return v, tea.Batch(v.statusbar.SetState(status.StateThinking), v.ask(question))
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg {
		return messages.ViewChanged{View: view}
	}
}

// ask runs the pipeline off the update loop.
func (v *View) ask(question string) tea.Cmd {
	qa, ctx := v.qa, v.ctx
	return func() tea.Msg {
		if qa == nil {
			return messages.AnswerCompleted{Question: question, Err: ErrNoQAService}
		}
		answer, err := qa.Answer(ctx, question)
		return messages.AnswerCompleted{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) reset() tea.Cmd {
	if v.qa != nil {
		v.qa.Reset()
	}
	v.exchanges = nil
	v.statusbar.Clear()
	v.statusbar.SetMessage("New conversation")
	v.refresh()
	return func() tea.Msg { return messages.ConversationReset{} }
}

// handleAnswer fills in the pending exchange for msg.Question.
func (v *View) handleAnswer(msg messages.AnswerCompleted) {
	v.pending = false
	for i := len(v.exchanges) - 1; i >= 0; i-- {
		if v.exchanges[i].question == msg.Question && v.exchanges[i].answer == nil && v.exchanges[i].err == nil {
			v.exchanges[i].answer = msg.Answer
			v.exchanges[i].err = msg.Err
			break
		}
	}

	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else {
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage("")
		v.statusbar.SetTurns(len(v.exchanges))
	}
	v.refresh()
}

// refresh re-renders the transcript and keeps the newest exchange in view.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.exchanges) == 0 {
		return v.styles.Muted.Render("Ask a question about a tuberculosis drug, its targets, pathways,\n" +
			"repurposing experiments or susceptibility tests. Follow-ups may say \"it\".")
	}

	wrap := v.width - 4
	if wrap < 20 {
		wrap = 20
	}

	blocks := make([]string, 0, len(v.exchanges))
	for _, ex := range v.exchanges {
		lines := []string{v.styles.Question.Render("> " + ex.question)}
		switch {
		case ex.err != nil:
			lines = append(lines, v.styles.Error.Render("  "+ex.err.Error()))
		case ex.answer == nil:
			lines = append(lines, v.styles.Muted.Render("  ..."))
		default:
			if tags := v.intentTags(ex.answer); tags != "" {
				lines = append(lines, "  "+tags)
			}
			text := ex.answer.Text
			if strings.TrimSpace(text) == "" {
				text = "(no answer: the completion service returned nothing)"
			}
			lines = append(lines, v.styles.Answer.Width(wrap).Render(text))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// intentTags summarises how each atomic question was classified, one
// coloured label per intent.
func (v *View) intentTags(a *domain.Answer) string {
	tags := make([]string, 0, len(a.Intents))
	for _, r := range a.Intents {
		tag := r.Intent
		if e, ok := r.Entity(); ok && !e.IsUnknown() {
			tag += " · " + e.ID
		}
		tags = append(tags, v.styles.IntentTag(r.Intent).Render(tag))
	}
	return strings.Join(tags, v.styles.Tag.Render("  |  "))
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("tbqa")+v.styles.Muted.Render("  tuberculosis drug knowledge graph"),
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		"",
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.transcript.Width = width
	v.transcript.Height = height - chrome
	if v.transcript.Height < 3 {
		v.transcript.Height = 3
	}
	v.refresh()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Pending reports whether an answer is being computed.
func (v *View) Pending() bool {
	return v.pending
}

// Input returns the current question text.
func (v *View) Input() string {
	return v.input.Value()
}

// SetInput sets the question text.
func (v *View) SetInput(s string) {
	v.input.SetValue(s)
}

// Exchanges returns the number of questions in the transcript.
func (v *View) Exchanges() int {
	return len(v.exchanges)
}

// LastAnswer returns the most recent answer, if any.
func (v *View) LastAnswer() *domain.Answer {
	for i := len(v.exchanges) - 1; i >= 0; i-- {
		if v.exchanges[i].answer != nil {
			return v.exchanges[i].answer
		}
	}
	return nil
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// Focus returns focus to the question input.
func (v *View) Focus() tea.Cmd {
	return v.input.Focus()
}

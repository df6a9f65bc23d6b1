// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// Theme is the palette. Every colour adapts to light and dark terminals.
type Theme struct {
	// Accent marks the user's questions and the selected turn.
	Accent lipgloss.AdaptiveColor

	Text    lipgloss.AdaptiveColor
	Subtle  lipgloss.AdaptiveColor
	Surface lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor
	Frame   lipgloss.AdaptiveColor

	// Intents colours the intent labels, keyed by intent name.
	Intents map[string]lipgloss.AdaptiveColor

	// Unclassified colours labels of turns without an intent.
	Unclassified lipgloss.AdaptiveColor
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:  lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"},
		Text:    lipgloss.AdaptiveColor{Light: "#4C4F69", Dark: "#CDD6F4"},
		Subtle:  lipgloss.AdaptiveColor{Light: "#8C8FA1", Dark: "#6C7086"},
		Surface: lipgloss.AdaptiveColor{Light: "#E6E9EF", Dark: "#181825"},
		Danger:  lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"},
		Frame:   lipgloss.AdaptiveColor{Light: "#BCC0CC", Dark: "#45475A"},
		Intents: map[string]lipgloss.AdaptiveColor{
			domain.IntentDrugInformation:      {Light: "#179299", Dark: "#94E2D5"},
			domain.IntentTarget:               {Light: "#40A02B", Dark: "#A6E3A1"},
			domain.IntentPathway:              {Light: "#8839EF", Dark: "#CBA6F7"},
			domain.IntentDrugRepurposingAssay: {Light: "#FE640B", Dark: "#FAB387"},
			domain.IntentDrugSensitivityTest:  {Light: "#DF8E1D", Dark: "#F9E2AF"},
		},
		Unclassified: lipgloss.AdaptiveColor{Light: "#9CA0B0", Dark: "#7F849C"},
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style

	// Question renders the user's turn in the transcript.
	Question lipgloss.Style

	// Answer renders the synthesised answer, indented under its question.
	Answer lipgloss.Style

	// Tag renders entity labels and separators between intent labels.
	Tag lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style

	intents map[string]lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme means DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	s := &Styles{
		theme:    theme,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Text),
		Normal:   lipgloss.NewStyle().Foreground(theme.Text),
		Muted:    lipgloss.NewStyle().Foreground(theme.Subtle),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(theme.Surface).Background(theme.Accent),
		Error:    lipgloss.NewStyle().Foreground(theme.Danger),
		Question: lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Answer:   lipgloss.NewStyle().Foreground(theme.Text).PaddingLeft(2),
		Tag:      lipgloss.NewStyle().Foreground(theme.Subtle).Italic(true),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Subtle).
			Background(theme.Surface).
			Padding(0, 1),
		Help:    lipgloss.NewStyle().Foreground(theme.Subtle),
		intents: make(map[string]lipgloss.Style, len(theme.Intents)),
	}
	for name, c := range theme.Intents {
		s.intents[name] = lipgloss.NewStyle().Foreground(c).Italic(true)
	}
	return s
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// IntentTag returns the label style for intent. Unknown and empty intents
// share the unclassified colour.
func (s *Styles) IntentTag(intent string) lipgloss.Style {
	if st, ok := s.intents[intent]; ok {
		return st
	}
	return lipgloss.NewStyle().Foreground(s.theme.Unclassified).Italic(true)
}

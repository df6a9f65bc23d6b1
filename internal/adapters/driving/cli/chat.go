package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tbqa/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Start an interactive conversation",
	Long: `Start an interactive terminal conversation about tuberculosis drugs.

Follow-up questions may refer back to drugs from earlier questions
("What are its targets?"). The conversation is kept until you reset it.

Controls:
  enter      - Ask the typed question
  pgup/pgdn  - Scroll the transcript
  ctrl+r     - Start a new conversation
  ctrl+o     - Show remembered turns
  f1         - Toggle help
  ctrl+c     - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("chat crashed: %v", r)
		}
	}()

	svc, err := requireQA(cmd)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(tui.NewPorts(svc))
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	app.WithContext(cmdContext(cmd))

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmdContext(cmd)))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}

package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question",
	Long: `Answers one question from the knowledge graph.

Use "-" to read the question from stdin.

Examples:
  tbqa ask "What is the MIC value of ebselen?"
  echo "What are the targets of bromfenac?" | tbqa ask -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer and structured data as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question, err := readQuestion(cmd, args)
	if err != nil {
		return err
	}

	svc, err := requireQA(cmd)
	if err != nil {
		return err
	}

	answer, err := svc.Answer(cmdContext(cmd), question)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	if answer.Text == "" {
		cmd.Println("(no answer: the completion service returned nothing)")
		return nil
	}
	cmd.Println(answer.Text)
	return nil
}

// readQuestion joins args, or reads stdin when the only arg is "-".
// An interactive stdin is prompted for a single line.
func readQuestion(cmd *cobra.Command, args []string) (string, error) {
	if len(args) != 1 || args[0] != "-" {
		return strings.Join(args, " "), nil
	}

	in := cmd.InOrStdin()
	var data string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Question: ")
		line, err := bufio.NewReader(f).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading question: %w", err)
		}
		data = line
	} else {
		raw, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading question: %w", err)
		}
		data = string(raw)
	}

	question := strings.TrimSpace(data)
	if question == "" {
		return "", fmt.Errorf("%w: empty question on stdin", domain.ErrInvalidInput)
	}
	return question, nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

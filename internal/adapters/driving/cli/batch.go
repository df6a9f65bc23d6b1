package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

var batchJSON bool

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Answer one question per line of a file",
	Long: `Answers every non-blank line of a text file as a question, in order,
within one conversation. A failed question does not stop the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(batchCmd)
}

// batchOutput is the JSON form of one batch result.
type batchOutput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Error    string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	questions, err := readQuestionLines(args[0])
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: %s has no questions", domain.ErrInvalidInput, args[0])
	}

	svc, err := requireQA(cmd)
	if err != nil {
		return err
	}

	results := svc.Batch(cmdContext(cmd), questions)

	if batchJSON {
		out := make([]batchOutput, 0, len(results))
		for _, r := range results {
			o := batchOutput{Question: r.Question, Answer: r.Answer}
			if r.Err != nil {
				o.Error = r.Err.Error()
			}
			out = append(out, o)
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	failed := 0
	for _, r := range results {
		cmd.Println(r.Question)
		if r.Err != nil {
			failed++
			cmd.Printf("  error: %v\n", r.Err)
		} else {
			cmd.Println(r.Answer)
		}
		cmd.Println(separator)
	}
	if failed > 0 {
		cmd.Printf("%d of %d questions failed\n", failed, len(results))
	}
	return nil
}

func readQuestionLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening questions: %w", err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			questions = append(questions, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}
	return questions, nil
}

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// separator divides answers in text output.
var separator = strings.Repeat("=", 80)

var entriesCmd = &cobra.Command{
	Use:   "entries [input.json] [output.json]",
	Short: "Answer the questions of an entries file",
	Long: `Reads {"entries": [{"question": ...}, ...]}, answers every question and
writes the entries back with an "answer" field. Other entry fields are kept.`,
	Args: cobra.ExactArgs(2),
	RunE: runEntries,
}

var splitCmd = &cobra.Command{
	Use:   "split [input.json] [output.json]",
	Short: "Split the questions of an entries file into atomic questions",
	Long: `Reads {"entries": [{"question": ...}, ...]} and writes
{"questions": [{"original_question": ..., "atomic_questions": [...]}, ...]}
without answering anything.`,
	Args: cobra.ExactArgs(2),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(splitCmd)
}

func runEntries(cmd *cobra.Command, args []string) error {
	in, err := readEntriesFile(args[0])
	if err != nil {
		return err
	}

	svc, err := requireQA(cmd)
	if err != nil {
		return err
	}

	out, err := svc.AnswerEntries(cmdContext(cmd), in)
	if err != nil {
		return fmt.Errorf("answering entries: %w", err)
	}

	for _, e := range out.Entries {
		cmd.Println(separator)
		answer, _ := e["answer"].(string)
		cmd.Println(answer)
	}

	return writeJSONFile(args[1], out, "    ")
}

func runSplit(cmd *cobra.Command, args []string) error {
	in, err := readEntriesFile(args[0])
	if err != nil {
		return err
	}
	if len(in.Entries) == 0 {
		return domain.ErrNoEntries
	}

	svc, err := requireQA(cmd)
	if err != nil {
		return err
	}

	ctx := cmdContext(cmd)
	out := domain.QuestionsFile{Questions: make([]domain.Decomposition, 0, len(in.Entries))}
	for _, e := range in.Entries {
		q := e.Question()
		d, err := svc.Decompose(ctx, q)
		if err != nil {
			// Keep the file aligned with the input.
			d = domain.Decomposition{OriginalQuestion: q, AtomicQuestions: []string{}}
		}
		out.Questions = append(out.Questions, d)
	}

	if err := writeJSONFile(args[1], out, "  "); err != nil {
		return err
	}
	cmd.Printf("Split %d questions into %s\n", len(out.Questions), args[1])
	return nil
}

func readEntriesFile(path string) (domain.EntriesFile, error) {
	var in domain.EntriesFile
	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("reading entries: %w", err)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidInput, path, err)
	}
	return in, nil
}

// writeJSONFile writes v without HTML escaping so non-ASCII and markup survive as-is.
func writeJSONFile(path string, v any, indent string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

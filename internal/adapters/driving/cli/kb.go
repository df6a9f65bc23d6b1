package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Knowledge-graph commands",
}

var kbImportCmd = &cobra.Command{
	Use:   "import [fixture.yaml]",
	Short: "Load a YAML knowledge-graph fixture into the embedded store",
	Long: `Replaces the contents of the embedded SQLite knowledge store with the
drugs, targets, pathways, experiments, susceptibility tests and references
of a YAML fixture. Set kb.backend to "sqlite" to answer from it.`,
	Args: cobra.ExactArgs(1),
	RunE: runKBImport,
}

var kbFindCmd = &cobra.Command{
	Use:   "find [text]",
	Short: "Find drugs whose names contain any word of the text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKBFind,
}

func init() {
	kbCmd.AddCommand(kbImportCmd)
	kbCmd.AddCommand(kbFindCmd)
	rootCmd.AddCommand(kbCmd)
}

func runKBImport(cmd *cobra.Command, args []string) error {
	imp, err := requireImporter()
	if err != nil {
		return err
	}

	summary, err := imp.Import(cmdContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Printf("Imported %d drugs, %d targets, %d pathways and %d references into %s\n",
		summary.Drugs, summary.Targets, summary.Pathways, summary.References, summary.Store)
	return nil
}

func runKBFind(cmd *cobra.Command, args []string) error {
	svc, err := requireQA(cmd)
	if err != nil {
		return err
	}

	text := args[0]
	for _, a := range args[1:] {
		text += " " + a
	}
	names, err := svc.FindDrugs(cmdContext(cmd), text)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		cmd.Println("No drugs found.")
		return nil
	}
	for _, name := range names {
		cmd.Printf("  %s\n", name)
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `View and change tbqa settings. Settings live in config.toml inside the
configuration directory (default ~/.tbqa).`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Change one setting by its key, for example:

  tbqa config set llm.model qwen2.5:14b
  tbqa config set kb.backend neo4j
  tbqa config set session.history_size 20`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset [key]",
	Short: "Restore one setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured services are reachable",
	Long: `Validates the settings, then probes the completion service, the NLP
sidecar and the knowledge base. Exits non-zero if any probe fails.`,
	RunE: runConfigCheck,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the recognised setting keys",
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
	cmd.Printf("  Temperature: %g\n", settings.LLM.Temperature)
	cmd.Printf("  Max tokens: %d\n", settings.LLM.MaxTokens)
	cmd.Printf("  Timeout: %s\n", settings.LLM.Timeout)
	cmd.Printf("  Requests/second: %g\n", settings.LLM.RequestsPerSecond)
	cmd.Println()

	cmd.Println("[NLP]")
	cmd.Printf("  Base URL: %s\n", settings.NLP.BaseURL)
	cmd.Printf("  Tagger model: %s\n", settings.NLP.TaggerModel)
	cmd.Printf("  Parser model: %s\n", settings.NLP.ParserModel)
	cmd.Println()

	kb := settings.Knowledge
	cmd.Println("[Knowledge base]")
	cmd.Printf("  Backend: %s\n", kb.Backend.Description())
	switch kb.Backend {
	case domain.KnowledgeBackendNeo4j:
		cmd.Printf("  URI: %s\n", kb.Neo4j.URI)
		cmd.Printf("  User: %s\n", kb.Neo4j.User)
		if kb.Neo4j.Password != "" {
			cmd.Printf("  Password: %s\n", maskAPIKey(kb.Neo4j.Password))
		} else {
			cmd.Println("  Password: (not set)")
		}
		if kb.Neo4j.Database != "" {
			cmd.Printf("  Database: %s\n", kb.Neo4j.Database)
		}
	case domain.KnowledgeBackendSQLite:
		cmd.Printf("  Data dir: %s\n", orDefault(kb.SQLiteDir))
	case domain.KnowledgeBackendMemory:
		cmd.Printf("  Fixture: %s\n", orDefault(kb.Fixture))
	}
	cmd.Println()

	cmd.Println("[Session]")
	cmd.Printf("  History size: %d\n", settings.Session.HistorySize)
	cmd.Printf("  Render cache size: %d\n", settings.Session.RenderCacheSize)
	cmd.Println()

	cmd.Println("[Prompts]")
	cmd.Printf("  Dir: %s\n", orDefault(settings.Prompts.Dir))
	cmd.Printf("  Watch: %t\n", settings.Prompts.Watch)

	if err := svc.Validate(); err != nil {
		cmd.Println()
		cmd.Println("Problems:")
		printProblems(cmd, err)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	if err := svc.Set(args[0], args[1]); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("%w (see 'tbqa config keys')", err)
		}
		return err
	}
	cmd.Printf("%s updated\n", args[0])

	if err := svc.Validate(); err != nil {
		cmd.Println("Warning: settings are incomplete:")
		printProblems(cmd, err)
	}
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}

	if err := svc.Unset(args[0]); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("%w (see 'tbqa config keys')", err)
		}
		return err
	}
	cmd.Printf("%s reset to default\n", args[0])
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	svc, err := requireSettings()
	if err != nil {
		return err
	}
	for _, k := range svc.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if wiring == nil {
		return errors.New("service checks not configured")
	}

	checks, err := wiring.Check(cmdContext(cmd), configDir)
	if err != nil {
		cmd.Println("Settings are invalid:")
		printProblems(cmd, err)
		return errCheckFailed
	}

	failed := 0
	for _, c := range checks {
		if c.OK() {
			cmd.Printf("  ok    %s (%s)\n", c.Name, c.Detail)
			continue
		}
		failed++
		cmd.Printf("  FAIL  %s (%s): %v\n", c.Name, c.Detail, c.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errCheckFailed, failed, len(checks))
	}
	return nil
}

// errCheckFailed reports that config check found problems.
var errCheckFailed = errors.New("service check failed")

func printProblems(cmd *cobra.Command, err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			cmd.Printf("  - %v\n", e)
		}
		return
	}
	cmd.Printf("  - %v\n", err)
}

func orDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(default)"
	}
	return s
}

// maskAPIKey masks a secret for display, showing only the first and last 4 characters.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

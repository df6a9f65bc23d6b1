// Package cli implements the tbqa command line.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driving"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Wiring builds the core services once flags are parsed.
// Each method is called at most once per process.
type Wiring interface {
	Settings(configDir string) (driving.SettingsService, error)
	QA(ctx context.Context, configDir string) (driving.QAService, error)
	Importer(configDir string) (driving.KnowledgeImporter, error)
	Check(ctx context.Context, configDir string) ([]domain.ComponentCheck, error)
	Close() error
}

var (
	verbose   bool
	configDir string

	wiring Wiring

	qaService       driving.QAService
	settingsService driving.SettingsService
	kbImporter      driving.KnowledgeImporter
)

var rootCmd = &cobra.Command{
	Use:   "tbqa",
	Short: "Ask questions about tuberculosis drugs",
	Long: `tbqa answers natural-language questions about tuberculosis drugs from a
knowledge graph of drugs, protein targets, pathways, repurposing experiments
and susceptibility tests.

Compound questions are split into atomic ones, each is classified and answered
from the graph, and an LLM writes the final answer. Follow-up questions may
refer back to earlier drugs ("What are its targets?").`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if wiring != nil {
			if err := wiring.Close(); err != nil {
				logger.Warn("closing services: %v", err)
			}
		}
		_ = logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.tbqa)")
}

// SetWiring installs the service builder used by commands.
func SetWiring(w Wiring) {
	wiring = w
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Command output goes to stdout and
// diagnostics to stderr.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	return rootCmd.ExecuteContext(ctx)
}

func requireQA(cmd *cobra.Command) (driving.QAService, error) {
	if qaService != nil {
		return qaService, nil
	}
	if wiring == nil {
		return nil, errors.New("qa service not configured")
	}
	svc, err := wiring.QA(cmdContext(cmd), configDir)
	if err != nil {
		return nil, err
	}
	qaService = svc
	return svc, nil
}

func requireSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	if wiring == nil {
		return nil, errors.New("settings service not configured")
	}
	svc, err := wiring.Settings(configDir)
	if err != nil {
		return nil, err
	}
	settingsService = svc
	return svc, nil
}

func requireImporter() (driving.KnowledgeImporter, error) {
	if kbImporter != nil {
		return kbImporter, nil
	}
	if wiring == nil {
		return nil, errors.New("knowledge importer not configured")
	}
	imp, err := wiring.Importer(configDir)
	if err != nil {
		return nil, err
	}
	kbImporter = imp
	return imp, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

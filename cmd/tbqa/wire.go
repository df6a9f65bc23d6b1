package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/custodia-labs/tbqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/tbqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tbqa/internal/adapters/driven/nlp/spacy"
	"github.com/custodia-labs/tbqa/internal/adapters/driven/prompt"
	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/fixture"
	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/neo4j"
	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tbqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/core/ports/driving"
	"github.com/custodia-labs/tbqa/internal/core/services"
	"github.com/custodia-labs/tbqa/internal/logger"
)

var _ cli.Wiring = (*container)(nil)

// checkTimeout bounds each connectivity probe.
const checkTimeout = 5 * time.Second

// container builds the adapters and services from settings and owns their lifetimes.
type container struct {
	mu sync.Mutex

	settings *services.SettingsService
	closers  []func() error
	cancel   context.CancelFunc

	// Overridable for tests.
	newKnowledgeBase func(ctx context.Context, kb domain.KnowledgeSettings) (driven.KnowledgeBase, error)
}

func newContainer() *container {
	c := &container{}
	c.newKnowledgeBase = c.openKnowledgeBase
	return c
}

// Settings returns the settings service over config.toml in configDir.
func (c *container) Settings(configDir string) (driving.SettingsService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settingsLocked(configDir)
}

func (c *container) settingsLocked(configDir string) (*services.SettingsService, error) {
	if c.settings != nil {
		return c.settings, nil
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	c.settings = services.NewSettingsService(store)
	return c.settings, nil
}

// QA builds the question-answering pipeline. Invalid settings are reported
// all at once before anything is connected.
func (c *container) QA(ctx context.Context, configDir string) (driving.QAService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	svc, err := c.settingsLocked(configDir)
	if err != nil {
		return nil, err
	}
	if err := svc.Validate(); err != nil {
		return nil, fmt.Errorf("settings are invalid (see 'tbqa config show'): %w", err)
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, err
	}
	if configDir != "" {
		settings.Knowledge.SQLiteDir = defaultDir(settings.Knowledge.SQLiteDir, configDir, "data")
		settings.Prompts.Dir = defaultDir(settings.Prompts.Dir, configDir, "prompts")
	}

	kb, err := c.newKnowledgeBase(ctx, settings.Knowledge)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, kb.Close)

	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}
	if llm != nil {
		c.closers = append(c.closers, llm.Close)
	}

	nlp := newNLPClient(settings.NLP)

	prompts, err := file.NewPromptStore(settings.Prompts.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	qa, err := services.NewQAService(services.QAConfig{
		Tagger:          nlp,
		Parser:          nlp,
		LLM:             llm,
		PromptStore:     prompts,
		KnowledgeBase:   kb,
		Renderer:        prompt.NewRenderer(prompts),
		StopTerms:       services.DefaultStopTerms(),
		Rules:           domain.DefaultSynonymRules(),
		Examples:        domain.DefaultFewShotExamples(),
		Projection:      domain.DefaultFieldProjection(),
		HistorySize:     settings.Session.HistorySize,
		RenderCacheSize: settings.Session.RenderCacheSize,
		Temperature:     settings.LLM.Temperature,
		MaxTokens:       settings.LLM.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	if settings.Prompts.Watch {
		c.watchPrompts(ctx, prompts, qa)
	}
	return qa, nil
}

// watchPrompts reloads edited prompts for the rest of the process.
// A watcher that cannot start is logged and skipped.
func (c *container) watchPrompts(ctx context.Context, prompts *file.PromptStore, qa *services.QAService) {
	watchCtx, cancel := context.WithCancel(ctx)
	done, err := prompts.Watch(watchCtx, func(name string) {
		if name == driven.PromptAnswerSystem {
			qa.InvalidateRenders()
		}
	})
	if err != nil {
		cancel()
		logger.Warn("prompt hot reload disabled: %v", err)
		return
	}
	c.cancel = cancel
	c.closers = append(c.closers, func() error {
		<-done
		return nil
	})
}

// openKnowledgeBase connects the configured backend.
func (c *container) openKnowledgeBase(ctx context.Context, kb domain.KnowledgeSettings) (driven.KnowledgeBase, error) {
	switch kb.Backend {
	case domain.KnowledgeBackendNeo4j:
		store, err := neo4j.New(ctx, neo4j.Config{
			URI:      kb.Neo4j.URI,
			User:     kb.Neo4j.User,
			Password: kb.Neo4j.Password,
			Database: kb.Neo4j.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseUnavailable, err)
		}
		return store, nil
	case domain.KnowledgeBackendSQLite:
		store, err := sqlite.NewStore(kb.SQLiteDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseUnavailable, err)
		}
		return store.KnowledgeBase(), nil
	case domain.KnowledgeBackendMemory:
		store, err := memory.NewKnowledgeBaseFromFile(kb.Fixture)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown knowledge backend %q", domain.ErrInvalidConfig, kb.Backend)
	}
}

// Check probes the completion service, the NLP sidecar and the knowledge base.
// Invalid settings are returned as an error without probing anything.
func (c *container) Check(ctx context.Context, configDir string) ([]domain.ComponentCheck, error) {
	c.mu.Lock()
	svc, err := c.settingsLocked(configDir)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := svc.Validate(); err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, err
	}
	if configDir != "" {
		settings.Knowledge.SQLiteDir = defaultDir(settings.Knowledge.SQLiteDir, configDir, "data")
	}

	llmCheck := domain.ComponentCheck{
		Name:   "Completion service",
		Detail: fmt.Sprintf("%s, %s at %s", settings.LLM.Provider.Description(), settings.LLM.Model, settings.LLM.BaseURL),
		Err:    ai.NewConfigValidator().ValidateLLM(ctx, &settings.LLM),
	}

	nlpCheck := domain.ComponentCheck{
		Name:   "NLP sidecar",
		Detail: settings.NLP.BaseURL,
	}
	pingCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	nlpCheck.Err = newNLPClient(settings.NLP).Ping(pingCtx)
	cancel()

	kbCheck := domain.ComponentCheck{
		Name:   "Knowledge base",
		Detail: settings.Knowledge.Backend.Description(),
	}
	kbCheck.Err = c.probeKnowledgeBase(ctx, settings.Knowledge)

	return []domain.ComponentCheck{llmCheck, nlpCheck, kbCheck}, nil
}

// probeKnowledgeBase opens the store and runs one drug-name lookup.
func (c *container) probeKnowledgeBase(ctx context.Context, settings domain.KnowledgeSettings) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	kb, err := c.newKnowledgeBase(ctx, settings)
	if err != nil {
		return err
	}
	defer kb.Close()

	_, err = kb.FindDrugs(ctx, []string{"a"})
	return err
}

func newNLPClient(settings domain.NLPSettings) *spacy.Client {
	return spacy.NewClient(spacy.Config{
		BaseURL:     settings.BaseURL,
		TaggerModel: settings.TaggerModel,
		ParserModel: settings.ParserModel,
	})
}

// Importer loads fixtures into the sqlite store named by kb.sqlite_dir,
// whatever the configured backend.
func (c *container) Importer(configDir string) (driving.KnowledgeImporter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	svc, err := c.settingsLocked(configDir)
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, err
	}
	dir := settings.Knowledge.SQLiteDir
	if configDir != "" {
		dir = defaultDir(dir, configDir, "data")
	}
	return &sqliteImporter{dir: dir}, nil
}

// Close stops the prompt watcher and releases every opened adapter.
func (c *container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	var result *multierror.Error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.closers = nil
	return result.ErrorOrNil()
}

// sqliteImporter implements driving.KnowledgeImporter.
type sqliteImporter struct {
	dir string
}

func (i *sqliteImporter) Import(ctx context.Context, path string) (domain.ImportSummary, error) {
	g, err := fixture.Load(path)
	if err != nil {
		return domain.ImportSummary{}, err
	}

	store, err := sqlite.NewStore(i.dir)
	if err != nil {
		return domain.ImportSummary{}, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseUnavailable, err)
	}
	defer store.Close()

	if err := store.Import(ctx, g); err != nil {
		return domain.ImportSummary{}, err
	}
	return domain.ImportSummary{
		Store:      store.Path(),
		Drugs:      len(g.Drugs),
		Targets:    len(g.Targets),
		Pathways:   len(g.Pathways),
		References: len(g.References),
	}, nil
}

// defaultDir returns dir, or configDir/name when dir is unset.
func defaultDir(dir, configDir, name string) string {
	if dir != "" {
		return dir
	}
	return filepath.Join(configDir, name)
}

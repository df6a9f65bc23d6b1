package services

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider     = "llm.provider"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMModel        = "llm.model"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxTokens    = "llm.max_tokens"
	keyLLMTimeout      = "llm.timeout_seconds"
	keyLLMRate         = "llm.requests_per_second"
	keyNLPBaseURL      = "nlp.base_url"
	keyNLPTaggerModel  = "nlp.tagger_model"
	keyNLPParserModel  = "nlp.parser_model"
	keyKBBackend       = "kb.backend"
	keyKBSQLiteDir     = "kb.sqlite_dir"
	keyKBFixture       = "kb.fixture"
	keyNeo4jURI        = "neo4j.uri"
	keyNeo4jUser       = "neo4j.user"
	keyNeo4jPassword   = "neo4j.password"
	keyNeo4jDatabase   = "neo4j.database"
	keyHistorySize     = "session.history_size"
	keyRenderCacheSize = "session.render_cache_size"
	keyPromptsDir      = "prompts.dir"
	keyPromptsWatch    = "prompts.watch"
)

// Environment fallbacks for secrets.
//
//nolint:gosec // G101: environment variable names.
const (
	envLLMAPIKey     = "TBQA_LLM_API_KEY"
	envOpenAIAPIKey  = "OPENAI_API_KEY"
	envNeo4jPassword = "NEO4J_PASSWORD"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
)

// settingKeys lists every recognised key in display order.
var settingKeys = []struct {
	key  string
	kind valueKind
}{
	{keyLLMProvider, kindString},
	{keyLLMBaseURL, kindString},
	{keyLLMAPIKey, kindString},
	{keyLLMModel, kindString},
	{keyLLMTemperature, kindFloat},
	{keyLLMMaxTokens, kindInt},
	{keyLLMTimeout, kindInt},
	{keyLLMRate, kindFloat},
	{keyNLPBaseURL, kindString},
	{keyNLPTaggerModel, kindString},
	{keyNLPParserModel, kindString},
	{keyKBBackend, kindString},
	{keyKBSQLiteDir, kindString},
	{keyKBFixture, kindString},
	{keyNeo4jURI, kindString},
	{keyNeo4jUser, kindString},
	{keyNeo4jPassword, kindString},
	{keyNeo4jDatabase, kindString},
	{keyHistorySize, kindInt},
	{keyRenderCacheSize, kindInt},
	{keyPromptsDir, kindString},
	{keyPromptsWatch, kindBool},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider:          domain.AIProvider(s.getString(keyLLMProvider, defaults.LLM.Provider.String())),
			BaseURL:           s.getString(keyLLMBaseURL, defaults.LLM.BaseURL),
			APIKey:            s.getString(keyLLMAPIKey, s.envOr(defaults.LLM.APIKey, envLLMAPIKey, envOpenAIAPIKey)),
			Model:             s.getString(keyLLMModel, defaults.LLM.Model),
			Temperature:       s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:         s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
			Timeout:           time.Duration(s.getInt(keyLLMTimeout, int(defaults.LLM.Timeout/time.Second))) * time.Second,
			RequestsPerSecond: s.getFloat(keyLLMRate, defaults.LLM.RequestsPerSecond),
		},
		NLP: domain.NLPSettings{
			BaseURL:     s.getString(keyNLPBaseURL, defaults.NLP.BaseURL),
			TaggerModel: s.getString(keyNLPTaggerModel, defaults.NLP.TaggerModel),
			ParserModel: s.getString(keyNLPParserModel, defaults.NLP.ParserModel),
		},
		Knowledge: domain.KnowledgeSettings{
			Backend:   domain.KnowledgeBackend(s.getString(keyKBBackend, defaults.Knowledge.Backend.String())),
			SQLiteDir: s.getString(keyKBSQLiteDir, ""), // Empty means the data dir next to the config
			Fixture:   s.getString(keyKBFixture, ""),
			Neo4j: domain.Neo4jSettings{
				URI:      s.getString(keyNeo4jURI, defaults.Knowledge.Neo4j.URI),
				User:     s.getString(keyNeo4jUser, defaults.Knowledge.Neo4j.User),
				Password: s.getString(keyNeo4jPassword, s.envOr("", envNeo4jPassword)),
				Database: s.getString(keyNeo4jDatabase, ""),
			},
		},
		Session: domain.SessionSettings{
			HistorySize:     s.getInt(keyHistorySize, defaults.Session.HistorySize),
			RenderCacheSize: s.getInt(keyRenderCacheSize, defaults.Session.RenderCacheSize),
		},
		Prompts: domain.PromptSettings{
			Dir:   s.getString(keyPromptsDir, ""),
			Watch: s.getBool(keyPromptsWatch, defaults.Prompts.Watch),
		},
	}

	return settings, nil
}

// Save persists application settings.
// Secrets are only written when set, so environment fallbacks stay in effect.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMTimeout, int(settings.LLM.Timeout / time.Second)},
		{keyLLMRate, settings.LLM.RequestsPerSecond},
		{keyNLPBaseURL, settings.NLP.BaseURL},
		{keyNLPTaggerModel, settings.NLP.TaggerModel},
		{keyNLPParserModel, settings.NLP.ParserModel},
		{keyKBBackend, settings.Knowledge.Backend.String()},
		{keyKBSQLiteDir, settings.Knowledge.SQLiteDir},
		{keyKBFixture, settings.Knowledge.Fixture},
		{keyNeo4jURI, settings.Knowledge.Neo4j.URI},
		{keyNeo4jUser, settings.Knowledge.Neo4j.User},
		{keyNeo4jDatabase, settings.Knowledge.Neo4j.Database},
		{keyHistorySize, settings.Session.HistorySize},
		{keyRenderCacheSize, settings.Session.RenderCacheSize},
		{keyPromptsDir, settings.Prompts.Dir},
		{keyPromptsWatch, settings.Prompts.Watch},
	}
	if settings.LLM.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyLLMAPIKey, settings.LLM.APIKey})
	}
	if settings.Knowledge.Neo4j.Password != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyNeo4jPassword, settings.Knowledge.Neo4j.Password})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set updates a single setting, converting value to the key's type.
func (s *SettingsService) Set(key, value string) error {
	for _, k := range settingKeys {
		if k.key != key {
			continue
		}
		parsed, err := parseValue(k.kind, value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
		}
		if key == keyKBBackend && !domain.KnowledgeBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown knowledge backend %q", domain.ErrInvalidInput, value)
		}
		if key == keyLLMProvider && !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidInput, value)
		}
		if err := s.configStore.Set(key, parsed); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
}

// Unset removes a stored setting so its default or environment fallback applies.
func (s *SettingsService) Unset(key string) error {
	if !isSettingKey(key) {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

func isSettingKey(key string) bool {
	for _, k := range settingKeys {
		if k.key == key {
			return true
		}
	}
	return false
}

// Keys returns the recognised config keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

func parseValue(kind valueKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}

// Validate checks the current settings and reports every problem found.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var result *multierror.Error
	invalid := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidConfig}, args...)...))
	}

	if !settings.LLM.Provider.IsValid() {
		invalid("%s: unknown provider %q", keyLLMProvider, settings.LLM.Provider)
	}
	if settings.LLM.Provider.RequiresAPIKey() && (settings.LLM.APIKey == "" || settings.LLM.APIKey == domain.DefaultLLMAPIKey) {
		invalid("%s is required for the %s provider", keyLLMAPIKey, settings.LLM.Provider)
	}
	if err := checkURL(settings.LLM.BaseURL); err != nil {
		invalid("%s: %v", keyLLMBaseURL, err)
	}
	if settings.LLM.Model == "" {
		invalid("%s is empty", keyLLMModel)
	}
	if settings.LLM.Temperature < 0 || settings.LLM.Temperature > 2 {
		invalid("%s must be within [0, 2], got %g", keyLLMTemperature, settings.LLM.Temperature)
	}
	if settings.LLM.MaxTokens <= 0 {
		invalid("%s must be positive", keyLLMMaxTokens)
	}
	if settings.LLM.Timeout <= 0 {
		invalid("%s must be positive", keyLLMTimeout)
	}
	if settings.LLM.RequestsPerSecond <= 0 {
		invalid("%s must be positive", keyLLMRate)
	}
	if err := checkURL(settings.NLP.BaseURL); err != nil {
		invalid("%s: %v", keyNLPBaseURL, err)
	}

	switch backend := settings.Knowledge.Backend; backend {
	case domain.KnowledgeBackendNeo4j:
		if settings.Knowledge.Neo4j.URI == "" {
			invalid("%s is required for the neo4j backend", keyNeo4jURI)
		}
	case domain.KnowledgeBackendMemory:
		if settings.Knowledge.Fixture == "" {
			invalid("%s is required for the memory backend", keyKBFixture)
		}
	case domain.KnowledgeBackendSQLite:
	default:
		invalid("%s: unknown backend %q", keyKBBackend, backend)
	}

	if settings.Session.HistorySize <= 0 {
		invalid("%s must be positive", keyHistorySize)
	}
	if settings.Session.RenderCacheSize <= 0 {
		invalid("%s must be positive", keyRenderCacheSize)
	}

	return result.ErrorOrNil()
}

func checkURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults. Stores hand back whatever
// their format decoded (TOML integers are int64), and zero values count as unset.

func (s *SettingsService) getString(key, defaultVal string) string {
	if raw, ok := s.configStore.Get(key); ok {
		if v, ok := raw.(string); ok && v != "" {
			return v
		}
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	raw, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	case string:
		n, _ = strconv.Atoi(strings.TrimSpace(v))
	}
	if n == 0 {
		return defaultVal
	}
	return n
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return defaultVal
}

// envOr returns the first non-empty environment variable, or fallback.
func (s *SettingsService) envOr(fallback string, names ...string) string {
	for _, n := range names {
		if v := s.getenv(n); v != "" {
			return v
		}
	}
	return fallback
}

package domain

import "time"

const unknownDescription = "Unknown"

// KnowledgeBackend selects the knowledge-graph store implementation.
type KnowledgeBackend string

// Available knowledge-graph backends.
const (
	// KnowledgeBackendNeo4j queries a live Neo4j graph.
	KnowledgeBackendNeo4j KnowledgeBackend = "neo4j"

	// KnowledgeBackendSQLite queries the embedded SQLite copy of the graph.
	KnowledgeBackendSQLite KnowledgeBackend = "sqlite"

	// KnowledgeBackendMemory serves a YAML fixture from memory.
	KnowledgeBackendMemory KnowledgeBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b KnowledgeBackend) IsValid() bool {
	switch b {
	case KnowledgeBackendNeo4j, KnowledgeBackendSQLite, KnowledgeBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b KnowledgeBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b KnowledgeBackend) Description() string {
	switch b {
	case KnowledgeBackendNeo4j:
		return "Neo4j (graph database)"
	case KnowledgeBackendSQLite:
		return "SQLite (embedded copy)"
	case KnowledgeBackendMemory:
		return "Memory (YAML fixture)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies the completion service API.
type AIProvider string

// Available completion providers.
const (
	// AIProviderOpenAI is any OpenAI-compatible chat completions endpoint,
	// including Ollama's /v1 API, vLLM and DashScope.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is Ollama's native /api/chat endpoint.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderAnthropic is the Anthropic messages API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if the provider rejects unauthenticated requests.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI-compatible"
	case AIProviderOllama:
		return "Ollama (native API)"
	case AIProviderAnthropic:
		return "Anthropic"
	default:
		return unknownDescription
	}
}

// AllLLMProviders returns all available completion providers.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderOllama,
		AIProviderAnthropic,
	}
}

// LLMSettings holds completion service configuration.
type LLMSettings struct {
	Provider          AIProvider
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// IsConfigured returns true if the completion service can be reached.
func (l LLMSettings) IsConfigured() bool {
	return l.BaseURL != "" && l.Model != ""
}

// NLPSettings holds the tagger/parser sidecar configuration.
type NLPSettings struct {
	BaseURL     string
	TaggerModel string
	ParserModel string
}

// Neo4jSettings holds graph database connection details.
type Neo4jSettings struct {
	URI      string
	User     string
	Password string
	Database string
}

// KnowledgeSettings selects and configures the knowledge-graph store.
type KnowledgeSettings struct {
	Backend   KnowledgeBackend
	SQLiteDir string
	Fixture   string
	Neo4j     Neo4jSettings
}

// SessionSettings bounds the per-conversation state.
type SessionSettings struct {
	// HistorySize is the number of turns kept in the conversation history.
	HistorySize int

	// RenderCacheSize is the number of rendered prompts memoised per session.
	RenderCacheSize int
}

// PromptSettings locates the editable prompt files.
type PromptSettings struct {
	Dir   string
	Watch bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	LLM       LLMSettings
	NLP       NLPSettings
	Knowledge KnowledgeSettings
	Session   SessionSettings
	Prompts   PromptSettings
}

// Defaults for settings that are not configured.
const (
	DefaultLLMProvider       = AIProviderOpenAI
	DefaultLLMBaseURL        = "http://localhost:11434/v1"
	DefaultLLMAPIKey         = "ollama"
	DefaultLLMModel          = "qwen2.5:7b"
	DefaultLLMTemperature    = 0.2
	DefaultLLMMaxTokens      = 1024
	DefaultLLMTimeout        = 120 * time.Second
	DefaultRequestsPerSecond = 2.0
	DefaultNLPBaseURL        = "http://localhost:8765"
	DefaultTaggerModel       = "en_ner_bc5cdr_sm"
	DefaultParserModel       = "en_core_sci_sm"
	DefaultNeo4jURI          = "neo4j://localhost:7687"
	DefaultNeo4jUser         = "neo4j"
	DefaultHistorySize       = 10
	DefaultRenderCacheSize   = 256
)

// DefaultAppSettings returns settings with sensible defaults.
// Directory defaults are resolved by the adapters that own them.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider:          DefaultLLMProvider,
			BaseURL:           DefaultLLMBaseURL,
			APIKey:            DefaultLLMAPIKey,
			Model:             DefaultLLMModel,
			Temperature:       DefaultLLMTemperature,
			MaxTokens:         DefaultLLMMaxTokens,
			Timeout:           DefaultLLMTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		NLP: NLPSettings{
			BaseURL:     DefaultNLPBaseURL,
			TaggerModel: DefaultTaggerModel,
			ParserModel: DefaultParserModel,
		},
		Knowledge: KnowledgeSettings{
			Backend: KnowledgeBackendSQLite,
			Neo4j: Neo4jSettings{
				URI:  DefaultNeo4jURI,
				User: DefaultNeo4jUser,
			},
		},
		Session: SessionSettings{
			HistorySize:     DefaultHistorySize,
			RenderCacheSize: DefaultRenderCacheSize,
		},
		Prompts: PromptSettings{
			Watch: true,
		},
	}
}

// AllKnowledgeBackends returns all available backends.
func AllKnowledgeBackends() []KnowledgeBackend {
	return []KnowledgeBackend{
		KnowledgeBackendNeo4j,
		KnowledgeBackendSQLite,
		KnowledgeBackendMemory,
	}
}

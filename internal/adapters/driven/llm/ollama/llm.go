// Package ollama adapts Ollama's native /api/chat endpoint to driven.LLMService.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL           = "http://localhost:11434"
	DefaultLLMModel          = domain.DefaultLLMModel
	DefaultLLMTimeout        = 120 * time.Second
	DefaultRequestsPerSecond = 2
)

// ErrModelNotPulled is returned by Ping when the server is up but the model is missing.
var ErrModelNotPulled = errors.New("model not pulled")

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL defaults to http://localhost:11434. A trailing /v1 is dropped so
	// the OpenAI-compatible URL from the settings can be reused.
	BaseURL string

	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64

	// KeepAlive is how long the server keeps the model loaded after a request. Empty uses the server default.
	KeepAlive string
}

// LLMService talks to a local or remote Ollama server.
type LLMService struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	model     string
	keepAlive string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the /api/chat body. Temperature has no omitempty so 0 overrides the model default.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	Format    string        `json:"format,omitempty"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   struct {
		NumPredict  int      `json:"num_predict,omitempty"`
		Temperature float64  `json:"temperature"`
		Stop        []string `json:"stop,omitempty"`
	} `json:"options"`
}

// NewLLMService creates the adapter. Ollama needs no API key.
func NewLLMService(cfg LLMConfig) *LLMService {
	base := strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/v1")
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &LLMService{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		baseURL:   base,
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
	}
}

func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.newRequest([]driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, opts.MaxTokens, opts.Temperature)
	req.Options.Stop = opts.StopWords
	return s.do(ctx, req)
}

func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := s.newRequest(messages, opts.MaxTokens, opts.Temperature)
	if opts.JSONMode {
		req.Format = "json"
	}
	return s.do(ctx, req)
}

func (s *LLMService) newRequest(messages []driven.ChatMessage, maxTokens int, temperature float64) chatRequest {
	req := chatRequest{
		Model:     s.model,
		Messages:  make([]chatMessage, len(messages)),
		KeepAlive: s.keepAlive,
	}
	for i, m := range messages {
		req.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	req.Options.NumPredict = maxTokens
	req.Options.Temperature = temperature
	return req
}

func (s *LLMService) do(ctx context.Context, req chatRequest) (string, error) {
	content, err := s.post(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return content, nil
}

func (s *LLMService) post(ctx context.Context, body chatRequest) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response (status %d): %w", resp.StatusCode, err)
	}

	reply := gjson.ParseBytes(raw)
	if msg := reply.Get("error").String(); msg != "" {
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, msg)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !reply.Get("message").Exists() {
		return "", fmt.Errorf("ollama: reply has no message")
	}

	logger.Debug("Ollama evaluated %d prompt and %d reply tokens",
		reply.Get("prompt_eval_count").Int(), reply.Get("eval_count").Int())
	return reply.Get("message.content").String(), nil
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists the local models and fails with ErrModelNotPulled when the
// configured model is absent. A bare name matches its ":latest" tag.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ollama: read tags: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: ping returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	want := s.model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, name := range gjson.GetBytes(raw, "models.#.name").Array() {
		if name.String() == want || name.String() == s.model {
			return nil
		}
	}
	return fmt.Errorf("ollama: %w: %s (run 'ollama pull %s')", ErrModelNotPulled, s.model, s.model)
}

func (s *LLMService) Close() error {
	return nil
}

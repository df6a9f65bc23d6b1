// Package anthropic adapts the Anthropic Messages API to driven.LLMService.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL           = "https://api.anthropic.com"
	DefaultModel             = "claude-3-5-haiku-latest"
	DefaultTimeout           = 120 * time.Second
	DefaultMaxTokens         = domain.DefaultLLMMaxTokens
	DefaultRequestsPerSecond = 2
	DefaultAttempts          = 3
	DefaultRetryDelay        = time.Second

	anthropicVersion = "2023-06-01"

	// statusOverloaded is returned when the API is temporarily at capacity.
	statusOverloaded = 529

	// jsonInstruction is appended to the system prompt in JSON mode; the API has no response format switch.
	jsonInstruction = "Respond with a single JSON object and nothing else."
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64

	// Attempts bounds tries on 429, 5xx and overload replies (default: 3).
	Attempts uint

	// RetryDelay is the initial backoff between attempts (default: 1s).
	RetryDelay time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// LLMService talks to /v1/messages.
type LLMService struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	model      string
	attempts   uint
	retryDelay time.Duration
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request is the /v1/messages body. Temperature is a pointer so that 0 is sent.
type request struct {
	Model         string    `json:"model"`
	System        string    `json:"system,omitempty"`
	Messages      []message `json:"messages"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   *float64  `json:"temperature,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

// apiError is a failed reply, carrying the error envelope's type when present.
type apiError struct {
	status  int
	kind    string
	message string
}

func (e *apiError) Error() string {
	if e.kind != "" {
		return fmt.Sprintf("anthropic %s (status %d): %s", e.kind, e.status, e.message)
	}
	return fmt.Sprintf("anthropic error (status %d): %s", e.status, e.message)
}

func (e *apiError) transient() bool {
	return e.status == http.StatusTooManyRequests || e.status == statusOverloaded ||
		e.status >= http.StatusInternalServerError
}

// NewLLMService creates the adapter. An API key is required.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &LLMService{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		attempts:   cfg.Attempts,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.buildRequest(
		[]driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}},
		driven.ChatOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature},
	)
	req.StopSequences = opts.StopWords
	return s.complete(ctx, req)
}

// Chat sends the conversation. System messages become the system prompt.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.complete(ctx, s.buildRequest(messages, opts))
}

// buildRequest maps chat messages onto the Messages API, which takes the
// system prompt separately and rejects two consecutive turns of one role.
func (s *LLMService) buildRequest(messages []driven.ChatMessage, opts driven.ChatOptions) request {
	var system []string
	var turns []message
	for _, m := range messages {
		if m.Role == driven.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].Role == m.Role {
			turns[n-1].Content += "\n\n" + m.Content
			continue
		}
		turns = append(turns, message{Role: m.Role, Content: m.Content})
	}
	if opts.JSONMode {
		system = append(system, jsonInstruction)
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := opts.Temperature
	return request{
		Model:       s.model,
		System:      strings.Join(system, "\n\n"),
		Messages:    turns,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
}

func (s *LLMService) complete(ctx context.Context, req request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var text string
	err = retry.Do(
		func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			t, err := s.send(ctx, body)
			if err != nil {
				return err
			}
			text = t
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("Anthropic attempt %d failed, retrying: %v", n+1, err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return text, nil
}

// send posts one request and returns the concatenated text blocks.
func (s *LLMService) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	reply := gjson.ParseBytes(raw)
	if e := reply.Get("error"); e.Exists() || resp.StatusCode != http.StatusOK {
		msg := e.Get("message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", &apiError{status: resp.StatusCode, kind: e.Get("type").String(), message: msg}
	}

	blocks := reply.Get(`content.#(type=="text")#.text`).Array()
	if len(blocks) == 0 {
		return "", fmt.Errorf("anthropic: reply has no text content (stop_reason %q)", reply.Get("stop_reason").String())
	}
	var out strings.Builder
	for _, b := range blocks {
		out.WriteString(b.String())
	}
	logger.Debug("Anthropic reply used %d output tokens", reply.Get("usage.output_tokens").Int())
	return out.String(), nil
}

func (s *LLMService) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.transient()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without spending tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: create ping request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best-effort detail
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("anthropic: ping returned status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func (s *LLMService) Close() error {
	return nil
}

// Package spacy provides the entity tagger and dependency parser adapters,
// backed by an HTTP sidecar that serves spaCy / scispaCy pipelines.
//
// The sidecar exposes:
//
//	POST /ner    {"text", "model"} -> {"entities": [{"text", "label", "start", "end"}]}
//	POST /parse  {"text", "model"} -> {"tokens": [{"text", "i", "head", "dep", "pos", "idx"}]}
//	GET  /health
//
// Character offsets are counted in Unicode code points, as Python does.
package spacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
)

// Ensure Client implements the interfaces.
var (
	_ driven.EntityTagger     = (*Client)(nil)
	_ driven.DependencyParser = (*Client)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL     = domain.DefaultNLPBaseURL
	DefaultTaggerModel = domain.DefaultTaggerModel
	DefaultParserModel = domain.DefaultParserModel
	DefaultTimeout     = 30 * time.Second
)

// Config holds configuration for the sidecar client.
type Config struct {
	// BaseURL is the sidecar base URL (default: http://localhost:8765).
	BaseURL string

	// TaggerModel is the NER pipeline (default: en_ner_bc5cdr_sm).
	TaggerModel string

	// ParserModel is the dependency parsing pipeline (default: en_core_sci_sm).
	ParserModel string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Client talks to the NLP sidecar.
type Client struct {
	client      *http.Client
	baseURL     string
	taggerModel string
	parserModel string
}

// analyzeRequest is the request body of both endpoints.
type analyzeRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type nerResponse struct {
	Entities []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	} `json:"entities"`
}

type parseResponse struct {
	Tokens []struct {
		Text string `json:"text"`
		I    int    `json:"i"`
		Head int    `json:"head"`
		Dep  string `json:"dep"`
		POS  string `json:"pos"`
		Idx  int    `json:"idx"`
	} `json:"tokens"`
}

// NewClient creates a new sidecar client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TaggerModel == "" {
		cfg.TaggerModel = DefaultTaggerModel
	}
	if cfg.ParserModel == "" {
		cfg.ParserModel = DefaultParserModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		taggerModel: cfg.TaggerModel,
		parserModel: cfg.ParserModel,
	}
}

// Tag returns the named-entity mentions in text.
func (c *Client) Tag(ctx context.Context, text string) ([]driven.TaggedSpan, error) {
	var resp nerResponse
	if err := c.post(ctx, "/ner", analyzeRequest{Text: text, Model: c.taggerModel}, &resp); err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}

	spans := make([]driven.TaggedSpan, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		spans = append(spans, driven.TaggedSpan{Text: e.Text, Label: e.Label})
	}
	return spans, nil
}

// Parse returns the dependency parse of text with byte offsets.
func (c *Client) Parse(ctx context.Context, text string) ([]driven.Token, error) {
	var resp parseResponse
	if err := c.post(ctx, "/parse", analyzeRequest{Text: text, Model: c.parserModel}, &resp); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	offsets := runeOffsets(text)
	tokens := make([]driven.Token, len(resp.Tokens))
	for i, t := range resp.Tokens {
		if t.Idx < 0 || t.Idx >= len(offsets) {
			return nil, fmt.Errorf("parse: token %d offset %d out of range", i, t.Idx)
		}
		tokens[i] = driven.Token{
			Text:   t.Text,
			Index:  t.I,
			Head:   t.Head,
			Dep:    t.Dep,
			POS:    t.POS,
			Offset: offsets[t.Idx],
		}
	}
	return tokens, nil
}

// runeOffsets maps code point positions to byte offsets. The final entry is len(s).
func runeOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("nlp sidecar error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("nlp sidecar error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ping validates the sidecar is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("nlp: failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("nlp: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nlp: sidecar returned status %d", resp.StatusCode)
	}
	return nil
}

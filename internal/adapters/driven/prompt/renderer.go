// Package prompt renders the answer-synthesis system prompt.
//
// The template is Go text/template with the sprig function set, loaded from the
// prompt store under driven.PromptAnswerSystem. Parsed templates are cached until
// the store's text changes.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// Ensure Renderer implements the interface.
var _ driven.PromptRenderer = (*Renderer)(nil)

// Renderer implements driven.PromptRenderer.
type Renderer struct {
	store driven.PromptStore

	mu     sync.Mutex
	source string
	tmpl   *template.Template
}

// NewRenderer creates a renderer. A nil store uses the built-in template.
func NewRenderer(store driven.PromptStore) *Renderer {
	return &Renderer{store: store}
}

// view is the data the template sees.
type view struct {
	Title          string
	Intent         string
	StructuredData []domain.IntentData
	ContentText    string
}

// Render builds the system prompt for a question.
func (r *Renderer) Render(title string, data []domain.IntentData, intent string) (string, error) {
	tmpl, err := r.template()
	if err != nil {
		return "", err
	}

	content, err := contentText(data)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view{
		Title:          title,
		Intent:         intent,
		StructuredData: data,
		ContentText:    content,
	}); err != nil {
		return "", fmt.Errorf("executing answer template: %w", err)
	}
	return buf.String(), nil
}

// template returns the parsed template, reparsing when the source changed.
func (r *Renderer) template() (*template.Template, error) {
	source := driven.DefaultPrompts[driven.PromptAnswerSystem]
	if r.store != nil {
		if text, err := r.store.Load(driven.PromptAnswerSystem); err != nil {
			logger.Warn("answer template: %v, using built-in", err)
		} else if strings.TrimSpace(text) != "" {
			source = text
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tmpl != nil && r.source == source {
		return r.tmpl, nil
	}
	tmpl, err := template.New(driven.PromptAnswerSystem).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=zero").
		Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parsing answer template: %w", err)
	}
	r.source, r.tmpl = source, tmpl
	return tmpl, nil
}

// contentText is the compact JSON of data with non-ASCII and HTML characters left as-is.
func contentText(data []domain.IntentData) (string, error) {
	if data == nil {
		data = []domain.IntentData{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("encoding structured data: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
)

// Session is the state of one conversation: its history and a bounded
// cache of rendered answer prompts.
type Session struct {
	id      string
	history *History
	renders *lru.Cache[string, string]
}

// NewSession creates a session. Non-positive sizes use the defaults.
func NewSession(historySize, renderCacheSize int) *Session {
	if renderCacheSize <= 0 {
		renderCacheSize = domain.DefaultRenderCacheSize
	}
	// lru.New only fails for a non-positive size.
	renders, _ := lru.New[string, string](renderCacheSize)
	return &Session{
		id:      uuid.NewString(),
		history: NewHistory(historySize),
		renders: renders,
	}
}

// ID returns the session id. It changes on Reset.
func (s *Session) ID() string {
	return s.id
}

// History returns the session's conversation log.
func (s *Session) History() *History {
	return s.history
}

// RenderPrompt renders the answer prompt, reusing an earlier rendering of the
// same title and data.
func (s *Session) RenderPrompt(
	renderer driven.PromptRenderer, title string, data []domain.IntentData, intent string,
) (string, error) {
	// encoding/json writes map keys sorted, so equal data gives equal keys.
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("render cache key: %w", err)
	}
	key := title + "\x00" + string(payload)
	if prompt, ok := s.renders.Get(key); ok {
		return prompt, nil
	}

	prompt, err := renderer.Render(title, data, intent)
	if err != nil {
		return "", err
	}
	s.renders.Add(key, prompt)
	return prompt, nil
}

// CachedRenders returns the number of cached prompts.
func (s *Session) CachedRenders() int {
	return s.renders.Len()
}

// PurgeRenders drops cached prompts, keeping the history.
func (s *Session) PurgeRenders() {
	s.renders.Purge()
}

// Reset clears the history and cache and assigns a new id.
func (s *Session) Reset() {
	s.history.Clear()
	s.renders.Purge()
	s.id = uuid.NewString()
}

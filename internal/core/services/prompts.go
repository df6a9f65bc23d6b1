package services

import (
	"strings"

	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// loadPrompt loads a prompt from the store, falling back to the built-in default.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		if p, err := store.Load(name); err == nil && p != "" {
			return p
		}
	}
	return driven.DefaultPrompts[name]
}

// fillPrompt replaces every placeholder in prompt with value. The rest of the
// text is used verbatim. A prompt without the placeholder gets value appended
// as its last paragraph.
func fillPrompt(prompt, placeholder, value string) string {
	if !strings.Contains(prompt, placeholder) {
		logger.Debug("Prompt has no %s placeholder, appending the value", placeholder)
		return strings.TrimRight(prompt, "\n") + "\n\n" + value
	}
	return strings.ReplaceAll(prompt, placeholder, value)
}

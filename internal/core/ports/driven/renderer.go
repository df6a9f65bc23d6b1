package driven

import "github.com/custodia-labs/tbqa/internal/core/domain"

// PromptRenderer turns structured retrieval data into the answer-synthesis system prompt.
type PromptRenderer interface {
	// Render builds the prompt for a question title, its data and the last intent label.
	Render(title string, data []domain.IntentData, intent string) (string, error)
}

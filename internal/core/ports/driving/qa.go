package driving

import (
	"context"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// QAService answers questions over the TB knowledge graph within one conversation.
type QAService interface {
	// Answer runs the full pipeline for one question.
	Answer(ctx context.Context, question string) (*domain.Answer, error)

	// Batch answers questions in order. Failures are reported per question.
	Batch(ctx context.Context, questions []string) []domain.BatchResult

	// AnswerEntries answers every entry of an entries file and returns it with answers attached.
	AnswerEntries(ctx context.Context, in domain.EntriesFile) (domain.EntriesFile, error)

	// Decompose splits a question into atomic questions without answering it.
	Decompose(ctx context.Context, question string) (domain.Decomposition, error)

	// FindDrugs runs the fuzzy drug-name search over the words of text.
	FindDrugs(ctx context.Context, text string) ([]string, error)

	// History returns a copy of the conversation history, oldest first.
	History() []domain.ConversationTurn

	// Reset starts a new conversation.
	Reset()
}

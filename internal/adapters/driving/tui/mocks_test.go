package tui

import (
	"context"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// mockQAService implements driving.QAService for testing.
type mockQAService struct {
	answerFunc func(ctx context.Context, question string) (*domain.Answer, error)
	turns      []domain.ConversationTurn
	resets     int
}

func (m *mockQAService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, question)
	}
	return &domain.Answer{Question: question, Text: "ok"}, nil
}

func (m *mockQAService) Batch(context.Context, []string) []domain.BatchResult { return nil }

func (m *mockQAService) AnswerEntries(_ context.Context, in domain.EntriesFile) (domain.EntriesFile, error) {
	return in, nil
}

func (m *mockQAService) Decompose(_ context.Context, q string) (domain.Decomposition, error) {
	return domain.Decomposition{OriginalQuestion: q}, nil
}

func (m *mockQAService) FindDrugs(context.Context, string) ([]string, error) { return nil, nil }

func (m *mockQAService) History() []domain.ConversationTurn { return m.turns }

func (m *mockQAService) Reset() { m.resets++ }

package mcp

import (
	"context"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// mockQAService is a mock implementation of driving.QAService.
type mockQAService struct {
	answer    *domain.Answer
	decompose domain.Decomposition
	drugs     []string
	turns     []domain.ConversationTurn
	err       error

	lastQuestion string
	lastText     string
	resets       int
}

func (m *mockQAService) Answer(_ context.Context, question string) (*domain.Answer, error) {
	m.lastQuestion = question
	return m.answer, m.err
}

func (m *mockQAService) Batch(context.Context, []string) []domain.BatchResult { return nil }

func (m *mockQAService) AnswerEntries(_ context.Context, in domain.EntriesFile) (domain.EntriesFile, error) {
	return in, m.err
}

func (m *mockQAService) Decompose(_ context.Context, question string) (domain.Decomposition, error) {
	m.lastQuestion = question
	return m.decompose, m.err
}

func (m *mockQAService) FindDrugs(_ context.Context, text string) ([]string, error) {
	m.lastText = text
	return m.drugs, m.err
}

func (m *mockQAService) History() []domain.ConversationTurn { return m.turns }

func (m *mockQAService) Reset() {
	m.resets++
	m.turns = nil
}

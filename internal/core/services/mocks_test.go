package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockTagger implements driven.EntityTagger with a fixed chemical lexicon.
type mockTagger struct {
	chemicals []string
	err       error
	calls     int
}

func (m *mockTagger) Tag(_ context.Context, text string) ([]driven.TaggedSpan, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	lower := strings.ToLower(text)
	var spans []driven.TaggedSpan
	for _, c := range m.chemicals {
		if i := strings.Index(lower, strings.ToLower(c)); i >= 0 {
			spans = append(spans, driven.TaggedSpan{Text: text[i : i+len(c)], Label: driven.LabelChemical})
		}
	}
	return spans, nil
}

// mockParser implements driven.DependencyParser with canned parses keyed by text.
type mockParser struct {
	parses map[string][]driven.Token
	err    error
	calls  int
}

func (m *mockParser) Parse(_ context.Context, text string) ([]driven.Token, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.parses[text], nil
}

// parseTokens builds a token slice from "text/dep/pos/head" specs, computing byte offsets
// against sentence. Tokens are separated by single spaces unless the next one is punctuation.
func parseTokens(sentence string, specs ...string) []driven.Token {
	tokens := make([]driven.Token, len(specs))
	offset := 0
	for i, spec := range specs {
		parts := strings.Split(spec, "/")
		var head int
		_, _ = fmt.Sscanf(parts[3], "%d", &head)
		idx := strings.Index(sentence[offset:], parts[0])
		tokens[i] = driven.Token{
			Text:   parts[0],
			Index:  i,
			Head:   head,
			Dep:    parts[1],
			POS:    parts[2],
			Offset: offset + idx,
		}
		offset += idx + len(parts[0])
	}
	return tokens
}

// llmCall records one chat request.
type llmCall struct {
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

// mockLLM implements driven.LLMService. Replies are routed by request kind.
type mockLLM struct {
	mu       sync.Mutex
	split    func(prompt string) (string, error)
	classify func(question string) (string, error)
	answer   func(system string) (string, error)
	calls    []llmCall
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return m.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, llmCall{messages: messages, opts: opts})
	m.mu.Unlock()

	last := messages[len(messages)-1].Content
	switch {
	case opts.JSONMode:
		if m.classify == nil {
			return "", fmt.Errorf("unexpected classify call")
		}
		return m.classify(last)
	case last == answerInstruction:
		if m.answer == nil {
			return "", fmt.Errorf("unexpected answer call")
		}
		return m.answer(messages[0].Content)
	default:
		if m.split == nil {
			return "", fmt.Errorf("unexpected split call")
		}
		return m.split(last)
	}
}

func (m *mockLLM) ModelName() string { return "mock" }

func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

// callsOfKind counts recorded calls: "classify", "answer" or "split".
func (m *mockLLM) callsOfKind(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		last := c.messages[len(c.messages)-1].Content
		switch {
		case c.opts.JSONMode:
			if kind == "classify" {
				n++
			}
		case last == answerInstruction:
			if kind == "answer" {
				n++
			}
		default:
			if kind == "split" {
				n++
			}
		}
	}
	return n
}

// mockKnowledgeBase implements driven.KnowledgeBase over in-memory fixtures.
type mockKnowledgeBase struct {
	drugs       map[string]domain.Drug
	targets     map[string][]domain.Target
	experiments map[string][]domain.RepurposingExperiment
	tests       map[string][]domain.SusceptibilityTest
	pathways    map[string][]domain.PathwayHit

	err   error
	calls []string
}

func newMockKnowledgeBase() *mockKnowledgeBase {
	return &mockKnowledgeBase{
		drugs:       map[string]domain.Drug{},
		targets:     map[string][]domain.Target{},
		experiments: map[string][]domain.RepurposingExperiment{},
		tests:       map[string][]domain.SusceptibilityTest{},
		pathways:    map[string][]domain.PathwayHit{},
	}
}

func (m *mockKnowledgeBase) record(op, arg string) {
	m.calls = append(m.calls, op+":"+arg)
}

func (m *mockKnowledgeBase) FindDrugs(_ context.Context, words []string) ([]string, error) {
	m.record("find", strings.Join(words, " "))
	if m.err != nil {
		return nil, m.err
	}
	var out []string
	for _, d := range m.drugs {
		for _, w := range words {
			if strings.Contains(strings.ToLower(d.Name), strings.ToLower(w)) {
				out = append(out, d.Name)
				break
			}
		}
	}
	return out, nil
}

func (m *mockKnowledgeBase) DrugInfo(_ context.Context, name string) ([]domain.Drug, error) {
	m.record("drug", name)
	if m.err != nil {
		return nil, m.err
	}
	if d, ok := m.drugs[strings.ToLower(name)]; ok {
		return []domain.Drug{d}, nil
	}
	return nil, nil
}

func (m *mockKnowledgeBase) Targets(_ context.Context, drug string) ([]domain.Target, error) {
	m.record("targets", drug)
	return m.targets[strings.ToLower(drug)], m.err
}

func (m *mockKnowledgeBase) Experiments(_ context.Context, drug string) ([]domain.RepurposingExperiment, error) {
	m.record("experiments", drug)
	return m.experiments[strings.ToLower(drug)], m.err
}

func (m *mockKnowledgeBase) SusceptibilityTests(_ context.Context, drug string) ([]domain.SusceptibilityTest, error) {
	m.record("tests", drug)
	return m.tests[strings.ToLower(drug)], m.err
}

func (m *mockKnowledgeBase) Pathways(_ context.Context, t domain.EntityType, id string) ([]domain.PathwayHit, error) {
	m.record("pathways", id)
	if t != domain.EntityTypeDrug && t != domain.EntityTypeTarget {
		return nil, fmt.Errorf("pathways for %q: %w", t, domain.ErrUnsupportedEntityType)
	}
	return m.pathways[strings.ToLower(id)], m.err
}

func (m *mockKnowledgeBase) References(_ context.Context, _ []string) (map[string]domain.Reference, error) {
	return map[string]domain.Reference{}, m.err
}

func (m *mockKnowledgeBase) Close() error { return nil }

// mockRenderer implements driven.PromptRenderer and counts renders.
type mockRenderer struct {
	renders int
	err     error
	last    []domain.IntentData
}

func (m *mockRenderer) Render(title string, data []domain.IntentData, intent string) (string, error) {
	m.renders++
	if m.err != nil {
		return "", m.err
	}
	m.last = data
	return fmt.Sprintf("prompt for %s (%s, %d items)", title, intent, len(data)), nil
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {}

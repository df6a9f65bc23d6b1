package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/core/ports/driving"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// Ensure QAService implements the interface.
var _ driving.QAService = (*QAService)(nil)

// answerInstruction is the user turn sent with the rendered system prompt.
const answerInstruction = "Please answer the above questions based on the structured data."

// QAConfig holds the collaborators and tuning of a QAService.
// KnowledgeBase and Renderer are required; the rest are optional.
type QAConfig struct {
	Tagger        driven.EntityTagger
	Parser        driven.DependencyParser
	LLM           driven.LLMService
	PromptStore   driven.PromptStore
	KnowledgeBase driven.KnowledgeBase
	Renderer      driven.PromptRenderer

	StopTerms  []string
	Rules      []domain.SynonymRule
	Examples   []domain.FewShotExample
	Projection domain.FieldProjection

	HistorySize     int
	RenderCacheSize int
	Temperature     float64
	MaxTokens       int
}

// QAService answers questions over the knowledge graph within one Session.
// Calls are serialised; two pipeline runs never interleave.
type QAService struct {
	mu sync.Mutex

	kb         driven.KnowledgeBase
	llm        driven.LLMService
	renderer   driven.PromptRenderer
	resolver   *EntityResolver
	splitter   *SentenceSplitter
	classifier *IntentClassifier
	dispatcher *RetrievalDispatcher
	session    *Session

	temperature float64
	maxTokens   int
}

// NewQAService wires the pipeline.
func NewQAService(cfg QAConfig) (*QAService, error) {
	if cfg.KnowledgeBase == nil {
		return nil, fmt.Errorf("%w: knowledge base is required", domain.ErrInvalidConfig)
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("%w: prompt renderer is required", domain.ErrInvalidConfig)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = domain.DefaultLLMMaxTokens
	}

	resolver := NewEntityResolver(cfg.Tagger, cfg.KnowledgeBase, cfg.StopTerms)
	return &QAService{
		kb:          cfg.KnowledgeBase,
		llm:         cfg.LLM,
		renderer:    cfg.Renderer,
		resolver:    resolver,
		splitter:    NewSentenceSplitter(resolver, cfg.Parser, cfg.LLM, cfg.PromptStore),
		classifier:  NewIntentClassifier(cfg.LLM, cfg.PromptStore, cfg.Rules, cfg.Examples),
		dispatcher:  NewRetrievalDispatcher(cfg.KnowledgeBase, cfg.Projection),
		session:     NewSession(cfg.HistorySize, cfg.RenderCacheSize),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Answer runs the full pipeline for one question.
func (s *QAService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.session.History()
	fragments, entities := s.splitter.Decompose(ctx, question, history)
	aligned := alignEntities(entities, len(fragments))

	logger.Section("Retrieval")
	answer := &domain.Answer{
		Question:        question,
		AtomicQuestions: fragments,
		Entities:        entities,
	}
	lastIntent := ""
	for i, aq := range fragments {
		ir := s.classifier.Classify(ctx, aq, []domain.Entity{aligned[i]}, history)
		data, err := s.dispatcher.Dispatch(ctx, aq, ir)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", aq, err)
		}
		answer.Intents = append(answer.Intents, ir)
		answer.Data = append(answer.Data, data)
		lastIntent = data.Intent
	}

	prompt, err := s.session.RenderPrompt(s.renderer, question, answer.Data, lastIntent)
	if err != nil {
		return nil, fmt.Errorf("render answer prompt: %w", err)
	}
	answer.Text = s.synthesize(ctx, prompt)
	return answer, nil
}

// synthesize asks the LLM for the final answer. Failures yield an empty answer.
func (s *QAService) synthesize(ctx context.Context, prompt string) string {
	if s.llm == nil {
		logger.Warn("no completion service configured, answer left empty")
		return ""
	}
	logger.Section("Answer Synthesis")
	text, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: prompt},
		{Role: driven.RoleUser, Content: answerInstruction},
	}, driven.ChatOptions{
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		logger.Warn("answer synthesis failed: %v", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// alignEntities pairs entities with n fragments. A single entity is broadcast,
// a longer list is truncated and a shorter one is padded with its last entity.
func alignEntities(entities []domain.Entity, n int) []domain.Entity {
	if len(entities) == 0 {
		entities = []domain.Entity{domain.UnknownEntity()}
	}
	out := make([]domain.Entity, n)
	for i := range out {
		if i < len(entities) {
			out[i] = entities[i]
		} else {
			out[i] = entities[len(entities)-1]
		}
	}
	return out
}

// Batch answers questions in order. A failed question carries its error and an empty answer.
func (s *QAService) Batch(ctx context.Context, questions []string) []domain.BatchResult {
	results := make([]domain.BatchResult, 0, len(questions))
	for _, q := range questions {
		res := domain.BatchResult{Question: q}
		if err := ctx.Err(); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		a, err := s.Answer(ctx, q)
		if err != nil {
			logger.Warn("question %q failed: %v", q, err)
			res.Err = err
		} else {
			res.Answer = a.Text
		}
		results = append(results, res)
	}
	return results
}

// AnswerEntries answers every entry and returns copies with an "answer" field.
// Other entry fields are preserved.
func (s *QAService) AnswerEntries(ctx context.Context, in domain.EntriesFile) (domain.EntriesFile, error) {
	if len(in.Entries) == 0 {
		return domain.EntriesFile{}, domain.ErrNoEntries
	}

	questions := make([]string, len(in.Entries))
	for i, e := range in.Entries {
		questions[i] = e.Question()
	}
	results := s.Batch(ctx, questions)

	out := domain.EntriesFile{Entries: make([]domain.Entry, len(in.Entries))}
	for i, e := range in.Entries {
		entry := make(domain.Entry, len(e)+1)
		for k, v := range e {
			entry[k] = v
		}
		entry["answer"] = results[i].Answer
		out.Entries[i] = entry
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// Decompose splits a question without classifying or answering it.
func (s *QAService) Decompose(ctx context.Context, question string) (domain.Decomposition, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Decomposition{}, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fragments, entities := s.splitter.Decompose(ctx, question, s.session.History())
	return domain.Decomposition{
		OriginalQuestion: question,
		AtomicQuestions:  fragments,
		Entities:         entities,
	}, nil
}

// FindDrugs runs the fuzzy drug-name search over the words of text.
func (s *QAService) FindDrugs(ctx context.Context, text string) ([]string, error) {
	words := queryWord.FindAllString(text, -1)
	if len(words) == 0 {
		return nil, nil
	}
	names, err := s.kb.FindDrugs(ctx, words)
	if err != nil {
		return nil, fmt.Errorf("find drugs: %w", err)
	}
	return names, nil
}

// History returns a copy of the conversation history, oldest first.
func (s *QAService) History() []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.History().Turns()
}

// Reset starts a new conversation.
func (s *QAService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset()
	logger.Debug("Conversation reset, session %s", s.session.ID())
}

// InvalidateRenders drops memoised answer prompts, e.g. after the answer
// template changed on disk. The conversation is kept.
func (s *QAService) InvalidateRenders() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.PurgeRenders()
}

// SessionID returns the current session id.
func (s *QAService) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.ID()
}

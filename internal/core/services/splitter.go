package services

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// Completion settings for LLM-based splitting.
const (
	splitTemperature = 0
	splitMaxTokens   = 256
)

var (
	conjHeadRoles    = map[string]struct{}{"pobj": {}, "dobj": {}, "nsubj": {}}
	modifierRoles    = map[string]struct{}{"amod": {}, "compound": {}}
	whWords          = []string{"which", "what", "who", "where", "when", "why", "how"}
	yesNoOpenings    = []string{"is ", "are ", "does ", "do ", "can ", "could ", "will ", "would "}
	conjunctionMarks = []string{", and", " and "}
)

// splitRequest is the state shared by the strategies for one question.
type splitRequest struct {
	question string
	entities map[string]struct{}

	parser driven.DependencyParser
	parsed bool
	tokens []driven.Token
}

// parse runs the dependency parser once and memoises the result.
func (r *splitRequest) parse(ctx context.Context) []driven.Token {
	if r.parsed {
		return r.tokens
	}
	r.parsed = true
	if r.parser == nil {
		return nil
	}
	tokens, err := r.parser.Parse(ctx, r.question)
	if err != nil {
		logger.Warn("dependency parser failed: %v", err)
		return nil
	}
	for i, t := range tokens {
		if t.Index != i || t.Head < 0 || t.Head >= len(tokens) {
			logger.Warn("dependency parse has inconsistent token indices, ignoring it")
			return nil
		}
	}
	r.tokens = tokens
	return tokens
}

func (r *splitRequest) isEntity(text string) bool {
	_, ok := r.entities[Normalize(text)]
	return ok
}

// splitStrategy is one decomposition strategy. It returns nil when it does not apply.
type splitStrategy struct {
	name  string
	split func(ctx context.Context, req *splitRequest) []string
}

// SentenceSplitter decomposes a question into atomic questions.
type SentenceSplitter struct {
	resolver    *EntityResolver
	parser      driven.DependencyParser
	llm         driven.LLMService
	promptStore driven.PromptStore
	strategies  []splitStrategy
}

// NewSentenceSplitter creates a splitter. The parser, LLM and prompt store are optional.
func NewSentenceSplitter(
	resolver *EntityResolver,
	parser driven.DependencyParser,
	llm driven.LLMService,
	promptStore driven.PromptStore,
) *SentenceSplitter {
	s := &SentenceSplitter{
		resolver:    resolver,
		parser:      parser,
		llm:         llm,
		promptStore: promptStore,
	}
	s.strategies = []splitStrategy{
		{name: "coordinate-entity", split: s.splitCoordinateEntities},
		{name: "coordinate-noun-phrase", split: s.splitCoordinateNounPhrase},
		{name: "llm", split: s.splitWithLLM},
	}
	return s
}

// Decompose normalises question to end with a single "?", resolves its entities
// and splits it with the first strategy that yields more than one fragment.
// It records exactly one turn in history.
func (s *SentenceSplitter) Decompose(
	ctx context.Context, question string, history *History,
) ([]string, []domain.Entity) {
	logger.Section("Question Decomposition")
	question = NormalizeQuestion(question)

	entities := s.resolver.Resolve(ctx, question, ResolveOptions{History: history})

	req := &splitRequest{
		question: question,
		entities: make(map[string]struct{}, len(entities)),
		parser:   s.parser,
	}
	for _, e := range entities {
		if !e.IsUnknown() {
			req.entities[Normalize(e.ID)] = struct{}{}
		}
	}

	fragments := []string{question}
	for _, strategy := range s.strategies {
		if out := strategy.split(ctx, req); len(out) > 1 {
			logger.Debug("Split by %s strategy into %d questions", strategy.name, len(out))
			fragments = out
			break
		}
	}

	if history != nil {
		history.Append(domain.ConversationTurn{Question: question, Entities: entities})
	}
	return fragments, entities
}

// NormalizeQuestion trims question and terminates it with a single "?".
func NormalizeQuestion(question string) string {
	q := strings.TrimRight(strings.TrimSpace(question), "?")
	return strings.TrimSpace(q) + "?"
}

// splitCoordinateEntities splits "... of A and B" when A and B are both resolved entities.
func (s *SentenceSplitter) splitCoordinateEntities(ctx context.Context, req *splitRequest) []string {
	if len(req.entities) == 0 {
		return nil
	}
	tokens := req.parse(ctx)
	for _, tok := range tokens {
		if tok.Dep != "conj" {
			continue
		}
		head := tokens[tok.Head]
		if _, ok := conjHeadRoles[head.Dep]; !ok {
			continue
		}
		if !req.isEntity(head.Text) || !req.isEntity(tok.Text) {
			continue
		}
		prefix := make([]string, 0, head.Index+1)
		for _, t := range tokens[:head.Index] {
			prefix = append(prefix, t.Text)
		}
		return []string{
			terminate(strings.Join(append(prefix, head.Text), " ")),
			terminate(strings.Join(append(prefix, tok.Text), " ")),
		}
	}
	return nil
}

// splitCoordinateNounPhrase splits "the resistant targets and pathways of A" into one
// question per conjunct, repeating the head's shared modifiers.
func (s *SentenceSplitter) splitCoordinateNounPhrase(ctx context.Context, req *splitRequest) []string {
	if len(req.entities) == 0 {
		return nil
	}
	tokens := req.parse(ctx)
	for _, tok := range tokens {
		if tok.Dep != "conj" {
			continue
		}
		head := tokens[tok.Head]
		if head.POS != "NOUN" {
			continue
		}
		if !req.isEntity(head.Text) && !req.isEntity(tok.Text) {
			continue
		}

		var mods []string
		start := head.Offset
		for _, t := range tokens[:head.Index] {
			if t.Head != head.Index {
				continue
			}
			if _, ok := modifierRoles[t.Dep]; !ok {
				continue
			}
			if len(mods) == 0 {
				start = t.Offset
			}
			mods = append(mods, t.Text)
		}
		end := tok.Offset + len(tok.Text)
		if start < 0 || start > end || end > len(req.question) {
			continue
		}

		headPhrase := strings.Join(append(append([]string(nil), mods...), head.Text), " ")
		conjPhrase := strings.Join(append(append([]string(nil), mods...), tok.Text), " ")
		before, after := req.question[:start], req.question[end:]
		return []string{before + headPhrase + after, before + conjPhrase + after}
	}
	return nil
}

// splitWithLLM asks the completion service to split complex questions.
func (s *SentenceSplitter) splitWithLLM(ctx context.Context, req *splitRequest) []string {
	if !IsComplexQuestion(req.question) {
		return nil
	}
	if s.llm == nil {
		logger.Debug("Complex question but no LLM configured, leaving it unsplit")
		return nil
	}
	prompt := fillPrompt(loadPrompt(s.promptStore, driven.PromptSplitQuestion), driven.PlaceholderQuestion, req.question)
	content, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleUser, Content: prompt},
	}, driven.ChatOptions{Temperature: splitTemperature, MaxTokens: splitMaxTokens})
	if err != nil {
		logger.Warn("question split completion failed: %v", err)
		return []string{req.question}
	}
	return ParseQuestionList(content, req.question)
}

// IsComplexQuestion reports whether a question joins clauses with "and" and is
// either a yes/no question or contains a wh-word.
func IsComplexQuestion(question string) bool {
	q := strings.ToLower(question)
	if !containsAny(q, conjunctionMarks) {
		return false
	}
	if containsAny(q, whWords) {
		return true
	}
	for _, opening := range yesNoOpenings {
		if strings.HasPrefix(q, opening) {
			return true
		}
	}
	return false
}

// ParseQuestionList extracts the first bracketed JSON list of strings from an
// LLM reply. Any parse failure yields fallback as the only element.
func ParseQuestionList(content, fallback string) []string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < start {
		logger.Warn("question split reply has no JSON list: %q", content)
		return []string{fallback}
	}
	span := content[start : end+1]
	if !gjson.Valid(span) {
		logger.Warn("question split reply is not valid JSON: %q", span)
		return []string{fallback}
	}
	parsed := gjson.Parse(span)
	if !parsed.IsArray() {
		return []string{fallback}
	}
	var out []string
	for _, item := range parsed.Array() {
		if item.Type != gjson.String {
			logger.Warn("question split reply holds a non-string item: %s", item.Raw)
			return []string{fallback}
		}
		if q := strings.TrimSpace(item.String()); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}

func terminate(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "?") {
		s += "?"
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

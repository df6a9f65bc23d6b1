package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// Completion settings for LLM intent classification.
const (
	classifyTemperature = 0.1
	classifyMaxTokens   = 256
)

// IntentClassifier maps an atomic question to an intent and sub-intent.
type IntentClassifier struct {
	llm         driven.LLMService
	promptStore driven.PromptStore
	rules       []domain.SynonymRule
	examples    []domain.FewShotExample
}

// NewIntentClassifier creates a classifier. Nil rules or examples use the defaults.
// The LLM and prompt store are optional.
func NewIntentClassifier(
	llm driven.LLMService,
	promptStore driven.PromptStore,
	rules []domain.SynonymRule,
	examples []domain.FewShotExample,
) *IntentClassifier {
	if rules == nil {
		rules = domain.DefaultSynonymRules()
	}
	if examples == nil {
		examples = domain.DefaultFewShotExamples()
	}
	return &IntentClassifier{
		llm:         llm,
		promptStore: promptStore,
		rules:       rules,
		examples:    examples,
	}
}

// Classify determines the intent of question about entities and records the
// outcome in history. With no entities the most recent drug in history acts.
func (c *IntentClassifier) Classify(
	ctx context.Context, question string, entities []domain.Entity, history *History,
) domain.IntentResult {
	question = strings.TrimSpace(question)

	var acting []domain.Entity
	contextLink := strings.Join(domain.EntityIDs(entities), ", ")
	if len(entities) > 0 {
		acting = []domain.Entity{entities[0]}
	} else if history != nil {
		if e, ok := history.LastEntityOfType(domain.EntityTypeDrug); ok {
			acting = []domain.Entity{e}
			contextLink = e.ID
		}
	}

	var intent, subIntent string
	if rule, ok := c.matchRule(question); ok {
		logger.Debug("Synonym rule %q matched %q", rule.SubIntent, question)
		intent, subIntent = rule.Intent, rule.SubIntent
	}
	if intent == "" {
		llmIntent, llmSubIntent := c.classifyWithLLM(ctx, question)
		intent = llmIntent
		if subIntent == "" {
			subIntent = llmSubIntent
		}
	}
	if intent == "" {
		intent = domain.IntentDrugInformation
	}
	if subIntent == "" {
		subIntent = domain.DefaultSubIntent(intent)
	}

	result := domain.IntentResult{
		Intent:      intent,
		SubIntent:   subIntent,
		Entities:    acting,
		ContextLink: contextLink,
	}
	if result.Entities == nil {
		result.Entities = []domain.Entity{}
	}
	logger.Debug("Intent for %q: %s / %s", question, intent, subIntent)

	if history != nil {
		history.Append(domain.ConversationTurn{
			Question:  question,
			Entities:  result.Entities,
			Intent:    intent,
			SubIntent: subIntent,
		})
	}
	return result
}

// matchRule returns the first rule with a trigger in the question.
func (c *IntentClassifier) matchRule(question string) (domain.SynonymRule, bool) {
	q := strings.ToLower(question)
	for _, rule := range c.rules {
		if rule.Matches(q) {
			return rule, true
		}
	}
	return domain.SynonymRule{}, false
}

// classifyWithLLM returns the LLM's intent and sub-intent, or empty strings.
func (c *IntentClassifier) classifyWithLLM(ctx context.Context, question string) (string, string) {
	if c.llm == nil {
		return "", ""
	}
	lines := make([]string, len(c.examples))
	for i, ex := range c.examples {
		lines[i] = fmt.Sprintf("examples: %s → %s", ex.Question, ex.Intent)
	}
	system := fillPrompt(loadPrompt(c.promptStore, driven.PromptClassifyIntent), driven.PlaceholderExamples, strings.Join(lines, "\n"))

	content, err := c.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: question},
	}, driven.ChatOptions{
		Temperature: classifyTemperature,
		MaxTokens:   classifyMaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		logger.Warn("intent completion failed: %v", err)
		return "", ""
	}

	obj, ok := extractJSONObject(content)
	if !ok {
		logger.Warn("intent reply is not a JSON object: %q", content)
		return "", ""
	}
	return stringField(obj, "intent"), stringField(obj, "sub_intent")
}

// extractJSONObject finds the JSON object in an LLM reply, tolerating prose
// or code fences around it.
func extractJSONObject(content string) (gjson.Result, bool) {
	content = strings.TrimSpace(content)
	if gjson.Valid(content) {
		r := gjson.Parse(content)
		return r, r.IsObject()
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return gjson.Result{}, false
	}
	span := content[start : end+1]
	if !gjson.Valid(span) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(span)
	return r, r.IsObject()
}

func stringField(obj gjson.Result, key string) string {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.String())
}

package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptSplitQuestion asks the LLM to split a compound question.
	// PlaceholderQuestion marks where the question goes.
	PromptSplitQuestion = "split_question"

	// PromptClassifyIntent is the system prompt for intent classification.
	// PlaceholderExamples marks where the few-shot examples go.
	PromptClassifyIntent = "classify_intent"

	// PromptAnswerSystem is the text/template used to render the answer-synthesis system prompt.
	PromptAnswerSystem = "answer_system"
)

// Placeholders substituted into the split and classification prompts.
const (
	PlaceholderQuestion = "{question}"
	PlaceholderExamples = "{examples}"
)

// DefaultPrompts holds the built-in prompt templates keyed by prompt name.
// They are used when no PromptStore is configured and seed the editable prompt files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptSplitQuestion: `You are an expert question splitter.

Task:
- Split the input question into multiple independent questions, each representing one atomic action.
- Keep all entities intact; do not remove or replace them.
- Ensure each question is complete and can be understood independently.
- Only split where there is a semantic separation between distinct actions (do not split within an entity or a verb phrase that is a single action).
- Do NOT split if multiple noun phrases are modified by the same verb and can be understood together.

Input question: "{question}"

Output format:
- Only output a valid JSON list of strings in the form:
["Question1?", "Question2?", ...]
- Do NOT include explanations, bullet points, or extra text.

Examples:
Input: "What are the targets of Amlodipine and Acarbose?"
Output: ["What are the targets of Amlodipine?", "What are the targets of Acarbose?"]

Input: "Are there any tuberculosis repositioning studies involving Mefloquine, and what repurposing methods were used?"
Output: ["Are there any tuberculosis repositioning studies involving Mefloquine?", "What repurposing methods were used for Mefloquine?"]`,

	PromptClassifyIntent: `You are an expert tuberculosis drug QA assistant and a JSON extractor.
Given a user query, extract intent and sub_intent in JSON format: {"intent": "...", "sub_intent": "..."}.
Follow these rules:
- If the query contains MIC, reference strains, or sensitivity data → Drug Sensitivity Test
- If the query mentions targets, genes, or proteins → Target
- If the query mentions experiments or drug repositioning → Drug Repurposing Assay
- If the query mentions pathways, biological pathways, or mechanisms → Pathway
- Otherwise, classify as Drug Information or Unknown
Examples:
{examples}`,

	PromptAnswerSystem: `You are an expert assistant for tuberculosis drug research.
Answer the user's question "{{ .Title }}" using only the structured knowledge-graph data below.
Primary topic: {{ .Intent | title }}

{{ range $i, $item := .StructuredData -}}
Question {{ add1 $i }}: {{ $item.Question }} (intent: {{ $item.Intent | title }}, sub-intent: {{ $item.SubIntent }}{{ with $item.EntityName }}, entity: {{ . }}{{ end }})
{{ end }}
Structured data (JSON):
{{ .ContentText }}

Rules:
- Answer every question in order and quote values exactly as given.
- Cite references (PMID and URL) when they are present.
- If the data for a question is empty, say that the knowledge graph has no information for it.
- Do not invent facts that are not in the data.`,
}

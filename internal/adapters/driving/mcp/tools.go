package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// QuestionInput is the input schema for the answer and decompose tools.
type QuestionInput struct {
	Question string `json:"question" jsonschema:"a natural-language question about tuberculosis drugs"`
}

// AnswerOutput is the output schema for the answer tool.
type AnswerOutput struct {
	Answer          string         `json:"answer"`
	AtomicQuestions []string       `json:"atomic_questions"`
	Intents         []IntentOutput `json:"intents"`
}

// IntentOutput is the classification of one atomic question.
type IntentOutput struct {
	Question  string `json:"question"`
	Intent    string `json:"intent"`
	SubIntent string `json:"sub_intent"`
	Entity    string `json:"entity,omitempty"`
}

// DecomposeOutput is the output schema for the decompose tool.
type DecomposeOutput struct {
	OriginalQuestion string   `json:"original_question"`
	AtomicQuestions  []string `json:"atomic_questions"`
}

// FindDrugsInput is the input schema for the find_drugs tool.
type FindDrugsInput struct {
	Text string `json:"text" jsonschema:"words to match against drug names"`
}

// FindDrugsOutput is the output schema for the find_drugs tool.
type FindDrugsOutput struct {
	Drugs []string `json:"drugs"`
	Count int      `json:"count"`
}

// ResetInput is the (empty) input schema for reset_conversation.
type ResetInput struct{}

// ResetOutput is the output schema for reset_conversation.
type ResetOutput struct {
	Forgotten int `json:"forgotten_turns"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "answer",
		Description: "Answer a question about tuberculosis drugs, their protein targets, pathways, " +
			"repurposing experiments or susceptibility tests. Follow-ups may refer to earlier drugs.",
	}, s.handleAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "decompose",
		Description: "Split a compound question into atomic questions without answering it",
	}, s.handleDecompose)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_drugs",
		Description: "Find drug names in the knowledge graph containing any of the given words",
	}, s.handleFindDrugs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_conversation",
		Description: "Forget the conversation history so pronouns no longer refer to earlier drugs",
	}, s.handleReset)
}

func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AnswerOutput{}, ErrEmptyQuestion
	}

	answer, err := s.ports.QA.Answer(ctx, input.Question)
	if err != nil {
		return nil, AnswerOutput{}, err
	}
	return nil, answerOutput(answer), nil
}

// answerOutput flattens an answer for tool callers.
func answerOutput(a *domain.Answer) AnswerOutput {
	out := AnswerOutput{
		Answer:          a.Text,
		AtomicQuestions: a.AtomicQuestions,
		Intents:         make([]IntentOutput, len(a.Intents)),
	}
	if out.AtomicQuestions == nil {
		out.AtomicQuestions = []string{}
	}
	for i, r := range a.Intents {
		io := IntentOutput{Intent: r.Intent, SubIntent: r.SubIntent}
		if i < len(a.AtomicQuestions) {
			io.Question = a.AtomicQuestions[i]
		}
		if e, ok := r.Entity(); ok && !e.IsUnknown() {
			io.Entity = e.ID
		}
		out.Intents[i] = io
	}
	return out
}

func (s *Server) handleDecompose(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, DecomposeOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, DecomposeOutput{}, ErrEmptyQuestion
	}

	d, err := s.ports.QA.Decompose(ctx, input.Question)
	if err != nil {
		return nil, DecomposeOutput{}, err
	}
	out := DecomposeOutput{OriginalQuestion: d.OriginalQuestion, AtomicQuestions: d.AtomicQuestions}
	if out.AtomicQuestions == nil {
		out.AtomicQuestions = []string{}
	}
	return nil, out, nil
}

func (s *Server) handleFindDrugs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindDrugsInput,
) (*mcp.CallToolResult, FindDrugsOutput, error) {
	drugs, err := s.ports.QA.FindDrugs(ctx, input.Text)
	if err != nil {
		return nil, FindDrugsOutput{}, err
	}
	if drugs == nil {
		drugs = []string{}
	}
	return nil, FindDrugsOutput{Drugs: drugs, Count: len(drugs)}, nil
}

func (s *Server) handleReset(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ResetInput,
) (*mcp.CallToolResult, ResetOutput, error) {
	n := len(s.ports.QA.History())
	s.ports.QA.Reset()
	return nil, ResetOutput{Forgotten: n}, nil
}

package domain

// ConversationTurn is one entry of the conversation history.
// Intent and SubIntent are empty for turns recorded before classification.
type ConversationTurn struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Entities  []Entity `json:"entities"`
	Intent    string   `json:"intent,omitempty"`
	SubIntent string   `json:"sub_intent,omitempty"`
}

// HasIntent reports whether the turn carries a classification.
func (t ConversationTurn) HasIntent() bool {
	return t.Intent != ""
}

// AtomicQuestion is a single-intent fragment of a user question.
type AtomicQuestion struct {
	Text string `json:"text"`
}

// Decomposition is the result of splitting one question.
type Decomposition struct {
	OriginalQuestion string   `json:"original_question"`
	AtomicQuestions  []string `json:"atomic_questions"`
	Entities         []Entity `json:"-"`
}

package domain

import (
	"bytes"
	"encoding/json"
)

// IntentData is the structured data gathered for one atomic question.
// Passthrough records (unknown intents) carry no entity or data.
type IntentData struct {
	Question    string `json:"question"`
	Intent      string `json:"intent"`
	SubIntent   string `json:"sub_intent"`
	EntityName  string `json:"entity_name"`
	Data        []any  `json:"data"`
	Passthrough bool   `json:"-"`
}

// MarshalJSON omits entity_name and data for passthrough records.
func (d IntentData) MarshalJSON() ([]byte, error) {
	if d.Passthrough {
		return marshalRaw(struct {
			Question  string `json:"question"`
			Intent    string `json:"intent"`
			SubIntent string `json:"sub_intent"`
		}{d.Question, d.Intent, d.SubIntent})
	}
	type plain IntentData
	p := plain(d)
	if p.Data == nil {
		p.Data = []any{}
	}
	return marshalRaw(p)
}

// marshalRaw encodes v without HTML escaping.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Answer is the outcome of answering one user question.
type Answer struct {
	Question        string         `json:"question"`
	Text            string         `json:"answer"`
	AtomicQuestions []string       `json:"atomic_questions"`
	Entities        []Entity       `json:"entities"`
	Intents         []IntentResult `json:"intents"`
	Data            []IntentData   `json:"structured_data"`
}

// BatchResult pairs a question with its answer or failure.
type BatchResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Err      error  `json:"-"`
}

// Entry is one element of an entries file. Fields other than question
// and answer are preserved as-is.
type Entry map[string]any

// Question returns the entry's question, or "" if absent.
func (e Entry) Question() string {
	q, _ := e["question"].(string)
	return q
}

// EntriesFile is the {"entries": [...]} document used for file-driven batches.
type EntriesFile struct {
	Entries []Entry `json:"entries"`
}

// UnmarshalJSON keeps numbers as json.Number so integer ids beyond 2^53
// are written back unchanged.
func (f *EntriesFile) UnmarshalJSON(data []byte) error {
	var doc struct {
		Entries []Entry `json:"entries"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	f.Entries = doc.Entries
	return nil
}

// QuestionsFile is the split-only output document.
type QuestionsFile struct {
	Questions []Decomposition `json:"questions"`
}

// ImportSummary counts the nodes written by a knowledge-graph import.
type ImportSummary struct {
	Store      string `json:"store"`
	Drugs      int    `json:"drugs"`
	Targets    int    `json:"targets"`
	Pathways   int    `json:"pathways"`
	References int    `json:"references"`
}

package domain

import "strings"

// Intent names as produced by classification. Dispatch compares them lower-cased.
const (
	IntentDrugInformation       = "Drug Information"
	IntentTarget                = "Target"
	IntentPathway               = "Pathway"
	IntentDrugRepurposingAssay  = "Drug Repurposing Assay"
	IntentDrugSensitivityTest   = "Drug Sensitivity Test"
	SubIntentDefault            = "default"
	SubIntentPathway            = "pathway"
	defaultSubIntentTarget      = "target"
	defaultSubIntentDrugInfoKey = "basic_info"
)

// IntentResult is the classification of one atomic question.
type IntentResult struct {
	Intent    string   `json:"intent"`
	SubIntent string   `json:"sub_intent"`
	Entities  []Entity `json:"entities"`

	// ContextLink joins the ids of the entities the question was asked about.
	ContextLink string `json:"context_link"`
}

// Entity returns the acting entity, if any.
func (r IntentResult) Entity() (Entity, bool) {
	if len(r.Entities) == 0 {
		return Entity{}, false
	}
	return r.Entities[0], true
}

// DefaultSubIntent returns the sub-intent used when neither rules nor the LLM provide one.
func DefaultSubIntent(intent string) string {
	switch intent {
	case IntentTarget:
		return defaultSubIntentTarget
	case IntentPathway:
		return SubIntentPathway
	case IntentDrugInformation:
		return defaultSubIntentDrugInfoKey
	default:
		return SubIntentDefault
	}
}

// SynonymRule maps trigger phrases to a sub-intent.
// When Intent is set a match fixes the intent too and no LLM call is made.
type SynonymRule struct {
	SubIntent string
	Intent    string
	Triggers  []string
}

// Matches reports whether any trigger is a substring of the lower-cased question.
func (r SynonymRule) Matches(lowerQuestion string) bool {
	for _, t := range r.Triggers {
		if strings.Contains(lowerQuestion, t) {
			return true
		}
	}
	return false
}

// DefaultSynonymRules returns the ordered rule table. The first matching rule wins.
func DefaultSynonymRules() []SynonymRule {
	return []SynonymRule{
		{SubIntent: "mic value", Intent: IntentDrugSensitivityTest,
			Triggers: []string{"mic value", " mic ", " mic?", " mic,", "minimum inhibitory concentration"}},
		{SubIntent: "reference strains", Intent: IntentDrugSensitivityTest,
			Triggers: []string{"reference strain"}},
		{SubIntent: "pathogen species", Intent: IntentDrugSensitivityTest,
			Triggers: []string{"pathogen species", "which species"}},
		{SubIntent: "test strain id", Intent: IntentDrugSensitivityTest,
			Triggers: []string{"test strain id", "strain id"}},
		{SubIntent: "test strain type", Intent: IntentDrugSensitivityTest,
			Triggers: []string{"test strain type", "strain type"}},
		{SubIntent: "repurposing methods", Intent: IntentDrugRepurposingAssay,
			Triggers: []string{"repurposing method", "repositioning method"}},
		{SubIntent: "experiment type", Intent: IntentDrugRepurposingAssay,
			Triggers: []string{"experiment type", "type of experiment"}},
		{SubIntent: "indication",
			Triggers: []string{"indication", "indications", "used for", "therapeutic use", "treats", "indicated for"}},
		{SubIntent: "ATC_code",
			Triggers: []string{"atc", "atc code", "atc codes", "anatomical therapeutic chemical code"}},
		{SubIntent: "approval_stage",
			Triggers: []string{"approval", "stage", "regulatory status", "clinical stage", "approval stage", "approval status"}},
		{SubIntent: "function",
			Triggers: []string{"function", "role", "biological function", "activity"}},
		{SubIntent: "protein",
			Triggers: []string{"protein", "protein product", "gene product"}},
		{SubIntent: "description",
			Triggers: []string{"description", "summary", "overview", "pathway description", "pathway summary"}},
		{SubIntent: "gene_count",
			Triggers: []string{"gene count", "number of genes", "genes involved", "members"}},
		{SubIntent: "pathway_class",
			Triggers: []string{"pathway class", "type", "category", "pathway type"}},
	}
}

// FewShotExample is a labelled question shown to the intent classifier.
type FewShotExample struct {
	Question string
	Intent   string
}

// DefaultFewShotExamples returns the examples embedded in the classification prompt.
func DefaultFewShotExamples() []FewShotExample {
	return []FewShotExample{
		{Question: "What are the repurposing experiments for Ipragliflozin?", Intent: IntentDrugRepurposingAssay},
		{Question: "What are its targets?", Intent: IntentTarget},
		{Question: "What is the reference strain information?", Intent: IntentDrugSensitivityTest},
	}
}

// FieldProjection maps lower-cased intent, then lower-cased sub-intent, to a record field.
type FieldProjection map[string]map[string]string

// Field returns the record field to extract, or SubIntentDefault to keep whole records.
func (p FieldProjection) Field(intent, subIntent string) string {
	if f, ok := p[strings.ToLower(intent)][strings.ToLower(subIntent)]; ok {
		return f
	}
	return SubIntentDefault
}

// DefaultFieldProjection returns the projection table.
func DefaultFieldProjection() FieldProjection {
	return FieldProjection{
		"drug information": {
			"name":           "drug_name",
			"indication":     "indication",
			"approval_stage": "stages",
			"atc_code":       "atc_code",
		},
		"drug sensitivity test": {
			"mic value":         "mic_value",
			"reference strains": "reference_strain",
			"pathogen species":  "species",
			"test strain id":    "test_strain_id",
			"test strain type":  "test_strain_type",
		},
		"drug repurposing assay": {
			"repurposing methods": "repurposing_methods",
			"experiment type":     "experiment_type",
		},
		"target": {
			"function": "functions",
			"protein":  "product",
		},
	}
}

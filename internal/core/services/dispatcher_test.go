package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

func hit(pathwayID, name, gene, rv string) domain.PathwayHit {
	return domain.PathwayHit{
		Pathway:  domain.Pathway{PathwayID: pathwayID, Name: name, Class: "Metabolism"},
		RvID:     rv,
		GeneName: gene,
	}
}

func classified(intent, subIntent string, entities ...domain.Entity) domain.IntentResult {
	return domain.IntentResult{Intent: intent, SubIntent: subIntent, Entities: entities}
}

func TestRetrievalDispatcher_RoutesByIntent(t *testing.T) {
	kb := newMockKnowledgeBase()
	d := NewRetrievalDispatcher(kb, nil)
	e := drugEntity("ebselen")

	tests := []struct {
		intent string
		call   string
	}{
		{domain.IntentDrugInformation, "drug:ebselen"},
		{domain.IntentTarget, "targets:ebselen"},
		{domain.IntentPathway, "pathways:ebselen"},
		{domain.IntentDrugRepurposingAssay, "experiments:ebselen"},
		{domain.IntentDrugSensitivityTest, "tests:ebselen"},
		{"DRUG INFORMATION", "drug:ebselen"},
	}
	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			kb.calls = nil

			_, err := d.Dispatch(context.Background(), "q?", classified(tt.intent, "default", e))

			require.NoError(t, err)
			assert.Equal(t, []string{tt.call}, kb.calls)
		})
	}
}

func TestRetrievalDispatcher_TargetPathwayReroutes(t *testing.T) {
	kb := newMockKnowledgeBase()
	kb.pathways["ebselen"] = []domain.PathwayHit{hit("P1", "Glycolysis", "pfkA", "Rv3010c")}
	d := NewRetrievalDispatcher(kb, nil)

	out, err := d.Dispatch(context.Background(), "Which pathways do its targets join?",
		classified(domain.IntentTarget, "pathway", drugEntity("ebselen")))

	require.NoError(t, err)
	assert.Equal(t, []string{"pathways:ebselen"}, kb.calls)
	assert.Equal(t, "target", out.Intent)
	assert.Equal(t, "pathway", out.SubIntent)
	require.Len(t, out.Data, 1)
	assert.Equal(t, []string{"Rv3010c", "pfkA"}, out.Data[0].(domain.Record)["genes"])
}

func TestRetrievalDispatcher_OnlyTargetPathwayReroutes(t *testing.T) {
	kb := newMockKnowledgeBase()
	d := NewRetrievalDispatcher(kb, nil)

	_, err := d.Dispatch(context.Background(), "q?",
		classified(domain.IntentDrugInformation, "pathway", drugEntity("ebselen")))

	require.NoError(t, err)
	assert.Equal(t, []string{"drug:ebselen"}, kb.calls)
}

func TestRetrievalDispatcher_UnknownIntentPassesThrough(t *testing.T) {
	kb := newMockKnowledgeBase()
	d := NewRetrievalDispatcher(kb, nil)

	out, err := d.Dispatch(context.Background(), "What is the weather?",
		classified("Unknown", "default", drugEntity("ebselen")))

	require.NoError(t, err)
	assert.True(t, out.Passthrough)
	assert.Empty(t, kb.calls)
	assert.Equal(t, "unknown", out.Intent)
}

func TestRetrievalDispatcher_ProjectsField(t *testing.T) {
	kb := newMockKnowledgeBase()
	kb.tests["ebselen"] = []domain.SusceptibilityTest{
		{DrugName: "ebselen", MICValue: "20 μM", ReferenceStrain: "H37Rv"},
		{DrugName: "ebselen", MICValue: "10 μM"},
	}
	d := NewRetrievalDispatcher(kb, nil)

	out, err := d.Dispatch(context.Background(), "What is the MIC value of ebselen?",
		classified(domain.IntentDrugSensitivityTest, "MIC value", drugEntity("ebselen")))

	require.NoError(t, err)
	assert.Equal(t, []any{"20 μM", "10 μM"}, out.Data)
	assert.Equal(t, "ebselen", out.EntityName)
}

func TestRetrievalDispatcher_DefaultKeepsWholeRecords(t *testing.T) {
	kb := newMockKnowledgeBase()
	kb.drugs["glimepiride"] = domain.Drug{Name: "Glimepiride", Indication: "type 2 diabetes", Stages: "Approved"}
	d := NewRetrievalDispatcher(kb, nil)

	out, err := d.Dispatch(context.Background(), "Tell me about glimepiride?",
		classified(domain.IntentDrugInformation, "basic_info", drugEntity("glimepiride")))

	require.NoError(t, err)
	want := []any{domain.Record{
		"drug_name":  "Glimepiride",
		"indication": "type 2 diabetes",
		"atc_code":   "",
		"stages":     "Approved",
	}}
	if diff := cmp.Diff(want, out.Data); diff != "" {
		t.Errorf("Dispatch() data mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrievalDispatcher_StoreErrorsLeaveDataEmpty(t *testing.T) {
	kb := newMockKnowledgeBase()
	kb.err = errors.New("connection reset")
	d := NewRetrievalDispatcher(kb, nil)

	out, err := d.Dispatch(context.Background(), "q?",
		classified(domain.IntentTarget, "target", drugEntity("ebselen")))

	require.NoError(t, err)
	assert.NotNil(t, out.Data)
	assert.Empty(t, out.Data)
}

func TestRetrievalDispatcher_UnsupportedEntityTypeIsTerminal(t *testing.T) {
	d := NewRetrievalDispatcher(newMockKnowledgeBase(), nil)

	_, err := d.Dispatch(context.Background(), "q?",
		classified(domain.IntentPathway, "pathway", domain.NewEntity("katG", domain.EntityType("Gene"))))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedEntityType)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalDispatcher_UnknownEntityIsNotLookedUp(t *testing.T) {
	for _, intent := range []string{domain.IntentPathway, domain.IntentTarget, domain.IntentDrugInformation} {
		t.Run(intent, func(t *testing.T) {
			kb := newMockKnowledgeBase()
			d := NewRetrievalDispatcher(kb, nil)

			out, err := d.Dispatch(context.Background(), "Which pathways are involved?",
				classified(intent, "default", domain.UnknownEntity()))

			require.NoError(t, err)
			assert.Empty(t, kb.calls)
			assert.Equal(t, domain.UnknownEntity().ID, out.EntityName)
			assert.NotNil(t, out.Data)
			assert.Empty(t, out.Data)
		})
	}
}

func TestRetrievalDispatcher_UnknownEntityAlongsideKnownOne(t *testing.T) {
	kb := newMockKnowledgeBase()
	kb.pathways["ebselen"] = []domain.PathwayHit{hit("P1", "Glycolysis", "geneA", domain.NoGene)}
	d := NewRetrievalDispatcher(kb, nil)

	out, err := d.Dispatch(context.Background(), "q?",
		classified(domain.IntentPathway, "pathway", drugEntity("ebselen"), domain.UnknownEntity()))

	require.NoError(t, err)
	assert.Equal(t, []string{"pathways:ebselen"}, kb.calls)
	assert.Len(t, out.Data, 1)
}

func TestRetrievalDispatcher_NoEntities(t *testing.T) {
	kb := newMockKnowledgeBase()
	d := NewRetrievalDispatcher(kb, nil)

	out, err := d.Dispatch(context.Background(), "q?", classified(domain.IntentTarget, "target"))

	require.NoError(t, err)
	assert.Empty(t, kb.calls)
	assert.Empty(t, out.EntityName)
	assert.NotNil(t, out.Data)
}

func TestAggregatePathways(t *testing.T) {
	raw := []any{
		hit("P1", "Glycolysis", "geneA", domain.NoGene).Record(),
		hit("P1", "Glycolysis", "geneB", domain.NoGene).Record(),
		hit("P1", "Glycolysis", domain.NoGene, domain.NoGene).Record(),
		hit("P2", "TCA cycle", "geneA", "Rv0001").Record(),
	}

	got := aggregatePathways(raw)

	want := []any{
		domain.Record{"Pathway_ID": "P1", "pathway_name": "Glycolysis", "pathway_class": "Metabolism",
			"genes": []string{"geneA", "geneB"}},
		domain.Record{"Pathway_ID": "P2", "pathway_name": "TCA cycle", "pathway_class": "Metabolism",
			"genes": []string{"Rv0001", "geneA"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("aggregatePathways() mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregatePathways_EmptyGenes(t *testing.T) {
	got := aggregatePathways([]any{hit("P9", "Lonely", domain.NoGene, "").Record()})

	require.Len(t, got, 1)
	assert.Equal(t, []string{}, got[0].(domain.Record)["genes"])
}

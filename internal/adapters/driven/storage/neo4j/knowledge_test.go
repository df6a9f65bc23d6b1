package neo4j

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

type runCall struct {
	query  string
	params map[string]any
}

// fakeRunner answers queries from canned records.
type fakeRunner struct {
	results map[string][]map[string]any
	err     error
	calls   []runCall
	closed  bool
}

func (f *fakeRunner) run(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.calls = append(f.calls, runCall{query: cypher, params: params})
	if f.err != nil {
		return nil, f.err
	}
	return f.results[cypher], nil
}

func (f *fakeRunner) close(context.Context) error {
	f.closed = true
	return nil
}

func node(props map[string]any) neo4j.Node {
	return neo4j.Node{Props: props}
}

var testReferences = []map[string]any{
	{"ref_id": "R1", "pmid": int64(31166211), "title": "NSAIDs against Mtb"},
	{"ref_id": "R3", "pmid": nil, "title": "Unpublished"},
}

func TestNew_RequiresURI(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestFindDrugs(t *testing.T) {
	r := &fakeRunner{results: map[string][]map[string]any{
		findDrugsQuery: {{"name": "Ebselen"}, {"name": "Bromfenac"}, {"name": nil}},
	}}
	kb := &KnowledgeBase{runner: r}

	names, err := kb.FindDrugs(context.Background(), []string{"e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bromfenac", "Ebselen"}, names)
	assert.Equal(t, []string{"e"}, r.calls[0].params["words"])

	names, err = kb.FindDrugs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, names)
	assert.Len(t, r.calls, 1)
}

func TestDrugInfo_LowersKeysAndKeepsExtras(t *testing.T) {
	r := &fakeRunner{results: map[string][]map[string]any{
		drugInfoQuery: {{"d": node(map[string]any{
			"Drug_name":   "Bromfenac",
			"Indication":  "Ocular inflammation",
			"ATC_code":    "S01BC11",
			"Stages":      "Approved",
			"DrugBank_ID": "DB00963",
		})}},
	}}
	kb := &KnowledgeBase{runner: r}

	drugs, err := kb.DrugInfo(context.Background(), "bromfenac")
	require.NoError(t, err)

	want := []domain.Drug{{
		Name:       "Bromfenac",
		Indication: "Ocular inflammation",
		ATCCode:    "S01BC11",
		Stages:     "Approved",
		Extra:      map[string]any{"drugbank_id": "DB00963"},
	}}
	if diff := cmp.Diff(want, drugs); diff != "" {
		t.Errorf("drug mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "bromfenac", r.calls[0].params["name"])
}

func TestTargets_ResolvesReferences(t *testing.T) {
	r := &fakeRunner{results: map[string][]map[string]any{
		targetsQuery: {
			{"t": node(map[string]any{
				"Target_ID":       "T001",
				"Rv_id":           "Rv1484",
				"Gene_name":       "inhA",
				"Functional type": "enzyme",
				"NCBI_GeneID":     int64(886523),
			}), "evidence_refs": "R1, R3"},
			{"t": node(map[string]any{"Rv_id": "Rv3804c"}), "evidence_refs": []any{"R1"}},
		},
		referencesQuery: testReferences,
	}}
	kb := &KnowledgeBase{runner: r}

	targets, err := kb.Targets(context.Background(), "Bromfenac")
	require.NoError(t, err)
	require.Len(t, targets, 2)

	first := targets[0]
	assert.Equal(t, "enzyme", first.FunctionalType)
	assert.Equal(t, "886523", first.NCBIGeneID)
	assert.Equal(t, []string{"R1", "R3"}, first.Evidence.RefIDs)
	require.Len(t, first.Evidence.References, 1)
	assert.Equal(t, "31166211", first.Evidence.References[0].PMID)

	assert.Equal(t, domain.UnknownProduct, targets[1].Record()["product"])
	assert.Equal(t, []string{"R1"}, targets[1].Evidence.RefIDs)

	refCall := r.calls[len(r.calls)-1]
	assert.Equal(t, referencesQuery, refCall.query)
	assert.Equal(t, []string{"R1", "R3"}, refCall.params["ref_ids"])
}

func TestExperiments(t *testing.T) {
	r := &fakeRunner{results: map[string][]map[string]any{
		experimentsQuery: {{"e": node(map[string]any{
			"Exp_ID":              "EXP001",
			"Drug_resource":       []any{"DrugBank"},
			"Drugs":               "Bromfenac",
			"Effects":             "Inhibits growth",
			"Repurposing_methods": "virtual screening",
		}), "evidence_refs": nil}},
	}}
	kb := &KnowledgeBase{runner: r}

	exps, err := kb.Experiments(context.Background(), "Bromfenac")
	require.NoError(t, err)
	require.Len(t, exps, 1)

	rec := exps[0].Record()
	assert.Equal(t, "Inhibits growth", rec["experiment_effect"])
	assert.Equal(t, []string{"DrugBank"}, rec["drug_resource"])
	assert.Equal(t, []string{"virtual screening"}, rec["repurposing_methods"])
	assert.Equal(t, []string{}, rec["evidence_refs"])

	// No reference ids means no reference lookup.
	assert.Len(t, r.calls, 1)
}

func TestSusceptibilityTests(t *testing.T) {
	r := &fakeRunner{results: map[string][]map[string]any{
		susceptibilityTestsQuery: {{"e": node(map[string]any{
			"Drug_name":        "Bromfenac",
			"MIC_value":        "12.5 ug/mL",
			"Reference_strain": "H37Rv",
			"Test_strain_type": "drug-sensitive",
		}), "evidence_refs": "R1"}},
		referencesQuery: testReferences,
	}}
	kb := &KnowledgeBase{runner: r}

	tests, err := kb.SusceptibilityTests(context.Background(), "Bromfenac")
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "12.5 ug/mL", tests[0].MICValue)
	assert.Equal(t, "drug-sensitive", tests[0].TestStrainType)
	assert.Len(t, tests[0].Evidence.References, 1)
}

func TestPathways(t *testing.T) {
	pathway := node(map[string]any{
		"Pathway_ID":    "mtu00061",
		"Pathway_name":  "Fatty acid biosynthesis",
		"Pathway_class": "Metabolism",
		"Gene_count":    int64(14),
	})
	r := &fakeRunner{results: map[string][]map[string]any{
		drugPathwaysQuery:   {{"p": pathway, "rv_id": "Rv1484", "product": nil, "gene_name": "inhA"}},
		targetPathwaysQuery: {{"p": pathway, "rv_id": "Rv1484", "product": "InhA", "gene_name": "inhA"}},
	}}
	kb := &KnowledgeBase{runner: r}
	ctx := context.Background()

	hits, err := kb.Pathways(ctx, domain.EntityTypeDrug, "Bromfenac")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 14, hits[0].Pathway.GeneCount)
	assert.Equal(t, "", hits[0].Product)

	hits, err = kb.Pathways(ctx, domain.EntityType("target"), "Rv1484")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "InhA", hits[0].Product)
	assert.Equal(t, "Rv1484", r.calls[1].params["id"])

	_, err = kb.Pathways(ctx, domain.EntityTypeUnknown, "unknown")
	assert.ErrorIs(t, err, domain.ErrUnsupportedEntityType)
	assert.Len(t, r.calls, 2)
}

func TestReferences_SkipsMissingPMID(t *testing.T) {
	kb := &KnowledgeBase{runner: &fakeRunner{results: map[string][]map[string]any{
		referencesQuery: testReferences,
	}}}

	refs, err := kb.References(context.Background(), []string{"R1", "R3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Reference{
		"R1": {RefID: "R1", PMID: "31166211", Title: "NSAIDs against Mtb"},
	}, refs)
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	kb := &KnowledgeBase{runner: &fakeRunner{err: boom}}
	ctx := context.Background()

	_, err := kb.DrugInfo(ctx, "x")
	assert.ErrorIs(t, err, boom)
	_, err = kb.Targets(ctx, "x")
	assert.ErrorIs(t, err, boom)
	_, err = kb.Pathways(ctx, domain.EntityTypeDrug, "x")
	assert.ErrorIs(t, err, boom)
	_, err = kb.References(ctx, []string{"R1"})
	assert.ErrorIs(t, err, boom)
}

func TestClose(t *testing.T) {
	r := &fakeRunner{}
	kb := &KnowledgeBase{runner: r}
	require.NoError(t, kb.Close())
	assert.True(t, r.closed)
}

func TestEvidenceRefs(t *testing.T) {
	assert.Equal(t, []string{"R1", "R2"}, evidenceRefs("R1, R2"))
	assert.Equal(t, []string{"R1", "R2"}, evidenceRefs([]any{" R1", "R2 ", ""}))
	assert.Nil(t, evidenceRefs(nil))
}

func TestNodeProps_AcceptsMaps(t *testing.T) {
	assert.Equal(t, map[string]any{"rv_id": "Rv1"}, nodeProps(map[string]any{"Rv_ID": "Rv1"}))
	assert.Empty(t, nodeProps(nil))
}

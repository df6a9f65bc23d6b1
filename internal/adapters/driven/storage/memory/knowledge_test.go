package memory

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/fixture"
	"github.com/custodia-labs/tbqa/internal/core/domain"
)

const testFixture = "../fixture/testdata/kb.yaml"

func loadTestKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	kb, err := NewKnowledgeBaseFromFile(testFixture)
	require.NoError(t, err)
	return kb
}

func TestKnowledgeBase_FindDrugs(t *testing.T) {
	kb := loadTestKB(t)
	ctx := context.Background()

	names, err := kb.FindDrugs(ctx, []string{"BROM", "xyz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bromfenac"}, names)

	names, err = kb.FindDrugs(ctx, []string{"e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bromfenac", "Ebselen"}, names)

	names, err = kb.FindDrugs(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, names)
}

func TestKnowledgeBase_DrugInfo(t *testing.T) {
	kb := loadTestKB(t)

	drugs, err := kb.DrugInfo(context.Background(), "bromfenac")
	require.NoError(t, err)
	require.Len(t, drugs, 1)
	assert.Equal(t, "S01BC11", drugs[0].ATCCode)
	assert.Equal(t, "DB00963", drugs[0].Record()["drugbank_id"])

	drugs, err = kb.DrugInfo(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.Empty(t, drugs)
}

func TestKnowledgeBase_Targets_ResolvesReferences(t *testing.T) {
	kb := loadTestKB(t)

	targets, err := kb.Targets(context.Background(), "Bromfenac")
	require.NoError(t, err)
	require.Len(t, targets, 1)

	want := domain.Evidence{
		RefIDs: []string{"R1", "R3"},
		References: []domain.Reference{{
			RefID: "R1",
			PMID:  "31166211",
			Title: "Repurposing non-steroidal anti-inflammatory drugs against Mycobacterium tuberculosis",
		}},
	}
	if diff := cmp.Diff(want, targets[0].Evidence); diff != "" {
		t.Errorf("evidence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "inhA", targets[0].GeneName)
}

func TestKnowledgeBase_TargetWithoutProduct(t *testing.T) {
	kb := loadTestKB(t)

	targets, err := kb.Targets(context.Background(), "ebselen")
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, domain.UnknownProduct, targets[0].Record()["product"])
}

func TestKnowledgeBase_ExperimentsAndTests(t *testing.T) {
	kb := loadTestKB(t)
	ctx := context.Background()

	exps, err := kb.Experiments(ctx, "Bromfenac")
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, "Inhibits growth of H37Rv", exps[0].Record()["experiment_effect"])

	tests, err := kb.SusceptibilityTests(ctx, "Bromfenac")
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "Bromfenac", tests[0].DrugName)
	assert.Equal(t, "drug-sensitive", tests[0].TestStrainType)

	exps, err = kb.Experiments(ctx, "Ebselen")
	require.NoError(t, err)
	assert.Empty(t, exps)
}

func TestKnowledgeBase_Pathways(t *testing.T) {
	kb := loadTestKB(t)
	ctx := context.Background()

	hits, err := kb.Pathways(ctx, domain.EntityTypeDrug, "EBSELEN")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "Rv3804c", hits[0].RvID)
	assert.Equal(t, "mtu00061", hits[0].Pathway.PathwayID)

	hits, err = kb.Pathways(ctx, domain.EntityTypeTarget, "Rv1484")
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = kb.Pathways(ctx, domain.EntityTypeTarget, "Rv0000")
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = kb.Pathways(ctx, domain.EntityTypeUnknown, "unknown")
	assert.ErrorIs(t, err, domain.ErrUnsupportedEntityType)
}

func TestKnowledgeBase_References(t *testing.T) {
	kb := loadTestKB(t)

	refs, err := kb.References(context.Background(), []string{"R1", "R3", "R9"})
	require.NoError(t, err)
	assert.Len(t, refs, 1)
	assert.Contains(t, refs, "R1")
}

func TestKnowledgeBase_LoadReplaces(t *testing.T) {
	kb := loadTestKB(t)

	require.NoError(t, kb.Load(&fixture.Graph{Drugs: []fixture.Drug{{Name: "Mefloquine"}}}))

	names, err := kb.FindDrugs(context.Background(), []string{"e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mefloquine"}, names)
	assert.NoError(t, kb.Close())
}

func TestKnowledgeBase_LoadRejectsInvalidGraph(t *testing.T) {
	kb := NewKnowledgeBase()
	err := kb.Load(&fixture.Graph{Drugs: []fixture.Drug{{Name: "A", Targets: []fixture.TargetLink{{RvID: "Rv1"}}}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

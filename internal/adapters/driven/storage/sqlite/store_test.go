package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/fixture"
	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tbqa-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// setupImportedKB returns a knowledge base loaded with the shared test fixture.
func setupImportedKB(t *testing.T) (driven.KnowledgeBase, func()) {
	t.Helper()
	store, cleanup := setupTestStore(t)

	g, err := fixture.Load("../fixture/testdata/kb.yaml")
	require.NoError(t, err)
	require.NoError(t, store.Import(context.Background(), g))

	return store.KnowledgeBase(), cleanup
}

// ==================== Store Creation Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, "knowledge.db", filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsRecordedOnce(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run the migration.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	_, err := NewStore(filepath.Join(file, "data"))
	assert.Error(t, err)
}

// ==================== Import Tests ====================

func TestImport_ReplacesPreviousGraph(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	g, err := fixture.Load("../fixture/testdata/kb.yaml")
	require.NoError(t, err)
	require.NoError(t, store.Import(ctx, g))
	require.NoError(t, store.Import(ctx, &fixture.Graph{Drugs: []fixture.Drug{{Name: "Mefloquine"}}}))

	names, err := store.KnowledgeBase().FindDrugs(ctx, []string{"e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mefloquine"}, names)
}

func TestImport_InvalidGraphLeavesStoreUntouched(t *testing.T) {
	kb, cleanup := setupImportedKB(t)
	defer cleanup()
	store := kb.(*knowledgeBase).store

	bad := &fixture.Graph{Drugs: []fixture.Drug{{Name: "A", Targets: []fixture.TargetLink{{RvID: "Rv9"}}}}}
	assert.ErrorIs(t, store.Import(context.Background(), bad), domain.ErrInvalidInput)

	drugs, err := kb.DrugInfo(context.Background(), "Bromfenac")
	require.NoError(t, err)
	assert.Len(t, drugs, 1)
}

func TestImport_CancelledContext(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Import(ctx, &fixture.Graph{Drugs: []fixture.Drug{{Name: "A"}}}))
}

// ==================== Knowledge Base Tests ====================

func TestKnowledgeBase_FindDrugs(t *testing.T) {
	kb, cleanup := setupImportedKB(t)
	defer cleanup()
	ctx := context.Background()

	names, err := kb.FindDrugs(ctx, []string{"SEL", "nothing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ebselen"}, names)

	names, err = kb.FindDrugs(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, names)
}

func TestKnowledgeBase_DrugInfo(t *testing.T) {
	kb, cleanup := setupImportedKB(t)
	defer cleanup()

	drugs, err := kb.DrugInfo(context.Background(), "BROMFENAC")
	require.NoError(t, err)
	require.Len(t, drugs, 1)

	d := drugs[0]
	assert.Equal(t, "Bromfenac", d.Name)
	assert.Equal(t, "Approved", d.Stages)
	assert.Equal(t, "DB00963", d.Record()["drugbank_id"])

	drugs, err = kb.DrugInfo(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.Empty(t, drugs)
}

func TestKnowledgeBase_Targets(t *testing.T) {
	kb, cleanup := setupImportedKB(t)
	defer cleanup()

	targets, err := kb.Targets(context.Background(), "ebselen")
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, "Rv3804c", targets[0].RvID)
	assert.Equal(t, []string{"R2"}, targets[0].Evidence.RefIDs)
	require.Len(t, targets[0].Evidence.References, 1)
	assert.Equal(t, "29440263", targets[0].Evidence.References[0].PMID)

	assert.Equal(t, "Rv1484", targets[1].RvID)
	assert.Empty(t, targets[1].Evidence.RefIDs)
}

func TestKnowledgeBase_Experiments(t *testing.T) {
	kb, cleanup := setupImportedKB(t)
	defer cleanup()

	exps, err := kb.Experiments(context.Background(), "Bromfenac")
	require.NoError(t, err)
	require.Len(t, exps, 1)

	want := domain.RepurposingExperiment{
		ExpID:              "EXP001",
		DrugResource:       []string{"DrugBank"},
		Drug:               "Bromfenac",
		Effect:             "Inhibits growth of H37Rv",
		ExperimentType:     "in vitro",
		ProbableMechanisms: "InhA inhibition",
		RepurposingMethods: []string{"virtual screening", "whole-cell assay"},
		TherapeuticTypes:   "antibacterial",
		TypeOfMechanism:    "enzyme inhibition",
		Evidence: domain.Evidence{
			RefIDs: []string{"R1"},
			References: []domain.Reference{{
				RefID: "R1",
				PMID:  "31166211",
				Title: "Repurposing non-steroidal anti-inflammatory drugs against Mycobacterium tuberculosis",
			}},
		},
	}
	if diff := cmp.Diff(want, exps[0]); diff != "" {
		t.Errorf("experiment mismatch (-want +got):\n%s", diff)
	}
}

func TestKnowledgeBase_SusceptibilityTests(t *testing.T) {
	kb, cleanup := setupImportedKB(t)
	defer cleanup()

	tests, err := kb.SusceptibilityTests(context.Background(), "bromfenac")
	require.NoError(t, err)
	require.Len(t, tests, 1)

	assert.Equal(t, "Bromfenac", tests[0].DrugName)
	assert.Equal(t, "12.5 ug/mL", tests[0].MICValue)
	assert.Equal(t, "H37Rv", tests[0].ReferenceStrain)
	assert.Equal(t, "ATCC 27294", tests[0].TestStrainID)
}

func TestKnowledgeBase_Pathways(t *testing.T) {
	kb, cleanup := setupImportedKB(t)
	defer cleanup()
	ctx := context.Background()

	hits, err := kb.Pathways(ctx, domain.EntityTypeDrug, "Ebselen")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "Rv3804c", hits[0].RvID)
	assert.Equal(t, "fbpA", hits[0].GeneName)
	assert.Equal(t, "Rv1484", hits[1].RvID)
	assert.Equal(t, "mtu00061", hits[1].Pathway.PathwayID)
	assert.Equal(t, "mtu01040", hits[2].Pathway.PathwayID)
	assert.Equal(t, 7, hits[2].Pathway.GeneCount)

	hits, err = kb.Pathways(ctx, domain.EntityType("target"), "Rv1484")
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	_, err = kb.Pathways(ctx, domain.EntityTypeUnknown, "x")
	assert.ErrorIs(t, err, domain.ErrUnsupportedEntityType)
}

func TestKnowledgeBase_References(t *testing.T) {
	kb, cleanup := setupImportedKB(t)
	defer cleanup()
	ctx := context.Background()

	refs, err := kb.References(ctx, []string{"R1", "R2", "R3"})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.NotContains(t, refs, "R3")

	refs, err = kb.References(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

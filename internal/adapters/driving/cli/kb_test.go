package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

func TestKBImportCmd(t *testing.T) {
	ts, cleanup := setupTestServicesWith(&mockQAService{})
	defer cleanup()
	ts.importer.summary = domain.ImportSummary{
		Store: "/tmp/knowledge.db", Drugs: 2, Targets: 2, Pathways: 2, References: 2,
	}

	out, err := execute(t, "kb", "import", "kb.yaml")

	require.NoError(t, err)
	assert.Equal(t, "kb.yaml", ts.importer.path)
	assert.Contains(t, out, "Imported 2 drugs, 2 targets, 2 pathways and 2 references into /tmp/knowledge.db")
}

func TestKBImportCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServicesWith(&mockQAService{})
	defer cleanup()
	ts.importer.err = domain.ErrInvalidInput

	_, err := execute(t, "kb", "import", "kb.yaml")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestKBImportCmd_RequiresPath(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "kb", "import")

	assert.Error(t, err)
}

func TestKBFindCmd(t *testing.T) {
	_, cleanup := setupTestServicesWith(&mockQAService{drugs: []string{"Bromfenac", "Ebselen"}})
	defer cleanup()

	out, err := execute(t, "kb", "find", "brom", "ebs")

	require.NoError(t, err)
	assert.Contains(t, out, "  Bromfenac\n")
	assert.Contains(t, out, "  Ebselen\n")
}

func TestKBFindCmd_NoMatches(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "kb", "find", "zzz")

	require.NoError(t, err)
	assert.Contains(t, out, "No drugs found.")
}

func TestKBFindCmd_Error(t *testing.T) {
	_, cleanup := setupTestServicesWith(&mockQAService{findErr: errors.New("kb down")})
	defer cleanup()

	_, err := execute(t, "kb", "find", "x")

	assert.EqualError(t, err, "kb down")
}

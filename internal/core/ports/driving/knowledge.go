package driving

import (
	"context"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// KnowledgeImporter loads a knowledge-graph fixture into the persistent store.
type KnowledgeImporter interface {
	// Import replaces the stored graph with the fixture at path.
	Import(ctx context.Context, path string) (domain.ImportSummary, error)
}

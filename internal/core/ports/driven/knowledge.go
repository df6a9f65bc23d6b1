package driven

import (
	"context"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// KnowledgeBase is the read contract of the TB drug knowledge graph.
// Lookups by drug name are case-insensitive.
type KnowledgeBase interface {
	// FindDrugs returns the names of drugs whose name contains any of words,
	// ignoring case.
	FindDrugs(ctx context.Context, words []string) ([]string, error)

	// DrugInfo returns the drug nodes named name.
	DrugInfo(ctx context.Context, name string) ([]domain.Drug, error)

	// Targets returns the targets of a drug with resolved references.
	Targets(ctx context.Context, drug string) ([]domain.Target, error)

	// Experiments returns the repurposing experiments of a drug.
	Experiments(ctx context.Context, drug string) ([]domain.RepurposingExperiment, error)

	// SusceptibilityTests returns the susceptibility tests of a drug.
	SusceptibilityTests(ctx context.Context, drug string) ([]domain.SusceptibilityTest, error)

	// Pathways returns one hit per (target, pathway) pair reachable from the entity.
	// Drugs reach pathways through their targets; targets are keyed by Rv id.
	// Other entity types fail with domain.ErrUnsupportedEntityType.
	Pathways(ctx context.Context, entityType domain.EntityType, id string) ([]domain.PathwayHit, error)

	// References resolves reference ids. Ids without a PMID are omitted.
	References(ctx context.Context, refIDs []string) (map[string]domain.Reference, error)

	// Close releases resources.
	Close() error
}

// Package domain defines the core types of the TB knowledge-graph QA pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Entity: A resolved drug or target reference
//   - ConversationTurn: One entry of the bounded conversation history
//   - IntentResult: The intent/sub-intent classification of an atomic question
//   - Drug, Target, RepurposingExperiment, SusceptibilityTest, PathwayHit: knowledge-graph records
//   - IntentData: The structured data gathered for one atomic question
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

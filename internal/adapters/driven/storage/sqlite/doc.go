// Package sqlite provides an embedded SQLite knowledge-graph store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It holds a snapshot of the TB drug knowledge graph imported from a YAML
// fixture and serves it through driven.KnowledgeBase:
//
//   - drugs, targets, pathways and refs hold the nodes
//   - drug_targets and target_pathways hold the relationships between nodes
//   - experiments and susceptibility_tests hold the per-drug assay nodes
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.tbqa/data/knowledge.db
package sqlite

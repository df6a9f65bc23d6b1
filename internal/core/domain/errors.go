package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedEntityType indicates a lookup was keyed by an entity type it cannot serve.
	// Pathway lookups accept only Drug and Target entities.
	ErrUnsupportedEntityType = fmt.Errorf("%w: unsupported entity type", ErrInvalidInput)

	// ErrLLMUnavailable indicates the completion service is not configured.
	// Splitting and classification fall back to their deterministic defaults.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrKnowledgeBaseUnavailable indicates no knowledge-graph store is configured.
	ErrKnowledgeBaseUnavailable = errors.New("knowledge base unavailable")

	// ErrNoEntries indicates an entries file contained no entries.
	ErrNoEntries = errors.New("no entries found in input")

	// ErrInvalidConfig indicates settings failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

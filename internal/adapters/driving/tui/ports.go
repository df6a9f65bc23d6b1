// Package tui provides an interactive chat interface for tbqa.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/tbqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// QA answers questions and owns the conversation history.
	QA driving.QAService
}

// NewPorts creates a new Ports aggregate.
func NewPorts(qa driving.QAService) *Ports {
	return &Ports{QA: qa}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.QA == nil {
		return ErrMissingQAService
	}
	return nil
}

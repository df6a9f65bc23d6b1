package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPorts(t *testing.T) {
	qa := &mockQAService{}

	p := NewPorts(qa)

	assert.Same(t, qa, p.QA)
	assert.NoError(t, p.Validate())
}

func TestPorts_Validate_MissingQA(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingQAService)
	assert.ErrorIs(t, (*Ports)(nil).Validate(), ErrMissingQAService)
}

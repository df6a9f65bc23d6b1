package services

import (
	"github.com/google/uuid"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// History is a bounded, append-only conversation log, most recent last.
// When full, appending evicts the oldest turn.
// History is not safe for concurrent use; QAService serialises access.
type History struct {
	limit int
	turns []domain.ConversationTurn
}

// NewHistory creates a history bounded to limit turns.
// A non-positive limit uses domain.DefaultHistorySize.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = domain.DefaultHistorySize
	}
	return &History{
		limit: limit,
		turns: make([]domain.ConversationTurn, 0, limit),
	}
}

// Append records a turn, assigning it an id if it has none.
func (h *History) Append(turn domain.ConversationTurn) {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	turn.Entities = append([]domain.Entity(nil), turn.Entities...)
	if len(h.turns) >= h.limit {
		copy(h.turns, h.turns[1:])
		h.turns = h.turns[:len(h.turns)-1]
	}
	h.turns = append(h.turns, turn)
}

// Len returns the number of turns held.
func (h *History) Len() int {
	return len(h.turns)
}

// Limit returns the configured bound.
func (h *History) Limit() int {
	return h.limit
}

// Turns returns a copy of the log, oldest first.
func (h *History) Turns() []domain.ConversationTurn {
	return append([]domain.ConversationTurn(nil), h.turns...)
}

// Clear drops every turn.
func (h *History) Clear() {
	h.turns = h.turns[:0]
}

// LastEntityOfType walks the log from newest to oldest and returns the first
// entity of type t found in any turn.
func (h *History) LastEntityOfType(t domain.EntityType) (domain.Entity, bool) {
	for i := len(h.turns) - 1; i >= 0; i-- {
		for _, e := range h.turns[i].Entities {
			if e.IsType(t) {
				return e, true
			}
		}
	}
	return domain.Entity{}, false
}

// LastEntity walks the log from newest to oldest and returns the first
// entity that is not the unknown sentinel.
func (h *History) LastEntity() (domain.Entity, bool) {
	for i := len(h.turns) - 1; i >= 0; i-- {
		for _, e := range h.turns[i].Entities {
			if !e.IsUnknown() {
				return e, true
			}
		}
	}
	return domain.Entity{}, false
}

package domain

import "strings"

// EntityType tags what kind of knowledge-graph object an entity refers to.
type EntityType string

// Known entity types.
const (
	// EntityTypeDrug is a drug (the default when a type is unknown).
	EntityTypeDrug EntityType = "Drug"

	// EntityTypeTarget is a protein target, keyed by its Rv identifier.
	EntityTypeTarget EntityType = "Target"

	// EntityTypeUnknown marks the sentinel entity returned when nothing resolves.
	EntityTypeUnknown EntityType = "unknown"
)

// UnknownEntityID is the id of the sentinel entity.
const UnknownEntityID = "unknown"

// String returns the string representation.
func (t EntityType) String() string {
	return string(t)
}

// Entity is a resolved reference to a drug or target mentioned in a question.
// Entities are immutable once created.
type Entity struct {
	ID   string     `json:"id"`
	Type EntityType `json:"type"`
}

// NewEntity builds an entity, defaulting the type to Drug.
func NewEntity(id string, t EntityType) Entity {
	if t == "" {
		t = EntityTypeDrug
	}
	return Entity{ID: id, Type: t}
}

// UnknownEntity returns the sentinel used when every resolution stage fails.
func UnknownEntity() Entity {
	return Entity{ID: UnknownEntityID, Type: EntityTypeUnknown}
}

// IsUnknown reports whether e is the unknown sentinel.
func (e Entity) IsUnknown() bool {
	return e.Type == EntityTypeUnknown
}

// IsType reports whether the entity has the given type, ignoring case.
func (e Entity) IsType(t EntityType) bool {
	return strings.EqualFold(string(e.Type), string(t))
}

// EntityIDs returns the ids of the given entities in order.
func EntityIDs(entities []Entity) []string {
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	return ids
}

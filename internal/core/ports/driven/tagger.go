package driven

import "context"

// LabelChemical is the tagger label for drug and chemical mentions.
const LabelChemical = "CHEMICAL"

// TaggedSpan is a named-entity mention.
type TaggedSpan struct {
	Text  string
	Label string
}

// EntityTagger finds named-entity mentions in text.
type EntityTagger interface {
	// Tag returns the entity mentions found in text, in order.
	Tag(ctx context.Context, text string) ([]TaggedSpan, error)
}

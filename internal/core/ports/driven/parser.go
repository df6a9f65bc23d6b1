package driven

import "context"

// Token is one token of a dependency parse.
type Token struct {
	// Text is the token text.
	Text string

	// Index is the token's position in the sentence.
	Index int

	// Head is the Index of the syntactic head. The root is its own head.
	Head int

	// Dep is the dependency relation to the head (conj, pobj, amod, ...).
	Dep string

	// POS is the coarse part-of-speech tag (NOUN, PROPN, ...).
	POS string

	// Offset is the byte offset of the token in the parsed text.
	Offset int
}

// DependencyParser produces a dependency parse of a sentence.
type DependencyParser interface {
	// Parse returns the tokens of text ordered by Index.
	Parse(ctx context.Context, text string) ([]Token, error)
}

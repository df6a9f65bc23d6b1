package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// patternCacheSize bounds the number of compiled word-boundary patterns kept.
const patternCacheSize = 512

// DefaultStopTerms are generic domain nouns that are never entity mentions.
func DefaultStopTerms() []string {
	return []string{
		"target", "targets", "pathway", "pathways", "gene", "genes", "protein", "proteins",
		"mechanism", "mechanisms", "mic", "indication", "indications",
	}
}

// pronouns is the closed set of words that refer back to an earlier entity.
// "drug" also covers "this drug".
var pronouns = map[string]struct{}{
	"it": {}, "they": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"them": {}, "its": {}, "drug": {},
}

// queryWord splits a query into knowledge-base search words.
var queryWord = regexp.MustCompile(`[\p{L}\p{N}\-]+`)

// ResolveOptions carries the conversational context of a resolution.
type ResolveOptions struct {
	// Context holds entities already known for the current dialogue turn.
	Context []domain.Entity

	// History is consulted when the query refers back to an earlier turn.
	History *History

	// SkipHistory disables the history fallback.
	SkipHistory bool
}

// resolveRequest is the state shared by the stages of one resolution.
type resolveRequest struct {
	query     string
	queryNorm string
	opts      ResolveOptions

	// taggerCandidates counts chemical mentions before filtering.
	taggerCandidates int
}

// resolveStage is one step of the resolution cascade.
type resolveStage struct {
	name string
	run  func(ctx context.Context, req *resolveRequest) []domain.Entity
}

// EntityResolver finds the drug and target entities a question refers to.
// Stages run in order and the first stage that yields an entity wins.
type EntityResolver struct {
	tagger    driven.EntityTagger
	kb        driven.KnowledgeBase
	stopTerms map[string]struct{}
	patterns  *lru.Cache[string, *regexp.Regexp]
	stages    []resolveStage
}

// NewEntityResolver creates a resolver. The tagger and knowledge base are optional;
// a nil collaborator contributes no candidates.
func NewEntityResolver(tagger driven.EntityTagger, kb driven.KnowledgeBase, stopTerms []string) *EntityResolver {
	if stopTerms == nil {
		stopTerms = DefaultStopTerms()
	}
	patterns, _ := lru.New[string, *regexp.Regexp](patternCacheSize)
	r := &EntityResolver{
		tagger:    tagger,
		kb:        kb,
		stopTerms: make(map[string]struct{}, len(stopTerms)),
		patterns:  patterns,
	}
	for _, t := range stopTerms {
		r.stopTerms[Normalize(t)] = struct{}{}
		r.stopTerms[strings.ToLower(t)] = struct{}{}
	}
	r.stages = []resolveStage{
		{name: "tagger", run: r.fromTagger},
		{name: "context", run: r.fromContext},
		{name: "history", run: r.fromHistory},
		{name: "knowledge-base", run: r.fromKnowledgeBase},
	}
	return r
}

// Resolve returns the ordered, de-duplicated entities referenced by query.
// It never returns an empty slice: when every stage fails the result is the
// unknown sentinel alone.
func (r *EntityResolver) Resolve(ctx context.Context, query string, opts ResolveOptions) []domain.Entity {
	req := &resolveRequest{
		query:     query,
		queryNorm: Normalize(query),
		opts:      opts,
	}
	for _, stage := range r.stages {
		found := dedupeEntities(stage.run(ctx, req))
		if len(found) > 0 {
			logger.Debug("Entities resolved by %s stage: %v", stage.name, domain.EntityIDs(found))
			return found
		}
	}
	logger.Debug("No entity resolved for %q", query)
	return []domain.Entity{domain.UnknownEntity()}
}

func (r *EntityResolver) fromTagger(ctx context.Context, req *resolveRequest) []domain.Entity {
	if r.tagger == nil {
		return nil
	}
	spans, err := r.tagger.Tag(ctx, req.query)
	if err != nil {
		logger.Warn("entity tagger failed: %v", err)
		return nil
	}
	var candidates []string
	for _, s := range spans {
		if s.Label == driven.LabelChemical {
			candidates = append(candidates, s.Text)
		}
	}
	req.taggerCandidates = len(candidates)
	return r.matchCandidates(req.queryNorm, candidates)
}

func (r *EntityResolver) fromContext(_ context.Context, req *resolveRequest) []domain.Entity {
	if !req.refersBack() {
		return nil
	}
	out := make([]domain.Entity, 0, len(req.opts.Context))
	for _, e := range req.opts.Context {
		out = append(out, domain.NewEntity(e.ID, e.Type))
	}
	return out
}

func (r *EntityResolver) fromHistory(_ context.Context, req *resolveRequest) []domain.Entity {
	if !req.refersBack() || req.opts.SkipHistory || req.opts.History == nil {
		return nil
	}
	e, ok := req.opts.History.LastEntityOfType(domain.EntityTypeDrug)
	if !ok {
		e, ok = req.opts.History.LastEntity()
	}
	if !ok {
		return nil
	}
	return []domain.Entity{domain.NewEntity(e.ID, e.Type)}
}

func (r *EntityResolver) fromKnowledgeBase(ctx context.Context, req *resolveRequest) []domain.Entity {
	if r.kb == nil {
		return nil
	}
	words := queryWord.FindAllString(req.query, -1)
	if len(words) == 0 {
		return nil
	}
	names, err := r.kb.FindDrugs(ctx, words)
	if err != nil {
		logger.Warn("knowledge base drug search failed: %v", err)
		return nil
	}
	return r.matchCandidates(req.queryNorm, names)
}

// matchCandidates keeps candidates that are not stop terms and occur in the
// normalised query as whole words.
func (r *EntityResolver) matchCandidates(queryNorm string, candidates []string) []domain.Entity {
	var out []domain.Entity
	for _, c := range candidates {
		cn := Normalize(c)
		if cn == "" {
			continue
		}
		if _, stop := r.stopTerms[cn]; stop {
			continue
		}
		if r.wordBoundaryMatch(queryNorm, cn) {
			out = append(out, domain.NewEntity(cn, domain.EntityTypeDrug))
		}
	}
	return out
}

// wordBoundaryMatch reports whether candidateNorm occurs in queryNorm with no
// letter, digit or underscore on either side. RE2's \b is ASCII-only, so the
// boundaries are spelled out to keep names like "β-lapachone" matchable.
func (r *EntityResolver) wordBoundaryMatch(queryNorm, candidateNorm string) bool {
	re, ok := r.patterns.Get(candidateNorm)
	if !ok {
		re = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(candidateNorm) + `(?:$|[^\p{L}\p{N}_])`)
		r.patterns.Add(candidateNorm, re)
	}
	return re.MatchString(queryNorm)
}

// refersBack reports whether the context fallbacks apply: the tagger found no
// candidates at all, or the query uses a pronoun.
func (req *resolveRequest) refersBack() bool {
	return req.taggerCandidates == 0 || hasPronoun(req.queryNorm)
}

func hasPronoun(queryNorm string) bool {
	words := strings.FieldsFunc(queryNorm, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := pronouns[w]; ok {
			return true
		}
	}
	return false
}

// dedupeEntities drops repeated normalised ids, keeping the first occurrence.
func dedupeEntities(entities []domain.Entity) []domain.Entity {
	if len(entities) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(entities))
	out := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		key := Normalize(e.ID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

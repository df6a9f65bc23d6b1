// Package neo4j serves the TB drug knowledge graph from a Neo4j database.
//
// The graph has Drug, Target, Pathway, RepurposingExp, DSTest and Reference
// nodes. Drug names are matched case-insensitively. Evidence reference ids live
// on the TARGETS, HAS_REPURPOSING_EXP and HAS_SUSCEPTIBILITY_TEST
// relationships as a comma-separated string or a list.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// Ensure KnowledgeBase implements the interface.
var _ driven.KnowledgeBase = (*KnowledgeBase)(nil)

// Config holds the connection settings.
type Config struct {
	URI      string
	User     string
	Password string

	// Database selects a database; empty uses the server default.
	Database string
}

// runner executes a read query and returns each record as a map.
type runner interface {
	run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	close(ctx context.Context) error
}

// KnowledgeBase implements driven.KnowledgeBase over Cypher queries.
type KnowledgeBase struct {
	runner runner
}

// New connects to the server and verifies connectivity.
func New(ctx context.Context, cfg Config) (*KnowledgeBase, error) {
	if cfg.URI == "" {
		return nil, errors.New("neo4j uri is required")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: %v", domain.ErrKnowledgeBaseUnavailable, err)
	}
	logger.Debug("connected to neo4j at %s", cfg.URI)
	return &KnowledgeBase{runner: &driverRunner{driver: driver, database: cfg.Database}}, nil
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}
	res, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, rec.AsMap())
	}
	return out, nil
}

func (r *driverRunner) close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

const (
	findDrugsQuery = `
		MATCH (d:Drug)
		WHERE any(w IN $words WHERE toLower(d.Drug_name) CONTAINS toLower(w))
		RETURN DISTINCT d.Drug_name AS name`

	drugInfoQuery = `
		MATCH (d:Drug)
		WHERE toLower(d.Drug_name) = toLower($name)
		RETURN d`

	targetsQuery = `
		MATCH (d:Drug)
		WHERE toLower(d.Drug_name) = toLower($name)
		MATCH (d)-[r:TARGETS]->(t:Target)
		RETURN t, r.Evidence_refs AS evidence_refs`

	experimentsQuery = `
		MATCH (d:Drug)
		WHERE toLower(d.Drug_name) = toLower($name)
		MATCH (d)-[r:HAS_REPURPOSING_EXP]->(e:RepurposingExp)
		RETURN e, r.Evidence_refs AS evidence_refs`

	susceptibilityTestsQuery = `
		MATCH (d:Drug)
		WHERE toLower(d.Drug_name) = toLower($name)
		MATCH (d)-[r:HAS_SUSCEPTIBILITY_TEST]->(e:DSTest)
		RETURN e, r.Evidence_refs AS evidence_refs`

	drugPathwaysQuery = `
		MATCH (d:Drug)-[:TARGETS]->(t:Target)-[:ASSOCIATED_WITH]->(p:Pathway)
		WHERE toLower(d.Drug_name) = toLower($id)
		RETURN p, t.Rv_id AS rv_id, t.Product AS product, t.Gene_name AS gene_name`

	targetPathwaysQuery = `
		MATCH (t:Target {Rv_id: $id})-[:ASSOCIATED_WITH]->(p:Pathway)
		RETURN p, t.Rv_id AS rv_id, t.Product AS product, t.Gene_name AS gene_name`

	referencesQuery = `
		MATCH (r:Reference)
		WHERE r.Ref_ID IN $ref_ids
		RETURN r.Ref_ID AS ref_id, r.PMID AS pmid, r.Title AS title`
)

// FindDrugs returns drug names containing any of words, ignoring case.
func (kb *KnowledgeBase) FindDrugs(ctx context.Context, words []string) ([]string, error) {
	if len(words) == 0 {
		return nil, nil
	}
	recs, err := kb.runner.run(ctx, findDrugsQuery, map[string]any{"words": words})
	if err != nil {
		return nil, fmt.Errorf("finding drugs: %w", err)
	}
	var names []string
	for _, rec := range recs {
		if name := asString(rec["name"]); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// DrugInfo returns the drug nodes named name.
func (kb *KnowledgeBase) DrugInfo(ctx context.Context, name string) ([]domain.Drug, error) {
	recs, err := kb.runner.run(ctx, drugInfoQuery, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("drug info for %s: %w", name, err)
	}
	var drugs []domain.Drug
	for _, rec := range recs {
		drugs = append(drugs, drugFromProps(nodeProps(rec["d"])))
	}
	return drugs, nil
}

// Targets returns the drug's targets.
func (kb *KnowledgeBase) Targets(ctx context.Context, drug string) ([]domain.Target, error) {
	recs, err := kb.runner.run(ctx, targetsQuery, map[string]any{"name": drug})
	if err != nil {
		return nil, fmt.Errorf("targets of %s: %w", drug, err)
	}
	targets := make([]domain.Target, 0, len(recs))
	for _, rec := range recs {
		t := targetFromProps(nodeProps(rec["t"]))
		t.Evidence.RefIDs = evidenceRefs(rec["evidence_refs"])
		targets = append(targets, t)
	}

	resolved, err := kb.resolve(ctx, func(yield func([]string)) {
		for _, t := range targets {
			yield(t.Evidence.RefIDs)
		}
	})
	if err != nil {
		return nil, err
	}
	for i := range targets {
		targets[i].Evidence = domain.NewEvidence(targets[i].Evidence.RefIDs, resolved)
	}
	return targets, nil
}

// Experiments returns the drug's repurposing experiments.
func (kb *KnowledgeBase) Experiments(ctx context.Context, drug string) ([]domain.RepurposingExperiment, error) {
	recs, err := kb.runner.run(ctx, experimentsQuery, map[string]any{"name": drug})
	if err != nil {
		return nil, fmt.Errorf("experiments of %s: %w", drug, err)
	}
	exps := make([]domain.RepurposingExperiment, 0, len(recs))
	for _, rec := range recs {
		e := experimentFromProps(nodeProps(rec["e"]))
		e.Evidence.RefIDs = evidenceRefs(rec["evidence_refs"])
		exps = append(exps, e)
	}

	resolved, err := kb.resolve(ctx, func(yield func([]string)) {
		for _, e := range exps {
			yield(e.Evidence.RefIDs)
		}
	})
	if err != nil {
		return nil, err
	}
	for i := range exps {
		exps[i].Evidence = domain.NewEvidence(exps[i].Evidence.RefIDs, resolved)
	}
	return exps, nil
}

// SusceptibilityTests returns the drug's susceptibility tests.
func (kb *KnowledgeBase) SusceptibilityTests(ctx context.Context, drug string) ([]domain.SusceptibilityTest, error) {
	recs, err := kb.runner.run(ctx, susceptibilityTestsQuery, map[string]any{"name": drug})
	if err != nil {
		return nil, fmt.Errorf("susceptibility tests of %s: %w", drug, err)
	}
	tests := make([]domain.SusceptibilityTest, 0, len(recs))
	for _, rec := range recs {
		t := susceptibilityTestFromProps(nodeProps(rec["e"]))
		t.Evidence.RefIDs = evidenceRefs(rec["evidence_refs"])
		tests = append(tests, t)
	}

	resolved, err := kb.resolve(ctx, func(yield func([]string)) {
		for _, t := range tests {
			yield(t.Evidence.RefIDs)
		}
	})
	if err != nil {
		return nil, err
	}
	for i := range tests {
		tests[i].Evidence = domain.NewEvidence(tests[i].Evidence.RefIDs, resolved)
	}
	return tests, nil
}

// Pathways returns one hit per target and pathway reachable from the entity.
func (kb *KnowledgeBase) Pathways(ctx context.Context, entityType domain.EntityType, id string) ([]domain.PathwayHit, error) {
	var query string
	switch strings.ToLower(string(entityType)) {
	case "drug":
		query = drugPathwaysQuery
	case "target":
		query = targetPathwaysQuery
	default:
		return nil, fmt.Errorf("pathways for %q: %w", entityType, domain.ErrUnsupportedEntityType)
	}

	recs, err := kb.runner.run(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("pathways of %s: %w", id, err)
	}
	hits := make([]domain.PathwayHit, 0, len(recs))
	for _, rec := range recs {
		hits = append(hits, domain.PathwayHit{
			Pathway:  pathwayFromProps(nodeProps(rec["p"])),
			RvID:     asString(rec["rv_id"]),
			Product:  asString(rec["product"]),
			GeneName: asString(rec["gene_name"]),
		})
	}
	return hits, nil
}

// References resolves reference ids that carry a PMID.
func (kb *KnowledgeBase) References(ctx context.Context, refIDs []string) (map[string]domain.Reference, error) {
	out := make(map[string]domain.Reference)
	if len(refIDs) == 0 {
		return out, nil
	}
	recs, err := kb.runner.run(ctx, referencesQuery, map[string]any{"ref_ids": refIDs})
	if err != nil {
		return nil, fmt.Errorf("resolving references: %w", err)
	}
	for _, rec := range recs {
		r := domain.Reference{
			RefID: asString(rec["ref_id"]),
			PMID:  asString(rec["pmid"]),
			Title: asString(rec["title"]),
		}
		if r.RefID != "" && r.PMID != "" {
			out[r.RefID] = r
		}
	}
	return out, nil
}

// Close closes the driver.
func (kb *KnowledgeBase) Close() error {
	return kb.runner.close(context.Background())
}

// resolve looks up the distinct reference ids produced by each.
func (kb *KnowledgeBase) resolve(ctx context.Context, each func(yield func([]string))) (map[string]domain.Reference, error) {
	seen := make(map[string]bool)
	var ids []string
	each(func(refs []string) {
		for _, id := range refs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	})
	return kb.References(ctx, ids)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
	"github.com/custodia-labs/tbqa/internal/logger"
)

// retrievalOp fetches the records for one entity.
type retrievalOp func(ctx context.Context, e domain.Entity) ([]domain.Record, error)

// RetrievalDispatcher maps a classified question to a knowledge base lookup,
// projects the records and aggregates pathway hits.
type RetrievalDispatcher struct {
	kb         driven.KnowledgeBase
	projection domain.FieldProjection
	ops        map[string]retrievalOp
}

// NewRetrievalDispatcher creates a dispatcher. A nil projection uses the default table.
func NewRetrievalDispatcher(kb driven.KnowledgeBase, projection domain.FieldProjection) *RetrievalDispatcher {
	if projection == nil {
		projection = domain.DefaultFieldProjection()
	}
	d := &RetrievalDispatcher{kb: kb, projection: projection}
	d.ops = map[string]retrievalOp{
		strings.ToLower(domain.IntentDrugInformation):      d.drugInfo,
		strings.ToLower(domain.IntentTarget):               d.targets,
		strings.ToLower(domain.IntentPathway):              d.pathways,
		strings.ToLower(domain.IntentDrugRepurposingAssay): d.experiments,
		strings.ToLower(domain.IntentDrugSensitivityTest):  d.susceptibilityTests,
	}
	return d
}

// Dispatch gathers the structured data for one atomic question.
// Store failures are logged and leave the data empty. The unknown sentinel
// is never looked up. Only invalid input, such as an unsupported entity
// type, is returned as an error.
func (d *RetrievalDispatcher) Dispatch(
	ctx context.Context, question string, ir domain.IntentResult,
) (domain.IntentData, error) {
	intent := strings.ToLower(ir.Intent)
	subIntent := strings.ToLower(ir.SubIntent)
	out := domain.IntentData{Question: question, Intent: intent, SubIntent: subIntent}

	opKey := intent
	if intent == strings.ToLower(domain.IntentTarget) && subIntent == domain.SubIntentPathway {
		opKey = subIntent
	}
	op, ok := d.ops[opKey]
	if !ok {
		logger.Debug("No retrieval operation for intent %q", intent)
		out.Passthrough = true
		return out, nil
	}

	field := d.projection.Field(intent, subIntent)
	data := []any{}
	for _, e := range ir.Entities {
		out.EntityName = e.ID
		if e.IsUnknown() {
			logger.Debug("Skipping %s lookup for unresolved entity", opKey)
			continue
		}
		records, err := op(ctx, e)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return out, fmt.Errorf("dispatch %s: %w", opKey, err)
			}
			logger.Warn("knowledge base %s lookup for %q failed: %v", opKey, e.ID, err)
			continue
		}
		data = append(data, project(records, field)...)
	}
	if opKey == domain.SubIntentPathway {
		data = aggregatePathways(data)
	}
	out.Data = data
	return out, nil
}

// project extracts field from every record, or keeps whole records for the default field.
func project(records []domain.Record, field string) []any {
	out := make([]any, 0, len(records))
	for _, r := range records {
		if field == domain.SubIntentDefault {
			out = append(out, r)
			continue
		}
		v, ok := r[field]
		if !ok {
			v = ""
		}
		out = append(out, v)
	}
	return out
}

// aggregatePathways merges pathway hits sharing a Pathway_ID. The genes of a
// merged pathway are the union of gene names and Rv ids, excluding domain.NoGene.
// Records that are not whole pathway hits are kept unchanged.
func aggregatePathways(data []any) []any {
	type agg struct {
		record domain.Record
		genes  map[string]struct{}
	}
	var (
		order  []string
		byID   = map[string]*agg{}
		others []any
	)
	for _, item := range data {
		r, ok := item.(domain.Record)
		if !ok {
			others = append(others, item)
			continue
		}
		id := fmt.Sprint(r["Pathway_ID"])
		a, seen := byID[id]
		if !seen {
			a = &agg{
				record: domain.Record{
					"Pathway_ID":    r["Pathway_ID"],
					"pathway_name":  r["pathway_name"],
					"pathway_class": r["pathway_class"],
				},
				genes: map[string]struct{}{},
			}
			byID[id] = a
			order = append(order, id)
		}
		for _, key := range []string{"Gene_name", "Rv_id"} {
			if g, _ := r[key].(string); g != "" && g != domain.NoGene {
				a.genes[g] = struct{}{}
			}
		}
	}

	out := make([]any, 0, len(order)+len(others))
	for _, id := range order {
		a := byID[id]
		genes := make([]string, 0, len(a.genes))
		for g := range a.genes {
			genes = append(genes, g)
		}
		sort.Strings(genes)
		a.record["genes"] = genes
		out = append(out, a.record)
	}
	return append(out, others...)
}

func (d *RetrievalDispatcher) drugInfo(ctx context.Context, e domain.Entity) ([]domain.Record, error) {
	drugs, err := d.kb.DrugInfo(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return records(drugs, domain.Drug.Record), nil
}

func (d *RetrievalDispatcher) targets(ctx context.Context, e domain.Entity) ([]domain.Record, error) {
	targets, err := d.kb.Targets(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return records(targets, domain.Target.Record), nil
}

func (d *RetrievalDispatcher) pathways(ctx context.Context, e domain.Entity) ([]domain.Record, error) {
	hits, err := d.kb.Pathways(ctx, e.Type, e.ID)
	if err != nil {
		return nil, err
	}
	return records(hits, domain.PathwayHit.Record), nil
}

func (d *RetrievalDispatcher) experiments(ctx context.Context, e domain.Entity) ([]domain.Record, error) {
	exps, err := d.kb.Experiments(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return records(exps, domain.RepurposingExperiment.Record), nil
}

func (d *RetrievalDispatcher) susceptibilityTests(ctx context.Context, e domain.Entity) ([]domain.Record, error) {
	tests, err := d.kb.SusceptibilityTests(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return records(tests, domain.SusceptibilityTest.Record), nil
}

func records[T any](items []T, toRecord func(T) domain.Record) []domain.Record {
	out := make([]domain.Record, len(items))
	for i, item := range items {
		out[i] = toRecord(item)
	}
	return out
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/fixture"
	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
)

// Ensure KnowledgeBase implements the interface.
var _ driven.KnowledgeBase = (*KnowledgeBase)(nil)

// KnowledgeBase is an in-memory implementation of driven.KnowledgeBase
// over a fixture graph.
type KnowledgeBase struct {
	mu       sync.RWMutex
	drugs    map[string]fixture.Drug
	names    []string
	targets  map[string]fixture.Target
	pathways map[string]fixture.Pathway
	refs     map[string]domain.Reference
}

// NewKnowledgeBase creates an empty in-memory knowledge base.
func NewKnowledgeBase() *KnowledgeBase {
	kb := &KnowledgeBase{}
	kb.reset()
	return kb
}

// NewKnowledgeBaseFromFile loads a YAML fixture into a new knowledge base.
func NewKnowledgeBaseFromFile(path string) (*KnowledgeBase, error) {
	g, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}
	kb := NewKnowledgeBase()
	if err := kb.Load(g); err != nil {
		return nil, err
	}
	return kb, nil
}

func (kb *KnowledgeBase) reset() {
	kb.drugs = make(map[string]fixture.Drug)
	kb.names = nil
	kb.targets = make(map[string]fixture.Target)
	kb.pathways = make(map[string]fixture.Pathway)
	kb.refs = make(map[string]domain.Reference)
}

// Load replaces the contents with g.
func (kb *KnowledgeBase) Load(g *fixture.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.reset()
	for _, d := range g.Drugs {
		kb.drugs[strings.ToLower(d.Name)] = d
		kb.names = append(kb.names, d.Name)
	}
	sort.Strings(kb.names)
	for _, t := range g.Targets {
		kb.targets[t.RvID] = t
	}
	for _, p := range g.Pathways {
		kb.pathways[p.PathwayID] = p
	}
	kb.refs = g.ReferenceIndex()
	return nil
}

// FindDrugs returns drug names containing any of words, ignoring case.
func (kb *KnowledgeBase) FindDrugs(_ context.Context, words []string) ([]string, error) {
	if len(words) == 0 {
		return nil, nil
	}
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var out []string
	for _, name := range kb.names {
		lower := strings.ToLower(name)
		for _, w := range words {
			if w != "" && strings.Contains(lower, strings.ToLower(w)) {
				out = append(out, name)
				break
			}
		}
	}
	return out, nil
}

// DrugInfo returns the drug named name.
func (kb *KnowledgeBase) DrugInfo(_ context.Context, name string) ([]domain.Drug, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	d, ok := kb.drugs[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	return []domain.Drug{d.Domain()}, nil
}

// Targets returns the drug's targets.
func (kb *KnowledgeBase) Targets(_ context.Context, drug string) ([]domain.Target, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	d, ok := kb.drugs[strings.ToLower(drug)]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Target, 0, len(d.Targets))
	for _, link := range d.Targets {
		t := kb.targets[link.RvID]
		out = append(out, domain.Target{
			TargetID:       t.TargetID,
			RvID:           t.RvID,
			Product:        t.Product,
			NCBIGeneID:     t.NCBIGeneID,
			UniProtID:      t.UniProtID,
			Functions:      t.Functions,
			GeneName:       t.GeneName,
			FunctionalType: t.FunctionalType,
			Evidence:       kb.evidence(link.EvidenceRefs),
		})
	}
	return out, nil
}

// Experiments returns the drug's repurposing experiments.
func (kb *KnowledgeBase) Experiments(_ context.Context, drug string) ([]domain.RepurposingExperiment, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	d, ok := kb.drugs[strings.ToLower(drug)]
	if !ok {
		return nil, nil
	}
	out := make([]domain.RepurposingExperiment, 0, len(d.Experiments))
	for _, e := range d.Experiments {
		out = append(out, domain.RepurposingExperiment{
			ExpID:              e.ExpID,
			DrugResource:       e.DrugResource,
			Drug:               e.Drugs,
			Effect:             e.Effects,
			ExperimentType:     e.ExperimentType,
			ProbableMechanisms: e.ProbableMechanisms,
			RepurposingMethods: e.RepurposingMethods,
			TherapeuticTypes:   e.TherapeuticTypes,
			TypeOfMechanism:    e.TypeOfMechanism,
			Evidence:           kb.evidence(e.EvidenceRefs),
		})
	}
	return out, nil
}

// SusceptibilityTests returns the drug's susceptibility tests.
func (kb *KnowledgeBase) SusceptibilityTests(_ context.Context, drug string) ([]domain.SusceptibilityTest, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	d, ok := kb.drugs[strings.ToLower(drug)]
	if !ok {
		return nil, nil
	}
	out := make([]domain.SusceptibilityTest, 0, len(d.SusceptibilityTests))
	for _, t := range d.SusceptibilityTests {
		out = append(out, domain.SusceptibilityTest{
			DrugName:        d.Name,
			MICValue:        t.MICValue,
			ReferenceStrain: t.ReferenceStrain,
			Species:         t.Species,
			TestStrainID:    t.TestStrainID,
			TestStrainType:  t.TestStrainType,
			Evidence:        kb.evidence(t.EvidenceRefs),
		})
	}
	return out, nil
}

// Pathways returns one hit per target and pathway reachable from the entity.
func (kb *KnowledgeBase) Pathways(_ context.Context, entityType domain.EntityType, id string) ([]domain.PathwayHit, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	var rvIDs []string
	switch strings.ToLower(string(entityType)) {
	case "drug":
		if d, ok := kb.drugs[strings.ToLower(id)]; ok {
			for _, l := range d.Targets {
				rvIDs = append(rvIDs, l.RvID)
			}
		}
	case "target":
		rvIDs = []string{id}
	default:
		return nil, fmt.Errorf("pathways for %q: %w", entityType, domain.ErrUnsupportedEntityType)
	}

	var out []domain.PathwayHit
	for _, rv := range rvIDs {
		t, ok := kb.targets[rv]
		if !ok {
			continue
		}
		for _, pid := range t.Pathways {
			out = append(out, domain.PathwayHit{
				Pathway:  kb.pathways[pid].Domain(),
				RvID:     t.RvID,
				Product:  t.Product,
				GeneName: t.GeneName,
			})
		}
	}
	return out, nil
}

// References resolves reference ids that carry a PMID.
func (kb *KnowledgeBase) References(_ context.Context, refIDs []string) (map[string]domain.Reference, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	out := make(map[string]domain.Reference)
	for _, id := range refIDs {
		if r, ok := kb.refs[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

// Close is a no-op.
func (kb *KnowledgeBase) Close() error {
	return nil
}

// evidence must be called with the lock held.
func (kb *KnowledgeBase) evidence(refs string) domain.Evidence {
	return domain.NewEvidence(domain.SplitEvidenceRefs(refs), kb.refs)
}

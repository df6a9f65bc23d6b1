// Package fixture reads knowledge-graph snapshots from YAML.
//
// A fixture lists the graph's nodes by label. Relationships are declared on
// the drug (targets, experiments, susceptibility tests) and on the target
// (pathways), each carrying the comma-separated evidence reference ids that
// the graph stores on the relationship.
//
//	references:
//	  - ref_id: R1
//	    pmid: "31166211"
//	    title: Repurposing of NSAIDs against M. tuberculosis
//	drugs:
//	  - name: Bromfenac
//	    indication: Ocular inflammation
//	    targets:
//	      - rv_id: Rv1484
//	        evidence_refs: R1
//	targets:
//	  - rv_id: Rv1484
//	    gene_name: inhA
//	    pathways: [mtu00061]
//	pathways:
//	  - pathway_id: mtu00061
//	    pathway_name: Fatty acid biosynthesis
package fixture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// Graph is a knowledge-graph snapshot.
type Graph struct {
	References []domain.Reference `yaml:"references"`
	Drugs      []Drug             `yaml:"drugs"`
	Targets    []Target           `yaml:"targets"`
	Pathways   []Pathway          `yaml:"pathways"`
}

// Drug is a drug node and its outgoing relationships.
type Drug struct {
	Name       string         `yaml:"name"`
	Indication string         `yaml:"indication"`
	ATCCode    string         `yaml:"atc_code"`
	Stages     string         `yaml:"stages"`
	Extra      map[string]any `yaml:"extra,omitempty"`

	Targets             []TargetLink         `yaml:"targets,omitempty"`
	Experiments         []Experiment         `yaml:"experiments,omitempty"`
	SusceptibilityTests []SusceptibilityTest `yaml:"susceptibility_tests,omitempty"`
}

// TargetLink is a TARGETS relationship keyed by the target's Rv id.
type TargetLink struct {
	RvID         string `yaml:"rv_id"`
	EvidenceRefs string `yaml:"evidence_refs,omitempty"`
}

// Target is a protein target node. Pathways lists associated pathway ids.
type Target struct {
	TargetID       string   `yaml:"target_id"`
	RvID           string   `yaml:"rv_id"`
	Product        string   `yaml:"product"`
	NCBIGeneID     string   `yaml:"ncbi_geneid"`
	UniProtID      string   `yaml:"uniprot_id"`
	Functions      string   `yaml:"functions"`
	GeneName       string   `yaml:"gene_name"`
	FunctionalType string   `yaml:"functional_type"`
	Pathways       []string `yaml:"pathways,omitempty"`
}

// Experiment is a repurposing experiment reached through HAS_REPURPOSING_EXP.
type Experiment struct {
	ExpID              string   `yaml:"exp_id"`
	DrugResource       []string `yaml:"drug_resource,omitempty"`
	Drugs              string   `yaml:"drugs"`
	Effects            string   `yaml:"effects"`
	ExperimentType     string   `yaml:"experiment_type"`
	ProbableMechanisms string   `yaml:"probable_mechanisms"`
	RepurposingMethods []string `yaml:"repurposing_methods,omitempty"`
	TherapeuticTypes   string   `yaml:"therapeutic_types"`
	TypeOfMechanism    string   `yaml:"type_of_mechanism"`
	EvidenceRefs       string   `yaml:"evidence_refs,omitempty"`
}

// SusceptibilityTest is a DSTest node reached through HAS_SUSCEPTIBILITY_TEST.
type SusceptibilityTest struct {
	DSTestID        string `yaml:"dstest_id"`
	MICValue        string `yaml:"mic_value"`
	ReferenceStrain string `yaml:"reference_strain"`
	Species         string `yaml:"species"`
	TestStrainID    string `yaml:"test_strain_id"`
	TestStrainType  string `yaml:"test_strain_type"`
	EvidenceRefs    string `yaml:"evidence_refs,omitempty"`
}

// Pathway is a KEGG pathway node.
type Pathway struct {
	PathwayID     string `yaml:"pathway_id"`
	KEGGPathwayID string `yaml:"kegg_pathway_id"`
	Name          string `yaml:"pathway_name"`
	Class         string `yaml:"pathway_class"`
	Description   string `yaml:"description"`
	GeneList      string `yaml:"gene_list"`
	GeneCount     int    `yaml:"gene_count"`
	KEGGURL       string `yaml:"kegg_url"`
	MapImageURL   string `yaml:"map_image_url"`
	KOPathwayID   string `yaml:"ko_pathway_id"`
	Organism      string `yaml:"organism"`
}

// Domain returns the pathway as a domain value.
func (p Pathway) Domain() domain.Pathway {
	return domain.Pathway{
		PathwayID:     p.PathwayID,
		KEGGPathwayID: p.KEGGPathwayID,
		Name:          p.Name,
		Class:         p.Class,
		Description:   p.Description,
		GeneList:      p.GeneList,
		GeneCount:     p.GeneCount,
		KEGGURL:       p.KEGGURL,
		MapImageURL:   p.MapImageURL,
		KOPathwayID:   p.KOPathwayID,
		Organism:      p.Organism,
	}
}

// Domain returns the drug node as a domain value.
func (d Drug) Domain() domain.Drug {
	return domain.Drug{
		Name:       d.Name,
		Indication: d.Indication,
		ATCCode:    d.ATCCode,
		Stages:     d.Stages,
		Extra:      d.Extra,
	}
}

// Load reads a fixture file.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()

	g, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return g, nil
}

// Parse decodes and validates a fixture.
func Parse(r io.Reader) (*Graph, error) {
	var g Graph
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		if errors.Is(err, io.EOF) {
			return &g, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks that node keys are present and unique and that every
// relationship points at a declared node.
func (g *Graph) Validate() error {
	targets := make(map[string]bool, len(g.Targets))
	for _, t := range g.Targets {
		if t.RvID == "" {
			return fmt.Errorf("%w: target %q has no rv_id", domain.ErrInvalidInput, t.TargetID)
		}
		if targets[t.RvID] {
			return fmt.Errorf("%w: duplicate target %s", domain.ErrInvalidInput, t.RvID)
		}
		targets[t.RvID] = true
	}

	pathways := make(map[string]bool, len(g.Pathways))
	for _, p := range g.Pathways {
		if p.PathwayID == "" {
			return fmt.Errorf("%w: pathway %q has no pathway_id", domain.ErrInvalidInput, p.Name)
		}
		pathways[p.PathwayID] = true
	}
	for _, t := range g.Targets {
		for _, id := range t.Pathways {
			if !pathways[id] {
				return fmt.Errorf("%w: target %s links unknown pathway %s", domain.ErrInvalidInput, t.RvID, id)
			}
		}
	}

	drugs := make(map[string]bool, len(g.Drugs))
	for _, d := range g.Drugs {
		key := strings.ToLower(d.Name)
		if key == "" {
			return fmt.Errorf("%w: drug without a name", domain.ErrInvalidInput)
		}
		if drugs[key] {
			return fmt.Errorf("%w: duplicate drug %s", domain.ErrInvalidInput, d.Name)
		}
		drugs[key] = true
		for _, l := range d.Targets {
			if !targets[l.RvID] {
				return fmt.Errorf("%w: drug %s targets unknown %s", domain.ErrInvalidInput, d.Name, l.RvID)
			}
		}
	}
	return nil
}

// ReferenceIndex maps reference ids to references that carry a PMID.
func (g *Graph) ReferenceIndex() map[string]domain.Reference {
	idx := make(map[string]domain.Reference, len(g.References))
	for _, r := range g.References {
		if r.RefID != "" && r.PMID != "" {
			idx[r.RefID] = r
		}
	}
	return idx
}

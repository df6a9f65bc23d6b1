package domain

import (
	"fmt"
	"strings"
)

// Record is the flat, JSON-shaped form of a knowledge-graph result.
type Record map[string]any

// PubMedURL returns the PubMed page for a PMID.
func PubMedURL(pmid string) string {
	return fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid)
}

// Reference is a literature reference supporting a relationship.
type Reference struct {
	RefID string `json:"Ref_ID" yaml:"ref_id"`
	Title string `json:"Title" yaml:"title"`
	PMID  string `json:"PMID" yaml:"pmid"`
}

// Record returns the reference in its serialised form.
func (r Reference) Record() Record {
	return Record{
		"Ref_ID": r.RefID,
		"Title":  r.Title,
		"PMID":   r.PMID,
		"url":    PubMedURL(r.PMID),
	}
}

// SplitEvidenceRefs splits a comma-separated reference list, dropping blanks.
func SplitEvidenceRefs(s string) []string {
	var refs []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			refs = append(refs, p)
		}
	}
	return refs
}

// Evidence is the set of references attached to a drug relationship.
type Evidence struct {
	RefIDs     []string
	References []Reference
}

// NewEvidence attaches the resolved subset of ids, in id order.
// Ids missing from resolved are kept as ids only.
func NewEvidence(ids []string, resolved map[string]Reference) Evidence {
	e := Evidence{RefIDs: ids}
	for _, id := range ids {
		if r, ok := resolved[id]; ok {
			e.References = append(e.References, r)
		}
	}
	return e
}

func (e Evidence) refIDs() []string {
	if e.RefIDs == nil {
		return []string{}
	}
	return e.RefIDs
}

func (e Evidence) references() []Record {
	out := make([]Record, 0, len(e.References))
	for _, r := range e.References {
		out = append(out, r.Record())
	}
	return out
}

// Drug is a drug node.
type Drug struct {
	Name       string
	Indication string
	ATCCode    string
	Stages     string

	// Extra carries any additional node properties.
	Extra map[string]any
}

// Record returns the drug with lower-cased property keys.
func (d Drug) Record() Record {
	r := Record{}
	for k, v := range d.Extra {
		r[strings.ToLower(k)] = v
	}
	r["drug_name"] = d.Name
	r["indication"] = d.Indication
	r["atc_code"] = d.ATCCode
	r["stages"] = d.Stages
	return r
}

// Target is a protein target linked to a drug.
type Target struct {
	TargetID       string
	RvID           string
	Product        string
	NCBIGeneID     string
	UniProtID      string
	Functions      string
	GeneName       string
	FunctionalType string
	Evidence       Evidence
}

// UnknownProduct is reported for targets without a product annotation.
const UnknownProduct = "unknown protein"

// Record returns the target in its serialised form.
func (t Target) Record() Record {
	product := t.Product
	if product == "" {
		product = UnknownProduct
	}
	return Record{
		"target_id":       t.TargetID,
		"rv_id":           t.RvID,
		"product":         product,
		"ncbi_geneid":     t.NCBIGeneID,
		"uniprot_id":      t.UniProtID,
		"functions":       t.Functions,
		"gene_name":       t.GeneName,
		"functional_type": t.FunctionalType,
		"evidence_refs":   t.Evidence.refIDs(),
		"references":      t.Evidence.references(),
	}
}

// RepurposingExperiment is a drug repositioning experiment.
type RepurposingExperiment struct {
	ExpID              string
	DrugResource       []string
	Drug               string
	Effect             string
	ExperimentType     string
	ProbableMechanisms string
	RepurposingMethods []string
	TherapeuticTypes   string
	TypeOfMechanism    string
	Evidence           Evidence
}

// Record returns the experiment in its serialised form.
func (e RepurposingExperiment) Record() Record {
	return Record{
		"exp_id":              e.ExpID,
		"drug_resource":       nonNil(e.DrugResource),
		"drug":                e.Drug,
		"experiment_effect":   e.Effect,
		"experiment_type":     e.ExperimentType,
		"probable_mechanisms": e.ProbableMechanisms,
		"repurposing_methods": nonNil(e.RepurposingMethods),
		"therapeutic_types":   e.TherapeuticTypes,
		"type_of_mechanism":   e.TypeOfMechanism,
		"evidence_refs":       e.Evidence.refIDs(),
		"references":          e.Evidence.references(),
	}
}

// SusceptibilityTest is a drug susceptibility (MIC) test.
type SusceptibilityTest struct {
	DrugName        string
	MICValue        string
	ReferenceStrain string
	Species         string
	TestStrainID    string
	TestStrainType  string
	Evidence        Evidence
}

// Record returns the test in its serialised form.
func (t SusceptibilityTest) Record() Record {
	return Record{
		"drug_name":        t.DrugName,
		"mic_value":        t.MICValue,
		"reference_strain": t.ReferenceStrain,
		"species":          t.Species,
		"test_strain_id":   t.TestStrainID,
		"test_strain_type": t.TestStrainType,
		"evidence_refs":    t.Evidence.refIDs(),
		"references":       t.Evidence.references(),
	}
}

// Pathway is a KEGG pathway node.
type Pathway struct {
	PathwayID     string
	KEGGPathwayID string
	Name          string
	Class         string
	Description   string
	GeneList      string
	GeneCount     int
	KEGGURL       string
	MapImageURL   string
	KOPathwayID   string
	Organism      string
}

// PathwayHit is a pathway reached through one target.
// RvID, Product and GeneName describe that target.
type PathwayHit struct {
	Pathway  Pathway
	RvID     string
	Product  string
	GeneName string
}

// NoGene marks an absent gene annotation.
const NoGene = "/"

// Record returns the hit in its serialised form.
func (h PathwayHit) Record() Record {
	p := h.Pathway
	return Record{
		"Pathway_ID":      p.PathwayID,
		"kegg_pathway_id": p.KEGGPathwayID,
		"pathway_name":    p.Name,
		"pathway_class":   p.Class,
		"description":     p.Description,
		"gene_list":       p.GeneList,
		"gene_count":      p.GeneCount,
		"kegg_url":        p.KEGGURL,
		"map_image_url":   p.MapImageURL,
		"ko_pathway_id":   p.KOPathwayID,
		"organism":        p.Organism,
		"Rv_id":           h.RvID,
		"Product":         h.Product,
		"Gene_name":       h.GeneName,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

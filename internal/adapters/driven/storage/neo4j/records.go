package neo4j

import (
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/custodia-labs/tbqa/internal/core/domain"
)

// nodeProps returns the node's properties with lower-cased keys.
func nodeProps(v any) map[string]any {
	var props map[string]any
	switch n := v.(type) {
	case neo4j.Node:
		props = n.Props
	case *neo4j.Node:
		if n != nil {
			props = n.Props
		}
	case map[string]any:
		props = n
	}
	out := make(map[string]any, len(props))
	for k, val := range props {
		out[strings.ToLower(k)] = val
	}
	return out
}

// asString renders a property value; nil is "".
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// asStrings accepts a list property or a single string.
func asStrings(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if l == "" {
			return nil
		}
		return []string{l}
	default:
		return nil
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// evidenceRefs normalizes a relationship's Evidence_refs property.
func evidenceRefs(v any) []string {
	if s, ok := v.(string); ok {
		return domain.SplitEvidenceRefs(s)
	}
	var out []string
	for _, ref := range asStrings(v) {
		if ref = strings.TrimSpace(ref); ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

var drugCoreProps = map[string]bool{
	"drug_name":  true,
	"indication": true,
	"atc_code":   true,
	"stages":     true,
}

func drugFromProps(p map[string]any) domain.Drug {
	d := domain.Drug{
		Name:       asString(p["drug_name"]),
		Indication: asString(p["indication"]),
		ATCCode:    asString(p["atc_code"]),
		Stages:     asString(p["stages"]),
	}
	for k, v := range p {
		if drugCoreProps[k] {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]any)
		}
		d.Extra[k] = v
	}
	return d
}

func targetFromProps(p map[string]any) domain.Target {
	return domain.Target{
		TargetID:       asString(p["target_id"]),
		RvID:           asString(p["rv_id"]),
		Product:        asString(p["product"]),
		NCBIGeneID:     asString(p["ncbi_geneid"]),
		UniProtID:      asString(p["uniprot_id"]),
		Functions:      asString(p["functions"]),
		GeneName:       asString(p["gene_name"]),
		FunctionalType: asString(p["functional type"]),
	}
}

func experimentFromProps(p map[string]any) domain.RepurposingExperiment {
	return domain.RepurposingExperiment{
		ExpID:              asString(p["exp_id"]),
		DrugResource:       asStrings(p["drug_resource"]),
		Drug:               asString(p["drugs"]),
		Effect:             asString(p["effects"]),
		ExperimentType:     asString(p["experiment_type"]),
		ProbableMechanisms: asString(p["probable_mechanisms"]),
		RepurposingMethods: asStrings(p["repurposing_methods"]),
		TherapeuticTypes:   asString(p["therapeutic_types"]),
		TypeOfMechanism:    asString(p["type_of_mechanism"]),
	}
}

func susceptibilityTestFromProps(p map[string]any) domain.SusceptibilityTest {
	return domain.SusceptibilityTest{
		DrugName:        asString(p["drug_name"]),
		MICValue:        asString(p["mic_value"]),
		ReferenceStrain: asString(p["reference_strain"]),
		Species:         asString(p["species"]),
		TestStrainID:    asString(p["test_strain_id"]),
		TestStrainType:  asString(p["test_strain_type"]),
	}
}

func pathwayFromProps(p map[string]any) domain.Pathway {
	return domain.Pathway{
		PathwayID:     asString(p["pathway_id"]),
		KEGGPathwayID: asString(p["kegg_pathway_id"]),
		Name:          asString(p["pathway_name"]),
		Class:         asString(p["pathway_class"]),
		Description:   asString(p["description"]),
		GeneList:      asString(p["gene_list"]),
		GeneCount:     asInt(p["gene_count"]),
		KEGGURL:       asString(p["kegg_url"]),
		MapImageURL:   asString(p["map_image_url"]),
		KOPathwayID:   asString(p["ko_pathway_id"]),
		Organism:      asString(p["organism"]),
	}
}

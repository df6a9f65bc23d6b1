package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/fixture"
	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
)

// Store is an SQLite-backed knowledge-graph snapshot.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.tbqa/data/knowledge.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tbqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "knowledge.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// KnowledgeBase returns a KnowledgeBase interface backed by this store.
// Closing it closes the store.
func (s *Store) KnowledgeBase() driven.KnowledgeBase {
	return &knowledgeBase{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_knowledge.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Import ====================

// Import replaces the stored graph with g in one transaction.
func (s *Store) Import(ctx context.Context, g *fixture.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{
		"drug_targets", "target_pathways", "experiments", "susceptibility_tests",
		"drugs", "targets", "pathways", "refs",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, r := range g.References {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO refs (ref_id, pmid, title) VALUES (?, ?, ?)",
			r.RefID, r.PMID, r.Title); err != nil {
			return fmt.Errorf("inserting reference %s: %w", r.RefID, err)
		}
	}

	for _, p := range g.Pathways {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pathways (pathway_id, kegg_pathway_id, pathway_name, pathway_class, description,
				gene_list, gene_count, kegg_url, map_image_url, ko_pathway_id, organism)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.PathwayID, p.KEGGPathwayID, p.Name, p.Class, p.Description,
			p.GeneList, p.GeneCount, p.KEGGURL, p.MapImageURL, p.KOPathwayID, p.Organism); err != nil {
			return fmt.Errorf("inserting pathway %s: %w", p.PathwayID, err)
		}
	}

	for _, t := range g.Targets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO targets (rv_id, target_id, product, ncbi_geneid, uniprot_id, functions,
				gene_name, functional_type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, t.RvID, t.TargetID, t.Product, t.NCBIGeneID, t.UniProtID, t.Functions,
			t.GeneName, t.FunctionalType); err != nil {
			return fmt.Errorf("inserting target %s: %w", t.RvID, err)
		}
		for i, pid := range t.Pathways {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO target_pathways (rv_id, pathway_id, position) VALUES (?, ?, ?)",
				t.RvID, pid, i); err != nil {
				return fmt.Errorf("linking %s to %s: %w", t.RvID, pid, err)
			}
		}
	}

	for _, d := range g.Drugs {
		if err := insertDrug(ctx, tx, d); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

func insertDrug(ctx context.Context, tx *sql.Tx, d fixture.Drug) error {
	extra := d.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("marshalling extra properties of %s: %w", d.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO drugs (name, indication, atc_code, stages, extra) VALUES (?, ?, ?, ?, ?)",
		d.Name, d.Indication, d.ATCCode, d.Stages, string(extraJSON)); err != nil {
		return fmt.Errorf("inserting drug %s: %w", d.Name, err)
	}

	for i, l := range d.Targets {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO drug_targets (drug_name, rv_id, evidence_refs, position) VALUES (?, ?, ?, ?)",
			d.Name, l.RvID, l.EvidenceRefs, i); err != nil {
			return fmt.Errorf("linking %s to %s: %w", d.Name, l.RvID, err)
		}
	}

	for _, e := range d.Experiments {
		resource, err := marshalList(e.DrugResource)
		if err != nil {
			return err
		}
		methods, err := marshalList(e.RepurposingMethods)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO experiments (drug_name, exp_id, drug_resource, drugs, effects, experiment_type,
				probable_mechanisms, repurposing_methods, therapeutic_types, type_of_mechanism, evidence_refs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, d.Name, e.ExpID, resource, e.Drugs, e.Effects, e.ExperimentType,
			e.ProbableMechanisms, methods, e.TherapeuticTypes, e.TypeOfMechanism, e.EvidenceRefs); err != nil {
			return fmt.Errorf("inserting experiment %s: %w", e.ExpID, err)
		}
	}

	for _, t := range d.SusceptibilityTests {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO susceptibility_tests (drug_name, dstest_id, mic_value, reference_strain, species,
				test_strain_id, test_strain_type, evidence_refs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, d.Name, t.DSTestID, t.MICValue, t.ReferenceStrain, t.Species,
			t.TestStrainID, t.TestStrainType, t.EvidenceRefs); err != nil {
			return fmt.Errorf("inserting susceptibility test %s: %w", t.DSTestID, err)
		}
	}
	return nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshalling list: %w", err)
	}
	return string(b), nil
}

// ==================== Knowledge Base ====================

// knowledgeBase implements driven.KnowledgeBase.
type knowledgeBase struct {
	store *Store
}

var _ driven.KnowledgeBase = (*knowledgeBase)(nil)

// FindDrugs returns drug names containing any of words, ignoring case.
func (k *knowledgeBase) FindDrugs(ctx context.Context, words []string) ([]string, error) {
	if len(words) == 0 {
		return nil, nil
	}

	conds := make([]string, len(words))
	args := make([]any, len(words))
	for i, w := range words {
		conds[i] = "instr(lower(name), lower(?)) > 0"
		args[i] = w
	}

	rows, err := k.store.db.QueryContext(ctx,
		"SELECT name FROM drugs WHERE "+strings.Join(conds, " OR ")+" ORDER BY name", args...)
	if err != nil {
		return nil, fmt.Errorf("querying drugs: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning drug name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating drugs: %w", err)
	}
	return names, nil
}

// DrugInfo returns the drug named name.
func (k *knowledgeBase) DrugInfo(ctx context.Context, name string) ([]domain.Drug, error) {
	row := k.store.db.QueryRowContext(ctx,
		"SELECT name, indication, atc_code, stages, extra FROM drugs WHERE name = ?", name)

	var d domain.Drug
	var extraJSON string
	if err := row.Scan(&d.Name, &d.Indication, &d.ATCCode, &d.Stages, &extraJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning drug: %w", err)
	}
	if err := json.Unmarshal([]byte(extraJSON), &d.Extra); err != nil {
		return nil, fmt.Errorf("unmarshaling extra properties: %w", err)
	}
	return []domain.Drug{d}, nil
}

// Targets returns the drug's targets.
func (k *knowledgeBase) Targets(ctx context.Context, drug string) ([]domain.Target, error) {
	rows, err := k.store.db.QueryContext(ctx, `
		SELECT t.target_id, t.rv_id, t.product, t.ncbi_geneid, t.uniprot_id, t.functions,
			t.gene_name, t.functional_type, dt.evidence_refs
		FROM drug_targets dt JOIN targets t ON t.rv_id = dt.rv_id
		WHERE dt.drug_name = ?
		ORDER BY dt.position
	`, drug)
	if err != nil {
		return nil, fmt.Errorf("querying targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.Target
	var refs []string
	for rows.Next() {
		var t domain.Target
		var evidence string
		if err := rows.Scan(&t.TargetID, &t.RvID, &t.Product, &t.NCBIGeneID, &t.UniProtID,
			&t.Functions, &t.GeneName, &t.FunctionalType, &evidence); err != nil {
			return nil, fmt.Errorf("scanning target: %w", err)
		}
		t.Evidence.RefIDs = domain.SplitEvidenceRefs(evidence)
		refs = append(refs, t.Evidence.RefIDs...)
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating targets: %w", err)
	}

	resolved, err := k.References(ctx, refs)
	if err != nil {
		return nil, err
	}
	for i := range targets {
		targets[i].Evidence = domain.NewEvidence(targets[i].Evidence.RefIDs, resolved)
	}
	return targets, nil
}

// Experiments returns the drug's repurposing experiments.
func (k *knowledgeBase) Experiments(ctx context.Context, drug string) ([]domain.RepurposingExperiment, error) {
	rows, err := k.store.db.QueryContext(ctx, `
		SELECT exp_id, drug_resource, drugs, effects, experiment_type, probable_mechanisms,
			repurposing_methods, therapeutic_types, type_of_mechanism, evidence_refs
		FROM experiments WHERE drug_name = ? ORDER BY id
	`, drug)
	if err != nil {
		return nil, fmt.Errorf("querying experiments: %w", err)
	}
	defer rows.Close()

	var exps []domain.RepurposingExperiment
	var refs []string
	for rows.Next() {
		var e domain.RepurposingExperiment
		var resource, methods, evidence string
		if err := rows.Scan(&e.ExpID, &resource, &e.Drug, &e.Effect, &e.ExperimentType,
			&e.ProbableMechanisms, &methods, &e.TherapeuticTypes, &e.TypeOfMechanism, &evidence); err != nil {
			return nil, fmt.Errorf("scanning experiment: %w", err)
		}
		if err := json.Unmarshal([]byte(resource), &e.DrugResource); err != nil {
			return nil, fmt.Errorf("unmarshaling drug_resource: %w", err)
		}
		if err := json.Unmarshal([]byte(methods), &e.RepurposingMethods); err != nil {
			return nil, fmt.Errorf("unmarshaling repurposing_methods: %w", err)
		}
		e.Evidence.RefIDs = domain.SplitEvidenceRefs(evidence)
		refs = append(refs, e.Evidence.RefIDs...)
		exps = append(exps, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating experiments: %w", err)
	}

	resolved, err := k.References(ctx, refs)
	if err != nil {
		return nil, err
	}
	for i := range exps {
		exps[i].Evidence = domain.NewEvidence(exps[i].Evidence.RefIDs, resolved)
	}
	return exps, nil
}

// SusceptibilityTests returns the drug's susceptibility tests.
func (k *knowledgeBase) SusceptibilityTests(ctx context.Context, drug string) ([]domain.SusceptibilityTest, error) {
	rows, err := k.store.db.QueryContext(ctx, `
		SELECT d.name, st.mic_value, st.reference_strain, st.species, st.test_strain_id,
			st.test_strain_type, st.evidence_refs
		FROM susceptibility_tests st JOIN drugs d ON d.name = st.drug_name
		WHERE st.drug_name = ? ORDER BY st.id
	`, drug)
	if err != nil {
		return nil, fmt.Errorf("querying susceptibility tests: %w", err)
	}
	defer rows.Close()

	var tests []domain.SusceptibilityTest
	var refs []string
	for rows.Next() {
		var t domain.SusceptibilityTest
		var evidence string
		if err := rows.Scan(&t.DrugName, &t.MICValue, &t.ReferenceStrain, &t.Species,
			&t.TestStrainID, &t.TestStrainType, &evidence); err != nil {
			return nil, fmt.Errorf("scanning susceptibility test: %w", err)
		}
		t.Evidence.RefIDs = domain.SplitEvidenceRefs(evidence)
		refs = append(refs, t.Evidence.RefIDs...)
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating susceptibility tests: %w", err)
	}

	resolved, err := k.References(ctx, refs)
	if err != nil {
		return nil, err
	}
	for i := range tests {
		tests[i].Evidence = domain.NewEvidence(tests[i].Evidence.RefIDs, resolved)
	}
	return tests, nil
}

const pathwayColumns = `p.pathway_id, p.kegg_pathway_id, p.pathway_name, p.pathway_class, p.description,
	p.gene_list, p.gene_count, p.kegg_url, p.map_image_url, p.ko_pathway_id, p.organism,
	t.rv_id, t.product, t.gene_name`

// Pathways returns one hit per target and pathway reachable from the entity.
func (k *knowledgeBase) Pathways(ctx context.Context, entityType domain.EntityType, id string) ([]domain.PathwayHit, error) {
	var query string
	switch strings.ToLower(string(entityType)) {
	case "drug":
		query = `SELECT ` + pathwayColumns + `
			FROM drug_targets dt
			JOIN targets t ON t.rv_id = dt.rv_id
			JOIN target_pathways tp ON tp.rv_id = t.rv_id
			JOIN pathways p ON p.pathway_id = tp.pathway_id
			WHERE dt.drug_name = ?
			ORDER BY dt.position, tp.position`
	case "target":
		query = `SELECT ` + pathwayColumns + `
			FROM targets t
			JOIN target_pathways tp ON tp.rv_id = t.rv_id
			JOIN pathways p ON p.pathway_id = tp.pathway_id
			WHERE t.rv_id = ?
			ORDER BY tp.position`
	default:
		return nil, fmt.Errorf("pathways for %q: %w", entityType, domain.ErrUnsupportedEntityType)
	}

	rows, err := k.store.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("querying pathways: %w", err)
	}
	defer rows.Close()

	var hits []domain.PathwayHit
	for rows.Next() {
		var h domain.PathwayHit
		p := &h.Pathway
		if err := rows.Scan(&p.PathwayID, &p.KEGGPathwayID, &p.Name, &p.Class, &p.Description,
			&p.GeneList, &p.GeneCount, &p.KEGGURL, &p.MapImageURL, &p.KOPathwayID, &p.Organism,
			&h.RvID, &h.Product, &h.GeneName); err != nil {
			return nil, fmt.Errorf("scanning pathway: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pathways: %w", err)
	}
	return hits, nil
}

// References resolves reference ids that carry a PMID.
func (k *knowledgeBase) References(ctx context.Context, refIDs []string) (map[string]domain.Reference, error) {
	out := make(map[string]domain.Reference)
	if len(refIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(refIDs)), ",")
	args := make([]any, len(refIDs))
	for i, id := range refIDs {
		args[i] = id
	}

	rows, err := k.store.db.QueryContext(ctx,
		"SELECT ref_id, pmid, title FROM refs WHERE pmid != '' AND ref_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.Reference
		if err := rows.Scan(&r.RefID, &r.PMID, &r.Title); err != nil {
			return nil, fmt.Errorf("scanning reference: %w", err)
		}
		out[r.RefID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating references: %w", err)
	}
	return out, nil
}

// Close closes the underlying store.
func (k *knowledgeBase) Close() error {
	return k.store.Close()
}

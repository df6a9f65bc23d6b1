package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/tbqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driving"
	"github.com/custodia-labs/tbqa/internal/core/services"
)

// mockQAService implements driving.QAService for testing.
type mockQAService struct {
	answerFunc    func(ctx context.Context, question string) (*domain.Answer, error)
	decomposeFunc func(ctx context.Context, question string) (domain.Decomposition, error)
	drugs         []string
	findErr       error

	asked  []string
	resets int
}

func (m *mockQAService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	if m.answerFunc != nil {
		return m.answerFunc(ctx, question)
	}
	return &domain.Answer{Question: question, Text: "Answer: " + question}, nil
}

func (m *mockQAService) Batch(ctx context.Context, questions []string) []domain.BatchResult {
	results := make([]domain.BatchResult, 0, len(questions))
	for _, q := range questions {
		a, err := m.Answer(ctx, q)
		r := domain.BatchResult{Question: q, Err: err}
		if a != nil {
			r.Answer = a.Text
		}
		results = append(results, r)
	}
	return results
}

func (m *mockQAService) AnswerEntries(ctx context.Context, in domain.EntriesFile) (domain.EntriesFile, error) {
	out := domain.EntriesFile{Entries: make([]domain.Entry, len(in.Entries))}
	for i, e := range in.Entries {
		c := make(domain.Entry, len(e)+1)
		for k, v := range e {
			c[k] = v
		}
		a, err := m.Answer(ctx, e.Question())
		if err != nil {
			return domain.EntriesFile{}, err
		}
		c["answer"] = a.Text
		out.Entries[i] = c
	}
	return out, nil
}

func (m *mockQAService) Decompose(ctx context.Context, question string) (domain.Decomposition, error) {
	if m.decomposeFunc != nil {
		return m.decomposeFunc(ctx, question)
	}
	return domain.Decomposition{OriginalQuestion: question, AtomicQuestions: strings.Split(question, " and ")}, nil
}

func (m *mockQAService) FindDrugs(_ context.Context, _ string) ([]string, error) {
	return m.drugs, m.findErr
}

func (m *mockQAService) History() []domain.ConversationTurn { return nil }

func (m *mockQAService) Reset() { m.resets++ }

// mockImporter implements driving.KnowledgeImporter for testing.
type mockImporter struct {
	summary domain.ImportSummary
	err     error
	path    string
}

func (m *mockImporter) Import(_ context.Context, path string) (domain.ImportSummary, error) {
	m.path = path
	return m.summary, m.err
}

// mockWiring implements Wiring for testing.
type mockWiring struct {
	qa       driving.QAService
	settings driving.SettingsService
	importer driving.KnowledgeImporter
	err      error
	checks   []domain.ComponentCheck

	qaCalls   int
	closes    int
	configDir string
}

func (w *mockWiring) Settings(dir string) (driving.SettingsService, error) {
	w.configDir = dir
	return w.settings, w.err
}

func (w *mockWiring) QA(_ context.Context, dir string) (driving.QAService, error) {
	w.qaCalls++
	w.configDir = dir
	return w.qa, w.err
}

func (w *mockWiring) Importer(dir string) (driving.KnowledgeImporter, error) {
	w.configDir = dir
	return w.importer, w.err
}

func (w *mockWiring) Check(_ context.Context, dir string) ([]domain.ComponentCheck, error) {
	w.configDir = dir
	return w.checks, w.err
}

func (w *mockWiring) Close() error {
	w.closes++
	return nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	qa       *mockQAService
	importer *mockImporter
	settings driving.SettingsService
}

// setupTestServices installs mock services and returns a cleanup func.
func setupTestServices() func() {
	_, cleanup := setupTestServicesWith(&mockQAService{})
	return cleanup
}

func setupTestServicesWith(qa *mockQAService) (*testServices, func()) {
	ts := &testServices{
		qa:       qa,
		importer: &mockImporter{},
		settings: services.NewSettingsService(memory.NewConfigStore()),
	}
	qaService = ts.qa
	kbImporter = ts.importer
	settingsService = ts.settings
	wiring = nil

	return ts, func() {
		qaService = nil
		kbImporter = nil
		settingsService = nil
		wiring = nil
		askJSON = false
		batchJSON = false
		configDir = ""
		verbose = false
	}
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

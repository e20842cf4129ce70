package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitespider/internal/config"
	"github.com/nao1215/sitespider/internal/crawler"
	"github.com/nao1215/sitespider/internal/database"
	"github.com/nao1215/sitespider/internal/extract"
	"github.com/nao1215/sitespider/internal/fetch"
	"github.com/nao1215/sitespider/internal/metrics"
	"github.com/nao1215/sitespider/internal/model"
	"github.com/nao1215/sitespider/internal/output"
	"github.com/nao1215/sitespider/internal/report"
)

// fakeCrawler returns a canned summary.
type fakeCrawler struct {
	summary *model.RunSummary
	err     error
	seeds   []string
}

func (f *fakeCrawler) Run(_ context.Context, seed string) (*model.RunSummary, error) {
	f.seeds = append(f.seeds, seed)
	return f.summary, f.err
}

// fakeLedger records calls.
type fakeLedger struct {
	started  []string
	finished []*model.RunSummary
	startErr error
}

func (f *fakeLedger) StartRun(_ context.Context, summary *model.RunSummary, outputDir string) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, summary.ID+"@"+outputDir)
	return nil
}

func (f *fakeLedger) FinishRun(_ context.Context, summary *model.RunSummary) error {
	f.finished = append(f.finished, summary)
	return nil
}

// failingWriter is a report.Writer that always fails.
type failingWriter struct{}

func (failingWriter) Write(*report.Run) (int, error) {
	return 0, errors.New("disk full")
}

func TestPrepareOutputStep(t *testing.T) {
	t.Parallel()

	state := newTestState(t)
	stale := filepath.Join(state.Layout.Root(), "stale.txt")
	if err := os.WriteFile(stale, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	step := NewPrepareOutputStep(true)
	if step.Name() != "prepare_output" {
		t.Errorf("unexpected name %q", step.Name())
	}
	if err := step.Do(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected fresh output to remove old files")
	}
	for _, dir := range output.Dirs {
		if info, err := os.Stat(state.Layout.Dir(dir)); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}
}

func TestLedgerSteps(t *testing.T) {
	t.Parallel()

	t.Run("start and finish", func(t *testing.T) {
		t.Parallel()

		ledger := &fakeLedger{}
		state := newTestState(t)

		if err := NewStartRunStep(ledger).Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !state.InLedger {
			t.Error("expected run to be in the ledger")
		}
		if len(ledger.started) != 1 || ledger.started[0] != "run-1@"+state.Layout.Root() {
			t.Errorf("unexpected start calls: %v", ledger.started)
		}

		if err := NewFinishRunStep(ledger).Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ledger.finished) != 1 || ledger.finished[0] != state.Summary {
			t.Error("expected the run summary to be finished")
		}
	})

	t.Run("finish skips runs that never started", func(t *testing.T) {
		t.Parallel()

		ledger := &fakeLedger{startErr: errors.New("locked")}
		state := newTestState(t)

		if err := NewStartRunStep(ledger).Do(context.Background(), state); err == nil {
			t.Fatal("expected start error")
		}
		if err := NewFinishRunStep(ledger).Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ledger.finished) != 0 {
			t.Error("expected no finish call")
		}
	})
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("stores the summary", func(t *testing.T) {
		t.Parallel()

		summary := model.NewRunSummary("run-1", "https://example.com/", 1)
		c := &fakeCrawler{summary: summary}
		state := newTestState(t)

		if err := NewCrawlStep(c).Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state.Summary != summary {
			t.Error("expected crawl summary in state")
		}
		if len(c.seeds) != 1 || c.seeds[0] != "https://example.com/" {
			t.Errorf("unexpected seeds: %v", c.seeds)
		}
	})

	t.Run("keeps partial summary on error", func(t *testing.T) {
		t.Parallel()

		summary := model.NewRunSummary("run-1", "https://example.com/", 1)
		c := &fakeCrawler{summary: summary, err: context.Canceled}
		state := newTestState(t)

		err := NewCrawlStep(c).Do(context.Background(), state)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if state.Summary != summary {
			t.Error("expected partial summary in state")
		}
	})
}

func TestPackageStep(t *testing.T) {
	t.Parallel()

	state := newTestState(t)
	if err := state.Layout.Prepare(false); err != nil {
		t.Fatal(err)
	}
	if _, err := state.Layout.WriteFile(output.DirText, "page.txt", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "output.zip")
	if err := NewPackageStep(path).Do(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Summary.Archive != path {
		t.Errorf("expected archive %s, got %q", path, state.Summary.Archive)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer zr.Close()

	found := false
	for _, f := range zr.File {
		if f.Name == "txt/page.txt" {
			found = true
		}
	}
	if !found {
		t.Error("expected txt/page.txt in archive")
	}
}

func TestReportStep(t *testing.T) {
	t.Parallel()

	t.Run("includes collected resources", func(t *testing.T) {
		t.Parallel()

		collector := NewCollector(nil)
		failed := &model.Resource{URL: "https://example.com/broken", Outcome: model.OutcomeHTTPError, StatusCode: 500}
		if err := collector.RecordResource(context.Background(), "run-1", failed); err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		state := newTestState(t)
		state.Summary.Record(failed)
		state.Summary.FinishedAt = time.Now()

		if err := NewReportStep(report.NewSimpleWriter(&buf), collector).Do(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "https://example.com/broken") {
			t.Error("expected problem resource in report")
		}
	})

	t.Run("wraps writer errors", func(t *testing.T) {
		t.Parallel()

		err := NewReportStep(failingWriter{}, nil).Do(context.Background(), newTestState(t))
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("expected writer error, got %v", err)
		}
	})
}

func TestCollector(t *testing.T) {
	t.Parallel()

	next := &fakeRecorder{}
	c := NewCollector(next)
	a := &model.Resource{URL: "a"}
	b := &model.Resource{URL: "b"}

	for _, r := range []*model.Resource{a, b} {
		if err := c.RecordResource(context.Background(), "run-1", r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got := c.Resources()
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("unexpected resources: %v", got)
	}
	if len(next.urls) != 2 {
		t.Errorf("expected 2 forwarded resources, got %d", len(next.urls))
	}

	got[0] = nil
	if c.Resources()[0] != a {
		t.Error("expected Resources to return a copy")
	}
}

func TestCollectorForwardsErrors(t *testing.T) {
	t.Parallel()

	c := NewCollector(&fakeRecorder{err: errors.New("db closed")})
	if err := c.RecordResource(context.Background(), "run-1", &model.Resource{URL: "a"}); err == nil {
		t.Error("expected forwarded error")
	}
	if len(c.Resources()) != 1 {
		t.Error("expected resource to be kept despite the error")
	}
}

type fakeRecorder struct {
	urls []string
	err  error
}

func (f *fakeRecorder) RecordResource(_ context.Context, _ string, r *model.Resource) error {
	f.urls = append(f.urls, r.URL)
	return f.err
}

func TestDefaultPipelineSteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      func(cfg *config.Config)
		comps    Components
		expected []string
	}{
		{
			name:     "minimal",
			cfg:      func(cfg *config.Config) { cfg.ArchiveName = "" },
			comps:    Components{Crawler: &fakeCrawler{}},
			expected: []string{"prepare_output", "crawl"},
		},
		{
			name: "everything",
			cfg:  func(cfg *config.Config) { cfg.MetricsFile = "metrics.prom" },
			comps: Components{
				Crawler: &fakeCrawler{},
				Ledger:  &fakeLedger{},
				Reports: []report.Writer{report.NewSimpleWriter(&bytes.Buffer{})},
				Metrics: metrics.New(),
			},
			expected: []string{"prepare_output", "start_run", "crawl", "package", "finish_run", "report", "metrics"},
		},
		{
			name:     "metrics without a file",
			cfg:      func(cfg *config.Config) { cfg.ArchiveName = "" },
			comps:    Components{Crawler: &fakeCrawler{}, Metrics: metrics.New()},
			expected: []string{"prepare_output", "crawl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			tt.cfg(cfg)

			got := DefaultPipeline(cfg, tt.comps).StepNames()
			if fmt.Sprint(got) != fmt.Sprint(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestDefaultPipelineRun crawls a local server through every step.
func TestDefaultPipelineRun(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><p>Home</p><a href="/about">about</a><a href="/gone">gone</a></body></html>`)
		case "/about":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><p>About</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.SeedURL = server.URL + "/"
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.MaxDepth = 1
	cfg.MetricsFile = filepath.Join(dir, "metrics.prom")

	db, err := database.Open(filepath.Join(dir, "db"), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	state := NewState("run-42", cfg.SeedURL, cfg.MaxDepth, output.NewLayout(cfg.OutputDir))
	collector := NewCollector(db)
	m := metrics.New()
	engine := crawler.NewEngine(
		fetch.NewHTTPFetcher(server.Client()),
		extract.NewDefaultRegistry(nil, nil),
		state.Layout,
		nil,
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithSleep(func(context.Context, time.Duration) {}),
		crawler.WithRunID(state.RunID),
		crawler.WithRecorder(collector),
		crawler.WithObserver(m),
	)

	var buf bytes.Buffer
	p := DefaultPipeline(cfg, Components{
		Crawler:   engine,
		Ledger:    db,
		Collector: collector,
		Reports:   []report.Writer{report.NewSimpleWriter(&buf, report.WithVerbose(true))},
		Metrics:   m,
	})

	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.Summary.Saved() != 2 {
		t.Errorf("expected 2 saved resources, got %d", state.Summary.Saved())
	}
	if state.Summary.Outcomes[model.OutcomeHTTPError] != 1 {
		t.Errorf("expected 1 http error, got %d", state.Summary.Outcomes[model.OutcomeHTTPError])
	}

	archivePath := filepath.Join(dir, config.DefaultArchiveName)
	if state.Summary.Archive != archivePath {
		t.Errorf("expected archive %s, got %q", archivePath, state.Summary.Archive)
	}
	if _, err := os.Stat(archivePath); err != nil {
		t.Errorf("expected archive file: %v", err)
	}

	run, err := db.GetRun(context.Background(), "run-42")
	if err != nil || run == nil {
		t.Fatalf("expected stored run, got %v, %v", run, err)
	}
	if run.FinishedAt.IsZero() || run.Archive != archivePath {
		t.Errorf("expected finished run with archive, got %+v", run.RunSummary)
	}
	resources, err := db.ListResources(context.Background(), "run-42")
	if err != nil {
		t.Fatalf("failed to list resources: %v", err)
	}
	if len(resources) != 3 {
		t.Errorf("expected 3 stored resources, got %d", len(resources))
	}

	if !strings.Contains(buf.String(), server.URL+"/about") {
		t.Error("expected report to list resources")
	}

	prom, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("expected metrics file: %v", err)
	}
	if !strings.Contains(string(prom), "sitespider_resources_total") {
		t.Error("expected resource counter in metrics file")
	}
}

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/sitespider/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*CrawlDB, func()) {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

// newSummary returns a run summary with a fixed start time.
func newSummary(id string, started time.Time) *model.RunSummary {
	s := model.NewRunSummary(id, "https://example.com/", 3)
	s.StartedAt = started
	return s
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false requires existing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := db.StartRun(context.Background(), newSummary("run-a", time.Now()), "out"); err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		run, err := db.GetRun(context.Background(), "run-a")
		if err != nil || run == nil {
			t.Fatalf("expected stored run, got %v (err=%v)", run, err)
		}
	})
}

// TestRunLifecycle tests starting, finishing and reading back a run.
func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	summary := newSummary("run-1", started)
	if err := db.StartRun(ctx, summary, "/tmp/out"); err != nil {
		t.Fatalf("failed to start run: %v", err)
	}

	run, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if !run.FinishedAt.IsZero() {
		t.Error("expected unfinished run to have no finish time")
	}

	summary.Generations = 2
	summary.Visited = 5
	summary.Discovered = 7
	summary.Outcomes[model.OutcomeSaved] = 4
	summary.Outcomes[model.OutcomeHTTPError] = 1
	summary.Kinds[model.KindMarkup] = 3
	summary.Kinds[model.KindDocument] = 1
	summary.Archive = "/tmp/output.zip"
	summary.FinishedAt = started.Add(90 * time.Second)
	if err := db.FinishRun(ctx, summary); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	run, err = db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if run.SeedURL != "https://example.com/" || run.MaxDepth != 3 || run.OutputDir != "/tmp/out" {
		t.Errorf("unexpected run metadata: %+v", run)
	}
	if run.Generations != 2 || run.Visited != 5 || run.Discovered != 7 {
		t.Errorf("unexpected run statistics: %+v", run)
	}
	if run.Outcomes[model.OutcomeSaved] != 4 || run.Outcomes[model.OutcomeHTTPError] != 1 {
		t.Errorf("unexpected outcomes: %v", run.Outcomes)
	}
	if run.Kinds[model.KindMarkup] != 3 || run.Kinds[model.KindDocument] != 1 {
		t.Errorf("unexpected kinds: %v", run.Kinds)
	}
	if run.Archive != "/tmp/output.zip" {
		t.Errorf("expected archive path, got %q", run.Archive)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("expected start %v, got %v", started, run.StartedAt)
	}
	if run.Duration() != 90*time.Second {
		t.Errorf("expected 90s, got %v", run.Duration())
	}
}

// TestFinishUnknownRun tests finishing a run that was never started.
func TestFinishUnknownRun(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	summary := newSummary("ghost", time.Now())
	summary.FinishedAt = time.Now()
	if err := db.FinishRun(context.Background(), summary); err == nil {
		t.Error("expected error for unknown run")
	}
}

// TestGetRunMissing tests reading a run that does not exist.
func TestGetRunMissing(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()

	run, err := db.GetRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil run, got %+v", run)
	}
}

// TestListRuns tests ordering and limits.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"oldest", "middle", "newest"} {
		if err := db.StartRun(ctx, newSummary(id, base.Add(time.Duration(i)*time.Hour)), "out"); err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
	}

	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "newest" || runs[2].ID != "oldest" {
		t.Errorf("expected newest first, got %s ... %s", runs[0].ID, runs[2].ID)
	}

	limited, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs, got %d", len(limited))
	}
}

// TestRecordResource tests resource storage and UPSERT behavior.
func TestRecordResource(t *testing.T) {
	t.Parallel()

	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := db.StartRun(ctx, newSummary("run-1", time.Now()), "out"); err != nil {
		t.Fatalf("failed to start run: %v", err)
	}

	fetched := time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC)
	page := model.NewResource("https://example.com/b", 1)
	page.Kind = model.KindMarkup
	page.ContentType = "text/html"
	page.StatusCode = 200
	page.Outcome = model.OutcomeSaved
	page.Links = 3
	page.Size = 512
	page.Digest = "abc123"
	page.Duration = 1500 * time.Millisecond
	page.FetchedAt = fetched

	seed := model.NewResource("https://example.com/", 0)
	seed.Outcome = model.OutcomeFetchFailed
	seed.Error = "connection refused"
	seed.FetchedAt = fetched

	for _, r := range []*model.Resource{page, seed} {
		if err := db.RecordResource(ctx, "run-1", r); err != nil {
			t.Fatalf("failed to record resource: %v", err)
		}
	}

	// Same URL in the same run replaces the row.
	page.Links = 4
	if err := db.RecordResource(ctx, "run-1", page); err != nil {
		t.Fatalf("failed to update resource: %v", err)
	}

	resources, err := db.ListResources(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to list resources: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}

	if resources[0].URL != "https://example.com/" {
		t.Errorf("expected seed first, got %s", resources[0].URL)
	}
	if resources[0].Outcome != model.OutcomeFetchFailed || resources[0].Error != "connection refused" {
		t.Errorf("unexpected seed record: %+v", resources[0])
	}

	got := resources[1]
	if got.ID != model.OutputName("https://example.com/b") {
		t.Errorf("unexpected identifier %q", got.ID)
	}
	if got.Kind != model.KindMarkup || got.Outcome != model.OutcomeSaved {
		t.Errorf("unexpected classification: kind=%v outcome=%v", got.Kind, got.Outcome)
	}
	if got.Links != 4 || got.Size != 512 || got.Digest != "abc123" || got.StatusCode != 200 {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", got.Duration)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Errorf("expected %v, got %v", fetched, got.FetchedAt)
	}

	count, err := db.CountDigest(ctx, "abc123")
	if err != nil {
		t.Fatalf("failed to count digest: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1, got %d", count)
	}
}

// TestParseTimestamp tests timestamp parsing with various formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "SQLite default format",
			input:    "2024-01-15 10:30:45",
			expected: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
		},
		{
			name:     "ISO 8601 with Z suffix",
			input:    "2024-01-15T10:30:45Z",
			expected: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
		},
		{
			name:     "stored layout",
			input:    "2024-01-15T10:30:45.123000000Z",
			expected: time.Date(2024, 1, 15, 10, 30, 45, 123000000, time.UTC),
		},
		{
			name:     "empty string",
			input:    "",
			expected: time.Time{},
		},
		{
			name:     "invalid format",
			input:    "not a timestamp",
			expected: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := parseTimestamp(tt.input)
			if !result.Equal(tt.expected) {
				t.Errorf("parseTimestamp(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFormatTimestamp tests the round trip through the stored layout.
func TestFormatTimestamp(t *testing.T) {
	t.Parallel()

	if formatTimestamp(time.Time{}) != "" {
		t.Error("expected zero time to format as empty string")
	}

	local := time.Date(2026, 5, 6, 7, 8, 9, 10, time.FixedZone("JST", 9*60*60))
	if got := parseTimestamp(formatTimestamp(local)); !got.Equal(local) {
		t.Errorf("expected %v, got %v", local, got)
	}
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitespider/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "sitespider.db"

// ErrNotFound is returned when the database file is required but missing.
var ErrNotFound = errors.New("database not found")

// CrawlDB is the SQLite ledger of crawl runs and the resources they processed.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// With CreateIfNotExists unset, a missing database is reported as ErrNotFound.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create the file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		output_dir TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		generations INTEGER NOT NULL DEFAULT 0,
		visited INTEGER NOT NULL DEFAULT 0,
		discovered INTEGER NOT NULL DEFAULT 0,
		outcomes TEXT NOT NULL DEFAULT '{}',
		kinds TEXT NOT NULL DEFAULT '{}',
		archive TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per URL a run processed
	CREATE TABLE IF NOT EXISTS resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		identifier TEXT NOT NULL,
		generation INTEGER NOT NULL,
		kind TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		status_code INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		links INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		digest TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		fetched_at TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_resources_run ON resources(run_id);
	CREATE INDEX IF NOT EXISTS idx_resources_url ON resources(url);
	CREATE INDEX IF NOT EXISTS idx_resources_digest ON resources(digest);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run.
type RunRecord struct {
	model.RunSummary

	// OutputDir is the output root the run wrote to.
	OutputDir string
}

// StartRun inserts a run that has not finished yet.
func (cdb *CrawlDB) StartRun(ctx context.Context, summary *model.RunSummary, outputDir string) error {
	query := `
	INSERT INTO runs (id, seed_url, max_depth, output_dir, started_at)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := cdb.db.ExecContext(ctx, query,
		summary.ID,
		summary.SeedURL,
		summary.MaxDepth,
		outputDir,
		formatTimestamp(summary.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final statistics of a run started with StartRun.
func (cdb *CrawlDB) FinishRun(ctx context.Context, summary *model.RunSummary) error {
	outcomesJSON, err := json.Marshal(outcomeNames(summary.Outcomes))
	if err != nil {
		return fmt.Errorf("failed to serialize outcomes: %w", err)
	}
	kindsJSON, err := json.Marshal(kindNames(summary.Kinds))
	if err != nil {
		return fmt.Errorf("failed to serialize kinds: %w", err)
	}

	query := `
	UPDATE runs SET
		max_depth = ?,
		finished_at = ?,
		generations = ?,
		visited = ?,
		discovered = ?,
		outcomes = ?,
		kinds = ?,
		archive = ?
	WHERE id = ?
	`

	result, err := cdb.db.ExecContext(ctx, query,
		summary.MaxDepth,
		formatTimestamp(summary.FinishedAt),
		summary.Generations,
		summary.Visited,
		summary.Discovered,
		string(outcomesJSON),
		string(kindsJSON),
		summary.Archive,
		summary.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update run: no run with id %s", summary.ID)
	}
	return nil
}

// RecordResource inserts or updates one processed resource of a run.
// Uses UPSERT so a URL appears once per run.
func (cdb *CrawlDB) RecordResource(ctx context.Context, runID string, r *model.Resource) error {
	query := `
	INSERT INTO resources (run_id, url, identifier, generation, kind, content_type, status_code,
		outcome, links, size, digest, error, duration_ms, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		identifier = excluded.identifier,
		generation = excluded.generation,
		kind = excluded.kind,
		content_type = excluded.content_type,
		status_code = excluded.status_code,
		outcome = excluded.outcome,
		links = excluded.links,
		size = excluded.size,
		digest = excluded.digest,
		error = excluded.error,
		duration_ms = excluded.duration_ms,
		fetched_at = excluded.fetched_at
	`

	_, err := cdb.db.ExecContext(ctx, query,
		runID,
		r.URL,
		r.ID,
		r.Generation,
		r.Kind.String(),
		r.ContentType,
		r.StatusCode,
		r.Outcome.String(),
		r.Links,
		r.Size,
		r.Digest,
		r.Error,
		r.Duration.Milliseconds(),
		formatTimestamp(r.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record resource: %w", err)
	}
	return nil
}

const runColumns = `id, seed_url, max_depth, output_dir, started_at, finished_at,
	generations, visited, discovered, outcomes, kinds, archive`

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given id, or nil when there is none.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE id = ?"

	run, err := scanRun(cdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var (
		run          RunRecord
		startedAt    string
		finishedAt   string
		outcomesJSON string
		kindsJSON    string
	)

	err := s.Scan(
		&run.ID,
		&run.SeedURL,
		&run.MaxDepth,
		&run.OutputDir,
		&startedAt,
		&finishedAt,
		&run.Generations,
		&run.Visited,
		&run.Discovered,
		&outcomesJSON,
		&kindsJSON,
		&run.Archive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)

	var outcomes, kinds map[string]int
	if err := json.Unmarshal([]byte(outcomesJSON), &outcomes); err != nil {
		return nil, fmt.Errorf("failed to parse outcomes: %w", err)
	}
	if err := json.Unmarshal([]byte(kindsJSON), &kinds); err != nil {
		return nil, fmt.Errorf("failed to parse kinds: %w", err)
	}

	run.Outcomes = make(map[model.Outcome]int, len(outcomes))
	for name, n := range outcomes {
		if o, ok := model.ParseOutcome(name); ok {
			run.Outcomes[o] = n
		}
	}
	run.Kinds = make(map[model.Kind]int, len(kinds))
	for name, n := range kinds {
		run.Kinds[model.ParseKind(name)] += n
	}

	return &run, nil
}

// ListResources returns the resources of a run in crawl order.
func (cdb *CrawlDB) ListResources(ctx context.Context, runID string) ([]*model.Resource, error) {
	query := `
	SELECT url, identifier, generation, kind, content_type, status_code, outcome,
		links, size, digest, error, duration_ms, fetched_at
	FROM resources
	WHERE run_id = ?
	ORDER BY generation, url
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []*model.Resource
	for rows.Next() {
		var (
			r          model.Resource
			kind       string
			outcome    string
			durationMS int64
			fetchedAt  string
		)

		err := rows.Scan(
			&r.URL,
			&r.ID,
			&r.Generation,
			&kind,
			&r.ContentType,
			&r.StatusCode,
			&outcome,
			&r.Links,
			&r.Size,
			&r.Digest,
			&r.Error,
			&durationMS,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}

		r.Kind = model.ParseKind(kind)
		if o, ok := model.ParseOutcome(outcome); ok {
			r.Outcome = o
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.FetchedAt = parseTimestamp(fetchedAt)
		resources = append(resources, &r)
	}

	return resources, rows.Err()
}

// CountDigest returns how many recorded resources, across all runs, had
// the given payload digest.
func (cdb *CrawlDB) CountDigest(ctx context.Context, digest string) (int, error) {
	var count int
	err := cdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources WHERE digest = ?", digest).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count digest: %w", err)
	}
	return count, nil
}

func outcomeNames(counts map[model.Outcome]int) map[string]int {
	names := make(map[string]int, len(counts))
	for o, n := range counts {
		names[o.String()] = n
	}
	return names
}

func kindNames(counts map[model.Kind]int) map[string]int {
	names := make(map[string]int, len(counts))
	for k, n := range counts {
		names[k.String()] = n
	}
	return names
}

// timestampLayout has a fixed width so that text ordering is time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp stores times in UTC. The zero time is stored as an empty
// string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wordcrawl/internal/model"
)

// DBFileName is the name of the history database file inside its directory.
const DBFileName = "wordcrawl.db"

// HistoryDB stores crawl runs and their match records.
// It is safe for concurrent use; writes are serialized on one connection.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the
	// crawl that is writing.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned and nothing is created.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// Foreign keys and the busy timeout are set per connection through the
	// DSN; the busy timeout lets parallel crawls share one history file.
	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}
	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		host TEXT NOT NULL,
		result_file TEXT NOT NULL DEFAULT '',
		words TEXT NOT NULL DEFAULT '[]',
		workers INTEGER NOT NULL DEFAULT 0,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		pages_skipped INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		links_discovered INTEGER NOT NULL DEFAULT 0,
		write_errors INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Match records written during a run, in write order
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		words TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_run ON matches(run_id);
	`

	_, err := hdb.db.ExecContext(ctx, schema)
	return err
}

// Run is one stored crawl run.
type Run struct {
	ID              int64
	Seed            string
	Host            string
	ResultFile      string
	Words           []string
	Workers         int
	PagesFetched    int
	PagesSkipped    int
	PagesFailed     int
	LinksDiscovered int
	WriteErrors     int
	Cancelled       bool
	StartedAt       time.Time

	// FinishedAt is zero for a run that never called FinishRun
	// (for example a process that crashed).
	FinishedAt time.Time

	// MatchCount is the number of stored match records.
	MatchCount int
}

// Finished reports whether FinishRun was recorded for the run.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// StartRun inserts a new run and returns its ID.
func (hdb *HistoryDB) StartRun(ctx context.Context, seed, host string, words []string) (int64, error) {
	wordsJSON, err := encodeWords(words)
	if err != nil {
		return 0, err
	}

	query := `
	INSERT INTO runs (seed, host, words, started_at)
	VALUES (?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		seed,
		strings.ToLower(host),
		wordsJSON,
		formatTimestamp(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun stores the counters of a finished run.
func (hdb *HistoryDB) FinishRun(ctx context.Context, runID int64, summary *model.CrawlSummary) error {
	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	query := `
	UPDATE runs SET
		result_file = ?,
		workers = ?,
		pages_fetched = ?,
		pages_skipped = ?,
		pages_failed = ?,
		links_discovered = ?,
		write_errors = ?,
		cancelled = ?,
		finished_at = ?
	WHERE id = ?
	`

	result, err := hdb.db.ExecContext(ctx, query,
		summary.ResultFile,
		summary.Workers,
		summary.PagesFetched,
		summary.PagesSkipped,
		summary.PagesFailed,
		summary.LinksDiscovered,
		summary.WriteErrors,
		summary.Cancelled,
		formatTimestamp(finished),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// DeleteRun removes a run and its match records. It is used when a crawl
// fails before fetching anything.
func (hdb *HistoryDB) DeleteRun(ctx context.Context, runID int64) error {
	if _, err := hdb.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// InsertMatch stores one match record of a run.
func (hdb *HistoryDB) InsertMatch(ctx context.Context, runID int64, pageURL string, words []string) error {
	wordsJSON, err := encodeWords(words)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO matches (run_id, url, words, created_at)
	VALUES (?, ?, ?, ?)
	`

	if _, err := hdb.db.ExecContext(ctx, query, runID, pageURL, wordsJSON, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// runColumns is the column list shared by the run queries.
const runColumns = `
	r.id, r.seed, r.host, r.result_file, r.words, r.workers,
	r.pages_fetched, r.pages_skipped, r.pages_failed, r.links_discovered,
	r.write_errors, r.cancelled, r.started_at, r.finished_at,
	(SELECT COUNT(*) FROM matches m WHERE m.run_id = r.id)
`

// ListRuns returns stored runs, newest first. An empty host lists every
// run; otherwise the host is compared case-insensitively.
func (hdb *HistoryDB) ListRuns(ctx context.Context, host string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r WHERE 1=1`
	args := make([]any, 0, 1)

	if host != "" {
		query += " AND r.host = ?"
		args = append(args, strings.ToLower(host))
	}
	query += " ORDER BY r.started_at DESC, r.id DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID, or ErrRunNotFound.
func (hdb *HistoryDB) GetRun(ctx context.Context, runID int64) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r WHERE r.id = ?`

	run, err := scanRun(hdb.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRunMatches returns the match records of a run in write order.
func (hdb *HistoryDB) GetRunMatches(ctx context.Context, runID int64) ([]model.MatchRecord, error) {
	query := `
	SELECT url, words FROM matches
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := hdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run matches: %w", err)
	}
	defer rows.Close()

	var records []model.MatchRecord
	for rows.Next() {
		var pageURL, wordsJSON string
		if err := rows.Scan(&pageURL, &wordsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		words, err := decodeWords(wordsJSON)
		if err != nil {
			return nil, err
		}
		records = append(records, model.NewMatchRecord(pageURL, words))
	}
	return records, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run        Run
		wordsJSON  string
		startedAt  string
		finishedAt sql.NullString
	)

	err := row.Scan(
		&run.ID,
		&run.Seed,
		&run.Host,
		&run.ResultFile,
		&wordsJSON,
		&run.Workers,
		&run.PagesFetched,
		&run.PagesSkipped,
		&run.PagesFailed,
		&run.LinksDiscovered,
		&run.WriteErrors,
		&run.Cancelled,
		&startedAt,
		&finishedAt,
		&run.MatchCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Words, err = decodeWords(wordsJSON)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	return &run, nil
}

func encodeWords(words []string) (string, error) {
	if words == nil {
		words = []string{}
	}
	b, err := json.Marshal(words)
	if err != nil {
		return "", fmt.Errorf("failed to serialize words: %w", err)
	}
	return string(b), nil
}

func decodeWords(s string) ([]string, error) {
	var words []string
	if s == "" {
		return words, nil
	}
	if err := json.Unmarshal([]byte(s), &words); err != nil {
		return nil, fmt.Errorf("failed to parse words: %w", err)
	}
	return words, nil
}

// formatTimestamp stores times in UTC with nanoseconds so that text
// ordering matches time ordering.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampLayout is a fixed-width RFC 3339 layout.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: the layout written by formatTimestamp comes first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
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

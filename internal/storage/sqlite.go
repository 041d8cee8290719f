package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrSinkOpen is returned when an output sink cannot be opened at startup.
var ErrSinkOpen = errors.New("failed to open output sink")

// Storage persists crawl runs, fetched pages and keyword reports in SQLite
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: database %s: %v", ErrSinkOpen, dbPath, err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: database %s: %v", ErrSinkOpen, dbPath, err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: schema: %v", ErrSinkOpen, err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		pages_fetched INTEGER DEFAULT 0,
		termination_reason TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS pages (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		body BLOB,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE TABLE IF NOT EXISTS keyword_counts (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		word TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq, word)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records the start of a crawl
func (s *Storage) BeginRun(ctx context.Context, runID, seedURL string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, seed_url, started_at)
		VALUES (?, ?, ?)
	`, runID, seedURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to begin run: %w", err)
	}
	return nil
}

// FinishRun stamps the end of a crawl with its outcome
func (s *Storage) FinishRun(ctx context.Context, runID string, pagesFetched int, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, pages_fetched = ?, termination_reason = ?
		WHERE run_id = ?
	`, time.Now().UTC(), pagesFetched, reason, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish run: unknown run %s", runID)
	}
	return nil
}

// GetRun retrieves a run by ID, returns nil if not found
func (s *Storage) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, seed_url, started_at, finished_at, pages_fetched, termination_reason
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.SeedURL, &run.StartedAt, &finished, &run.PagesFetched, &run.TerminationReason)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}

	return &run, nil
}

// SavePage stores a fetched page body under its run and sequence number
func (s *Storage) SavePage(ctx context.Context, page Page) error {
	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (run_id, seq, url, depth, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO UPDATE SET
			url = EXCLUDED.url,
			depth = EXCLUDED.depth,
			body = EXCLUDED.body,
			fetched_at = EXCLUDED.fetched_at
	`, page.RunID, page.Seq, page.URL, page.Depth, page.Body, fetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save page %d: %w", page.Seq, err)
	}
	return nil
}

// ListURLs returns the fetched URLs of a run in sequence order
func (s *Storage) ListURLs(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url FROM pages WHERE run_id = ? ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating urls: %w", err)
	}

	return urls, nil
}

// SaveKeywordCounts stores the keyword report of one page
func (s *Storage) SaveKeywordCounts(ctx context.Context, runID string, seq int64, counts []KeywordCount) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin keyword transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO keyword_counts (run_id, seq, word, count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, seq, word) DO UPDATE SET count = EXCLUDED.count
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare keyword insert: %w", err)
	}
	defer stmt.Close()

	for _, kc := range counts {
		if _, err := stmt.ExecContext(ctx, runID, seq, kc.Word, kc.Count); err != nil {
			return fmt.Errorf("failed to save keyword %q: %w", kc.Word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit keyword counts: %w", err)
	}
	return nil
}

// KeywordTotals sums keyword occurrences across all pages of a run
func (s *Storage) KeywordTotals(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT word, SUM(count) FROM keyword_counts WHERE run_id = ? GROUP BY word
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var word string
		var total int
		if err := rows.Scan(&word, &total); err != nil {
			return nil, fmt.Errorf("failed to scan keyword total: %w", err)
		}
		totals[word] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keyword totals: %w", err)
	}

	return totals, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlog persists per-run, per-page conversion outcomes in a
// SQLite ledger. The ledger is observability, not a work queue: a
// restarted run re-converts from page 1 and simply overwrites its page
// rows. The report command reads it to list runs and locate pages still
// needing manual remediation.
package runlog

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pagescribe/pkg/types"
)

const dbFile = "runs.db"

// Store manages the run ledger database.
type Store struct {
	db      *sql.DB
	maxRuns int
}

// Open opens or creates the ledger database under cfg.LogDir, creating
// the schema if needed.
func Open(cfg types.ReportConfig) (*Store, error) {
	dir := cfg.LogDir
	if dir == "" {
		dir = ".pagescribe"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	maxRuns := cfg.MaxRuns
	if maxRuns <= 0 {
		maxRuns = 20
	}

	s := &Store{db: db, maxRuns: maxRuns}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			pages INTEGER NOT NULL,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			page INTEGER NOT NULL,
			status TEXT NOT NULL,
			tier TEXT,
			attempts INTEGER NOT NULL,
			PRIMARY KEY (run_id, page)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(run_id, status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun records the start of a conversion run and returns its id.
func (s *Store) BeginRun(source string, pages int) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (source, started_at, pages) VALUES (?, ?, ?)`,
		source, time.Now().UTC().Format(time.RFC3339), pages,
	)
	if err != nil {
		return 0, fmt.Errorf("recording run start: %w", err)
	}
	return res.LastInsertId()
}

// RecordPage upserts one page's outcome for a run. Re-converting a page
// within the same source overwrites the previous row.
func (s *Store) RecordPage(runID int64, r types.PageResult) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO pages (run_id, page, status, tier, attempts) VALUES (?, ?, ?, ?, ?)`,
		runID, r.Index, string(r.Status), r.Tier, r.Attempts,
	)
	if err != nil {
		return fmt.Errorf("recording page %d: %w", r.Index, err)
	}
	return nil
}

// FinishRun recomputes and stores the run's failed-page count.
func (s *Store) FinishRun(runID int64) error {
	_, err := s.db.Exec(
		`UPDATE runs SET failed = (SELECT COUNT(*) FROM pages WHERE run_id = ? AND status = ?) WHERE id = ?`,
		runID, string(types.PageFailed), runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", runID, err)
	}
	return nil
}

// Run is one ledger row from the runs table.
type Run struct {
	ID        int64  `json:"id" yaml:"id"`
	Source    string `json:"source" yaml:"source"`
	StartedAt string `json:"started_at" yaml:"started_at"`
	Pages     int    `json:"pages" yaml:"pages"`
	Failed    int    `json:"failed" yaml:"failed"`
}

// Runs lists the most recent runs, newest first, up to the configured
// maximum.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, source, started_at, pages, failed FROM runs ORDER BY id DESC LIMIT ?`,
		s.maxRuns,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.StartedAt, &r.Pages, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FailedPages returns the page indices that failed in a run, in page order.
func (s *Store) FailedPages(runID int64) ([]int, error) {
	rows, err := s.db.Query(
		`SELECT page FROM pages WHERE run_id = ? AND status = ? ORDER BY page`,
		runID, string(types.PageFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("listing failed pages: %w", err)
	}
	defer rows.Close()

	var pages []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning page row: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// RunReport is the YAML-exportable view of one run.
type RunReport struct {
	Run         Run   `yaml:"run"`
	FailedPages []int `yaml:"failed_pages,omitempty"`
}

// ExportYAML writes a YAML report for one run to w.
func (s *Store) ExportYAML(w io.Writer, runID int64) error {
	var r Run
	err := s.db.QueryRow(
		`SELECT id, source, started_at, pages, failed FROM runs WHERE id = ?`, runID,
	).Scan(&r.ID, &r.Source, &r.StartedAt, &r.Pages, &r.Failed)
	if err == sql.ErrNoRows {
		return fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return fmt.Errorf("loading run %d: %w", runID, err)
	}

	failed, err := s.FailedPages(runID)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(RunReport{Run: r, FailedPages: failed})
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

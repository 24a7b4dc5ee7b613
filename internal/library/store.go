// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library keeps a SQLite history of research runs so past
// prompts, their pages, and their answers can be listed later.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/niderhoff/scolar/pkg/types"
)

const dbFile = "runs.db"

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the run history listing.
type RunSummary struct {
	ID        int64
	Prompt    string
	ExitCode  int
	URLCount  int
	PageCount int
	HasAnswer bool
	CreatedAt time.Time
}

// PageRecord is one processed page stored with a run.
type PageRecord struct {
	URL            string
	Title          string
	Summary        string
	PromptFit      int
	TechnicalDepth int
	MarkdownPath   string
}

// Open opens or creates the run history database at dir/runs.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}

	s := &Store{db: db}
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
			prompt TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			url_count INTEGER NOT NULL,
			final_answer TEXT,
			errors TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			url TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			prompt_fit INTEGER,
			technical_depth INTEGER,
			markdown_path TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_pages_run_id ON run_pages(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished run with its pages and returns the run id.
func (s *Store) Record(ctx context.Context, result *types.ResearchResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var finalAnswer string
	if result.Synthesis != nil {
		finalAnswer = result.Synthesis.Answer
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (prompt, exit_code, url_count, final_answer, errors, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.Prompt,
		result.ExitCode,
		len(result.URLs),
		finalAnswer,
		strings.Join(result.Errors, "\n"),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for _, item := range result.ProcessedPages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_pages (run_id, url, title, summary, prompt_fit, technical_depth, markdown_path)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID,
			item.Page.URL,
			item.Page.Title,
			item.Assessment.Summary,
			item.Assessment.PromptFit.Rating,
			item.Assessment.TechnicalDepth.Rating,
			item.Page.MarkdownPath,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting run page: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// List returns the most recent runs, newest first, capped at limit.
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.prompt, r.exit_code, r.url_count, r.final_answer, r.created_at,
		        (SELECT count(*) FROM run_pages p WHERE p.run_id = r.id)
		 FROM runs r
		 ORDER BY r.id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run         RunSummary
			finalAnswer sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&run.ID, &run.Prompt, &run.ExitCode, &run.URLCount, &finalAnswer, &createdAt, &run.PageCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.HasAnswer = finalAnswer.Valid && finalAnswer.String != ""
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			run.CreatedAt = ts
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Pages returns the pages recorded for a run in insertion order.
func (s *Store) Pages(ctx context.Context, runID int64) ([]PageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, title, summary, prompt_fit, technical_depth, markdown_path
		 FROM run_pages
		 WHERE run_id = ?
		 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing run pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		if err := rows.Scan(&p.URL, &p.Title, &p.Summary, &p.PromptFit, &p.TechnicalDepth, &p.MarkdownPath); err != nil {
			return nil, fmt.Errorf("scanning run page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

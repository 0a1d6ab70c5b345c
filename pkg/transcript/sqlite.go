package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id                TEXT PRIMARY KEY,
	created_at        TIMESTAMP NOT NULL,
	mode              TEXT NOT NULL,
	model             TEXT NOT NULL,
	prompt            TEXT NOT NULL,
	response          TEXT NOT NULL,
	temperature       REAL NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
`

// SQLiteStorer persists records in a SQLite database.
type SQLiteStorer struct {
	db *sql.DB
}

// NewSQLiteStorer opens (and creates if needed) a SQLite database at path.
// Use ":memory:" for an in-memory database.
func NewSQLiteStorer(path string) (*SQLiteStorer, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStorer{db: db}, nil
}

// Put stores a record, skipping duplicates by ID.
func (s *SQLiteStorer) Put(ctx context.Context, rec *Record) (bool, error) {
	if rec == nil {
		return false, fmt.Errorf("cannot store nil record")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO transcripts
		 (id, created_at, mode, model, prompt, response, temperature, prompt_tokens, completion_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.Format(time.RFC3339Nano), rec.Mode, rec.Model,
		rec.Prompt, rec.Response, rec.Temperature, rec.PromptTokens, rec.CompletionTokens,
	)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

// Get retrieves a record by ID.
func (s *SQLiteStorer) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, mode, model, prompt, response, temperature, prompt_tokens, completion_tokens
		 FROM transcripts WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}

	return rec, nil
}

// List returns all records, newest first.
func (s *SQLiteStorer) List(ctx context.Context) ([]*Record, error) {
	return s.query(ctx,
		`SELECT id, created_at, mode, model, prompt, response, temperature, prompt_tokens, completion_tokens
		 FROM transcripts ORDER BY created_at DESC`)
}

// Recent returns up to n records, newest first.
func (s *SQLiteStorer) Recent(ctx context.Context, n int) ([]*Record, error) {
	return s.query(ctx,
		`SELECT id, created_at, mode, model, prompt, response, temperature, prompt_tokens, completion_tokens
		 FROM transcripts ORDER BY created_at DESC LIMIT ?`, n)
}

// Close closes the underlying database.
func (s *SQLiteStorer) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorer) query(ctx context.Context, q string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var createdAt string

	err := s.Scan(&rec.ID, &createdAt, &rec.Mode, &rec.Model, &rec.Prompt,
		&rec.Response, &rec.Temperature, &rec.PromptTokens, &rec.CompletionTokens)
	if err != nil {
		return nil, err
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &rec, nil
}

package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trial-match-engine/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite review store. It creates the database
// file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode: the matching engine records concurrently while admins read.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry scans a row into an Entry.
func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	var cluster, method, resolution string
	var resolvedAt sql.NullTime

	err := s.Scan(
		&e.Payload.ID, &e.Payload.Term, &e.Payload.CriterionID, &e.Payload.TrialID,
		&cluster, &e.Payload.MatchedText, &method, &e.Payload.Reasoning,
		&resolution, &e.Notes, &e.Payload.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Payload.Cluster = domain.ClusterCode(cluster)
	e.Payload.Method = domain.MatchMethod(method)
	e.Resolution = Resolution(resolution)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		e.ResolvedAt = &t
	}
	return e, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		term TEXT NOT NULL,
		criterion_id TEXT NOT NULL,
		trial_id TEXT NOT NULL,
		cluster TEXT NOT NULL,
		matched_text TEXT DEFAULT '',
		method TEXT NOT NULL,
		reasoning TEXT DEFAULT '',
		resolution TEXT NOT NULL DEFAULT 'pending',
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		resolved_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_resolution ON reviews(resolution);
	CREATE INDEX IF NOT EXISTS idx_reviews_trial ON reviews(trial_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_created_at ON reviews(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Record stores a new payload in pending state; recording an existing ID
// refreshes the payload without touching its resolution.
func (s *SQLiteStore) Record(ctx context.Context, payload *domain.ReviewPayload) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (
			id, term, criterion_id, trial_id, cluster,
			matched_text, method, reasoning, resolution, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)
		ON CONFLICT(id) DO UPDATE SET
			term = excluded.term,
			matched_text = excluded.matched_text,
			method = excluded.method,
			reasoning = excluded.reasoning
	`,
		payload.ID,
		payload.Term,
		payload.CriterionID,
		payload.TrialID,
		string(payload.Cluster),
		payload.MatchedText,
		string(payload.Method),
		payload.Reasoning,
		payload.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

const selectColumns = `id, term, criterion_id, trial_id, cluster,
	matched_text, method, reasoning, resolution, notes, created_at, resolved_at`

// Get retrieves one entry by payload ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM reviews WHERE id = ?", id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return entry, nil
}

// List returns entries filtered by resolution, newest first.
func (s *SQLiteStore) List(ctx context.Context, resolution Resolution, limit, offset int) ([]*Entry, error) {
	query := "SELECT " + selectColumns + " FROM reviews"
	args := []interface{}{}
	if resolution != "" {
		query += " WHERE resolution = ?"
		args = append(args, string(resolution))
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// Resolve records an administrator's verdict.
func (s *SQLiteStore) Resolve(ctx context.Context, id string, resolution Resolution, notes string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET resolution = ?, notes = ?, resolved_at = ?
		WHERE id = ?
	`, string(resolution), notes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolve result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("review %s not found", id)
	}
	return nil
}

// Count returns the number of entries with the given resolution.
func (s *SQLiteStore) Count(ctx context.Context, resolution Resolution) (int64, error) {
	var count int64
	var err error
	if resolution == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM reviews WHERE resolution = ?", string(resolution)).Scan(&count)
	}
	return count, err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON writes all entries to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Entries:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Package store persists non-sensitive run metadata for the current
// session. It only ever sees digests and derived result figures; the raw
// profile type is not importable from here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quantumproof-labs/qpops/pkg/privacy"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record exists for the requested run.
var ErrNotFound = errors.New("store: run record not found")

// SessionRecord is the per-run metadata row. Every field is derived or
// non-identifying; raw attributes never reach this type.
type SessionRecord struct {
	RunID              string
	Fingerprint        privacy.Digest
	Scenario           string
	Decision           string
	SecurityMode       string
	ProofHash          string
	VerificationResult bool
	UsedFallback       bool
	RuntimeMs          int64
	EncryptionTimeMs   int64
	ComputationTimeMs  int64
	ProvingTimeMs      int64
	VerificationTimeMs int64
	CreatedAt          time.Time
	CompletedAt        time.Time
}

// SessionStore keeps run metadata in SQLite for the lifetime of the session.
type SessionStore struct {
	db *sql.DB
}

// Open opens the backing database. An empty path selects an in-memory
// database, so nothing survives the process.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// In-memory sqlite is per-connection; a single connection keeps the
	// pool pointed at one database.
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSessionStore migrates the schema and returns a ready store.
func NewSessionStore(db *sql.DB) (*SessionStore, error) {
	s := &SessionStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		scenario TEXT NOT NULL,
		decision TEXT NOT NULL,
		security_mode TEXT NOT NULL,
		proof_hash TEXT NOT NULL,
		verification_result INTEGER NOT NULL,
		used_fallback INTEGER NOT NULL,
		runtime_ms INTEGER NOT NULL,
		encryption_time_ms INTEGER NOT NULL,
		computation_time_ms INTEGER NOT NULL,
		proving_time_ms INTEGER NOT NULL,
		verification_time_ms INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Append inserts one completed run's metadata.
func (s *SessionStore) Append(ctx context.Context, r SessionRecord) error {
	query := `INSERT INTO runs (
		run_id, fingerprint, scenario, decision, security_mode, proof_hash,
		verification_result, used_fallback, runtime_ms, encryption_time_ms,
		computation_time_ms, proving_time_ms, verification_time_ms,
		created_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	createdAt := r.CreatedAt.UTC().Format(time.RFC3339Nano)
	completedAt := r.CompletedAt.UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, query,
		r.RunID, string(r.Fingerprint), r.Scenario, r.Decision, r.SecurityMode,
		r.ProofHash, r.VerificationResult, r.UsedFallback, r.RuntimeMs,
		r.EncryptionTimeMs, r.ComputationTimeMs, r.ProvingTimeMs,
		r.VerificationTimeMs, createdAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert run %s: %w", r.RunID, err)
	}
	return nil
}

// Get returns the record for one run.
func (s *SessionStore) Get(ctx context.Context, runID string) (*SessionRecord, error) {
	query := selectColumns + ` WHERE run_id = ?`
	row := s.db.QueryRowContext(ctx, query, runID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (s *SessionStore) List(ctx context.Context, limit int) ([]*SessionRecord, error) {
	query := selectColumns + ` ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

const selectColumns = `
	SELECT run_id, fingerprint, scenario, decision, security_mode, proof_hash,
		verification_result, used_fallback, runtime_ms, encryption_time_ms,
		computation_time_ms, proving_time_ms, verification_time_ms,
		created_at, completed_at
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*SessionRecord, error) {
	var (
		rec         SessionRecord
		fingerprint string
		createdAt   string
		completedAt string
	)
	err := row.Scan(&rec.RunID, &fingerprint, &rec.Scenario, &rec.Decision,
		&rec.SecurityMode, &rec.ProofHash, &rec.VerificationResult,
		&rec.UsedFallback, &rec.RuntimeMs, &rec.EncryptionTimeMs,
		&rec.ComputationTimeMs, &rec.ProvingTimeMs, &rec.VerificationTimeMs,
		&createdAt, &completedAt)
	if err != nil {
		return nil, err
	}
	rec.Fingerprint = privacy.Digest(fingerprint)
	rec.CreatedAt = parseTime(createdAt)
	rec.CompletedAt = parseTime(completedAt)
	return &rec, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

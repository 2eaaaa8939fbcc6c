package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/quantumproof-labs/qpops/pkg/privacy"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	db, err := Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSessionStore(db)
	if err != nil {
		t.Fatalf("NewSessionStore failed: %v", err)
	}
	return s
}

func sampleRecord(runID string, at time.Time) SessionRecord {
	return SessionRecord{
		RunID:              runID,
		Fingerprint:        privacy.Digest("a1b2c3"),
		Scenario:           "credit-risk",
		Decision:           "approve",
		SecurityMode:       "NORMAL",
		ProofHash:          "deadbeef",
		VerificationResult: true,
		UsedFallback:       false,
		RuntimeMs:          412,
		EncryptionTimeMs:   9,
		ComputationTimeMs:  4,
		ProvingTimeMs:      310,
		VerificationTimeMs: 6,
		CreatedAt:          at,
		CompletedAt:        at.Add(412 * time.Millisecond),
	}
}

func TestAppendAndGet(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec := sampleRecord("run-1", at)

	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := s.Get(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Fingerprint != rec.Fingerprint || got.Decision != rec.Decision {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if !got.VerificationResult || got.UsedFallback {
		t.Fatalf("bool round-trip mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(at) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, at)
	}
	if !got.CompletedAt.Equal(rec.CompletedAt) {
		t.Fatalf("completed_at = %v, want %v", got.CompletedAt, rec.CompletedAt)
	}
	if got.ProvingTimeMs != 310 || got.VerificationTimeMs != 6 {
		t.Fatalf("timing round-trip mismatch: %+v", got)
	}
}

func TestGetMissingRun(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "no-such-run")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		rec := sampleRecord(id, base.Add(time.Duration(i)*time.Minute))
		if err := s.Append(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].RunID != "run-c" || records[1].RunID != "run-b" {
		t.Fatalf("order wrong: %s, %s", records[0].RunID, records[1].RunID)
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rec := sampleRecord("run-1", at)

	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(context.Background(), rec); err == nil {
		t.Fatal("second insert with same run_id must fail")
	}
}

func TestAppendSurfacesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO runs").
		WillReturnError(errors.New("disk I/O error"))

	s, err := NewSessionStore(db)
	if err != nil {
		t.Fatalf("NewSessionStore failed: %v", err)
	}
	rec := sampleRecord("run-1", time.Now())
	if err := s.Append(context.Background(), rec); err == nil {
		t.Fatal("driver error must propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListSurfacesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT run_id").
		WillReturnError(errors.New("database is locked"))

	s, err := NewSessionStore(db)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.List(context.Background(), 10); err == nil {
		t.Fatal("query error must propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

package gate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreIncrementUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := now.Add(-time.Hour)
	mock.ExpectQuery("INSERT INTO identity_usage").
		WithArgs("hash-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"count", "first_access", "last_access"}).AddRow(2, first, now))

	rec, err := NewPGStore(db).Increment(context.Background(), "hash-1", now)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if rec.Count != 2 || !rec.FirstAccess.Equal(first) || !rec.LastAccess.Equal(now) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT count, first_access, last_access").
		WithArgs("hash-404").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := NewPGStore(db).Get(context.Background(), "hash-404")
	if err != nil || ok {
		t.Fatalf("expected missing record without error, got ok=%v err=%v", ok, err)
	}
}

func TestPGStoreErrorFailsOpen(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO identity_usage").WillReturnError(sql.ErrConnDone)

	d := NewStoreService(NewPGStore(db)).RecordCreation(context.Background(), "hash-1")
	if !d.Allowed || d.Reason != ReasonFailOpen {
		t.Fatalf("expected fail-open decision, got %+v", d)
	}
}

package gate

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed gate store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Get(ctx context.Context, identity string) (UsageRecord, bool, error) {
	const query = `
SELECT count, first_access, last_access
FROM identity_usage
WHERE identity_hash = $1`
	rec := UsageRecord{IdentityHash: identity}
	err := s.DB.QueryRowContext(ctx, query, identity).Scan(&rec.Count, &rec.FirstAccess, &rec.LastAccess)
	if errors.Is(err, sql.ErrNoRows) {
		return UsageRecord{}, false, nil
	}
	if err != nil {
		return UsageRecord{}, false, err
	}
	return rec, true, nil
}

func (s *pgStore) Increment(ctx context.Context, identity string, now time.Time) (UsageRecord, error) {
	const query = `
INSERT INTO identity_usage (identity_hash, count, first_access, last_access)
VALUES ($1, 1, $2, $2)
ON CONFLICT (identity_hash) DO UPDATE
SET count = identity_usage.count + 1, last_access = EXCLUDED.last_access
RETURNING count, first_access, last_access`
	rec := UsageRecord{IdentityHash: identity}
	if err := s.DB.QueryRowContext(ctx, query, identity, now).Scan(&rec.Count, &rec.FirstAccess, &rec.LastAccess); err != nil {
		return UsageRecord{}, err
	}
	return rec, nil
}

var _ store = (*pgStore)(nil)

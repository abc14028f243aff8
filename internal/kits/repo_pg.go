package kits

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const kitColumns = `id, user_id, job_title, company, status, cover_letter, resume, follow_up_email,
    original_input, cover_letter_uri, resume_uri, follow_up_email_uri, created_at, updated_at`

// Create inserts a kit.
func (r *PGRepo) Create(ctx context.Context, kit Kit) error {
	original, err := encodeOriginal(kit.Original)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO application_kits (
    id, user_id, job_title, company, status, cover_letter, resume, follow_up_email,
    original_input, cover_letter_uri, resume_uri, follow_up_email_uri, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.DB.ExecContext(ctx, query,
		kit.ID,
		kit.UserID,
		kit.JobTitle,
		kit.Company,
		string(kit.Status),
		kit.CoverLetter,
		kit.Resume,
		kit.FollowUpEmail,
		original,
		kit.Locators.CoverLetter,
		kit.Locators.Resume,
		kit.Locators.FollowUpEmail,
		kit.CreatedAt,
		kit.UpdatedAt,
	)
	return err
}

// GetByID returns a kit owned by userID.
func (r *PGRepo) GetByID(ctx context.Context, userID, kitID string) (Kit, error) {
	query := `
SELECT ` + kitColumns + `
FROM application_kits
WHERE id = $1 AND user_id = $2
LIMIT 1`
	kit, err := scanKit(r.DB.QueryRowContext(ctx, query, kitID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Kit{}, ErrNotFound
		}
		return Kit{}, err
	}
	return kit, nil
}

// ListByUser lists kits ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Kit, error) {
	limit, offset = clampPage(limit, offset)
	query := `
SELECT ` + kitColumns + `
FROM application_kits
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Kit, 0)
	for rows.Next() {
		kit, err := scanKit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, kit)
	}
	return out, rows.Err()
}

// Update overwrites the mutable columns of a kit.
func (r *PGRepo) Update(ctx context.Context, kit Kit) error {
	const query = `
UPDATE application_kits
SET job_title = $3, company = $4, status = $5, cover_letter = $6, resume = $7, follow_up_email = $8,
    cover_letter_uri = $9, resume_uri = $10, follow_up_email_uri = $11, updated_at = $12
WHERE id = $1 AND user_id = $2`
	res, err := r.DB.ExecContext(ctx, query,
		kit.ID,
		kit.UserID,
		kit.JobTitle,
		kit.Company,
		string(kit.Status),
		kit.CoverLetter,
		kit.Resume,
		kit.FollowUpEmail,
		kit.Locators.CoverLetter,
		kit.Locators.Resume,
		kit.Locators.FollowUpEmail,
		kit.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a kit. Deleting a missing kit succeeds.
func (r *PGRepo) Delete(ctx context.Context, userID, kitID string) error {
	const query = `DELETE FROM application_kits WHERE id = $1 AND user_id = $2`
	_, err := r.DB.ExecContext(ctx, query, kitID, userID)
	return err
}

// Exists reports whether userID owns kitID.
func (r *PGRepo) Exists(ctx context.Context, userID, kitID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM application_kits WHERE id = $1 AND user_id = $2)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, kitID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ClaimGuest moves every kit owned by guestUserID to userID.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	const query = `UPDATE application_kits SET user_id = $1 WHERE user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, guestUserID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKit(row rowScanner) (Kit, error) {
	var kit Kit
	var status string
	var original []byte
	if err := row.Scan(
		&kit.ID,
		&kit.UserID,
		&kit.JobTitle,
		&kit.Company,
		&status,
		&kit.CoverLetter,
		&kit.Resume,
		&kit.FollowUpEmail,
		&original,
		&kit.Locators.CoverLetter,
		&kit.Locators.Resume,
		&kit.Locators.FollowUpEmail,
		&kit.CreatedAt,
		&kit.UpdatedAt,
	); err != nil {
		return Kit{}, err
	}
	kit.Status = Status(status)
	if len(original) > 0 {
		var in OriginalInput
		if err := json.Unmarshal(original, &in); err != nil {
			return Kit{}, fmt.Errorf("decode original_input: %w", err)
		}
		kit.Original = &in
	}
	return kit, nil
}

func encodeOriginal(in *OriginalInput) (any, error) {
	if in == nil {
		return nil, nil
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode original_input: %w", err)
	}
	return string(payload), nil
}

var (
	_ Repo         = (*PGRepo)(nil)
	_ GuestClaimer = (*PGRepo)(nil)
)

package kits

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores kits in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Kit
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Kit)}
}

// Create stores the kit.
func (r *MemoryRepo) Create(ctx context.Context, kit Kit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[kit.ID] = kit.clone()
	return nil
}

// GetByID returns a kit owned by userID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, kitID string) (Kit, error) {
	if err := ctx.Err(); err != nil {
		return Kit{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kit, ok := r.byID[kitID]
	if !ok || kit.UserID != userID {
		return Kit{}, ErrNotFound
	}
	return kit.clone(), nil
}

// ListByUser returns kits for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Kit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	kits := make([]Kit, 0)
	for _, kit := range r.byID {
		if kit.UserID == userID {
			kits = append(kits, kit.clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(kits, func(i, j int) bool {
		if kits[i].CreatedAt.Equal(kits[j].CreatedAt) {
			return kits[i].ID > kits[j].ID
		}
		return kits[i].CreatedAt.After(kits[j].CreatedAt)
	})
	if offset >= len(kits) {
		return []Kit{}, nil
	}
	end := len(kits)
	if offset+limit < end {
		end = offset + limit
	}
	return kits[offset:end], nil
}

// Update overwrites a stored kit.
func (r *MemoryRepo) Update(ctx context.Context, kit Kit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[kit.ID]
	if !ok || existing.UserID != kit.UserID {
		return ErrNotFound
	}
	kit.CreatedAt = existing.CreatedAt
	r.byID[kit.ID] = kit.clone()
	return nil
}

// Delete removes a kit. Deleting a missing kit succeeds.
func (r *MemoryRepo) Delete(ctx context.Context, userID, kitID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if kit, ok := r.byID[kitID]; ok && kit.UserID == userID {
		delete(r.byID, kitID)
	}
	return nil
}

// Exists reports whether userID owns kitID.
func (r *MemoryRepo) Exists(ctx context.Context, userID, kitID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kit, ok := r.byID[kitID]
	return ok && kit.UserID == userID, nil
}

// ClaimGuest moves every kit owned by guestUserID to userID.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, kit := range r.byID {
		if kit.UserID != guestUserID {
			continue
		}
		kit.UserID = userID
		r.byID[id] = kit
		count++
	}
	return count, nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var (
	_ Repo         = (*MemoryRepo)(nil)
	_ GuestClaimer = (*MemoryRepo)(nil)
)

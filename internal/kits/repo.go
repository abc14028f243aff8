package kits

import "context"

// Repo defines persistence operations for application kits.
type Repo interface {
	Create(ctx context.Context, kit Kit) error
	GetByID(ctx context.Context, userID, kitID string) (Kit, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Kit, error)
	// Update overwrites the mutable columns of an existing kit.
	Update(ctx context.Context, kit Kit) error
	Delete(ctx context.Context, userID, kitID string) error
	Exists(ctx context.Context, userID, kitID string) (bool, error)
}

// GuestClaimer is implemented by repos that can reassign a guest's kits to a
// signed-in user.
type GuestClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error)
}

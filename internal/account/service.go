package account

import (
	"context"
	"errors"
	"strings"

	"applykit-backend/internal/kits"
	"applykit-backend/internal/shared/telemetry"
)

// ErrClaimUnsupported is returned when the kit repo cannot reassign owners.
var ErrClaimUnsupported = errors.New("kits repo does not support claim")

type Service struct {
	Kits kits.Repo
}

type ClaimResult struct {
	MigratedKits int `json:"migratedKits"`
}

func NewService(repo kits.Repo) *Service {
	return &Service{Kits: repo}
}

// ClaimGuest moves kits created under a guest identity to the signed-in user.
// Repeating a claim is a no-op.
// Blobs stay under the guest path; their locators move with the kit.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}
	claimer, ok := s.Kits.(kits.GuestClaimer)
	if !ok {
		return ClaimResult{}, ErrClaimUnsupported
	}
	n, err := claimer.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	if n > 0 {
		telemetry.Info("account.guest_claimed", map[string]any{
			"user_id":       authedUserID,
			"guest_user_id": guestUserID,
			"kits":          n,
		})
	}
	return ClaimResult{MigratedKits: n}, nil
}

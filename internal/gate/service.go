package gate

import (
	"context"
	"time"

	"applykit-backend/internal/shared/metrics"
	"applykit-backend/internal/shared/telemetry"
	"applykit-backend/internal/shared/util"
)

type store interface {
	Get(ctx context.Context, identity string) (UsageRecord, bool, error)
	// Increment atomically bumps the count, creating the record when absent,
	// and returns the post-increment record.
	Increment(ctx context.Context, identity string, now time.Time) (UsageRecord, error)
}

// Service enforces one kit creation per anonymous identity.
type Service struct {
	store store
	now   func() time.Time
}

// NewService constructs a Service with an in-memory store.
func NewService() *Service {
	return &Service{store: newMemoryStore(), now: time.Now}
}

// NewStoreService constructs a Service over a persistent store.
func NewStoreService(s store) *Service {
	return &Service{store: s, now: time.Now}
}

// IdentityFromOrigin hashes a network origin into a gate identity.
func IdentityFromOrigin(origin string) string {
	return util.HashOrigin(origin)
}

// CheckStatus reports whether identity has created a kit. Store failures
// report "not created".
func (s *Service) CheckStatus(ctx context.Context, identity string) Status {
	rec, ok, err := s.store.Get(ctx, identity)
	if err != nil {
		s.failOpen("gate.check_failed", identity, err)
		return Status{}
	}
	if !ok {
		return Status{Verified: true}
	}
	return Status{HasCreated: rec.Count > 0, Count: rec.Count, Verified: true}
}

// RecordCreation counts a creation attempt and allows it only when it is the
// identity's first. Denied attempts are still counted. Store failures allow.
func (s *Service) RecordCreation(ctx context.Context, identity string) Decision {
	rec, err := s.store.Increment(ctx, identity, s.now().UTC())
	if err != nil {
		s.failOpen("gate.record_failed", identity, err)
		return Decision{Allowed: true, Reason: ReasonFailOpen}
	}
	if rec.Count == 1 {
		return Decision{Allowed: true, Reason: ReasonFirstUse}
	}
	metrics.IncGateDenied()
	telemetry.Info("gate.denied", map[string]any{
		"identity": shortHash(identity),
		"count":    rec.Count,
	})
	return Decision{Allowed: false, Reason: ReasonRepeat}
}

func (s *Service) failOpen(event, identity string, err error) {
	metrics.IncGateFailOpen()
	telemetry.Error(event, map[string]any{
		"identity": shortHash(identity),
		"error":    err.Error(),
		"outcome":  string(ReasonFailOpen),
	})
}

func shortHash(identity string) string {
	if len(identity) > 12 {
		return identity[:12]
	}
	return identity
}

package kits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"applykit-backend/internal/shared/metrics"
	"applykit-backend/internal/shared/storage/object"
	"applykit-backend/internal/shared/telemetry"
	"applykit-backend/internal/shared/util"
)

const (
	blobContentType = "text/plain; charset=utf-8"
	defaultURLTTL   = 15 * time.Minute
)

// MirrorQueue schedules a later re-mirror of a kit's blobs.
type MirrorQueue interface {
	EnqueueMirror(ctx context.Context, userID, kitID string) error
}

// Service persists kits and mirrors their documents to the object store.
type Service struct {
	Repo  Repo
	Store object.Store
	// Queue is optional. When nil, failed mirrors are only logged.
	Queue MirrorQueue
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// BlobKey returns the object key of one document of a kit.
func BlobKey(userID, kitID string, field Field) (string, error) {
	user, err := util.SafePathSegment(userID)
	if err != nil {
		return "", fmt.Errorf("%w: user id", ErrInvalidInput)
	}
	kit, err := util.SafePathSegment(kitID)
	if err != nil {
		return "", fmt.Errorf("%w: kit id", ErrInvalidInput)
	}
	return "users/" + user + "/applicationKits/" + kit + "/" + string(field) + ".txt", nil
}

// Create stores a new kit and mirrors its documents. Mirror failures do not
// fail the call.
func (s *Service) Create(ctx context.Context, userID string, in NewKit) (Kit, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Kit{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if in.CoverLetter == "" && in.Resume == "" && in.FollowUpEmail == "" {
		return Kit{}, fmt.Errorf("%w: kit has no content", ErrInvalidInput)
	}
	status, ok := ParseStatus(in.Status)
	if !ok {
		return Kit{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}

	now := s.now()
	kit := Kit{
		ID:            uuid.NewString(),
		UserID:        userID,
		JobTitle:      orDefault(in.JobTitle, DefaultJobTitle),
		Company:       orDefault(in.Company, DefaultCompany),
		Status:        status,
		CoverLetter:   in.CoverLetter,
		Resume:        in.Resume,
		FollowUpEmail: in.FollowUpEmail,
		Original:      in.Original,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Create(ctx, kit); err != nil {
		return Kit{}, fmt.Errorf("create kit: %w", err)
	}
	metrics.IncKitCreated()
	telemetry.Info("kit.created", map[string]any{
		"kit_id":  kit.ID,
		"user_id": userID,
	})

	s.mirrorAndRecord(ctx, &kit, Fields)
	return kit, nil
}

// Get returns a kit owned by userID.
func (s *Service) Get(ctx context.Context, userID, kitID string) (Kit, error) {
	if strings.TrimSpace(userID) == "" {
		return Kit{}, ErrInvalidInput
	}
	if _, err := uuid.Parse(kitID); err != nil {
		return Kit{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, kitID)
}

// List returns kits for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Kit, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Update applies whitelisted changes and re-mirrors changed documents.
func (s *Service) Update(ctx context.Context, userID, kitID string, u Update) (Kit, error) {
	kit, err := s.Get(ctx, userID, kitID)
	if err != nil {
		return Kit{}, err
	}
	if u.Status != nil {
		status, ok := ParseStatus(*u.Status)
		if !ok || strings.TrimSpace(*u.Status) == "" {
			return Kit{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *u.Status)
		}
		kit.Status = status
	}
	if u.JobTitle != nil {
		kit.JobTitle = orDefault(*u.JobTitle, DefaultJobTitle)
	}
	if u.Company != nil {
		kit.Company = orDefault(*u.Company, DefaultCompany)
	}
	var changed []Field
	for _, f := range Fields {
		if v := u.content(f); v != nil && *v != kit.Content(f) {
			kit.setContent(f, *v)
			changed = append(changed, f)
		}
	}
	kit.UpdatedAt = s.now()

	if err := s.Repo.Update(ctx, kit); err != nil {
		return Kit{}, fmt.Errorf("update kit: %w", err)
	}
	if len(changed) > 0 {
		s.mirrorAndRecord(ctx, &kit, changed)
	}
	return kit, nil
}

// Delete removes a kit and its blobs. It is idempotent and reports failure
// only when the record is still present afterwards.
func (s *Service) Delete(ctx context.Context, userID, kitID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, ErrInvalidInput
	}
	if _, err := uuid.Parse(kitID); err != nil {
		return true, nil
	}

	if s.Store != nil {
		s.deleteBlobs(ctx, userID, kitID)
	}

	if err := s.Repo.Delete(ctx, userID, kitID); err != nil {
		telemetry.Error("kit.delete_failed", map[string]any{
			"kit_id": kitID,
			"error":  err.Error(),
		})
	}
	exists, err := s.Repo.Exists(ctx, userID, kitID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrDeleteUnverified, err)
	}
	if exists {
		return false, ErrDeleteUnverified
	}
	telemetry.Info("kit.deleted", map[string]any{"kit_id": kitID, "user_id": userID})
	return true, nil
}

// deleteBlobs removes the blobs under the caller's path and any blob the
// stored locators still reference, such as those written before a guest
// claim moved the kit to another owner.
func (s *Service) deleteBlobs(ctx context.Context, userID, kitID string) {
	keys := map[string]Field{}
	for _, f := range Fields {
		key, err := BlobKey(userID, kitID, f)
		if err != nil {
			telemetry.Warn("kit.blob_key_invalid", map[string]any{
				"kit_id": kitID,
				"field":  string(f),
				"error":  err.Error(),
			})
			continue
		}
		keys[key] = f
	}
	if kit, err := s.Repo.GetByID(ctx, userID, kitID); err == nil {
		for _, f := range Fields {
			if key, ok := keyFromLocator(s.Store, kit.Locators.get(f)); ok {
				keys[key] = f
			}
		}
	}
	for key, f := range keys {
		if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrObjectNotFound) {
			telemetry.Warn("kit.blob_delete_failed", map[string]any{
				"kit_id": kitID,
				"field":  string(f),
				"error":  err.Error(),
			})
		}
	}
}

// keyFromLocator maps a locator produced by store back to its key. Every
// backend qualifies keys with a fixed scheme and bucket prefix.
func keyFromLocator(store object.Store, locator string) (string, bool) {
	if locator == "" {
		return "", false
	}
	const sample = "users"
	prefix, ok := strings.CutSuffix(store.Locator(sample), sample)
	if !ok {
		return "", false
	}
	key, ok := strings.CutPrefix(locator, prefix)
	if !ok || key == "" || store.Locator(key) != locator {
		return "", false
	}
	return key, true
}

// Mirror rewrites every document blob of a stored kit and persists the
// resulting locators.
func (s *Service) Mirror(ctx context.Context, userID, kitID string) error {
	kit, err := s.Get(ctx, userID, kitID)
	if err != nil {
		return err
	}
	before := kit.Locators
	failed := s.mirror(ctx, &kit, Fields)
	if kit.Locators != before {
		if err := s.Repo.Update(ctx, kit); err != nil {
			return fmt.Errorf("save locators: %w", err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d documents", ErrMirrorFailed, len(failed), len(Fields))
	}
	return nil
}

// FileURL returns a time-limited readable URL for one mirrored document.
// Stores without URL support return object.ErrURLUnsupported.
func (s *Service) FileURL(ctx context.Context, userID, kitID string, field Field) (string, error) {
	key, err := s.fileKey(ctx, userID, kitID, field)
	if err != nil {
		return "", err
	}
	return s.Store.URL(ctx, key, defaultURLTTL)
}

// OpenFile streams one document. When the blob is missing the stored text
// is returned instead.
func (s *Service) OpenFile(ctx context.Context, userID, kitID string, field Field) (io.ReadCloser, error) {
	kit, err := s.Get(ctx, userID, kitID)
	if err != nil {
		return nil, err
	}
	content := kit.Content(field)
	if content == "" {
		return nil, ErrNotFound
	}
	if s.Store != nil {
		key, err := BlobKey(userID, kitID, field)
		if err != nil {
			return nil, err
		}
		rc, err := s.Store.Open(ctx, key)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, object.ErrObjectNotFound) {
			return nil, err
		}
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (s *Service) fileKey(ctx context.Context, userID, kitID string, field Field) (string, error) {
	kit, err := s.Get(ctx, userID, kitID)
	if err != nil {
		return "", err
	}
	if kit.Content(field) == "" || kit.Locators.get(field) == "" {
		return "", ErrNotFound
	}
	if s.Store == nil {
		return "", object.ErrURLUnsupported
	}
	return BlobKey(userID, kitID, field)
}

// mirrorAndRecord mirrors fields, saves changed locators, and schedules a
// retry for any failure. Errors are logged, never returned.
func (s *Service) mirrorAndRecord(ctx context.Context, kit *Kit, fields []Field) {
	before := kit.Locators
	failed := s.mirror(ctx, kit, fields)
	if kit.Locators != before {
		if err := s.Repo.Update(ctx, *kit); err != nil {
			telemetry.Error("kit.locators_save_failed", map[string]any{
				"kit_id": kit.ID,
				"error":  err.Error(),
			})
		}
	}
	if len(failed) == 0 || s.Queue == nil {
		return
	}
	if err := s.Queue.EnqueueMirror(ctx, kit.UserID, kit.ID); err != nil {
		telemetry.Error("kit.mirror_enqueue_failed", map[string]any{
			"kit_id": kit.ID,
			"error":  err.Error(),
		})
		return
	}
	telemetry.Info("kit.mirror_enqueued", map[string]any{"kit_id": kit.ID})
}

// mirror writes each non-empty field to the store and updates kit.Locators.
// Fields whose content is now empty have their blob removed.
func (s *Service) mirror(ctx context.Context, kit *Kit, fields []Field) []Field {
	if s.Store == nil {
		return nil
	}
	var failed []Field
	for _, f := range fields {
		key, err := BlobKey(kit.UserID, kit.ID, f)
		if err != nil {
			failed = append(failed, f)
			continue
		}
		content := kit.Content(f)
		if content == "" {
			if kit.Locators.get(f) != "" {
				if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrObjectNotFound) {
					telemetry.Warn("kit.blob_delete_failed", map[string]any{
						"kit_id": kit.ID,
						"field":  string(f),
						"error":  err.Error(),
					})
				}
				kit.Locators.set(f, "")
			}
			continue
		}
		if _, err := s.Store.Put(ctx, key, blobContentType, strings.NewReader(content)); err != nil {
			metrics.IncKitMirrorFailed()
			telemetry.Error("kit.mirror_failed", map[string]any{
				"kit_id": kit.ID,
				"field":  string(f),
				"error":  err.Error(),
			})
			failed = append(failed, f)
			continue
		}
		kit.Locators.set(f, s.Store.Locator(key))
	}
	return failed
}

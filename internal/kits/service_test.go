package kits

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

func mustKey(t *testing.T, userID, kitID string, f Field) string {
	t.Helper()
	key, err := BlobKey(userID, kitID, f)
	require.NoError(t, err)
	return key
}

func TestBlobKey(t *testing.T) {
	key, err := BlobKey("guest:abc", "kit-1", FieldResume)
	require.NoError(t, err)
	assert.Equal(t, "users/guest_abc/applicationKits/kit-1/resume.txt", key)

	_, err = BlobKey("..", "kit-1", FieldResume)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateAppliesDefaultsAndMirrors(t *testing.T) {
	svc, store, queue := newTestService()
	ctx := context.Background()

	kit, err := svc.Create(ctx, testUser, NewKit{
		CoverLetter: "Dear team",
		Resume:      `{"summary":"Engineer"}`,
		Original:    &OriginalInput{CV: "cv", JobDescription: "jd", Formality: "neutral"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, kit.ID)
	assert.Equal(t, DefaultJobTitle, kit.JobTitle)
	assert.Equal(t, DefaultCompany, kit.Company)
	assert.Equal(t, StatusInterested, kit.Status)
	assert.Equal(t, kit.CreatedAt, kit.UpdatedAt)

	body, ok := store.get(mustKey(t, testUser, kit.ID, FieldCoverLetter))
	require.True(t, ok)
	assert.Equal(t, "Dear team", body)
	_, ok = store.get(mustKey(t, testUser, kit.ID, FieldFollowUpEmail))
	assert.False(t, ok, "empty fields are not mirrored")

	assert.Equal(t, "mem://"+mustKey(t, testUser, kit.ID, FieldResume), kit.Locators.Resume)
	assert.Empty(t, kit.Locators.FollowUpEmail)
	assert.Empty(t, queue.sent)

	stored, err := svc.Get(ctx, testUser, kit.ID)
	require.NoError(t, err)
	assert.Equal(t, kit.Locators, stored.Locators)
	require.NotNil(t, stored.Original)
	assert.Equal(t, "jd", stored.Original.JobDescription)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "", NewKit{Resume: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, testUser, NewKit{JobTitle: "Engineer"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, testUser, NewKit{Resume: "x", Status: "Ghosted"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	kit, err := svc.Create(ctx, testUser, NewKit{Resume: "x", Status: "applied"})
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, kit.Status)
}

func TestCreateSurvivesMirrorFailure(t *testing.T) {
	svc, store, queue := newTestService()
	ctx := context.Background()

	// Fail every resume write regardless of kit id.
	failing := &failingResumeStore{fakeStore: store}
	svc.Store = failing

	kit, err := svc.Create(ctx, testUser, NewKit{CoverLetter: "cl", Resume: "r", FollowUpEmail: "fu"})
	require.NoError(t, err)

	assert.Empty(t, kit.Locators.Resume)
	assert.NotEmpty(t, kit.Locators.CoverLetter)
	assert.NotEmpty(t, kit.Locators.FollowUpEmail)
	require.Len(t, queue.sent, 1)
	assert.Equal(t, [2]string{testUser, kit.ID}, queue.sent[0])

	stored, err := svc.Get(ctx, testUser, kit.ID)
	require.NoError(t, err)
	assert.Equal(t, "r", stored.Resume)
}

type failingResumeStore struct {
	*fakeStore
	healed bool
}

func (s *failingResumeStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if !s.healed && len(key) > len("resume.txt") && key[len(key)-len("resume.txt"):] == "resume.txt" {
		s.fakeStore.mu.Lock()
		s.fakeStore.failPut[key] = true
		s.fakeStore.mu.Unlock()
	}
	return s.fakeStore.Put(ctx, key, contentType, r)
}

func TestMirrorRepairsMissingBlobs(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	failing := &failingResumeStore{fakeStore: store}
	svc.Store = failing

	kit, err := svc.Create(ctx, testUser, NewKit{Resume: "r"})
	require.NoError(t, err)
	require.Empty(t, kit.Locators.Resume)

	err = svc.Mirror(ctx, testUser, kit.ID)
	assert.ErrorIs(t, err, ErrMirrorFailed)

	failing.healed = true
	store.mu.Lock()
	store.failPut = map[string]bool{}
	store.mu.Unlock()

	require.NoError(t, svc.Mirror(ctx, testUser, kit.ID))
	stored, err := svc.Get(ctx, testUser, kit.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Locators.Resume)
	body, ok := store.get(mustKey(t, testUser, kit.ID, FieldResume))
	require.True(t, ok)
	assert.Equal(t, "r", body)
}

func TestGetIsScopedToOwner(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	kit, err := svc.Create(ctx, testUser, NewKit{Resume: "r"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "user-2", kit.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, testUser, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"first", "second", "third"} {
		kit, err := svc.Create(ctx, testUser, NewKit{JobTitle: title, Resume: "r"})
		require.NoError(t, err)
		ids = append(ids, kit.ID)
	}
	_, err := svc.Create(ctx, "user-2", NewKit{Resume: "other"})
	require.NoError(t, err)

	kits, err := svc.List(ctx, testUser, 0, 0)
	require.NoError(t, err)
	require.Len(t, kits, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{kits[0].ID, kits[1].ID, kits[2].ID})

	page, err := svc.List(ctx, testUser, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestUpdateWhitelistedFields(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	kit, err := svc.Create(ctx, testUser, NewKit{CoverLetter: "old", Resume: "r"})
	require.NoError(t, err)

	status := "Interview"
	letter := "new letter"
	blank := ""
	updated, err := svc.Update(ctx, testUser, kit.ID, Update{Status: &status, CoverLetter: &letter, Company: &blank})
	require.NoError(t, err)

	assert.Equal(t, StatusInterview, updated.Status)
	assert.Equal(t, DefaultCompany, updated.Company)
	assert.True(t, updated.UpdatedAt.After(kit.UpdatedAt))
	assert.Equal(t, kit.CreatedAt, updated.CreatedAt)
	body, _ := store.get(mustKey(t, testUser, kit.ID, FieldCoverLetter))
	assert.Equal(t, "new letter", body)

	noop, err := svc.Update(ctx, testUser, kit.ID, Update{})
	require.NoError(t, err)
	assert.True(t, noop.UpdatedAt.After(updated.UpdatedAt))

	bad := "Ghosted"
	_, err = svc.Update(ctx, testUser, kit.ID, Update{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, testUser, kit.ID, Update{CoverLetter: &blank})
	require.NoError(t, err)
	_, ok := store.get(mustKey(t, testUser, kit.ID, FieldCoverLetter))
	assert.False(t, ok, "cleared content removes the blob")
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	kit, err := svc.Create(ctx, testUser, NewKit{CoverLetter: "cl", Resume: "r", FollowUpEmail: "fu"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, testUser, kit.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	for _, f := range Fields {
		_, ok := store.get(mustKey(t, testUser, kit.ID, f))
		assert.False(t, ok)
	}
	_, err = svc.Get(ctx, testUser, kit.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err = svc.Delete(ctx, testUser, kit.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestDeleteReportsSurvivingRecord(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Repo = stickyRepo{MemoryRepo: NewMemoryRepo()}
	ctx := context.Background()
	kit, err := svc.Create(ctx, testUser, NewKit{Resume: "r"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, testUser, kit.ID)
	assert.False(t, deleted)
	assert.ErrorIs(t, err, ErrDeleteUnverified)
}

func TestDeleteAfterClaimRemovesGuestBlobs(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	const guest = "guest:7c9e6679-7425-40de-944b-e07fc1f90ae7"
	kit, err := svc.Create(ctx, guest, NewKit{CoverLetter: "cl", Resume: "r", FollowUpEmail: "fu"})
	require.NoError(t, err)
	n, err := svc.Repo.(GuestClaimer).ClaimGuest(ctx, guest, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	deleted, err := svc.Delete(ctx, testUser, kit.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	for _, f := range Fields {
		_, ok := store.get(mustKey(t, guest, kit.ID, f))
		assert.False(t, ok, "guest blob %s left behind", f)
	}
}

func TestDeleteSkipsUnsafeBlobKeys(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	kit, err := svc.Create(ctx, "a..b", NewKit{Resume: "r"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, "a..b", kit.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = svc.Get(ctx, "a..b", kit.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyFromLocator(t *testing.T) {
	store := newFakeStore()
	key, ok := keyFromLocator(store, "mem://users/u/applicationKits/k/resume.txt")
	assert.True(t, ok)
	assert.Equal(t, "users/u/applicationKits/k/resume.txt", key)

	_, ok = keyFromLocator(store, "s3://other-bucket/users/u/resume.txt")
	assert.False(t, ok)
	_, ok = keyFromLocator(store, "")
	assert.False(t, ok)
}

func TestOpenFileFallsBackToStoredText(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	kit, err := svc.Create(ctx, testUser, NewKit{Resume: "resume text"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, mustKey(t, testUser, kit.ID, FieldResume)))

	rc, err := svc.OpenFile(ctx, testUser, kit.ID, FieldResume)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "resume text", string(data))

	_, err = svc.OpenFile(ctx, testUser, kit.ID, FieldCoverLetter)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileURL(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	kit, err := svc.Create(ctx, testUser, NewKit{Resume: "r"})
	require.NoError(t, err)

	url, err := svc.FileURL(ctx, testUser, kit.ID, FieldResume)
	require.NoError(t, err)
	assert.Contains(t, url, mustKey(t, testUser, kit.ID, FieldResume))

	_, err = svc.FileURL(ctx, testUser, kit.ID, FieldFollowUpEmail)
	assert.ErrorIs(t, err, ErrNotFound)

	store.noURL = true
	_, err = svc.FileURL(ctx, testUser, kit.ID, FieldResume)
	assert.Error(t, err)
}

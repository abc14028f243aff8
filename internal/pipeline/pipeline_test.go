package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applykit-backend/internal/gate"
	"applykit-backend/internal/generation"
	"applykit-backend/internal/jobmeta"
	"applykit-backend/internal/kits"
)

type stubExtractor struct {
	md    jobmeta.Metadata
	err   error
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, jd string) (jobmeta.Metadata, error) {
	s.calls++
	return s.md, s.err
}

type stubGenerator struct {
	content generation.Content
	err     error
	calls   int
}

func (s *stubGenerator) Generate(ctx context.Context, in generation.Input) (generation.Content, error) {
	s.calls++
	return s.content, s.err
}

type failingRepo struct {
	*kits.MemoryRepo
}

func (failingRepo) Create(ctx context.Context, kit kits.Kit) error {
	return errors.New("db down")
}

type fixture struct {
	svc  *Service
	gate *gate.Service
	ext  *stubExtractor
	gen  *stubGenerator
	kits *kits.Service
}

func newFixture() *fixture {
	g := gate.NewService()
	ext := &stubExtractor{md: jobmeta.Metadata{JobTitle: "Backend Engineer", Company: "Acme"}}
	gen := &stubGenerator{content: generation.Content{
		Resume:        `{"summary":"Go developer"}`,
		CoverLetter:   "Dear Acme",
		FollowUpEmail: "Following up",
	}}
	ks := &kits.Service{Repo: kits.NewMemoryRepo()}
	return &fixture{
		svc:  &Service{Gate: g, Extractor: ext, Generator: gen, Kits: ks},
		gate: g, ext: ext, gen: gen, kits: ks,
	}
}

func anonRequest(identity string) Request {
	return Request{
		UserID:   "anon:" + identity,
		Identity: identity,
		Input:    generation.Input{CV: "cv", JobDescription: "jd", Formality: generation.Formal},
	}
}

func TestRunPersistsKit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	kit, err := f.svc.Run(ctx, anonRequest("id-1"))
	require.NoError(t, err)

	assert.Equal(t, "Backend Engineer", kit.JobTitle)
	assert.Equal(t, "Acme", kit.Company)
	assert.Equal(t, "Dear Acme", kit.CoverLetter)
	require.NotNil(t, kit.Original)
	assert.Equal(t, "formal", kit.Original.Formality)

	stored, err := f.kits.Get(ctx, "anon:id-1", kit.ID)
	require.NoError(t, err)
	assert.Equal(t, kit.ID, stored.ID)
	assert.True(t, f.gate.CheckStatus(ctx, "id-1").HasCreated)
}

func TestRunBlocksSecondAnonymousKit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Run(ctx, anonRequest("id-2"))
	require.NoError(t, err)

	_, err = f.svc.Run(ctx, anonRequest("id-2"))
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, 1, f.gen.calls, "blocked callers never reach generation")
}

func TestRunAuthenticatedBypassesGate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := anonRequest("id-3")
	req.Authenticated = true
	req.UserID = "user-3"

	for i := 0; i < 3; i++ {
		_, err := f.svc.Run(ctx, req)
		require.NoError(t, err)
	}
	assert.Zero(t, f.gate.CheckStatus(ctx, "id-3").Count)
}

func TestRunGenerationFailureDoesNotConsumeQuota(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.gen.err = &generation.GenerationError{Channel: generation.ChannelCoverLetter, Err: errors.New("timeout")}

	_, err := f.svc.Run(ctx, anonRequest("id-4"))
	var genErr *generation.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.False(t, f.gate.CheckStatus(ctx, "id-4").HasCreated)

	kitsList, err := f.kits.List(ctx, "anon:id-4", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, kitsList, "nothing is persisted when generation fails")
}

func TestRunExtractionFailure(t *testing.T) {
	f := newFixture()
	f.ext.err = &jobmeta.ExtractionError{Reason: "missing company"}

	_, err := f.svc.Run(context.Background(), anonRequest("id-5"))
	assert.ErrorIs(t, err, jobmeta.ErrExtraction)
	assert.Zero(t, f.gen.calls)
}

func TestRunSaveFailure(t *testing.T) {
	f := newFixture()
	f.kits.Repo = failingRepo{MemoryRepo: kits.NewMemoryRepo()}

	_, err := f.svc.Run(context.Background(), anonRequest("id-6"))
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.False(t, f.gate.CheckStatus(context.Background(), "id-6").HasCreated, "a failed save keeps the kit available")
}

// lateDenyGate passes the status check and then loses the recording race.
type lateDenyGate struct{}

func (lateDenyGate) CheckStatus(ctx context.Context, identity string) gate.Status {
	return gate.Status{}
}

func (lateDenyGate) RecordCreation(ctx context.Context, identity string) gate.Decision {
	return gate.Decision{Allowed: false, Reason: gate.ReasonRepeat}
}

func TestRunRemovesKitWhenGateDeniesAfterSave(t *testing.T) {
	f := newFixture()
	f.svc.Gate = lateDenyGate{}
	ctx := context.Background()

	_, err := f.svc.Run(ctx, anonRequest("id-8"))
	assert.ErrorIs(t, err, ErrLoginRequired)

	kitsList, err := f.kits.List(ctx, "anon:id-8", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, kitsList)
}

func TestRunRejectsEmptyInput(t *testing.T) {
	f := newFixture()
	req := anonRequest("id-7")
	req.Input.CV = "  "

	_, err := f.svc.Run(context.Background(), req)
	assert.ErrorIs(t, err, generation.ErrInvalidInput)
	assert.Zero(t, f.ext.calls)
}

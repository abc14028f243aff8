package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"applykit-backend/internal/gate"
	"applykit-backend/internal/generation"
	"applykit-backend/internal/jobmeta"
	"applykit-backend/internal/kits"
	"applykit-backend/internal/shared/telemetry"
)

var (
	// ErrLoginRequired means the anonymous caller already used their kit.
	ErrLoginRequired = errors.New("login required")
	// ErrSaveFailed means content was generated but could not be persisted.
	ErrSaveFailed = errors.New("save failed")
)

// Gate decides whether an anonymous identity may create a kit.
type Gate interface {
	CheckStatus(ctx context.Context, identity string) gate.Status
	RecordCreation(ctx context.Context, identity string) gate.Decision
}

// MetadataExtractor reads job title and company from a description.
type MetadataExtractor interface {
	Extract(ctx context.Context, jobDescription string) (jobmeta.Metadata, error)
}

// Generator produces the three kit documents.
type Generator interface {
	Generate(ctx context.Context, in generation.Input) (generation.Content, error)
}

// KitCreator persists a kit and removes it again when the gate refuses it.
type KitCreator interface {
	Create(ctx context.Context, userID string, in kits.NewKit) (kits.Kit, error)
	Delete(ctx context.Context, userID, kitID string) (bool, error)
}

// Service runs the full kit creation flow.
type Service struct {
	Gate      Gate
	Extractor MetadataExtractor
	Generator Generator
	Kits      KitCreator
}

// Request identifies the caller and carries the generation input.
type Request struct {
	UserID        string
	Identity      string
	Authenticated bool
	Input         generation.Input
}

// Run checks the gate, extracts metadata, generates, and persists. The
// anonymous creation is only counted once the kit is saved, so a failed
// generation or save does not use up the caller's kit. A caller that loses a
// concurrent race for its single kit gets its saved kit removed again.
func (s *Service) Run(ctx context.Context, req Request) (kits.Kit, error) {
	if strings.TrimSpace(req.Input.CV) == "" || strings.TrimSpace(req.Input.JobDescription) == "" {
		return kits.Kit{}, fmt.Errorf("%w: cv and jobDescription are required", generation.ErrInvalidInput)
	}
	anonymous := !req.Authenticated
	if anonymous && s.Gate.CheckStatus(ctx, req.Identity).HasCreated {
		return kits.Kit{}, ErrLoginRequired
	}

	md, err := s.Extractor.Extract(ctx, req.Input.JobDescription)
	if err != nil {
		return kits.Kit{}, err
	}

	content, err := s.Generator.Generate(ctx, req.Input)
	if err != nil {
		return kits.Kit{}, err
	}

	kit, err := s.Kits.Create(ctx, req.UserID, kits.NewKit{
		JobTitle:      md.JobTitle,
		Company:       md.Company,
		CoverLetter:   content.CoverLetter,
		Resume:        content.Resume,
		FollowUpEmail: content.FollowUpEmail,
		Original: &kits.OriginalInput{
			CV:             req.Input.CV,
			JobDescription: req.Input.JobDescription,
			Formality:      req.Input.Formality.String(),
		},
	})
	if err != nil {
		telemetry.Error("pipeline.save_failed", map[string]any{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		return kits.Kit{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if anonymous {
		if d := s.Gate.RecordCreation(ctx, req.Identity); !d.Allowed {
			if _, err := s.Kits.Delete(ctx, req.UserID, kit.ID); err != nil {
				telemetry.Error("pipeline.rollback_failed", map[string]any{
					"kit_id": kit.ID,
					"error":  err.Error(),
				})
			}
			return kits.Kit{}, ErrLoginRequired
		}
	}
	return kit, nil
}

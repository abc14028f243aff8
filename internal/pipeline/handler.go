package pipeline

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/gate"
	"applykit-backend/internal/generation"
	"applykit-backend/internal/jobmeta"
	"applykit-backend/internal/kits"
	"applykit-backend/internal/shared/server/middleware"
	"applykit-backend/internal/shared/server/respond"
)

// Handler exposes the one-shot kit generation endpoint.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches pipeline routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/application-kits/generate", h.generate)
}

func (h *Handler) generate(c *gin.Context) {
	var in generation.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "cv, jobDescription and formality are required", nil)
		return
	}

	kit, err := h.Svc.Run(c.Request.Context(), Request{
		UserID:        middleware.UserIDFromContext(c),
		Identity:      gate.IdentityFromContext(c),
		Authenticated: middleware.IsAuthenticated(c),
		Input:         in,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("kitId", kit.ID)
	respond.Created(c, kits.ToResponse(kit))
}

func writeError(c *gin.Context, err error) {
	var genErr *generation.GenerationError
	switch {
	case errors.Is(err, ErrLoginRequired):
		respond.Error(c, http.StatusForbidden, "login_required", "You have already created your free application kit. Please sign in to create more.", nil)
	case errors.Is(err, jobmeta.ErrInvalidInput), errors.Is(err, jobmeta.ErrExtraction):
		jobmeta.WriteError(c, err)
	case errors.As(err, &genErr), errors.Is(err, generation.ErrInvalidInput):
		generation.WriteError(c, err)
	case errors.Is(err, ErrSaveFailed):
		respond.Error(c, http.StatusInternalServerError, "save_failed", "Your documents were generated but could not be saved. Please try again.", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
	}
}

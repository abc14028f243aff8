package generation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/shared/server/middleware"
	"applykit-backend/internal/shared/server/respond"
)

// Handler exposes the orchestrator over HTTP.
type Handler struct {
	Orchestrator *Orchestrator
}

// NewHandler constructs a Handler.
func NewHandler(o *Orchestrator) *Handler {
	return &Handler{Orchestrator: o}
}

// RegisterRoutes attaches generation routes. Raw generation is for signed-in
// callers; anonymous callers go through the gated kit pipeline.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", middleware.RequireAuth(), h.generate)
}

type generateResponse struct {
	Result        string `json:"result"`
	Resume        string `json:"resume"`
	FollowUpEmail string `json:"followUpEmail"`
}

func (h *Handler) generate(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "cv, jobDescription and formality are required", nil)
		return
	}

	content, err := h.Orchestrator.Generate(c.Request.Context(), in)
	if err != nil {
		WriteError(c, err)
		return
	}

	respond.OK(c, generateResponse{
		Result:        content.CoverLetter,
		Resume:        content.Resume,
		FollowUpEmail: content.FollowUpEmail,
	})
}

// WriteError maps orchestrator errors onto HTTP responses.
func WriteError(c *gin.Context, err error) {
	var genErr *GenerationError
	switch {
	case errors.As(err, &genErr):
		c.Set("generationChannel", string(genErr.Channel))
		respond.Error(c, http.StatusBadGateway, "generation_failed", "We could not generate your documents. Please try again.", gin.H{
			"channel": string(genErr.Channel),
		})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
	}
}

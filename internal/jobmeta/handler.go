package jobmeta

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/shared/server/respond"
)

// Handler exposes the extractor over HTTP.
type Handler struct {
	Extractor *Extractor
}

// NewHandler constructs a Handler.
func NewHandler(e *Extractor) *Handler {
	return &Handler{Extractor: e}
}

// RegisterRoutes attaches the job-metadata route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/job-metadata", h.extract)
}

type extractRequest struct {
	JobDescription string `json:"jobDescription"`
}

func (h *Handler) extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "jobDescription is required", nil)
		return
	}

	md, err := h.Extractor.Extract(c.Request.Context(), req.JobDescription)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, md)
}

// WriteError maps extractor errors onto HTTP responses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "invalid_request", "jobDescription is required", nil)
	case errors.Is(err, ErrExtraction):
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "We could not read the job title and company from this description.", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
	}
}

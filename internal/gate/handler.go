package gate

import (
	"github.com/gin-gonic/gin"

	"applykit-backend/internal/shared/server/middleware"
	"applykit-backend/internal/shared/server/respond"
)

// Handler exposes the anonymous usage gate.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches gate routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/anonymous-usage", h.status)
	rg.POST("/anonymous-usage", h.record)
}

// IdentityFromContext hashes the caller's network origin.
func IdentityFromContext(c *gin.Context) string {
	return IdentityFromOrigin(middleware.OriginFromContext(c))
}

func (h *Handler) status(c *gin.Context) {
	if middleware.IsAuthenticated(c) {
		respond.OK(c, Status{})
		return
	}
	respond.OK(c, h.Svc.CheckStatus(c.Request.Context(), IdentityFromContext(c)))
}

func (h *Handler) record(c *gin.Context) {
	if middleware.IsAuthenticated(c) {
		respond.OK(c, Decision{Allowed: true, Reason: ReasonAuthenticated})
		return
	}
	respond.OK(c, h.Svc.RecordCreation(c.Request.Context(), IdentityFromContext(c)))
}

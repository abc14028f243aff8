package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"applykit-backend/internal/shared/server/middleware"
	"applykit-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches account routes. Only signed-in callers can claim.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/account/claim-guest", middleware.RequireAuth(), h.claimGuest)
}

// claimGuest moves the kits of the guest named in X-Guest-Id to the caller.
func (h *Handler) claimGuest(c *gin.Context) {
	guestUserID, ok := guestFromHeader(c)
	if !ok {
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), guestUserID, middleware.UserIDFromContext(c))
	switch {
	case errors.Is(err, ErrClaimUnsupported):
		respond.Error(c, http.StatusNotImplemented, "not_implemented", "guest claim is not available on this deployment", nil)
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "claim_failed", "failed to claim guest kits", nil)
	default:
		respond.OK(c, result)
	}
}

// guestFromHeader returns the canonical guest owner id for X-Guest-Id, or
// writes a 400 and reports false.
func guestFromHeader(c *gin.Context) (string, bool) {
	raw := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
	issue := "required"
	if raw != "" {
		parsed, err := uuid.Parse(raw)
		if err == nil {
			return "guest:" + parsed.String(), true
		}
		issue = "invalid"
	}
	respond.Error(c, http.StatusBadRequest, "validation_error", "X-Guest-Id must be the guest's UUID", []map[string]string{
		{"field": "X-Guest-Id", "issue": issue},
	})
	return "", false
}

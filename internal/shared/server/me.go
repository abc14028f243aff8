package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/shared/server/middleware"
	"applykit-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID        string `json:"userId"`
	Authenticated bool   `json:"authenticated"`
	// Kind is "user", "guest" (X-Guest-Id), or "anonymous" (network origin).
	Kind  string `json:"kind"`
	Email string `json:"email,omitempty"`
}

func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

// meHandler tells the web client who the API thinks it is talking to, so it
// knows whether kits it creates will survive a sign-in claim.
func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	resp := meResponse{
		UserID:        userID,
		Authenticated: middleware.IsAuthenticated(c),
		Email:         middleware.UserEmailFromContext(c),
	}
	switch {
	case resp.Authenticated:
		resp.Kind = "user"
	case strings.HasPrefix(userID, "guest:"):
		resp.Kind = "guest"
	default:
		resp.Kind = "anonymous"
	}
	respond.OK(c, resp)
}

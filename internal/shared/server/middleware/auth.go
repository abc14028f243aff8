package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"applykit-backend/internal/shared/auth"
	"applykit-backend/internal/shared/server/respond"
	"applykit-backend/internal/shared/util"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	isGuestKey   = "isGuest"
	originKey    = "networkOrigin"
)

// Auth resolves the caller. A valid bearer token marks the caller as
// authenticated; without one the caller is anonymous and keyed by the
// X-Guest-Id header (a UUID) or, failing that, by a hash of the network origin.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		origin := NetworkOrigin(c)
		c.Set(originKey, origin)

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(userIDKey, claims.Subject)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		if guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id")); guestID != "" {
			parsed, err := uuid.Parse(guestID)
			if err != nil {
				respond.Error(c, http.StatusBadRequest, "validation_error", "invalid guest id", []map[string]string{
					{"field": "X-Guest-Id", "issue": "invalid"},
				})
				return
			}
			c.Set(userIDKey, "guest:"+parsed.String())
		} else {
			c.Set(userIDKey, "anon:"+util.HashOrigin(origin))
		}
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// RequireAuth rejects callers that did not present a valid bearer token.
// It must run after Auth.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Please sign in to continue.", nil)
			return
		}
		c.Next()
	}
}

// NetworkOrigin resolves the caller address: the first X-Forwarded-For entry,
// then X-Real-IP, then the socket peer.
func NetworkOrigin(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.GetHeader("X-Real-IP")); real != "" {
		return real
	}
	return c.ClientIP()
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// IsAuthenticated reports whether the caller presented a valid bearer token.
func IsAuthenticated(c *gin.Context) bool {
	if c == nil {
		return false
	}
	val, ok := c.Get(isGuestKey)
	if !ok {
		return false
	}
	guest, _ := val.(bool)
	return !guest
}

// OriginFromContext returns the network origin captured by Auth.
func OriginFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if val, ok := c.Get(originKey); ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return NetworkOrigin(c)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applykit-backend/internal/generation"
	"applykit-backend/internal/kits"
	"applykit-backend/internal/services/health"
	"applykit-backend/internal/shared/auth"
	"applykit-backend/internal/shared/config"
)

func newTestRouter(t *testing.T, hs *health.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{
		Config:            config.Config{Env: "test", CORSAllowOrigin: []string{"http://localhost:5173"}},
		Health:            hs,
		KitsHandler:       kits.NewHandler(&kits.Service{Repo: kits.NewMemoryRepo()}),
		GenerationHandler: generation.NewHandler(generation.NewOrchestrator(nil)),
	})
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	t.Setenv("ENV", "dev")
	t.Setenv("JWT_SECRET", "router-secret")
	token, err := auth.SignJWT(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: subject}})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthReportsDependencyFailure(t *testing.T) {
	hs := health.NewService()
	hs.Register("postgres", func(context.Context) error { return errors.New("connection refused") })
	router := newTestRouter(t, hs)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "connection refused")
}

func TestMeReportsGuestIdentity(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "guest:3f2504e0-4f89-11d3-9a0c-0305e82c3301", body["userId"])
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, "guest", body["kind"])
}

func TestMeReportsCallerKind(t *testing.T) {
	router := newTestRouter(t, nil)

	signedIn := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	signedIn.Header.Set("Authorization", bearer(t, "user-9"))
	anonymous := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)

	for want, req := range map[string]*http.Request{"user": signedIn, "anonymous": anonymous} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, want, body["kind"])
	}
}

func TestKitRoutesScopedByCaller(t *testing.T) {
	router := newTestRouter(t, nil)

	create := httptest.NewRequest(http.MethodPost, "/api/v1/application-kits",
		strings.NewReader(`{"jobTitle":"Engineer","company":"Acme","coverLetter":"Dear team"}`))
	create.Header.Set("Content-Type", "application/json")
	create.Header.Set("Authorization", bearer(t, "owner"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, create)
	require.Equal(t, http.StatusCreated, resp.Code)

	var kit map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &kit))
	id, _ := kit["id"].(string)
	require.NotEmpty(t, id)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/application-kits/"+id, nil)
	get.Header.Set("Authorization", bearer(t, "someone-else"))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, get)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDirectCreateAndGenerateRequireSignIn(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{"/api/v1/application-kits", "/api/v1/generate"} {
		for name, guest := range map[string]string{"guest": "3f2504e0-4f89-11d3-9a0c-0305e82c3301", "anonymous": ""} {
			req := httptest.NewRequest(http.MethodPost, path,
				strings.NewReader(`{"cv":"Go dev","jobDescription":"Go role","coverLetter":"Dear team"}`))
			req.Header.Set("Content-Type", "application/json")
			if guest != "" {
				req.Header.Set("X-Guest-Id", guest)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			assert.Equal(t, http.StatusUnauthorized, resp.Code, "%s POST %s", name, path)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "generation_started_total")
}

func TestAddr(t *testing.T) {
	tests := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range tests {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}

package generation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/llm"
	"applykit-backend/internal/shared/server/middleware"
)

func newTestRouter(fake *fakeCompleter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("isGuest", false)
		c.Next()
	})
	NewHandler(NewOrchestrator(fake)).RegisterRoutes(api)
	return r
}

func TestGenerateHandlerRequiresSignIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := newFakeCompleter()
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(NewOrchestrator(fake)).RegisterRoutes(api)

	body := []byte(`{"cv":"Go dev","jobDescription":"Go role"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.Code, resp.Body.String())
	}
	fake.mu.Lock()
	calls := len(fake.requests)
	fake.mu.Unlock()
	if calls != 0 {
		t.Fatalf("expected no model calls, got %d", calls)
	}
}

func TestGenerateHandlerSuccess(t *testing.T) {
	r := newTestRouter(newFakeCompleter())

	body := []byte(`{"cv":"Go dev","jobDescription":"Go role","formality":"professional"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["result"] != "Dear hiring team," {
		t.Fatalf("expected cover letter in result, got %q", got["result"])
	}
	if got["resume"] == "" || got["followUpEmail"] == "" {
		t.Fatalf("expected resume and followUpEmail, got %v", got)
	}
}

func TestGenerateHandlerFailureNamesChannel(t *testing.T) {
	fake := newFakeCompleter()
	fake.errs["followUpEmail"] = &llm.HTTPError{StatusCode: 500, Message: "boom"}
	r := newTestRouter(fake)

	body := []byte(`{"cv":"Go dev","jobDescription":"Go role"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	var got struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error.Code != "generation_failed" || got.Error.Details["channel"] != "followUpEmail" {
		t.Fatalf("unexpected error body %+v", got.Error)
	}
}

func TestGenerateHandlerRejectsBadFormality(t *testing.T) {
	r := newTestRouter(newFakeCompleter())

	body := []byte(`{"cv":"a","jobDescription":"b","formality":"snarky"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

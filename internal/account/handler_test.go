package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/kits"
)

func newRouter(repo kits.Repo, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("isGuest", guest)
		c.Next()
	})
	NewHandler(NewService(repo)).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func seedKit(t *testing.T, repo *kits.MemoryRepo, id, userID string) {
	t.Helper()
	now := time.Now().UTC()
	kit := kits.Kit{
		ID: id, UserID: userID, JobTitle: "Engineer", Company: "Acme",
		Status: kits.StatusInterested, CoverLetter: "Dear team",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), kit); err != nil {
		t.Fatalf("create kit: %v", err)
	}
}

func TestClaimGuestMigratesKits(t *testing.T) {
	repo := kits.NewMemoryRepo()
	guestID := "11111111-1111-1111-1111-111111111111"
	seedKit(t, repo, "kit-1", "guest:"+guestID)
	seedKit(t, repo, "kit-2", "guest:someone-else")

	router := newRouter(repo, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedKits != 1 {
		t.Fatalf("expected 1 migrated kit, got %d", result.MigratedKits)
	}

	list, err := repo.ListByUser(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("list kits: %v", err)
	}
	if len(list) != 1 || list[0].ID != "kit-1" {
		t.Fatalf("unexpected kits for user: %+v", list)
	}
}

func TestClaimGuestIdempotent(t *testing.T) {
	repo := kits.NewMemoryRepo()
	guestID := "22222222-2222-2222-2222-222222222222"
	seedKit(t, repo, "kit-1", "guest:"+guestID)
	router := newRouter(repo, false)

	for i, want := range []int{1, 0} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
		req.Header.Set("X-Guest-Id", guestID)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("call %d: expected status 200, got %d", i, resp.Code)
		}
		var result ClaimResult
		if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.MigratedKits != want {
			t.Fatalf("call %d: expected %d migrated, got %d", i, want, result.MigratedKits)
		}
	}
}

func TestClaimGuestValidation(t *testing.T) {
	tests := []struct {
		name   string
		guest  bool
		header string
		status int
	}{
		{name: "anonymous caller", guest: true, header: "11111111-1111-1111-1111-111111111111", status: http.StatusUnauthorized},
		{name: "missing header", status: http.StatusBadRequest},
		{name: "invalid guest id", header: "not-a-uuid", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(kits.NewMemoryRepo(), tt.guest)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
			if tt.header != "" {
				req.Header.Set("X-Guest-Id", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

type plainRepo struct{ kits.Repo }

func TestClaimGuestCanonicalizesHeader(t *testing.T) {
	repo := kits.NewMemoryRepo()
	seedKit(t, repo, "kit-1", "guest:7c9e6679-7425-40de-944b-e07fc1f90ae7")
	router := newRouter(repo, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", "7C9E6679-7425-40DE-944B-E07FC1F90AE7")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != http.StatusOK || result.MigratedKits != 1 {
		t.Fatalf("expected upper-case id to claim 1 kit, got %d %+v", resp.Code, result)
	}
}

func TestClaimGuestUnsupportedRepoOverHTTP(t *testing.T) {
	router := newRouter(plainRepo{}, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.Code)
	}
}

func TestClaimGuestUnsupportedRepo(t *testing.T) {
	svc := NewService(plainRepo{})
	if _, err := svc.ClaimGuest(context.Background(), "guest:a", "user-1"); err != ErrClaimUnsupported {
		t.Fatalf("expected ErrClaimUnsupported, got %v", err)
	}
}

package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"applykit-backend/internal/shared/storage/object"
)

func TestPutOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())
	key := "users/u1/applicationKits/k1/resume.txt"

	n, err := store.Put(ctx, key, "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}

	if _, err := store.Put(ctx, key, "text/plain", strings.NewReader("updated")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "updated" {
		t.Fatalf("unexpected body %q", body)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, object.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound on second delete, got %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound on open, got %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Put(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x"))
	if !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestLocatorAndURL(t *testing.T) {
	store := New(t.TempDir())
	if got := store.Locator("users/u1/a.txt"); got != "local://users/u1/a.txt" {
		t.Fatalf("unexpected locator %q", got)
	}
	if _, err := store.URL(context.Background(), "users/u1/a.txt", 0); !errors.Is(err, object.ErrURLUnsupported) {
		t.Fatalf("expected ErrURLUnsupported, got %v", err)
	}
}

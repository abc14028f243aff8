package kits

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"applykit-backend/internal/shared/storage/object"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut map[string]bool
	noURL   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, failPut: map[string]bool{}}
}

func (s *fakeStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut[key] {
		return 0, errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.objects[key] = data
	return int64(len(data)), nil
}

func (s *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, object.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return object.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) Locator(key string) string { return "mem://" + key }

func (s *fakeStore) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.noURL {
		return "", object.ErrURLUnsupported
	}
	return "https://blobs.example.com/" + key + "?ttl=" + ttl.String(), nil
}

func (s *fakeStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return string(data), ok
}

type fakeQueue struct {
	mu   sync.Mutex
	sent [][2]string
	err  error
}

func (q *fakeQueue) EnqueueMirror(ctx context.Context, userID, kitID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, [2]string{userID, kitID})
	return q.err
}

// stickyRepo ignores deletes so the record survives.
type stickyRepo struct {
	*MemoryRepo
}

func (stickyRepo) Delete(ctx context.Context, userID, kitID string) error {
	return errors.New("replica lag")
}

type clock struct {
	t time.Time
}

func (c *clock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService() (*Service, *fakeStore, *fakeQueue) {
	store := newFakeStore()
	queue := &fakeQueue{}
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return &Service{Repo: NewMemoryRepo(), Store: store, Queue: queue, Now: c.Now}, store, queue
}

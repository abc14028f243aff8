package gate

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]UsageRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]UsageRecord)}
}

func (m *memoryStore) Get(ctx context.Context, identity string) (UsageRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return UsageRecord{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.data[identity]
	return rec, ok, nil
}

func (m *memoryStore) Increment(ctx context.Context, identity string, now time.Time) (UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return UsageRecord{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.data[identity]
	if !ok {
		rec = UsageRecord{IdentityHash: identity, FirstAccess: now}
	}
	rec.Count++
	rec.LastAccess = now
	m.data[identity] = rec
	return rec, nil
}

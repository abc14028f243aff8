package gate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyIdentity = "app:gate:identity:%s"

const (
	fieldCount       = "count"
	fieldFirstAccess = "first_access"
	fieldLastAccess  = "last_access"
)

type redisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed gate store. A zero ttl keeps
// records forever.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *redisStore {
	return &redisStore{client: client, ttl: ttl}
}

func identityKey(identity string) string {
	return fmt.Sprintf(keyIdentity, identity)
}

func (s *redisStore) Get(ctx context.Context, identity string) (UsageRecord, bool, error) {
	vals, err := s.client.HGetAll(ctx, identityKey(identity)).Result()
	if err != nil {
		return UsageRecord{}, false, err
	}
	if len(vals) == 0 {
		return UsageRecord{}, false, nil
	}
	rec, err := recordFromHash(identity, vals)
	if err != nil {
		return UsageRecord{}, false, err
	}
	return rec, true, nil
}

func (s *redisStore) Increment(ctx context.Context, identity string, now time.Time) (UsageRecord, error) {
	key := identityKey(identity)
	stamp := now.UTC().Format(time.RFC3339Nano)

	var incr *redis.IntCmd
	var first *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, fieldCount, 1)
		pipe.HSetNX(ctx, key, fieldFirstAccess, stamp)
		pipe.HSet(ctx, key, fieldLastAccess, stamp)
		first = pipe.HGet(ctx, key, fieldFirstAccess)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return UsageRecord{}, fmt.Errorf("redis gate increment: %w", err)
	}

	firstAccess, err := time.Parse(time.RFC3339Nano, first.Val())
	if err != nil {
		firstAccess = now.UTC()
	}
	return UsageRecord{
		IdentityHash: identity,
		Count:        int(incr.Val()),
		FirstAccess:  firstAccess,
		LastAccess:   now.UTC(),
	}, nil
}

func recordFromHash(identity string, vals map[string]string) (UsageRecord, error) {
	rec := UsageRecord{IdentityHash: identity}
	if raw, ok := vals[fieldCount]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return UsageRecord{}, fmt.Errorf("redis gate count %q: %w", raw, err)
		}
		rec.Count = n
	}
	if raw, ok := vals[fieldFirstAccess]; ok {
		rec.FirstAccess, _ = time.Parse(time.RFC3339Nano, raw)
	}
	if raw, ok := vals[fieldLastAccess]; ok {
		rec.LastAccess, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return rec, nil
}

var _ store = (*redisStore)(nil)

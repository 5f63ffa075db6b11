package position

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore is the server-side variant: positions follow the learner
// across devices. Keys never expire.
type RedisStore struct {
	rdb    goredis.Cmdable
	prefix string
}

func NewRedisStore(rdb goredis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k Key) string { return s.prefix + k.String() }

func (s *RedisStore) Get(ctx context.Context, key Key) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key Key, itemID string) error {
	return s.rdb.Set(ctx, s.key(key), itemID, 0).Err()
}

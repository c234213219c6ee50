package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// redisClient is the subset of *redis.Client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStore implements Store on Redis. Expiry is native, so DeleteExpired
// has nothing to do.
type RedisStore struct {
	rc redisClient
}

// NewRedis connects using a redis:// URL.
func NewRedis(url string) (*RedisStore, error) {
	if url == "" {
		url = "redis://127.0.0.1:6379/0"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	return &RedisStore{rc: redis.NewClient(opts)}, nil
}

func redisKey(namespace, key string) string {
	return "geoassist:" + namespace + ":" + key
}

// Migrate checks connectivity; Redis has no schema.
func (s *RedisStore) Migrate(ctx context.Context) error {
	return s.Ping(ctx)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.rc.Ping(ctx).Err(), "redis: ping")
}

func (s *RedisStore) Close() error {
	return s.rc.Close()
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	b, err := s.rc.Get(ctx, redisKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s/%s", namespace, key)
	}
	return b, nil
}

func (s *RedisStore) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	err := s.rc.Set(ctx, redisKey(namespace, key), value, ttl).Err()
	return eris.Wrapf(err, "redis: set %s/%s", namespace, key)
}

func (s *RedisStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

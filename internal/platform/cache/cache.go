package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/casefile-backend/internal/platform/logger"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a small string KV with expiry plus pub/sub fan-out.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, onMsg func([]byte)) error
	Ping(ctx context.Context) error
	Close() error
}

// NewFromEnv returns a redis store when REDIS_ADDR is set and an in-process
// store otherwise.
func NewFromEnv(log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("cache: logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		log.Warn("REDIS_ADDR unset, using in-process cache")
		return NewMemory(log), nil
	}
	return NewRedis(log, addr, strings.TrimSpace(os.Getenv("REDIS_PASSWORD")))
}

type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedis(log *logger.Logger, addr, password string) (Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisStore{log: log.With("client", "RedisCache"), rdb: rdb}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *redisStore) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.rdb.Publish(ctx, channel, payload).Err()
}

func (s *redisStore) Subscribe(ctx context.Context, channel string, onMsg func([]byte)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := s.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				onMsg([]byte(m.Payload))
			}
		}
	}()
	return nil
}

func (s *redisStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *redisStore) Close() error { return s.rdb.Close() }

// memoryStore backs single-process deployments and tests.
type memoryStore struct {
	log  *logger.Logger
	c    *gocache.Cache
	subs *fanout
}

func NewMemory(log *logger.Logger) Store {
	return &memoryStore{
		log:  log.With("client", "MemoryCache"),
		c:    gocache.New(gocache.NoExpiration, 10*time.Minute),
		subs: newFanout(),
	}
}

func expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", ErrMiss
	}
	str, _ := v.(string)
	return str, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.c.Set(key, value, expiry(ttl))
	return nil
}

func (s *memoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := s.c.Add(key, value, expiry(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.c.Delete(k)
	}
	return nil
}

func (s *memoryStore) Publish(_ context.Context, channel string, payload []byte) error {
	s.subs.publish(channel, payload)
	return nil
}

func (s *memoryStore) Subscribe(ctx context.Context, channel string, onMsg func([]byte)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	s.subs.add(ctx, channel, onMsg)
	return nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close() error {
	s.c.Flush()
	return nil
}

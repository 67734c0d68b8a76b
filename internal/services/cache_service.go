package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tablefare/pkg/cache"
	"tablefare/pkg/logger"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheService is the slice of Redis the pricing engine needs: JSON blobs
// with TTLs, expiring counters, and bounded lists for the decision log.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	Increment(ctx context.Context, key string, delta int64, expiration time.Duration) (int64, error)
	GetCounter(ctx context.Context, key string) (int64, error)

	PushBounded(ctx context.Context, key string, value interface{}, limit int64) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	Ping(ctx context.Context) error
}

type cacheService struct {
	redisClient *cache.RedisCache
	keyPrefix   string
	defaultTTL  time.Duration
	logger      *logger.Logger
}

func NewCacheService(redisClient *cache.RedisCache, keyPrefix string, defaultTTL time.Duration, log *logger.Logger) CacheService {
	return &cacheService{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		defaultTTL:  defaultTTL,
		logger:      log,
	}
}

func (s *cacheService) buildKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", s.keyPrefix, key)
}

func (s *cacheService) Get(ctx context.Context, key string, dest interface{}) error {
	err := s.redisClient.Get(ctx, s.buildKey(key), dest)
	if err != nil {
		if cache.IsNil(err) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache key: %w", err)
	}

	return nil
}

func (s *cacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration == 0 {
		expiration = s.defaultTTL
	}

	if err := s.redisClient.Set(ctx, s.buildKey(key), value, expiration); err != nil {
		return fmt.Errorf("failed to set cache key: %w", err)
	}

	return nil
}

func (s *cacheService) Delete(ctx context.Context, keys ...string) error {
	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = s.buildKey(key)
	}

	if err := s.redisClient.Delete(ctx, fullKeys...); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}

	return nil
}

func (s *cacheService) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.redisClient.Exists(ctx, s.buildKey(key))
	if err != nil {
		return false, fmt.Errorf("failed to check cache key existence: %w", err)
	}

	return exists, nil
}

func (s *cacheService) Increment(ctx context.Context, key string, delta int64, expiration time.Duration) (int64, error) {
	fullKey := s.buildKey(key)

	result, err := s.redisClient.IncrementBy(ctx, fullKey, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to increment cache key: %w", err)
	}

	if expiration > 0 {
		if err := s.redisClient.SetExpire(ctx, fullKey, expiration); err != nil {
			s.logger.WithError(err).WithField("key", fullKey).Warn("Failed to set counter expiry")
		}
	}

	return result, nil
}

func (s *cacheService) GetCounter(ctx context.Context, key string) (int64, error) {
	count, err := s.redisClient.GetInt(ctx, s.buildKey(key))
	if err != nil {
		if cache.IsNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}

	return count, nil
}

// PushBounded prepends a value and trims the list to its newest limit entries.
func (s *cacheService) PushBounded(ctx context.Context, key string, value interface{}, limit int64) error {
	fullKey := s.buildKey(key)

	if err := s.redisClient.LPush(ctx, fullKey, value); err != nil {
		return fmt.Errorf("failed to push to list: %w", err)
	}

	if limit > 0 {
		if err := s.redisClient.LTrim(ctx, fullKey, 0, limit-1); err != nil {
			return fmt.Errorf("failed to trim list: %w", err)
		}
	}

	return nil
}

func (s *cacheService) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	entries, err := s.redisClient.LRange(ctx, s.buildKey(key), start, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to read list range: %w", err)
	}

	return entries, nil
}

func (s *cacheService) Ping(ctx context.Context) error {
	_, err := s.redisClient.Exists(ctx, s.buildKey("ping"))
	return err
}

package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// GetFromCache returns nil, nil on a miss or when Redis is disabled.
func (s *StorageService) GetFromCache(ctx context.Context, cacheKey string) ([]byte, error) {
	if s.redisClient == nil {
		return nil, nil
	}

	data, err := s.redisClient.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return data, nil
}

func (s *StorageService) SetCache(ctx context.Context, cacheKey string, data []byte) error {
	if s.redisClient == nil {
		return nil
	}
	return s.redisClient.Set(ctx, cacheKey, data, s.cacheDuration).Err()
}

const (
	cachedCaptionPattern = "caption_cache:*"
	scanCount            = 100
)

// GetCacheStats counts cached captions with SCAN so a large keyspace never
// blocks the server.
func (s *StorageService) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	if s.redisClient == nil {
		return nil, fmt.Errorf("redis is disabled")
	}

	dbSize, err := s.redisClient.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}

	cached, err := countKeys(func(cursor uint64) ([]string, uint64, error) {
		return s.redisClient.Scan(ctx, cursor, cachedCaptionPattern, scanCount).Result()
	})
	if err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"db_keys":       dbSize,
		"cached_images": cached,
	}

	return stats, nil
}

// countKeys walks a SCAN cursor until it wraps back to zero. SCAN may return
// a key more than once, so keys are deduplicated.
func countKeys(scan func(cursor uint64) ([]string, uint64, error)) (int, error) {
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := scan(cursor)
		if err != nil {
			return 0, err
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		if next == 0 {
			return len(seen), nil
		}
		cursor = next
	}
}

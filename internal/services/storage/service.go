package storage

import (
	"time"

	"github.com/redis/go-redis/v9"
	storage_go "github.com/supabase-community/storage-go"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/config"
)

// StorageService wraps the optional remote pieces: the Supabase bucket that
// mirrors processed images and the Redis cache for captions. Either may be nil.
type StorageService struct {
	sbClient      *storage_go.Client
	redisClient   *redis.Client
	bucket        string
	cacheDuration time.Duration
	logger        *zap.Logger
}

func NewStorageService(cfg *config.Config, logger *zap.Logger) *StorageService {
	s := &StorageService{
		bucket:        cfg.Supabase.BUCKET,
		cacheDuration: cfg.Storage.CacheDuration,
		logger:        logger,
	}

	if cfg.Supabase.Enabled() {
		s.sbClient = storage_go.NewClient(cfg.Supabase.URL+"/storage/v1", cfg.Supabase.KEY, nil)
	}

	if cfg.Redis.Enabled {
		s.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	return s
}

func (s *StorageService) MirrorEnabled() bool { return s.sbClient != nil }

func (s *StorageService) CacheEnabled() bool { return s.redisClient != nil }

// RedisClient is shared with the event relay. Nil when Redis is disabled.
func (s *StorageService) RedisClient() *redis.Client { return s.redisClient }

func (s *StorageService) Close() error {
	if s.redisClient != nil {
		return s.redisClient.Close()
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/services/caption"
	"github.com/phambaophuc/image-seo-metadata/internal/services/metadata"
	"github.com/phambaophuc/image-seo-metadata/internal/services/store"
)

// openStore picks MongoDB when a URI is configured and sqlite otherwise.
func openStore(ctx context.Context) (store.Repository, error) {
	if cfg.Mongo.URI != "" {
		logger.Info("Using MongoDB result store",
			zap.String("database", cfg.Mongo.Database),
			zap.String("collection", cfg.Mongo.Collection),
		)
		return store.OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	}

	logger.Info("Using sqlite result store", zap.String("path", cfg.Database.Path))
	return store.OpenSQLite(cfg.Database.Path)
}

func newInjector() *metadata.Injector {
	pool := metadata.NewPool(metadata.NewExiftoolOpener(cfg.Exiftool.BinaryPath), cfg.Exiftool.Sessions, logger)
	return metadata.NewInjector(pool, logger)
}

func newCaptioner(ctx context.Context, cache caption.Cache) (*caption.Adapter, error) {
	prompt := caption.DefaultPrompt(cfg.Caption.TitleLength, cfg.Caption.DescriptionLength, cfg.Caption.KeywordCount)
	if cfg.Caption.PromptFile != "" {
		loaded, err := caption.LoadPrompt(cfg.Caption.PromptFile, prompt)
		if err != nil {
			return nil, err
		}
		prompt = loaded
	}

	gen, err := caption.NewGeminiGenerator(ctx, cfg.Caption.APIKey, cfg.Caption.Model)
	if err != nil {
		return nil, err
	}

	opts := []caption.Option{caption.WithMaxUploadDimension(cfg.Caption.MaxUploadDim)}
	if cache != nil {
		opts = append(opts, caption.WithCache(cache))
	}
	return caption.NewAdapter(gen, prompt, logger, opts...), nil
}

func redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func requireRedis(feature string) error {
	if !cfg.Redis.Enabled {
		return fmt.Errorf("%s requires REDIS_ENABLED=true", feature)
	}
	return nil
}

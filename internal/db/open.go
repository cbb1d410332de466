package db

import (
	"context"
	"fmt"

	"nw_quizbot/internal/config"
)

// Open builds the Storage selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryStorage(), nil
	case config.DriverFS:
		return NewFSStorage(cfg.FS.Path, cfg.Concurrency)
	case config.DriverS3:
		return NewS3Storage(ctx, cfg.S3, cfg.Concurrency)
	case config.DriverMongo:
		return NewMongoStorage(cfg.Mongo)
	case config.DriverRedis:
		return NewRedisStorage(ctx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Concurrency)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

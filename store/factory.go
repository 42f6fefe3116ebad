package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentmemory/config"
	"github.com/BaSui01/agentmemory/internal/cache"
	"github.com/BaSui01/agentmemory/internal/database"
)

// Open 按 cfg.Store.Driver 创建集合存储
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (CollectionStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Store.Driver {
	case "", config.DriverMemory:
		return NewMemoryStore(logger), nil

	case config.DriverRedis:
		rc := cache.DefaultConfig()
		rc.Addr = cfg.Redis.Addr
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			rc.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			rc.MinIdleConns = cfg.Redis.MinIdleConns
		}
		rc.HealthCheckInterval = cfg.Redis.HealthCheckInterval

		manager, err := cache.NewManager(rc, logger)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return NewRedisStore(manager, cfg.Store.KeyPrefix, logger), nil

	case config.DriverGorm:
		pool, err := database.Open(cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("open gorm store: %w", err)
		}
		s, err := NewGormStore(pool, true, logger)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		return s, nil

	case config.DriverMongo:
		return NewMongoStore(ctx, MongoOptions{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Prefix:   cfg.Store.KeyPrefix,
			Timeout:  cfg.Mongo.Timeout,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

package bootstrap

import (
	"fmt"

	"snapshare/internal/cache"
	"snapshare/internal/config"
	"snapshare/internal/database"
	"snapshare/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// QueryMetrics registers the GORM query histogram callbacks.
	QueryMetrics bool
	// SkipRedis leaves the cache client unset.
	SkipRedis bool
}

// InitRuntime connects to the database and Redis. The returned Redis client
// is nil when Redis is unreachable or skipped.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.QueryMetrics {
		if err := observability.RegisterQueryMetrics(db); err != nil {
			return nil, nil, fmt.Errorf("register query metrics: %w", err)
		}
	}

	if opts.SkipRedis {
		return db, nil, nil
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	return db, cache.GetClient(), nil
}

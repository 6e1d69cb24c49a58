// Package repository selects the Record Store backend named by the config.
package repository

import (
	"context"
	"fmt"

	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository/mongo"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository/redis"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/pretty-links/pkg/config"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

// New opens the configured backend. The caller owns the result and must Close it.
func New(ctx context.Context, cfg *config.Config) (ports.ComponentRepository, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		return repo, nil
	case config.BackendMemory:
		return memory.NewMemoryRepository(), nil
	case config.BackendMongo:
		repo, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
		if err != nil {
			return nil, fmt.Errorf("mongo store: %w", err)
		}
		return repo, nil
	case config.BackendRedis:
		repo, err := redis.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

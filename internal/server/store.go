package server

import (
	"context"
	"fmt"

	"github.com/EBOLABOY/aeroscout/internal/config"
	"github.com/EBOLABOY/aeroscout/internal/core/store"
)

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemory(), nil
	case "redis":
		return store.NewRedis(ctx, cfg.Store.RedisAddr, cfg.Store.RedisDB)
	case "postgres":
		if cfg.Store.PostgresURL == "" {
			return nil, fmt.Errorf("store.postgres_url is required for the postgres backend")
		}
		return store.NewPostgres(ctx, cfg.Store.PostgresURL, int32(cfg.Store.MaxConns))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

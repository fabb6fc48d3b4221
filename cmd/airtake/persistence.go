package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	airtake "github.com/PratikDhanave/airtake-go"
	"github.com/PratikDhanave/airtake-go/internal/config"
)

// identityNamespace scopes shared stores so projects do not share devices.
func identityNamespace(token string) string {
	return "airtake:" + token
}

// openPersistence builds the identity store selected by cfg.Store. The
// returned func releases it.
func openPersistence(ctx context.Context, cfg config.Config, logger *log.Logger) (airtake.Persistence, func(), error) {
	noop := func() {}

	switch cfg.Store {
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.StoreDSN), 0o755); err != nil {
			return nil, noop, fmt.Errorf("create identity directory: %w", err)
		}
		db, err := airtake.NewSQLitePersistence(cfg.StoreDSN)
		if err != nil {
			return nil, noop, err
		}
		return db, func() { _ = db.Close() }, nil

	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.StoreDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		// Identity persistence is best effort, an unreachable server only
		// costs durability.
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, identity will not persist")
		}
		return airtake.NewRedisPersistence(client, identityNamespace(cfg.Token), 0), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		db, err := airtake.NewPostgresPersistence(cfg.StoreDSN, identityNamespace(cfg.Token))
		if err != nil {
			return nil, noop, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return db, db.Close, nil
	}

	// memory: identity lives for this invocation only.
	return nil, noop, nil
}

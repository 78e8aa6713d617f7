package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/mcdev12/turntimer/go/internal/blobstore"
	"github.com/mcdev12/turntimer/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

// setupStore opens the configured backend. The returned func releases it.
func setupStore(ctx context.Context, config *Config) (blobstore.Store, func(), error) {
	switch strings.ToLower(config.Store.Backend) {
	case StoreValkey:
		return setupValkeyStore(ctx)
	case StorePostgres:
		return setupPostgresStore(ctx)
	default:
		log.Warn().Msg("using in-memory store, statistics will not survive a restart")
		return blobstore.NewMemoryStore(), func() {}, nil
	}
}

func setupValkeyStore(ctx context.Context) (blobstore.Store, func(), error) {
	cfg := dbconfig.NewValkeyConfigFromEnv()
	client, err := blobstore.NewValkeyClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	store := blobstore.NewValkeyStore(client, cfg.KeyPrefix)
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to valkey")
	return store, store.Close, nil
}

func setupPostgresStore(ctx context.Context) (blobstore.Store, func(), error) {
	dbCfg := dbconfig.NewConfigFromEnv()

	// lib/pq registers "postgres", pgx/v5/stdlib registers "pgx"
	database, err := sql.Open(dbCfg.Driver, dbCfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := blobstore.NewPostgresStore(database, dbCfg.Table)
	if err := store.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, err
	}

	log.Info().
		Str("driver", dbCfg.Driver).
		Str("database", dbCfg.Database).
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Msg("connected to database")
	return store, func() { database.Close() }, nil
}

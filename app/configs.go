package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RezaEskandarii/driveq/internal/db"
	"github.com/RezaEskandarii/driveq/types/config"
	goredis "github.com/redis/go-redis/v9"
)

// openPostgres returns the pool used by the stores and a single-connection
// pool for advisory locks. Session locks must be released on the
// connection that took them.
func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, *sql.DB, error) {
	pool, err := db.Open(ctx, cfg.ConnectionUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	lockDB, err := db.Open(ctx, cfg.ConnectionUrl)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("open postgres lock connection: %w", err)
	}
	lockDB.SetMaxOpenConns(1)
	return pool, lockDB, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/RezaEskandarii/driveq/internal/constants"
	"github.com/RezaEskandarii/driveq/internal/lock"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, postgresURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Init creates the schema and applies every embedded migration in file
// name order. The migration lock keeps concurrent instances from running
// the scripts at the same time; every script is idempotent.
func Init(ctx context.Context, db *sql.DB, distributedLock lock.DistributedLockManager, logger *slog.Logger) error {
	scripts, err := readSQLScripts()
	if err != nil {
		return err
	}

	return lock.WithLock(distributedLock, constants.MigrationLock, func() error {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", constants.SchemaName)); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		for _, script := range scripts {
			logger.Info("applying migration", "file", script.name)
			if _, err := db.ExecContext(ctx, script.body); err != nil {
				return fmt.Errorf("migration %s: %w", script.name, err)
			}
		}
		return nil
	})
}

type sqlScript struct {
	name string
	body string
}

func readSQLScripts() ([]sqlScript, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	scripts := make([]sqlScript, 0, len(names))
	for _, name := range names {
		content, err := migrations.ReadFile(name)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, sqlScript{name: name, body: string(content)})
	}
	return scripts, nil
}

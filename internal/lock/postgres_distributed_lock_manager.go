package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const lockTimeout = 5 * time.Second

// PostgresDistributedLockManager uses session level advisory locks. The
// same *sql.DB must be used for Acquire and Release; configure it with a
// single connection when several locks can be held at once.
type PostgresDistributedLockManager struct {
	db *sql.DB
}

func NewPostgresDistributedLockManager(db *sql.DB) *PostgresDistributedLockManager {
	return &PostgresDistributedLockManager{
		db: db,
	}
}

func (l *PostgresDistributedLockManager) Acquire(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	if _, err := l.db.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return fmt.Errorf("failed to acquire lock %d: %w", lockID, err)
	}
	return nil
}

func (l *PostgresDistributedLockManager) Release(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	if _, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
		return fmt.Errorf("failed to release lock %d: %w", lockID, err)
	}
	return nil
}

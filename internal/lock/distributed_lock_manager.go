package lock

import (
	"fmt"
	"log/slog"
)

// DistributedLockManager serialises work across scheduler instances that
// share one database.
type DistributedLockManager interface {
	Acquire(lockID int) error
	Release(lockID int) error
}

// WithLock runs fn while holding lockID. A failed release is logged, not
// returned, so it never masks the error from fn.
func WithLock(m DistributedLockManager, lockID int, fn func() error) error {
	if err := m.Acquire(lockID); err != nil {
		return err
	}
	defer func() {
		if err := m.Release(lockID); err != nil {
			slog.Warn("release distributed lock", "lock_id", lockID, "error", err)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("locked section %d: %w", lockID, err)
	}
	return nil
}

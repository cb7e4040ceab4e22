package app

import (
	"database/sql"
	"log/slog"

	"github.com/RezaEskandarii/driveq/client"
	"github.com/RezaEskandarii/driveq/internal/lock"
	"github.com/RezaEskandarii/driveq/internal/message_broaker"
	"github.com/RezaEskandarii/driveq/remote"
	goredis "github.com/redis/go-redis/v9"
)

// ContainerOption configures Container creation. Used for testing and customization.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	// Optional: inject connections instead of creating them from config
	db          *sql.DB
	lockManager lock.DistributedLockManager
	redis       *goredis.Client
	broker      message_broaker.MessageBroker

	service  remote.Service
	uploader remote.Uploader
	onChange client.ChangeHandler
	logger   *slog.Logger
}

// WithDB injects a Postgres pool and the lock manager to use with it.
func WithDB(db *sql.DB, lockManager lock.DistributedLockManager) ContainerOption {
	return func(c *containerConfig) {
		c.db = db
		c.lockManager = lockManager
	}
}

// WithRedis injects a custom Redis client. Useful for testing.
func WithRedis(redis *goredis.Client) ContainerOption {
	return func(c *containerConfig) {
		c.redis = redis
	}
}

// WithMessageBroker replaces the RabbitMQ connection built from config.
func WithMessageBroker(broker message_broaker.MessageBroker) ContainerOption {
	return func(c *containerConfig) {
		c.broker = broker
	}
}

// WithRemote sets the remote service the typed operations call. It is required.
func WithRemote(service remote.Service, uploader remote.Uploader) ContainerOption {
	return func(c *containerConfig) {
		c.service = service
		c.uploader = uploader
	}
}

// WithChangeHandler receives the result of every change list poll.
func WithChangeHandler(fn client.ChangeHandler) ContainerOption {
	return func(c *containerConfig) {
		c.onChange = fn
	}
}

func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *containerConfig) {
		c.logger = logger
	}
}

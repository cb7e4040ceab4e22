package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RezaEskandarii/driveq/client"
	"github.com/RezaEskandarii/driveq/internal/constants"
	"github.com/RezaEskandarii/driveq/internal/db"
	"github.com/RezaEskandarii/driveq/internal/events"
	"github.com/RezaEskandarii/driveq/internal/history"
	"github.com/RezaEskandarii/driveq/internal/lock"
	"github.com/RezaEskandarii/driveq/internal/logging"
	"github.com/RezaEskandarii/driveq/internal/message_broaker"
	"github.com/RezaEskandarii/driveq/internal/metrics"
	"github.com/RezaEskandarii/driveq/internal/store"
	"github.com/RezaEskandarii/driveq/internal/store/postgres"
	redisstore "github.com/RezaEskandarii/driveq/internal/store/redis"
	"github.com/RezaEskandarii/driveq/types/config"
	"github.com/RezaEskandarii/driveq/web"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Container holds all application dependencies. It is the single source of truth
// for dependency injection and ensures connections and services are created once.
type Container struct {
	Config *config.SchedulerConfig
	Logger *slog.Logger

	// Storage connections (created once, shared by all stores)
	DB     *sql.DB
	LockDB *sql.DB
	Redis  *goredis.Client

	HistoryStore store.JobHistoryStore
	UserStore    store.UserStore

	// Infrastructure
	LockManager   lock.DistributedLockManager
	MessageBroker message_broaker.MessageBroker

	Scheduler  *client.JobScheduler
	Operations *client.Operations
	Metrics    *metrics.Metrics
	Recorder   *history.Recorder
	Publisher  *events.Publisher
	Poller     *client.ChangePoller
	Dashboard  *web.Server

	ownsDB     bool
	ownsRedis  bool
	ownsBroker bool
}

// NewContainer creates and wires all dependencies. Call it once per process.
// Connections are opened from cfg unless injected with WithDB, WithRedis or
// WithMessageBroker.
func NewContainer(ctx context.Context, cfg *config.SchedulerConfig, opts ...ContainerOption) (*Container, error) {
	opt := &containerConfig{}
	for _, o := range opts {
		o(opt)
	}
	if opt.service == nil || opt.uploader == nil {
		return nil, errors.New("a remote service and uploader are required")
	}
	logger := opt.logger
	if logger == nil {
		logger = logging.New(constants.AppName, cfg.LogLevel)
	}

	c := &Container{Config: cfg, Logger: logger}
	if err := c.initStorage(ctx, opt); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.seedDashboardUser(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("seed dashboard user: %w", err)
	}

	c.Scheduler = client.NewJobScheduler(cfg, logger)
	c.Operations = client.NewOperations(c.Scheduler, opt.service, opt.uploader)

	c.Metrics = metrics.New(c.Scheduler)
	c.Scheduler.AddObserver(c.Metrics)

	if c.HistoryStore != nil {
		c.Recorder = history.NewRecorder(c.HistoryStore, cfg.Instance, cfg.HistoryBatchSize, cfg.HistoryFlushInterval, logger)
		c.Scheduler.AddObserver(c.Recorder)
	}

	if err := c.initMessageBroker(opt); err != nil {
		c.Close()
		return nil, err
	}
	if c.MessageBroker != nil {
		c.Publisher = events.NewPublisher(c.MessageBroker, cfg.Instance, logger)
		c.Scheduler.AddObserver(c.Publisher)
	}

	if cfg.ChangePollSchedule != "" {
		poller, err := client.NewChangePoller(c.Operations, cfg.ChangePollSchedule, opt.onChange, logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Poller = poller
	}

	if cfg.DashboardAuthEnabled {
		c.Dashboard = web.NewServer(
			c.Scheduler,
			c.HistoryStore,
			c.UserStore,
			c.Metrics.Handler(),
			cfg.SecretKey,
			cfg.DashboardAuthEnabled,
			cfg.DashboardPort,
			logger,
		)
	}
	return c, nil
}

func (c *Container) initStorage(ctx context.Context, opt *containerConfig) error {
	switch c.Config.StorageDriver {
	case config.Postgres:
		if opt.db != nil {
			c.DB = opt.db
			c.LockManager = opt.lockManager
		} else {
			pool, lockDB, err := openPostgres(ctx, c.Config.PostgresConfig)
			if err != nil {
				return err
			}
			c.DB, c.LockDB, c.ownsDB = pool, lockDB, true
			c.LockManager = lock.NewPostgresDistributedLockManager(lockDB)
		}
		if c.LockManager == nil {
			return errors.New("postgres storage requires a distributed lock manager")
		}
		if err := db.Init(ctx, c.DB, c.LockManager, c.Logger); err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		c.HistoryStore = postgres.NewPostgresJobHistoryStore(c.DB)
		c.UserStore = postgres.NewPostgresUserStore(c.DB)
	case config.Redis:
		if opt.redis != nil {
			c.Redis = opt.redis
		} else {
			rdb, err := openRedis(ctx, c.Config.RedisConfig)
			if err != nil {
				return err
			}
			c.Redis, c.ownsRedis = rdb, true
		}
		c.HistoryStore = redisstore.NewRedisJobHistoryStore(c.Redis)
		c.UserStore = store.NewMemoryUserStore()
	case config.NoStorage:
		c.UserStore = store.NewMemoryUserStore()
	default:
		return fmt.Errorf("unsupported storage driver: %v", c.Config.StorageDriver)
	}
	c.Logger.Info("storage ready", "driver", c.Config.StorageDriver.String())
	return nil
}

func (c *Container) initMessageBroker(opt *containerConfig) error {
	if opt.broker != nil {
		c.MessageBroker = opt.broker
		return nil
	}
	if c.Config.MQDriver != config.RabbitMQ || c.Config.RabbitMQConfig == nil {
		return nil
	}
	broker, err := message_broaker.NewRabbitMQ(*c.Config.RabbitMQConfig)
	if err != nil {
		return fmt.Errorf("init rabbitmq: %w", err)
	}
	c.MessageBroker, c.ownsBroker = broker, true
	return nil
}

// seedDashboardUser creates the configured dashboard account unless it
// already exists. With a shared database the check runs under a lock so
// that instances starting together do not race.
func (c *Container) seedDashboardUser(ctx context.Context) error {
	cfg := c.Config
	if cfg.DashboardUserName == "" || cfg.DashboardPassword == "" {
		return nil
	}
	seed := func() error {
		user, err := c.UserStore.FindByUsername(ctx, cfg.DashboardUserName)
		if err != nil || user != nil {
			return err
		}
		_, err = c.UserStore.Create(ctx, cfg.DashboardUserName, cfg.DashboardPassword)
		return err
	}
	if c.LockManager == nil {
		return seed()
	}
	return lock.WithLock(c.LockManager, constants.UserSeedLock, seed)
}

// Run starts every background service and blocks until ctx is done or one
// of them fails. Jobs still queued when it returns are dropped.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := c.Scheduler.Start(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if c.Recorder != nil {
		g.Go(func() error {
			c.Recorder.Run(ctx)
			return nil
		})
	}
	if c.Publisher != nil {
		g.Go(func() error {
			c.Publisher.Run(ctx)
			return nil
		})
	}
	if c.Poller != nil {
		g.Go(func() error {
			c.Poller.Start(ctx)
			return nil
		})
	}
	if c.Dashboard != nil {
		g.Go(func() error {
			if err := c.Dashboard.Serve(ctx); err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases the connections the container opened itself. The history
// stores own their connection and close it.
func (c *Container) Close() error {
	var errs []error
	if c.ownsBroker && c.MessageBroker != nil {
		errs = append(errs, c.MessageBroker.Close())
	}
	if c.ownsRedis && c.Redis != nil {
		errs = append(errs, c.closeStoreOr(c.Redis.Close))
	}
	if c.ownsDB {
		if c.DB != nil {
			errs = append(errs, c.closeStoreOr(c.DB.Close))
		}
		if c.LockDB != nil {
			errs = append(errs, c.LockDB.Close())
		}
	}
	return errors.Join(errs...)
}

func (c *Container) closeStoreOr(closeConn func() error) error {
	if c.HistoryStore != nil {
		return c.HistoryStore.Close()
	}
	return closeConn()
}

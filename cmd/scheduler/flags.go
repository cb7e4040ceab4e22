package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/RezaEskandarii/driveq/types"
	"github.com/RezaEskandarii/driveq/types/config"
	"github.com/google/uuid"
)

type options struct {
	Instance            string
	LogLevel            string
	MetadataCap         int
	FileCap             int
	MaxRetries          int
	DisableOverCellular bool
	Connection          string

	PostgresURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL      string
	RabbitMQExchange string
	RabbitMQQueue    string

	DashboardUser     string
	DashboardPassword string
	DashboardSecret   string
	DashboardPort     uint

	ChangePoll string
	DemoJobs   int
}

func parseOptions() options {
	return parseOptionsWithFlagSet(flag.CommandLine, os.Args[1:])
}

// parseOptionsWithFlagSet reads DRIVEQ_* environment variables first;
// flags override them.
func parseOptionsWithFlagSet(fs *flag.FlagSet, args []string) options {
	o := options{
		Instance:    "driveq-" + uuid.NewString()[:8],
		LogLevel:    config.DefaultLogLevel,
		MetadataCap: config.DefaultMetadataQueueCap,
		FileCap:     config.DefaultFileQueueCap,
		MaxRetries:  config.DefaultMaxRetries,
		Connection:  types.ConnectionWifi.String(),
		DemoJobs:    10,
	}

	envString(&o.Instance, "DRIVEQ_INSTANCE")
	envString(&o.LogLevel, "DRIVEQ_LOG_LEVEL")
	envInt(&o.MetadataCap, "DRIVEQ_METADATA_CAP")
	envInt(&o.FileCap, "DRIVEQ_FILE_CAP")
	envInt(&o.MaxRetries, "DRIVEQ_MAX_RETRIES")
	envBool(&o.DisableOverCellular, "DRIVEQ_DISABLE_OVER_CELLULAR")
	envString(&o.Connection, "DRIVEQ_CONNECTION")
	envString(&o.PostgresURL, "DRIVEQ_POSTGRES_URL")
	envString(&o.RedisAddr, "DRIVEQ_REDIS_ADDR")
	envString(&o.RedisPassword, "DRIVEQ_REDIS_PASSWORD")
	envInt(&o.RedisDB, "DRIVEQ_REDIS_DB")
	envString(&o.RabbitMQURL, "DRIVEQ_RABBITMQ_URL")
	envString(&o.RabbitMQExchange, "DRIVEQ_RABBITMQ_EXCHANGE")
	envString(&o.RabbitMQQueue, "DRIVEQ_RABBITMQ_QUEUE")
	envString(&o.DashboardUser, "DRIVEQ_DASHBOARD_USER")
	envString(&o.DashboardPassword, "DRIVEQ_DASHBOARD_PASSWORD")
	envString(&o.DashboardSecret, "DRIVEQ_DASHBOARD_SECRET")
	if v, err := strconv.ParseUint(os.Getenv("DRIVEQ_DASHBOARD_PORT"), 10, 32); err == nil {
		o.DashboardPort = uint(v)
	}
	envString(&o.ChangePoll, "DRIVEQ_CHANGE_POLL")
	envInt(&o.DemoJobs, "DRIVEQ_DEMO_JOBS")

	fs.StringVar(&o.Instance, "instance", o.Instance, "instance name used in logs, events and history")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level (debug, info, warn, error)")
	fs.IntVar(&o.MetadataCap, "metadata-cap", o.MetadataCap, "concurrent metadata jobs")
	fs.IntVar(&o.FileCap, "file-cap", o.FileCap, "concurrent file transfer jobs")
	fs.IntVar(&o.MaxRetries, "max-retries", o.MaxRetries, "retries before a retryable failure becomes terminal")
	fs.BoolVar(&o.DisableOverCellular, "disable-over-cellular", o.DisableOverCellular, "hold background transfers on cellular")
	fs.StringVar(&o.Connection, "connection", o.Connection, "initial connection type (none, cellular, wifi, ethernet, other)")
	fs.StringVar(&o.PostgresURL, "postgres-url", o.PostgresURL, "record job history in Postgres")
	fs.StringVar(&o.RedisAddr, "redis-addr", o.RedisAddr, "record job history in Redis")
	fs.StringVar(&o.RedisPassword, "redis-password", o.RedisPassword, "redis password")
	fs.IntVar(&o.RedisDB, "redis-db", o.RedisDB, "redis database")
	fs.StringVar(&o.RabbitMQURL, "rabbitmq-url", o.RabbitMQURL, "publish job events to RabbitMQ")
	fs.StringVar(&o.RabbitMQExchange, "rabbitmq-exchange", o.RabbitMQExchange, "topic exchange for job events")
	fs.StringVar(&o.RabbitMQQueue, "rabbitmq-queue", o.RabbitMQQueue, "queue for job events")
	fs.StringVar(&o.DashboardUser, "dashboard-user", o.DashboardUser, "dashboard username")
	fs.StringVar(&o.DashboardPassword, "dashboard-password", o.DashboardPassword, "dashboard password")
	fs.StringVar(&o.DashboardSecret, "dashboard-secret", o.DashboardSecret, "dashboard cookie signing key")
	fs.UintVar(&o.DashboardPort, "dashboard-port", o.DashboardPort, "dashboard port")
	fs.StringVar(&o.ChangePoll, "change-poll", o.ChangePoll, "cron spec for change list polling, e.g. @every 30s")
	fs.IntVar(&o.DemoJobs, "demo-jobs", o.DemoJobs, "number of demo jobs to submit at startup")
	_ = fs.Parse(args)

	return o
}

// schedulerConfig turns the options into a validated SchedulerConfig.
func (o options) schedulerConfig() (*config.SchedulerConfig, error) {
	opts := []config.ContainerOption{
		config.WithLogLevel(o.LogLevel),
		config.WithQueueCap(types.MetadataQueue, o.MetadataCap),
		config.WithQueueCap(types.FileQueue, o.FileCap),
		config.WithMaxRetries(o.MaxRetries),
		config.WithDisableOverCellular(o.DisableOverCellular),
		config.WithHistoryBatch(config.DefaultHistoryBatchSize, config.DefaultHistoryFlushInterval),
	}
	if o.PostgresURL != "" {
		opts = append(opts, config.WithPostgresConfig(config.PostgresConfig{ConnectionUrl: o.PostgresURL}))
	}
	if o.RedisAddr != "" {
		opts = append(opts, config.WithRedisConfig(config.RedisConfig{
			Address:  o.RedisAddr,
			Password: o.RedisPassword,
			DB:       o.RedisDB,
		}))
	}
	if o.RabbitMQURL != "" {
		opts = append(opts, config.WithRabbitMQConfig(config.RabbitMQConfig{
			URL:      o.RabbitMQURL,
			Exchange: o.RabbitMQExchange,
			Queue:    o.RabbitMQQueue,
		}))
	}
	if o.DashboardPort != 0 {
		opts = append(opts, config.WithAdminDashboardConfig(o.DashboardUser, o.DashboardPassword, o.DashboardSecret, o.DashboardPort))
	}
	if o.ChangePoll != "" {
		opts = append(opts, config.WithChangePollSchedule(o.ChangePoll))
	}
	return config.NewSchedulerConfig(o.Instance, opts...)
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = v
	}
}

func envBool(dst *bool, key string) {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		*dst = v
	}
}

package main

import (
	"flag"
	"strings"
	"testing"

	"github.com/RezaEskandarii/driveq/types"
	"github.com/RezaEskandarii/driveq/types/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions_Defaults(t *testing.T) {
	o := parseOptionsWithFlagSet(flag.NewFlagSet("test", flag.ContinueOnError), nil)

	assert.True(t, strings.HasPrefix(o.Instance, "driveq-"))
	assert.Equal(t, config.DefaultMetadataQueueCap, o.MetadataCap)
	assert.Equal(t, config.DefaultFileQueueCap, o.FileCap)
	assert.Equal(t, "wifi", o.Connection)

	cfg, err := o.schedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, config.NoStorage, cfg.StorageDriver)
	assert.False(t, cfg.DashboardAuthEnabled)
}

func TestParseOptions_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("DRIVEQ_INSTANCE", "from-env")
	t.Setenv("DRIVEQ_FILE_CAP", "3")
	t.Setenv("DRIVEQ_REDIS_ADDR", "localhost:6379")

	o := parseOptionsWithFlagSet(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-instance", "from-flag"})
	assert.Equal(t, "from-flag", o.Instance)
	assert.Equal(t, 3, o.FileCap)

	cfg, err := o.schedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Cap(types.FileQueue))
	assert.Equal(t, config.Redis, cfg.StorageDriver)
}

func TestSchedulerConfig_InvalidOptions(t *testing.T) {
	o := parseOptionsWithFlagSet(flag.NewFlagSet("test", flag.ContinueOnError), []string{
		"-metadata-cap", "0",
		"-postgres-url", "postgres://localhost/driveq",
		"-redis-addr", "localhost:6379",
		"-dashboard-port", "8080",
	})

	_, err := o.schedulerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METADATA_QUEUE cap must be positive")
	assert.Contains(t, err.Error(), "cannot set Redis config")
	assert.Contains(t, err.Error(), "admin dashboard")
}

package app

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/RezaEskandarii/driveq/internal/constants"
	"github.com/RezaEskandarii/driveq/internal/logging"
	"github.com/RezaEskandarii/driveq/internal/mocks"
	"github.com/RezaEskandarii/driveq/remote"
	"github.com/RezaEskandarii/driveq/remote/fake"
	"github.com/RezaEskandarii/driveq/types"
	"github.com/RezaEskandarii/driveq/types/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainer_RequiresRemote(t *testing.T) {
	cfg, err := config.NewSchedulerConfig("test")
	require.NoError(t, err)

	_, err = NewContainer(context.Background(), cfg, WithLogger(logging.Discard()))
	assert.Error(t, err)
}

func TestNewContainer_WithoutStorage(t *testing.T) {
	cfg, err := config.NewSchedulerConfig("test", config.WithChangePollSchedule("@every 1h"))
	require.NoError(t, err)
	svc := fake.NewService()
	broker := &mocks.MockMessageBroker{}

	c, err := NewContainer(context.Background(), cfg,
		WithRemote(svc, svc),
		WithMessageBroker(broker),
		WithLogger(logging.Discard()),
	)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.HistoryStore)
	assert.Nil(t, c.Recorder)
	assert.Nil(t, c.Dashboard)
	assert.NotNil(t, c.UserStore)
	assert.NotNil(t, c.Publisher)
	assert.NotNil(t, c.Poller)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	done := make(chan error, 1)
	c.Operations.GetAboutResource(func(_ *remote.AboutResource, err error) { done <- err })

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
	}
	require.Eventually(t, func() bool { return len(broker.Published()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "job.added", broker.Published()[0].Key)

	cancel()
	assert.NoError(t, <-runErr)
}

func TestNewContainer_PostgresSeedsDashboardUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg, err := config.NewSchedulerConfig("test",
		config.WithPostgresConfig(config.PostgresConfig{ConnectionUrl: "postgres://unused"}),
		config.WithAdminDashboardConfig("admin", "secret", "key", 8099),
	)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS driveq_schema")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS driveq_schema.job_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS driveq_schema.users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, username FROM driveq_schema.users").
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))
	mock.ExpectExec("DELETE FROM driveq_schema.users").
		WithArgs("admin").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("INSERT INTO driveq_schema.users").
		WithArgs("admin", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	locks := &mocks.MockDistributedLockManager{}
	svc := fake.NewService()
	c, err := NewContainer(context.Background(), cfg,
		WithDB(db, locks),
		WithRemote(svc, svc),
		WithLogger(logging.Discard()),
	)
	require.NoError(t, err)

	assert.NotNil(t, c.HistoryStore)
	assert.NotNil(t, c.Recorder)
	assert.NotNil(t, c.Dashboard)
	assert.Nil(t, c.Publisher)
	assert.Equal(t, []int{constants.MigrationLock, constants.UserSeedLock}, locks.Acquired())
	assert.Equal(t, []int{constants.MigrationLock, constants.UserSeedLock}, locks.Released())
	assert.NoError(t, mock.ExpectationsWereMet())

	info := c.Scheduler.QueueInfo()
	require.Len(t, info, len(types.QueueClasses))
}

package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/RezaEskandarii/driveq/internal/constants"
	"github.com/RezaEskandarii/driveq/internal/logging"
	"github.com/RezaEskandarii/driveq/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSQLScripts(t *testing.T) {
	scripts, err := readSQLScripts()
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	assert.Equal(t, "migrations/001_job_history.sql", scripts[0].name)
	assert.Contains(t, scripts[0].body, "driveq_schema.job_history")
	assert.Contains(t, scripts[1].body, "driveq_schema.users")
}

func TestInit_AppliesMigrationsUnderLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS driveq_schema")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS driveq_schema.job_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS driveq_schema.users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	lockMgr := &mocks.MockDistributedLockManager{}
	require.NoError(t, Init(context.Background(), db, lockMgr, logging.Discard()))
	assert.Equal(t, []int{constants.MigrationLock}, lockMgr.Acquired())
	assert.Equal(t, []int{constants.MigrationLock}, lockMgr.Released())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInit_LockAcquireFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lockMgr := &mocks.MockDistributedLockManager{
		AcquireFunc: func(int) error { return errors.New("lock busy") },
	}
	err = Init(context.Background(), db, lockMgr, logging.Discard())
	assert.ErrorContains(t, err, "lock busy")
	assert.Empty(t, lockMgr.Released())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInit_MigrationFailureReleasesLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE SCHEMA").WillReturnError(errors.New("permission denied"))

	lockMgr := &mocks.MockDistributedLockManager{}
	err = Init(context.Background(), db, lockMgr, logging.Discard())
	assert.ErrorContains(t, err, "permission denied")
	assert.Equal(t, []int{constants.MigrationLock}, lockMgr.Released())
}

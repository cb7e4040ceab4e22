package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/RezaEskandarii/driveq/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPostgresUserStore(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userStore := NewPostgresUserStore(db)
	require.NotNil(t, userStore)
	var _ store.UserStore = userStore
}

func TestPostgresUserStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userStore := NewPostgresUserStore(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM driveq_schema.users").
		WithArgs("newuser").
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery("INSERT INTO driveq_schema.users").
		WithArgs("newuser", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	id, err := userStore.Create(ctx, "newuser", "password123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_Find(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	userStore := NewPostgresUserStore(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, username, password FROM driveq_schema.users").
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).AddRow(1, "admin", string(hashed)))

	user, err := userStore.Find(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Empty(t, user.Password)

	mock.ExpectQuery("SELECT id, username, password FROM driveq_schema.users").
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).AddRow(1, "admin", string(hashed)))

	_, err = userStore.Find(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, store.ErrNotFound)

	mock.ExpectQuery("SELECT id, username, password FROM driveq_schema.users").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err = userStore.Find(ctx, "ghost", "secret")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_FindByUsername_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userStore := NewPostgresUserStore(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, username FROM driveq_schema.users").
		WithArgs("nonexistent").
		WillReturnError(sql.ErrNoRows)

	user, err := userStore.FindByUsername(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_FindByUsername_Found(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userStore := NewPostgresUserStore(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, username FROM driveq_schema.users").
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "admin"))

	user, err := userStore.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "admin", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userStore := NewPostgresUserStore(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM driveq_schema.users").
		WithArgs("todelete").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = userStore.Delete(ctx, "todelete")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userStore := NewPostgresUserStore(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM driveq_schema.users").
		WithArgs("nonexistent").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = userStore.Delete(ctx, "nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no user found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"

	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"
)

func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStoreWithDB(db, driver), mock
}

func q(s *Store, query string) string {
	return regexp.QuoteMeta(s.rebind(query))
}

func TestRebind(t *testing.T) {
	mysqlStore := NewStoreWithDB(nil, "mysql")
	pgStore := NewStoreWithDB(nil, "postgres")

	query := "SELECT `id` FROM `user` WHERE `id` = ? AND `email` = ?"
	assert.Equal(t, query, mysqlStore.rebind(query))
	assert.Equal(t, `SELECT "id" FROM "user" WHERE "id" = $1 AND "email" = $2`, pgStore.rebind(query))
}

func TestCreateUserWithKey_MySQL(t *testing.T) {
	store, mock := newMockStore(t, "mysql")
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(q(store, insertAPIKeyQuery)).
		WithArgs("sk-sm-v1-AB", now).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(q(store, insertUserQuery)).
		WithArgs("Ada", "Lovelace", "ada@example.com", int64(11)).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	user := &domain.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	key := &domain.APIKey{Key: "sk-sm-v1-AB", OutOfDate: now}

	err := store.CreateUserWithKey(context.Background(), user, key)
	require.NoError(t, err)
	assert.Equal(t, int64(11), key.ID)
	assert.Equal(t, int64(5), user.ID)
	assert.Equal(t, int64(11), user.APIKeyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserWithKey_Postgres(t *testing.T) {
	store, mock := newMockStore(t, "postgres")

	mock.ExpectBegin()
	mock.ExpectQuery(q(store, insertAPIKeyQuery) + " RETURNING id").
		WithArgs("sk-sm-v1-CD", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(q(store, insertUserQuery) + " RETURNING id").
		WithArgs("Grace", "Hopper", "grace@example.com", int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	user := &domain.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}
	key := &domain.APIKey{Key: "sk-sm-v1-CD", OutOfDate: time.Now()}

	err := store.CreateUserWithKey(context.Background(), user, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.APIKeyID)
	assert.Equal(t, int64(9), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserWithKey_RollbackOnUserInsertFailure(t *testing.T) {
	store, mock := newMockStore(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectExec(q(store, insertAPIKeyQuery)).
		WithArgs("k", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(store, insertUserQuery)).
		WillReturnError(errors.New("duplicate entry"))
	mock.ExpectRollback()

	user := &domain.User{FirstName: "a", LastName: "b", Email: "c"}
	key := &domain.APIKey{Key: "k", OutOfDate: time.Now()}

	err := store.CreateUserWithKey(context.Background(), user, key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert user")
	assert.Zero(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserWithKey(t *testing.T) {
	store, mock := newMockStore(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectQuery(q(store, selectUserKeyQuery)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"api_key_id"}).AddRow(int64(8)))
	mock.ExpectExec(q(store, deleteUserQuery)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(store, deleteAPIKeyQuery)).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.DeleteUserWithKey(context.Background(), 4)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserWithKey_NotFound(t *testing.T) {
	store, mock := newMockStore(t, "postgres")

	mock.ExpectBegin()
	mock.ExpectQuery(q(store, selectUserKeyQuery)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"api_key_id"}))
	mock.ExpectRollback()

	err := store.DeleteUserWithKey(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserWithKey_RollbackOnKeyDeleteFailure(t *testing.T) {
	store, mock := newMockStore(t, "mysql")

	mock.ExpectBegin()
	mock.ExpectQuery(q(store, selectUserKeyQuery)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"api_key_id"}).AddRow(int64(2)))
	mock.ExpectExec(q(store, deleteUserQuery)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(store, deleteAPIKeyQuery)).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := store.DeleteUserWithKey(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersAndKeys(t *testing.T) {
	store, mock := newMockStore(t, "mysql")
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(q(store, listUsersQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "api_key_id"}).
			AddRow(int64(1), "Ada", "Lovelace", "ada@example.com", int64(10)).
			AddRow(int64(2), "Alan", "Turing", "alan@example.com", int64(11)))
	mock.ExpectQuery(q(store, listAPIKeysQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "out_of_date"}).
			AddRow(int64(10), "sk-sm-v1-10", created))

	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alan@example.com", users[1].Email)
	assert.Equal(t, int64(11), users[1].APIKeyID)

	keys, err := store.ListAPIKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, created, keys[0].OutOfDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers_Empty(t *testing.T) {
	store, mock := newMockStore(t, "mysql")

	mock.ExpectQuery(q(store, listUsersQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "api_key_id"}))

	users, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestAdminOperations(t *testing.T) {
	store, mock := newMockStore(t, "postgres")

	mock.ExpectExec(q(store, insertAdminQuery)).
		WithArgs("root@example.com", "hash").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(q(store, selectAdminByEmail)).
		WithArgs("root@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"email", "password"}).AddRow("root@example.com", "hash"))
	mock.ExpectQuery(q(store, selectAdminByEmail)).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"email", "password"}))

	ctx := context.Background()
	require.NoError(t, store.CreateAdmin(ctx, &domain.Admin{Email: "root@example.com", Password: "hash"}))

	admin, err := store.GetAdminByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", admin.Password)

	_, err = store.GetAdminByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrAdminNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStore_UnsupportedDriver(t *testing.T) {
	_, err := NewStore("sqlite", "file::memory:", 1, 1, time.Minute, false)
	assert.Error(t, err)
}

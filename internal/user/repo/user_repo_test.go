package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/user/entity"
)

func newRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password_hash,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)$`
	mock.ExpectExec(q).
		WithArgs("alice", "hash", "administrator").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &entity.User{Username: "alice", PasswordHash: "hash", Role: "administrator"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &entity.User{Username: "alice"})
	assert.EqualError(t, err, "db down")
}

func TestGetByCredentials_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^SELECT\s+username,\s*password_hash,\s*role\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s+AND\s+password_hash\s*=\s*\$2$`
	rows := sqlmock.NewRows([]string{"username", "password_hash", "role"}).
		AddRow("alice", "hash", "administrator")
	mock.ExpectQuery(q).WithArgs("alice", "hash").WillReturnRows(rows)

	got, err := repo.GetByCredentials(context.Background(), "alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, &entity.User{Username: "alice", PasswordHash: "hash", Role: "administrator"}, got)
}

func TestGetByCredentials_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+username`).
		WithArgs("ghost", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "role"}))

	_, err := repo.GetByCredentials(context.Background(), "ghost", "hash")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

func newAdminRepo(t *testing.T) (*pgAdminRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &pgAdminRepository{pool: mock, now: func() time.Time { return fixedNow }}, mock
}

func TestPgAdminRepository_CreateFirst(t *testing.T) {
	admin := func() *model.Admin {
		return &model.Admin{ID: "a1", Username: "root", Email: "root@podpal.io", PasswordHash: "h"}
	}

	t.Run("first admin is created under the lock", func(t *testing.T) {
		repo, mock := newAdminRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs(adminBootstrapLock).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM admins`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectExec(`INSERT INTO admins`).
			WithArgs("a1", "root", "root@podpal.io", "h", fixedNow).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreateFirst(context.Background(), admin()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refused once an admin exists", func(t *testing.T) {
		repo, mock := newAdminRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs(adminBootstrapLock).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM admins`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
		mock.ExpectRollback()

		err := repo.CreateFirst(context.Background(), admin())
		assert.ErrorIs(t, err, common.ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgAdminRepository_FindByIdentifier(t *testing.T) {
	repo, mock := newAdminRepo(t)
	mock.ExpectQuery(`FROM admins WHERE username = \$1`).
		WithArgs("root").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow("a1", "root", "root@podpal.io", "h", fixedNow))

	a, err := repo.FindByIdentifier(context.Background(), model.Identifier{Kind: model.IdentifierName, Value: "root"})
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)

	mock.ExpectQuery(`FROM admins WHERE email = \$1`).WithArgs("x@y.z").WillReturnError(pgx.ErrNoRows)
	_, err = repo.FindByIdentifier(context.Background(), model.Identifier{Kind: model.IdentifierEmail, Value: "x@y.z"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

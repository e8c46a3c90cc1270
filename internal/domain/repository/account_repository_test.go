package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

type prefixHasher struct{ err error }

func (h prefixHasher) Hash(plain string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plain, nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newAccountRepo(t *testing.T, hasher model.PasswordHasher) (*pgAccountRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	repo := &pgAccountRepository{pool: mock, hasher: hasher, now: func() time.Time { return fixedNow }}
	return repo, mock
}

func newSignupPair() (*model.User, *model.Channel) {
	user := &model.User{ID: "u1", Name: "Ann", Email: "ann@x.io", Role: model.RoleUser}
	user.SetPassword("Secret1!")
	channel := &model.Channel{ID: "c1", Name: "Ann's Channel", Slug: "anns-channel", Description: model.DefaultChannelDescription}
	return user, channel
}

func TestPgAccountRepository_CreateUserAndChannel(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "commits both rows",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "Ann", "ann@x.io", "hashed:Secret1!", model.RoleUser, false, fixedNow).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO channels`).
					WithArgs("c1", "u1", "Ann's Channel", "anns-channel", model.DefaultChannelDescription, fixedNow).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "channel failure rolls back the user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "Ann", "ann@x.io", "hashed:Secret1!", model.RoleUser, false, fixedNow).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO channels`).
					WithArgs("c1", "u1", "Ann's Channel", "anns-channel", model.DefaultChannelDescription, fixedNow).
					WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			wantErr: errors.New("disk full"),
		},
		{
			name: "duplicate email is a conflict",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("u1", "Ann", "ann@x.io", "hashed:Secret1!", model.RoleUser, false, fixedNow).
					WillReturnError(&pgconn.PgError{Code: "23505"})
				mock.ExpectRollback()
			},
			wantErr: common.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newAccountRepo(t, prefixHasher{})
			tt.setupMock(mock)

			user, channel := newSignupPair()
			err := repo.CreateUserAndChannel(context.Background(), user, channel)

			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
				assert.Equal(t, "hashed:Secret1!", user.PasswordHash)
				assert.Equal(t, "u1", channel.UserID)
			case errors.Is(tt.wantErr, common.ErrConflict):
				assert.ErrorIs(t, err, common.ErrConflict)
				assert.ErrorIs(t, err, ErrEmailTaken)
			default:
				assert.ErrorContains(t, err, tt.wantErr.Error())
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPgAccountRepository_CreateUserAndChannel_HashFailureWritesNothing(t *testing.T) {
	repo, mock := newAccountRepo(t, prefixHasher{err: errors.New("boom")})

	user, channel := newSignupPair()
	err := repo.CreateUserAndChannel(context.Background(), user, channel)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgAccountRepository_CreateUserAndChannel_SystemAccount(t *testing.T) {
	repo, mock := newAccountRepo(t, prefixHasher{err: errors.New("must not be called")})
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("sys", "System", "system@podpal.local", "", model.RoleUser, true, fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO channels`).
		WithArgs("c2", "sys", "System's Channel", "systems-channel", "", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	user := &model.User{ID: "sys", Name: "System", Email: "system@podpal.local", Role: model.RoleUser, IsSystem: true}
	channel := &model.Channel{ID: "c2", Name: "System's Channel", Slug: "systems-channel"}
	require.NoError(t, repo.CreateUserAndChannel(context.Background(), user, channel))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgAccountRepository_FindUserByIdentifier(t *testing.T) {
	columns := []string{"id", "name", "email", "role", "is_system", "created_at",
		"podcasts", "saved", "recent", "password_hash"}

	t.Run("by email loads the hash", func(t *testing.T) {
		repo, mock := newAccountRepo(t, prefixHasher{})
		rows := pgxmock.NewRows(columns).AddRow("u1", "Ann", "ann@x.io", model.RoleUser, false, fixedNow,
			[]string{}, []string{}, []string{}, "hashed:pw")
		mock.ExpectQuery(`FROM users u WHERE u.email = \$1`).WithArgs("ann@x.io").WillReturnRows(rows)

		user, err := repo.FindUserByIdentifier(context.Background(), model.Identifier{Kind: model.IdentifierEmail, Value: "ann@x.io"})
		require.NoError(t, err)
		assert.Equal(t, "hashed:pw", user.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by name picks the oldest match", func(t *testing.T) {
		repo, mock := newAccountRepo(t, prefixHasher{})
		rows := pgxmock.NewRows(columns).AddRow("u1", "Ann", "ann@x.io", model.RoleUser, false, fixedNow,
			[]string{}, []string{}, []string{}, "hashed:pw")
		mock.ExpectQuery(`WHERE u.name = \$1\s+ORDER BY u.created_at, u.id LIMIT 1`).WithArgs("Ann").WillReturnRows(rows)

		user, err := repo.FindUserByIdentifier(context.Background(), model.Identifier{Kind: model.IdentifierName, Value: "Ann"})
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		repo, mock := newAccountRepo(t, prefixHasher{})
		mock.ExpectQuery(`FROM users u WHERE u.email = \$1`).WithArgs("nobody@x.io").WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindUserByIdentifier(context.Background(), model.Identifier{Kind: model.IdentifierEmail, Value: "nobody@x.io"})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestPgAccountRepository_UpdateUser(t *testing.T) {
	t.Run("name only leaves the password alone", func(t *testing.T) {
		repo, mock := newAccountRepo(t, prefixHasher{})
		mock.ExpectExec(`UPDATE users SET name = \$2 WHERE id = \$1`).
			WithArgs("u1", "Annie").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		user := &model.User{ID: "u1", Name: "Annie"}
		require.NoError(t, repo.UpdateUser(context.Background(), user))
		assert.Empty(t, user.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("staged password is hashed", func(t *testing.T) {
		repo, mock := newAccountRepo(t, prefixHasher{})
		mock.ExpectExec(`UPDATE users SET name = \$2, password_hash = \$3`).
			WithArgs("u1", "Ann", "hashed:NewPass1!").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		user := &model.User{ID: "u1", Name: "Ann"}
		user.SetPassword("NewPass1!")
		require.NoError(t, repo.UpdateUser(context.Background(), user))
		assert.False(t, user.PasswordChanged())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		repo, mock := newAccountRepo(t, prefixHasher{})
		mock.ExpectExec(`UPDATE users`).
			WithArgs("ghost", "x").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateUser(context.Background(), &model.User{ID: "ghost", Name: "x"})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestPgAccountRepository_Subscribe(t *testing.T) {
	repo, mock := newAccountRepo(t, prefixHasher{})
	mock.ExpectExec(`INSERT INTO channel_subscribers`).
		WithArgs("c1", "u2", fixedNow).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Subscribe(context.Background(), "c1", "u2")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgAccountRepository_Stats(t *testing.T) {
	repo, mock := newAccountRepo(t, prefixHasher{})
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(pgxmock.NewRows([]string{"users", "channels", "podcasts", "admins"}).
			AddRow(int64(3), int64(3), int64(7), int64(1)))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Users: 3, Channels: 3, Podcasts: 7, Admins: 1}, stats)
}

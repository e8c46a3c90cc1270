package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

// PgxPool is the subset of *pgxpool.Pool the Postgres repositories use.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository persists users and their channels.
type AccountRepository interface {
	// CreateUserAndChannel writes both records atomically; on failure neither persists.
	CreateUserAndChannel(ctx context.Context, user *model.User, channel *model.Channel) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// FindUserByIdentifier is the only lookup that loads the password hash.
	FindUserByIdentifier(ctx context.Context, id model.Identifier) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	ListUsers(ctx context.Context, limit, offset int) ([]model.User, int64, error)

	FindChannelByUser(ctx context.Context, userID string) (*model.Channel, error)
	FindChannelByID(ctx context.Context, id string) (*model.Channel, error)
	FindChannelBySlug(ctx context.Context, slug string) (*model.Channel, error)
	Subscribe(ctx context.Context, channelID, userID string) error
	Unsubscribe(ctx context.Context, channelID, userID string) error

	Stats(ctx context.Context) (model.Stats, error)
}

type PodcastRepository interface {
	Create(ctx context.Context, podcast *model.Podcast) error
	FindByID(ctx context.Context, id string) (*model.Podcast, error)
	ListByChannel(ctx context.Context, channelID string) ([]model.Podcast, error)
	SaveForUser(ctx context.Context, userID, podcastID string) error
	LikeForChannel(ctx context.Context, channelID, podcastID string) error
	RecordPlay(ctx context.Context, userID, podcastID string) error
}

type AdminRepository interface {
	Create(ctx context.Context, admin *model.Admin) error
	// CreateFirst only succeeds while no admin exists; otherwise it returns common.ErrForbidden.
	CreateFirst(ctx context.Context, admin *model.Admin) error
	FindByIdentifier(ctx context.Context, id model.Identifier) (*model.Admin, error)
}

// ErrEmailTaken marks a conflict on the user email constraint specifically.
var ErrEmailTaken = errors.New("email already registered")

// RecentPlaysLimit bounds the recently-played list kept per user.
const RecentPlaysLimit = 50

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errors.Join(common.ErrConflict, err)
		case pgerrcode.ForeignKeyViolation:
			return errors.Join(common.ErrNotFound, err)
		}
	}
	return err
}

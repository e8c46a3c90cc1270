package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

const (
	userListColumns = `u.id, u.name, u.email, u.role, u.is_system, u.created_at,
		ARRAY(SELECT p.id FROM podcasts p WHERE p.owner_id = u.id ORDER BY p.created_at),
		ARRAY(SELECT s.podcast_id FROM user_saved_podcasts s WHERE s.user_id = u.id ORDER BY s.saved_at),
		ARRAY(SELECT r.podcast_id FROM user_recent_plays r WHERE r.user_id = u.id ORDER BY r.played_at DESC)`

	channelColumns = `c.id, c.user_id, c.name, c.slug, c.description, c.created_at,
		ARRAY(SELECT p.id FROM podcasts p WHERE p.channel_id = c.id ORDER BY p.created_at),
		ARRAY(SELECT l.podcast_id FROM channel_liked_podcasts l WHERE l.channel_id = c.id ORDER BY l.liked_at),
		ARRAY(SELECT s.user_id FROM channel_subscribers s WHERE s.channel_id = c.id ORDER BY s.subscribed_at)`
)

type pgAccountRepository struct {
	pool   PgxPool
	hasher model.PasswordHasher
	now    func() time.Time
}

func NewPgAccountRepository(pool PgxPool, hasher model.PasswordHasher) AccountRepository {
	return &pgAccountRepository{pool: pool, hasher: hasher, now: time.Now}
}

func (r *pgAccountRepository) CreateUserAndChannel(ctx context.Context, user *model.User, channel *model.Channel) error {
	// Hashing is a precondition of persisting; a failure aborts before any write.
	if err := user.HashPendingPassword(r.hasher); err != nil {
		return fmt.Errorf("pgAccountRepository.CreateUserAndChannel: %w", err)
	}

	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UserID = user.ID

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback if not committed

	_, err = tx.Exec(ctx, `INSERT INTO users (id, name, email, password_hash, role, is_system, created_at)
	          VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.IsSystem, user.CreatedAt)
	if err != nil {
		err = translatePgError(err)
		if errors.Is(err, common.ErrConflict) {
			return fmt.Errorf("%w: %w", ErrEmailTaken, err)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO channels (id, user_id, name, slug, description, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`,
		channel.ID, channel.UserID, channel.Name, channel.Slug, channel.Description, channel.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert channel: %w", translatePgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit signup transaction: %w", err)
	}
	return nil
}

func (r *pgAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgAccountRepository.ExistsByEmail: %w", err)
	}
	return exists, nil
}

func (r *pgAccountRepository) FindUserByIdentifier(ctx context.Context, id model.Identifier) (*model.User, error) {
	var where string
	switch id.Kind {
	case model.IdentifierEmail:
		where = `u.email = $1`
	case model.IdentifierName:
		where = `u.name = $1`
	default:
		return nil, fmt.Errorf("unsupported identifier kind %d: %w", id.Kind, common.ErrBadRequest)
	}

	query := `SELECT ` + userListColumns + `, COALESCE(u.password_hash, '')
	          FROM users u WHERE ` + where + `
	          ORDER BY u.created_at, u.id LIMIT 1`
	user := &model.User{}
	err := r.pool.QueryRow(ctx, query, id.Value).Scan(append(userScanTargets(user), &user.PasswordHash)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAccountRepository.FindUserByIdentifier: %w", err)
	}
	return user, nil
}

func (r *pgAccountRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.pool.QueryRow(ctx, `SELECT `+userListColumns+` FROM users u WHERE u.id = $1`, id).
		Scan(userScanTargets(user)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAccountRepository.FindUserByID: %w", err)
	}
	return user, nil
}

// UpdateUser writes profile fields. The password column is only touched when a
// new password was staged with SetPassword.
func (r *pgAccountRepository) UpdateUser(ctx context.Context, user *model.User) error {
	changed := user.PasswordChanged()
	if changed {
		if err := user.HashPendingPassword(r.hasher); err != nil {
			return fmt.Errorf("pgAccountRepository.UpdateUser: %w", err)
		}
	}

	var (
		tag pgconn.CommandTag
		err error
	)
	if changed {
		tag, err = r.pool.Exec(ctx, `UPDATE users SET name = $2, password_hash = $3 WHERE id = $1`,
			user.ID, user.Name, user.PasswordHash)
	} else {
		tag, err = r.pool.Exec(ctx, `UPDATE users SET name = $2 WHERE id = $1`, user.ID, user.Name)
	}
	if err != nil {
		return fmt.Errorf("pgAccountRepository.UpdateUser: %w", translatePgError(err))
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgAccountRepository) ListUsers(ctx context.Context, limit, offset int) ([]model.User, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgAccountRepository.ListUsers count: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+userListColumns+` FROM users u
	          ORDER BY u.created_at, u.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgAccountRepository.ListUsers: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(userScanTargets(&u)...); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return users, total, nil
}

func (r *pgAccountRepository) FindChannelByUser(ctx context.Context, userID string) (*model.Channel, error) {
	return r.findChannel(ctx, `c.user_id = $1`, userID)
}

func (r *pgAccountRepository) FindChannelByID(ctx context.Context, id string) (*model.Channel, error) {
	return r.findChannel(ctx, `c.id = $1`, id)
}

func (r *pgAccountRepository) FindChannelBySlug(ctx context.Context, slug string) (*model.Channel, error) {
	return r.findChannel(ctx, `c.slug = $1`, slug)
}

func (r *pgAccountRepository) findChannel(ctx context.Context, where string, arg string) (*model.Channel, error) {
	ch := &model.Channel{}
	err := r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels c WHERE `+where, arg).Scan(
		&ch.ID, &ch.UserID, &ch.Name, &ch.Slug, &ch.Description, &ch.CreatedAt,
		&ch.PodcastIDs, &ch.LikedPodcastIDs, &ch.SubscriberIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAccountRepository.findChannel: %w", err)
	}
	return ch, nil
}

func (r *pgAccountRepository) Subscribe(ctx context.Context, channelID, userID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO channel_subscribers (channel_id, user_id, subscribed_at)
	          VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, channelID, userID, r.now().UTC())
	if err != nil {
		return fmt.Errorf("pgAccountRepository.Subscribe: %w", translatePgError(err))
	}
	return nil
}

func (r *pgAccountRepository) Unsubscribe(ctx context.Context, channelID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channel_subscribers WHERE channel_id = $1 AND user_id = $2`, channelID, userID)
	if err != nil {
		return fmt.Errorf("pgAccountRepository.Unsubscribe: %w", err)
	}
	return nil
}

func (r *pgAccountRepository) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	err := r.pool.QueryRow(ctx, `SELECT
	          (SELECT COUNT(*) FROM users),
	          (SELECT COUNT(*) FROM channels),
	          (SELECT COUNT(*) FROM podcasts),
	          (SELECT COUNT(*) FROM admins)`).Scan(&s.Users, &s.Channels, &s.Podcasts, &s.Admins)
	if err != nil {
		return model.Stats{}, fmt.Errorf("pgAccountRepository.Stats: %w", err)
	}
	return s, nil
}

func userScanTargets(u *model.User) []any {
	return []any{
		&u.ID, &u.Name, &u.Email, &u.Role, &u.IsSystem, &u.CreatedAt,
		&u.PodcastIDs, &u.SavedPodcastIDs, &u.RecentlyPlayedIDs,
	}
}

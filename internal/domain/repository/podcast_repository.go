package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

const podcastColumns = `id, title, description, owner_id, channel_id, audio_key, audio_url,
	audio_size, content_type, cover_key, cover_url, created_at`

type pgPodcastRepository struct {
	pool PgxPool
	now  func() time.Time
}

func NewPgPodcastRepository(pool PgxPool) PodcastRepository {
	return &pgPodcastRepository{pool: pool, now: time.Now}
}

func (r *pgPodcastRepository) Create(ctx context.Context, p *model.Podcast) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO podcasts (`+podcastColumns+`)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Title, p.Description, p.OwnerID, p.ChannelID, p.AudioKey, p.AudioURL,
		p.AudioSize, p.ContentType, p.CoverKey, p.CoverURL, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgPodcastRepository.Create: %w", translatePgError(err))
	}
	return nil
}

func (r *pgPodcastRepository) FindByID(ctx context.Context, id string) (*model.Podcast, error) {
	p := &model.Podcast{}
	err := r.pool.QueryRow(ctx, `SELECT `+podcastColumns+` FROM podcasts WHERE id = $1`, id).Scan(podcastScanTargets(p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPodcastRepository.FindByID: %w", err)
	}
	return p, nil
}

func (r *pgPodcastRepository) ListByChannel(ctx context.Context, channelID string) ([]model.Podcast, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+podcastColumns+` FROM podcasts
	          WHERE channel_id = $1 ORDER BY created_at DESC`, channelID)
	if err != nil {
		return nil, fmt.Errorf("pgPodcastRepository.ListByChannel: %w", err)
	}
	defer rows.Close()

	podcasts := []model.Podcast{}
	for rows.Next() {
		var p model.Podcast
		if err := rows.Scan(podcastScanTargets(&p)...); err != nil {
			return nil, fmt.Errorf("scan podcast: %w", err)
		}
		podcasts = append(podcasts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate podcasts: %w", err)
	}
	return podcasts, nil
}

func (r *pgPodcastRepository) SaveForUser(ctx context.Context, userID, podcastID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_saved_podcasts (user_id, podcast_id, saved_at)
	          VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, userID, podcastID, r.now().UTC())
	if err != nil {
		return fmt.Errorf("pgPodcastRepository.SaveForUser: %w", translatePgError(err))
	}
	return nil
}

func (r *pgPodcastRepository) LikeForChannel(ctx context.Context, channelID, podcastID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO channel_liked_podcasts (channel_id, podcast_id, liked_at)
	          VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, channelID, podcastID, r.now().UTC())
	if err != nil {
		return fmt.Errorf("pgPodcastRepository.LikeForChannel: %w", translatePgError(err))
	}
	return nil
}

// RecordPlay bumps the podcast to the front of the user's recent plays and trims the tail.
func (r *pgPodcastRepository) RecordPlay(ctx context.Context, userID, podcastID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO user_recent_plays (user_id, podcast_id, played_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, podcast_id) DO UPDATE SET played_at = EXCLUDED.played_at`,
		userID, podcastID, r.now().UTC())
	if err != nil {
		return fmt.Errorf("pgPodcastRepository.RecordPlay: %w", translatePgError(err))
	}

	_, err = tx.Exec(ctx, `DELETE FROM user_recent_plays WHERE user_id = $1 AND podcast_id NOT IN (
	          SELECT podcast_id FROM user_recent_plays WHERE user_id = $1
	          ORDER BY played_at DESC LIMIT $2)`, userID, RecentPlaysLimit)
	if err != nil {
		return fmt.Errorf("trim recent plays: %w", err)
	}

	return tx.Commit(ctx)
}

func podcastScanTargets(p *model.Podcast) []any {
	return []any{
		&p.ID, &p.Title, &p.Description, &p.OwnerID, &p.ChannelID, &p.AudioKey, &p.AudioURL,
		&p.AudioSize, &p.ContentType, &p.CoverKey, &p.CoverURL, &p.CreatedAt,
	}
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

type TranscriptionRepository interface {
	Save(ctx context.Context, t *model.Transcription) error
	FindByID(ctx context.Context, id string) (*model.Transcription, error)
}

const transcriptionKeyPrefix = "transcription:"

type redisTranscriptionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisTranscriptionRepository keeps jobs as JSON documents that expire ttl after their last write.
func NewRedisTranscriptionRepository(rdb redis.Cmdable, ttl time.Duration) TranscriptionRepository {
	return &redisTranscriptionRepository{rdb: rdb, ttl: ttl}
}

// storedTranscription persists the provider ID that API responses omit.
type storedTranscription struct {
	model.Transcription
	ExternalID string `json:"externalId,omitempty"`
}

func (r *redisTranscriptionRepository) Save(ctx context.Context, t *model.Transcription) error {
	payload, err := json.Marshal(storedTranscription{Transcription: *t, ExternalID: t.ExternalID})
	if err != nil {
		return fmt.Errorf("encode transcription %s: %w", t.ID, err)
	}
	if err := r.rdb.Set(ctx, transcriptionKeyPrefix+t.ID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redisTranscriptionRepository.Save: %w", err)
	}
	return nil
}

func (r *redisTranscriptionRepository) FindByID(ctx context.Context, id string) (*model.Transcription, error) {
	payload, err := r.rdb.Get(ctx, transcriptionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redisTranscriptionRepository.FindByID: %w", err)
	}

	var stored storedTranscription
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode transcription %s: %w", id, err)
	}
	t := stored.Transcription
	t.ExternalID = stored.ExternalID
	return &t, nil
}

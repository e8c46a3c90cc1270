package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"podpal/internal/common"
	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
	"podpal/internal/platform/logging"
	"podpal/internal/platform/metrics"
	"podpal/internal/platform/storage"
)

const MaxTitleLength = 200

type PodcastService struct {
	accounts repository.AccountRepository
	podcasts repository.PodcastRepository
	store    storage.Storage
	maxBytes int64
	newID    func() string
}

func NewPodcastService(accounts repository.AccountRepository, podcasts repository.PodcastRepository, store storage.Storage, maxBytes int64) *PodcastService {
	return &PodcastService{
		accounts: accounts,
		podcasts: podcasts,
		store:    store,
		maxBytes: maxBytes,
		newID:    uuid.NewString,
	}
}

// FileInput is one uploaded multipart file.
type FileInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadInput struct {
	Title       string
	Description string
	Audio       *FileInput
	Cover       *FileInput
}

// Upload stores the media, then records the podcast. Stored files are removed
// again if anything after the first write fails.
func (s *PodcastService) Upload(ctx context.Context, userID string, in UploadInput) (*model.Podcast, error) {
	p, err := s.upload(ctx, userID, in)
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrBadRequest) {
			outcome = metrics.OutcomeInvalid
		}
		metrics.RecordUpload(outcome)
		return nil, err
	}
	metrics.RecordUpload(metrics.OutcomeSuccess)
	return p, nil
}

func (s *PodcastService) upload(ctx context.Context, userID string, in UploadInput) (*model.Podcast, error) {
	logger := logging.FromContext(ctx)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, common.NewAPIError(common.ErrValidation, "Title is required")
	}
	if len([]rune(title)) > MaxTitleLength {
		return nil, common.NewAPIError(common.ErrValidation, fmt.Sprintf("Title must be at most %d characters", MaxTitleLength))
	}
	if in.Audio == nil {
		return nil, common.NewAPIError(common.ErrValidation, "Audio file is required")
	}
	if err := s.checkFile(in.Audio, "audio/"); err != nil {
		return nil, err
	}
	if in.Cover != nil {
		if err := s.checkFile(in.Cover, "image/"); err != nil {
			return nil, err
		}
	}

	channel, err := s.accounts.FindChannelByUser(ctx, userID)
	if err != nil {
		return nil, channelLookupError(err)
	}

	id := s.newID()
	p := &model.Podcast{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		OwnerID:     userID,
		ChannelID:   channel.ID,
		AudioKey:    objectKey("audio", id, in.Audio),
		AudioSize:   in.Audio.Size,
		ContentType: in.Audio.ContentType,
	}

	var stored []string
	cleanup := func() {
		for _, key := range stored {
			if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
				logger.ErrorContext(ctx, "failed to remove uploaded file", "key", key, "error", err)
			}
		}
	}

	p.AudioURL, err = s.store.Save(ctx, p.AudioKey, in.Audio.Body, in.Audio.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store audio: %w", err)
	}
	stored = append(stored, p.AudioKey)

	if in.Cover != nil {
		p.CoverKey = objectKey("covers", id, in.Cover)
		p.CoverURL, err = s.store.Save(ctx, p.CoverKey, in.Cover.Body, in.Cover.ContentType)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("store cover: %w", err)
		}
		stored = append(stored, p.CoverKey)
	}

	if err := s.podcasts.Create(ctx, p); err != nil {
		cleanup()
		return nil, fmt.Errorf("save podcast: %w", err)
	}
	logger.InfoContext(ctx, "podcast uploaded", "podcast_id", p.ID, "channel_id", p.ChannelID, "bytes", p.AudioSize)
	return p, nil
}

func (s *PodcastService) Get(ctx context.Context, podcastID string) (*model.Podcast, error) {
	p, err := s.podcasts.FindByID(ctx, podcastID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewAPIError(common.ErrNotFound, "Podcast not found")
		}
		return nil, fmt.Errorf("load podcast: %w", err)
	}
	return p, nil
}

func (s *PodcastService) Save(ctx context.Context, userID, podcastID string) error {
	if _, err := s.Get(ctx, podcastID); err != nil {
		return err
	}
	return s.podcasts.SaveForUser(ctx, userID, podcastID)
}

// Like records the podcast against the caller's own channel.
func (s *PodcastService) Like(ctx context.Context, userID, podcastID string) error {
	if _, err := s.Get(ctx, podcastID); err != nil {
		return err
	}
	channel, err := s.accounts.FindChannelByUser(ctx, userID)
	if err != nil {
		return channelLookupError(err)
	}
	return s.podcasts.LikeForChannel(ctx, channel.ID, podcastID)
}

func (s *PodcastService) Play(ctx context.Context, userID, podcastID string) error {
	if _, err := s.Get(ctx, podcastID); err != nil {
		return err
	}
	return s.podcasts.RecordPlay(ctx, userID, podcastID)
}

func (s *PodcastService) checkFile(f *FileInput, wantPrefix string) error {
	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, wantPrefix) {
		return common.NewAPIError(common.ErrValidation,
			fmt.Sprintf("%s must be an %s* file", f.Filename, wantPrefix))
	}
	f.ContentType = mediaType
	if f.Size <= 0 {
		return common.NewAPIError(common.ErrValidation, fmt.Sprintf("%s is empty", f.Filename))
	}
	if s.maxBytes > 0 && f.Size > s.maxBytes {
		return common.NewAPIError(common.ErrValidation,
			fmt.Sprintf("%s exceeds the %d byte upload limit", f.Filename, s.maxBytes))
	}
	return nil
}

func objectKey(prefix, id string, f *FileInput) string {
	ext := strings.ToLower(path.Ext(f.Filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(f.ContentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return prefix + "/" + id + ext
}

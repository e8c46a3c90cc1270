package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"podpal/internal/common"
	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
	"podpal/internal/platform/logging"
	"podpal/internal/platform/metrics"
	"podpal/internal/platform/transcriber"
)

// Transcriber is the external speech-to-text provider.
type Transcriber interface {
	Submit(ctx context.Context, audioURL string) (transcriber.Result, error)
	Fetch(ctx context.Context, id string) (transcriber.Result, error)
}

type JobQueue interface {
	Push(ctx context.Context, id string) error
}

type TranscriptionService struct {
	jobs     repository.TranscriptionRepository
	podcasts repository.PodcastRepository
	client   Transcriber
	queue    JobQueue
	now      func() time.Time
	newID    func() string
}

func NewTranscriptionService(jobs repository.TranscriptionRepository, podcasts repository.PodcastRepository, client Transcriber, queue JobQueue) *TranscriptionService {
	return &TranscriptionService{
		jobs:     jobs,
		podcasts: podcasts,
		client:   client,
		queue:    queue,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type TranscriptionRequest struct {
	PodcastID string `json:"podcastId"`
	AudioURL  string `json:"audioUrl"`
}

// Submit hands the audio to the provider and queues the job for polling.
func (s *TranscriptionService) Submit(ctx context.Context, userID string, req TranscriptionRequest) (*model.Transcription, error) {
	audioURL := strings.TrimSpace(req.AudioURL)
	podcastID := strings.TrimSpace(req.PodcastID)
	if podcastID != "" {
		p, err := s.podcasts.FindByID(ctx, podcastID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.NewAPIError(common.ErrNotFound, "Podcast not found")
			}
			return nil, fmt.Errorf("load podcast: %w", err)
		}
		audioURL = p.AudioURL
	}
	if audioURL == "" {
		return nil, common.NewAPIError(common.ErrValidation, "podcastId or audioUrl is required")
	}
	if u, err := url.Parse(audioURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, common.NewAPIError(common.ErrValidation, "Audio URL must be an absolute http(s) URL")
	}

	res, err := s.client.Submit(ctx, audioURL)
	if err != nil {
		return nil, common.NewAPIError(common.ErrServiceUnavailable, "Transcription service unavailable").WithCause(err)
	}

	now := s.now().UTC()
	job := &model.Transcription{
		ID:         s.newID(),
		OwnerID:    userID,
		PodcastID:  podcastID,
		AudioURL:   audioURL,
		ExternalID: res.ID,
		Status:     model.TranscriptionSubmitted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save transcription: %w", err)
	}
	if err := s.queue.Push(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("queue transcription: %w", err)
	}

	metrics.RecordTranscription(string(job.Status))
	logging.FromContext(ctx).InfoContext(ctx, "transcription submitted", "transcription_id", job.ID, "external_id", res.ID)
	return job, nil
}

// Get returns the job to its owner; other callers see it as missing.
func (s *TranscriptionService) Get(ctx context.Context, userID, id string) (*model.Transcription, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewAPIError(common.ErrNotFound, "Transcription not found")
		}
		return nil, fmt.Errorf("load transcription: %w", err)
	}
	if job.OwnerID != userID {
		return nil, common.NewAPIError(common.ErrNotFound, "Transcription not found")
	}
	return job, nil
}

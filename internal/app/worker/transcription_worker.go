package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
	"podpal/internal/platform/metrics"
	"podpal/internal/platform/transcriber"
)

// popTimeout bounds each BRPOP so shutdown is noticed promptly.
const popTimeout = 2 * time.Second

var errNotReady = errors.New("transcript not ready")

type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	Requeue(ctx context.Context, id string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, id string) (transcriber.Result, error)
}

type Options struct {
	PollInterval    time.Duration
	PollMaxInterval time.Duration
	Timeout         time.Duration
}

// TranscriptionWorker drives queued jobs from submitted to a terminal state by
// polling the provider with capped exponential backoff.
type TranscriptionWorker struct {
	queue  JobSource
	jobs   repository.TranscriptionRepository
	client Fetcher
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func NewTranscriptionWorker(queue JobSource, jobs repository.TranscriptionRepository, client Fetcher, opts Options, logger *slog.Logger) *TranscriptionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranscriptionWorker{
		queue:  queue,
		jobs:   jobs,
		client: client,
		opts:   opts,
		logger: logger.With("component", "transcription_worker"),
		now:    time.Now,
	}
}

// Start blocks until ctx is cancelled. Jobs are processed one at a time.
func (w *TranscriptionWorker) Start(ctx context.Context) {
	w.logger.InfoContext(ctx, "transcription worker started")
	for {
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "transcription worker stopping")
			return
		}

		id, err := w.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.ErrorContext(ctx, "failed to pop transcription job", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if id == "" {
			continue
		}
		w.Process(ctx, id)
	}
}

// Process polls one job to completion. If ctx ends first the job is put back
// on the queue for the next worker.
func (w *TranscriptionWorker) Process(ctx context.Context, id string) {
	logger := w.logger.With("transcription_id", id)

	job, err := w.jobs.FindByID(ctx, id)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load transcription job", "error", err)
		return
	}
	if job.Status.Terminal() {
		return
	}
	if job.Status == model.TranscriptionSubmitted {
		if err := job.Transition(model.TranscriptionProcessing, w.now().UTC()); err != nil {
			logger.ErrorContext(ctx, "invalid job state", "error", err)
			return
		}
		if err := w.jobs.Save(ctx, job); err != nil {
			logger.ErrorContext(ctx, "failed to save transcription job", "error", err)
		}
	}

	res, err := w.poll(ctx, job)
	if ctx.Err() != nil {
		// Save progress and hand the job back for whoever runs next.
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := w.jobs.Save(bg, job); err != nil {
			logger.ErrorContext(bg, "failed to save transcription job", "error", err)
		}
		if err := w.queue.Requeue(bg, id); err != nil {
			logger.ErrorContext(bg, "failed to requeue transcription job", "error", err)
		}
		return
	}

	now := w.now().UTC()
	switch {
	case err != nil:
		job.Error = err.Error()
		_ = job.Transition(model.TranscriptionFailed, now)
	case res.Status == transcriber.StatusCompleted:
		job.Text = res.Text
		_ = job.Transition(model.TranscriptionCompleted, now)
	default:
		job.Error = res.Error
		if job.Error == "" {
			job.Error = "transcription failed"
		}
		_ = job.Transition(model.TranscriptionFailed, now)
	}

	if err := w.jobs.Save(ctx, job); err != nil {
		logger.ErrorContext(ctx, "failed to save transcription job", "error", err)
		return
	}
	metrics.RecordTranscription(string(job.Status))
	logger.InfoContext(ctx, "transcription finished", "status", job.Status, "polls", job.Polls)
}

func (w *TranscriptionWorker) poll(ctx context.Context, job *model.Transcription) (transcriber.Result, error) {
	b := retry.NewExponential(w.opts.PollInterval)
	b = retry.WithCappedDuration(w.opts.PollMaxInterval, b)
	b = retry.WithMaxDuration(w.opts.Timeout, b)

	var result transcriber.Result
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		res, err := w.client.Fetch(ctx, job.ExternalID)
		job.Polls++
		if err != nil {
			if errors.Is(err, transcriber.ErrTransient) {
				return retry.RetryableError(err)
			}
			return err
		}
		if !res.Done() {
			return retry.RetryableError(errNotReady)
		}
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, errNotReady) {
			return result, fmt.Errorf("timed out after %s", w.opts.Timeout)
		}
		return result, err
	}
	return result, nil
}

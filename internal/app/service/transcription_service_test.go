package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podpal/internal/common"
	"podpal/internal/domain/model"
)

func TestTranscriptionService_Submit(t *testing.T) {
	jobs := newFakeJobs()
	queue := &fakeQueue{}
	podcasts := newFakePodcasts()
	require.NoError(t, podcasts.Create(context.Background(), &model.Podcast{ID: "p1", AudioURL: "https://cdn.test/audio/p1.mp3"}))

	svc := NewTranscriptionService(jobs, podcasts, &fakeTranscriber{}, queue)
	svc.newID = func() string { return "t1" }

	job, err := svc.Submit(context.Background(), "u1", TranscriptionRequest{PodcastID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, model.TranscriptionSubmitted, job.Status)
	assert.Equal(t, "ext-1", job.ExternalID)
	assert.Equal(t, "https://cdn.test/audio/p1.mp3", job.AudioURL)
	assert.Equal(t, []string{"t1"}, queue.ids)

	got, err := svc.Get(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerID)

	_, err = svc.Get(context.Background(), "someone-else", "t1")
	assert.Equal(t, 404, common.HTTPStatusFromError(err))
}

func TestTranscriptionService_Submit_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        TranscriptionRequest
		client     *fakeTranscriber
		wantStatus int
	}{
		{name: "nothing to transcribe", req: TranscriptionRequest{}, client: &fakeTranscriber{}, wantStatus: 400},
		{name: "relative url", req: TranscriptionRequest{AudioURL: "/uploads/a.mp3"}, client: &fakeTranscriber{}, wantStatus: 400},
		{name: "unknown podcast", req: TranscriptionRequest{PodcastID: "nope"}, client: &fakeTranscriber{}, wantStatus: 404},
		{name: "provider down", req: TranscriptionRequest{AudioURL: "https://cdn.test/a.mp3"}, client: &fakeTranscriber{submitErr: errors.New("502")}, wantStatus: 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &fakeQueue{}
			svc := NewTranscriptionService(newFakeJobs(), newFakePodcasts(), tt.client, queue)
			_, err := svc.Submit(context.Background(), "u1", tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, common.HTTPStatusFromError(err))
			assert.Empty(t, queue.ids)
		})
	}
}

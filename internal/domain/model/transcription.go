package model

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/saaskit/pkg/statemachine"
)

type TranscriptionStatus string

const (
	TranscriptionSubmitted  TranscriptionStatus = "submitted"
	TranscriptionProcessing TranscriptionStatus = "processing"
	TranscriptionCompleted  TranscriptionStatus = "completed"
	TranscriptionFailed     TranscriptionStatus = "failed"
)

const (
	transcriptionStart    statemachine.StringEvent = "start"
	transcriptionComplete statemachine.StringEvent = "complete"
	transcriptionFail     statemachine.StringEvent = "fail"
)

var transcriptionFlow = []statemachine.TransitionDef{
	{From: TranscriptionSubmitted, To: TranscriptionProcessing, Event: transcriptionStart},
	{From: TranscriptionSubmitted, To: TranscriptionFailed, Event: transcriptionFail},
	{From: TranscriptionProcessing, To: TranscriptionCompleted, Event: transcriptionComplete},
	{From: TranscriptionProcessing, To: TranscriptionFailed, Event: transcriptionFail},
}

// eventFor names the event that leads into a status.
var eventFor = map[TranscriptionStatus]statemachine.Event{
	TranscriptionProcessing: transcriptionStart,
	TranscriptionCompleted:  transcriptionComplete,
	TranscriptionFailed:     transcriptionFail,
}

// Name makes a status usable as a state machine state.
func (s TranscriptionStatus) Name() string { return string(s) }

func (s TranscriptionStatus) Terminal() bool {
	return s == TranscriptionCompleted || s == TranscriptionFailed
}

type Transcription struct {
	ID         string              `json:"id"`
	OwnerID    string              `json:"owner"`
	PodcastID  string              `json:"podcastId,omitempty"`
	AudioURL   string              `json:"audioUrl"`
	ExternalID string              `json:"-"`
	Status     TranscriptionStatus `json:"status"`
	Text       string              `json:"text,omitempty"`
	Error      string              `json:"error,omitempty"`
	Polls      int                 `json:"polls"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// Transition moves the job to the next state, rejecting moves the state machine does not allow.
func (t *Transcription) Transition(to TranscriptionStatus, now time.Time) error {
	event, ok := eventFor[to]
	if !ok {
		return fmt.Errorf("invalid transcription transition %s -> %s", t.Status, to)
	}
	sm, err := statemachine.New(t.Status, statemachine.WithTransitions(transcriptionFlow))
	if err != nil {
		return err
	}
	if err := sm.Fire(context.Background(), event, t); err != nil {
		return fmt.Errorf("invalid transcription transition %s -> %s: %w", t.Status, to, err)
	}
	t.Status = sm.Current().(TranscriptionStatus)
	t.UpdatedAt = now
	return nil
}

package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a lifecycle event of a form or a submission.
type EventType string

const (
	// Form events
	EventFormPublished   EventType = "form.published"
	EventFormUnpublished EventType = "form.unpublished"
	EventFormDeleted     EventType = "form.deleted"

	// Submission events
	EventSubmissionCreated EventType = "submission.created"
	EventAttemptTimedOut   EventType = "attempt.auto_submitted"
)

const (
	eventSource  = "quizform-service"
	eventVersion = "1.0"
)

// Event is the envelope of every published event.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Form event payloads

type FormPublishedEvent struct {
	FormID        string `json:"form_id"`
	Title         string `json:"title"`
	OwnerID       string `json:"owner_id"`
	QuestionCount int    `json:"question_count"`
	MaxScore      int    `json:"max_score"`
	TimerMinutes  int    `json:"timer_minutes,omitempty"`
}

type FormStatusEvent struct {
	FormID  string `json:"form_id"`
	OwnerID string `json:"owner_id"`
}

// Submission event payloads

type SubmissionCreatedEvent struct {
	SubmissionID  string    `json:"submission_id"`
	FormID        string    `json:"form_id"`
	SubmitterID   string    `json:"submitter_id"`
	Score         int       `json:"score"`
	MaxScore      int       `json:"max_score"`
	TimeSpent     *int      `json:"time_spent,omitempty"`
	AutoSubmitted bool      `json:"auto_submitted"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

func newEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewFormPublishedEvent(formID, title, ownerID string, questionCount, maxScore, timerMinutes int) *Event {
	return newEvent(EventFormPublished, FormPublishedEvent{
		FormID:        formID,
		Title:         title,
		OwnerID:       ownerID,
		QuestionCount: questionCount,
		MaxScore:      maxScore,
		TimerMinutes:  timerMinutes,
	})
}

func NewFormUnpublishedEvent(formID, ownerID string) *Event {
	return newEvent(EventFormUnpublished, FormStatusEvent{FormID: formID, OwnerID: ownerID})
}

func NewFormDeletedEvent(formID, ownerID string) *Event {
	return newEvent(EventFormDeleted, FormStatusEvent{FormID: formID, OwnerID: ownerID})
}

// NewSubmissionCreatedEvent builds the event for a stored submission. A
// submission produced by timer expiry is published as attempt.auto_submitted.
func NewSubmissionCreatedEvent(submissionID, formID, submitterID string, score, maxScore int, timeSpent *int, autoSubmitted bool, submittedAt time.Time) *Event {
	eventType := EventSubmissionCreated
	if autoSubmitted {
		eventType = EventAttemptTimedOut
	}
	return newEvent(eventType, SubmissionCreatedEvent{
		SubmissionID:  submissionID,
		FormID:        formID,
		SubmitterID:   submitterID,
		Score:         score,
		MaxScore:      maxScore,
		TimeSpent:     timeSpent,
		AutoSubmitted: autoSubmitted,
		SubmittedAt:   submittedAt,
	})
}

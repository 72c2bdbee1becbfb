package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/events"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/scoring"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
)

// SubmitInput is a submit action after transport decoding.
type SubmitInput struct {
	Answers       map[string]any
	TimeSpent     *int
	DeviceID      string
	AutoSubmitted bool
}

// SubmissionResult is a stored submission with its re-computed breakdown.
type SubmissionResult struct {
	Submission *models.Submission `json:"submission"`
	Result     scoring.Result     `json:"result"`
	// Verified is false when re-scoring disagrees with the stored score,
	// e.g. because the form's answer key changed since.
	Verified bool `json:"verified"`
}

// SubmissionService records and reads completed attempts
type SubmissionService interface {
	Submit(ctx context.Context, formID string, identity *auth.Identity, input SubmitInput) (*models.Submission, error)
	ListByForm(ctx context.Context, formID, userID string, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error)
	Result(ctx context.Context, formID, submissionID string, identity *auth.Identity) (*SubmissionResult, error)
}

type submissionService struct {
	repo      repositories.Repository
	guard     *SubmissionGuard
	logger    *ServiceLogger
	publisher events.EventPublisher
	clock     func() time.Time

	inflight singleflight.Group
}

func NewSubmissionService(repo repositories.Repository, guard *SubmissionGuard, logger *slog.Logger, publisher events.EventPublisher) SubmissionService {
	return &submissionService{
		repo:      repo,
		guard:     guard,
		logger:    NewServiceLogger(logger, "submission"),
		publisher: publisher,
		clock:     time.Now,
	}
}

// Submit loads the form fresh, runs the guard, scores the raw answers and
// stores the submission. Concurrent identical submits in this process are
// collapsed into one write; across processes the storage uniqueness
// constraint rejects the second exclusive write.
func (s *submissionService) Submit(ctx context.Context, formID string, identity *auth.Identity, input SubmitInput) (submission *models.Submission, err error) {
	submitterID, submitterEmail := auth.Submitter(identity)

	op := s.logger.WithOperation(ctx, "submit", submitterID)
	defer func() { op.LogResult(formID, err) }()

	key := formID + ":" + submitterID + ":" + input.DeviceID
	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		return s.submit(ctx, formID, identity, submitterID, submitterEmail, input)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Submission), nil
}

func (s *submissionService) submit(ctx context.Context, formID string, identity *auth.Identity, submitterID, submitterEmail string, input SubmitInput) (*models.Submission, error) {
	form, err := s.repo.Form().GetByID(ctx, formID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}

	decision, err := s.guard.Check(ctx, form, identity, input.DeviceID)
	if err != nil {
		return nil, err
	}
	// A timed out attempt is still submitted; the caller forces it through
	// with whatever answers were held.
	if decision.Blocked() {
		return nil, &BlockedError{Decision: decision}
	}

	answers := input.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	result := scoring.ScoreForm(form, answers)

	timeSpent := input.TimeSpent
	if timeSpent != nil && *timeSpent < 0 {
		timeSpent = nil
	}

	submission := &models.Submission{
		ID:             uuid.NewString(),
		FormID:         form.ID,
		SubmitterID:    submitterID,
		SubmitterEmail: submitterEmail,
		Answers:        datatypes.JSONMap(answers),
		Score:          result.Total,
		MaxScore:       result.Max,
		TimeSpent:      timeSpent,
		AutoSubmitted:  input.AutoSubmitted || decision.State == DecisionTimedOut,
		Exclusive:      form.OneSubmissionOnly && identity != nil,
		SubmittedAt:    s.clock().UTC(),
	}

	if err := s.repo.Submission().Create(ctx, submission); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, &BlockedError{Decision: blocked(ReasonAlreadySubmitted)}
		}
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	if s.publisher != nil {
		event := events.NewSubmissionCreatedEvent(submission.ID, form.ID, submitterID,
			submission.Score, submission.MaxScore, submission.TimeSpent, submission.AutoSubmitted, submission.SubmittedAt)
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			s.logger.Logger().WarnContext(ctx, "Failed to publish submission event", "submission_id", submission.ID, "error", err)
		}
	}

	return submission, nil
}

// ListByForm returns the form's submissions, newest first. Owner only.
func (s *submissionService) ListByForm(ctx context.Context, formID, userID string, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	if _, err := s.ownedForm(ctx, formID, userID); err != nil {
		return nil, 0, err
	}
	submissions, total, err := s.repo.Submission().ListByForm(ctx, formID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, total, nil
}

// Result re-scores a stored submission against the current questions. The
// form owner and the submitter may read it; anonymous submissions are
// readable by anyone holding the submission id.
func (s *submissionService) Result(ctx context.Context, formID, submissionID string, identity *auth.Identity) (*SubmissionResult, error) {
	form, err := s.repo.Form().GetByID(ctx, formID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}

	submission, err := s.repo.Submission().GetByID(ctx, formID, submissionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	userID, _ := auth.Submitter(identity)
	isOwner := identity != nil && form.CreatedBy == identity.ID
	isSubmitter := submission.SubmitterID == userID
	if !isOwner && !isSubmitter {
		return nil, ErrSubmissionAccessDenied
	}

	result := scoring.ScoreForm(form, submission.Answers)
	return &SubmissionResult{
		Submission: submission,
		Result:     result,
		Verified:   result.Total == submission.Score && result.Max == submission.MaxScore,
	}, nil
}

func (s *submissionService) ownedForm(ctx context.Context, formID, userID string) (*models.Form, error) {
	form, err := s.repo.Form().GetByID(ctx, formID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	if userID == "" || form.CreatedBy != userID {
		return nil, NewPermissionError(userID, formID, "form", "read submissions", "not the owner")
	}
	return form, nil
}

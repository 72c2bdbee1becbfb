package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/cache"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/timer"
)

// AttemptState is where a learner stands on a form.
type AttemptState string

const (
	AttemptNotStarted    AttemptState = "not-started"
	AttemptAwaitingStart AttemptState = "awaiting-start"
	AttemptInProgress    AttemptState = "in-progress"
	AttemptTimedOut      AttemptState = "timed-out"
	AttemptSubmitted     AttemptState = "submitted"
	AttemptBlocked       AttemptState = "blocked"
)

// AttemptView is what a learner sees when opening a form.
type AttemptView struct {
	State    AttemptState `json:"state"`
	Decision Decision     `json:"decision"`
	// Form is the learner view without answer keys. It is withheld unless
	// the learner may answer.
	Form             *models.Form       `json:"form,omitempty"`
	TimerSeconds     int                `json:"timer_seconds,omitempty"`
	RemainingSeconds *int               `json:"remaining_seconds,omitempty"`
	Answers          map[string]any     `json:"answers,omitempty"`
	Submission       *models.Submission `json:"submission,omitempty"`
}

// AttemptService drives a learner through one form: open, start the
// countdown, hold answers, submit. Expiry submits the held answers once.
type AttemptService interface {
	Open(ctx context.Context, formID string, identity *auth.Identity, deviceID string) (*AttemptView, error)
	Start(ctx context.Context, formID string, identity *auth.Identity, deviceID string) (int, error)
	SaveAnswers(ctx context.Context, formID string, identity *auth.Identity, deviceID string, answers map[string]any) error
	Submit(ctx context.Context, formID string, identity *auth.Identity, deviceID string, req *models.SubmitRequest) (*models.Submission, error)
	Remaining(ctx context.Context, formID string, identity *auth.Identity, deviceID string) (int, error)
	// Watch ticks the countdown until it expires or ctx ends, reporting
	// remaining seconds to onTick. Expiry auto-submits.
	Watch(ctx context.Context, formID string, identity *auth.Identity, deviceID string, onTick timer.TickFunc) error
}

type attemptService struct {
	repo        repositories.Repository
	guard       *SubmissionGuard
	submissions SubmissionService
	timers      timer.Store
	answers     *cache.AnswerStore
	clock       timer.Clock
	logger      *slog.Logger
}

func NewAttemptService(
	repo repositories.Repository,
	guard *SubmissionGuard,
	submissions SubmissionService,
	timers timer.Store,
	answers *cache.AnswerStore,
	clock timer.Clock,
	logger *slog.Logger,
) AttemptService {
	if clock == nil {
		clock = timer.SystemClock{}
	}
	return &attemptService{
		repo:        repo,
		guard:       guard,
		submissions: submissions,
		timers:      timers,
		answers:     answers,
		clock:       clock,
		logger:      logger.With("service", "attempt"),
	}
}

// ===== ATTEMPT LIFECYCLE =====

func (s *attemptService) Open(ctx context.Context, formID string, identity *auth.Identity, deviceID string) (*AttemptView, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	decision, err := s.guard.Check(ctx, form, identity, deviceID)
	if err != nil {
		return nil, err
	}

	view := &AttemptView{Decision: decision, TimerSeconds: form.TimerSeconds()}
	switch decision.State {
	case DecisionBlocked:
		view.State = AttemptBlocked
		return view, nil

	case DecisionTimedOut:
		// The countdown ran out while the learner was away.
		submission, err := s.expire(ctx, form, identity, deviceID)
		if err != nil {
			return nil, err
		}
		view.State = AttemptSubmitted
		view.Submission = submission
		return view, nil
	}

	view.Form = form.LearnerView()
	held, err := s.answers.Load(ctx, formID, actorID(identity), deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load held answers: %w", err)
	}
	view.Answers = held

	if !form.EnableTimer {
		view.State = AttemptInProgress
		return view, nil
	}

	cd := s.countdown(form, identity, deviceID)
	remaining, err := cd.Resume(ctx)
	switch {
	case errors.Is(err, timer.ErrNotStarted):
		view.State = AttemptAwaitingStart
	case err != nil:
		return nil, err
	default:
		view.State = AttemptInProgress
		view.RemainingSeconds = &remaining
	}
	return view, nil
}

// Start begins the countdown. Calling it again keeps the original start
// instant and returns the time still left.
func (s *attemptService) Start(ctx context.Context, formID string, identity *auth.Identity, deviceID string) (int, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return 0, err
	}
	if !form.EnableTimer {
		return 0, ErrTimerDisabled
	}

	decision, err := s.guard.Check(ctx, form, identity, deviceID)
	if err != nil {
		return 0, err
	}
	if decision.Blocked() {
		return 0, &BlockedError{Decision: decision}
	}

	cd := s.countdown(form, identity, deviceID)
	remaining, err := cd.Init(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Attempt started",
		"form_id", formID,
		"actor_id", actorID(identity),
		"remaining_seconds", remaining)
	return remaining, nil
}

// SaveAnswers replaces the held answers so a reload or an expiry sees them.
func (s *attemptService) SaveAnswers(ctx context.Context, formID string, identity *auth.Identity, deviceID string, answers map[string]any) error {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return err
	}
	decision, err := s.guard.Check(ctx, form, identity, deviceID)
	if err != nil {
		return err
	}
	if decision.Blocked() {
		return &BlockedError{Decision: decision}
	}
	if decision.State == DecisionTimedOut {
		// Time is up: what is already held gets submitted, nothing new is kept.
		if _, err := s.expire(ctx, form, identity, deviceID); err != nil {
			return err
		}
		return ErrAttemptTimedOut
	}

	if answers == nil {
		answers = map[string]any{}
	}
	return s.answers.Save(ctx, formID, actorID(identity), deviceID, answers)
}

// Submit is the explicit submit. On a timed form the countdown marker is
// claimed first so an expiry racing with this call cannot submit twice.
func (s *attemptService) Submit(ctx context.Context, formID string, identity *auth.Identity, deviceID string, req *models.SubmitRequest) (*models.Submission, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	input := SubmitInput{Answers: req.Answers, TimeSpent: req.TimeSpent, DeviceID: deviceID}
	if !form.EnableTimer {
		return s.finish(ctx, form, identity, input)
	}

	key := s.key(form, identity, deviceID)
	marker, ok, err := s.timers.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load countdown: %w", err)
	}
	if !ok {
		return nil, ErrAttemptNotStarted
	}
	claimed, err := s.timers.Release(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to claim countdown: %w", err)
	}
	if !claimed {
		// Expiry won the race and already submitted.
		return nil, &BlockedError{Decision: blocked(ReasonAlreadySubmitted)}
	}

	now := s.clock.Now()
	if marker.Remaining(now) <= 0 {
		// Past the deadline the request's answers are ignored and the held
		// ones are submitted, as the expiry would have done.
		held, err := s.answers.Load(ctx, formID, actorID(identity), deviceID)
		if err != nil {
			s.restoreCountdown(ctx, key, marker)
			return nil, fmt.Errorf("failed to load held answers: %w", err)
		}
		spent := form.TimerSeconds()
		input = SubmitInput{Answers: held, TimeSpent: &spent, DeviceID: deviceID, AutoSubmitted: true}
	}
	if input.TimeSpent == nil {
		spent := min(int(now.Sub(marker.StartedAt)/time.Second), form.TimerSeconds())
		input.TimeSpent = &spent
	}

	submission, err := s.finish(ctx, form, identity, input)
	if err != nil {
		s.restoreCountdown(ctx, key, marker)
		return nil, err
	}
	return submission, nil
}

func (s *attemptService) Remaining(ctx context.Context, formID string, identity *auth.Identity, deviceID string) (int, error) {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return 0, err
	}
	if !form.EnableTimer {
		return 0, ErrTimerDisabled
	}

	cd := s.countdown(form, identity, deviceID)
	remaining, err := cd.Resume(ctx)
	if errors.Is(err, timer.ErrNotStarted) {
		return 0, ErrAttemptNotStarted
	}
	return remaining, err
}

func (s *attemptService) Watch(ctx context.Context, formID string, identity *auth.Identity, deviceID string, onTick timer.TickFunc) error {
	form, err := s.loadForm(ctx, formID)
	if err != nil {
		return err
	}
	if !form.EnableTimer {
		return ErrTimerDisabled
	}

	cd := s.countdown(form, identity, deviceID, timer.WithTick(onTick))
	if _, err := cd.Resume(ctx); err != nil {
		if errors.Is(err, timer.ErrNotStarted) {
			return ErrAttemptNotStarted
		}
		return err
	}
	return cd.Run(ctx)
}

// ===== HELPERS =====

func (s *attemptService) loadForm(ctx context.Context, formID string) (*models.Form, error) {
	form, err := s.repo.Form().GetByID(ctx, formID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	return form, nil
}

func (s *attemptService) key(form *models.Form, identity *auth.Identity, deviceID string) timer.Key {
	return timer.Key{FormID: form.ID, ActorID: actorID(identity), DeviceID: deviceID}
}

// countdown builds a countdown whose expiry submits the held answers.
func (s *attemptService) countdown(form *models.Form, identity *auth.Identity, deviceID string, opts ...timer.Option) *timer.Countdown {
	timeUp := func(ctx context.Context) error {
		// A closing socket must not abort the submit it triggered.
		_, err := s.autoSubmit(context.WithoutCancel(ctx), form, identity, deviceID)
		return err
	}
	opts = append([]timer.Option{timer.WithClock(s.clock), timer.WithTimeUp(timeUp)}, opts...)
	return timer.New(s.timers, s.key(form, identity, deviceID), time.Duration(form.TimerSeconds())*time.Second, opts...)
}

// expire runs the time-up path of an already expired countdown and returns
// the submission it produced. It returns nil when another caller claimed
// the expiry first.
func (s *attemptService) expire(ctx context.Context, form *models.Form, identity *auth.Identity, deviceID string) (*models.Submission, error) {
	var submission *models.Submission
	timeUp := func(ctx context.Context) error {
		var err error
		submission, err = s.autoSubmit(ctx, form, identity, deviceID)
		return err
	}

	cd := timer.New(s.timers, s.key(form, identity, deviceID), time.Duration(form.TimerSeconds())*time.Second,
		timer.WithClock(s.clock), timer.WithTimeUp(timeUp))
	if _, err := cd.Resume(ctx); err != nil && !errors.Is(err, timer.ErrNotStarted) {
		return nil, err
	}
	return submission, nil
}

func (s *attemptService) autoSubmit(ctx context.Context, form *models.Form, identity *auth.Identity, deviceID string) (*models.Submission, error) {
	held, err := s.answers.Load(ctx, form.ID, actorID(identity), deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load held answers: %w", err)
	}

	spent := form.TimerSeconds()
	submission, err := s.finish(ctx, form, identity, SubmitInput{
		Answers:       held,
		TimeSpent:     &spent,
		DeviceID:      deviceID,
		AutoSubmitted: true,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Auto-submit failed", "form_id", form.ID, "actor_id", actorID(identity), "error", err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Attempt auto-submitted", "form_id", form.ID, "submission_id", submission.ID)
	return submission, nil
}

// finish submits and clears the held answers.
func (s *attemptService) finish(ctx context.Context, form *models.Form, identity *auth.Identity, input SubmitInput) (*models.Submission, error) {
	submission, err := s.submissions.Submit(ctx, form.ID, identity, input)
	if err != nil {
		return nil, err
	}
	if err := s.answers.Clear(ctx, form.ID, actorID(identity), input.DeviceID); err != nil {
		s.logger.WarnContext(ctx, "Failed to clear held answers", "form_id", form.ID, "error", err)
	}
	return submission, nil
}

// restoreCountdown puts a claimed marker back so the learner keeps their
// original start after a failed submit.
func (s *attemptService) restoreCountdown(ctx context.Context, key timer.Key, marker timer.Marker) {
	if _, err := s.timers.Start(context.WithoutCancel(ctx), key, marker); err != nil {
		s.logger.WarnContext(ctx, "Failed to restore countdown", "form_id", key.FormID, "error", err)
	}
}

func actorID(identity *auth.Identity) string {
	id, _ := auth.Submitter(identity)
	return id
}

package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/timer"
)

// DecisionState is the outcome of an eligibility check.
type DecisionState string

const (
	DecisionAllowed  DecisionState = "allowed"
	DecisionBlocked  DecisionState = "blocked"
	DecisionTimedOut DecisionState = "timed-out"
)

type BlockReason string

const (
	ReasonNotPublished     BlockReason = "not-published"
	ReasonLoginRequired    BlockReason = "login-required"
	ReasonAlreadySubmitted BlockReason = "already-submitted"
)

// Decision is a value, not an error: a blocked learner is a normal outcome.
type Decision struct {
	State    DecisionState `json:"state"`
	Reason   BlockReason   `json:"reason,omitempty"`
	Redirect string        `json:"redirect,omitempty"`
}

func (d Decision) Allowed() bool {
	return d.State == DecisionAllowed
}

func (d Decision) Blocked() bool {
	return d.State == DecisionBlocked
}

func allowed() Decision {
	return Decision{State: DecisionAllowed}
}

func blocked(reason BlockReason) Decision {
	return Decision{State: DecisionBlocked, Reason: reason}
}

// LoginRedirect is where a learner is sent to authenticate before taking a form.
func LoginRedirect(formID string) string {
	return "/auth/login?redirect=/forms/" + formID + "/take"
}

// SubmissionGuard decides whether an actor may answer a form right now.
type SubmissionGuard struct {
	submissions repositories.SubmissionRepository
	timers      timer.Store
	clock       timer.Clock
}

func NewSubmissionGuard(repo repositories.Repository, timers timer.Store, clock timer.Clock) *SubmissionGuard {
	if clock == nil {
		clock = timer.SystemClock{}
	}
	return &SubmissionGuard{
		submissions: repo.Submission(),
		timers:      timers,
		clock:       clock,
	}
}

// Check evaluates the rules in a fixed order: publication, login, prior
// submission, timer. The prior submission check is a read; the storage
// uniqueness constraint is what actually prevents a second write.
//
// One submission only is enforced per authenticated identity. Anonymous
// learners cannot be told apart, so they are never blocked by it.
func (g *SubmissionGuard) Check(ctx context.Context, form *models.Form, identity *auth.Identity, deviceID string) (Decision, error) {
	if !form.IsPublished() {
		return blocked(ReasonNotPublished), nil
	}

	if form.RequireLogin && identity == nil {
		d := blocked(ReasonLoginRequired)
		d.Redirect = LoginRedirect(form.ID)
		return d, nil
	}

	if form.OneSubmissionOnly && identity != nil {
		exists, err := g.submissions.ExistsBySubmitter(ctx, form.ID, identity.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to check prior submissions: %w", err)
		}
		if exists {
			return blocked(ReasonAlreadySubmitted), nil
		}
	}

	if form.EnableTimer {
		actorID, _ := auth.Submitter(identity)
		marker, ok, err := g.timers.Load(ctx, timer.Key{FormID: form.ID, ActorID: actorID, DeviceID: deviceID})
		if err != nil {
			return Decision{}, fmt.Errorf("failed to load countdown: %w", err)
		}
		if ok && marker.Remaining(g.clock.Now()) <= 0 {
			return Decision{State: DecisionTimedOut}, nil
		}
	}

	return allowed(), nil
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		form     func(f *models.Form)
		identity *auth.Identity
		prior    *models.Submission
		started  time.Duration // how long ago the countdown started, 0 for none
		want     Decision
	}{
		{
			name: "published form allows anonymous",
			want: Decision{State: DecisionAllowed},
		},
		{
			name: "unpublished form wins over login",
			form: func(f *models.Form) {
				f.Status = models.StatusDraft
				f.RequireLogin = true
			},
			want: Decision{State: DecisionBlocked, Reason: ReasonNotPublished},
		},
		{
			name: "login required for anonymous",
			form: func(f *models.Form) { f.RequireLogin = true },
			want: Decision{State: DecisionBlocked, Reason: ReasonLoginRequired, Redirect: "/auth/login?redirect=/forms/form-1/take"},
		},
		{
			name:     "login satisfied",
			form:     func(f *models.Form) { f.RequireLogin = true },
			identity: learner,
			want:     Decision{State: DecisionAllowed},
		},
		{
			name:     "prior submission blocks",
			form:     func(f *models.Form) { f.OneSubmissionOnly = true },
			identity: learner,
			prior:    &models.Submission{ID: "s0", FormID: "form-1", SubmitterID: learner.ID},
			want:     Decision{State: DecisionBlocked, Reason: ReasonAlreadySubmitted},
		},
		{
			name:     "prior submission of someone else",
			form:     func(f *models.Form) { f.OneSubmissionOnly = true },
			identity: learner,
			prior:    &models.Submission{ID: "s0", FormID: "form-1", SubmitterID: "other"},
			want:     Decision{State: DecisionAllowed},
		},
		{
			name:  "anonymous is never blocked by one submission only",
			form:  func(f *models.Form) { f.OneSubmissionOnly = true },
			prior: &models.Submission{ID: "s0", FormID: "form-1", SubmitterID: models.AnonymousID},
			want:  Decision{State: DecisionAllowed},
		},
		{
			name:     "running countdown",
			form:     func(f *models.Form) { f.EnableTimer, f.TimerMinutes = true, 1 },
			identity: learner,
			started:  30 * time.Second,
			want:     Decision{State: DecisionAllowed},
		},
		{
			name:     "expired countdown",
			form:     func(f *models.Form) { f.EnableTimer, f.TimerMinutes = true, 1 },
			identity: learner,
			started:  61 * time.Second,
			want:     Decision{State: DecisionTimedOut},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			form := env.seedForm(t, tt.form)
			if tt.prior != nil {
				require.NoError(t, env.repo.Submission().Create(ctx, tt.prior))
			}
			if tt.started > 0 {
				actor, _ := auth.Submitter(tt.identity)
				_, err := env.timers.Start(ctx, timer.Key{FormID: form.ID, ActorID: actor, DeviceID: "dev"},
					timer.Marker{StartedAt: env.clock.Now().Add(-tt.started), Duration: time.Minute})
				require.NoError(t, err)
			}

			got, err := env.services.Guard.Check(ctx, form, tt.identity, "dev")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlockedErrorUnwrapsToSentinel(t *testing.T) {
	err := &BlockedError{Decision: blocked(ReasonLoginRequired)}
	assert.ErrorIs(t, err, ErrLoginRequired)

	d, ok := IsBlocked(err)
	require.True(t, ok)
	assert.Equal(t, ReasonLoginRequired, d.Reason)

	assert.True(t, IsConflict(&BlockedError{Decision: blocked(ReasonAlreadySubmitted)}))
}

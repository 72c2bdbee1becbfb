package services

import (
	"context"
	"sync"
	"testing"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/events"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSubmitScoringScenarios(t *testing.T) {
	multi := func(f *models.Form) {
		f.Questions = datatypes.JSONSlice[models.Question]{
			{ID: "m1", Type: models.MultiChoice, Content: "Pick", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: models.MultiChoiceKey(0, 2), Points: 4},
		}
	}

	tests := []struct {
		name     string
		form     func(f *models.Form)
		answers  map[string]any
		total    int
		maxScore int
	}{
		{"all correct with padded text", nil, map[string]any{"q1": 0, "q2": " 42 "}, 5, 5},
		{"all wrong", nil, map[string]any{"q1": 1, "q2": "43"}, 0, 5},
		{"nothing answered", nil, map[string]any{}, 0, 5},
		{"multi choice order independent", multi, map[string]any{"m1": []any{2, 0}}, 4, 4},
		{"multi choice subset", multi, map[string]any{"m1": []any{0}}, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			form := env.seedForm(t, tt.form)

			sub, err := env.services.Submissions.Submit(context.Background(), form.ID, nil, SubmitInput{Answers: tt.answers})
			require.NoError(t, err)
			assert.Equal(t, tt.total, sub.Score)
			assert.Equal(t, tt.maxScore, sub.MaxScore)
			assert.Equal(t, models.AnonymousID, sub.SubmitterID)
			assert.Equal(t, models.AnonymousEmail, sub.SubmitterEmail)
		})
	}
}

func TestSubmitStoresRawAnswersAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	form := env.seedForm(t, nil)

	sub, err := env.services.Submissions.Submit(context.Background(), form.ID, learner, SubmitInput{
		Answers:   map[string]any{"q1": 0, "q2": " 42 "},
		TimeSpent: intPtr(95),
		DeviceID:  "dev",
	})
	require.NoError(t, err)

	stored := env.submissions(t, form.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, sub.ID, stored[0].ID)
	assert.Equal(t, " 42 ", stored[0].Answers["q2"])
	assert.Equal(t, learner.Email, stored[0].SubmitterEmail)
	assert.Equal(t, 95, *stored[0].TimeSpent)
	assert.False(t, stored[0].Exclusive)

	published := env.publisher.EventsOfType(events.EventSubmissionCreated)
	require.Len(t, published, 1)
	assert.Equal(t, 5, published[0].Data.(events.SubmissionCreatedEvent).Score)
}

func TestSubmitBlocked(t *testing.T) {
	ctx := context.Background()

	t.Run("draft form", func(t *testing.T) {
		env := newTestEnv(t)
		form := env.seedForm(t, func(f *models.Form) { f.Status = models.StatusDraft })

		_, err := env.services.Submissions.Submit(ctx, form.ID, learner, SubmitInput{})
		assert.ErrorIs(t, err, ErrFormNotPublished)
		assert.Empty(t, env.submissions(t, form.ID))
	})

	t.Run("login required", func(t *testing.T) {
		env := newTestEnv(t)
		form := env.seedForm(t, func(f *models.Form) { f.RequireLogin = true })

		_, err := env.services.Submissions.Submit(ctx, form.ID, nil, SubmitInput{})
		require.ErrorIs(t, err, ErrLoginRequired)
		d, ok := IsBlocked(err)
		require.True(t, ok)
		assert.Equal(t, LoginRedirect(form.ID), d.Redirect)
	})

	t.Run("unknown form", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.services.Submissions.Submit(ctx, "missing", learner, SubmitInput{})
		assert.ErrorIs(t, err, ErrFormNotFound)
	})
}

func TestSubmitOneSubmissionOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, func(f *models.Form) { f.OneSubmissionOnly = true })

	first, err := env.services.Submissions.Submit(ctx, form.ID, learner, SubmitInput{Answers: map[string]any{"q1": 0}})
	require.NoError(t, err)
	assert.True(t, first.Exclusive)

	_, err = env.services.Submissions.Submit(ctx, form.ID, learner, SubmitInput{Answers: map[string]any{"q1": 1}})
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	// Another device does not help.
	_, err = env.services.Submissions.Submit(ctx, form.ID, learner, SubmitInput{DeviceID: "other"})
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	stored := env.submissions(t, form.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Score)

	// Anonymous learners are not tracked.
	for i := 0; i < 2; i++ {
		_, err := env.services.Submissions.Submit(ctx, form.ID, nil, SubmitInput{})
		require.NoError(t, err)
	}
	assert.Len(t, env.submissions(t, form.ID), 3)
}

func TestSubmitConcurrentExclusiveWritesOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, func(f *models.Form) { f.OneSubmissionOnly = true })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			device := "dev-a"
			if i%2 == 1 {
				device = "dev-b"
			}
			_, err := env.services.Submissions.Submit(ctx, form.ID, learner, SubmitInput{
				Answers:  map[string]any{"q1": 0},
				DeviceID: device,
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrAlreadySubmitted)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, env.submissions(t, form.ID), 1)
}

func TestSubmissionResultAccess(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, nil)

	sub, err := env.services.Submissions.Submit(ctx, form.ID, learner, SubmitInput{Answers: map[string]any{"q1": 0, "q2": "nope"}})
	require.NoError(t, err)

	res, err := env.services.Submissions.Result(ctx, form.ID, sub.ID, learner)
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, 2, res.Result.Total)
	assert.Equal(t, 5, res.Result.Max)

	_, err = env.services.Submissions.Result(ctx, form.ID, sub.ID, owner)
	require.NoError(t, err)

	_, err = env.services.Submissions.Result(ctx, form.ID, sub.ID, &auth.Identity{ID: "stranger"})
	assert.ErrorIs(t, err, ErrSubmissionAccessDenied)

	_, err = env.services.Submissions.Result(ctx, form.ID, "missing", owner)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestSubmissionResultDetectsChangedKey(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, nil)

	sub, err := env.services.Submissions.Submit(ctx, form.ID, learner, SubmitInput{Answers: map[string]any{"q1": 0}})
	require.NoError(t, err)

	form.Questions[0].CorrectAnswer = models.SingleChoiceKey(1)
	require.NoError(t, env.repo.Form().Update(ctx, form))

	res, err := env.services.Submissions.Result(ctx, form.ID, sub.ID, learner)
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, 2, res.Submission.Score)
	assert.Equal(t, 0, res.Result.Total)
}

func TestListSubmissionsOwnerOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, nil)

	for i := 0; i < 3; i++ {
		_, err := env.services.Submissions.Submit(ctx, form.ID, nil, SubmitInput{})
		require.NoError(t, err)
	}

	subs, total, err := env.services.Submissions.ListByForm(ctx, form.ID, owner.ID, repositories.SubmissionFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, subs, 2)
	assert.Equal(t, int64(3), total)

	_, _, err = env.services.Submissions.ListByForm(ctx, form.ID, learner.ID, repositories.SubmissionFilters{})
	assert.True(t, IsUnauthorized(err))
}

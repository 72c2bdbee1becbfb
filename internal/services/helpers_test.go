package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/auth"
	"github.com/SAP-F-2025/quizform-service/internal/cache"
	"github.com/SAP-F-2025/quizform-service/internal/events"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/repositories/memory"
	"github.com/SAP-F-2025/quizform-service/internal/timer"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	repo      *memory.Repository
	timers    *timer.MemoryStore
	answers   *cache.AnswerStore
	publisher *events.MockEventPublisher
	clock     *fakeClock
	services  *ServiceManager
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:      memory.NewRepository(),
		timers:    timer.NewMemoryStore(),
		answers:   cache.NewAnswerStore(cache.NewMemoryCache(), time.Hour),
		publisher: events.NewMockEventPublisher(testLogger()),
		clock:     newFakeClock(),
	}
	env.services = NewServiceManager(Dependencies{
		Repo:          env.repo,
		Timers:        env.timers,
		Answers:       env.answers,
		Publisher:     env.publisher,
		Clock:         env.clock,
		Logger:        testLogger(),
		AutosaveDelay: 20 * time.Millisecond,
	})
	t.Cleanup(env.services.Close)
	return env
}

var (
	owner   = &auth.Identity{ID: "owner-1", Email: "owner@example.com"}
	learner = &auth.Identity{ID: "learner-1", Email: "learner@example.com"}
)

// quizQuestions is the two-question form used across the scoring scenarios.
func quizQuestions() datatypes.JSONSlice[models.Question] {
	return datatypes.JSONSlice[models.Question]{
		{ID: "q1", Type: models.SingleChoice, Content: "Pick A", Options: []string{"A", "B"}, CorrectAnswer: models.SingleChoiceKey(0), Points: 2, Order: 0},
		{ID: "q2", Type: models.FreeText, Content: "The answer", CorrectAnswer: models.FreeTextKey("42"), Points: 3, Order: 1},
	}
}

// seedForm stores a published form owned by owner. mutate adjusts it first.
func (e *testEnv) seedForm(t *testing.T, mutate func(f *models.Form)) *models.Form {
	t.Helper()
	form := &models.Form{
		ID:        "form-1",
		Title:     "Quiz",
		CreatedBy: owner.ID,
		Status:    models.StatusPublished,
		Questions: quizQuestions(),
		CreatedAt: e.clock.Now(),
		UpdatedAt: e.clock.Now(),
	}
	if mutate != nil {
		mutate(form)
	}
	require.NoError(t, e.repo.Form().Create(context.Background(), form))
	return form
}

func (e *testEnv) submissions(t *testing.T, formID string) []*models.Submission {
	t.Helper()
	subs, _, err := e.repo.Submission().ListByForm(context.Background(), formID, repositories.SubmissionFilters{})
	require.NoError(t, err)
	return subs
}

func intPtr(n int) *int {
	return &n
}

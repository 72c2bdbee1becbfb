package services

import (
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/cache"
	"github.com/SAP-F-2025/quizform-service/internal/events"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/timer"
	"github.com/SAP-F-2025/quizform-service/internal/validator"
)

// ServiceManager wires every service from explicit dependencies. Nothing is
// global: two managers over different stores are fully independent.
type ServiceManager struct {
	Forms        FormService
	Submissions  SubmissionService
	Attempts     AttemptService
	Analytics    AnalyticsService
	ImportExport ImportExportService
	Guard        *SubmissionGuard
}

type Dependencies struct {
	Repo      repositories.Repository
	Timers    timer.Store
	Answers   *cache.AnswerStore
	Publisher events.EventPublisher
	Validator *validator.Validator
	Clock     timer.Clock
	Logger    *slog.Logger

	AutosaveDelay time.Duration
}

func NewServiceManager(deps Dependencies) *ServiceManager {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Clock == nil {
		deps.Clock = timer.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	guard := NewSubmissionGuard(deps.Repo, deps.Timers, deps.Clock)
	forms := NewFormService(deps.Repo, deps.Logger, deps.Validator, FormServiceConfig{
		Publisher:     deps.Publisher,
		Answers:       deps.Answers,
		AutosaveDelay: deps.AutosaveDelay,
	})
	submissions := NewSubmissionService(deps.Repo, guard, deps.Logger, deps.Publisher)

	return &ServiceManager{
		Forms:        forms,
		Submissions:  submissions,
		Attempts:     NewAttemptService(deps.Repo, guard, submissions, deps.Timers, deps.Answers, deps.Clock, deps.Logger),
		Analytics:    NewAnalyticsService(deps.Repo, deps.Logger),
		ImportExport: NewImportExportService(deps.Repo, forms, deps.Logger),
		Guard:        guard,
	}
}

// Close flushes pending autosaves.
func (m *ServiceManager) Close() {
	m.Forms.Close()
}

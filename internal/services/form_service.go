package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/cache"
	"github.com/SAP-F-2025/quizform-service/internal/events"
	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/scoring"
	"github.com/SAP-F-2025/quizform-service/internal/validator"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FormService manages forms and their questions on behalf of their owner
type FormService interface {
	// Core CRUD
	Create(ctx context.Context, ownerID string, input *models.FormInput) (*models.Form, error)
	Get(ctx context.Context, id string) (*models.Form, error)
	GetOwned(ctx context.Context, id, userID string) (*models.Form, error)
	ListByOwner(ctx context.Context, ownerID string, filters repositories.FormFilters) ([]*models.Form, int64, error)
	ListPublished(ctx context.Context, filters repositories.FormFilters) ([]*models.Form, int64, error)
	Update(ctx context.Context, id, userID string, input *models.FormInput) (*models.Form, error)
	UpdateSilent(ctx context.Context, id, userID string, input *models.FormInput)
	ScheduleAutosave(ctx context.Context, id, userID string, input *models.FormInput) error
	Delete(ctx context.Context, id, userID string) error

	// Status management
	Publish(ctx context.Context, id, userID string) (*models.Form, error)
	Unpublish(ctx context.Context, id, userID string) (*models.Form, error)

	// Question management
	AddQuestion(ctx context.Context, id, userID string, questionType models.QuestionType) (*models.Question, error)
	UpdateQuestion(ctx context.Context, id, userID string, question *models.Question) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id, userID, questionID string) error
	ReorderQuestions(ctx context.Context, id, userID string, questionIDs []string) (*models.Form, error)
	AppendQuestions(ctx context.Context, id, userID string, questions []models.Question) (*models.Form, error)

	// Close flushes pending autosaves.
	Close()
}

type formService struct {
	repo      repositories.Repository
	logger    *ServiceLogger
	validator *validator.Validator
	publisher events.EventPublisher
	answers   *cache.AnswerStore

	autosaveDelay time.Duration
	autosaveMu    sync.Mutex
	autosaves     map[string]*Debouncer
}

type FormServiceConfig struct {
	Publisher     events.EventPublisher
	Answers       *cache.AnswerStore
	AutosaveDelay time.Duration
}

func NewFormService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, cfg FormServiceConfig) FormService {
	return &formService{
		repo:          repo,
		logger:        NewServiceLogger(logger, "form"),
		validator:     validator,
		publisher:     cfg.Publisher,
		answers:       cfg.Answers,
		autosaveDelay: cfg.AutosaveDelay,
		autosaves:     make(map[string]*Debouncer),
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *formService) Create(ctx context.Context, ownerID string, input *models.FormInput) (form *models.Form, err error) {
	op := s.logger.WithOperation(ctx, "create_form", ownerID)
	defer func() { op.LogResult(formID(form), err) }()

	if ownerID == "" || ownerID == models.AnonymousID {
		return nil, ErrUnauthorized
	}

	form = &models.Form{
		ID:        uuid.NewString(),
		CreatedBy: ownerID,
		Status:    models.StatusDraft,
	}
	input.Apply(form)
	prepareQuestions(form)

	if err = s.validator.Validate(form); err != nil {
		return nil, err
	}

	if err = s.repo.Form().Create(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}
	return form, nil
}

func (s *formService) Get(ctx context.Context, id string) (*models.Form, error) {
	form, err := s.repo.Form().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	return form, nil
}

// GetOwned loads a form and checks that userID owns it.
func (s *formService) GetOwned(ctx context.Context, id, userID string) (*models.Form, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID == "" || form.CreatedBy != userID {
		return nil, NewPermissionError(userID, id, "form", "manage", "not the owner")
	}
	return form, nil
}

func (s *formService) ListByOwner(ctx context.Context, ownerID string, filters repositories.FormFilters) ([]*models.Form, int64, error) {
	filters.CreatedBy = ownerID
	if filters.SortBy == "" {
		filters.SortBy, filters.SortOrder = "updated_at", "desc"
	}
	forms, total, err := s.repo.Form().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list forms: %w", err)
	}
	return forms, total, nil
}

func (s *formService) ListPublished(ctx context.Context, filters repositories.FormFilters) ([]*models.Form, int64, error) {
	status := models.StatusPublished
	filters.Status = &status
	filters.CreatedBy = ""
	if filters.SortBy == "" {
		filters.SortBy, filters.SortOrder = "created_at", "desc"
	}
	forms, total, err := s.repo.Form().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list published forms: %w", err)
	}
	return forms, total, nil
}

// Update is the explicit save: the full rule set applies and every failure
// is returned.
func (s *formService) Update(ctx context.Context, id, userID string, input *models.FormInput) (form *models.Form, err error) {
	op := s.logger.WithOperation(ctx, "update_form", userID)
	defer func() { op.LogResult(id, err) }()

	form, err = s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	input.Apply(form)
	prepareQuestions(form)

	if err = s.validator.Validate(form); err != nil {
		return nil, err
	}
	if err = s.save(ctx, form); err != nil {
		return nil, err
	}

	// An explicit save supersedes any queued autosave.
	if d := s.debouncer(id, false); d != nil {
		d.Cancel()
	}
	return form, nil
}

// UpdateSilent is the autosave path. Input without a title and complete
// questions is dropped so it cannot overwrite real content. Only struct tags
// are checked beyond that, and the status never changes here: publishing
// goes through the explicit save. Failures are logged and dropped.
func (s *formService) UpdateSilent(ctx context.Context, id, userID string, input *models.FormInput) {
	if !input.HasMinimumContent() {
		s.logger.Logger().DebugContext(ctx, "Autosave skipped, form incomplete", "form_id", id)
		return
	}

	form, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		s.logger.Logger().WarnContext(ctx, "Autosave skipped", "form_id", id, "error", err)
		return
	}

	status := form.Status
	input.Apply(form)
	form.Status = status
	prepareQuestions(form)

	if err := s.validator.ValidateStruct(form); err != nil {
		s.logger.Logger().WarnContext(ctx, "Autosave rejected", "form_id", id, "error", err)
		return
	}
	if err := s.save(ctx, form); err != nil {
		s.logger.Logger().ErrorContext(ctx, "Autosave failed", "form_id", id, "error", err)
		return
	}
	s.logger.Logger().DebugContext(ctx, "Autosaved form", "form_id", id)
}

// ScheduleAutosave debounces silent saves per form. Ownership is checked up
// front so the caller learns about a bad request immediately.
func (s *formService) ScheduleAutosave(ctx context.Context, id, userID string, input *models.FormInput) error {
	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return err
	}

	// The form is loaded at this point, so the debouncer may run.
	d := s.debouncer(id, true)
	d.MarkInitialized()

	snapshot := *input
	d.Trigger(func() {
		s.UpdateSilent(context.Background(), id, userID, &snapshot)
	})
	return nil
}

func (s *formService) Delete(ctx context.Context, id, userID string) (err error) {
	op := s.logger.WithOperation(ctx, "delete_form", userID)
	defer func() { op.LogResult(id, err) }()

	if _, err = s.GetOwned(ctx, id, userID); err != nil {
		return err
	}

	if d := s.debouncer(id, false); d != nil {
		d.Cancel()
		s.dropDebouncer(id)
	}

	if err = s.repo.Form().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrFormNotFound
		}
		return fmt.Errorf("failed to delete form: %w", err)
	}

	if s.answers != nil {
		if clearErr := s.answers.ClearForm(ctx, id); clearErr != nil {
			s.logger.Logger().WarnContext(ctx, "Failed to clear held answers", "form_id", id, "error", clearErr)
		}
	}

	s.publish(ctx, events.NewFormDeletedEvent(id, userID))
	return nil
}

// ===== STATUS MANAGEMENT =====

func (s *formService) Publish(ctx context.Context, id, userID string) (form *models.Form, err error) {
	op := s.logger.WithOperation(ctx, "publish_form", userID)
	defer func() { op.LogResult(id, err) }()

	form, err = s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if errs := s.validator.ValidateBusiness(form); len(errs) > 0 {
		return nil, errs
	}

	form.Status = models.StatusPublished
	if err = s.save(ctx, form); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewFormPublishedEvent(form.ID, form.Title, form.CreatedBy,
		len(form.Questions), scoring.MaxScore(form.Questions), form.TimerSeconds()/60))
	return form, nil
}

func (s *formService) Unpublish(ctx context.Context, id, userID string) (form *models.Form, err error) {
	op := s.logger.WithOperation(ctx, "unpublish_form", userID)
	defer func() { op.LogResult(id, err) }()

	form, err = s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	form.Status = models.StatusDraft
	if err = s.save(ctx, form); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewFormUnpublishedEvent(form.ID, form.CreatedBy))
	return form, nil
}

// ===== QUESTION MANAGEMENT =====

// AddQuestion appends a question of the given type with editor defaults.
func (s *formService) AddQuestion(ctx context.Context, id, userID string, questionType models.QuestionType) (*models.Question, error) {
	if !questionType.Valid() {
		return nil, ErrQuestionInvalidType
	}

	form, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	q := NewQuestion(questionType)
	q.Order = len(form.Questions)
	form.Questions = append(form.Questions, q)

	if err := s.save(ctx, form); err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *formService) UpdateQuestion(ctx context.Context, id, userID string, question *models.Question) (*models.Question, error) {
	form, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	existing, ok := form.QuestionByID(question.ID)
	if !ok {
		return nil, ErrQuestionNotFound
	}
	if err := s.validator.ValidateStruct(question); err != nil {
		return nil, toValidation(err)
	}

	order := existing.Order
	*existing = *question
	existing.Order = order
	if existing.Points < 0 {
		existing.Points = 0
	}

	if err := s.save(ctx, form); err != nil {
		return nil, err
	}
	updated := *existing
	return &updated, nil
}

// DeleteQuestion removes a question and re-densifies the remaining orders.
func (s *formService) DeleteQuestion(ctx context.Context, id, userID, questionID string) error {
	form, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return err
	}

	ordered := form.OrderedQuestions()
	kept := make([]models.Question, 0, len(ordered))
	for _, q := range ordered {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	if len(kept) == len(ordered) {
		return ErrQuestionNotFound
	}

	models.Renumber(kept)
	form.Questions = datatypes.JSONSlice[models.Question](kept)
	return s.save(ctx, form)
}

// ReorderQuestions applies a drag-and-drop result. questionIDs must be a
// permutation of the form's question ids.
func (s *formService) ReorderQuestions(ctx context.Context, id, userID string, questionIDs []string) (*models.Form, error) {
	form, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if len(questionIDs) != len(form.Questions) {
		return nil, ErrReorderMismatch
	}

	reordered := make([]models.Question, 0, len(questionIDs))
	seen := make(map[string]struct{}, len(questionIDs))
	for _, qid := range questionIDs {
		q, ok := form.QuestionByID(qid)
		if !ok {
			return nil, ErrReorderMismatch
		}
		if _, dup := seen[qid]; dup {
			return nil, ErrReorderMismatch
		}
		seen[qid] = struct{}{}
		reordered = append(reordered, *q)
	}

	models.Renumber(reordered)
	form.Questions = datatypes.JSONSlice[models.Question](reordered)
	if err := s.save(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

// AppendQuestions adds imported questions after the existing ones with fresh
// ids and orders.
func (s *formService) AppendQuestions(ctx context.Context, id, userID string, questions []models.Question) (*models.Form, error) {
	form, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	ordered := form.OrderedQuestions()
	for _, q := range questions {
		q.ID = uuid.NewString()
		ordered = append(ordered, q)
	}
	models.Renumber(ordered)
	form.Questions = datatypes.JSONSlice[models.Question](ordered)

	if err := s.save(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *formService) Close() {
	s.autosaveMu.Lock()
	pending := make([]*Debouncer, 0, len(s.autosaves))
	for _, d := range s.autosaves {
		pending = append(pending, d)
	}
	s.autosaveMu.Unlock()

	for _, d := range pending {
		d.Flush()
	}
}

// ===== HELPERS =====

// NewQuestion returns a question with the editor defaults for its type.
func NewQuestion(questionType models.QuestionType) models.Question {
	q := models.Question{
		ID:     uuid.NewString(),
		Type:   questionType,
		Points: 1,
	}
	switch questionType {
	case models.SingleChoice:
		q.Options = []string{}
		q.CorrectAnswer = models.SingleChoiceKey(0)
	case models.MultiChoice:
		q.Options = []string{}
		q.CorrectAnswer = models.MultiChoiceKey()
	case models.FreeText:
		q.CorrectAnswer = models.FreeTextKey()
	}
	return q
}

// prepareQuestions assigns missing ids and dense orders.
func prepareQuestions(form *models.Form) {
	ordered := form.OrderedQuestions()
	for i := range ordered {
		if ordered[i].ID == "" {
			ordered[i].ID = uuid.NewString()
		}
	}
	models.Renumber(ordered)
	form.Questions = datatypes.JSONSlice[models.Question](ordered)
}

func (s *formService) save(ctx context.Context, form *models.Form) error {
	if err := s.repo.Form().Update(ctx, form); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrFormNotFound
		}
		return fmt.Errorf("failed to save form: %w", err)
	}
	return nil
}

func (s *formService) debouncer(id string, create bool) *Debouncer {
	s.autosaveMu.Lock()
	defer s.autosaveMu.Unlock()
	d, ok := s.autosaves[id]
	if !ok && create {
		d = NewDebouncer(s.autosaveDelay)
		s.autosaves[id] = d
	}
	return d
}

func (s *formService) dropDebouncer(id string) {
	s.autosaveMu.Lock()
	delete(s.autosaves, id)
	s.autosaveMu.Unlock()
}

func (s *formService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Logger().WarnContext(ctx, "Failed to publish event", "event_type", event.Type, "error", err)
	}
}

func toValidation(err error) error {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	if errs := validator.ToValidationErrors(err); len(errs) > 0 {
		return errs
	}
	return err
}

func formID(form *models.Form) string {
	if form == nil {
		return ""
	}
	return form.ID
}

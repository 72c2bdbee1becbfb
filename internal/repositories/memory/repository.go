// Package memory is an in-process Repository for development and tests. It
// enforces the same exclusive submission constraint as the database backends.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
)

type Repository struct {
	mu          sync.RWMutex
	forms       map[string]models.Form
	submissions map[string][]models.Submission // by form id
}

func NewRepository() *Repository {
	return &Repository{
		forms:       make(map[string]models.Form),
		submissions: make(map[string][]models.Submission),
	}
}

func (r *Repository) Form() repositories.FormRepository {
	return formStore{r}
}

func (r *Repository) Submission() repositories.SubmissionRepository {
	return submissionStore{r}
}

func (r *Repository) Ping(context.Context) error {
	return nil
}

func cloneForm(f models.Form) *models.Form {
	f.Questions = append(f.Questions[:0:0], f.Questions...)
	return &f
}

type formStore struct{ r *Repository }

func (s formStore) Create(_ context.Context, form *models.Form) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.forms[form.ID]; ok {
		return repositories.ErrDuplicate
	}
	s.r.forms[form.ID] = *cloneForm(*form)
	return nil
}

func (s formStore) GetByID(_ context.Context, id string) (*models.Form, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	f, ok := s.r.forms[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneForm(f), nil
}

func (s formStore) Update(_ context.Context, form *models.Form) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	current, ok := s.r.forms[form.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	updated := *cloneForm(*form)
	updated.CreatedBy = current.CreatedBy
	updated.CreatedAt = current.CreatedAt
	s.r.forms[form.ID] = updated
	return nil
}

func (s formStore) Delete(_ context.Context, id string) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	delete(s.r.submissions, id)
	if _, ok := s.r.forms[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.r.forms, id)
	return nil
}

func (s formStore) List(_ context.Context, filters repositories.FormFilters) ([]*models.Form, int64, error) {
	s.r.mu.RLock()
	var out []*models.Form
	search := strings.ToLower(filters.Search)
	for _, f := range s.r.forms {
		if filters.CreatedBy != "" && f.CreatedBy != filters.CreatedBy {
			continue
		}
		if filters.Status != nil && f.Status != *filters.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(f.Title), search) &&
			!strings.Contains(strings.ToLower(f.Description), search) {
			continue
		}
		out = append(out, cloneForm(f))
	}
	s.r.mu.RUnlock()

	asc := strings.EqualFold(filters.SortOrder, "asc")
	sort.SliceStable(out, func(i, j int) bool {
		var less bool
		switch filters.SortBy {
		case "created_at":
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		case "title":
			less = out[i].Title < out[j].Title
		default:
			less = out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		if asc {
			return less
		}
		return !less
	})

	total := int64(len(out))
	return paginate(out, filters.Limit, filters.Offset), total, nil
}

func (s formStore) IsOwner(_ context.Context, formID string, userID string) (bool, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	f, ok := s.r.forms[formID]
	return ok && f.CreatedBy == userID, nil
}

type submissionStore struct{ r *Repository }

func (s submissionStore) Create(_ context.Context, submission *models.Submission) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	existing := s.r.submissions[submission.FormID]
	for _, prior := range existing {
		if prior.ID == submission.ID {
			return repositories.ErrDuplicate
		}
		if submission.Exclusive && prior.Exclusive && prior.SubmitterID == submission.SubmitterID {
			return repositories.ErrDuplicate
		}
	}
	s.r.submissions[submission.FormID] = append(existing, *submission)
	return nil
}

func (s submissionStore) GetByID(_ context.Context, formID, id string) (*models.Submission, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	for _, sub := range s.r.submissions[formID] {
		if sub.ID == id {
			sub := sub
			return &sub, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s submissionStore) ListByForm(_ context.Context, formID string, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	s.r.mu.RLock()
	var out []*models.Submission
	for _, sub := range s.r.submissions[formID] {
		if filters.SubmitterID != "" && sub.SubmitterID != filters.SubmitterID {
			continue
		}
		sub := sub
		out = append(out, &sub)
	}
	s.r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	total := int64(len(out))
	return paginate(out, filters.Limit, filters.Offset), total, nil
}

func (s submissionStore) ExistsBySubmitter(_ context.Context, formID, submitterID string) (bool, error) {
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	for _, sub := range s.r.submissions[formID] {
		if sub.SubmitterID == submitterID {
			return true, nil
		}
	}
	return false, nil
}

func (s submissionStore) DeleteByForm(_ context.Context, formID string) (int64, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	n := int64(len(s.r.submissions[formID]))
	delete(s.r.submissions, formID)
	return n, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

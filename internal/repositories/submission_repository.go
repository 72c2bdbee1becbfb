package repositories

import (
	"context"

	"github.com/SAP-F-2025/quizform-service/internal/models"
)

// SubmissionRepository interface for submissions, always scoped to a form.
type SubmissionRepository interface {
	// Create inserts a submission. An exclusive submission that collides
	// with an earlier one for the same form and submitter yields ErrDuplicate.
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, formID, id string) (*models.Submission, error)

	// ListByForm returns submissions newest first.
	ListByForm(ctx context.Context, formID string, filters SubmissionFilters) ([]*models.Submission, int64, error)
	ExistsBySubmitter(ctx context.Context, formID, submitterID string) (bool, error)

	DeleteByForm(ctx context.Context, formID string) (int64, error)
}

package repositories

import (
	"context"

	"github.com/SAP-F-2025/quizform-service/internal/models"
)

// FormRepository interface for form operations
type FormRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, form *models.Form) error
	GetByID(ctx context.Context, id string) (*models.Form, error)
	Update(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id string) error // Deletes submissions first

	// Query operations
	List(ctx context.Context, filters FormFilters) ([]*models.Form, int64, error)

	// Permission checks
	IsOwner(ctx context.Context, formID string, userID string) (bool, error)
}

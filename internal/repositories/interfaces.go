package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/quizform-service/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness
	// constraint, e.g. a second exclusive submission.
	ErrDuplicate = errors.New("duplicate record")
)

// Repository groups the stores a backend provides.
type Repository interface {
	Form() FormRepository
	Submission() SubmissionRepository
	Ping(ctx context.Context) error
}

// ===== SHARED FILTER STRUCTS =====

type FormFilters struct {
	CreatedBy string             `json:"created_by"`
	Status    *models.FormStatus `json:"status"`
	Search    string             `json:"search"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "updated_at", "title"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type SubmissionFilters struct {
	SubmitterID string `json:"submitter_id"`
	Limit       int    `json:"limit"`
	Offset      int    `json:"offset"`
}

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

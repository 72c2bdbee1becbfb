package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"gorm.io/gorm"
)

type Repository struct {
	db         *gorm.DB
	forms      repositories.FormRepository
	submission repositories.SubmissionRepository
}

func NewRepository(db *gorm.DB) *Repository {
	helpers := NewSharedHelpers(db)
	return &Repository{
		db:         db,
		forms:      &FormPostgreSQL{db: db, helpers: helpers},
		submission: &SubmissionPostgreSQL{db: db},
	}
}

func (r *Repository) Form() repositories.FormRepository {
	return r.forms
}

func (r *Repository) Submission() repositories.SubmissionRepository {
	return r.submission
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates the tables, including the partial unique index
// that enforces one exclusive submission per form and submitter.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&models.Form{}, &models.Submission{}); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}

// ===== SHARED HELPERS =====

type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

var sortableColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
}

// ApplyPaginationAndSort applies ordering from a fixed column whitelist and
// limit/offset pagination.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := sortableColumns[sortBy]
	if !ok {
		column = "updated_at"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	query = query.Order(column + " " + direction)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func (h *SharedHelpers) ApplyFormFilters(query *gorm.DB, filters repositories.FormFilters) *gorm.DB {
	if filters.CreatedBy != "" {
		query = query.Where("created_by = ?", filters.CreatedBy)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", search, search)
	}
	return query
}

// translateError maps gorm errors onto repository errors. The database must
// be opened with TranslateError enabled for duplicates to be recognized.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicate
	default:
		return err
	}
}

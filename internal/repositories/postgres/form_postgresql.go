package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FormPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewFormPostgreSQL(db *gorm.DB) repositories.FormRepository {
	return &FormPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (f *FormPostgreSQL) Create(ctx context.Context, form *models.Form) error {
	if err := f.db.WithContext(ctx).Omit(clause.Associations).Create(form).Error; err != nil {
		return fmt.Errorf("failed to create form: %w", translateError(err))
	}
	return nil
}

func (f *FormPostgreSQL) GetByID(ctx context.Context, id string) (*models.Form, error) {
	var form models.Form
	if err := f.db.WithContext(ctx).First(&form, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &form, nil
}

// Update writes every editable column, zero values included.
func (f *FormPostgreSQL) Update(ctx context.Context, form *models.Form) error {
	result := f.db.WithContext(ctx).
		Model(&models.Form{ID: form.ID}).
		Select("*").
		Omit("id", "created_by", "created_at", clause.Associations).
		Updates(form)
	if result.Error != nil {
		return fmt.Errorf("failed to update form: %w", translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete removes the form's submissions and then the form in one transaction.
func (f *FormPostgreSQL) Delete(ctx context.Context, id string) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return fmt.Errorf("failed to delete submissions: %w", err)
		}

		result := tx.Delete(&models.Form{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete form: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repositories.ErrNotFound
		}
		return nil
	})
}

func (f *FormPostgreSQL) List(ctx context.Context, filters repositories.FormFilters) ([]*models.Form, int64, error) {
	query := f.db.WithContext(ctx).Model(&models.Form{})

	// Apply filters
	query = f.helpers.ApplyFormFilters(query, filters)

	// Count total
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination and ordering
	query = f.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var forms []*models.Form
	if err := query.Find(&forms).Error; err != nil {
		return nil, 0, err
	}

	return forms, total, nil
}

func (f *FormPostgreSQL) IsOwner(ctx context.Context, formID string, userID string) (bool, error) {
	var count int64
	err := f.db.WithContext(ctx).
		Model(&models.Form{}).
		Where("id = ? AND created_by = ?", formID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

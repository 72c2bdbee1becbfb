package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"gorm.io/gorm"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (s *SubmissionPostgreSQL) Create(ctx context.Context, submission *models.Submission) error {
	err := s.db.WithContext(ctx).Create(submission).Error
	if err == nil {
		return nil
	}
	if err = translateError(err); err == repositories.ErrDuplicate {
		return err
	}
	return fmt.Errorf("failed to create submission: %w", err)
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, formID, id string) (*models.Submission, error) {
	var submission models.Submission
	err := s.db.WithContext(ctx).
		Where("form_id = ? AND id = ?", formID, id).
		First(&submission).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) ListByForm(ctx context.Context, formID string, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Submission{}).Where("form_id = ?", formID)
	if filters.SubmitterID != "" {
		query = query.Where("submitter_id = ?", filters.SubmitterID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("submitted_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var submissions []*models.Submission
	if err := query.Find(&submissions).Error; err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

func (s *SubmissionPostgreSQL) ExistsBySubmitter(ctx context.Context, formID, submitterID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("form_id = ? AND submitter_id = ?", formID, submitterID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SubmissionPostgreSQL) DeleteByForm(ctx context.Context, formID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("form_id = ?", formID).Delete(&models.Submission{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete submissions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/spreadsheet"
)

// ImportExportService handles spreadsheet import and export for forms
type ImportExportService interface {
	// Import operations
	ImportQuestions(ctx context.Context, formID, userID, filename string, reader io.Reader) (*ImportResult, error)

	// Export operations
	ExportQuestions(ctx context.Context, formID, userID string, format spreadsheet.Format) ([]byte, error)
	ExportResults(ctx context.Context, formID, userID string) ([]byte, error)
	Template() ([]byte, error)
}

type importExportService struct {
	repo   repositories.Repository
	forms  FormService
	logger *slog.Logger
}

func NewImportExportService(repo repositories.Repository, forms FormService, logger *slog.Logger) ImportExportService {
	return &importExportService{
		repo:   repo,
		forms:  forms,
		logger: logger.With("service", "import_export"),
	}
}

type ImportResult struct {
	Imported int          `json:"imported"`
	Form     *models.Form `json:"form"`
}

// ===== IMPORT OPERATIONS =====

// ImportQuestions appends every question in the file to the form. The file
// is rejected as a whole if any row fails to decode.
func (s *importExportService) ImportQuestions(ctx context.Context, formID, userID, filename string, reader io.Reader) (*ImportResult, error) {
	s.logger.InfoContext(ctx, "Starting question import", "form_id", formID, "filename", filename)

	format, err := spreadsheet.FormatFromFilename(filename)
	if err != nil {
		return nil, ValidationErrors{*NewValidationError("file", "unsupported file format", filename)}
	}

	// Ownership first, so strangers never reach the parser.
	if _, err := s.forms.GetOwned(ctx, formID, userID); err != nil {
		return nil, err
	}

	questions, err := spreadsheet.ReadQuestions(reader, format)
	if err != nil {
		var importErr *spreadsheet.ImportError
		if errors.As(err, &importErr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidImport, importErr.Error())
		}
		return nil, err
	}

	form, err := s.forms.AppendQuestions(ctx, formID, userID, questions)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Question import completed", "form_id", formID, "imported", len(questions))
	return &ImportResult{Imported: len(questions), Form: form}, nil
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportQuestions(ctx context.Context, formID, userID string, format spreadsheet.Format) ([]byte, error) {
	form, err := s.forms.GetOwned(ctx, formID, userID)
	if err != nil {
		return nil, err
	}

	questions := form.OrderedQuestions()
	if err := spreadsheet.CheckExportable(questions); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotExportable, err.Error())
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteQuestions(&buf, format, questions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *importExportService) ExportResults(ctx context.Context, formID, userID string) ([]byte, error) {
	form, err := s.forms.GetOwned(ctx, formID, userID)
	if err != nil {
		return nil, err
	}

	submissions, _, err := s.repo.Submission().ListByForm(ctx, formID, repositories.SubmissionFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteResults(&buf, form, submissions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *importExportService) Template() ([]byte, error) {
	var buf bytes.Buffer
	if err := spreadsheet.WriteTemplate(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package validator

import (
	"fmt"
	"strings"

	apperrors "github.com/SAP-F-2025/quizform-service/internal/errors"
	"github.com/SAP-F-2025/quizform-service/internal/models"
)

// BusinessValidator checks the cross-field rules a form must satisfy before
// an explicit save. Autosave skips these so half-written drafts persist.
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

// Validate dispatches on the value type. Unknown types have no rules.
func (v *BusinessValidator) Validate(s interface{}) ValidationErrors {
	switch t := s.(type) {
	case *models.Form:
		return v.ValidateForm(t)
	case *models.FormInput:
		form := &models.Form{}
		t.Apply(form)
		return v.ValidateForm(form)
	case *models.Question:
		return v.ValidateQuestion(t, "question")
	default:
		return nil
	}
}

// ValidateForm reports every violated rule, not only the first one.
func (v *BusinessValidator) ValidateForm(form *models.Form) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(form.Title) == "" {
		errs = append(errs, apperrors.NewRuleError("title", "form_title", form.Title))
	}
	if len(form.Questions) == 0 {
		errs = append(errs, apperrors.NewRuleError("questions", "form_questions", nil))
	}
	if form.EnableTimer && (form.TimerMinutes < models.MinTimerMinutes || form.TimerMinutes > models.MaxTimerMinutes) {
		errs = append(errs, apperrors.NewRuleError("timer_minutes", "timer_minutes", form.TimerMinutes))
	}

	seen := make(map[string]struct{}, len(form.Questions))
	for i := range form.Questions {
		q := &form.Questions[i]
		prefix := fmt.Sprintf("questions[%d]", i)

		if q.ID != "" {
			if _, dup := seen[q.ID]; dup {
				errs = append(errs, apperrors.NewRuleError(prefix+".id", "question_id", q.ID))
			}
			seen[q.ID] = struct{}{}
		}
		errs = append(errs, v.ValidateQuestion(q, prefix)...)
	}

	return errs
}

// ValidateQuestion checks a single question. field prefixes the reported
// field names.
func (v *BusinessValidator) ValidateQuestion(q *models.Question, field string) ValidationErrors {
	var errs ValidationErrors

	if !q.Type.Valid() {
		errs = append(errs, ValidationError{
			Field:   field + ".type",
			Message: "must be a valid question type (single-choice, multi-choice, free-text)",
			Value:   q.Type,
			Rule:    "question_type",
		})
		return errs
	}
	if strings.TrimSpace(q.Content) == "" {
		errs = append(errs, apperrors.NewRuleError(field+".content", "question_content", q.Content))
	}
	if q.Type.IsChoice() && len(q.Options) == 0 {
		errs = append(errs, apperrors.NewRuleError(field+".options", "question_options", nil))
	}
	if q.Type.IsChoice() && q.CorrectAnswer != nil && len(q.Options) > 0 && !keyInRange(q) {
		errs = append(errs, apperrors.NewRuleError(field+".correct_answer", "correct_answer", nil))
	}

	return errs
}

func keyInRange(q *models.Question) bool {
	n := len(q.Options)
	switch q.Type {
	case models.SingleChoice:
		return q.CorrectAnswer.Index >= 0 && q.CorrectAnswer.Index < n
	case models.MultiChoice:
		for _, i := range q.CorrectAnswer.Indices {
			if i < 0 || i >= n {
				return false
			}
		}
	}
	return true
}

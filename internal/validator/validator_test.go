package validator

import (
	"testing"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func validForm() *models.Form {
	return &models.Form{
		Title:  "Quiz",
		Status: models.StatusDraft,
		Questions: datatypes.JSONSlice[models.Question]{
			{ID: "q1", Type: models.SingleChoice, Content: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: models.SingleChoiceKey(1), Points: 1},
			{ID: "q2", Type: models.FreeText, Content: "Capital of France", CorrectAnswer: models.FreeTextKey("Paris"), Points: 2, Order: 1},
		},
		EnableTimer:  true,
		TimerMinutes: 30,
	}
}

func rules(errs ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Rule
	}
	return out
}

func TestValidateAcceptsValidForm(t *testing.T) {
	assert.NoError(t, New().Validate(validForm()))
}

func TestValidateFormRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *models.Form)
		field  string
		rule   string
	}{
		{"blank title", func(f *models.Form) { f.Title = "  " }, "title", "form_title"},
		{"no questions", func(f *models.Form) { f.Questions = nil }, "questions", "form_questions"},
		{"empty content", func(f *models.Form) { f.Questions[1].Content = "" }, "questions[1].content", "question_content"},
		{"choice without options", func(f *models.Form) { f.Questions[0].Options = nil }, "questions[0].options", "question_options"},
		{"timer too long", func(f *models.Form) { f.TimerMinutes = 181 }, "timer_minutes", "timer_minutes"},
		{"timer zero", func(f *models.Form) { f.TimerMinutes = 0 }, "timer_minutes", "timer_minutes"},
		{"duplicate ids", func(f *models.Form) { f.Questions[1].ID = "q1" }, "questions[1].id", "question_id"},
		{"key out of range", func(f *models.Form) { f.Questions[0].CorrectAnswer = models.SingleChoiceKey(2) }, "questions[0].correct_answer", "correct_answer"},
		{"multi key out of range", func(f *models.Form) {
			f.Questions[0].Type = models.MultiChoice
			f.Questions[0].CorrectAnswer = models.MultiChoiceKey(0, 5)
		}, "questions[0].correct_answer", "correct_answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)

			errs := NewBusinessValidator().ValidateForm(form)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.rule, rules(errs)[tt.field])
		})
	}
}

func TestTimerRangeIgnoredWhenDisabled(t *testing.T) {
	form := validForm()
	form.EnableTimer = false
	form.TimerMinutes = 0
	assert.Empty(t, NewBusinessValidator().ValidateForm(form))
}

func TestValidateReportsEveryRule(t *testing.T) {
	form := &models.Form{EnableTimer: true, TimerMinutes: 500}
	errs := NewBusinessValidator().ValidateForm(form)
	assert.Len(t, errs, 3)
}

func TestStructTagsUseJSONNames(t *testing.T) {
	form := validForm()
	form.Status = "archived"
	form.Questions[0].Type = "essay"

	err := New().Validate(form)
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	got := rules(errs)
	assert.Equal(t, "form_status", got["status"])
	assert.Equal(t, "question_type", got["type"])
}

func TestChoiceOptionsFitSpreadsheetColumns(t *testing.T) {
	form := validForm()
	form.Questions[0].Options = []string{"a", "b", "c", "d", "e"}
	form.Questions[0].CorrectAnswer = models.SingleChoiceKey(4)

	err := New().Validate(form)
	require.Error(t, err)
	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, "max", rules(errs)["options"])
	assert.Equal(t, "must be at most 4 items", errs[0].Message)

	form.Questions[0].Options = form.Questions[0].Options[:models.MaxChoiceOptions]
	form.Questions[0].CorrectAnswer = models.SingleChoiceKey(3)
	assert.NoError(t, New().Validate(form))
}

func TestValidateFormInput(t *testing.T) {
	in := &models.FormInput{Title: "Quiz", EnableTimer: true}
	errs := New().ValidateBusiness(in)
	// timer defaults to 30 minutes on apply, so only the missing questions remain
	require.Len(t, errs, 1)
	assert.Equal(t, "form_questions", errs[0].Rule)
}

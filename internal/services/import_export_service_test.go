package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/spreadsheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const importCSV = "No,Question,Type,Option A,Option B,Option C,Option D,Correct Answer,Points\n" +
	"1,Largest planet,Single choice,Mars,Jupiter,,,B,2\n" +
	"2,Even numbers,Multiple choice,1,2,3,4,\"B, D\",\n" +
	"3,Comments,Text,,,,,,\n"

func TestImportQuestionsAppends(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, nil)

	res, err := env.services.ImportExport.ImportQuestions(ctx, form.ID, owner.ID, "questions.csv", strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)

	ordered := res.Form.OrderedQuestions()
	require.Len(t, ordered, 5)
	assert.Equal(t, "q1", ordered[0].ID)
	assert.Equal(t, "Largest planet", ordered[2].Content)
	assert.Equal(t, 2, ordered[2].Order)
	assert.NotEmpty(t, ordered[2].ID)
	assert.Equal(t, 1, ordered[2].CorrectAnswer.Index)
	assert.Equal(t, []int{1, 3}, ordered[3].CorrectAnswer.Indices)
	assert.Equal(t, 1, ordered[3].Points)
	assert.Nil(t, ordered[4].CorrectAnswer)
}

func TestImportQuestionsRejectsWholeFile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, nil)

	bad := importCSV + "4,Essay,Essay,,,,,,\n"
	_, err := env.services.ImportExport.ImportQuestions(ctx, form.ID, owner.ID, "questions.csv", strings.NewReader(bad))
	require.ErrorIs(t, err, ErrInvalidImport)
	assert.True(t, IsValidation(err))

	stored, err := env.repo.Form().GetByID(ctx, form.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Questions, 2)

	_, err = env.services.ImportExport.ImportQuestions(ctx, form.ID, owner.ID, "questions.pdf", strings.NewReader(importCSV))
	assert.True(t, IsValidation(err))

	_, err = env.services.ImportExport.ImportQuestions(ctx, form.ID, learner.ID, "questions.csv", strings.NewReader(importCSV))
	assert.True(t, IsUnauthorized(err))
}

func TestExportQuestionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, nil)

	data, err := env.services.ImportExport.ExportQuestions(ctx, form.ID, owner.ID, spreadsheet.FormatXLSX)
	require.NoError(t, err)

	questions, err := spreadsheet.ReadQuestions(bytes.NewReader(data), spreadsheet.FormatXLSX)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, models.SingleChoice, questions[0].Type)
	assert.Equal(t, models.FreeTextKey("42"), questions[1].CorrectAnswer)

	_, err = env.services.ImportExport.ExportQuestions(ctx, form.ID, learner.ID, spreadsheet.FormatCSV)
	assert.True(t, IsUnauthorized(err))
}

func TestExportQuestionsRefusesWideChoice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, func(f *models.Form) {
		f.Questions[0].Options = []string{"A", "B", "C", "D", "E"}
		f.Questions[0].CorrectAnswer = models.SingleChoiceKey(4)
	})

	_, err := env.services.ImportExport.ExportQuestions(ctx, form.ID, owner.ID, spreadsheet.FormatCSV)
	assert.ErrorIs(t, err, ErrNotExportable)
}

func TestExportResults(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	form := env.seedForm(t, nil)

	_, err := env.services.Submissions.Submit(ctx, form.ID, learner, SubmitInput{Answers: map[string]any{"q1": 1, "q2": "42"}})
	require.NoError(t, err)

	data, err := env.services.ImportExport.ExportResults(ctx, form.ID, owner.ID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(spreadsheet.ResultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, learner.ID, rows[1][0])
	assert.Equal(t, "3", rows[1][2])
	assert.Equal(t, "B", rows[1][7])
	assert.Equal(t, "42", rows[1][8])
}

func TestTemplate(t *testing.T) {
	env := newTestEnv(t)

	data, err := env.services.ImportExport.Template()
	require.NoError(t, err)

	questions, err := spreadsheet.ReadQuestions(bytes.NewReader(data), spreadsheet.FormatXLSX)
	require.NoError(t, err)
	assert.Len(t, questions, 3)
}

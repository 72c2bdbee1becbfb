package spreadsheet

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

func sampleQuestions() []models.Question {
	return []models.Question{
		{Type: models.SingleChoice, Content: "2+2?", Options: []string{"3", "4", "5"}, CorrectAnswer: models.SingleChoiceKey(1), Points: 1},
		{Type: models.MultiChoice, Content: "Primes", Options: []string{"2", "3", "4", "5"}, CorrectAnswer: models.MultiChoiceKey(0, 1, 3), Points: 3},
		{Type: models.FreeText, Content: "Capital of France", CorrectAnswer: models.FreeTextKey("Paris", "paris city"), Points: 2},
		{Type: models.FreeText, Content: "Say anything", Points: 1},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for i, q := range sampleQuestions() {
		row := EncodeRow(q, i+1)
		got, err := DecodeRow(row)
		require.NoError(t, err)
		assert.Equal(t, q, got, q.Content)
	}
}

func TestEncodeRowLayout(t *testing.T) {
	row := EncodeRow(sampleQuestions()[1], 2)
	assert.Equal(t, []string{"2", "Primes", "Multiple choice", "2", "3", "4", "5", "A, B, D", "3"}, row.Cells())
}

func TestCheckExportable(t *testing.T) {
	assert.NoError(t, CheckExportable(sampleQuestions()))

	wide := models.Question{
		Type:          models.SingleChoice,
		Content:       "Fifth is right",
		Options:       []string{"a", "b", "c", "d", "e"},
		CorrectAnswer: models.SingleChoiceKey(4),
	}
	err := CheckExportable(append(sampleQuestions(), wide))
	require.ErrorIs(t, err, ErrTooManyOptions)
	assert.Contains(t, err.Error(), "question 5 has 5 options")
}

func TestDecodeRowAcceptsLabels(t *testing.T) {
	tests := []struct {
		label string
		want  models.QuestionType
	}{
		{"Single choice", models.SingleChoice},
		{"MULTIPLE CHOICE", models.MultiChoice},
		{" text ", models.FreeText},
		{"Trắc nghiệm", models.SingleChoice},
		{"Nhiều lựa chọn", models.MultiChoice},
		{"Văn bản", models.FreeText},
		{"multi-choice", models.MultiChoice},
		{"", models.SingleChoice},
	}
	for _, tt := range tests {
		got, ok := ParseTypeLabel(tt.label)
		assert.True(t, ok, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}

	_, ok := ParseTypeLabel("essay")
	assert.False(t, ok)
}

func TestDecodeRowDefaultsAndErrors(t *testing.T) {
	q, err := DecodeRow(Row{Content: "Q", Type: "Single choice", Options: [4]string{" a ", "", "b"}, CorrectAnswer: "b", Points: "abc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, q.Options)
	assert.Equal(t, 1, q.CorrectAnswer.Index)
	assert.Equal(t, 1, q.Points)

	q, err = DecodeRow(Row{Content: "Q", Type: "Text", Points: "0"})
	require.NoError(t, err)
	assert.Nil(t, q.CorrectAnswer)
	assert.Equal(t, 1, q.Points)

	_, err = DecodeRow(Row{Number: 4, Content: "Q", Type: "Single choice", Options: [4]string{"a", "b"}, CorrectAnswer: "D"})
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 4, importErr.Row)
	assert.Equal(t, "Correct Answer", importErr.Column)

	_, err = DecodeRow(Row{Number: 5, Content: "Q", Type: "Essay"})
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, "Type", importErr.Column)
}

func TestQuestionsRoundTripThroughFiles(t *testing.T) {
	for _, format := range []Format{FormatXLSX, FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteQuestions(&buf, format, sampleQuestions()))

			got, err := ReadQuestions(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, sampleQuestions(), got)
		})
	}
}

func TestWriteQuestionsXLSXSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQuestions(&buf, FormatXLSX, sampleQuestions()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{QuestionSheet}, f.GetSheetList())
	width, err := f.GetColWidth(QuestionSheet, "B")
	require.NoError(t, err)
	assert.Equal(t, 50.0, width)
}

func TestReadQuestionsVietnameseHeader(t *testing.T) {
	csv := "STT,Nội dung câu hỏi,Loại,Lựa chọn A,Lựa chọn B,Lựa chọn C,Lựa chọn D,Đáp án đúng,Điểm\n" +
		"1,Thủ đô của Việt Nam là gì?,Trắc nghiệm,Hà Nội,Huế,,,A,1\n" +
		"2,,Văn bản,,,,,,\n" +
		"3,Chọn các số chẵn:,Nhiều lựa chọn,2,3,4,5,\"A, C\",2\n"

	got, err := ReadQuestions(strings.NewReader(csv), FormatCSV)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.SingleChoice, got[0].Type)
	assert.Equal(t, []string{"Hà Nội", "Huế"}, got[0].Options)
	assert.Equal(t, []int{0, 2}, got[1].CorrectAnswer.Indices)
	assert.Equal(t, 2, got[1].Points)
}

func TestReadQuestionsRejectsWholeFile(t *testing.T) {
	_, err := ReadQuestions(strings.NewReader("Question,Type\n,Text\n  ,Text\n"), FormatCSV)
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)

	_, err = ReadQuestions(strings.NewReader("Question,Type\nGood,Text\nBad,Essay\n"), FormatCSV)
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 3, importErr.Row)

	_, err = ReadQuestions(strings.NewReader("Foo,Bar\nx,y\n"), FormatCSV)
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 1, importErr.Row)
}

func TestTemplateHasThreeRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	got, err := ReadQuestions(&buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []models.QuestionType{models.SingleChoice, models.MultiChoice, models.FreeText},
		[]models.QuestionType{got[0].Type, got[1].Type, got[2].Type})
}

func TestWriteResults(t *testing.T) {
	form := &models.Form{
		ID: "f1",
		Questions: datatypes.JSONSlice[models.Question]{
			{ID: "q1", Type: models.MultiChoice, Content: "Pick", Options: []string{"a", "b", "c"}, Points: 1},
			{ID: "q2", Type: models.FreeText, Content: "Say", Points: 1, Order: 1},
		},
	}
	spent := 42
	subs := []*models.Submission{{
		SubmitterID: "u1",
		Score:       1,
		MaxScore:    2,
		TimeSpent:   &spent,
		Answers:     datatypes.JSONMap{"q1": []any{float64(2), float64(0)}, "q2": " hello "},
		SubmittedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, form, subs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ResultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Q1. Pick", rows[0][7])
	assert.Equal(t, []string{"u1", "", "1", "2", "42", "2025-01-02 03:04:05", "false", "a, c", "hello"}, rows[1])
}

func TestParseFormat(t *testing.T) {
	f, err := FormatFromFilename("questions.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = FormatFromFilename("questions.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

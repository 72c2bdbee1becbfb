package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/scoring"
	"github.com/xuri/excelize/v2"
)

const (
	QuestionSheet = "Questions"
	ResultSheet   = "Results"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// columnWidths matches the question layout, in characters.
var columnWidths = []float64{5, 50, 15, 25, 25, 25, 25, 15, 8}

// ParseFormat accepts "xlsx" or "csv"; empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// FormatFromFilename picks the format from the file extension.
func FormatFromFilename(name string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// ===== QUESTIONS =====

// WriteQuestions exports questions in their display order.
func WriteQuestions(w io.Writer, format Format, questions []models.Question) error {
	rows := make([][]string, 0, len(questions)+1)
	rows = append(rows, Header)
	for i, q := range questions {
		rows = append(rows, EncodeRow(q, i+1).Cells())
	}

	if format == FormatCSV {
		return writeCSV(w, rows)
	}
	return writeXLSX(w, QuestionSheet, rows, columnWidths)
}

// WriteTemplate writes an xlsx with one sample row per question type.
func WriteTemplate(w io.Writer) error {
	samples := []models.Question{
		{
			Type:          models.SingleChoice,
			Content:       "What is the capital of Vietnam?",
			Options:       []string{"Hà Nội", "Hồ Chí Minh", "Đà Nẵng", "Huế"},
			CorrectAnswer: models.SingleChoiceKey(0),
			Points:        1,
		},
		{
			Type:          models.MultiChoice,
			Content:       "Select the even numbers:",
			Options:       []string{"2", "3", "4", "5"},
			CorrectAnswer: models.MultiChoiceKey(0, 2),
			Points:        2,
		},
		{
			Type:          models.FreeText,
			Content:       "How many provinces does Vietnam have?",
			CorrectAnswer: models.FreeTextKey("63"),
			Points:        1,
		},
	}
	return WriteQuestions(w, FormatXLSX, samples)
}

// ReadQuestions decodes a question file. Rows with blank content are skipped.
// Any row that fails to decode rejects the whole file, as does a file with
// no usable rows.
func ReadQuestions(r io.Reader, format Format) ([]models.Question, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ImportError{Message: "file is empty"}
	}

	columns, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	var questions []models.Question
	for i, record := range records[1:] {
		row := rowFromRecord(record, columns, i+2)
		if row.Empty() {
			continue
		}
		q, err := DecodeRow(row)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, &ImportError{Message: "no questions with content found"}
	}
	return questions, nil
}

func mapHeader(header []string) (map[int]int, error) {
	columns := make(map[int]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if col, ok := headerAliases[key]; ok {
			if _, seen := columns[col]; !seen {
				columns[col] = i
			}
		}
	}
	if _, ok := columns[ColContent]; !ok {
		return nil, &ImportError{Row: 1, Column: Header[ColContent], Message: "header row is missing the question column"}
	}
	return columns, nil
}

func rowFromRecord(record []string, columns map[int]int, number int) Row {
	cell := func(col int) string {
		i, ok := columns[col]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	row := Row{
		Number:        number,
		Index:         cell(ColIndex),
		Content:       cell(ColContent),
		Type:          cell(ColType),
		CorrectAnswer: cell(ColCorrectAnswer),
		Points:        cell(ColPoints),
	}
	for i := range row.Options {
		row.Options[i] = cell(ColOptionA + i)
	}
	return row
}

// ===== RESULTS =====

// WriteResults exports submissions as xlsx, one row per submission and one
// column per question holding the display form of the answer.
func WriteResults(w io.Writer, form *models.Form, submissions []*models.Submission) error {
	questions := form.OrderedQuestions()

	header := []string{"Submitter", "Email", "Score", "Max Score", "Time Spent (s)", "Submitted At", "Auto Submitted"}
	for i, q := range questions {
		header = append(header, fmt.Sprintf("Q%d. %s", i+1, q.Content))
	}

	rows := make([][]string, 0, len(submissions)+1)
	rows = append(rows, header)
	for _, sub := range submissions {
		row := []string{
			sub.SubmitterID,
			sub.SubmitterEmail,
			strconv.Itoa(sub.Score),
			strconv.Itoa(sub.MaxScore),
			"",
			sub.SubmittedAt.Format("2006-01-02 15:04:05"),
			strconv.FormatBool(sub.AutoSubmitted),
		}
		if sub.TimeSpent != nil {
			row[4] = strconv.Itoa(*sub.TimeSpent)
		}
		for i := range questions {
			row = append(row, DisplayAnswer(&questions[i], sub.Answers[questions[i].ID]))
		}
		rows = append(rows, row)
	}

	widths := []float64{25, 30, 8, 10, 14, 20, 14}
	for range questions {
		widths = append(widths, 30)
	}
	return writeXLSX(w, ResultSheet, rows, widths)
}

// DisplayAnswer renders a raw answer for people: option labels for choice
// questions, the text itself for free text.
func DisplayAnswer(q *models.Question, answer any) string {
	if answer == nil {
		return ""
	}
	if q.Type == models.FreeText {
		if s, ok := scoring.AsText(answer); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}

	labels := make([]string, 0, 1)
	for _, idx := range scoring.Selections(q, answer) {
		if idx < len(q.Options) {
			labels = append(labels, q.Options[idx])
		}
	}
	return strings.Join(labels, ", ")
}

// ===== LOW LEVEL =====

func writeXLSX(w io.Writer, sheet string, rows [][]string, widths []float64) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet so the workbook holds exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write Excel row: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ImportError{Message: fmt.Sprintf("failed to open Excel file: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ImportError{Message: "Excel file has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return rows, nil
}

func writeCSV(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ImportError{Message: fmt.Sprintf("failed to read CSV: %v", err)}
	}
	return records, nil
}

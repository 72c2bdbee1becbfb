// Package spreadsheet converts questions to and from the one-row-per-question
// layout used for xlsx and csv import and export.
package spreadsheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quizform-service/internal/models"
)

// OptionColumns is the number of option columns in the layout.
const OptionColumns = models.MaxChoiceOptions

// Column positions within a row.
const (
	ColIndex = iota
	ColContent
	ColType
	ColOptionA
	ColOptionB
	ColOptionC
	ColOptionD
	ColCorrectAnswer
	ColPoints
	columnCount
)

// Header is the header row written on export.
var Header = []string{"No", "Question", "Type", "Option A", "Option B", "Option C", "Option D", "Correct Answer", "Points"}

// headerAliases maps accepted header spellings, lower-cased, to columns.
var headerAliases = map[string]int{
	"no": ColIndex, "#": ColIndex, "stt": ColIndex,
	"question": ColContent, "content": ColContent, "nội dung câu hỏi": ColContent,
	"type": ColType, "loại": ColType,
	"option a": ColOptionA, "lựa chọn a": ColOptionA,
	"option b": ColOptionB, "lựa chọn b": ColOptionB,
	"option c": ColOptionC, "lựa chọn c": ColOptionC,
	"option d": ColOptionD, "lựa chọn d": ColOptionD,
	"correct answer": ColCorrectAnswer, "answer": ColCorrectAnswer, "đáp án đúng": ColCorrectAnswer,
	"points": ColPoints, "điểm": ColPoints,
}

// Type labels written on export.
const (
	LabelSingleChoice = "Single choice"
	LabelMultiChoice  = "Multiple choice"
	LabelText         = "Text"
)

// typeLabels maps accepted labels, lower-cased, to question types.
var typeLabels = map[string]models.QuestionType{
	"single choice":   models.SingleChoice,
	"multiple choice": models.MultiChoice,
	"text":            models.FreeText,
	"trắc nghiệm":     models.SingleChoice,
	"nhiều lựa chọn":  models.MultiChoice,
	"văn bản":         models.FreeText,
	"single-choice":   models.SingleChoice,
	"multi-choice":    models.MultiChoice,
	"free-text":       models.FreeText,
	"radio":           models.SingleChoice,
	"checkbox":        models.MultiChoice,
}

// Row is one question in spreadsheet form. Number is the 1-based sheet row,
// used for error reporting only.
type Row struct {
	Number        int
	Index         string
	Content       string
	Type          string
	Options       [OptionColumns]string
	CorrectAnswer string
	Points        string
}

// ImportError locates a decoding failure in the source file.
type ImportError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

func (e *ImportError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("import failed: %s", e.Message)
	}
	return fmt.Sprintf("import failed at row %d, column %q: %s", e.Row, e.Column, e.Message)
}

// Cells returns the row as strings in column order.
func (r Row) Cells() []string {
	cells := make([]string, columnCount)
	cells[ColIndex] = r.Index
	cells[ColContent] = r.Content
	cells[ColType] = r.Type
	for i, opt := range r.Options {
		cells[ColOptionA+i] = opt
	}
	cells[ColCorrectAnswer] = r.CorrectAnswer
	cells[ColPoints] = r.Points
	return cells
}

// Empty reports whether the question content is blank. Such rows are skipped.
func (r Row) Empty() bool {
	return strings.TrimSpace(r.Content) == ""
}

// TypeLabel returns the export label for a question type.
func TypeLabel(t models.QuestionType) string {
	switch t {
	case models.MultiChoice:
		return LabelMultiChoice
	case models.FreeText:
		return LabelText
	default:
		return LabelSingleChoice
	}
}

// ParseTypeLabel accepts English labels, the Vietnamese labels and raw type
// keys, case-insensitively. A blank label means single choice.
func ParseTypeLabel(label string) (models.QuestionType, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return models.SingleChoice, true
	}
	t, ok := typeLabels[key]
	return t, ok
}

// EncodeRow renders a question. position is its 1-based place in the list.
func EncodeRow(q models.Question, position int) Row {
	row := Row{
		Index:         strconv.Itoa(position),
		Content:       q.Content,
		Type:          TypeLabel(q.Type),
		CorrectAnswer: encodeAnswer(q),
		Points:        strconv.Itoa(q.Points),
	}
	if q.Type.IsChoice() {
		copy(row.Options[:], q.Options)
	}
	return row
}

var ErrTooManyOptions = errors.New("question has more options than the layout holds")

// CheckExportable refuses questions the layout cannot hold, so an export
// always imports back.
func CheckExportable(questions []models.Question) error {
	for i, q := range questions {
		if q.Type.IsChoice() && len(q.Options) > OptionColumns {
			return fmt.Errorf("%w: question %d has %d options, at most %d fit", ErrTooManyOptions, i+1, len(q.Options), OptionColumns)
		}
	}
	return nil
}

// DecodeRow parses a row into a question without id or order.
func DecodeRow(row Row) (models.Question, error) {
	t, ok := ParseTypeLabel(row.Type)
	if !ok {
		return models.Question{}, &ImportError{Row: row.Number, Column: Header[ColType], Message: fmt.Sprintf("unknown question type %q", row.Type)}
	}

	q := models.Question{
		Type:    t,
		Content: strings.TrimSpace(row.Content),
		Points:  parsePoints(row.Points),
	}

	if t.IsChoice() {
		q.Options = []string{}
		for _, opt := range row.Options {
			if opt = strings.TrimSpace(opt); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
	}

	key, err := decodeAnswer(t, row.CorrectAnswer, len(q.Options))
	if err != nil {
		return models.Question{}, &ImportError{Row: row.Number, Column: Header[ColCorrectAnswer], Message: err.Error()}
	}
	q.CorrectAnswer = key
	return q, nil
}

// Letter converts a zero-based option index to its column letter.
func Letter(index int) string {
	if index < 0 || index >= 26 {
		return ""
	}
	return string(rune('A' + index))
}

func encodeAnswer(q models.Question) string {
	if q.CorrectAnswer == nil {
		return ""
	}
	switch q.Type {
	case models.SingleChoice:
		return Letter(q.CorrectAnswer.Index)
	case models.MultiChoice:
		letters := make([]string, 0, len(q.CorrectAnswer.Indices))
		for _, i := range q.CorrectAnswer.Indices {
			if l := Letter(i); l != "" {
				letters = append(letters, l)
			}
		}
		return strings.Join(letters, ", ")
	case models.FreeText:
		return strings.Join(q.CorrectAnswer.Texts, ", ")
	}
	return ""
}

// decodeAnswer parses the correct-answer cell. A blank cell leaves the
// question ungraded.
func decodeAnswer(t models.QuestionType, cell string, options int) (*models.CorrectAnswer, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}

	switch t {
	case models.SingleChoice:
		idx, err := parseLetter(cell, options)
		if err != nil {
			return nil, err
		}
		return models.SingleChoiceKey(idx), nil
	case models.MultiChoice:
		var indices []int
		seen := make(map[int]struct{})
		for _, part := range strings.Split(cell, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			idx, err := parseLetter(part, options)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[idx]; !dup {
				seen[idx] = struct{}{}
				indices = append(indices, idx)
			}
		}
		return models.MultiChoiceKey(indices...), nil
	default:
		var texts []string
		for _, part := range strings.Split(cell, ",") {
			if part = strings.TrimSpace(part); part != "" {
				texts = append(texts, part)
			}
		}
		return models.FreeTextKey(texts...), nil
	}
}

func parseLetter(s string, options int) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || s[0] < 'A' || s[0] > 'Z' {
		return 0, fmt.Errorf("expected an option letter, got %q", s)
	}
	idx := int(s[0] - 'A')
	if idx >= options {
		return 0, fmt.Errorf("option %s does not exist", s)
	}
	return idx, nil
}

func parsePoints(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 1 {
		return int(f)
	}
	return 1
}

package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type QuestionType string

const (
	SingleChoice QuestionType = "single-choice"
	MultiChoice  QuestionType = "multi-choice"
	FreeText     QuestionType = "free-text"
)

// IsChoice reports whether answers to the type are option indices.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == MultiChoice
}

func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultiChoice, FreeText:
		return true
	}
	return false
}

// CorrectAnswer is the answer key of a question. Which field is meaningful
// depends on the owning question's type:
//
//	single-choice -> Index
//	multi-choice  -> Indices (a set, order irrelevant)
//	free-text     -> Texts (any one match is sufficient)
//
// A question without a CorrectAnswer is ungraded.
type CorrectAnswer struct {
	Index   int      `json:"index" bson:"index"`
	Indices []int    `json:"indices,omitempty" bson:"indices,omitempty"`
	Texts   []string `json:"texts,omitempty" bson:"texts,omitempty"`
}

func SingleChoiceKey(index int) *CorrectAnswer {
	return &CorrectAnswer{Index: index}
}

func MultiChoiceKey(indices ...int) *CorrectAnswer {
	return &CorrectAnswer{Indices: append([]int{}, indices...)}
}

func FreeTextKey(texts ...string) *CorrectAnswer {
	return &CorrectAnswer{Texts: append([]string{}, texts...)}
}

// MaxChoiceOptions is the most options a choice question may carry, one per
// option column of the spreadsheet layout.
const MaxChoiceOptions = 4

type Question struct {
	ID            string         `json:"id" bson:"id"`
	Type          QuestionType   `json:"type" bson:"type" validate:"required,question_type"`
	Content       string         `json:"content" bson:"content" validate:"max=5000"`
	Options       []string       `json:"options,omitempty" bson:"options,omitempty" validate:"max=4"`
	CorrectAnswer *CorrectAnswer `json:"-" bson:"correct_answer,omitempty"`
	Points        int            `json:"points" bson:"points" validate:"min=0,max=1000"`
	Order         int            `json:"order" bson:"order" validate:"min=0"`
}

// Graded reports whether the question carries an answer key.
func (q *Question) Graded() bool {
	return q.CorrectAnswer != nil
}

// questionJSON is the wire shape. The answer key travels in the compact form
// clients use: a number, an array of numbers or an array of strings.
type questionJSON struct {
	ID            string          `json:"id"`
	Type          QuestionType    `json:"type"`
	Content       string          `json:"content"`
	Options       []string        `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Points        int             `json:"points"`
	Order         int             `json:"order"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	out := questionJSON{
		ID:      q.ID,
		Type:    q.Type,
		Content: q.Content,
		Options: q.Options,
		Points:  q.Points,
		Order:   q.Order,
	}
	if q.CorrectAnswer != nil {
		raw, err := q.CorrectAnswer.encode(q.Type)
		if err != nil {
			return nil, err
		}
		out.CorrectAnswer = raw
	}
	return json.Marshal(out)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var in questionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	key, err := ParseCorrectAnswer(in.Type, in.CorrectAnswer)
	if err != nil {
		return err
	}
	*q = Question{
		ID:            in.ID,
		Type:          in.Type,
		Content:       in.Content,
		Options:       in.Options,
		CorrectAnswer: key,
		Points:        in.Points,
		Order:         in.Order,
	}
	return nil
}

// WithoutAnswerKey returns a copy safe to show to a learner.
func (q Question) WithoutAnswerKey() Question {
	q.CorrectAnswer = nil
	return q
}

func (c *CorrectAnswer) encode(t QuestionType) (json.RawMessage, error) {
	switch t {
	case SingleChoice:
		return json.Marshal(c.Index)
	case MultiChoice:
		indices := c.Indices
		if indices == nil {
			indices = []int{}
		}
		return json.Marshal(indices)
	case FreeText:
		texts := c.Texts
		if texts == nil {
			texts = []string{}
		}
		return json.Marshal(texts)
	default:
		return nil, fmt.Errorf("correct_answer: unknown question type %q", t)
	}
}

// ParseCorrectAnswer decodes the compact wire form of an answer key for the
// given question type. A missing or null key yields nil (ungraded).
func ParseCorrectAnswer(t QuestionType, raw json.RawMessage) (*CorrectAnswer, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	switch t {
	case SingleChoice:
		var index json.Number
		if err := json.Unmarshal(raw, &index); err != nil {
			return nil, fmt.Errorf("correct_answer: single-choice expects an option index: %w", err)
		}
		n, err := index.Int64()
		if err != nil {
			return nil, fmt.Errorf("correct_answer: single-choice expects an integer index: %w", err)
		}
		return SingleChoiceKey(int(n)), nil
	case MultiChoice:
		var indices []int
		if err := json.Unmarshal(raw, &indices); err != nil {
			return nil, fmt.Errorf("correct_answer: multi-choice expects a list of option indices: %w", err)
		}
		return MultiChoiceKey(indices...), nil
	case FreeText:
		var texts []string
		if err := json.Unmarshal(raw, &texts); err != nil {
			return nil, fmt.Errorf("correct_answer: free-text expects a list of strings: %w", err)
		}
		return FreeTextKey(texts...), nil
	default:
		return nil, fmt.Errorf("correct_answer: unknown question type %q", t)
	}
}

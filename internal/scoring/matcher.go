// Package scoring decides whether submitted answers are correct and turns
// those decisions into submission scores. Nothing in here returns an error:
// submitted data is untrusted and possibly stale, so malformed input degrades
// to "unanswered" or "incorrect".
package scoring

import (
	"sort"

	"github.com/SAP-F-2025/quizform-service/internal/models"
)

type Outcome int

const (
	Unanswered Outcome = iota
	Incorrect
	Correct
	// Ungraded marks a question without an answer key.
	Ungraded
)

func (o Outcome) String() string {
	switch o {
	case Unanswered:
		return "unanswered"
	case Incorrect:
		return "incorrect"
	case Correct:
		return "correct"
	case Ungraded:
		return "ungraded"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// IsCorrect reports whether answer fully matches the question's answer key.
func IsCorrect(q *models.Question, answer any) bool {
	return Match(q, answer) == Correct
}

// Lookup evaluates the answer stored under the question's id. An id missing
// from answers is unanswered.
func Lookup(q *models.Question, answers map[string]any) Outcome {
	answer, ok := answers[q.ID]
	if !ok {
		return Match(q, nil)
	}
	return Match(q, answer)
}

// Match classifies one submitted answer. A nil answer is unanswered.
func Match(q *models.Question, answer any) Outcome {
	if q == nil || q.CorrectAnswer == nil {
		return Ungraded
	}
	if answer == nil {
		return Unanswered
	}

	key := q.CorrectAnswer
	switch q.Type {
	case models.SingleChoice:
		return matchSingle(q, key, answer)
	case models.MultiChoice:
		return matchMulti(key, answer)
	case models.FreeText:
		return matchText(key, answer)
	default:
		return Ungraded
	}
}

func matchSingle(q *models.Question, key *models.CorrectAnswer, answer any) Outcome {
	idx, ok := AsIndex(answer)
	if !ok || idx <= NoSelection {
		return Unanswered
	}
	if idx >= len(q.Options) {
		return Incorrect
	}
	if idx == key.Index {
		return Correct
	}
	return Incorrect
}

func matchMulti(key *models.CorrectAnswer, answer any) Outcome {
	submitted, ok := AsIndexSet(answer)
	if !ok {
		return Unanswered
	}
	expected := toSet(key.Indices)
	if len(submitted) != len(expected) {
		return Incorrect
	}
	for idx := range submitted {
		if _, hit := expected[idx]; !hit {
			return Incorrect
		}
	}
	return Correct
}

func matchText(key *models.CorrectAnswer, answer any) Outcome {
	text, ok := AsText(answer)
	if !ok {
		return Unanswered
	}
	got := Normalize(text)
	for _, accepted := range key.Texts {
		if Normalize(accepted) == got {
			return Correct
		}
	}
	return Incorrect
}

// Selections returns the option indices an answer selects, sorted. Sentinel
// and malformed answers select nothing. Free-text questions never select.
func Selections(q *models.Question, answer any) []int {
	if q == nil || answer == nil {
		return nil
	}
	switch q.Type {
	case models.SingleChoice:
		idx, ok := AsIndex(answer)
		if !ok || idx < 0 {
			return nil
		}
		return []int{idx}
	case models.MultiChoice:
		set, ok := AsIndexSet(answer)
		if !ok {
			return nil
		}
		out := make([]int, 0, len(set))
		for idx := range set {
			if idx >= 0 {
				out = append(out, idx)
			}
		}
		sort.Ints(out)
		return out
	}
	return nil
}

package scoring

import "github.com/SAP-F-2025/quizform-service/internal/models"

type QuestionResult struct {
	QuestionID string  `json:"question_id"`
	Outcome    Outcome `json:"outcome"`
	Points     int     `json:"points"`
	Awarded    int     `json:"awarded"`
}

type Result struct {
	Total     int              `json:"total"`
	Max       int              `json:"max"`
	Questions []QuestionResult `json:"questions"`
}

// Score recomputes a submission's score from its raw answers. Credit is all
// or nothing per question. Ungraded questions still count towards Max.
//
// Score is a pure function of its inputs, so re-scoring a stored submission
// against the same questions always reproduces the stored result.
func Score(questions []models.Question, answers map[string]any) Result {
	res := Result{Questions: make([]QuestionResult, 0, len(questions))}
	for i := range questions {
		q := &questions[i]
		points := nonNegative(q.Points)
		outcome := Lookup(q, answers)

		qr := QuestionResult{QuestionID: q.ID, Outcome: outcome, Points: points}
		if outcome == Correct {
			qr.Awarded = points
		}
		res.Total += qr.Awarded
		res.Max += points
		res.Questions = append(res.Questions, qr)
	}
	return res
}

// ScoreForm scores answers against the form's questions.
func ScoreForm(form *models.Form, answers map[string]any) Result {
	if form == nil {
		return Result{}
	}
	return Score(form.Questions, answers)
}

// MaxScore is the sum of all question points, independent of any answers.
func MaxScore(questions []models.Question) int {
	total := 0
	for _, q := range questions {
		total += nonNegative(q.Points)
	}
	return total
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

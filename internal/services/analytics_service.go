package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"github.com/SAP-F-2025/quizform-service/internal/scoring"
)

// AnalyticsService builds owner-facing reports over a form's submissions
type AnalyticsService interface {
	GetFormReport(ctx context.Context, formID, userID string) (*FormReport, error)
}

type analyticsService struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewAnalyticsService(repo repositories.Repository, logger *slog.Logger) AnalyticsService {
	return &analyticsService{
		repo:   repo,
		logger: logger.With("service", "analytics"),
		now:    time.Now,
	}
}

// ===== DATA STRUCTURES =====

type FormReport struct {
	FormID            string           `json:"form_id"`
	Title             string           `json:"title"`
	SubmissionCount   int              `json:"submission_count"`
	MaxScore          int              `json:"max_score"`
	AverageScore      float64          `json:"average_score"`
	AverageTimeSpent  int              `json:"average_time_spent"` // seconds
	HighestScore      int              `json:"highest_score"`
	LowestScore       int              `json:"lowest_score"`
	ScoreDistribution []ScoreBucket    `json:"score_distribution"`
	Questions         []QuestionReport `json:"questions"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// ScoreBucket counts submissions whose score falls in [From, To) percent of
// the maximum. The last bucket includes 100.
type ScoreBucket struct {
	Label string `json:"label"`
	From  int    `json:"from"`
	To    int    `json:"to"`
	Count int    `json:"count"`
}

type QuestionReport struct {
	QuestionID    string              `json:"question_id"`
	Content       string              `json:"content"`
	Type          models.QuestionType `json:"type"`
	Points        int                 `json:"points"`
	Graded        bool                `json:"graded"`
	AnsweredCount int                 `json:"answered_count"`
	CorrectCount  int                 `json:"correct_count"`
	CorrectRate   int                 `json:"correct_rate"` // percent of all submissions
	Difficulty    string              `json:"difficulty,omitempty"`
	Options       []OptionTally       `json:"options,omitempty"`
	TextAnswers   []TextTally         `json:"text_answers,omitempty"`
}

type OptionTally struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	IsCorrect  bool    `json:"is_correct"`
}

// TextTally groups free-text answers that normalize to the same value. Value
// is the first spelling seen, trimmed.
type TextTally struct {
	Value     string `json:"value"`
	Count     int    `json:"count"`
	IsCorrect bool   `json:"is_correct"`
}

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ===== REPORTS =====

func (s *analyticsService) GetFormReport(ctx context.Context, formID, userID string) (*FormReport, error) {
	form, err := s.repo.Form().GetByID(ctx, formID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	if userID == "" || form.CreatedBy != userID {
		return nil, NewPermissionError(userID, formID, "form", "read report", "not the owner")
	}

	submissions, _, err := s.repo.Submission().ListByForm(ctx, formID, repositories.SubmissionFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	report := BuildFormReport(form, submissions)
	report.GeneratedAt = s.now().UTC()

	s.logger.DebugContext(ctx, "Built form report", "form_id", formID, "submissions", report.SubmissionCount)
	return report, nil
}

// BuildFormReport computes the report from the form and all its
// submissions. Correctness is re-derived from the raw answers.
func BuildFormReport(form *models.Form, submissions []*models.Submission) *FormReport {
	report := &FormReport{
		FormID:            form.ID,
		Title:             form.Title,
		SubmissionCount:   len(submissions),
		MaxScore:          scoring.MaxScore(form.Questions),
		ScoreDistribution: scoreDistribution(form, submissions),
		Questions:         make([]QuestionReport, 0, len(form.Questions)),
	}

	totalScore, timed, totalTime := 0, 0, 0
	for i, sub := range submissions {
		totalScore += sub.Score
		if i == 0 || sub.Score > report.HighestScore {
			report.HighestScore = sub.Score
		}
		if i == 0 || sub.Score < report.LowestScore {
			report.LowestScore = sub.Score
		}
		if sub.TimeSpent != nil {
			timed++
			totalTime += *sub.TimeSpent
		}
	}
	if len(submissions) > 0 {
		report.AverageScore = round2(float64(totalScore) / float64(len(submissions)))
	}
	if timed > 0 {
		report.AverageTimeSpent = int(math.Round(float64(totalTime) / float64(timed)))
	}

	for _, q := range form.OrderedQuestions() {
		report.Questions = append(report.Questions, questionReport(&q, submissions))
	}
	return report
}

func questionReport(q *models.Question, submissions []*models.Submission) QuestionReport {
	qr := QuestionReport{
		QuestionID: q.ID,
		Content:    q.Content,
		Type:       q.Type,
		Points:     q.Points,
		Graded:     q.Graded(),
	}

	var counts []int
	if q.Type.IsChoice() {
		counts = make([]int, len(q.Options))
	}
	texts := newTextTallies(q)

	for _, sub := range submissions {
		answer, present := sub.Answers[q.ID]
		if !present || answer == nil {
			continue
		}

		outcome := scoring.Match(q, answer)
		if outcome != scoring.Unanswered {
			qr.AnsweredCount++
		}
		if outcome == scoring.Correct {
			qr.CorrectCount++
		}

		for _, idx := range scoring.Selections(q, answer) {
			if idx < len(counts) {
				counts[idx]++
			}
		}
		if q.Type == models.FreeText {
			if text, ok := scoring.AsText(answer); ok {
				texts.add(text)
			}
		}
	}

	if qr.Graded && len(submissions) > 0 {
		qr.CorrectRate = int(math.Round(float64(qr.CorrectCount) / float64(len(submissions)) * 100))
		qr.Difficulty = difficulty(qr.CorrectRate)
	}

	for i, label := range q.Options {
		if !q.Type.IsChoice() {
			break
		}
		tally := OptionTally{Index: i, Label: label, Count: counts[i], IsCorrect: optionIsCorrect(q, i)}
		if len(submissions) > 0 {
			tally.Percentage = round2(float64(counts[i]) / float64(len(submissions)) * 100)
		}
		qr.Options = append(qr.Options, tally)
	}
	qr.TextAnswers = texts.sorted()
	return qr
}

func optionIsCorrect(q *models.Question, i int) bool {
	if q.CorrectAnswer == nil {
		return false
	}
	switch q.Type {
	case models.SingleChoice:
		return q.CorrectAnswer.Index == i
	case models.MultiChoice:
		for _, idx := range q.CorrectAnswer.Indices {
			if idx == i {
				return true
			}
		}
	}
	return false
}

func difficulty(correctRate int) string {
	switch {
	case correctRate >= 70:
		return DifficultyEasy
	case correctRate < 30:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

func scoreDistribution(form *models.Form, submissions []*models.Submission) []ScoreBucket {
	buckets := make([]ScoreBucket, 10)
	for i := range buckets {
		buckets[i] = ScoreBucket{
			Label: fmt.Sprintf("%d-%d%%", i*10, (i+1)*10),
			From:  i * 10,
			To:    (i + 1) * 10,
		}
	}

	for _, sub := range submissions {
		maxScore := sub.MaxScore
		if maxScore <= 0 {
			maxScore = scoring.MaxScore(form.Questions)
		}
		idx := 0
		if maxScore > 0 {
			idx = min(sub.Score*10/maxScore, 9)
		}
		buckets[max(idx, 0)].Count++
	}
	return buckets
}

type textTallies struct {
	question *models.Question
	index    map[string]int
	items    []TextTally
}

func newTextTallies(q *models.Question) *textTallies {
	return &textTallies{question: q, index: make(map[string]int)}
}

func (t *textTallies) add(raw string) {
	display := strings.TrimSpace(raw)
	if display == "" {
		return
	}
	key := scoring.Normalize(display)
	if i, ok := t.index[key]; ok {
		t.items[i].Count++
		return
	}
	t.index[key] = len(t.items)
	t.items = append(t.items, TextTally{
		Value:     display,
		Count:     1,
		IsCorrect: scoring.IsCorrect(t.question, display),
	})
}

// sorted orders by count, keeping first-seen order among equal counts.
func (t *textTallies) sorted() []TextTally {
	if len(t.items) == 0 {
		return nil
	}
	out := append([]TextTally(nil), t.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type FormStatus string

const (
	StatusDraft     FormStatus = "draft"
	StatusPublished FormStatus = "published"
)

const (
	MinTimerMinutes     = 1
	MaxTimerMinutes     = 180
	DefaultTimerMinutes = 30
)

type Form struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	Title       string     `json:"title" gorm:"not null;size:200" bson:"title" validate:"max=200"`
	Description string     `json:"description" gorm:"type:text" bson:"description" validate:"max=2000"`
	CreatedBy   string     `json:"created_by" gorm:"not null;size:255;index" bson:"created_by"`
	Status      FormStatus `json:"status" gorm:"default:draft;size:20;index" bson:"status" validate:"omitempty,form_status"`

	Questions datatypes.JSONSlice[Question] `json:"questions" gorm:"type:jsonb" bson:"questions" validate:"dive"`

	// Policy flags
	RequireLogin      bool `json:"require_login" gorm:"default:false" bson:"require_login"`
	OneSubmissionOnly bool `json:"one_submission_only" gorm:"default:false" bson:"one_submission_only"`
	EnableTimer       bool `json:"enable_timer" gorm:"default:false" bson:"enable_timer"`
	TimerMinutes      int  `json:"timer_minutes" gorm:"default:0" bson:"timer_minutes" validate:"min=0,max=180"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`

	// Relations
	Submissions []Submission `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" bson:"-"`
}

func (Form) TableName() string {
	return "forms"
}

func (f *Form) IsPublished() bool {
	return f.Status == StatusPublished
}

// TimerSeconds is the countdown length of a timed form, zero when untimed.
func (f *Form) TimerSeconds() int {
	if !f.EnableTimer {
		return 0
	}
	minutes := f.TimerMinutes
	if minutes <= 0 {
		minutes = DefaultTimerMinutes
	}
	return minutes * 60
}

// OrderedQuestions returns the questions sorted by their order field.
func (f *Form) OrderedQuestions() []Question {
	out := make([]Question, len(f.Questions))
	copy(out, f.Questions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// QuestionByID returns the question with the given id.
func (f *Form) QuestionByID(id string) (*Question, bool) {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i], true
		}
	}
	return nil, false
}

// LearnerView strips answer keys so the form can be served to a learner.
func (f *Form) LearnerView() *Form {
	view := *f
	view.Questions = make(datatypes.JSONSlice[Question], 0, len(f.Questions))
	for _, q := range f.OrderedQuestions() {
		view.Questions = append(view.Questions, q.WithoutAnswerKey())
	}
	view.Submissions = nil
	return &view
}

// Renumber assigns dense zero-based orders following the current slice order.
func Renumber(questions []Question) {
	for i := range questions {
		questions[i].Order = i
	}
}

// FormInput carries the editable fields of a form.
type FormInput struct {
	Title             string     `json:"title" validate:"max=200"`
	Description       string     `json:"description" validate:"max=2000"`
	Status            FormStatus `json:"status" validate:"omitempty,form_status"`
	Questions         []Question `json:"questions" validate:"dive"`
	RequireLogin      bool       `json:"require_login"`
	OneSubmissionOnly bool       `json:"one_submission_only"`
	EnableTimer       bool       `json:"enable_timer"`
	TimerMinutes      int        `json:"timer_minutes" validate:"min=0,max=180"`
}

// HasMinimumContent reports whether the input is worth autosaving: a title,
// at least one question, content on every question and options on every
// choice question.
func (in *FormInput) HasMinimumContent() bool {
	if strings.TrimSpace(in.Title) == "" || len(in.Questions) == 0 {
		return false
	}
	for _, q := range in.Questions {
		if strings.TrimSpace(q.Content) == "" {
			return false
		}
		if q.Type.IsChoice() && len(q.Options) == 0 {
			return false
		}
	}
	return true
}

// Apply copies the input onto the form.
func (in *FormInput) Apply(f *Form) {
	f.Title = in.Title
	f.Description = in.Description
	if in.Status != "" {
		f.Status = in.Status
	}
	f.Questions = append(datatypes.JSONSlice[Question]{}, in.Questions...)
	f.RequireLogin = in.RequireLogin
	f.OneSubmissionOnly = in.OneSubmissionOnly
	f.EnableTimer = in.EnableTimer
	f.TimerMinutes = in.TimerMinutes
	if f.EnableTimer && f.TimerMinutes == 0 {
		f.TimerMinutes = DefaultTimerMinutes
	}
}

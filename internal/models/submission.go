package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AnonymousID    = "anonymous"
	AnonymousEmail = "Anonymous"
)

// Submission is one learner's completed attempt. It is created exactly once
// per submit action and never updated.
type Submission struct {
	ID             string `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	FormID         string `json:"form_id" gorm:"not null;size:36;index;uniqueIndex:idx_submissions_exclusive,where:exclusive = true" bson:"form_id"`
	SubmitterID    string `json:"submitter_id" gorm:"not null;size:255;index;uniqueIndex:idx_submissions_exclusive,where:exclusive = true" bson:"submitter_id"`
	SubmitterEmail string `json:"submitter_email" gorm:"size:255" bson:"submitter_email"`

	// Raw answers keyed by question id, exactly as submitted.
	Answers datatypes.JSONMap `json:"answers" gorm:"type:jsonb" bson:"answers"`

	Score     int  `json:"score" gorm:"not null;default:0" bson:"score"`
	MaxScore  int  `json:"max_score" gorm:"not null;default:0" bson:"max_score"`
	TimeSpent *int `json:"time_spent,omitempty" bson:"time_spent,omitempty"` // seconds

	AutoSubmitted bool `json:"auto_submitted" gorm:"default:false" bson:"auto_submitted"`
	// Exclusive is set when the form allowed a single submission per
	// submitter; the storage layer enforces uniqueness over these rows.
	Exclusive bool `json:"-" gorm:"default:false" bson:"exclusive"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null;index" bson:"submitted_at"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmitRequest is the learner payload for a submit action. Any score the
// client might send is ignored; only raw answers are trusted.
type SubmitRequest struct {
	Answers   map[string]any `json:"answers"`
	TimeSpent *int           `json:"time_spent" validate:"omitempty,min=0"`
}

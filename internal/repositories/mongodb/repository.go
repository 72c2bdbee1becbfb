package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	FormCollection       = "forms"
	SubmissionCollection = "submissions"
)

type Repository struct {
	db          *mongo.Database
	forms       *FormMongo
	submissions *SubmissionMongo
}

func NewRepository(db *mongo.Database) *Repository {
	submissions := &SubmissionMongo{coll: db.Collection(SubmissionCollection)}
	return &Repository{
		db:          db,
		forms:       &FormMongo{coll: db.Collection(FormCollection), submissions: submissions},
		submissions: submissions,
	}
}

func (r *Repository) Form() repositories.FormRepository {
	return r.forms
}

func (r *Repository) Submission() repositories.SubmissionRepository {
	return r.submissions
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the query indexes and the partial unique index that
// allows one exclusive submission per form and submitter.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(FormCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create form indexes: %w", err)
	}

	_, err = db.Collection(SubmissionCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "form_id", Value: 1}, {Key: "submitted_at", Value: -1}}},
		{
			Keys: bson.D{{Key: "form_id", Value: 1}, {Key: "submitter_id", Value: 1}},
			Options: options.Index().
				SetName("idx_submissions_exclusive").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"exclusive": true}),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create submission indexes: %w", err)
	}
	return nil
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repositories.ErrDuplicate
	default:
		return err
	}
}

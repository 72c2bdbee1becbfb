package mongodb

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SubmissionMongo struct {
	coll *mongo.Collection
}

func (s *SubmissionMongo) Create(ctx context.Context, submission *models.Submission) error {
	_, err := s.coll.InsertOne(ctx, submission)
	if err == nil {
		return nil
	}
	if err = translateError(err); err == repositories.ErrDuplicate {
		return err
	}
	return fmt.Errorf("failed to create submission: %w", err)
}

func (s *SubmissionMongo) GetByID(ctx context.Context, formID, id string) (*models.Submission, error) {
	var submission models.Submission
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "form_id": formID}).Decode(&submission)
	if err != nil {
		return nil, translateError(err)
	}
	return &submission, nil
}

func (s *SubmissionMongo) ListByForm(ctx context.Context, formID string, filters repositories.SubmissionFilters) ([]*models.Submission, int64, error) {
	filter := bson.M{"form_id": formID}
	if filters.SubmitterID != "" {
		filter["submitter_id"] = filters.SubmitterID
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	if filters.Limit > 0 {
		findOpts.SetLimit(int64(filters.Limit))
	}
	if filters.Offset > 0 {
		findOpts.SetSkip(int64(filters.Offset))
	}

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var submissions []*models.Submission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, 0, err
	}
	return submissions, total, nil
}

func (s *SubmissionMongo) ExistsBySubmitter(ctx context.Context, formID, submitterID string) (bool, error) {
	count, err := s.coll.CountDocuments(ctx,
		bson.M{"form_id": formID, "submitter_id": submitterID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SubmissionMongo) DeleteByForm(ctx context.Context, formID string) (int64, error) {
	result, err := s.coll.DeleteMany(ctx, bson.M{"form_id": formID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete submissions: %w", err)
	}
	return result.DeletedCount, nil
}

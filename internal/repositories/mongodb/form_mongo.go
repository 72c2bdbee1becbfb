package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/SAP-F-2025/quizform-service/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FormMongo struct {
	coll        *mongo.Collection
	submissions *SubmissionMongo
}

func (f *FormMongo) Create(ctx context.Context, form *models.Form) error {
	if _, err := f.coll.InsertOne(ctx, form); err != nil {
		return fmt.Errorf("failed to create form: %w", translateError(err))
	}
	return nil
}

func (f *FormMongo) GetByID(ctx context.Context, id string) (*models.Form, error) {
	var form models.Form
	if err := f.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&form); err != nil {
		return nil, translateError(err)
	}
	return &form, nil
}

func (f *FormMongo) Update(ctx context.Context, form *models.Form) error {
	update := bson.M{"$set": bson.M{
		"title":               form.Title,
		"description":         form.Description,
		"status":              form.Status,
		"questions":           form.Questions,
		"require_login":       form.RequireLogin,
		"one_submission_only": form.OneSubmissionOnly,
		"enable_timer":        form.EnableTimer,
		"timer_minutes":       form.TimerMinutes,
		"updated_at":          form.UpdatedAt,
	}}

	result, err := f.coll.UpdateOne(ctx, bson.M{"_id": form.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update form: %w", translateError(err))
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete removes submissions before the form. Without a replica set there
// is no transaction; a failure in between leaves the form in place and the
// delete can be retried.
func (f *FormMongo) Delete(ctx context.Context, id string) error {
	if _, err := f.submissions.DeleteByForm(ctx, id); err != nil {
		return err
	}

	result, err := f.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	if result.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

var sortableFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
}

func (f *FormMongo) List(ctx context.Context, filters repositories.FormFilters) ([]*models.Form, int64, error) {
	filter := bson.M{}
	if filters.CreatedBy != "" {
		filter["created_by"] = filters.CreatedBy
	}
	if filters.Status != nil {
		filter["status"] = *filters.Status
	}
	if filters.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filters.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	total, err := f.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	field, ok := sortableFields[filters.SortBy]
	if !ok {
		field = "updated_at"
	}
	direction := -1
	if strings.EqualFold(filters.SortOrder, "asc") {
		direction = 1
	}

	findOpts := options.Find().SetSort(bson.D{{Key: field, Value: direction}})
	if filters.Limit > 0 {
		findOpts.SetLimit(int64(filters.Limit))
	}
	if filters.Offset > 0 {
		findOpts.SetSkip(int64(filters.Offset))
	}

	cursor, err := f.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var forms []*models.Form
	if err := cursor.All(ctx, &forms); err != nil {
		return nil, 0, err
	}
	return forms, total, nil
}

func (f *FormMongo) IsOwner(ctx context.Context, formID string, userID string) (bool, error) {
	count, err := f.coll.CountDocuments(ctx,
		bson.M{"_id": formID, "created_by": userID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

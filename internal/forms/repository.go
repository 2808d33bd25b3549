package forms

import (
	"context"

	"dcc-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	CreateForm(ctx context.Context, form models.Form) error
	GetForm(ctx context.Context, clinicSlug, id string) (models.Form, error)
	ListForms(ctx context.Context, clinicSlug string) ([]models.Form, error)
	DeleteForm(ctx context.Context, clinicSlug, id string) (bool, error)

	CreateSubmission(ctx context.Context, submission models.SubmittedFile) error
	GetSubmission(ctx context.Context, id string) (models.SubmittedFile, error)
	ListSubmissions(ctx context.Context, formID, patientID string) ([]models.SubmittedFile, error)
	DeleteSubmission(ctx context.Context, id string) (bool, error)
}

type MongoRepository struct {
	forms       *mongo.Collection
	submissions *mongo.Collection
}

func NewRepository(forms, submissions *mongo.Collection) *MongoRepository {
	return &MongoRepository{forms: forms, submissions: submissions}
}

func (r *MongoRepository) CreateForm(ctx context.Context, form models.Form) error {
	_, err := r.forms.InsertOne(ctx, form)
	return err
}

func (r *MongoRepository) GetForm(ctx context.Context, clinicSlug, id string) (models.Form, error) {
	var form models.Form
	query := bson.M{"_id": id, "clinicSlug": clinicSlug}
	if err := r.forms.FindOne(ctx, query).Decode(&form); err != nil {
		return models.Form{}, err
	}
	return form, nil
}

func (r *MongoRepository) ListForms(ctx context.Context, clinicSlug string) ([]models.Form, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.forms.Find(ctx, bson.M{"clinicSlug": clinicSlug}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Form, 0)
	for cursor.Next(ctx) {
		var form models.Form
		if err := cursor.Decode(&form); err != nil {
			return nil, err
		}
		items = append(items, form)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) DeleteForm(ctx context.Context, clinicSlug, id string) (bool, error) {
	res, err := r.forms.DeleteOne(ctx, bson.M{"_id": id, "clinicSlug": clinicSlug})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoRepository) CreateSubmission(ctx context.Context, submission models.SubmittedFile) error {
	_, err := r.submissions.InsertOne(ctx, submission)
	return err
}

func (r *MongoRepository) GetSubmission(ctx context.Context, id string) (models.SubmittedFile, error) {
	var submission models.SubmittedFile
	if err := r.submissions.FindOne(ctx, bson.M{"_id": id}).Decode(&submission); err != nil {
		return models.SubmittedFile{}, err
	}
	return submission, nil
}

// ListSubmissions filters by form and/or patient; empty ids widen the
// query.
func (r *MongoRepository) ListSubmissions(ctx context.Context, formID, patientID string) ([]models.SubmittedFile, error) {
	query := bson.M{}
	if formID != "" {
		query["formId"] = formID
	}
	if patientID != "" {
		query["patientId"] = patientID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.submissions.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.SubmittedFile, 0)
	for cursor.Next(ctx) {
		var submission models.SubmittedFile
		if err := cursor.Decode(&submission); err != nil {
			return nil, err
		}
		items = append(items, submission)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) DeleteSubmission(ctx context.Context, id string) (bool, error) {
	res, err := r.submissions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

package clinics

import (
	"context"

	"dcc-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, clinic models.Clinic) error
	GetBySlug(ctx context.Context, slug string) (models.Clinic, error)
	Update(ctx context.Context, slug string, set bson.M) (models.Clinic, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, clinic models.Clinic) error {
	_, err := r.col.InsertOne(ctx, clinic)
	return err
}

func (r *MongoRepository) GetBySlug(ctx context.Context, slug string) (models.Clinic, error) {
	var clinic models.Clinic
	if err := r.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&clinic); err != nil {
		return models.Clinic{}, err
	}
	return clinic, nil
}

func (r *MongoRepository) Update(ctx context.Context, slug string, set bson.M) (models.Clinic, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": set}

	var updated models.Clinic
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"slug": slug}, update, opts).Decode(&updated); err != nil {
		return models.Clinic{}, err
	}
	return updated, nil
}

package users

import (
	"context"

	"dcc-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, clinicSlug, id string) (models.User, error)
	GetByEmail(ctx context.Context, clinicSlug, email string) (models.User, error)
	ListByClinic(ctx context.Context, clinicSlug string, roles []string) ([]models.User, error)
	Update(ctx context.Context, clinicSlug, id string, set bson.M, unset bson.M) (models.User, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, user models.User) error {
	_, err := r.col.InsertOne(ctx, user)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, clinicSlug, id string) (models.User, error) {
	var user models.User
	query := bson.M{"_id": id, "clinicSlug": clinicSlug}
	if err := r.col.FindOne(ctx, query).Decode(&user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *MongoRepository) GetByEmail(ctx context.Context, clinicSlug, email string) (models.User, error) {
	var user models.User
	query := bson.M{"clinicSlug": clinicSlug, "email": email}
	if err := r.col.FindOne(ctx, query).Decode(&user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *MongoRepository) ListByClinic(ctx context.Context, clinicSlug string, roles []string) ([]models.User, error) {
	query := bson.M{"clinicSlug": clinicSlug, "retired": false}
	if len(roles) > 0 {
		query["role"] = bson.M{"$in": roles}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.User, 0)
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		items = append(items, user)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Update(ctx context.Context, clinicSlug, id string, set bson.M, unset bson.M) (models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var updated models.User
	query := bson.M{"_id": id, "clinicSlug": clinicSlug}
	if err := r.col.FindOneAndUpdate(ctx, query, update, opts).Decode(&updated); err != nil {
		return models.User{}, err
	}
	return updated, nil
}

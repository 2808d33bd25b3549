package appointments

import (
	"context"

	"dcc-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ListFilter struct {
	PatientID   string
	TherapistID string
	State       string
}

type Repository interface {
	Create(ctx context.Context, appointment models.Appointment) error
	GetByID(ctx context.Context, clinicSlug, id string) (models.Appointment, error)
	List(ctx context.Context, clinicSlug string, filter ListFilter) ([]models.Appointment, error)
	Update(ctx context.Context, clinicSlug, id string, set bson.M) (models.Appointment, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, appointment models.Appointment) error {
	_, err := r.col.InsertOne(ctx, appointment)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, clinicSlug, id string) (models.Appointment, error) {
	var appointment models.Appointment
	query := bson.M{"_id": id, "clinicSlug": clinicSlug}
	if err := r.col.FindOne(ctx, query).Decode(&appointment); err != nil {
		return models.Appointment{}, err
	}
	return appointment, nil
}

func (r *MongoRepository) List(ctx context.Context, clinicSlug string, filter ListFilter) ([]models.Appointment, error) {
	query := bson.M{"clinicSlug": clinicSlug}
	if filter.PatientID != "" {
		query["patientId"] = filter.PatientID
	}
	if filter.TherapistID != "" {
		query["therapistId"] = filter.TherapistID
	}
	if filter.State != "" {
		query["state"] = filter.State
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "date", Value: -1},
		{Key: "hour", Value: -1},
	})
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Appointment, 0)
	for cursor.Next(ctx) {
		var appointment models.Appointment
		if err := cursor.Decode(&appointment); err != nil {
			return nil, err
		}
		items = append(items, appointment)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Update(ctx context.Context, clinicSlug, id string, set bson.M) (models.Appointment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": set}

	var updated models.Appointment
	query := bson.M{"_id": id, "clinicSlug": clinicSlug}
	if err := r.col.FindOneAndUpdate(ctx, query, update, opts).Decode(&updated); err != nil {
		return models.Appointment{}, err
	}
	return updated, nil
}

// MongoServiceFinder resolves bookable services from the services
// collection. Soft-removed and inactive services are not bookable.
type MongoServiceFinder struct {
	col *mongo.Collection
}

func NewServiceFinder(col *mongo.Collection) *MongoServiceFinder {
	return &MongoServiceFinder{col: col}
}

func (f *MongoServiceFinder) GetBookable(ctx context.Context, clinicSlug, id string) (models.Service, error) {
	var service models.Service
	query := bson.M{
		"_id":        id,
		"clinicSlug": clinicSlug,
		"active":     true,
		"removed":    false,
	}
	if err := f.col.FindOne(ctx, query).Decode(&service); err != nil {
		return models.Service{}, err
	}
	return service, nil
}

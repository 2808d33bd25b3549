package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Clinics        *mongo.Collection
	Users          *mongo.Collection
	Services       *mongo.Collection
	Headquarters   *mongo.Collection
	Appointments   *mongo.Collection
	Forms          *mongo.Collection
	SubmittedForms *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(dbName)

	cols := &Collections{
		Clinics:        db.Collection("clinics"),
		Users:          db.Collection("users"),
		Services:       db.Collection("services"),
		Headquarters:   db.Collection("headquarters"),
		Appointments:   db.Collection("appointments"),
		Forms:          db.Collection("forms"),
		SubmittedForms: db.Collection("submitted_forms"),
	}

	return client, cols, nil
}

func EnsureIndexes(ctx context.Context, cols *Collections) error {
	indexTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := cols.Clinics.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Users.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clinicSlug", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "clinicSlug", Value: 1}, {Key: "role", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Services.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "clinicSlug", Value: 1}, {Key: "removed", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Appointments.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			// One live booking per therapist slot; canceled ones free it up.
			Keys: bson.D{{Key: "therapistId", Value: 1}, {Key: "date", Value: 1}, {Key: "hour", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "state", Value: bson.D{{Key: "$ne", Value: "CANCELED"}}}}),
		},
		{
			Keys: bson.D{{Key: "clinicSlug", Value: 1}, {Key: "date", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "date", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.SubmittedForms.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "formId", Value: 1}, {Key: "patientId", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	return nil
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"dcc-backend/internal/auth"
	"dcc-backend/internal/config"
	"dcc-backend/internal/db"
	"dcc-backend/internal/models"
	"dcc-backend/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedService struct {
	Name        string
	Description string
	Price       float64
	Duration    int
}

type seedUser struct {
	Names       string
	LastNames   string
	Email       string
	Role        string
	PasswordEnv string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	clinicName := envOrDefault("SEED_CLINIC_NAME", "Integral Rehabilitation Center")
	clinicSlug := utils.Slugify(clinicName)
	now := time.Now().In(cfg.Timezone)

	clinicUpdate := bson.M{
		"$setOnInsert": bson.M{
			"_id":                 primitive.NewObjectID().Hex(),
			"slug":                clinicSlug,
			"name":                clinicName,
			"countryCode":         envOrDefault("SEED_CLINIC_COUNTRY", "CO"),
			"currencyCode":        envOrDefault("SEED_CLINIC_CURRENCY", "COP"),
			"cancelationHours":    24,
			"hideForTherapist":    false,
			"hideForReceptionist": false,
			"hideForPatients":     false,
			"active":              true,
			"removed":             false,
			"createdAt":           now,
			"updatedAt":           now,
		},
	}
	if _, err := cols.Clinics.UpdateOne(ctx, bson.M{"slug": clinicSlug}, clinicUpdate, options.Update().SetUpsert(true)); err != nil {
		log.Fatalf("seed clinic: %v", err)
	}
	log.Printf("seed clinic: %s", clinicSlug)

	services := []seedService{
		{Name: "Physiotherapy", Description: "Individual physical rehabilitation session.", Price: 120000, Duration: 60},
		{Name: "Occupational therapy", Description: "Daily living skills and fine motor work.", Price: 110000, Duration: 45},
		{Name: "Speech therapy", Description: "Language and swallowing rehabilitation.", Price: 100000, Duration: 45},
		{Name: "Hydrotherapy", Description: "Guided exercise in the therapy pool.", Price: 150000, Duration: 60},
		{Name: "Psychology", Description: "Clinical psychology consultation.", Price: 130000, Duration: 60},
	}
	for _, svc := range services {
		filter := bson.M{"clinicSlug": clinicSlug, "name": svc.Name}
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":         primitive.NewObjectID().Hex(),
				"clinicSlug":  clinicSlug,
				"name":        svc.Name,
				"description": svc.Description,
				"price":       svc.Price,
				"duration":    svc.Duration,
				"active":      true,
				"removed":     false,
				"createdAt":   now,
				"updatedAt":   now,
			},
		}
		if _, err := cols.Services.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			log.Fatalf("seed service %s: %v", svc.Name, err)
		}
	}

	headquarterName := envOrDefault("SEED_HEADQUARTER_NAME", "Main venue")
	hqUpdate := bson.M{
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"clinicSlug": clinicSlug,
			"name":       headquarterName,
			"cityCode":   envOrDefault("SEED_HEADQUARTER_CITY", "CO-BOG"),
			"address":    envOrDefault("SEED_HEADQUARTER_ADDRESS", "Cra 7 # 45-10"),
			"removed":    false,
			"createdAt":  now,
		},
	}
	if _, err := cols.Headquarters.UpdateOne(ctx, bson.M{"clinicSlug": clinicSlug, "name": headquarterName}, hqUpdate, options.Update().SetUpsert(true)); err != nil {
		log.Fatalf("seed headquarter: %v", err)
	}

	seedUsers := []seedUser{
		{Names: "Owner", LastNames: "Account", Email: envOrDefault("OWNER_EMAIL", ""), Role: models.RoleSoftwareOwner, PasswordEnv: "OWNER_PASSWORD"},
		{Names: "Admin", LastNames: "Account", Email: envOrDefault("ADMIN_EMAIL", ""), Role: models.RoleAdministrator, PasswordEnv: "ADMIN_PASSWORD"},
		{Names: "Reception", LastNames: "Account", Email: envOrDefault("RECEPTIONIST_EMAIL", ""), Role: models.RoleReceptionist, PasswordEnv: "RECEPTIONIST_PASSWORD"},
	}
	for _, u := range seedUsers {
		password := os.Getenv(u.PasswordEnv)
		if u.Email == "" || password == "" {
			log.Printf("seed user: %s skipped, %s or email missing", u.Role, u.PasswordEnv)
			continue
		}
		if err := upsertUser(ctx, cols, clinicSlug, u, password, now); err != nil {
			log.Fatalf("seed user %s: %v", u.Email, err)
		}
		log.Printf("seed user: %s (%s)", u.Email, u.Role)
	}

	log.Println("seed completed")
}

func upsertUser(ctx context.Context, cols *db.Collections, clinicSlug string, u seedUser, password string, now time.Time) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	filter := bson.M{"clinicSlug": clinicSlug, "email": u.Email}
	update := bson.M{
		"$set": bson.M{
			"passwordHash": hash,
			"role":         u.Role,
			"enabled":      true,
			"retired":      false,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"clinicSlug": clinicSlug,
			"names":      u.Names,
			"lastNames":  u.LastNames,
			"email":      u.Email,
			"createdAt":  now,
		},
	}
	_, err = cols.Users.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

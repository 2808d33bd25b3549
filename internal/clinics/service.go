package clinics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dcc-backend/internal/cache"
	"dcc-backend/internal/models"
	"dcc-backend/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound  = errors.New("clinic not found")
	ErrSlugTaken = errors.New("clinic slug already in use")
)

const resolveCacheTTL = 5 * time.Minute

type Service struct {
	repo     Repository
	cache    cache.Cache
	log      *slog.Logger
	location *time.Location
}

func NewService(repo Repository, c cache.Cache, log *slog.Logger, location *time.Location) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{
		repo:     repo,
		cache:    c,
		log:      log,
		location: location,
	}
}

type CreateRequest struct {
	Name             string `json:"name" validate:"required,min=2,max=120"`
	CountryCode      string `json:"country_code" validate:"required,len=2"`
	CurrencyCode     string `json:"currency_code" validate:"required,len=3"`
	CancelationHours int    `json:"cancelation_hours" validate:"min=0,max=168"`
}

type EditRequest struct {
	Name                string `json:"name" validate:"required,min=2,max=120"`
	CurrencyCode        string `json:"currency_code" validate:"required,len=3"`
	CancelationHours    int    `json:"cancelation_hours" validate:"min=0,max=168"`
	HideForTherapist    bool   `json:"hide_for_therapist"`
	HideForReceptionist bool   `json:"hide_for_receptionist"`
	HideForPatients     bool   `json:"hide_for_patients"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Clinic, error) {
	now := time.Now().In(s.location)
	clinic := models.Clinic{
		ID:               primitive.NewObjectID().Hex(),
		Slug:             utils.Slugify(req.Name),
		Name:             strings.TrimSpace(req.Name),
		CountryCode:      strings.ToUpper(strings.TrimSpace(req.CountryCode)),
		CurrencyCode:     strings.ToUpper(strings.TrimSpace(req.CurrencyCode)),
		CancelationHours: req.CancelationHours,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, clinic); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Clinic{}, ErrSlugTaken
		}
		return models.Clinic{}, err
	}
	return clinic, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (models.Clinic, error) {
	clinic, err := s.repo.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Clinic{}, ErrNotFound
		}
		return models.Clinic{}, err
	}
	return clinic, nil
}

func (s *Service) Edit(ctx context.Context, slug string, req EditRequest) (models.Clinic, error) {
	slug = strings.TrimSpace(slug)
	set := bson.M{
		"name":                strings.TrimSpace(req.Name),
		"currencyCode":        strings.ToUpper(strings.TrimSpace(req.CurrencyCode)),
		"cancelationHours":    req.CancelationHours,
		"hideForTherapist":    req.HideForTherapist,
		"hideForReceptionist": req.HideForReceptionist,
		"hideForPatients":     req.HideForPatients,
		"updatedAt":           time.Now().In(s.location),
	}

	updated, err := s.repo.Update(ctx, slug, set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Clinic{}, ErrNotFound
		}
		return models.Clinic{}, err
	}

	if err := s.cache.Delete(ctx, resolveCacheKey(slug)); err != nil {
		s.log.Warn("clinic edit: cache invalidation failed", slog.String("error", err.Error()))
	}
	return updated, nil
}

// Resolve satisfies the tenant middleware contract. Unknown slugs return
// (nil, nil); only infrastructure failures surface as errors.
func (s *Service) Resolve(ctx context.Context, slug string) (*models.Clinic, error) {
	key := resolveCacheKey(slug)
	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var clinic models.Clinic
		if err := json.Unmarshal(raw, &clinic); err == nil {
			return &clinic, nil
		}
	}

	clinic, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	if raw, err := json.Marshal(clinic); err == nil {
		if err := s.cache.Set(ctx, key, raw, resolveCacheTTL); err != nil {
			s.log.Warn("clinic resolve: cache set failed", slog.String("error", err.Error()))
		}
	}
	return &clinic, nil
}

func resolveCacheKey(slug string) string {
	return "clinic:" + slug
}

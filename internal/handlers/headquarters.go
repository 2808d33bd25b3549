package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dcc-backend/internal/httpx"
	"dcc-backend/internal/middleware"
	"dcc-backend/internal/models"
	"dcc-backend/internal/transport"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type headquarterCreateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	CityCode string `json:"city_code" validate:"required"`
	Address  string `json:"address" validate:"required,max=200"`
}

func (s *Server) CreateHeadquarter(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req headquarterCreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("headquarter create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("headquarter create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	cities := s.Catalog.CitiesForCountry(clinic.CountryCode)
	known := false
	for _, city := range cities {
		if city.Code == req.CityCode {
			known = true
			break
		}
	}
	if !known {
		log.Warn("headquarter create: unknown city", slog.String("city_code", req.CityCode))
		transport.WriteError(w, http.StatusBadRequest, "unknown city for clinic country", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	headquarter := models.Headquarter{
		ID:         primitive.NewObjectID().Hex(),
		ClinicSlug: clinic.Slug,
		Name:       strings.TrimSpace(req.Name),
		CityCode:   req.CityCode,
		Address:    strings.TrimSpace(req.Address),
		CreatedAt:  time.Now(),
	}
	if _, err := s.Cols.Headquarters.InsertOne(ctx, headquarter); err != nil {
		log.Error("headquarter create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("headquarter create: ok", slog.String("headquarter_id", headquarter.ID))
	transport.WriteData(w, http.StatusCreated, headquarter)
}

func (s *Server) GetAllHeadquarters(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	query := bson.M{"clinicSlug": clinic.Slug, "removed": false}
	cursor, err := s.Cols.Headquarters.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		log.Error("headquarter list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.Headquarter, 0)
	for cursor.Next(ctx) {
		var headquarter models.Headquarter
		if err := cursor.Decode(&headquarter); err != nil {
			log.Error("headquarter list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		items = append(items, headquarter)
	}
	if err := cursor.Err(); err != nil {
		log.Error("headquarter list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	log.Info("headquarter list: ok", slog.Int("count", len(items)))
	transport.WriteData(w, http.StatusOK, items)
}

type headquarterDeleteRequest struct {
	ID string `json:"id" validate:"required"`
}

func (s *Server) DeleteHeadquarter(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req headquarterDeleteRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	query := bson.M{"_id": req.ID, "clinicSlug": clinic.Slug, "removed": false}
	res, err := s.Cols.Headquarters.UpdateOne(ctx, query, bson.M{"$set": bson.M{"removed": true}})
	if err != nil {
		log.Error("headquarter delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.MatchedCount == 0 {
		log.Warn("headquarter delete: not found", slog.String("headquarter_id", req.ID))
		transport.WriteError(w, http.StatusNotFound, "headquarter not found", nil)
		return
	}

	log.Info("headquarter delete: ok", slog.String("headquarter_id", req.ID))
	transport.WriteData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dcc-backend/internal/httpx"
	"dcc-backend/internal/lifecycle"
	"dcc-backend/internal/middleware"
	"dcc-backend/internal/models"
	"dcc-backend/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type serviceCreateRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Description string  `json:"description" validate:"omitempty,max=1000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Duration    int     `json:"duration" validate:"required,min=15,max=480"`
}

func (s *Server) CreateService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req serviceCreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("service create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("service create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	now := time.Now()
	service := models.Service{
		ID:          primitive.NewObjectID().Hex(),
		ClinicSlug:  clinic.Slug,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Duration:    req.Duration,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.Cols.Services.InsertOne(ctx, service); err != nil {
		log.Error("service create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	s.invalidateServices(r.Context(), clinic.Slug)
	log.Info("service create: ok", slog.String("service_id", service.ID))
	transport.WriteData(w, http.StatusCreated, service)
}

// GetAllServices lists the clinic's services. Staff roles page at the
// admin table size and see inactive rows; patients get the wider grid of
// active services only. Unfiltered first pages are served from cache.
func (s *Server) GetAllServices(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	q, err := httpx.ParseListQuery(r.URL.Query())
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	patientView := principal.Role == models.RolePatient
	ctrl := s.svcTable
	if patientView {
		ctrl = s.svcGrid
	}

	cacheKey := ""
	if q.Query == "" && q.SortBy == "" && q.Page == 0 {
		cacheKey = servicesCacheKey(clinic.Slug, patientView)
		if cached, ok, err := s.Cache.Get(r.Context(), cacheKey); err == nil && ok {
			log.Info("service list: cache hit")
			transport.WriteRaw(w, http.StatusOK, cached)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	query := bson.M{"clinicSlug": clinic.Slug, "removed": false}
	if patientView {
		query["active"] = true
	}
	cursor, err := s.Cols.Services.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		log.Error("service list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	all := make([]models.Service, 0)
	for cursor.Next(ctx) {
		var service models.Service
		if err := cursor.Decode(&service); err != nil {
			log.Error("service list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		all = append(all, service)
	}
	if err := cursor.Err(); err != nil {
		log.Error("service list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	filtered := ctrl.Filter(all, q.Query)
	sorted := ctrl.Sort(filtered, q.SortBy, q.Direction)
	response := map[string]interface{}{
		"services":   ctrl.Page(sorted, q.Page),
		"total":      len(filtered),
		"page":       q.Page,
		"page_count": ctrl.PageCount(len(filtered)),
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(transport.DataResponse{Data: response}); err == nil {
			_ = s.Cache.Set(r.Context(), cacheKey, payload, time.Duration(s.Cfg.CacheTTLSeconds)*time.Second)
		}
	}

	log.Info("service list: ok", slog.Int("count", len(filtered)))
	transport.WriteData(w, http.StatusOK, response)
}

func (s *Server) GetServiceByID(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var service models.Service
	query := bson.M{"_id": id, "clinicSlug": clinic.Slug, "removed": false}
	if err := s.Cols.Services.FindOne(ctx, query).Decode(&service); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
			return
		}
		log.Error("service get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteData(w, http.StatusOK, service)
}

type serviceEditRequest struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Description string  `json:"description" validate:"omitempty,max=1000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Duration    int     `json:"duration" validate:"required,min=15,max=480"`
}

func (s *Server) EditService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req serviceEditRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("service edit: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("service edit: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	set := bson.M{
		"name":        strings.TrimSpace(req.Name),
		"description": strings.TrimSpace(req.Description),
		"price":       req.Price,
		"duration":    req.Duration,
		"updatedAt":   time.Now(),
	}
	s.updateService(w, r, clinic.Slug, req.ID, set, "service edit")
}

type serviceToggleRequest struct {
	ID     string `json:"id" validate:"required"`
	Active bool   `json:"active"`
}

// SetServiceActive flips visibility for patients without removing the
// service. Concurrent toggles for the same id are rejected.
func (s *Server) SetServiceActive(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req serviceToggleRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}

	if err := s.tracker.Begin(req.ID); err != nil {
		log.Warn("service toggle: already in flight", slog.String("service_id", req.ID))
		transport.WriteError(w, http.StatusConflict, "operation already in progress", nil)
		return
	}
	defer func() {
		if s.tracker.Status(req.ID).State == lifecycle.StateSubmitting {
			_ = s.tracker.Succeed(req.ID)
		}
	}()

	set := bson.M{"active": req.Active, "updatedAt": time.Now()}
	s.updateService(w, r, clinic.Slug, req.ID, set, "service toggle")
}

type serviceDeleteRequest struct {
	ID      string `json:"id" validate:"required"`
	Confirm bool   `json:"confirm"`
}

// DeleteService soft-removes a service. Existing appointments keep their
// price snapshot, the service just stops being bookable.
func (s *Server) DeleteService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req serviceDeleteRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return
	}
	if !req.Confirm {
		log.Warn("service delete: not confirmed", slog.String("service_id", req.ID))
		transport.WriteError(w, http.StatusBadRequest, "confirmation required", nil)
		return
	}

	if err := s.tracker.Begin(req.ID); err != nil {
		log.Warn("service delete: already in flight", slog.String("service_id", req.ID))
		transport.WriteError(w, http.StatusConflict, "operation already in progress", nil)
		return
	}
	defer func() {
		if s.tracker.Status(req.ID).State == lifecycle.StateSubmitting {
			_ = s.tracker.Succeed(req.ID)
		}
	}()

	set := bson.M{"removed": true, "active": false, "updatedAt": time.Now()}
	s.updateService(w, r, clinic.Slug, req.ID, set, "service delete")
}

func (s *Server) updateService(w http.ResponseWriter, r *http.Request, clinicSlug, id string, set bson.M, op string) {
	log := s.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	query := bson.M{"_id": id, "clinicSlug": clinicSlug, "removed": false}

	var updated models.Service
	if err := s.Cols.Services.FindOneAndUpdate(ctx, query, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn(op+": not found", slog.String("service_id", id))
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
			return
		}
		log.Error(op+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	s.invalidateServices(r.Context(), clinicSlug)
	log.Info(op+": ok", slog.String("service_id", updated.ID))
	transport.WriteData(w, http.StatusOK, updated)
}

func (s *Server) invalidateServices(ctx context.Context, clinicSlug string) {
	if err := s.Cache.DeletePrefix(ctx, "services:"+clinicSlug); err != nil {
		s.Log.Warn("service cache invalidation failed", slog.String("error", err.Error()))
	}
}

func servicesCacheKey(clinicSlug string, patientView bool) string {
	if patientView {
		return "services:" + clinicSlug + ":grid"
	}
	return "services:" + clinicSlug + ":table"
}

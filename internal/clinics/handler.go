package clinics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"dcc-backend/internal/httpx"
	"dcc-backend/internal/middleware"
	"dcc-backend/internal/transport"
	"dcc-backend/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

// Create registers a new tenant. Unlike the rest of the API it is not
// routed behind the tenant middleware, the clinic does not exist yet.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("clinic create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("clinic create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	clinic, err := h.service.Create(ctx, req)
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			log.Warn("clinic create: slug taken")
			transport.WriteError(w, http.StatusConflict, "clinic already exists", nil)
			return
		}
		log.Error("clinic create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("clinic create: ok", slog.String("clinic_slug", clinic.Slug))
	transport.WriteData(w, http.StatusCreated, clinic)
}

// GetBySlug returns the tenant clinic already resolved by the slug header.
func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		log.Error("clinic get: missing tenant context")
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	log.Info("clinic get: ok", slog.String("clinic_slug", clinic.Slug))
	transport.WriteData(w, http.StatusOK, clinic)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		log.Error("clinic edit: missing tenant context")
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req EditRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("clinic edit: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("clinic edit: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	updated, err := h.service.Edit(ctx, clinic.Slug, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("clinic edit: not found", slog.String("clinic_slug", clinic.Slug))
			transport.WriteError(w, http.StatusNotFound, "clinic not found", nil)
			return
		}
		log.Error("clinic edit: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("clinic edit: ok", slog.String("clinic_slug", clinic.Slug))
	transport.WriteData(w, http.StatusOK, updated)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}

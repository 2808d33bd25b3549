package appointments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dcc-backend/internal/httpx"
	"dcc-backend/internal/lifecycle"
	"dcc-backend/internal/middleware"
	"dcc-backend/internal/models"
	"dcc-backend/internal/schedule"
	"dcc-backend/internal/transport"
	"dcc-backend/internal/validation"

	"github.com/go-chi/chi/v5"
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

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req BookRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("appointment book: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("appointment book: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	appointment, err := h.service.Book(ctx, *clinic, principal.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotPast), errors.Is(err, schedule.ErrInvalidDate), errors.Is(err, schedule.ErrInvalidHour):
			log.Warn("appointment book: rejected slot", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, ErrSlotTaken):
			log.Warn("appointment book: slot taken",
				slog.String("date", req.Date),
				slog.String("hour", req.Hour))
			transport.WriteError(w, http.StatusConflict, "slot already booked", nil)
		case errors.Is(err, ErrServiceUnavailable):
			log.Warn("appointment book: service unavailable", slog.String("service_id", req.ServiceID))
			transport.WriteError(w, http.StatusBadRequest, "service not bookable", nil)
		case errors.Is(err, ErrTherapistUnavailable):
			log.Warn("appointment book: therapist unavailable", slog.String("therapist_id", req.TherapistID))
			transport.WriteError(w, http.StatusBadRequest, "therapist not available", nil)
		default:
			log.Error("appointment book: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("appointment book: ok",
		slog.String("appointment_id", appointment.ID),
		slog.String("state", appointment.State))
	transport.WriteData(w, http.StatusCreated, appointment)
}

func (h *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
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

	filter := ListFilter{
		PatientID:   strings.TrimSpace(r.URL.Query().Get("patient_id")),
		TherapistID: strings.TrimSpace(r.URL.Query().Get("therapist_id")),
		State:       strings.TrimSpace(r.URL.Query().Get("state")),
	}
	// Patients and therapists only ever see their own agenda.
	switch principal.Role {
	case models.RolePatient:
		filter.PatientID = principal.UserID
	case models.RoleTherapist:
		filter.TherapistID = principal.UserID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	result, err := h.service.GetAll(ctx, clinic.Slug, filter, q.Query, q.SortBy, q.Direction, q.Page)
	if err != nil {
		log.Error("appointment list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("appointment list: ok", slog.Int("count", len(result.Appointments)))
	transport.WriteData(w, http.StatusOK, result)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
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

	appointment, err := h.service.GetByID(ctx, clinic.Slug, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
			return
		}
		log.Error("appointment get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if principal.Role == models.RolePatient && appointment.PatientID != principal.UserID {
		transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
		return
	}

	transport.WriteData(w, http.StatusOK, appointment)
}

type idRequest struct {
	ID string `json:"id" validate:"required"`
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req idRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appointment, err := h.service.Confirm(ctx, clinic.Slug, req.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
		case errors.Is(err, ErrStateFinal):
			log.Warn("appointment confirm: state final", slog.String("appointment_id", req.ID))
			transport.WriteError(w, http.StatusConflict, "appointment already closed or canceled", nil)
		default:
			log.Error("appointment confirm: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("appointment confirm: ok", slog.String("appointment_id", appointment.ID))
	transport.WriteData(w, http.StatusOK, appointment)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req idRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	patientID := ""
	if principal.Role == models.RolePatient {
		patientID = principal.UserID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	appointment, err := h.service.Cancel(ctx, *clinic, req.ID, patientID)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrBusy):
			log.Warn("appointment cancel: already in flight", slog.String("appointment_id", req.ID))
			transport.WriteError(w, http.StatusConflict, "operation already in progress", nil)
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
		case errors.Is(err, ErrStateFinal):
			log.Warn("appointment cancel: state final", slog.String("appointment_id", req.ID))
			transport.WriteError(w, http.StatusConflict, "appointment already closed or canceled", nil)
		case errors.Is(err, ErrTooLateToCancel):
			log.Warn("appointment cancel: window passed", slog.String("appointment_id", req.ID))
			transport.WriteError(w, http.StatusConflict, "cancelation window has passed", nil)
		default:
			log.Error("appointment cancel: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("appointment cancel: ok", slog.String("appointment_id", appointment.ID))
	transport.WriteData(w, http.StatusOK, appointment)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req CloseRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appointment, err := h.service.Close(ctx, clinic.Slug, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
		case errors.Is(err, ErrStateFinal):
			log.Warn("appointment close: state final", slog.String("appointment_id", req.ID))
			transport.WriteError(w, http.StatusConflict, "appointment already closed or canceled", nil)
		case errors.Is(err, ErrInvalidAssistance):
			transport.WriteError(w, http.StatusBadRequest, "invalid assistance value", nil)
		default:
			log.Error("appointment close: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("appointment close: ok",
		slog.String("appointment_id", appointment.ID),
		slog.String("assistance", appointment.Assistance))
	transport.WriteData(w, http.StatusOK, appointment)
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req RateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appointment, err := h.service.Rate(ctx, clinic.Slug, principal.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
		case errors.Is(err, ErrNotClosed):
			log.Warn("appointment rate: not closed", slog.String("appointment_id", req.ID))
			transport.WriteError(w, http.StatusConflict, "appointment not closed yet", nil)
		default:
			log.Error("appointment rate: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("appointment rate: ok", slog.String("appointment_id", appointment.ID))
	transport.WriteData(w, http.StatusOK, appointment)
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

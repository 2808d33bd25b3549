package users

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

type loginResponse struct {
	User   interface{} `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req LoginRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("user login: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("user login: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	user, tokens, err := h.service.Login(ctx, clinic.Slug, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			log.Warn("user login: invalid credentials")
			transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
		case errors.Is(err, ErrAccountDisabled):
			log.Warn("user login: account disabled")
			transport.WriteError(w, http.StatusUnauthorized, "account disabled", nil)
		default:
			log.Error("user login: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("user login: ok", slog.String("user_id", user.ID))
	transport.WriteData(w, http.StatusOK, loginResponse{User: user, Tokens: tokens})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req refreshRequest
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

	user, tokens, err := h.service.Refresh(ctx, clinic.Slug, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountDisabled):
			log.Warn("user refresh: rejected")
			transport.WriteError(w, http.StatusUnauthorized, "invalid refresh token", nil)
		default:
			log.Error("user refresh: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("user refresh: ok", slog.String("user_id", user.ID))
	transport.WriteData(w, http.StatusOK, loginResponse{User: user, Tokens: tokens})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req RegisterRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("user register: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("user register: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	user, err := h.service.Register(ctx, clinic.Slug, req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			log.Warn("user register: email taken")
			transport.WriteError(w, http.StatusConflict, "email already registered", nil)
			return
		}
		log.Error("user register: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("user register: ok", slog.String("user_id", user.ID))
	transport.WriteData(w, http.StatusCreated, user)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("user create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("user create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	user, err := h.service.Create(ctx, *clinic, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			log.Warn("user create: email taken")
			transport.WriteError(w, http.StatusConflict, "email already registered", nil)
		case errors.Is(err, ErrRoleNotAllowed):
			log.Warn("user create: role not allowed", slog.String("role", req.Role))
			transport.WriteError(w, http.StatusBadRequest, "role not allowed", nil)
		default:
			log.Error("user create: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("user create: ok", slog.String("user_id", user.ID), slog.String("role", user.Role))
	transport.WriteData(w, http.StatusCreated, user)
}

func (h *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	q, err := httpx.ParseListQuery(r.URL.Query())
	if err != nil {
		log.Warn("user list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	role := strings.TrimSpace(r.URL.Query().Get("role"))

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	result, err := h.service.GetAll(ctx, clinic.Slug, role, q.Query, q.SortBy, q.Direction, q.Page)
	if err != nil {
		if errors.Is(err, ErrRoleNotAllowed) {
			transport.WriteError(w, http.StatusBadRequest, "unknown role", nil)
			return
		}
		log.Error("user list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("user list: ok", slog.Int("count", len(result.Users)))
	transport.WriteData(w, http.StatusOK, result)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
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

	user, err := h.service.GetByID(ctx, clinic.Slug, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("user get: not found", slog.String("user_id", id))
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
			return
		}
		log.Error("user get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteData(w, http.StatusOK, user)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req EditRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("user edit: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("user edit: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	user, err := h.service.Edit(ctx, clinic.Slug, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("user edit: not found", slog.String("user_id", req.ID))
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
			return
		}
		log.Error("user edit: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("user edit: ok", slog.String("user_id", user.ID))
	transport.WriteData(w, http.StatusOK, user)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req DeactivateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("user deactivate: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("user deactivate: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	user, err := h.service.Deactivate(ctx, clinic.Slug, req)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrBusy):
			log.Warn("user deactivate: already in flight", slog.String("user_id", req.ID))
			transport.WriteError(w, http.StatusConflict, "operation already in progress", nil)
		case isWindowError(err):
			log.Warn("user deactivate: invalid window", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			log.Warn("user deactivate: not found", slog.String("user_id", req.ID))
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
		default:
			log.Error("user deactivate: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("user deactivate: ok", slog.String("user_id", user.ID))
	transport.WriteData(w, http.StatusOK, user)
}

type activateRequest struct {
	ID string `json:"id" validate:"required"`
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req activateRequest
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

	user, err := h.service.Activate(ctx, clinic.Slug, req.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("user activate: not found", slog.String("user_id", req.ID))
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
			return
		}
		log.Error("user activate: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("user activate: ok", slog.String("user_id", user.ID))
	transport.WriteData(w, http.StatusOK, user)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req RemoveRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("user remove: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("user remove: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	user, err := h.service.Remove(ctx, clinic.Slug, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrConfirmRequired):
			log.Warn("user remove: not confirmed", slog.String("user_id", req.ID))
			transport.WriteError(w, http.StatusBadRequest, "confirmation required", nil)
		case errors.Is(err, lifecycle.ErrBusy):
			log.Warn("user remove: already in flight", slog.String("user_id", req.ID))
			transport.WriteError(w, http.StatusConflict, "operation already in progress", nil)
		case errors.Is(err, ErrNotFound):
			log.Warn("user remove: not found", slog.String("user_id", req.ID))
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
		default:
			log.Error("user remove: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("user remove: ok", slog.String("user_id", user.ID))
	transport.WriteData(w, http.StatusOK, user)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("user change password: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("user change password: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	if err := h.service.ChangePassword(ctx, clinic.Slug, principal.UserID, req); err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			log.Warn("user change password: wrong current password")
			transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
		case errors.Is(err, ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "user not found", nil)
		default:
			log.Error("user change password: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("user change password: ok", slog.String("user_id", principal.UserID))
	transport.WriteData(w, http.StatusOK, map[string]string{"status": "updated"})
}

func isWindowError(err error) bool {
	for _, target := range []error{
		schedule.ErrDeactivationRequired,
		schedule.ErrDeactivationDatePast,
		schedule.ErrDeactivationHourPast,
		schedule.ErrIncompleteActivation,
		schedule.ErrActivationBeforeWindow,
		schedule.ErrActivationHourOrder,
		schedule.ErrInvalidDate,
		schedule.ErrInvalidHour,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
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

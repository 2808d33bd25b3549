package forms

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dcc-backend/internal/httpx"
	"dcc-backend/internal/middleware"
	"dcc-backend/internal/models"
	"dcc-backend/internal/storage"
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

func (h *Handler) CreateForm(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	name, fileName, contentType, data, ok := h.readUpload(w, r, log, "form create")
	if !ok {
		return
	}
	if strings.TrimSpace(name) == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing name", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	form, err := h.service.CreateForm(ctx, clinic.Slug, name, fileName, contentType, data)
	if err != nil {
		h.writeUploadError(w, log, "form create", err)
		return
	}

	log.Info("form create: ok", slog.String("form_id", form.ID))
	transport.WriteData(w, http.StatusCreated, form)
}

func (h *Handler) GetAllForms(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	forms, err := h.service.ListForms(ctx, clinic.Slug)
	if err != nil {
		log.Error("form list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("form list: ok", slog.Int("count", len(forms)))
	transport.WriteData(w, http.StatusOK, forms)
}

type deleteFormRequest struct {
	ID string `json:"id" validate:"required"`
}

func (h *Handler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	if clinic == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req deleteFormRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.service.DeleteForm(ctx, clinic.Slug, req.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("form delete: not found", slog.String("form_id", req.ID))
			transport.WriteError(w, http.StatusNotFound, "form not found", nil)
			return
		}
		log.Error("form delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("form delete: ok", slog.String("form_id", req.ID))
	transport.WriteData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	formID, fileName, contentType, data, ok := h.readUploadField(w, r, log, "form submit", "form_id")
	if !ok {
		return
	}
	if strings.TrimSpace(formID) == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing form_id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	submission, err := h.service.Submit(ctx, clinic.Slug, formID, principal.UserID, fileName, contentType, data)
	if err != nil {
		h.writeUploadError(w, log, "form submit", err)
		return
	}

	log.Info("form submit: ok",
		slog.String("form_id", formID),
		slog.String("submission_id", submission.ID))
	transport.WriteData(w, http.StatusCreated, submission)
}

func (h *Handler) GetAllSubmitted(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	formID := strings.TrimSpace(r.URL.Query().Get("form_id"))
	patientID := strings.TrimSpace(r.URL.Query().Get("patient_id"))
	if principal.Role == models.RolePatient {
		patientID = principal.UserID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	submissions, err := h.service.Submissions(ctx, clinic.Slug, formID, patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, "form not found", nil)
			return
		}
		log.Error("submitted form list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("submitted form list: ok", slog.Int("count", len(submissions)))
	transport.WriteData(w, http.StatusOK, submissions)
}

type deleteSubmissionRequest struct {
	ID string `json:"id" validate:"required"`
}

// DeleteSubmission removes a filled form. Patients can only delete their
// own submissions, staff can delete any.
func (h *Handler) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	clinic := middleware.ClinicFromContext(r.Context())
	principal := middleware.PrincipalFromContext(r.Context())
	if clinic == nil || principal == nil {
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	var req deleteSubmissionRequest
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

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := h.service.DeleteSubmission(ctx, clinic.Slug, req.ID, patientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("submission delete: not found", slog.String("submission_id", req.ID))
			transport.WriteError(w, http.StatusNotFound, "submission not found", nil)
			return
		}
		log.Error("submission delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("submission delete: ok", slog.String("submission_id", req.ID))
	transport.WriteData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// readUpload extracts the "name" text field plus the uploaded file.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string) (field, fileName, contentType string, data []byte, ok bool) {
	return h.readUploadField(w, r, log, op, "name")
}

func (h *Handler) readUploadField(w http.ResponseWriter, r *http.Request, log *slog.Logger, op, fieldName string) (field, fileName, contentType string, data []byte, ok bool) {
	// A little slack over the document limit for the multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, MaxFileBytes+1<<20)
	if err := r.ParseMultipartForm(MaxFileBytes + 1<<20); err != nil {
		log.Warn(op+": invalid multipart body", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "invalid multipart body", nil)
		return "", "", "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		log.Warn(op + ": missing file part")
		transport.WriteError(w, http.StatusBadRequest, "missing file", nil)
		return "", "", "", nil, false
	}
	defer file.Close()

	contentType = header.Header.Get("Content-Type")
	if err := ClassifyFile(header.Size, contentType); err != nil {
		h.writeUploadError(w, log, op, err)
		return "", "", "", nil, false
	}

	data, err = io.ReadAll(file)
	if err != nil {
		log.Error(op+": reading upload failed", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return "", "", "", nil, false
	}

	return r.FormValue(fieldName), header.Filename, contentType, data, true
}

func (h *Handler) writeUploadError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		log.Warn(op + ": file too large")
		transport.WriteError(w, http.StatusRequestEntityTooLarge, "file exceeds the size limit", nil)
	case errors.Is(err, ErrFileType):
		log.Warn(op + ": unsupported file type")
		transport.WriteError(w, http.StatusBadRequest, "file must be a PDF", nil)
	case errors.Is(err, ErrNotFound):
		log.Warn(op + ": form not found")
		transport.WriteError(w, http.StatusNotFound, "form not found", nil)
	case errors.Is(err, storage.ErrNotConfigured):
		log.Error(op + ": document storage not configured")
		transport.WriteError(w, http.StatusServiceUnavailable, "document storage unavailable", nil)
	default:
		log.Error(op+": failed", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
	}
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

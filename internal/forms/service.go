package forms

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dcc-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("form not found")

// Uploader is the blob storage surface. Upload returns the public URL of
// the stored object.
type Uploader interface {
	Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

type Service struct {
	repo     Repository
	store    Uploader
	log      *slog.Logger
	location *time.Location
}

func NewService(repo Repository, store Uploader, log *slog.Logger, location *time.Location) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		log:      log,
		location: location,
	}
}

// CreateForm uploads a blank template and registers it for the clinic.
func (s *Service) CreateForm(ctx context.Context, clinicSlug, name, fileName, contentType string, data []byte) (models.Form, error) {
	if err := ClassifyFile(int64(len(data)), contentType); err != nil {
		return models.Form{}, err
	}

	url, err := s.store.Upload(ctx, fileName, contentType, data)
	if err != nil {
		return models.Form{}, err
	}

	form := models.Form{
		ID:         primitive.NewObjectID().Hex(),
		ClinicSlug: clinicSlug,
		Name:       strings.TrimSpace(name),
		URL:        url,
		FileName:   fileName,
		CreatedAt:  time.Now().In(s.location),
	}
	if err := s.repo.CreateForm(ctx, form); err != nil {
		// Best effort rollback of the orphaned blob.
		if delErr := s.store.Delete(ctx, url); delErr != nil {
			s.log.Warn("form create: orphan blob cleanup failed", slog.String("error", delErr.Error()))
		}
		return models.Form{}, err
	}
	return form, nil
}

func (s *Service) GetForm(ctx context.Context, clinicSlug, id string) (models.Form, error) {
	form, err := s.repo.GetForm(ctx, clinicSlug, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Form{}, ErrNotFound
		}
		return models.Form{}, err
	}
	return form, nil
}

func (s *Service) ListForms(ctx context.Context, clinicSlug string) ([]models.Form, error) {
	return s.repo.ListForms(ctx, clinicSlug)
}

func (s *Service) DeleteForm(ctx context.Context, clinicSlug, id string) error {
	form, err := s.GetForm(ctx, clinicSlug, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteForm(ctx, clinicSlug, form.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	if err := s.store.Delete(ctx, form.URL); err != nil {
		s.log.Warn("form delete: blob cleanup failed",
			slog.String("form_id", form.ID),
			slog.String("error", err.Error()))
	}
	return nil
}

// Submit stores a filled-in form for the patient. Re-submitting replaces
// the previous submission: the new record is written first, then the
// prior records and their blobs are removed, so a crash between the two
// steps leaves an extra record rather than none.
func (s *Service) Submit(ctx context.Context, clinicSlug, formID, patientID, fileName, contentType string, data []byte) (models.SubmittedFile, error) {
	if err := ClassifyFile(int64(len(data)), contentType); err != nil {
		return models.SubmittedFile{}, err
	}

	form, err := s.GetForm(ctx, clinicSlug, formID)
	if err != nil {
		return models.SubmittedFile{}, err
	}

	prior, err := s.repo.ListSubmissions(ctx, form.ID, patientID)
	if err != nil {
		return models.SubmittedFile{}, err
	}

	url, err := s.store.Upload(ctx, fileName, contentType, data)
	if err != nil {
		return models.SubmittedFile{}, err
	}

	submission := models.SubmittedFile{
		ID:        primitive.NewObjectID().Hex(),
		FormID:    form.ID,
		PatientID: patientID,
		URL:       url,
		FileName:  fileName,
		CreatedAt: time.Now().In(s.location),
	}
	if err := s.repo.CreateSubmission(ctx, submission); err != nil {
		if delErr := s.store.Delete(ctx, url); delErr != nil {
			s.log.Warn("form submit: orphan blob cleanup failed", slog.String("error", delErr.Error()))
		}
		return models.SubmittedFile{}, err
	}

	for _, old := range prior {
		if _, err := s.repo.DeleteSubmission(ctx, old.ID); err != nil {
			s.log.Warn("form submit: prior record cleanup failed",
				slog.String("submission_id", old.ID),
				slog.String("error", err.Error()))
			continue
		}
		if err := s.store.Delete(ctx, old.URL); err != nil {
			s.log.Warn("form submit: prior blob cleanup failed",
				slog.String("submission_id", old.ID),
				slog.String("error", err.Error()))
		}
	}

	return submission, nil
}

// DeleteSubmission removes one filled form and its blob. A non-empty
// patientID restricts the delete to the patient's own submissions;
// foreign ids read as not found.
func (s *Service) DeleteSubmission(ctx context.Context, clinicSlug, id, patientID string) error {
	submission, err := s.repo.GetSubmission(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	if patientID != "" && submission.PatientID != patientID {
		return ErrNotFound
	}
	if _, err := s.GetForm(ctx, clinicSlug, submission.FormID); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteSubmission(ctx, submission.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	if err := s.store.Delete(ctx, submission.URL); err != nil {
		s.log.Warn("submission delete: blob cleanup failed",
			slog.String("submission_id", submission.ID),
			slog.String("error", err.Error()))
	}
	return nil
}

// Submissions lists filled forms, narrowed by form and/or patient.
func (s *Service) Submissions(ctx context.Context, clinicSlug, formID, patientID string) ([]models.SubmittedFile, error) {
	formID = strings.TrimSpace(formID)
	if formID != "" {
		// Reject ids from other tenants before querying submissions.
		if _, err := s.GetForm(ctx, clinicSlug, formID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListSubmissions(ctx, formID, strings.TrimSpace(patientID))
}

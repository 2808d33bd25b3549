package forms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"dcc-backend/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	forms       map[string]models.Form
	submissions map[string]models.SubmittedFile
}

func newFormsFakeRepo() *fakeRepo {
	return &fakeRepo{
		forms:       make(map[string]models.Form),
		submissions: make(map[string]models.SubmittedFile),
	}
}

func (r *fakeRepo) CreateForm(_ context.Context, form models.Form) error {
	r.forms[form.ID] = form
	return nil
}

func (r *fakeRepo) GetForm(_ context.Context, clinicSlug, id string) (models.Form, error) {
	form, ok := r.forms[id]
	if !ok || form.ClinicSlug != clinicSlug {
		return models.Form{}, mongo.ErrNoDocuments
	}
	return form, nil
}

func (r *fakeRepo) ListForms(_ context.Context, clinicSlug string) ([]models.Form, error) {
	items := make([]models.Form, 0)
	for _, form := range r.forms {
		if form.ClinicSlug == clinicSlug {
			items = append(items, form)
		}
	}
	return items, nil
}

func (r *fakeRepo) DeleteForm(_ context.Context, clinicSlug, id string) (bool, error) {
	form, ok := r.forms[id]
	if !ok || form.ClinicSlug != clinicSlug {
		return false, nil
	}
	delete(r.forms, id)
	return true, nil
}

func (r *fakeRepo) CreateSubmission(_ context.Context, submission models.SubmittedFile) error {
	r.submissions[submission.ID] = submission
	return nil
}

func (r *fakeRepo) GetSubmission(_ context.Context, id string) (models.SubmittedFile, error) {
	submission, ok := r.submissions[id]
	if !ok {
		return models.SubmittedFile{}, mongo.ErrNoDocuments
	}
	return submission, nil
}

func (r *fakeRepo) ListSubmissions(_ context.Context, formID, patientID string) ([]models.SubmittedFile, error) {
	items := make([]models.SubmittedFile, 0)
	for _, submission := range r.submissions {
		if formID != "" && submission.FormID != formID {
			continue
		}
		if patientID != "" && submission.PatientID != patientID {
			continue
		}
		items = append(items, submission)
	}
	return items, nil
}

func (r *fakeRepo) DeleteSubmission(_ context.Context, id string) (bool, error) {
	if _, ok := r.submissions[id]; !ok {
		return false, nil
	}
	delete(r.submissions, id)
	return true, nil
}

type fakeStore struct {
	uploads int
	deleted []string
}

func (s *fakeStore) Upload(_ context.Context, fileName, _ string, _ []byte) (string, error) {
	s.uploads++
	return fmt.Sprintf("https://docs.example.com/%d-%s", s.uploads, fileName), nil
}

func (s *fakeStore) Delete(_ context.Context, fileURL string) error {
	s.deleted = append(s.deleted, fileURL)
	return nil
}

func newFormsService(t *testing.T) (*Service, *fakeRepo, *fakeStore) {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	repo := newFormsFakeRepo()
	store := &fakeStore{}
	svc := NewService(repo, store, slog.New(slog.NewTextHandler(io.Discard, nil)), loc)
	return svc, repo, store
}

var pdfBytes = []byte("%PDF-1.4 test")

func TestCreateForm(t *testing.T) {
	svc, repo, _ := newFormsService(t)

	form, err := svc.CreateForm(context.Background(), "rehab-center", "Intake", "intake.pdf", "application/pdf", pdfBytes)
	if err != nil {
		t.Fatalf("create form: %v", err)
	}
	if form.URL == "" || form.Name != "Intake" {
		t.Fatalf("unexpected form %+v", form)
	}
	if _, ok := repo.forms[form.ID]; !ok {
		t.Fatalf("form not persisted")
	}
}

func TestCreateFormRejectsNonPDF(t *testing.T) {
	svc, _, store := newFormsService(t)

	_, err := svc.CreateForm(context.Background(), "rehab-center", "Intake", "intake.png", "image/png", pdfBytes)
	if !errors.Is(err, ErrFileType) {
		t.Fatalf("expected ErrFileType, got %v", err)
	}
	if store.uploads != 0 {
		t.Fatalf("rejected file must not be uploaded")
	}
}

func TestSubmitReplacesPrior(t *testing.T) {
	svc, repo, store := newFormsService(t)

	form, err := svc.CreateForm(context.Background(), "rehab-center", "Intake", "intake.pdf", "application/pdf", pdfBytes)
	if err != nil {
		t.Fatalf("create form: %v", err)
	}

	first, err := svc.Submit(context.Background(), "rehab-center", form.ID, "p1", "filled-v1.pdf", "application/pdf", pdfBytes)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	second, err := svc.Submit(context.Background(), "rehab-center", form.ID, "p1", "filled-v2.pdf", "application/pdf", pdfBytes)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	remaining, err := repo.ListSubmissions(context.Background(), form.ID, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected exactly one submission per form and patient, got %d", len(remaining))
	}
	if remaining[0].ID != second.ID {
		t.Fatalf("expected the newest submission to survive")
	}

	found := false
	for _, url := range store.deleted {
		if url == first.URL {
			found = true
		}
	}
	if !found {
		t.Fatalf("prior blob %s was not cleaned up, deleted: %v", first.URL, store.deleted)
	}
}

func TestSubmitKeepsOtherPatientsSubmissions(t *testing.T) {
	svc, repo, _ := newFormsService(t)

	form, _ := svc.CreateForm(context.Background(), "rehab-center", "Intake", "intake.pdf", "application/pdf", pdfBytes)
	if _, err := svc.Submit(context.Background(), "rehab-center", form.ID, "p1", "a.pdf", "application/pdf", pdfBytes); err != nil {
		t.Fatalf("submit p1: %v", err)
	}
	if _, err := svc.Submit(context.Background(), "rehab-center", form.ID, "p2", "b.pdf", "application/pdf", pdfBytes); err != nil {
		t.Fatalf("submit p2: %v", err)
	}

	all, _ := repo.ListSubmissions(context.Background(), form.ID, "")
	if len(all) != 2 {
		t.Fatalf("expected one submission per patient, got %d", len(all))
	}
}

func TestSubmitUnknownForm(t *testing.T) {
	svc, _, store := newFormsService(t)

	_, err := svc.Submit(context.Background(), "rehab-center", "missing", "p1", "a.pdf", "application/pdf", pdfBytes)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.uploads != 0 {
		t.Fatalf("upload must not happen for unknown form")
	}
}

func TestDeleteFormCleansBlob(t *testing.T) {
	svc, _, store := newFormsService(t)

	form, _ := svc.CreateForm(context.Background(), "rehab-center", "Intake", "intake.pdf", "application/pdf", pdfBytes)
	if err := svc.DeleteForm(context.Background(), "rehab-center", form.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != form.URL {
		t.Fatalf("expected template blob removed, deleted: %v", store.deleted)
	}
}

func TestDeleteSubmissionOwnedByPatient(t *testing.T) {
	svc, repo, store := newFormsService(t)

	form, _ := svc.CreateForm(context.Background(), "rehab-center", "Intake", "intake.pdf", "application/pdf", pdfBytes)
	submission, err := svc.Submit(context.Background(), "rehab-center", form.ID, "p1", "a.pdf", "application/pdf", pdfBytes)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.DeleteSubmission(context.Background(), "rehab-center", submission.ID, "p1"); err != nil {
		t.Fatalf("delete submission: %v", err)
	}
	if _, ok := repo.submissions[submission.ID]; ok {
		t.Fatalf("submission record not removed")
	}

	found := false
	for _, url := range store.deleted {
		if url == submission.URL {
			found = true
		}
	}
	if !found {
		t.Fatalf("submission blob %s not cleaned up, deleted: %v", submission.URL, store.deleted)
	}
}

func TestDeleteSubmissionForeignPatientRejected(t *testing.T) {
	svc, repo, _ := newFormsService(t)

	form, _ := svc.CreateForm(context.Background(), "rehab-center", "Intake", "intake.pdf", "application/pdf", pdfBytes)
	submission, err := svc.Submit(context.Background(), "rehab-center", form.ID, "p1", "a.pdf", "application/pdf", pdfBytes)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = svc.DeleteSubmission(context.Background(), "rehab-center", submission.ID, "p2")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign submission, got %v", err)
	}
	if _, ok := repo.submissions[submission.ID]; !ok {
		t.Fatalf("foreign delete must not remove the record")
	}
}

func TestDeleteSubmissionStaffAnyPatient(t *testing.T) {
	svc, repo, _ := newFormsService(t)

	form, _ := svc.CreateForm(context.Background(), "rehab-center", "Intake", "intake.pdf", "application/pdf", pdfBytes)
	submission, err := svc.Submit(context.Background(), "rehab-center", form.ID, "p1", "a.pdf", "application/pdf", pdfBytes)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.DeleteSubmission(context.Background(), "rehab-center", submission.ID, ""); err != nil {
		t.Fatalf("staff delete: %v", err)
	}
	if _, ok := repo.submissions[submission.ID]; ok {
		t.Fatalf("submission record not removed")
	}
}

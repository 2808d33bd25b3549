package appointments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"dcc-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	items map[string]models.Appointment
}

func newFakeRepo(items ...models.Appointment) *fakeRepo {
	r := &fakeRepo{items: make(map[string]models.Appointment)}
	for _, a := range items {
		r.items[a.ID] = a
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, appointment models.Appointment) error {
	for _, existing := range r.items {
		if existing.TherapistID == appointment.TherapistID &&
			existing.Date == appointment.Date &&
			existing.Hour == appointment.Hour &&
			existing.State != models.AppointmentStateCanceled {
			return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		}
	}
	r.items[appointment.ID] = appointment
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, clinicSlug, id string) (models.Appointment, error) {
	a, ok := r.items[id]
	if !ok || a.ClinicSlug != clinicSlug {
		return models.Appointment{}, mongo.ErrNoDocuments
	}
	return a, nil
}

func (r *fakeRepo) List(_ context.Context, clinicSlug string, filter ListFilter) ([]models.Appointment, error) {
	items := make([]models.Appointment, 0)
	for _, a := range r.items {
		if a.ClinicSlug != clinicSlug {
			continue
		}
		if filter.PatientID != "" && a.PatientID != filter.PatientID {
			continue
		}
		if filter.TherapistID != "" && a.TherapistID != filter.TherapistID {
			continue
		}
		if filter.State != "" && a.State != filter.State {
			continue
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *fakeRepo) Update(_ context.Context, clinicSlug, id string, set bson.M) (models.Appointment, error) {
	a, ok := r.items[id]
	if !ok || a.ClinicSlug != clinicSlug {
		return models.Appointment{}, mongo.ErrNoDocuments
	}
	for key, value := range set {
		switch key {
		case "state":
			a.State = value.(string)
		case "assistance":
			a.Assistance = value.(string)
		case "rating":
			rating := value.(models.Rating)
			a.Rating = &rating
		case "updatedAt":
			a.UpdatedAt = value.(time.Time)
		}
	}
	r.items[id] = a
	return a, nil
}

type fakeServiceFinder struct {
	services map[string]models.Service
}

func (f *fakeServiceFinder) GetBookable(_ context.Context, _, id string) (models.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return models.Service{}, mongo.ErrNoDocuments
	}
	return s, nil
}

type fakeUserFinder struct {
	users map[string]models.User
}

func (f *fakeUserFinder) GetByID(_ context.Context, _, id string) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

type captureMailer struct {
	confirmations int
	cancelations  int
}

func (m *captureMailer) SendAppointmentConfirmation(_ context.Context, _ models.Clinic, _ models.Appointment, _ models.Service, _ models.User) (string, error) {
	m.confirmations++
	return "msg-1", nil
}

func (m *captureMailer) SendAppointmentCanceled(_ context.Context, _ models.Clinic, _ models.Appointment, _ models.Service, _ models.User) (string, error) {
	m.cancelations++
	return "msg-2", nil
}

func testClinic() models.Clinic {
	return models.Clinic{
		Slug:             "rehab-center",
		Name:             "Rehab Center",
		CancelationHours: 24,
		Active:           true,
	}
}

func testFixtures() (*fakeRepo, *fakeServiceFinder, *fakeUserFinder) {
	repo := newFakeRepo()
	services := &fakeServiceFinder{services: map[string]models.Service{
		"svc1": {ID: "svc1", ClinicSlug: "rehab-center", Name: "Physiotherapy", Price: 120, Active: true},
	}}
	users := &fakeUserFinder{users: map[string]models.User{
		"t1": {ID: "t1", ClinicSlug: "rehab-center", Names: "Luis", Role: models.RoleTherapist, Enabled: true},
		"p1": {ID: "p1", ClinicSlug: "rehab-center", Names: "Ana", Email: "ana@example.com", Role: models.RolePatient, Enabled: true},
	}}
	return repo, services, users
}

func newTestService(t *testing.T, repo Repository, services ServiceFinder, users UserFinder, mailer Mailer) *Service {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	svc, err := NewService(repo, services, users, mailer, slog.New(slog.NewTextHandler(io.Discard, nil)), loc)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func futureSlot() (string, string) {
	loc, _ := time.LoadLocation("America/Bogota")
	at := time.Now().In(loc).AddDate(0, 0, 3)
	return at.Format("2006-01-02"), "10"
}

func TestBookOnSiteStartsPending(t *testing.T) {
	repo, services, users := testFixtures()
	mailer := &captureMailer{}
	svc := newTestService(t, repo, services, users, mailer)

	date, hour := futureSlot()
	appointment, err := svc.Book(context.Background(), testClinic(), "p1", BookRequest{
		TherapistID:   "t1",
		ServiceID:     "svc1",
		HeadquarterID: "hq1",
		Date:          date,
		Hour:          hour,
		PaymentMethod: models.PaymentOnSite,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appointment.State != models.AppointmentStatePending {
		t.Fatalf("expected PENDING for on-site payment, got %s", appointment.State)
	}
	if appointment.Price != 120 {
		t.Fatalf("expected price snapshot 120, got %v", appointment.Price)
	}
	if mailer.confirmations != 1 {
		t.Fatalf("expected one confirmation email, got %d", mailer.confirmations)
	}
}

func TestBookOnlineStartsToPay(t *testing.T) {
	repo, services, users := testFixtures()
	svc := newTestService(t, repo, services, users, nil)

	date, hour := futureSlot()
	appointment, err := svc.Book(context.Background(), testClinic(), "p1", BookRequest{
		TherapistID:   "t1",
		ServiceID:     "svc1",
		HeadquarterID: "hq1",
		Date:          date,
		Hour:          hour,
		PaymentMethod: models.PaymentOnline,
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if appointment.State != models.AppointmentStateToPay {
		t.Fatalf("expected TO_PAY for online payment, got %s", appointment.State)
	}
}

func TestBookPastSlotRejected(t *testing.T) {
	repo, services, users := testFixtures()
	svc := newTestService(t, repo, services, users, nil)

	_, err := svc.Book(context.Background(), testClinic(), "p1", BookRequest{
		TherapistID:   "t1",
		ServiceID:     "svc1",
		HeadquarterID: "hq1",
		Date:          "2020-01-01",
		Hour:          "10",
		PaymentMethod: models.PaymentOnSite,
	})
	if !errors.Is(err, ErrSlotPast) {
		t.Fatalf("expected ErrSlotPast, got %v", err)
	}
}

func TestBookCurrentHourAllowed(t *testing.T) {
	repo, services, users := testFixtures()
	svc := newTestService(t, repo, services, users, nil)

	loc, _ := time.LoadLocation("America/Bogota")
	now := time.Now().In(loc)
	appointment, err := svc.Book(context.Background(), testClinic(), "p1", BookRequest{
		TherapistID:   "t1",
		ServiceID:     "svc1",
		HeadquarterID: "hq1",
		Date:          now.Format("2006-01-02"),
		Hour:          strconv.Itoa(now.Hour()),
		PaymentMethod: models.PaymentOnSite,
	})
	if err != nil {
		t.Fatalf("booking within the current hour must succeed: %v", err)
	}
	if appointment.ID == "" {
		t.Fatalf("expected created appointment")
	}
}

func TestBookDuplicateSlot(t *testing.T) {
	repo, services, users := testFixtures()
	svc := newTestService(t, repo, services, users, nil)

	date, hour := futureSlot()
	req := BookRequest{
		TherapistID:   "t1",
		ServiceID:     "svc1",
		HeadquarterID: "hq1",
		Date:          date,
		Hour:          hour,
		PaymentMethod: models.PaymentOnSite,
	}
	if _, err := svc.Book(context.Background(), testClinic(), "p1", req); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := svc.Book(context.Background(), testClinic(), "p2", req); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestBookUnknownService(t *testing.T) {
	repo, services, users := testFixtures()
	svc := newTestService(t, repo, services, users, nil)

	date, hour := futureSlot()
	_, err := svc.Book(context.Background(), testClinic(), "p1", BookRequest{
		TherapistID:   "t1",
		ServiceID:     "missing",
		HeadquarterID: "hq1",
		Date:          date,
		Hour:          hour,
		PaymentMethod: models.PaymentOnSite,
	})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestBookDisabledTherapist(t *testing.T) {
	repo, services, users := testFixtures()
	disabled := users.users["t1"]
	disabled.Enabled = false
	users.users["t1"] = disabled
	svc := newTestService(t, repo, services, users, nil)

	date, hour := futureSlot()
	_, err := svc.Book(context.Background(), testClinic(), "p1", BookRequest{
		TherapistID:   "t1",
		ServiceID:     "svc1",
		HeadquarterID: "hq1",
		Date:          date,
		Hour:          hour,
		PaymentMethod: models.PaymentOnSite,
	})
	if !errors.Is(err, ErrTherapistUnavailable) {
		t.Fatalf("expected ErrTherapistUnavailable, got %v", err)
	}
}

func seededAppointment(state, date, hour string) models.Appointment {
	return models.Appointment{
		ID:            "a1",
		ClinicSlug:    "rehab-center",
		PatientID:     "p1",
		TherapistID:   "t1",
		ServiceID:     "svc1",
		HeadquarterID: "hq1",
		Date:          date,
		Hour:          hour,
		State:         state,
		Price:         120,
		PaymentMethod: models.PaymentOnSite,
	}
}

func TestCancelInsideWindowRejectedForPatient(t *testing.T) {
	loc, _ := time.LoadLocation("America/Bogota")
	soon := time.Now().In(loc).Add(2 * time.Hour)
	a := seededAppointment(models.AppointmentStateActive, soon.Format("2006-01-02"), strconv.Itoa(soon.Hour()))
	repo, services, users := testFixtures()
	repo.items[a.ID] = a
	mailer := &captureMailer{}
	svc := newTestService(t, repo, services, users, mailer)

	// Clinic requires 24h notice, the appointment is 2h away.
	if _, err := svc.Cancel(context.Background(), testClinic(), "a1", "p1"); !errors.Is(err, ErrTooLateToCancel) {
		t.Fatalf("expected ErrTooLateToCancel, got %v", err)
	}

	// Staff cancelations ignore the window.
	canceled, err := svc.Cancel(context.Background(), testClinic(), "a1", "")
	if err != nil {
		t.Fatalf("staff cancel: %v", err)
	}
	if canceled.State != models.AppointmentStateCanceled {
		t.Fatalf("expected CANCELED, got %s", canceled.State)
	}
	if mailer.cancelations != 1 {
		t.Fatalf("expected one cancelation email, got %d", mailer.cancelations)
	}
}

func TestCancelOtherPatientsAppointment(t *testing.T) {
	date, hour := futureSlot()
	a := seededAppointment(models.AppointmentStateActive, date, hour)
	repo, services, users := testFixtures()
	repo.items[a.ID] = a
	svc := newTestService(t, repo, services, users, nil)

	if _, err := svc.Cancel(context.Background(), testClinic(), "a1", "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign appointment, got %v", err)
	}
}

func TestTerminalStatesImmutable(t *testing.T) {
	date, hour := futureSlot()
	for _, state := range []string{models.AppointmentStateClosed, models.AppointmentStateCanceled} {
		a := seededAppointment(state, date, hour)
		repo, services, users := testFixtures()
		repo.items[a.ID] = a
		svc := newTestService(t, repo, services, users, nil)

		if _, err := svc.Cancel(context.Background(), testClinic(), "a1", ""); !errors.Is(err, ErrStateFinal) {
			t.Fatalf("cancel from %s: expected ErrStateFinal, got %v", state, err)
		}
		if _, err := svc.Confirm(context.Background(), "rehab-center", "a1"); !errors.Is(err, ErrStateFinal) {
			t.Fatalf("confirm from %s: expected ErrStateFinal, got %v", state, err)
		}
		if _, err := svc.Close(context.Background(), "rehab-center", CloseRequest{ID: "a1", Assistance: models.AssistanceAttended}); !errors.Is(err, ErrStateFinal) {
			t.Fatalf("close from %s: expected ErrStateFinal, got %v", state, err)
		}
	}
}

func TestCloseRecordsAssistance(t *testing.T) {
	date, hour := futureSlot()
	a := seededAppointment(models.AppointmentStateActive, date, hour)
	repo, services, users := testFixtures()
	repo.items[a.ID] = a
	svc := newTestService(t, repo, services, users, nil)

	closed, err := svc.Close(context.Background(), "rehab-center", CloseRequest{ID: "a1", Assistance: models.AssistanceMissed})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.State != models.AppointmentStateClosed || closed.Assistance != models.AssistanceMissed {
		t.Fatalf("expected closed missed appointment, got %+v", closed)
	}
}

func TestRateOnlyClosed(t *testing.T) {
	date, hour := futureSlot()
	a := seededAppointment(models.AppointmentStateActive, date, hour)
	repo, services, users := testFixtures()
	repo.items[a.ID] = a
	svc := newTestService(t, repo, services, users, nil)

	if _, err := svc.Rate(context.Background(), "rehab-center", "p1", RateRequest{ID: "a1", Score: 5}); !errors.Is(err, ErrNotClosed) {
		t.Fatalf("expected ErrNotClosed, got %v", err)
	}

	if _, err := svc.Close(context.Background(), "rehab-center", CloseRequest{ID: "a1", Assistance: models.AssistanceAttended}); err != nil {
		t.Fatalf("close: %v", err)
	}

	rated, err := svc.Rate(context.Background(), "rehab-center", "p1", RateRequest{ID: "a1", Score: 4, Comment: "helpful"})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rated.Rating == nil || rated.Rating.Score != 4 {
		t.Fatalf("expected stored rating, got %+v", rated.Rating)
	}
}

func TestRateForeignAppointment(t *testing.T) {
	date, hour := futureSlot()
	a := seededAppointment(models.AppointmentStateClosed, date, hour)
	repo, services, users := testFixtures()
	repo.items[a.ID] = a
	svc := newTestService(t, repo, services, users, nil)

	if _, err := svc.Rate(context.Background(), "rehab-center", "someone-else", RateRequest{ID: "a1", Score: 5}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

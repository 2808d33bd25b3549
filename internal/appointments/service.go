package appointments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dcc-backend/internal/lifecycle"
	"dcc-backend/internal/listing"
	"dcc-backend/internal/models"
	"dcc-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound             = errors.New("appointment not found")
	ErrSlotTaken            = errors.New("slot already booked")
	ErrSlotPast             = errors.New("slot is in the past")
	ErrServiceUnavailable   = errors.New("service not bookable")
	ErrTherapistUnavailable = errors.New("therapist not available")
	ErrStateFinal           = errors.New("appointment already closed or canceled")
	ErrTooLateToCancel      = errors.New("cancelation window has passed")
	ErrNotClosed            = errors.New("appointment not closed yet")
	ErrInvalidAssistance    = errors.New("invalid assistance value")
)

type ServiceFinder interface {
	GetBookable(ctx context.Context, clinicSlug, id string) (models.Service, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, clinicSlug, id string) (models.User, error)
}

type Mailer interface {
	SendAppointmentConfirmation(ctx context.Context, clinic models.Clinic, appointment models.Appointment, service models.Service, patient models.User) (string, error)
	SendAppointmentCanceled(ctx context.Context, clinic models.Clinic, appointment models.Appointment, service models.Service, patient models.User) (string, error)
}

type Service struct {
	repo     Repository
	services ServiceFinder
	users    UserFinder
	tracker  *lifecycle.Tracker
	mailer   Mailer
	ctrl     *listing.Controller[models.Appointment]
	log      *slog.Logger
	location *time.Location
}

func NewService(repo Repository, services ServiceFinder, users UserFinder, mailer Mailer, log *slog.Logger, location *time.Location) (*Service, error) {
	ctrl, err := listing.NewController(
		listing.AdminPageSize,
		func(a models.Appointment) []string {
			return []string{a.Date, a.State, a.PaymentMethod}
		},
		listing.ByString(func(a models.Appointment) string { return a.ID }),
		map[string]listing.Comparator[models.Appointment]{
			"date": listing.ByString(func(a models.Appointment) string {
				// Hour codes are not zero padded, pad for lexicographic order.
				if len(a.Hour) == 1 {
					return a.Date + " 0" + a.Hour
				}
				return a.Date + " " + a.Hour
			}),
			"state":   listing.ByString(func(a models.Appointment) string { return a.State }),
			"price":   listing.ByNumber(func(a models.Appointment) float64 { return a.Price }),
			"created": listing.ByTime(func(a models.Appointment) time.Time { return a.CreatedAt }),
		},
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:     repo,
		services: services,
		users:    users,
		tracker:  lifecycle.NewTracker(),
		mailer:   mailer,
		ctrl:     ctrl,
		log:      log,
		location: location,
	}, nil
}

type BookRequest struct {
	TherapistID   string `json:"therapist_id" validate:"required"`
	ServiceID     string `json:"service_id" validate:"required"`
	HeadquarterID string `json:"headquarter_id" validate:"required"`
	Date          string `json:"date" validate:"required,date"`
	Hour          string `json:"hour" validate:"required,hourcode"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=ONLINE ON_SITE"`
}

// Book creates an appointment for the patient. The slot must not be in
// the past at hour granularity: booking within the current hour is
// accepted.
func (s *Service) Book(ctx context.Context, clinic models.Clinic, patientID string, req BookRequest) (models.Appointment, error) {
	now := time.Now().In(s.location)
	past, err := schedule.IsHourPast(req.Date, req.Hour, s.location, now)
	if err != nil {
		return models.Appointment{}, err
	}
	if past {
		return models.Appointment{}, ErrSlotPast
	}

	service, err := s.services.GetBookable(ctx, clinic.Slug, req.ServiceID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Appointment{}, ErrServiceUnavailable
		}
		return models.Appointment{}, err
	}

	therapist, err := s.users.GetByID(ctx, clinic.Slug, req.TherapistID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Appointment{}, ErrTherapistUnavailable
		}
		return models.Appointment{}, err
	}
	if therapist.Role != models.RoleTherapist || !therapist.EnabledAt(now) {
		return models.Appointment{}, ErrTherapistUnavailable
	}

	state := models.AppointmentStatePending
	if req.PaymentMethod == models.PaymentOnline {
		state = models.AppointmentStateToPay
	}

	appointment := models.Appointment{
		ID:            primitive.NewObjectID().Hex(),
		ClinicSlug:    clinic.Slug,
		PatientID:     patientID,
		TherapistID:   req.TherapistID,
		ServiceID:     req.ServiceID,
		HeadquarterID: req.HeadquarterID,
		Date:          req.Date,
		Hour:          req.Hour,
		State:         state,
		Price:         service.Price,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Appointment{}, ErrSlotTaken
		}
		return models.Appointment{}, err
	}

	s.notifyConfirmation(ctx, clinic, appointment, service)
	return appointment, nil
}

type ListResult struct {
	Appointments []models.Appointment `json:"appointments"`
	Total        int                  `json:"total"`
	Page         int                  `json:"page"`
	PageCount    int                  `json:"page_count"`
}

func (s *Service) GetAll(ctx context.Context, clinicSlug string, filter ListFilter, query, sortBy string, dir listing.Direction, page int) (ListResult, error) {
	all, err := s.repo.List(ctx, clinicSlug, filter)
	if err != nil {
		return ListResult{}, err
	}

	filtered := s.ctrl.Filter(all, query)
	sorted := s.ctrl.Sort(filtered, sortBy, dir)
	return ListResult{
		Appointments: s.ctrl.Page(sorted, page),
		Total:        len(filtered),
		Page:         page,
		PageCount:    s.ctrl.PageCount(len(filtered)),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, clinicSlug, id string) (models.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, clinicSlug, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, err
	}
	return appointment, nil
}

// Confirm moves a pending or unpaid appointment to active.
func (s *Service) Confirm(ctx context.Context, clinicSlug, id string) (models.Appointment, error) {
	appointment, err := s.GetByID(ctx, clinicSlug, id)
	if err != nil {
		return models.Appointment{}, err
	}
	if models.AppointmentStateTerminal(appointment.State) {
		return models.Appointment{}, ErrStateFinal
	}

	set := bson.M{
		"state":     models.AppointmentStateActive,
		"updatedAt": time.Now().In(s.location),
	}
	return s.update(ctx, clinicSlug, appointment.ID, set)
}

// Cancel aborts a non-terminal appointment. A non-empty patientID marks
// a patient-initiated cancelation: the appointment must belong to that
// patient and the clinic's cancelation window applies, the appointment
// instant minus the window must still be ahead of now.
func (s *Service) Cancel(ctx context.Context, clinic models.Clinic, id, patientID string) (models.Appointment, error) {
	id = strings.TrimSpace(id)
	if err := s.tracker.Begin(id); err != nil {
		return models.Appointment{}, err
	}

	appointment, err := s.cancel(ctx, clinic, id, patientID)
	if err != nil {
		_ = s.tracker.Fail(id, err.Error())
		return models.Appointment{}, err
	}
	_ = s.tracker.Succeed(id)
	return appointment, nil
}

func (s *Service) cancel(ctx context.Context, clinic models.Clinic, id, patientID string) (models.Appointment, error) {
	appointment, err := s.GetByID(ctx, clinic.Slug, id)
	if err != nil {
		return models.Appointment{}, err
	}
	if patientID != "" && appointment.PatientID != patientID {
		return models.Appointment{}, ErrNotFound
	}
	if models.AppointmentStateTerminal(appointment.State) {
		return models.Appointment{}, ErrStateFinal
	}

	if patientID != "" && clinic.CancelationHours > 0 {
		at, err := schedule.At(appointment.Date, appointment.Hour, s.location)
		if err != nil {
			return models.Appointment{}, err
		}
		deadline := at.Add(-time.Duration(clinic.CancelationHours) * time.Hour)
		if !time.Now().In(s.location).Before(deadline) {
			return models.Appointment{}, ErrTooLateToCancel
		}
	}

	set := bson.M{
		"state":     models.AppointmentStateCanceled,
		"updatedAt": time.Now().In(s.location),
	}
	canceled, err := s.update(ctx, clinic.Slug, appointment.ID, set)
	if err != nil {
		return models.Appointment{}, err
	}

	s.notifyCancelation(ctx, clinic, canceled)
	return canceled, nil
}

type CloseRequest struct {
	ID         string `json:"id" validate:"required"`
	Assistance string `json:"assistance" validate:"required,oneof=ATTENDED MISSED"`
}

// Close finishes an appointment and records whether the patient showed
// up. Closed appointments only accept a rating afterwards.
func (s *Service) Close(ctx context.Context, clinicSlug string, req CloseRequest) (models.Appointment, error) {
	if req.Assistance != models.AssistanceAttended && req.Assistance != models.AssistanceMissed {
		return models.Appointment{}, ErrInvalidAssistance
	}

	appointment, err := s.GetByID(ctx, clinicSlug, req.ID)
	if err != nil {
		return models.Appointment{}, err
	}
	if models.AppointmentStateTerminal(appointment.State) {
		return models.Appointment{}, ErrStateFinal
	}

	set := bson.M{
		"state":      models.AppointmentStateClosed,
		"assistance": req.Assistance,
		"updatedAt":  time.Now().In(s.location),
	}
	return s.update(ctx, clinicSlug, appointment.ID, set)
}

type RateRequest struct {
	ID      string `json:"id" validate:"required"`
	Score   int    `json:"score" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=500"`
}

func (s *Service) Rate(ctx context.Context, clinicSlug, patientID string, req RateRequest) (models.Appointment, error) {
	appointment, err := s.GetByID(ctx, clinicSlug, req.ID)
	if err != nil {
		return models.Appointment{}, err
	}
	if appointment.State != models.AppointmentStateClosed {
		return models.Appointment{}, ErrNotClosed
	}
	if appointment.PatientID != patientID {
		return models.Appointment{}, ErrNotFound
	}

	set := bson.M{
		"rating": models.Rating{
			Score:   req.Score,
			Comment: strings.TrimSpace(req.Comment),
		},
		"updatedAt": time.Now().In(s.location),
	}
	return s.update(ctx, clinicSlug, appointment.ID, set)
}

func (s *Service) update(ctx context.Context, clinicSlug, id string, set bson.M) (models.Appointment, error) {
	updated, err := s.repo.Update(ctx, clinicSlug, id, set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, err
	}
	return updated, nil
}

func (s *Service) notifyConfirmation(ctx context.Context, clinic models.Clinic, appointment models.Appointment, service models.Service) {
	if s.mailer == nil {
		return
	}
	patient, err := s.users.GetByID(ctx, clinic.Slug, appointment.PatientID)
	if err != nil {
		s.log.Warn("appointment book: patient lookup for email failed", slog.String("error", err.Error()))
		return
	}
	if _, err := s.mailer.SendAppointmentConfirmation(ctx, clinic, appointment, service, patient); err != nil {
		s.log.Warn("appointment book: confirmation email failed",
			slog.String("appointment_id", appointment.ID),
			slog.String("error", err.Error()))
	}
}

func (s *Service) notifyCancelation(ctx context.Context, clinic models.Clinic, appointment models.Appointment) {
	if s.mailer == nil {
		return
	}
	patient, err := s.users.GetByID(ctx, clinic.Slug, appointment.PatientID)
	if err != nil {
		s.log.Warn("appointment cancel: patient lookup for email failed", slog.String("error", err.Error()))
		return
	}
	service, err := s.services.GetBookable(ctx, clinic.Slug, appointment.ServiceID)
	if err != nil {
		// The service may have been retired since booking, cancel mail
		// still goes out with the stored price context omitted.
		service = models.Service{Name: "your appointment"}
	}
	if _, err := s.mailer.SendAppointmentCanceled(ctx, clinic, appointment, service, patient); err != nil {
		s.log.Warn("appointment cancel: email failed",
			slog.String("appointment_id", appointment.ID),
			slog.String("error", err.Error()))
	}
}

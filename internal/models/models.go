package models

import "time"

const (
	RoleAdministrator = "ADMINISTRATOR"
	RoleTherapist     = "THERAPIST"
	RoleReceptionist  = "RECEPTIONIST"
	RolePatient       = "PATIENT"
	RoleSoftwareOwner = "SOFTWARE_OWNER"

	AppointmentStatePending  = "PENDING"
	AppointmentStateToPay    = "TO_PAY"
	AppointmentStateActive   = "ACTIVE"
	AppointmentStateClosed   = "CLOSED"
	AppointmentStateCanceled = "CANCELED"

	AssistanceAttended = "ATTENDED"
	AssistanceMissed   = "MISSED"

	PaymentOnline = "ONLINE"
	PaymentOnSite = "ON_SITE"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdministrator, RoleTherapist, RoleReceptionist, RolePatient, RoleSoftwareOwner:
		return true
	}
	return false
}

// AppointmentStateTerminal reports whether an appointment can no longer be
// mutated (rating attachment excepted).
func AppointmentStateTerminal(state string) bool {
	return state == AppointmentStateClosed || state == AppointmentStateCanceled
}

type Clinic struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	Slug                string    `bson:"slug" json:"slug"`
	Name                string    `bson:"name" json:"name"`
	CountryCode         string    `bson:"countryCode" json:"country_code"`
	CurrencyCode        string    `bson:"currencyCode" json:"currency_code"`
	CancelationHours    int       `bson:"cancelationHours" json:"cancelation_hours"`
	HideForTherapist    bool      `bson:"hideForTherapist" json:"hide_for_therapist"`
	HideForReceptionist bool      `bson:"hideForReceptionist" json:"hide_for_receptionist"`
	HideForPatients     bool      `bson:"hideForPatients" json:"hide_for_patients"`
	Active              bool      `bson:"active" json:"active"`
	Removed             bool      `bson:"removed" json:"removed"`
	CreatedAt           time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt           time.Time `bson:"updatedAt" json:"updated_at"`
}

type User struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	ClinicSlug   string `bson:"clinicSlug" json:"clinic_slug"`
	Names        string `bson:"names" json:"names"`
	LastNames    string `bson:"lastNames" json:"last_names"`
	Email        string `bson:"email" json:"email"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address      string `bson:"address,omitempty" json:"address,omitempty"`
	Nationality  string `bson:"nationality,omitempty" json:"nationality,omitempty"`
	Role         string `bson:"role" json:"role"`
	PasswordHash string `bson:"passwordHash" json:"-"`

	Enabled bool `bson:"enabled" json:"enabled"`
	Retired bool `bson:"retired" json:"retired"`

	// Scheduled transitions, literal clinic-local instants. A set
	// DeactivationDate disables the account from that instant on; a set
	// ActivationDate re-enables it from that later instant.
	DeactivationDate *time.Time `bson:"deactivationDate,omitempty" json:"deactivation_date,omitempty"`
	ActivationDate   *time.Time `bson:"activationDate,omitempty" json:"activation_date,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// EnabledAt resolves the effective enabled state at the given instant,
// folding in any scheduled deactivation window.
func (u User) EnabledAt(now time.Time) bool {
	if u.Retired {
		return false
	}
	if !u.Enabled {
		return false
	}
	if u.DeactivationDate == nil || now.Before(*u.DeactivationDate) {
		return true
	}
	if u.ActivationDate != nil && !now.Before(*u.ActivationDate) {
		return true
	}
	return false
}

type Service struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	ClinicSlug  string    `bson:"clinicSlug" json:"clinic_slug"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Price       float64   `bson:"price" json:"price"`
	Duration    int       `bson:"duration" json:"duration"`
	Active      bool      `bson:"active" json:"active"`
	Removed     bool      `bson:"removed" json:"removed"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updated_at"`
}

type Headquarter struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	ClinicSlug string    `bson:"clinicSlug" json:"clinic_slug"`
	Name       string    `bson:"name" json:"name"`
	CityCode   string    `bson:"cityCode" json:"city_code"`
	Address    string    `bson:"address" json:"address"`
	Removed    bool      `bson:"removed" json:"removed"`
	CreatedAt  time.Time `bson:"createdAt" json:"created_at"`
}

type Rating struct {
	Score   int    `bson:"score" json:"score"`
	Comment string `bson:"comment,omitempty" json:"comment,omitempty"`
}

type Appointment struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	ClinicSlug    string    `bson:"clinicSlug" json:"clinic_slug"`
	PatientID     string    `bson:"patientId" json:"patient_id"`
	TherapistID   string    `bson:"therapistId" json:"therapist_id"`
	ServiceID     string    `bson:"serviceId" json:"service_id"`
	HeadquarterID string    `bson:"headquarterId" json:"headquarter_id"`
	Date          string    `bson:"date" json:"date"`
	Hour          string    `bson:"hour" json:"hour"`
	State         string    `bson:"state" json:"state"`
	Assistance    string    `bson:"assistance,omitempty" json:"assistance,omitempty"`
	Price         float64   `bson:"price" json:"price"`
	PaymentMethod string    `bson:"paymentMethod" json:"payment_method"`
	Rating        *Rating   `bson:"rating,omitempty" json:"rating,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updated_at"`
}

type Form struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	ClinicSlug string    `bson:"clinicSlug" json:"clinic_slug"`
	Name       string    `bson:"name" json:"name"`
	URL        string    `bson:"url" json:"url"`
	FileName   string    `bson:"fileName" json:"file_name"`
	CreatedAt  time.Time `bson:"createdAt" json:"created_at"`
}

type SubmittedFile struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	FormID    string    `bson:"formId" json:"form_id"`
	PatientID string    `bson:"patientId" json:"patient_id"`
	URL       string    `bson:"url" json:"url"`
	FileName  string    `bson:"fileName" json:"file_name"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"dcc-backend/internal/models"
)

const appointmentConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.PatientName}},</p>
  <p>Your appointment at {{.ClinicName}} is confirmed:</p>
  <ul>
    <li>Service: {{.ServiceName}}</li>
    <li>Date: {{.Date}}</li>
    <li>Hour: {{.Hour}}</li>
    <li>Booking number: {{.AppointmentID}}</li>
  </ul>
  <p>If you need to reschedule, please do so at least {{.CancelationHours}} hours in advance.</p>
  <p>Thank you.</p>
</body>
</html>`

const appointmentCanceledTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.PatientName}},</p>
  <p>Your appointment for {{.ServiceName}} on {{.Date}} at {{.Hour}} has been canceled.</p>
  <p>Booking number: {{.AppointmentID}}</p>
</body>
</html>`

const accountActivationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hello {{.Name}},</p>
  <p>An account was created for you at {{.ClinicName}}. Use this code to activate it and choose a password:</p>
  <p><strong>{{.Code}}</strong></p>
</body>
</html>`

var (
	appointmentConfirmationTmpl = template.Must(template.New("appointment_confirmation").Parse(appointmentConfirmationTemplate))
	appointmentCanceledTmpl     = template.Must(template.New("appointment_canceled").Parse(appointmentCanceledTemplate))
	accountActivationTmpl       = template.Must(template.New("account_activation").Parse(accountActivationTemplate))
)

type appointmentMailData struct {
	PatientName      string
	ClinicName       string
	ServiceName      string
	Date             string
	Hour             string
	AppointmentID    string
	CancelationHours int
}

func (c *BrevoClient) SendAppointmentConfirmation(ctx context.Context, clinic models.Clinic, appointment models.Appointment, service models.Service, patient models.User) (string, error) {
	data := appointmentMailData{
		PatientName:      patient.Names,
		ClinicName:       clinic.Name,
		ServiceName:      service.Name,
		Date:             appointment.Date,
		Hour:             hourLabel(appointment.Hour),
		AppointmentID:    appointment.ID,
		CancelationHours: clinic.CancelationHours,
	}
	var buf bytes.Buffer
	if err := appointmentConfirmationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	subject := fmt.Sprintf("Appointment confirmed - %s", service.Name)
	return c.sendHTML(ctx, patient.Email, patient.Names, subject, buf.String())
}

func (c *BrevoClient) SendAppointmentCanceled(ctx context.Context, clinic models.Clinic, appointment models.Appointment, service models.Service, patient models.User) (string, error) {
	data := appointmentMailData{
		PatientName:   patient.Names,
		ClinicName:    clinic.Name,
		ServiceName:   service.Name,
		Date:          appointment.Date,
		Hour:          hourLabel(appointment.Hour),
		AppointmentID: appointment.ID,
	}
	var buf bytes.Buffer
	if err := appointmentCanceledTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	subject := fmt.Sprintf("Appointment canceled - %s", service.Name)
	return c.sendHTML(ctx, patient.Email, patient.Names, subject, buf.String())
}

type activationMailData struct {
	Name       string
	ClinicName string
	Code       string
}

func (c *BrevoClient) SendAccountActivation(ctx context.Context, clinic models.Clinic, user models.User, code string) (string, error) {
	data := activationMailData{
		Name:       user.Names,
		ClinicName: clinic.Name,
		Code:       code,
	}
	var buf bytes.Buffer
	if err := accountActivationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return c.sendHTML(ctx, user.Email, user.Names, "Activate your account", buf.String())
}

func hourLabel(hourCode string) string {
	if len(hourCode) == 1 {
		return "0" + hourCode + ":00"
	}
	return hourCode + ":00"
}

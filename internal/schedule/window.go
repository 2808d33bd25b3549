package schedule

import (
	"errors"
	"time"
)

var (
	ErrDeactivationRequired   = errors.New("deactivation date and hour are required")
	ErrDeactivationDatePast   = errors.New("deactivation date is in the past")
	ErrDeactivationHourPast   = errors.New("deactivation hour already passed")
	ErrIncompleteActivation   = errors.New("activation date and hour must both be set")
	ErrActivationBeforeWindow = errors.New("activation date precedes deactivation date")
	ErrActivationHourOrder    = errors.New("activation hour must be after deactivation hour")
)

// Window is a scheduled deactivation with an optional paired re-activation,
// both as date + hour code. The setters mirror the input flow: picking a new
// deactivation date discards previously chosen hours, and picking a new
// deactivation hour discards an activation hour the change made invalid, so
// every field that survives a setter still satisfies the ordering invariant.
type Window struct {
	DeactivationDate string
	DeactivationHour string
	ActivationDate   string
	ActivationHour   string
}

func (w *Window) SetDeactivationDate(date string) {
	if date != w.DeactivationDate {
		w.DeactivationHour = ""
		w.ActivationHour = ""
	}
	w.DeactivationDate = date
}

func (w *Window) SetDeactivationHour(hour string) {
	w.DeactivationHour = hour
	if w.ActivationHour == "" {
		return
	}
	if w.ActivationDate != "" && w.ActivationDate != w.DeactivationDate {
		return
	}
	ah, errA := ParseHourCode(w.ActivationHour)
	dh, errD := ParseHourCode(hour)
	if errA != nil || errD != nil || ah <= dh {
		w.ActivationHour = ""
	}
}

func (w *Window) SetActivationDate(date string) {
	w.ActivationDate = date
}

func (w *Window) SetActivationHour(hour string) {
	w.ActivationHour = hour
}

// HasActivation reports whether a paired re-activation was requested.
func (w Window) HasActivation() bool {
	return w.ActivationDate != "" || w.ActivationHour != ""
}

// Validate enforces every invariant the submit action depends on:
// deactivation not retroactive (hour-granular for today), and re-activation,
// when requested, complete and strictly after the deactivation.
func (w Window) Validate(loc *time.Location, now time.Time) error {
	if w.DeactivationDate == "" || w.DeactivationHour == "" {
		return ErrDeactivationRequired
	}

	pastDate, err := IsDatePast(w.DeactivationDate, loc, now)
	if err != nil {
		return err
	}
	if pastDate {
		return ErrDeactivationDatePast
	}

	deactHour, err := ParseHourCode(w.DeactivationHour)
	if err != nil {
		return err
	}
	today, err := IsToday(w.DeactivationDate, loc, now)
	if err != nil {
		return err
	}
	if today && deactHour < now.In(loc).Hour() {
		return ErrDeactivationHourPast
	}

	if !w.HasActivation() {
		return nil
	}
	if w.ActivationDate == "" || w.ActivationHour == "" {
		return ErrIncompleteActivation
	}

	deactDate, err := ParseDate(w.DeactivationDate, loc)
	if err != nil {
		return err
	}
	actDate, err := ParseDate(w.ActivationDate, loc)
	if err != nil {
		return err
	}
	if actDate.Before(deactDate) {
		return ErrActivationBeforeWindow
	}

	actHour, err := ParseHourCode(w.ActivationHour)
	if err != nil {
		return err
	}
	if actDate.Equal(deactDate) && actHour <= deactHour {
		return ErrActivationHourOrder
	}
	return nil
}

// Ready reports whether the window can be submitted.
func (w Window) Ready(loc *time.Location, now time.Time) bool {
	return w.Validate(loc, now) == nil
}

// Resolve converts the validated window to literal clinic-local instants.
func (w Window) Resolve(loc *time.Location) (deactivateAt time.Time, activateAt *time.Time, err error) {
	deactivateAt, err = At(w.DeactivationDate, w.DeactivationHour, loc)
	if err != nil {
		return time.Time{}, nil, err
	}
	if !w.HasActivation() {
		return deactivateAt, nil, nil
	}
	at, err := At(w.ActivationDate, w.ActivationHour, loc)
	if err != nil {
		return time.Time{}, nil, err
	}
	return deactivateAt, &at, nil
}

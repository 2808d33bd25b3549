package schedule

import (
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestParseHourCode(t *testing.T) {
	if h, err := ParseHourCode("14"); err != nil || h != 14 {
		t.Fatalf("ParseHourCode(14) = %d, %v", h, err)
	}
	if _, err := ParseHourCode("24"); err != ErrInvalidHour {
		t.Fatalf("expected ErrInvalidHour for 24, got %v", err)
	}
	if _, err := ParseHourCode("abc"); err != ErrInvalidHour {
		t.Fatalf("expected ErrInvalidHour for abc, got %v", err)
	}
}

func TestAtResolvesLocalInstant(t *testing.T) {
	loc := mustLoadLoc(t)
	at, err := At("2026-03-10", "14", loc)
	if err != nil {
		t.Fatalf("At error: %v", err)
	}
	want := time.Date(2026, 3, 10, 14, 0, 0, 0, loc)
	if !at.Equal(want) {
		t.Fatalf("expected %v, got %v", want, at)
	}
}

func TestIsDatePast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)

	past, err := IsDatePast("2026-03-09", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if !past {
		t.Fatalf("expected yesterday to be past")
	}

	past, err = IsDatePast("2026-03-10", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if past {
		t.Fatalf("expected today to be not past")
	}
}

func TestIsHourPastCurrentHourAllowed(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, loc)

	// The guard is hour-granular: 14 is not past at 14:30.
	past, err := IsHourPast("2026-03-10", "14", loc, now)
	if err != nil {
		t.Fatalf("IsHourPast error: %v", err)
	}
	if past {
		t.Fatalf("current hour should not count as past")
	}

	past, err = IsHourPast("2026-03-10", "13", loc, now)
	if err != nil {
		t.Fatalf("IsHourPast error: %v", err)
	}
	if !past {
		t.Fatalf("expected 13 to be past at 14:30")
	}
}

func TestWindowDateInPastNotReady(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)

	w := Window{DeactivationDate: "2026-03-09", DeactivationHour: "14"}
	if err := w.Validate(loc, now); err != ErrDeactivationDatePast {
		t.Fatalf("expected ErrDeactivationDatePast, got %v", err)
	}
	if w.Ready(loc, now) {
		t.Fatalf("retroactive window must not be ready")
	}
}

func TestWindowTodayCurrentHourAllowed(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 10, 14, 45, 0, 0, loc)

	w := Window{DeactivationDate: "2026-03-10", DeactivationHour: "14"}
	if err := w.Validate(loc, now); err != nil {
		t.Fatalf("expected current-hour window to validate, got %v", err)
	}

	w.DeactivationHour = "13"
	if err := w.Validate(loc, now); err != ErrDeactivationHourPast {
		t.Fatalf("expected ErrDeactivationHourPast, got %v", err)
	}
}

func TestWindowEqualDatesNeedIncreasingHours(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, loc)

	w := Window{
		DeactivationDate: "2026-03-10",
		DeactivationHour: "14",
		ActivationDate:   "2026-03-10",
		ActivationHour:   "14",
	}
	if err := w.Validate(loc, now); err != ErrActivationHourOrder {
		t.Fatalf("expected ErrActivationHourOrder for equal hours, got %v", err)
	}

	w.ActivationHour = "15"
	if err := w.Validate(loc, now); err != nil {
		t.Fatalf("expected valid window, got %v", err)
	}
}

func TestWindowLaterDateAnyHours(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, loc)

	w := Window{
		DeactivationDate: "2026-03-10",
		DeactivationHour: "14",
		ActivationDate:   "2026-03-12",
		ActivationHour:   "8",
	}
	if err := w.Validate(loc, now); err != nil {
		t.Fatalf("expected valid window across dates, got %v", err)
	}

	w.ActivationDate = "2026-03-09"
	if err := w.Validate(loc, now); err != ErrActivationBeforeWindow {
		t.Fatalf("expected ErrActivationBeforeWindow, got %v", err)
	}
}

func TestWindowIncompleteActivation(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, loc)

	w := Window{
		DeactivationDate: "2026-03-10",
		DeactivationHour: "14",
		ActivationDate:   "2026-03-12",
	}
	if err := w.Validate(loc, now); err != ErrIncompleteActivation {
		t.Fatalf("expected ErrIncompleteActivation, got %v", err)
	}
}

func TestSetDeactivationDateClearsHours(t *testing.T) {
	w := Window{}
	w.SetDeactivationDate("2026-03-10")
	w.SetDeactivationHour("14")
	w.SetActivationDate("2026-03-10")
	w.SetActivationHour("16")

	w.SetDeactivationDate("2026-03-11")
	if w.DeactivationHour != "" || w.ActivationHour != "" {
		t.Fatalf("expected hours cleared on date change: %+v", w)
	}
	if w.ActivationDate != "2026-03-10" {
		t.Fatalf("activation date should survive: %+v", w)
	}
}

func TestSetDeactivationHourClearsConflictingActivationHour(t *testing.T) {
	w := Window{}
	w.SetDeactivationDate("2026-03-10")
	w.SetDeactivationHour("10")
	w.SetActivationDate("2026-03-10")
	w.SetActivationHour("12")

	// 12 is no longer after 15, so it must be discarded.
	w.SetDeactivationHour("15")
	if w.ActivationHour != "" {
		t.Fatalf("expected conflicting activation hour cleared: %+v", w)
	}

	// Across different dates the activation hour is unconstrained.
	w.SetActivationDate("2026-03-12")
	w.SetActivationHour("8")
	w.SetDeactivationHour("16")
	if w.ActivationHour != "8" {
		t.Fatalf("activation hour should survive on a later date: %+v", w)
	}
}

func TestWindowResolve(t *testing.T) {
	loc := mustLoadLoc(t)
	w := Window{
		DeactivationDate: "2026-03-10",
		DeactivationHour: "14",
		ActivationDate:   "2026-03-12",
		ActivationHour:   "8",
	}

	deactivateAt, activateAt, err := w.Resolve(loc)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !deactivateAt.Equal(time.Date(2026, 3, 10, 14, 0, 0, 0, loc)) {
		t.Fatalf("unexpected deactivation instant: %v", deactivateAt)
	}
	if activateAt == nil || !activateAt.Equal(time.Date(2026, 3, 12, 8, 0, 0, 0, loc)) {
		t.Fatalf("unexpected activation instant: %v", activateAt)
	}

	w.ActivationDate, w.ActivationHour = "", ""
	_, activateAt, err = w.Resolve(loc)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if activateAt != nil {
		t.Fatalf("expected nil activation instant, got %v", activateAt)
	}
}

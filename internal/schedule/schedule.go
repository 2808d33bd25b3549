package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidDate = errors.New("invalid date format")
	ErrInvalidHour = errors.New("invalid hour code")
)

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

// ParseHourCode parses the catalog hour code ("0".."23"). Appointments and
// scheduled transitions are hour-granular; there are no minutes anywhere in
// the model.
func ParseHourCode(hourStr string) (int, error) {
	h, err := strconv.Atoi(hourStr)
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidHour
	}
	return h, nil
}

func HourCodeToClock(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// At resolves a date and hour code to the literal clinic-local instant.
func At(dateStr, hourStr string, loc *time.Location) (time.Time, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return time.Time{}, err
	}
	hour, err := ParseHourCode(hourStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc), nil
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	startToday := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

func IsToday(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	localNow := now.In(loc)
	return date.Year() == localNow.Year() && date.YearDay() == localNow.YearDay(), nil
}

// IsHourPast reports whether the slot is in a strictly earlier hour than
// now. The current hour is NOT past even when partially elapsed; the guard
// is deliberately hour-granular.
func IsHourPast(dateStr, hourStr string, loc *time.Location, now time.Time) (bool, error) {
	today, err := IsToday(dateStr, loc, now)
	if err != nil {
		return false, err
	}
	hour, err := ParseHourCode(hourStr)
	if err != nil {
		return false, err
	}
	if !today {
		past, err := IsDatePast(dateStr, loc, now)
		if err != nil {
			return false, err
		}
		return past, nil
	}
	return hour < now.In(loc).Hour(), nil
}

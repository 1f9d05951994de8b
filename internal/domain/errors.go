package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCityRequired is returned when a booking operation runs before a city was chosen.
	ErrCityRequired = errors.New("a city must be selected first")
	// ErrCorruptData marks a persisted reservation blob that could not be decoded.
	ErrCorruptData = errors.New("persisted reservations are corrupt")
)

// ValidationError reports a blank or unselected required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports a slot that is already booked for the day.
type ConflictError struct {
	Date     Date
	TimeSlot TimeSlot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s on %s is already booked", e.TimeSlot, e.Date)
}

package usecase

import (
	"errors"
	"fmt"

	"showtime-booking/pkg/utils"
)

var (
	// ErrSeatsUnavailable means a requested seat was taken by a concurrent
	// booking before this one committed.
	ErrSeatsUnavailable = errors.New("one or more seats are no longer available")
	// ErrInsufficientCapacity means the showtime counter guard failed. With a
	// consistent counter this points at drift and is logged at error level.
	ErrInsufficientCapacity = errors.New("showtime has insufficient capacity")
	ErrInvalidSeatReference = errors.New("seat does not exist or belongs to another showtime")
	ErrEmptySelection       = errors.New("at least one seat must be selected")
	ErrInvalidTransition    = errors.New("invalid booking transition")

	ErrBookingNotFound      = errors.New("booking not found")
	ErrShowtimeNotFound     = errors.New("showtime not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrForbidden            = errors.New("not allowed to access this booking")
	ErrValidation           = errors.New("validation failed")
)

// TransitionError carries the reason a lifecycle transition was refused.
type TransitionError struct {
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidTransition, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func transitionError(reason string) error {
	return &TransitionError{Reason: reason}
}

// ValidationError keeps the per-field messages for the response body.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, utils.FormatValidationErrors(e.Fields))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// validate runs the struct tags and wraps failures in a ValidationError.
func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

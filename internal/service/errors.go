// Package service implements the booking core: the capacity ledger
// that reserves tickets under a per-event lock, the pricing resolver
// and the booking reference generator.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failed booking attempt.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindEventInactive
	KindAdultRequired
	KindTicketLimitExceeded
	KindInsufficientCapacity
	KindPhotoRequired
	KindSeatTypeUnavailable
	KindLockTimeout
	KindPersistFailure
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindValidation:           "validation",
	KindNotFound:             "not_found",
	KindEventInactive:        "event_inactive",
	KindAdultRequired:        "adult_required",
	KindTicketLimitExceeded:  "ticket_limit_exceeded",
	KindInsufficientCapacity: "insufficient_capacity",
	KindPhotoRequired:        "photo_required",
	KindSeatTypeUnavailable:  "seat_type_unavailable",
	KindLockTimeout:          "lock_timeout",
	KindPersistFailure:       "persist_failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// BookingError is returned by the ledger for every failed attempt.
// Message is safe to show to the caller; Err is the internal cause, if
// any, and is only logged.
type BookingError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *BookingError) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed if sent again
// unchanged.
func (e *BookingError) Retryable() bool { return e.Kind == KindLockTimeout }

// KindOf returns the Kind carried by err, KindUnknown when err is not
// a *BookingError and KindUnknown for nil.
func KindOf(err error) Kind {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

func failure(kind Kind, format string, args ...any) *BookingError {
	return &BookingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// User facing messages for infrastructure failures.
const (
	msgBookingFailed = "Booking failed"
	msgEventBusy     = "The event is busy, please try again"
)

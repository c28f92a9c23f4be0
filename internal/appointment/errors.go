package appointment

import (
	"errors"
	"strings"

	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	ErrPatientIDTaken     = errors.New("patient id already exists")
	ErrAppointmentIDTaken = errors.New("appointment id already exists")
	ErrSlotAlreadyBooked  = errors.New("this slot is already booked")
	ErrSlotBeingBooked    = errors.New("slot is currently being booked, please retry")

	ErrIdentityMismatch        = errors.New("patient details do not match the appointment")
	ErrInvalidIDs              = errors.New("invalid appointment_id or patient_id")
	ErrInvalidDate             = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Kind is the error taxonomy exposed to callers of the workflows.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) Kind {
	var vErr *ValidationError
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &vErr),
		errors.Is(err, ErrInvalidIDs),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidStatusTransition):
		return KindBadRequest
	case errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, catalog.ErrDoctorNotFound),
		errors.Is(err, catalog.ErrSlotNotFound):
		return KindNotFound
	case errors.Is(err, ErrPatientIDTaken),
		errors.Is(err, ErrAppointmentIDTaken),
		errors.Is(err, ErrSlotAlreadyBooked),
		errors.Is(err, ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		return KindConflict
	case errors.Is(err, ErrIdentityMismatch):
		return KindForbidden
	default:
		return KindInternal
	}
}

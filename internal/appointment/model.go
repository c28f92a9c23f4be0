package appointment

import (
	"time"
)

type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusCancelled Status = "CANCELLED"
)

// CancelledNote replaces a patient's request note on soft cancellation.
const CancelledNote = "CANCELLED"

type Patient struct {
	ID        int
	Name      string
	Age       int
	Email     string
	Gender    string
	Request   string
	CreatedAt time.Time
}

type Appointment struct {
	ID         int
	PatientID  int
	DoctorID   int
	ScheduleID int
	Date       time.Time // calendar date, time of day is zero
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BookingRequest is the input of the booking workflow.
type BookingRequest struct {
	Name       string `json:"name" validate:"required"`
	Age        *int   `json:"age" validate:"required,gte=0,lte=150"`
	Email      string `json:"email" validate:"required,email"`
	Gender     string `json:"gender" validate:"required"`
	DoctorName string `json:"doctor_name" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot   string `json:"time_slot" validate:"required"`
	Request    string `json:"request"`
}

type BookingResult struct {
	PatientID     int
	AppointmentID int
	DoctorID      int
	ScheduleID    int
	Date          time.Time
}

// CancelRequest identifies the appointment to cancel. Name, Email and Age are
// only consulted when identity verification is enabled; Age is compared only
// when non-zero.
type CancelRequest struct {
	AppointmentID int    `json:"appointment_id"`
	PatientID     int    `json:"patient_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Age           int    `json:"age"`
}

type CancelResult struct {
	Patient     Patient // snapshot taken before any mutation
	Appointment Appointment
	Deleted     bool // true under the hard policy
}

// PatientRequest registers a patient without booking.
type PatientRequest struct {
	Name    string `json:"name" validate:"required"`
	Age     *int   `json:"age" validate:"required,gte=0,lte=150"`
	Email   string `json:"email" validate:"required,email"`
	Gender  string `json:"gender" validate:"required"`
	Request string `json:"request"`
}

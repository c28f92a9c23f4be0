package appointment

import (
	"context"
	"time"
)

type PatientRepository interface {
	PatientExists(ctx context.Context, id int) (bool, error)
	CreatePatient(ctx context.Context, p Patient) error
	GetPatient(ctx context.Context, id int) (*Patient, error)
	UpdatePatientNote(ctx context.Context, id int, note string) error
	DeletePatient(ctx context.Context, id int) error
}

type AppointmentRepository interface {
	AppointmentExists(ctx context.Context, id int) (bool, error)

	// IsSlotTaken reports whether a BOOKED appointment holds this doctor,
	// slot and date.
	IsSlotTaken(ctx context.Context, doctorID, scheduleID int, date time.Time) (bool, error)

	CreateAppointment(ctx context.Context, a Appointment) error
	GetAppointment(ctx context.Context, appointmentID, patientID int) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID, patientID int, status Status) error
	DeleteAppointment(ctx context.Context, appointmentID, patientID int) error

	// ListByDoctorAndDate returns every appointment, in any status, ordered by schedule id.
	ListByDoctorAndDate(ctx context.Context, doctorID int, date time.Time) ([]Appointment, error)
}

// Repository contains all DB interactions needed by the workflows.
type Repository interface {
	PatientRepository
	AppointmentRepository

	// WithTx runs fn against a repository bound to a single transaction.
	// The transaction commits only if fn returns nil.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

const bookedSlotConstraint = "appointments_booked_slot_uniq"

type PgRepository struct {
	conn db.DBTX
	pool db.Conn // nil inside a transaction
}

func NewPgRepository(pool db.Conn) *PgRepository {
	return &PgRepository{conn: pool, pool: pool}
}

func (r *PgRepository) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.pool == nil {
		// already inside a transaction
		return fn(r)
	}
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PgRepository{conn: tx})
	})
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Age,
		&p.Email,
		&p.Gender,
		&p.Request,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ScheduleID,
		&a.Date,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *PgRepository) exists(ctx context.Context, query string, id int) (bool, error) {
	var found bool
	if err := r.conn.QueryRow(ctx, query, id).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

// Patients

func (r *PgRepository) PatientExists(ctx context.Context, id int) (bool, error) {
	found, err := r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE patient_id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check patient id: %w", err)
	}
	return found, nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, p Patient) error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email is required")
	}
	if strings.TrimSpace(p.Gender) == "" {
		missing = append(missing, "gender is required")
	}
	if p.Age < 0 {
		missing = append(missing, "age must not be negative")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO patients (patient_id, patient_name, patient_age, patient_email, patient_gender, request, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, p.ID, p.Name, p.Age, p.Email, p.Gender, p.Request)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return ErrPatientIDTaken
		}
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *PgRepository) GetPatient(ctx context.Context, id int) (*Patient, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT patient_id, patient_name, patient_age, patient_email, patient_gender, request, created_at
		FROM patients
		WHERE patient_id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) UpdatePatientNote(ctx context.Context, id int, note string) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE patients SET request = $2 WHERE patient_id = $1
	`, id, note)
	if err != nil {
		return fmt.Errorf("update patient note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) DeletePatient(ctx context.Context, id int) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM patients WHERE patient_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// Appointments

func (r *PgRepository) AppointmentExists(ctx context.Context, id int) (bool, error) {
	found, err := r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE appointment_id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check appointment id: %w", err)
	}
	return found, nil
}

func (r *PgRepository) IsSlotTaken(ctx context.Context, doctorID, scheduleID int, date time.Time) (bool, error) {
	var taken bool
	err := r.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND schedule_id = $2
			  AND appointment_date = $3
			  AND status = 'BOOKED'
		)
	`, doctorID, scheduleID, date).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return taken, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) error {
	var invalid []string
	if a.PatientID <= 0 {
		invalid = append(invalid, "patient_id must be positive")
	}
	if a.DoctorID <= 0 {
		invalid = append(invalid, "doctor_id must be positive")
	}
	if a.ScheduleID <= 0 {
		invalid = append(invalid, "schedule_id must be positive")
	}
	if a.Date.IsZero() {
		invalid = append(invalid, "date is required")
	}
	if len(invalid) > 0 {
		return &ValidationError{Fields: invalid}
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO appointments (appointment_id, patient_id, doctor_id, schedule_id, appointment_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'BOOKED', now(), now())
	`, a.ID, a.PatientID, a.DoctorID, a.ScheduleID, a.Date)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok {
			if constraint == bookedSlotConstraint {
				return ErrSlotAlreadyBooked
			}
			return ErrAppointmentIDTaken
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// GetAppointment locks the matched row until the surrounding transaction ends.
func (r *PgRepository) GetAppointment(ctx context.Context, appointmentID, patientID int) (*Appointment, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT appointment_id, patient_id, doctor_id, schedule_id, appointment_date, status, created_at, updated_at
		FROM appointments
		WHERE appointment_id = $1
		  AND patient_id = $2
		FOR UPDATE
	`, appointmentID, patientID)
	return scanAppointment(row)
}

// UpdateAppointmentStatus only moves BOOKED rows, so a CANCELLED appointment
// is reported as not found.
func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, appointmentID, patientID int, status Status) error {
	if status != StatusCancelled {
		return ErrInvalidStatusTransition
	}

	tag, err := r.conn.Exec(ctx, `
		UPDATE appointments
		SET status = $3,
		    updated_at = now()
		WHERE appointment_id = $1
		  AND patient_id = $2
		  AND status = 'BOOKED'
	`, appointmentID, patientID, status)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, appointmentID, patientID int) error {
	tag, err := r.conn.Exec(ctx, `
		DELETE FROM appointments WHERE appointment_id = $1 AND patient_id = $2
	`, appointmentID, patientID)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListByDoctorAndDate(ctx context.Context, doctorID int, date time.Time) ([]Appointment, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT appointment_id, patient_id, doctor_id, schedule_id, appointment_date, status, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		ORDER BY schedule_id
	`, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-appointment-booking/internal/db"
)

const foreignKeyViolation = "23503"

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

func (r *PgRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category_id, category_name, description
		FROM categories
		ORDER BY category_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var result []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category_name is required", ErrInvalidInput)
	}

	c := Category{Name: name, Description: description}
	err := r.db.QueryRow(ctx, `
		INSERT INTO categories (category_name, description)
		VALUES ($1, $2)
		RETURNING category_id
	`, name, description).Scan(&c.ID)
	if err != nil {
		return nil, insertError("category", err)
	}
	return &c, nil
}

func (r *PgRepository) ListDoctorsByCategory(ctx context.Context, categoryID int) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT doctor_id, doctor_name, experience_years, qualifications, ratings, category_id
		FROM doctors
		WHERE category_id = $1
		ORDER BY doctor_name
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.ExperienceYears, &d.Qualifications, &d.Ratings, &d.CategoryID); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" || d.CategoryID <= 0 {
		return nil, fmt.Errorf("%w: doctor_name and category_id are required", ErrInvalidInput)
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO doctors (doctor_name, experience_years, qualifications, ratings, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING doctor_id
	`, d.Name, d.ExperienceYears, d.Qualifications, d.Ratings, d.CategoryID).Scan(&d.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, ErrCategoryNotFound
		}
		return nil, insertError("doctor", err)
	}
	return &d, nil
}

func (r *PgRepository) FindDoctorIDByName(ctx context.Context, name string) (int, error) {
	var id int
	err := r.db.QueryRow(ctx, `
		SELECT doctor_id FROM doctors WHERE doctor_name = $1
	`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrDoctorNotFound
		}
		return 0, fmt.Errorf("find doctor: %w", err)
	}
	return id, nil
}

func (r *PgRepository) ListSlots(ctx context.Context) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT schedule_id, time_slot
		FROM doctor_schedules
		ORDER BY time_slot
	`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.TimeSlot); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateSlot(ctx context.Context, timeSlot string) (*Slot, error) {
	timeSlot = strings.TrimSpace(timeSlot)
	if timeSlot == "" {
		return nil, fmt.Errorf("%w: time_slot is required", ErrInvalidInput)
	}

	s := Slot{TimeSlot: timeSlot}
	err := r.db.QueryRow(ctx, `
		INSERT INTO doctor_schedules (time_slot)
		VALUES ($1)
		RETURNING schedule_id
	`, timeSlot).Scan(&s.ID)
	if err != nil {
		return nil, insertError("slot", err)
	}
	return &s, nil
}

func (r *PgRepository) FindScheduleIDBySlot(ctx context.Context, timeSlot string) (int, error) {
	var id int
	err := r.db.QueryRow(ctx, `
		SELECT schedule_id FROM doctor_schedules WHERE time_slot = $1
	`, timeSlot).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSlotNotFound
		}
		return 0, fmt.Errorf("find slot: %w", err)
	}
	return id, nil
}

func insertError(what string, err error) error {
	if _, ok := db.UniqueViolation(err); ok {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

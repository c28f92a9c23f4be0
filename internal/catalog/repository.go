package catalog

import (
	"context"
	"errors"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrDuplicate        = errors.New("name already exists")
	ErrInvalidInput     = errors.New("invalid catalog input")
)

// Repository is the catalog store. The booking core only uses the two Find
// lookups and ListSlots; the rest backs the admin endpoints.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name, description string) (*Category, error)

	ListDoctorsByCategory(ctx context.Context, categoryID int) ([]Doctor, error)
	CreateDoctor(ctx context.Context, d Doctor) (*Doctor, error)
	FindDoctorIDByName(ctx context.Context, name string) (int, error)

	ListSlots(ctx context.Context) ([]Slot, error)
	CreateSlot(ctx context.Context, timeSlot string) (*Slot, error)
	FindScheduleIDBySlot(ctx context.Context, timeSlot string) (int, error)
}

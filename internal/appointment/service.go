package appointment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/idgen"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
	"github.com/hackgods/clinic-appointment-booking/internal/notify"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
)

// Catalog is the read-only slice of the catalog store the workflows need.
type Catalog interface {
	FindDoctorIDByName(ctx context.Context, name string) (int, error)
	FindScheduleIDBySlot(ctx context.Context, timeSlot string) (int, error)
	ListSlots(ctx context.Context) ([]catalog.Slot, error)
}

type Options struct {
	CancellationPolicy config.CancellationPolicy
	VerifyIdentity     bool
}

type Service struct {
	repo     Repository
	catalog  Catalog
	ids      idgen.Generator
	locker   redisclient.Locker // optional
	notifier notify.Notifier
	log      *zap.Logger
	metrics  *metrics.Collector
	opts     Options
}

type Deps struct {
	Repo     Repository
	Catalog  Catalog
	IDs      idgen.Generator
	Locker   redisclient.Locker
	Notifier notify.Notifier
	Log      *zap.Logger
	Metrics  *metrics.Collector
}

func NewService(deps Deps, opts Options) *Service {
	if opts.CancellationPolicy == "" {
		opts.CancellationPolicy = config.CancelSoft
	}
	if deps.IDs == nil {
		deps.IDs = idgen.NewRandGenerator(0)
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{Log: deps.Log}
	}
	return &Service{
		repo:     deps.Repo,
		catalog:  deps.Catalog,
		ids:      deps.IDs,
		locker:   deps.Locker,
		notifier: deps.Notifier,
		log:      deps.Log,
		metrics:  deps.Metrics,
		opts:     opts,
	}
}

// AvailableSlots lists every schedule slot that has no BOOKED appointment for
// the doctor on date, ordered by time label.
func (s *Service) AvailableSlots(ctx context.Context, doctorID int, date string) ([]catalog.Slot, error) {
	if doctorID <= 0 {
		return nil, &ValidationError{Fields: []string{"doctor_id must be positive"}}
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	slots, err := s.catalog.ListSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	appts, err := s.repo.ListByDoctorAndDate(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	booked := make(map[int]bool, len(appts))
	for _, a := range appts {
		if a.Status == StatusBooked {
			booked[a.ScheduleID] = true
		}
	}

	available := make([]catalog.Slot, 0, len(slots))
	for _, slot := range slots {
		if !booked[slot.ID] {
			available = append(available, slot)
		}
	}
	return available, nil
}

// Appointments returns a doctor's appointments on date in slot order.
func (s *Service) Appointments(ctx context.Context, doctorID int, date string) ([]Appointment, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	appts, err := s.repo.ListByDoctorAndDate(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// RegisterPatient stores a patient without an appointment and returns the
// minted patient id.
func (s *Service) RegisterPatient(ctx context.Context, req PatientRequest) (int, error) {
	if err := validateStruct(req); err != nil {
		return 0, err
	}

	id, err := idgen.NextFree(ctx, s.ids, s.repo.PatientExists)
	if err != nil {
		return 0, fmt.Errorf("generate patient id: %w", err)
	}

	err = s.repo.CreatePatient(ctx, Patient{
		ID:      id,
		Name:    req.Name,
		Age:     *req.Age,
		Email:   req.Email,
		Gender:  req.Gender,
		Request: req.Request,
	})
	if err != nil {
		return 0, fmt.Errorf("persist patient: %w", err)
	}

	s.log.Info("patient registered", zap.Int("patient_id", id))
	return id, nil
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

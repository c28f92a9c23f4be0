package appointment

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
	"github.com/hackgods/clinic-appointment-booking/internal/notify"
)

// memRepo is an in-memory Repository. WithTx serialises transactions and
// restores the previous state when fn fails.
type memRepo struct {
	txMu sync.Mutex

	mu           sync.Mutex
	patients     map[int]Patient
	appointments map[int]Appointment

	failCreateAppointment error
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients:     map[int]Patient{},
		appointments: map[int]Appointment{},
	}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	patients := maps.Clone(r.patients)
	appointments := maps.Clone(r.appointments)
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.patients = patients
		r.appointments = appointments
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) PatientExists(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.patients[id]
	return ok, nil
}

func (r *memRepo) CreatePatient(_ context.Context, p Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; ok {
		return ErrPatientIDTaken
	}
	p.CreatedAt = time.Now()
	r.patients[p.ID] = p
	return nil
}

func (r *memRepo) GetPatient(_ context.Context, id int) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *memRepo) UpdatePatientNote(_ context.Context, id int, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.Request = note
	r.patients[id] = p
	return nil
}

func (r *memRepo) DeletePatient(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(r.patients, id)
	for aid, a := range r.appointments {
		if a.PatientID == id {
			delete(r.appointments, aid)
		}
	}
	return nil
}

func (r *memRepo) AppointmentExists(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.appointments[id]
	return ok, nil
}

func (r *memRepo) IsSlotTaken(_ context.Context, doctorID, scheduleID int, date time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotTakenLocked(doctorID, scheduleID, date), nil
}

func (r *memRepo) slotTakenLocked(doctorID, scheduleID int, date time.Time) bool {
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.ScheduleID == scheduleID && a.Date.Equal(date) && a.Status == StatusBooked {
			return true
		}
	}
	return false
}

func (r *memRepo) CreateAppointment(_ context.Context, a Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateAppointment != nil {
		return r.failCreateAppointment
	}
	if _, ok := r.appointments[a.ID]; ok {
		return ErrAppointmentIDTaken
	}
	if r.slotTakenLocked(a.DoctorID, a.ScheduleID, a.Date) {
		return ErrSlotAlreadyBooked
	}
	now := time.Now()
	a.Status = StatusBooked
	a.CreatedAt, a.UpdatedAt = now, now
	r.appointments[a.ID] = a
	return nil
}

func (r *memRepo) GetAppointment(_ context.Context, appointmentID, patientID int) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[appointmentID]
	if !ok || a.PatientID != patientID {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, appointmentID, patientID int, status Status) error {
	if status != StatusCancelled {
		return ErrInvalidStatusTransition
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[appointmentID]
	if !ok || a.PatientID != patientID || a.Status != StatusBooked {
		return ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	r.appointments[appointmentID] = a
	return nil
}

func (r *memRepo) DeleteAppointment(_ context.Context, appointmentID, patientID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[appointmentID]
	if !ok || a.PatientID != patientID {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, appointmentID)
	return nil
}

func (r *memRepo) ListByDoctorAndDate(_ context.Context, doctorID int, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleID < out[j].ScheduleID })
	return out, nil
}

func (r *memRepo) counts() (patients, appointments int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patients), len(r.appointments)
}

type memCatalog struct {
	doctors map[string]int
	slots   []catalog.Slot
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		doctors: map[string]int{"Dr. Smith": 1, "Dr. Jones": 2},
		slots: []catalog.Slot{
			{ID: 1, TimeSlot: "09:00"},
			{ID: 2, TimeSlot: "10:00"},
			{ID: 3, TimeSlot: "11:00"},
		},
	}
}

func (c *memCatalog) FindDoctorIDByName(_ context.Context, name string) (int, error) {
	id, ok := c.doctors[name]
	if !ok {
		return 0, catalog.ErrDoctorNotFound
	}
	return id, nil
}

func (c *memCatalog) FindScheduleIDBySlot(_ context.Context, timeSlot string) (int, error) {
	for _, s := range c.slots {
		if s.TimeSlot == timeSlot {
			return s.ID, nil
		}
	}
	return 0, catalog.ErrSlotNotFound
}

func (c *memCatalog) ListSlots(context.Context) ([]catalog.Slot, error) {
	return c.slots, nil
}

// seqGenerator replays ids in order, then repeats the last one.
type seqGenerator struct {
	mu  sync.Mutex
	ids []int
	n   int
}

func (g *seqGenerator) Generate() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := min(g.n, len(g.ids)-1)
	g.n++
	return g.ids[i]
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

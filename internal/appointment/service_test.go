package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/idgen"
	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
	"github.com/hackgods/clinic-appointment-booking/internal/notify"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
)

type fixture struct {
	svc      *Service
	repo     *memRepo
	notifier *recordingNotifier
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	repo := newMemRepo()
	n := &recordingNotifier{}
	svc := NewService(Deps{
		Repo:     repo,
		Catalog:  newMemCatalog(),
		IDs:      idgen.NewRandGenerator(42),
		Notifier: n,
	}, opts)
	return &fixture{svc: svc, repo: repo, notifier: n}
}

func janeDoe() BookingRequest {
	age := 30
	return BookingRequest{
		Name:       "Jane Doe",
		Age:        &age,
		Email:      "jane@x.com",
		Gender:     "F",
		DoctorName: "Dr. Smith",
		Date:       "2024-05-01",
		TimeSlot:   "10:00",
		Request:    "checkup",
	}
}

func slotLabels(slots []catalog.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.TimeSlot)
	}
	return out
}

func TestBookJaneDoe(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	res, err := f.svc.Book(ctx, janeDoe())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.PatientID, idgen.MinID)
	assert.LessOrEqual(t, res.PatientID, idgen.MaxID)
	assert.GreaterOrEqual(t, res.AppointmentID, idgen.MinID)
	assert.LessOrEqual(t, res.AppointmentID, idgen.MaxID)
	assert.Equal(t, 1, res.DoctorID)
	assert.Equal(t, 2, res.ScheduleID)

	appt, err := f.repo.GetAppointment(ctx, res.AppointmentID, res.PatientID)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, appt.Status)
	assert.Equal(t, "2024-05-01", dateString(appt.Date))

	slots, err := f.svc.AvailableSlots(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, slotLabels(slots))

	events := f.notifier.all()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, notify.EventBooked, ev.Event)
	assert.Equal(t, res.PatientID, ev.PatientID)
	assert.Equal(t, res.AppointmentID, ev.AppointmentID)
	assert.Equal(t, "Jane Doe", ev.Name)
	assert.Equal(t, "Dr. Smith", ev.DoctorName)
	assert.Equal(t, "10:00", ev.TimeSlot)
	assert.Equal(t, "2024-05-01", ev.AppointmentDate)
}

func TestBookSameSlotTwice(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.Book(ctx, janeDoe())
	require.NoError(t, err)

	second := janeDoe()
	second.Name = "John Roe"
	_, err = f.svc.Book(ctx, second)
	require.ErrorIs(t, err, ErrSlotAlreadyBooked)
	assert.Equal(t, KindConflict, KindOf(err))

	patients, appointments := f.repo.counts()
	assert.Equal(t, 1, patients, "rejected booking must not leave a patient behind")
	assert.Equal(t, 1, appointments)
	assert.Len(t, f.notifier.all(), 1)
}

func TestBookSameSlotOtherDateOrDoctor(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.Book(ctx, janeDoe())
	require.NoError(t, err)

	otherDate := janeDoe()
	otherDate.Date = "2024-05-02"
	_, err = f.svc.Book(ctx, otherDate)
	require.NoError(t, err)

	otherDoctor := janeDoe()
	otherDoctor.DoctorName = "Dr. Jones"
	_, err = f.svc.Book(ctx, otherDoctor)
	require.NoError(t, err)
}

func TestBookRollsBackPatientOnAppointmentFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.repo.failCreateAppointment = errors.New("disk full")

	_, err := f.svc.Book(context.Background(), janeDoe())
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	patients, appointments := f.repo.counts()
	assert.Zero(t, patients)
	assert.Zero(t, appointments)
	assert.Empty(t, f.notifier.all())
}

func TestBookRetriesTakenIDs(t *testing.T) {
	repo := newMemRepo()
	require.NoError(t, repo.CreatePatient(context.Background(), Patient{
		ID: 100001, Name: "Existing", Email: "e@x.com", Gender: "M",
	}))

	svc := NewService(Deps{
		Repo:    repo,
		Catalog: newMemCatalog(),
		IDs:     &seqGenerator{ids: []int{100001, 100001, 100002, 100003}},
	}, Options{})

	res, err := svc.Book(context.Background(), janeDoe())
	require.NoError(t, err)
	assert.Equal(t, 100002, res.PatientID)
	assert.Equal(t, 100003, res.AppointmentID)
}

func TestBookStopsWhenContextCancelled(t *testing.T) {
	repo := newMemRepo()
	require.NoError(t, repo.CreatePatient(context.Background(), Patient{
		ID: 100001, Name: "Existing", Email: "e@x.com", Gender: "M",
	}))
	svc := NewService(Deps{
		Repo:    repo,
		Catalog: newMemCatalog(),
		IDs:     &seqGenerator{ids: []int{100001}},
	}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Book(ctx, janeDoe())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBookRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BookingRequest)
		kind   Kind
		target error
	}{
		{"missing name", func(r *BookingRequest) { r.Name = "" }, KindBadRequest, nil},
		{"missing age", func(r *BookingRequest) { r.Age = nil }, KindBadRequest, nil},
		{"bad email", func(r *BookingRequest) { r.Email = "not-an-email" }, KindBadRequest, nil},
		{"bad date", func(r *BookingRequest) { r.Date = "01/05/2024" }, KindBadRequest, nil},
		{"unknown doctor", func(r *BookingRequest) { r.DoctorName = "Dr. Who" }, KindNotFound, catalog.ErrDoctorNotFound},
		{"unknown slot", func(r *BookingRequest) { r.TimeSlot = "23:00" }, KindNotFound, catalog.ErrSlotNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			req := janeDoe()
			tt.mutate(&req)

			_, err := f.svc.Book(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}

			patients, _ := f.repo.counts()
			assert.Zero(t, patients)
		})
	}
}

func TestBookValidationNamesFields(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Book(context.Background(), BookingRequest{})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "name is required")
	assert.Contains(t, vErr.Fields, "doctor_name is required")
	assert.Contains(t, vErr.Fields, "time_slot is required")
}

func TestConcurrentBookingsOfOneSlot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	svc := NewService(Deps{
		Repo:    repo,
		Catalog: newMemCatalog(),
		Locker:  redisclient.NewRedisSlotLocker(client, 5*time.Second),
	}, Options{})

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), janeDoe())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case KindOf(err) == KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	_, appointments := repo.counts()
	assert.Equal(t, 1, appointments)
}

func TestBookReportsLockContention(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("lock:slot:"+redisclient.SlotKey(1, 2, day("2024-05-01")), "someone-else"))

	svc := NewService(Deps{
		Repo:    newMemRepo(),
		Catalog: newMemCatalog(),
		Locker:  redisclient.NewRedisSlotLocker(client, time.Second),
	}, Options{})

	_, err := svc.Book(context.Background(), janeDoe())
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestBookFallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	n := &recordingNotifier{}
	svc := NewService(Deps{
		Repo:     repo,
		Catalog:  newMemCatalog(),
		Locker:   redisclient.NewRedisSlotLocker(client, time.Second),
		Notifier: n,
	}, Options{})

	mr.Close()

	res, err := svc.Book(context.Background(), janeDoe())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ScheduleID)
	assert.Len(t, n.all(), 1)

	// exclusivity still holds without the lock
	_, err = svc.Book(context.Background(), janeDoe())
	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)

	_, appointments := repo.counts()
	assert.Equal(t, 1, appointments)
}

func TestCancelSoftFreesSlot(t *testing.T) {
	f := newFixture(t, Options{CancellationPolicy: config.CancelSoft})
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, janeDoe())
	require.NoError(t, err)

	res, err := f.svc.Cancel(ctx, CancelRequest{AppointmentID: booked.AppointmentID, PatientID: booked.PatientID})
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, "checkup", res.Patient.Request, "snapshot is taken before the note is overwritten")

	appt, err := f.repo.GetAppointment(ctx, booked.AppointmentID, booked.PatientID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)

	p, err := f.repo.GetPatient(ctx, booked.PatientID)
	require.NoError(t, err)
	assert.Equal(t, CancelledNote, p.Request)

	slots, err := f.svc.AvailableSlots(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, slotLabels(slots))

	// the freed slot can be booked again
	_, err = f.svc.Book(ctx, janeDoe())
	require.NoError(t, err)

	events := f.notifier.all()
	require.Len(t, events, 3)
	assert.Equal(t, notify.EventCancelled, events[1].Event)
	assert.Equal(t, "Jane Doe", events[1].Name)
	assert.Equal(t, "2024-05-01", events[1].AppointmentDate)
}

func TestCancelHardDeletesRows(t *testing.T) {
	f := newFixture(t, Options{CancellationPolicy: config.CancelHard})
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, janeDoe())
	require.NoError(t, err)

	res, err := f.svc.Cancel(ctx, CancelRequest{AppointmentID: booked.AppointmentID, PatientID: booked.PatientID})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, "jane@x.com", res.Patient.Email)

	patients, appointments := f.repo.counts()
	assert.Zero(t, patients)
	assert.Zero(t, appointments)

	slots, err := f.svc.AvailableSlots(ctx, 1, "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, slots, 3)

	events := f.notifier.all()
	require.Len(t, events, 2)
	assert.Equal(t, notify.EventCancelled, events[1].Event)
	assert.Equal(t, "Jane Doe", events[1].Name)
}

func TestCancelTwiceIsNotFound(t *testing.T) {
	for _, policy := range []config.CancellationPolicy{config.CancelSoft, config.CancelHard} {
		t.Run(string(policy), func(t *testing.T) {
			f := newFixture(t, Options{CancellationPolicy: policy})
			ctx := context.Background()

			booked, err := f.svc.Book(ctx, janeDoe())
			require.NoError(t, err)

			req := CancelRequest{AppointmentID: booked.AppointmentID, PatientID: booked.PatientID}
			_, err = f.svc.Cancel(ctx, req)
			require.NoError(t, err)

			_, err = f.svc.Cancel(ctx, req)
			require.ErrorIs(t, err, ErrAppointmentNotFound)
			assert.Equal(t, KindNotFound, KindOf(err))

			events := f.notifier.all()
			require.Len(t, events, 3)
			assert.Equal(t, notify.EventFailed, events[2].Event)
			assert.Equal(t, booked.AppointmentID, events[2].AppointmentID)
		})
	}
}

func TestCancelWrongPatient(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	booked, err := f.svc.Book(ctx, janeDoe())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, CancelRequest{AppointmentID: booked.AppointmentID, PatientID: 100000})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	appt, err := f.repo.GetAppointment(ctx, booked.AppointmentID, booked.PatientID)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, appt.Status)
}

func TestCancelInvalidIDs(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Cancel(context.Background(), CancelRequest{AppointmentID: 0, PatientID: 123456})
	assert.ErrorIs(t, err, ErrInvalidIDs)
	assert.Equal(t, KindBadRequest, KindOf(err))
	assert.Empty(t, f.notifier.all())
}

func TestCancelVerifiedIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("mismatch is forbidden and changes nothing", func(t *testing.T) {
		f := newFixture(t, Options{VerifyIdentity: true})
		booked, err := f.svc.Book(ctx, janeDoe())
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, CancelRequest{
			AppointmentID: booked.AppointmentID,
			PatientID:     booked.PatientID,
			Name:          "Jane Doe",
			Email:         "someone@else.com",
		})
		require.ErrorIs(t, err, ErrIdentityMismatch)
		assert.Equal(t, KindForbidden, KindOf(err))

		appt, err := f.repo.GetAppointment(ctx, booked.AppointmentID, booked.PatientID)
		require.NoError(t, err)
		assert.Equal(t, StatusBooked, appt.Status)
		p, err := f.repo.GetPatient(ctx, booked.PatientID)
		require.NoError(t, err)
		assert.Equal(t, "checkup", p.Request)

		events := f.notifier.all()
		require.Len(t, events, 2)
		assert.Equal(t, notify.EventFailed, events[1].Event)
	})

	t.Run("age mismatch", func(t *testing.T) {
		f := newFixture(t, Options{VerifyIdentity: true})
		booked, err := f.svc.Book(ctx, janeDoe())
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, CancelRequest{
			AppointmentID: booked.AppointmentID,
			PatientID:     booked.PatientID,
			Name:          "Jane Doe",
			Email:         "jane@x.com",
			Age:           31,
		})
		assert.ErrorIs(t, err, ErrIdentityMismatch)
	})

	t.Run("missing identity fields", func(t *testing.T) {
		f := newFixture(t, Options{VerifyIdentity: true})
		_, err := f.svc.Cancel(ctx, CancelRequest{AppointmentID: 123456, PatientID: 654321})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Fields, 2)
	})

	t.Run("match cancels", func(t *testing.T) {
		f := newFixture(t, Options{VerifyIdentity: true})
		booked, err := f.svc.Book(ctx, janeDoe())
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, CancelRequest{
			AppointmentID: booked.AppointmentID,
			PatientID:     booked.PatientID,
			Name:          " Jane Doe ",
			Email:         "JANE@X.COM",
			Age:           30,
		})
		require.NoError(t, err)
	})
}

func TestAvailableSlotsRejectsBadInput(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.AvailableSlots(context.Background(), 1, "May 1st")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = f.svc.AvailableSlots(context.Background(), 0, "2024-05-01")
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestRegisterPatient(t *testing.T) {
	f := newFixture(t, Options{})
	age := 41

	id, err := f.svc.RegisterPatient(context.Background(), PatientRequest{
		Name: "Sam Poe", Age: &age, Email: "sam@x.com", Gender: "M",
	})
	require.NoError(t, err)

	p, err := f.repo.GetPatient(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 41, p.Age)
}

func TestWorkflowMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)

	svc := NewService(Deps{Repo: newMemRepo(), Catalog: newMemCatalog(), Metrics: m}, Options{})
	ctx := context.Background()

	booked, err := svc.Book(ctx, janeDoe())
	require.NoError(t, err)
	_, err = svc.Book(ctx, janeDoe())
	require.Error(t, err)
	_, err = svc.Cancel(ctx, CancelRequest{AppointmentID: booked.AppointmentID, PatientID: booked.PatientID})
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "clinic_booking_bookings_total", "clinic_booking_cancellations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{&ValidationError{Fields: []string{"x"}}, KindBadRequest},
		{ErrInvalidDate, KindBadRequest},
		{ErrInvalidIDs, KindBadRequest},
		{ErrAppointmentNotFound, KindNotFound},
		{catalog.ErrDoctorNotFound, KindNotFound},
		{ErrSlotAlreadyBooked, KindConflict},
		{ErrPatientIDTaken, KindConflict},
		{redisclient.ErrLockNotAcquired, KindConflict},
		{ErrIdentityMismatch, KindForbidden},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

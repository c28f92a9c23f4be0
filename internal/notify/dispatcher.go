package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/metrics"
)

// Notifier hands an event off for best-effort delivery. Notify never blocks
// the caller and never reports failure.
type Notifier interface {
	Notify(ev Event)
}

// Nop discards events. Used when no webhook is configured.
type Nop struct {
	Log *zap.Logger
}

func (n Nop) Notify(ev Event) {
	if n.Log != nil {
		n.Log.Debug("notification skipped, no webhook configured",
			zap.String("event", ev.Event),
			zap.Int("appointment_id", ev.AppointmentID),
		)
	}
}

// Dispatcher is a bounded queue drained by a fixed pool of workers. Events
// that do not fit in the queue are dropped; failed deliveries are logged and
// never retried.
type Dispatcher struct {
	sender  Sender
	log     *zap.Logger
	metrics *metrics.Collector
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan Event
	wg     sync.WaitGroup
}

type DispatcherOptions struct {
	Workers   int           // default 4
	QueueSize int           // default 256
	Timeout   time.Duration // upper bound for one delivery, default 10s
}

func NewDispatcher(sender Sender, opts DispatcherOptions, log *zap.Logger, m *metrics.Collector) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	d := &Dispatcher{
		sender:  sender,
		log:     log,
		metrics: m,
		timeout: opts.Timeout,
		events:  make(chan Event, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Notify(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ev, "dispatcher closed")
		return
	}

	select {
	case d.events <- ev:
		d.metrics.SetNotifyQueueDepth(len(d.events))
	default:
		d.drop(ev, "queue full")
	}
}

// Shutdown stops accepting events and waits for queued ones to be attempted,
// or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.log.Warn("notification dispatcher shutdown timed out; queued events may be lost")
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.events {
		d.metrics.SetNotifyQueueDepth(len(d.events))
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, ev); err != nil {
		d.metrics.ObserveNotification(ev.Event, "failed")
		d.log.Warn("webhook delivery failed",
			zap.String("event", ev.Event),
			zap.Int("appointment_id", ev.AppointmentID),
			zap.Int("patient_id", ev.PatientID),
			zap.Error(err),
		)
		return
	}

	d.metrics.ObserveNotification(ev.Event, "delivered")
	d.log.Debug("webhook delivered",
		zap.String("event", ev.Event),
		zap.Int("appointment_id", ev.AppointmentID),
	)
}

func (d *Dispatcher) drop(ev Event, reason string) {
	d.metrics.ObserveNotification(ev.Event, "dropped")
	d.log.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("event", ev.Event),
		zap.Int("appointment_id", ev.AppointmentID),
	)
}

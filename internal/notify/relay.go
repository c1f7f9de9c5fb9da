package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/eyecare-clinic-api/internal/messaging"
	"github.com/wolfman30/eyecare-clinic-api/internal/observability/metrics"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

var relayTracer = otel.Tracer("clinic.internal.notify")

// EventNotification carries a new tray entry to admin clients.
const EventNotification = "notification"

const (
	defaultSinkTimeout = 10 * time.Second
	relayQueueSize     = 64
)

// RelayConfig wires a Relay. Composer and AdminNumber are required.
type RelayConfig struct {
	Composer    *messaging.Composer
	AdminNumber string
	Buffer      *Buffer
	Hub         Broadcaster
	Sinks       []Sink
	Logger      *logging.Logger
	Metrics     *metrics.NotifyMetrics
	Now         func() time.Time
	// Stamper issues notification ids; defaults to one over Now.
	Stamper     *records.Stamper
	SinkTimeout time.Duration
}

// Relay turns appointment inserts into admin notifications. Updates and
// deletes are ignored.
type Relay struct {
	composer    *messaging.Composer
	adminNumber string
	buffer      *Buffer
	hub         Broadcaster
	sinks       []Sink
	logger      *logging.Logger
	metrics     *metrics.NotifyMetrics
	now         func() time.Time
	stamper     *records.Stamper
	sinkTimeout time.Duration

	mu      sync.Mutex
	sub     records.Subscription
	events  chan records.ChangeEvent
	done    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	closed  bool
}

func NewRelay(cfg RelayConfig) (*Relay, error) {
	if cfg.Composer == nil {
		return nil, errors.New("notify: relay requires a composer")
	}
	if messaging.Digits(cfg.AdminNumber) == "" {
		return nil, errors.New("notify: relay requires an admin number")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Buffer == nil {
		cfg.Buffer = NewBuffer(DefaultCapacity)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Stamper == nil {
		cfg.Stamper = records.NewStamper(cfg.Now)
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	var sinks []Sink
	for _, s := range cfg.Sinks {
		if s != nil {
			sinks = append(sinks, s)
		}
	}
	return &Relay{
		composer:    cfg.Composer,
		adminNumber: cfg.AdminNumber,
		buffer:      cfg.Buffer,
		hub:         cfg.Hub,
		sinks:       sinks,
		logger:      cfg.Logger.Component("notify"),
		metrics:     cfg.Metrics,
		now:         cfg.Now,
		stamper:     cfg.Stamper,
		sinkTimeout: cfg.SinkTimeout,
		events:      make(chan records.ChangeEvent, relayQueueSize),
		done:        make(chan struct{}),
	}, nil
}

// Buffer exposes the notification tray.
func (r *Relay) Buffer() *Buffer { return r.buffer }

// Start subscribes to appointment changes and processes them on a single
// goroutine until Close.
func (r *Relay) Start(ctx context.Context, feed records.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("notify: relay closed")
	}
	if r.started {
		return errors.New("notify: relay already started")
	}

	sub, err := feed.Subscribe(ctx, records.TableAppointments, func(evt records.ChangeEvent) {
		select {
		case r.events <- evt:
		case <-r.done:
		}
	})
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.sub = sub
	r.cancel = cancel
	r.started = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.done:
				return
			case evt := <-r.events:
				r.Handle(runCtx, evt)
			}
		}
	}()
	return nil
}

// Handle processes one change event synchronously.
func (r *Relay) Handle(ctx context.Context, evt records.ChangeEvent) {
	if evt.Type != records.EventInsert || evt.Table != records.TableAppointments {
		return
	}
	appt, err := records.AppointmentFromRow(evt.New)
	if err != nil {
		r.logger.Warn("relay: undecodable appointment insert", "error", err)
		return
	}
	received := r.now()

	id := strconv.FormatInt(r.stamper.Stamp().UnixMicro(), 10)
	alert := Alert{ID: id, Appointment: appt, CreatedAt: received}
	alert.Title, alert.Body, alert.Tag = r.composer.PlatformAlert(appt)
	booked := appt.CreatedAt
	if booked.IsZero() {
		booked = received
	}
	if text, err := r.composer.AdminAlert(appt, booked); err != nil {
		r.logger.Warn("relay: compose admin alert failed", "error", err, "appointment_id", appt.ID)
	} else {
		alert.AdminText = text
		if link, err := messaging.WhatsAppLink(r.adminNumber, text); err == nil {
			alert.AdminLink = link
		}
	}

	n := Notification{
		ID:          alert.ID,
		Type:        "appointment",
		Title:       alert.Title,
		Message:     alert.Body,
		Appointment: &appt,
		Link:        alert.AdminLink,
		Timestamp:   received,
	}
	if evicted := r.buffer.Push(n); len(evicted) > 0 {
		r.logger.Debug("relay: notification tray full, evicted oldest", "evicted", len(evicted))
	}
	r.metrics.SetBuffered(r.buffer.Len())
	if r.hub != nil {
		if err := r.hub.Broadcast(Event{Type: EventNotification, Data: n}); err != nil {
			r.logger.Warn("relay: broadcast notification failed", "error", err)
		}
	}

	r.logger.Info("relay: new appointment alert", "appointment_id", appt.ID, "type", appt.AppointmentType)
	for _, sink := range r.sinks {
		r.deliver(ctx, sink, alert)
	}
}

func (r *Relay) deliver(ctx context.Context, sink Sink, alert Alert) {
	ctx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
	defer cancel()
	ctx, span := relayTracer.Start(ctx, "notify.sink."+sink.Kind())
	span.SetAttributes(
		attribute.String("notify.sink", sink.Kind()),
		attribute.String("appointment.id", alert.Appointment.ID),
	)
	defer span.End()

	start := time.Now()
	err := safeNotify(ctx, sink, alert)
	r.metrics.ObserveDelivery(sink.Kind(), err, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("relay: sink delivery failed", "sink", sink.Kind(), "error", err, "appointment_id", alert.Appointment.ID)
	}
}

func safeNotify(ctx context.Context, sink Sink, alert Alert) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notify: sink %s panicked: %v", sink.Kind(), p)
		}
	}()
	return sink.Notify(ctx, alert)
}

// ContactMessageCreated logs a new inquiry and pushes the admin link for it
// to connected clients.
func (r *Relay) ContactMessageCreated(_ context.Context, m records.ContactMessage) {
	text, err := r.composer.ContactAlert(m)
	if err != nil {
		r.logger.Warn("relay: compose contact alert failed", "error", err, "contact_id", m.ID)
		return
	}
	link, err := messaging.WhatsAppLink(r.adminNumber, text)
	if err != nil {
		r.logger.Warn("relay: contact alert link failed", "error", err)
		return
	}
	r.logger.Info("relay: new contact message", "contact_id", m.ID, "subject", m.Subject)
	if r.hub == nil {
		return
	}
	if err := r.hub.Broadcast(Event{Type: EventContactMessage, Data: map[string]string{
		"contact_id":    m.ID,
		"name":          m.Name,
		"subject":       m.Subject,
		"whatsapp_link": link,
	}}); err != nil {
		r.logger.Warn("relay: broadcast contact message failed", "error", err)
	}
}

// AppointmentBooked logs the thank-you link for the patient.
func (r *Relay) AppointmentBooked(_ context.Context, a records.Appointment) {
	text, err := r.composer.BookingThanks(a)
	if err != nil {
		r.logger.Warn("relay: compose booking thanks failed", "error", err)
		return
	}
	link, err := messaging.WhatsAppLink(a.PhoneNumber, text)
	if err != nil {
		r.logger.Debug("relay: patient has no reachable number", "appointment_id", a.ID)
		return
	}
	r.logger.Info("relay: patient thank-you link ready", "appointment_id", a.ID, "whatsapp_link", link)
}

// Close unsubscribes and waits for the processing goroutine to exit.
func (r *Relay) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sub, cancel := r.sub, r.cancel
	r.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	close(r.done)
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

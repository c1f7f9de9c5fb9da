package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/eyecare-clinic-api/internal/observability/metrics"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

var gatewayTracer = otel.Tracer("clinic.internal.records")

const genericFailure = "An unexpected error occurred. Please try again."

// AppointmentHook runs after an appointment was stored. Hooks are best
// effort: the caller's envelope is already decided and a failing or
// panicking hook only logs.
type AppointmentHook func(ctx context.Context, appt Appointment)

// ContactHook runs after a contact message was stored.
type ContactHook func(ctx context.Context, msg ContactMessage)

// Gateway translates application intents into backend calls and normalizes
// every outcome into a Result.
type Gateway struct {
	backend   Backend
	logger    *logging.Logger
	clock     *Stamper
	loc       *time.Location
	metrics   *metrics.RecordMetrics
	onAppt    []AppointmentHook
	onContact []ContactHook
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock replaces the wall clock used for updated_at and "today".
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.clock = NewStamper(now) }
}

// WithStamper shares a stamper with the backend so created_at and
// updated_at come from one sequence.
func WithStamper(s *Stamper) Option {
	return func(g *Gateway) {
		if s != nil {
			g.clock = s
		}
	}
}

// WithLocation sets the zone used to decide which records were created today.
func WithLocation(loc *time.Location) Option {
	return func(g *Gateway) {
		if loc != nil {
			g.loc = loc
		}
	}
}

func WithMetrics(m *metrics.RecordMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// OnAppointmentCreated registers a side effect for new appointments.
func OnAppointmentCreated(h AppointmentHook) Option {
	return func(g *Gateway) {
		if h != nil {
			g.onAppt = append(g.onAppt, h)
		}
	}
}

// OnContactCreated registers a side effect for new contact messages.
func OnContactCreated(h ContactHook) Option {
	return func(g *Gateway) {
		if h != nil {
			g.onContact = append(g.onContact, h)
		}
	}
}

// NewGateway wraps backend.
func NewGateway(backend Backend, logger *logging.Logger, opts ...Option) *Gateway {
	if backend == nil {
		panic("records: backend required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gateway{
		backend: backend,
		logger:  logger,
		clock:   NewStamper(nil),
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Backend exposes the underlying store for subscribers.
func (g *Gateway) Backend() Backend {
	return g.backend
}

// ListOptions narrows ListAppointments to a preferred_date range.
type ListOptions struct {
	From string // inclusive, YYYY-MM-DD
	To   string // inclusive, YYYY-MM-DD
}

func (o ListOptions) hasRange() bool {
	return o.From != "" || o.To != ""
}

// CreateAppointment validates and stores a new pending appointment.
func (g *Gateway) CreateAppointment(ctx context.Context, in AppointmentInput) (res Result[*Appointment]) {
	defer g.recoverInto(&res, "create appointment")

	if problems := MissingAppointmentFields(in); len(problems) > 0 {
		g.metrics.ObserveCreate(string(TableAppointments), "rejected")
		return Invalid[*Appointment](&ValidationError{Problems: problems})
	}

	ctx, span := gatewayTracer.Start(ctx, "records.appointments.create")
	defer span.End()

	row, err := g.backend.Insert(ctx, TableAppointments, appointmentRow(in, StatusPending))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		g.metrics.ObserveCreate(string(TableAppointments), "failed")
		g.metrics.ObserveBackendError("insert")
		g.logger.Error("records: insert appointment failed", "error", err)
		return Fail[*Appointment]("Database error: " + err.Error())
	}
	appt, err := AppointmentFromRow(row)
	if err != nil {
		g.logger.Error("records: decode appointment failed", "error", err)
		return Fail[*Appointment](genericFailure)
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))
	g.metrics.ObserveCreate(string(TableAppointments), "created")
	g.logger.Info("appointment created", "id", appt.ID, "type", appt.AppointmentType, "preferred_date", appt.PreferredDate)

	for _, h := range g.onAppt {
		g.runHook(func() { h(ctx, appt) })
	}
	return OK(&appt).WithMessage("Appointment booked successfully!")
}

// CreateContactMessage validates and stores a new contact message.
func (g *Gateway) CreateContactMessage(ctx context.Context, in ContactInput) (res Result[*ContactMessage]) {
	defer g.recoverInto(&res, "create contact message")

	if problems := MissingContactFields(in); len(problems) > 0 {
		g.metrics.ObserveCreate(string(TableContactMessages), "rejected")
		return Invalid[*ContactMessage](&ValidationError{Problems: problems})
	}

	ctx, span := gatewayTracer.Start(ctx, "records.contact_messages.create")
	defer span.End()

	row, err := g.backend.Insert(ctx, TableContactMessages, contactRow(in, ContactNew))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		g.metrics.ObserveCreate(string(TableContactMessages), "failed")
		g.metrics.ObserveBackendError("insert")
		g.logger.Error("records: insert contact message failed", "error", err)
		return Fail[*ContactMessage]("Database error: " + err.Error())
	}
	msg, err := ContactFromRow(row)
	if err != nil {
		g.logger.Error("records: decode contact message failed", "error", err)
		return Fail[*ContactMessage](genericFailure)
	}
	g.metrics.ObserveCreate(string(TableContactMessages), "created")
	g.logger.Info("contact message created", "id", msg.ID, "subject", msg.Subject)

	for _, h := range g.onContact {
		g.runHook(func() { h(ctx, msg) })
	}
	return OK(&msg).WithMessage("Message sent successfully!")
}

// ListAppointments returns every appointment, newest first, or ordered by
// preferred date when a range is given.
func (g *Gateway) ListAppointments(ctx context.Context, opts ListOptions) (res Result[[]Appointment]) {
	defer g.recoverInto(&res, "list appointments")

	q := Query{Order: &Order{Column: "created_at"}}
	if opts.hasRange() {
		for _, d := range []string{opts.From, opts.To} {
			if d == "" {
				continue
			}
			if _, err := time.Parse(time.DateOnly, d); err != nil {
				return Fail[[]Appointment](ErrInvalidDateRange.Error() + ": " + d)
			}
		}
		if opts.From != "" {
			q.Filters = append(q.Filters, Filter{Column: "preferred_date", Op: OpGte, Value: opts.From})
		}
		if opts.To != "" {
			q.Filters = append(q.Filters, Filter{Column: "preferred_date", Op: OpLte, Value: opts.To})
		}
		q.Order = &Order{Column: "preferred_date", Ascending: true}
	}

	rows, err := g.backend.Select(ctx, TableAppointments, q)
	if err != nil {
		g.metrics.ObserveBackendError("select")
		g.logger.Error("records: list appointments failed", "error", err)
		return Fail[[]Appointment](err.Error())
	}
	out := make([]Appointment, 0, len(rows))
	for _, row := range rows {
		appt, err := AppointmentFromRow(row)
		if err != nil {
			g.logger.Error("records: decode appointment failed", "error", err)
			return Fail[[]Appointment](err.Error())
		}
		out = append(out, appt)
	}
	return OK(out)
}

// GetAppointment fetches one appointment by id.
func (g *Gateway) GetAppointment(ctx context.Context, id string) (res Result[*Appointment]) {
	defer g.recoverInto(&res, "get appointment")

	rows, err := g.backend.Select(ctx, TableAppointments, Query{Filters: []Filter{{Column: "id", Op: OpEq, Value: id}}})
	if err != nil {
		g.metrics.ObserveBackendError("select")
		return Fail[*Appointment](err.Error())
	}
	if len(rows) == 0 {
		return Fail[*Appointment]("appointment not found")
	}
	appt, err := AppointmentFromRow(rows[0])
	if err != nil {
		return Fail[*Appointment](err.Error())
	}
	return OK(&appt)
}

// ListContactMessages returns every contact message, newest first.
func (g *Gateway) ListContactMessages(ctx context.Context) (res Result[[]ContactMessage]) {
	defer g.recoverInto(&res, "list contact messages")

	rows, err := g.backend.Select(ctx, TableContactMessages, Query{Order: &Order{Column: "created_at"}})
	if err != nil {
		g.metrics.ObserveBackendError("select")
		g.logger.Error("records: list contact messages failed", "error", err)
		return Fail[[]ContactMessage](err.Error())
	}
	out := make([]ContactMessage, 0, len(rows))
	for _, row := range rows {
		msg, err := ContactFromRow(row)
		if err != nil {
			return Fail[[]ContactMessage](err.Error())
		}
		out = append(out, msg)
	}
	return OK(out)
}

// UpdateAppointmentStatus moves an appointment to any enumerated status.
// There is no transition graph: every status is reachable from every other.
func (g *Gateway) UpdateAppointmentStatus(ctx context.Context, id string, status AppointmentStatus) (res Result[*Appointment]) {
	defer g.recoverInto(&res, "update appointment status")

	if !status.Valid() {
		return Fail[*Appointment](fmt.Sprintf("%s: %q", ErrInvalidStatus, status))
	}
	row, err := g.update(ctx, TableAppointments, id, string(status))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Fail[*Appointment]("appointment not found")
		}
		return Fail[*Appointment](err.Error())
	}
	appt, err := AppointmentFromRow(row)
	if err != nil {
		return Fail[*Appointment](err.Error())
	}
	g.metrics.ObserveStatusChange(string(TableAppointments), string(status))
	g.logger.Info("appointment status updated", "id", id, "status", status)
	return OK(&appt)
}

// UpdateContactMessageStatus moves a contact message to any enumerated status.
func (g *Gateway) UpdateContactMessageStatus(ctx context.Context, id string, status ContactStatus) (res Result[*ContactMessage]) {
	defer g.recoverInto(&res, "update contact status")

	if !status.Valid() {
		return Fail[*ContactMessage](fmt.Sprintf("%s: %q", ErrInvalidStatus, status))
	}
	row, err := g.update(ctx, TableContactMessages, id, string(status))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Fail[*ContactMessage]("contact message not found")
		}
		return Fail[*ContactMessage](err.Error())
	}
	msg, err := ContactFromRow(row)
	if err != nil {
		return Fail[*ContactMessage](err.Error())
	}
	g.metrics.ObserveStatusChange(string(TableContactMessages), string(status))
	return OK(&msg)
}

func (g *Gateway) update(ctx context.Context, table Table, id, status string) (Row, error) {
	ctx, span := gatewayTracer.Start(ctx, "records."+string(table)+".update_status")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", id), attribute.String("record.status", status))

	row, err := g.backend.Update(ctx, table, id, Row{
		"status":     status,
		"updated_at": g.clock.Stamp(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		g.metrics.ObserveBackendError("update")
		g.logger.Error("records: update status failed", "table", table, "id", id, "error", err)
		return nil, err
	}
	return row, nil
}

// DeleteAppointment irreversibly removes an appointment.
func (g *Gateway) DeleteAppointment(ctx context.Context, id string) (res Result[struct{}]) {
	defer g.recoverInto(&res, "delete appointment")
	return g.delete(ctx, TableAppointments, id, "appointment not found")
}

// DeleteContactMessage irreversibly removes a contact message.
func (g *Gateway) DeleteContactMessage(ctx context.Context, id string) (res Result[struct{}]) {
	defer g.recoverInto(&res, "delete contact message")
	return g.delete(ctx, TableContactMessages, id, "contact message not found")
}

func (g *Gateway) delete(ctx context.Context, table Table, id, notFound string) Result[struct{}] {
	ctx, span := gatewayTracer.Start(ctx, "records."+string(table)+".delete")
	defer span.End()

	if err := g.backend.Delete(ctx, table, id); err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrNotFound) {
			return Fail[struct{}](notFound)
		}
		g.metrics.ObserveBackendError("delete")
		g.logger.Error("records: delete failed", "table", table, "id", id, "error", err)
		return Fail[struct{}](err.Error())
	}
	g.metrics.ObserveDelete(string(table))
	g.logger.Info("record deleted", "table", table, "id", id)
	return Done[struct{}]()
}

// Ping verifies the backend is reachable.
func (g *Gateway) Ping(ctx context.Context) Result[struct{}] {
	if err := g.backend.Ping(ctx); err != nil {
		g.logger.Warn("records: backend ping failed", "error", err)
		return Fail[struct{}](err.Error())
	}
	return Done[struct{}]().WithMessage("Connected to backend successfully")
}

func (g *Gateway) runHook(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("records: create hook panicked", "panic", r)
		}
	}()
	fn()
}

func (g *Gateway) recoverInto(res any, op string) {
	r := recover()
	if r == nil {
		return
	}
	g.logger.Error("records: unexpected failure", "op", op, "panic", r)
	switch v := res.(type) {
	case *Result[*Appointment]:
		*v = Fail[*Appointment](genericFailure)
	case *Result[*ContactMessage]:
		*v = Fail[*ContactMessage](genericFailure)
	case *Result[[]Appointment]:
		*v = Fail[[]Appointment](genericFailure)
	case *Result[[]ContactMessage]:
		*v = Fail[[]ContactMessage](genericFailure)
	case *Result[struct{}]:
		*v = Fail[struct{}](genericFailure)
	case *Result[Stats]:
		*v = Fail[Stats](genericFailure)
	}
}

package records

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

type countingBackend struct {
	*MemoryBackend
	mu        sync.Mutex
	inserts   int
	insertErr error
}

func (c *countingBackend) Insert(ctx context.Context, table Table, row Row) (Row, error) {
	c.mu.Lock()
	c.inserts++
	c.mu.Unlock()
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	return c.MemoryBackend.Insert(ctx, table, row)
}

func newTestGateway(t *testing.T, opts ...Option) (*Gateway, *countingBackend) {
	t.Helper()
	logger := logging.New("error")
	backend := &countingBackend{MemoryBackend: NewMemoryBackend(logger, nil)}
	return NewGateway(backend, logger, opts...), backend
}

func validAppointment() AppointmentInput {
	return AppointmentInput{
		AppointmentType: "General Consultation",
		PreferredDate:   "2030-01-15",
		PhoneNumber:     "9876543210",
	}
}

func TestCreateAppointmentRejectsMissingFieldsWithoutBackendCall(t *testing.T) {
	gw, backend := newTestGateway(t)

	res := gw.CreateAppointment(context.Background(), AppointmentInput{PatientName: "Asha"})

	require.False(t, res.Success)
	assert.Equal(t, "Please select an appointment type. Please select a preferred date. Please enter your phone number", res.Error)
	assert.Len(t, res.Details, 3)
	assert.Equal(t, 0, backend.inserts)
}

func TestCreateAppointmentRoundTrip(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	res := gw.CreateAppointment(ctx, validAppointment())
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Data)
	assert.NotEmpty(t, res.Data.ID)
	assert.Equal(t, StatusPending, res.Data.Status)
	assert.Nil(t, res.Data.PatientName)
	assert.False(t, res.Data.CreatedAt.IsZero())

	list := gw.ListAppointments(ctx, ListOptions{})
	require.True(t, list.Success)
	require.Len(t, list.Data, 1)
	assert.Equal(t, res.Data.ID, list.Data[0].ID)
	assert.Nil(t, list.Data[0].PatientName)
	assert.Equal(t, "2030-01-15", list.Data[0].PreferredDate)
}

func TestCreateAppointmentBackendFailure(t *testing.T) {
	gw, backend := newTestGateway(t)
	backend.insertErr = errors.New("connection refused")

	res := gw.CreateAppointment(context.Background(), validAppointment())

	require.False(t, res.Success)
	assert.Equal(t, "Database error: connection refused", res.Error)
}

func TestUpdateAppointmentStatusAllowsAnyTransition(t *testing.T) {
	base := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	stamper := NewStamper(func() time.Time { return base })
	logger := logging.New("error")
	gw := NewGateway(NewMemoryBackend(logger, stamper), logger, WithStamper(stamper))
	ctx := context.Background()

	created := gw.CreateAppointment(ctx, validAppointment())
	require.True(t, created.Success)
	id := created.Data.ID

	last := created.Data.UpdatedAt
	sequence := []AppointmentStatus{StatusCompleted, StatusPending, StatusNoShow, StatusCancelled, StatusConfirmed, StatusConfirmed}
	for _, status := range sequence {
		res := gw.UpdateAppointmentStatus(ctx, id, status)
		require.True(t, res.Success, "update to %s: %s", status, res.Error)
		assert.Equal(t, status, res.Data.Status)
		assert.True(t, res.Data.UpdatedAt.After(last), "updated_at must strictly increase")
		last = res.Data.UpdatedAt
	}
}

func TestUpdateAppointmentStatusStaysAheadOfBackendClock(t *testing.T) {
	// gateway clock lags the clock that stamped the insert
	lagging := time.Now().Add(-time.Minute)
	gw, _ := newTestGateway(t, WithClock(func() time.Time { return lagging }))
	ctx := context.Background()

	created := gw.CreateAppointment(ctx, validAppointment())
	require.True(t, created.Success)

	first := gw.UpdateAppointmentStatus(ctx, created.Data.ID, StatusConfirmed)
	require.True(t, first.Success, first.Error)
	assert.True(t, first.Data.UpdatedAt.After(created.Data.UpdatedAt))

	second := gw.UpdateAppointmentStatus(ctx, created.Data.ID, StatusCompleted)
	require.True(t, second.Success, second.Error)
	assert.True(t, second.Data.UpdatedAt.After(first.Data.UpdatedAt))
}

func TestUpdateAppointmentStatusRejectsUnknownStatus(t *testing.T) {
	gw, _ := newTestGateway(t)
	created := gw.CreateAppointment(context.Background(), validAppointment())

	res := gw.UpdateAppointmentStatus(context.Background(), created.Data.ID, "archived")

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid status")
}

func TestUpdateAppointmentStatusUnknownID(t *testing.T) {
	gw, _ := newTestGateway(t)
	res := gw.UpdateAppointmentStatus(context.Background(), "missing", StatusConfirmed)
	require.False(t, res.Success)
	assert.Equal(t, "appointment not found", res.Error)
}

func TestDeleteAppointmentRemovesForever(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	keep := gw.CreateAppointment(ctx, validAppointment())
	drop := gw.CreateAppointment(ctx, validAppointment())

	res := gw.DeleteAppointment(ctx, drop.Data.ID)
	require.True(t, res.Success)
	assert.False(t, res.HasData())

	list := gw.ListAppointments(ctx, ListOptions{})
	require.Len(t, list.Data, 1)
	assert.Equal(t, keep.Data.ID, list.Data[0].ID)

	again := gw.DeleteAppointment(ctx, drop.Data.ID)
	require.False(t, again.Success)
	assert.Equal(t, "appointment not found", again.Error)
}

func TestListAppointmentsOrdering(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	for _, d := range []string{"2030-03-01", "2030-01-01", "2030-02-01"} {
		in := validAppointment()
		in.PreferredDate = d
		require.True(t, gw.CreateAppointment(ctx, in).Success)
	}

	all := gw.ListAppointments(ctx, ListOptions{})
	require.Len(t, all.Data, 3)
	assert.Equal(t, "2030-02-01", all.Data[0].PreferredDate, "newest created first")

	ranged := gw.ListAppointments(ctx, ListOptions{From: "2030-01-15", To: "2030-03-01"})
	require.True(t, ranged.Success)
	require.Len(t, ranged.Data, 2)
	assert.Equal(t, "2030-02-01", ranged.Data[0].PreferredDate)
	assert.Equal(t, "2030-03-01", ranged.Data[1].PreferredDate)

	bad := gw.ListAppointments(ctx, ListOptions{From: "15/01/2030"})
	require.False(t, bad.Success)
	assert.Contains(t, bad.Error, "invalid date range")
}

func TestCreateContactMessageDefaultsSubject(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	res := gw.CreateContactMessage(ctx, ContactInput{
		Name:    "Ravi",
		Email:   "ravi@example.com",
		Phone:   "9876543210",
		Message: "Do you accept walk-ins?",
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, DefaultContactSubject, res.Data.Subject)
	assert.Equal(t, ContactNew, res.Data.Status)
	assert.Nil(t, res.Data.Location)

	upd := gw.UpdateContactMessageStatus(ctx, res.Data.ID, ContactResolved)
	require.True(t, upd.Success)
	assert.Equal(t, ContactResolved, upd.Data.Status)

	list := gw.ListContactMessages(ctx)
	require.Len(t, list.Data, 1)

	require.True(t, gw.DeleteContactMessage(ctx, res.Data.ID).Success)
	assert.Empty(t, gw.ListContactMessages(ctx).Data)
}

func TestCreateContactMessageValidation(t *testing.T) {
	gw, backend := newTestGateway(t)
	res := gw.CreateContactMessage(context.Background(), ContactInput{Name: "Ravi"})
	require.False(t, res.Success)
	assert.Len(t, res.Details, 3)
	assert.Equal(t, 0, backend.inserts)
}

func TestAppointmentStats(t *testing.T) {
	now := time.Date(2030, 5, 10, 12, 0, 0, 0, time.UTC)
	stamper := NewStamper(func() time.Time { return now })
	logger := logging.New("error")
	backend := NewMemoryBackend(logger, stamper)
	gw := NewGateway(backend, logger, WithStamper(stamper), WithLocation(time.UTC))
	ctx := context.Background()

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		res := gw.CreateAppointment(ctx, validAppointment())
		require.True(t, res.Success)
		ids = append(ids, res.Data.ID)
	}
	// One appointment from yesterday.
	_, err := backend.Insert(ctx, TableAppointments, Row{
		"appointment_type": "Follow-up Visit",
		"preferred_date":   "2030-05-20",
		"phone_number":     "9876543210",
		"status":           string(StatusCompleted),
		"created_at":       now.Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	gw.UpdateAppointmentStatus(ctx, ids[0], StatusConfirmed)
	gw.UpdateAppointmentStatus(ctx, ids[1], StatusCancelled)
	gw.UpdateAppointmentStatus(ctx, ids[2], StatusNoShow)

	res := gw.AppointmentStats(ctx)
	require.True(t, res.Success)
	assert.Equal(t, Stats{Total: 5, Pending: 1, Confirmed: 1, Completed: 1, Cancelled: 1, NoShow: 1, Today: 4}, res.Data)
}

type recordingHook struct {
	mu    sync.Mutex
	appts []Appointment
	msgs  []ContactMessage
	panic bool
}

func (h *recordingHook) AppointmentCreated(_ context.Context, a Appointment) {
	if h.panic {
		panic("boom")
	}
	h.mu.Lock()
	h.appts = append(h.appts, a)
	h.mu.Unlock()
}

func (h *recordingHook) ContactMessageCreated(_ context.Context, m ContactMessage) {
	h.mu.Lock()
	h.msgs = append(h.msgs, m)
	h.mu.Unlock()
}

func TestCreateHooksAreBestEffort(t *testing.T) {
	broken := &recordingHook{panic: true}
	good := &recordingHook{}
	gw, _ := newTestGateway(t,
		OnAppointmentCreated(broken.AppointmentCreated),
		OnAppointmentCreated(good.AppointmentCreated),
		OnContactCreated(good.ContactMessageCreated),
	)

	res := gw.CreateAppointment(context.Background(), validAppointment())
	require.True(t, res.Success)
	require.Len(t, good.appts, 1)
	assert.Equal(t, res.Data.ID, good.appts[0].ID)

	msg := gw.CreateContactMessage(context.Background(), ContactInput{Name: "A", Email: "a@x", Phone: "1", Message: "m"})
	require.True(t, msg.Success)
	require.Len(t, good.msgs, 1)
}

func TestPing(t *testing.T) {
	gw, _ := newTestGateway(t)
	res := gw.Ping(context.Background())
	assert.True(t, res.Success)
	assert.True(t, strings.Contains(res.Message, "Connected"))
}

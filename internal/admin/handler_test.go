package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/eyecare-clinic-api/internal/archive"
	"github.com/wolfman30/eyecare-clinic-api/internal/messaging"
	"github.com/wolfman30/eyecare-clinic-api/internal/notify"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

type fakeArchiver struct {
	mu      sync.Mutex
	exports []archive.Export
}

func (f *fakeArchiver) ArchiveExport(_ context.Context, exp archive.Export) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, exp)
	return "exports/" + exp.Name, nil
}

type adminEnv struct {
	router   http.Handler
	gw       *records.Gateway
	board    *Board
	tray     *notify.Buffer
	archiver *fakeArchiver
	token    string
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	backend := records.NewMemoryBackend(nil, nil)
	gw := records.NewGateway(backend, logging.New("error"))
	board, err := NewBoard(BoardConfig{Lister: gw, RefreshInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(board.Close)

	auth, err := NewAuthenticator(AuthConfig{Passphrase: "open-sesame", Secret: testSecret})
	require.NoError(t, err)
	composer, err := messaging.NewComposer("", "https://clinic.example", time.UTC)
	require.NoError(t, err)

	env := &adminEnv{gw: gw, board: board, tray: notify.NewBuffer(notify.DefaultCapacity), archiver: &fakeArchiver{}}
	h, err := NewHandler(HandlerConfig{
		Records:       gw,
		Board:         board,
		Auth:          auth,
		Composer:      composer,
		Notifications: env.tray,
		Archiver:      env.archiver,
		Location:      time.UTC,
		Logger:        logging.New("error"),
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/admin", h.Routes)
	env.router = r

	rec := env.do(t, http.MethodPost, "/admin/login", `{"passphrase":"open-sesame"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var login loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
	env.token = login.Token
	return env
}

func (e *adminEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *adminEnv) seed(t *testing.T, name, phone, typ string) records.Appointment {
	t.Helper()
	res := e.gw.CreateAppointment(context.Background(), records.AppointmentInput{
		AppointmentType: typ,
		PreferredDate:   "2099-01-01",
		PhoneNumber:     phone,
		PatientName:     name,
	})
	require.True(t, res.Success, res.Error)
	return *res.Data
}

func TestNewHandlerRequiresDependencies(t *testing.T) {
	_, err := NewHandler(HandlerConfig{})
	assert.Error(t, err)
}

func TestAdminLoginGate(t *testing.T) {
	env := newAdminEnv(t)
	token := env.token

	env.token = ""
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/admin/appointments", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/admin/login", `{"passphrase":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/admin/login", `{`).Code)

	env.token = token
	rec := env.do(t, http.MethodGet, "/admin/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	assert.Equal(t, "admin", s.Subject)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/admin/logout", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/admin/session", "").Code)
}

func TestAdminListAndFilter(t *testing.T) {
	env := newAdminEnv(t)
	asha := env.seed(t, "Asha", "9876543210", "LASIK Surgery")
	env.seed(t, "", "9123456789", "Comprehensive Eye Exam")

	rec := env.do(t, http.MethodPost, "/admin/appointments/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/appointments?search=lasik", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body listResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 1, body.Shown)
	assert.Equal(t, asha.ID, body.Appointments[0].ID)
	assert.NotZero(t, body.Version)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/admin/appointments?status=archived", "").Code)
}

func TestAdminStatusChange(t *testing.T) {
	env := newAdminEnv(t)
	a := env.seed(t, "", "+91 98765 43210", "LASIK Surgery")

	rec := env.do(t, http.MethodPatch, "/admin/appointments/"+a.ID+"/status", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success      bool                `json:"success"`
		Data         records.Appointment `json:"data"`
		WhatsAppLink string              `json:"whatsapp_link"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, records.StatusConfirmed, body.Data.Status)
	assert.True(t, strings.HasPrefix(body.WhatsAppLink, "https://wa.me/919876543210?text=Hi%20Patient%2C%20your%20appointment"), body.WhatsAppLink)
	assert.Contains(t, body.WhatsAppLink, "CONFIRMED")

	// The mutation refreshes the board.
	snap := env.board.Snapshot()
	require.Len(t, snap.Appointments, 1)
	assert.Equal(t, records.StatusConfirmed, snap.Appointments[0].Status)

	rec = env.do(t, http.MethodPatch, "/admin/appointments/"+a.ID+"/status", `{"status":"no_show"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "whatsapp_link")

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPatch, "/admin/appointments/"+a.ID+"/status", `{"status":"archived"}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPatch, "/admin/appointments/missing/status", `{"status":"pending"}`).Code)
}

func TestAdminDeleteAppointment(t *testing.T) {
	env := newAdminEnv(t)
	a := env.seed(t, "Asha", "9876543210", "LASIK Surgery")
	require.NoError(t, env.board.Refresh(context.Background()))

	rec := env.do(t, http.MethodDelete, "/admin/appointments/"+a.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.board.Snapshot().Appointments)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/admin/appointments/"+a.ID, "").Code)
}

func TestAdminMessageLink(t *testing.T) {
	env := newAdminEnv(t)
	a := env.seed(t, "", "9876543210", "LASIK Surgery")

	rec := env.do(t, http.MethodGet, "/admin/appointments/"+a.ID+"/message-link", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, strings.HasPrefix(body["whatsapp_link"], "https://wa.me/9876543210?text=Hi%20there"))
}

func TestAdminExportCSV(t *testing.T) {
	env := newAdminEnv(t)
	env.seed(t, "Asha", "9876543210", "LASIK Surgery")
	env.seed(t, "Ravi", "9123456789", "Follow-up Visit")
	require.NoError(t, env.board.Refresh(context.Background()))

	rec := env.do(t, http.MethodGet, "/admin/appointments/export.csv?search=ravi", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "appointments_")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Ravi")

	require.Len(t, env.archiver.exports, 1)
	assert.Equal(t, 1, env.archiver.exports[0].Rows)
	assert.Equal(t, "search=ravi", env.archiver.exports[0].Filter)
	assert.NotEmpty(t, env.archiver.exports[0].ExportedBy)
}

func TestAdminStats(t *testing.T) {
	env := newAdminEnv(t)
	env.seed(t, "Asha", "9876543210", "LASIK Surgery")

	rec := env.do(t, http.MethodGet, "/admin/appointments/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res records.Result[records.Stats]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, 1, res.Data.Total)
	assert.Equal(t, 1, res.Data.Pending)
}

func TestAdminContactMessages(t *testing.T) {
	env := newAdminEnv(t)
	created := env.gw.CreateContactMessage(context.Background(), records.ContactInput{
		Name: "Ravi", Email: "ravi@example.com", Phone: "9123456789", Message: "Do you stock toric lenses?",
	})
	require.True(t, created.Success, created.Error)
	id := created.Data.ID

	rec := env.do(t, http.MethodGet, "/admin/contact-messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	rec = env.do(t, http.MethodPatch, "/admin/contact-messages/"+id+"/status", `{"status":"replied"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"replied"`)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPatch, "/admin/contact-messages/"+id+"/status", `{"status":"pending"}`).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/admin/contact-messages/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/admin/contact-messages/"+id, "").Code)
}

func TestAdminNotifications(t *testing.T) {
	env := newAdminEnv(t)
	env.tray.Push(notify.Notification{ID: "n1", Title: "New Appointment Booking!"})
	env.tray.Push(notify.Notification{ID: "n2", Title: "New Appointment Booking!"})

	rec := env.do(t, http.MethodGet, "/admin/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body notificationsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Notifications, 2)
	assert.Equal(t, 2, body.Unread)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/admin/notifications/n1/read", "").Code)
	assert.Equal(t, 1, env.tray.UnreadCount())
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/admin/notifications/zzz/read", "").Code)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/admin/notifications/n2", "").Code)
	assert.Equal(t, 1, env.tray.Len())
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/admin/notifications/stream", "").Code)
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, resultStatus(true, ""))
	assert.Equal(t, http.StatusNotFound, resultStatus(false, "appointment not found"))
	assert.Equal(t, http.StatusBadRequest, resultStatus(false, `invalid status: "x"`))
	assert.Equal(t, http.StatusBadGateway, resultStatus(false, "Database error: timeout"))
}

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/eyecare-clinic-api/internal/archive"
	"github.com/wolfman30/eyecare-clinic-api/internal/messaging"
	"github.com/wolfman30/eyecare-clinic-api/internal/notify"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// Records is the slice of the record gateway the admin board uses.
type Records interface {
	Lister
	GetAppointment(ctx context.Context, id string) records.Result[*records.Appointment]
	UpdateAppointmentStatus(ctx context.Context, id string, status records.AppointmentStatus) records.Result[*records.Appointment]
	DeleteAppointment(ctx context.Context, id string) records.Result[struct{}]
	AppointmentStats(ctx context.Context) records.Result[records.Stats]
	ListContactMessages(ctx context.Context) records.Result[[]records.ContactMessage]
	UpdateContactMessageStatus(ctx context.Context, id string, status records.ContactStatus) records.Result[*records.ContactMessage]
	DeleteContactMessage(ctx context.Context, id string) records.Result[struct{}]
}

// HandlerConfig wires the admin HTTP surface. Records, Board, Auth and
// Composer are required.
type HandlerConfig struct {
	Records       Records
	Board         *Board
	Auth          *Authenticator
	Composer      *messaging.Composer
	Notifications *notify.Buffer
	Stream        http.Handler
	Archiver      Archiver
	LoginLimiter  func(http.Handler) http.Handler
	Location      *time.Location
	Logger        *logging.Logger
	Now           func() time.Time
}

// Handler serves the admin dashboard API.
type Handler struct {
	records  Records
	board    *Board
	auth     *Authenticator
	composer *messaging.Composer
	tray     *notify.Buffer
	stream   http.Handler
	archiver Archiver
	limiter  func(http.Handler) http.Handler
	loc      *time.Location
	logger   *logging.Logger
	now      func() time.Time
}

func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Records == nil || cfg.Board == nil || cfg.Auth == nil || cfg.Composer == nil {
		return nil, errors.New("admin: handler requires records, board, auth and composer")
	}
	if cfg.Notifications == nil {
		cfg.Notifications = notify.NewBuffer(notify.DefaultCapacity)
	}
	if cfg.LoginLimiter == nil {
		cfg.LoginLimiter = func(next http.Handler) http.Handler { return next }
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		records:  cfg.Records,
		board:    cfg.Board,
		auth:     cfg.Auth,
		composer: cfg.Composer,
		tray:     cfg.Notifications,
		stream:   cfg.Stream,
		archiver: cfg.Archiver,
		limiter:  cfg.LoginLimiter,
		loc:      cfg.Location,
		logger:   cfg.Logger.Component("admin"),
		now:      cfg.Now,
	}, nil
}

// Routes mounts the admin endpoints. Everything except login requires a
// session.
func (h *Handler) Routes(r chi.Router) {
	r.With(h.limiter).Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.Post("/logout", h.Logout)
		r.Get("/session", h.GetSession)

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", h.ListAppointments)
			r.Post("/refresh", h.RefreshAppointments)
			r.Get("/export.csv", h.ExportAppointments)
			r.Get("/stats", h.GetStats)
			r.Patch("/{id}/status", h.UpdateAppointmentStatus)
			r.Get("/{id}/message-link", h.GetMessageLink)
			r.Delete("/{id}", h.DeleteAppointment)
		})

		r.Route("/contact-messages", func(r chi.Router) {
			r.Get("/", h.ListContactMessages)
			r.Patch("/{id}/status", h.UpdateContactMessageStatus)
			r.Delete("/{id}", h.DeleteContactMessage)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Get("/stream", h.StreamNotifications)
			r.Post("/{id}/read", h.MarkNotificationRead)
			r.Delete("/{id}", h.DismissNotification)
		})
	})
}

type loginRequest struct {
	Passphrase string `json:"passphrase"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Session   Session   `json:"session"`
}

// POST /admin/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, s, err := h.auth.Login(req.Passphrase)
	if err != nil {
		if errors.Is(err, ErrInvalidPassphrase) {
			h.logger.Warn("admin login rejected", "remote_ip", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "Invalid passphrase")
			return
		}
		h.logger.Error("admin login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.logger.Info("admin logged in", "session_id", s.ID, "expires_at", s.ExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, TokenType: "Bearer", ExpiresAt: s.ExpiresAt, Session: s})
}

// POST /admin/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	h.auth.Logout(s)
	w.WriteHeader(http.StatusNoContent)
}

// GET /admin/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type listResponse struct {
	Appointments []records.Appointment `json:"appointments"`
	Total        int                   `json:"total"`
	Shown        int                   `json:"shown"`
	Version      uint64                `json:"version"`
	RefreshedAt  time.Time             `json:"refreshed_at"`
	LastError    string                `json:"last_error,omitempty"`
	Filter       Filter                `json:"filter"`
}

func (h *Handler) filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	return ParseFilter(q.Get("search"), q.Get("status"), q.Get("date"))
}

func (h *Handler) view(f Filter) listResponse {
	snap := h.board.Snapshot()
	shown := Apply(snap.Appointments, f, h.now().In(h.loc))
	return listResponse{
		Appointments: shown,
		Total:        len(snap.Appointments),
		Shown:        len(shown),
		Version:      snap.Version,
		RefreshedAt:  snap.RefreshedAt,
		LastError:    snap.LastError,
		Filter:       f,
	}
}

// GET /admin/appointments?search=&status=&date=
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	f, err := h.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.view(f))
}

// POST /admin/appointments/refresh
func (h *Handler) RefreshAppointments(w http.ResponseWriter, r *http.Request) {
	f, err := h.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.board.Refresh(r.Context()); err != nil {
		h.logger.Warn("manual refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.view(f))
}

// GET /admin/appointments/export.csv
func (h *Handler) ExportAppointments(w http.ResponseWriter, r *http.Request) {
	f, err := h.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	shown := h.view(f).Appointments
	body, err := RenderExport(shown, h.loc)
	if err != nil {
		h.logger.Error("csv export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	name := ExportFilename(h.now())

	if h.archiver != nil {
		exp := archive.Export{Name: name, Body: body, Rows: len(shown), Filter: f.String()}
		if s, ok := SessionFromContext(r.Context()); ok {
			exp.ExportedBy = s.ID
		}
		if _, err := h.archiver.ArchiveExport(r.Context(), exp); err != nil {
			h.logger.Warn("export archive failed", "error", err, "name", name)
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// GET /admin/appointments/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	res := h.records.AppointmentStats(r.Context())
	writeJSON(w, resultStatus(res.Success, res.Error), res)
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	records.Result[*records.Appointment]
	WhatsAppLink string `json:"-"`
}

func (s statusResponse) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(s.Result)
	if err != nil || s.WhatsAppLink == "" {
		return base, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(base, &m); err != nil {
		return nil, err
	}
	link, _ := json.Marshal(s.WhatsAppLink)
	m["whatsapp_link"] = link
	return json.Marshal(m)
}

// PATCH /admin/appointments/{id}/status
func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status := records.AppointmentStatus(strings.TrimSpace(req.Status))
	res := h.records.UpdateAppointmentStatus(r.Context(), id, status)
	if !res.Success {
		writeJSON(w, resultStatus(false, res.Error), res)
		return
	}
	h.refreshAfterMutation(r.Context())

	out := statusResponse{Result: res}
	msg, ok, err := h.composer.StatusUpdate(*res.Data, status)
	switch {
	case err != nil:
		h.logger.Warn("status message render failed", "error", err, "id", id)
	case ok:
		if link, err := messaging.WhatsAppLink(res.Data.PhoneNumber, msg); err == nil {
			out.WhatsAppLink = link
		} else {
			h.logger.Warn("patient has no reachable number", "id", id)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /admin/appointments/{id}/message-link
func (h *Handler) GetMessageLink(w http.ResponseWriter, r *http.Request) {
	res := h.records.GetAppointment(r.Context(), chi.URLParam(r, "id"))
	if !res.Success {
		writeJSON(w, resultStatus(false, res.Error), res)
		return
	}
	msg, err := h.composer.QuickMessage(*res.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not compose message")
		return
	}
	link, err := messaging.WhatsAppLink(res.Data.PhoneNumber, msg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "appointment has no reachable phone number")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"whatsapp_link": link, "message": msg})
}

// DELETE /admin/appointments/{id}
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	res := h.records.DeleteAppointment(r.Context(), chi.URLParam(r, "id"))
	if res.Success {
		h.refreshAfterMutation(r.Context())
	}
	writeJSON(w, resultStatus(res.Success, res.Error), res)
}

func (h *Handler) refreshAfterMutation(ctx context.Context) {
	if err := h.board.Refresh(ctx); err != nil {
		h.logger.Warn("refresh after mutation failed", "error", err)
	}
}

// GET /admin/contact-messages
func (h *Handler) ListContactMessages(w http.ResponseWriter, r *http.Request) {
	res := h.records.ListContactMessages(r.Context())
	writeJSON(w, resultStatus(res.Success, res.Error), res)
}

// PATCH /admin/contact-messages/{id}/status
func (h *Handler) UpdateContactMessageStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	status := records.ContactStatus(strings.TrimSpace(req.Status))
	res := h.records.UpdateContactMessageStatus(r.Context(), chi.URLParam(r, "id"), status)
	writeJSON(w, resultStatus(res.Success, res.Error), res)
}

// DELETE /admin/contact-messages/{id}
func (h *Handler) DeleteContactMessage(w http.ResponseWriter, r *http.Request) {
	res := h.records.DeleteContactMessage(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, resultStatus(res.Success, res.Error), res)
}

type notificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// GET /admin/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, notificationsResponse{
		Notifications: h.tray.List(),
		Unread:        h.tray.UnreadCount(),
	})
}

// POST /admin/notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if !h.tray.MarkRead(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /admin/notifications/{id}
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.tray.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /admin/notifications/stream (websocket)
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		writeError(w, http.StatusNotFound, "notification stream disabled")
		return
	}
	h.stream.ServeHTTP(w, r)
}

// resultStatus maps a gateway envelope to an HTTP status.
func resultStatus(success bool, msg string) int {
	switch {
	case success:
		return http.StatusOK
	case strings.HasSuffix(msg, "not found"):
		return http.StatusNotFound
	case strings.HasPrefix(msg, records.ErrInvalidStatus.Error()):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

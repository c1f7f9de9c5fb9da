package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// Handler exposes the appointment form and wizard over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the public booking endpoints under /api.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/appointments", h.SubmitForm)
	r.Get("/booking/catalog", h.GetCatalog)
	r.Route("/booking/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Get("/{id}", h.GetSession)
		r.Put("/{id}", h.UpdateSession)
		r.Post("/{id}/next", h.NextStep)
		r.Post("/{id}/previous", h.PreviousStep)
		r.Post("/{id}/submit", h.SubmitSession)
	})
}

type submitResponse struct {
	Success  bool                 `json:"success"`
	Data     *records.Appointment `json:"data,omitempty"`
	Feedback Feedback             `json:"feedback"`
}

// SubmitForm handles the single-submit appointment form.
// POST /api/appointments
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var form Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	fb, appt := h.svc.Submit(r.Context(), form)
	status := http.StatusCreated
	if appt == nil {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, submitResponse{Success: appt != nil, Data: appt, Feedback: fb})
}

// GetCatalog returns appointment types, doctors and time slots.
// GET /api/booking/catalog
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog())
}

// POST /api/booking/sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.StartDraft(r.Context())
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GET /api/booking/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Draft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// PUT /api/booking/sessions/{id}
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var patch DraftPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	d, err := h.svc.UpdateDraft(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// POST /api/booking/sessions/{id}/next
func (h *Handler) NextStep(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.NextStep(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// POST /api/booking/sessions/{id}/previous
func (h *Handler) PreviousStep(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.PreviousStep(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// SubmitSession books from the personal-details step. A failed booking is
// still a 200 carrying the draft with error feedback; the client stays on
// the step and shows it.
// POST /api/booking/sessions/{id}/submit
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.SubmitDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDraftError(w, err)
		return
	}
	status := http.StatusOK
	if d.Step == StepConfirmed {
		status = http.StatusCreated
	}
	writeJSON(w, status, d)
}

func (h *Handler) writeDraftError(w http.ResponseWriter, err error) {
	var incomplete *StepIncompleteError
	switch {
	case errors.Is(err, ErrDraftNotFound):
		http.Error(w, "booking session not found", http.StatusNotFound)
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "step incomplete",
			"step":    incomplete.Step,
			"missing": incomplete.Missing,
		})
	case errors.Is(err, ErrWrongStep), errors.Is(err, ErrDraftConfirmed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("booking: draft operation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

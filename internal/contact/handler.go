// Package contact serves the public contact form.
package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// FeedbackHideAfter is how long the contact confirmation stays visible.
const FeedbackHideAfter = 3 * time.Second

// MessageCreator is the gateway surface the contact form needs.
type MessageCreator interface {
	CreateContactMessage(ctx context.Context, in records.ContactInput) records.Result[*records.ContactMessage]
}

type Handler struct {
	gateway MessageCreator
	logger  *logging.Logger
}

func NewHandler(gateway MessageCreator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{gateway: gateway, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/contact", h.Submit)
}

type feedback struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	HideAfterMS int64  `json:"hide_after_ms"`
}

type response struct {
	Success  bool                    `json:"success"`
	Data     *records.ContactMessage `json:"data,omitempty"`
	Details  []string                `json:"details,omitempty"`
	Feedback feedback                `json:"feedback"`
}

// Submit stores a contact message.
// POST /api/contact
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in records.ContactInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	res := h.gateway.CreateContactMessage(r.Context(), in)
	if !res.Success {
		title := "Failed to Send Message"
		if len(res.Details) > 0 {
			title = "Please fill all required fields"
		}
		h.logger.Warn("contact: submission rejected", "error", res.Error)
		writeJSON(w, http.StatusBadRequest, response{
			Details:  res.Details,
			Feedback: feedback{Kind: "error", Title: title, Message: res.Error, HideAfterMS: FeedbackHideAfter.Milliseconds()},
		})
		return
	}
	writeJSON(w, http.StatusCreated, response{
		Success: true,
		Data:    res.Data,
		Feedback: feedback{
			Kind:        "success",
			Title:       "Message Sent Successfully!",
			Message:     "Thank you for contacting us. We will get back to you within 24 hours.",
			HideAfterMS: FeedbackHideAfter.Milliseconds(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// FeedbackKind distinguishes success from error feedback.
type FeedbackKind string

const (
	FeedbackSuccess FeedbackKind = "success"
	FeedbackError   FeedbackKind = "error"
)

// FeedbackHideAfter is how long booking feedback stays visible.
const FeedbackHideAfter = 5 * time.Second

const (
	titleInvalid    = "Please fill all required fields"
	titleBooked     = "Appointment Booked Successfully!"
	titleFailed     = "Booking Failed"
	titleUnexpected = "Unexpected Error"

	msgBooked     = "Your appointment has been booked. We will contact you soon to confirm the details."
	msgFailed     = "Something went wrong. Please try again or call us directly."
	msgUnexpected = "An unexpected error occurred. Please try again or contact us directly."
)

// Feedback is the transient message shown after a submission.
type Feedback struct {
	Kind        FeedbackKind `json:"kind"`
	Title       string       `json:"title"`
	Message     string       `json:"message"`
	HideAfterMS int64        `json:"hide_after_ms"`
}

func newFeedback(kind FeedbackKind, title, msg string) *Feedback {
	return &Feedback{Kind: kind, Title: title, Message: msg, HideAfterMS: FeedbackHideAfter.Milliseconds()}
}

// AppointmentCreator is the gateway surface booking needs.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, in records.AppointmentInput) records.Result[*records.Appointment]
}

// Service runs the single-submit form and the multi-step wizard.
type Service struct {
	gateway AppointmentCreator
	drafts  DraftStore
	catalog Catalog
	now     func() time.Time
	logger  *logging.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNow overrides the clock used for the future-date check.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithCatalog(c Catalog) ServiceOption {
	return func(s *Service) { s.catalog = c }
}

func NewService(gateway AppointmentCreator, drafts DraftStore, logger *logging.Logger, opts ...ServiceOption) *Service {
	if gateway == nil {
		panic("booking: gateway required")
	}
	if drafts == nil {
		drafts = NewMemoryDraftStore(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		gateway: gateway,
		drafts:  drafts,
		catalog: DefaultCatalog(),
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Catalog() Catalog {
	return s.catalog
}

// Submit validates f and creates the appointment. It never returns an error:
// every outcome, including a panic below it, is expressed as feedback.
func (s *Service) Submit(ctx context.Context, f Form) (fb Feedback, appt *records.Appointment) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("booking: submit panicked", "panic", r)
			fb, appt = *newFeedback(FeedbackError, titleUnexpected, msgUnexpected), nil
		}
	}()

	out, appt := s.create(ctx, f, f.input())
	return *out, appt
}

func (s *Service) create(ctx context.Context, f Form, in records.AppointmentInput) (*Feedback, *records.Appointment) {
	if problems := Validate(f, s.now()); len(problems) > 0 {
		return newFeedback(FeedbackError, titleInvalid, strings.Join(problems, ". ")), nil
	}
	res := s.gateway.CreateAppointment(ctx, in)
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = msgFailed
		}
		s.logger.Warn("booking: create failed", "error", msg)
		return newFeedback(FeedbackError, titleFailed, msg), nil
	}
	return newFeedback(FeedbackSuccess, titleBooked, msgBooked), res.Data
}

// StartDraft opens a new wizard on the first step.
func (s *Service) StartDraft(ctx context.Context) (Draft, error) {
	now := s.now().UTC()
	d := Draft{ID: uuid.NewString(), Step: StepTypeSelection, CreatedAt: now, UpdatedAt: now}
	if err := s.drafts.Save(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (s *Service) Draft(ctx context.Context, id string) (Draft, error) {
	return s.drafts.Get(ctx, id)
}

// UpdateDraft merges a patch into the draft without moving it.
func (s *Service) UpdateDraft(ctx context.Context, id string, p DraftPatch) (Draft, error) {
	return s.mutate(ctx, id, func(d *Draft) error { return d.Apply(p) })
}

func (s *Service) NextStep(ctx context.Context, id string) (Draft, error) {
	return s.mutate(ctx, id, func(d *Draft) error { return d.Next() })
}

func (s *Service) PreviousStep(ctx context.Context, id string) (Draft, error) {
	return s.mutate(ctx, id, func(d *Draft) error { return d.Previous() })
}

// SubmitDraft books the appointment from the personal-details step. Only a
// successful create confirms the draft; any failure leaves it on the same
// step with the error recorded as feedback.
func (s *Service) SubmitDraft(ctx context.Context, id string) (Draft, error) {
	return s.mutate(ctx, id, func(d *Draft) (err error) {
		switch d.Step {
		case StepPersonalDetails:
		case StepConfirmed:
			return ErrDraftConfirmed
		default:
			return ErrWrongStep
		}
		if missing := d.Missing(); len(missing) > 0 {
			return &StepIncompleteError{Step: d.Step, Missing: missing}
		}

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("booking: draft submit panicked", "draft", d.ID, "panic", r)
				d.Feedback = newFeedback(FeedbackError, titleUnexpected, msgUnexpected)
				err = nil
			}
		}()

		fb, appt := s.create(ctx, d.form(s.catalog), d.input(s.catalog))
		d.Feedback = fb
		if appt != nil {
			d.Step = StepConfirmed
			d.AppointmentID = appt.ID
		}
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*Draft) error) (Draft, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if err := fn(&d); err != nil {
		var incomplete *StepIncompleteError
		if errors.As(err, &incomplete) || errors.Is(err, ErrWrongStep) || errors.Is(err, ErrDraftConfirmed) {
			return d, err
		}
		return Draft{}, err
	}
	d.UpdatedAt = s.now().UTC()
	if err := s.drafts.Save(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

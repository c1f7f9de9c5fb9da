package records

import (
	"strings"
	"time"
)

// Table names a record collection in the backend.
type Table string

const (
	TableAppointments    Table = "appointments"
	TableContactMessages Table = "contact_messages"
)

// AppointmentStatus is the lifecycle state of an appointment request.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

// AppointmentStatuses lists every valid status in display order.
var AppointmentStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusCancelled,
	StatusCompleted,
	StatusNoShow,
}

// Valid reports whether s is one of the enumerated statuses.
func (s AppointmentStatus) Valid() bool {
	for _, v := range AppointmentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ContactStatus is the triage state of a contact message.
type ContactStatus string

const (
	ContactNew      ContactStatus = "new"
	ContactRead     ContactStatus = "read"
	ContactReplied  ContactStatus = "replied"
	ContactResolved ContactStatus = "resolved"
)

var ContactStatuses = []ContactStatus{ContactNew, ContactRead, ContactReplied, ContactResolved}

func (s ContactStatus) Valid() bool {
	for _, v := range ContactStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Appointment is a patient's scheduling request.
type Appointment struct {
	ID              string            `json:"id"`
	AppointmentType string            `json:"appointment_type"`
	PreferredDate   string            `json:"preferred_date"`
	PhoneNumber     string            `json:"phone_number"`
	PatientName     *string           `json:"patient_name"`
	Doctor          *string           `json:"doctor,omitempty"`
	TimeSlot        *string           `json:"time_slot,omitempty"`
	Email           *string           `json:"email,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	Status          AppointmentStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NameOr returns the patient name, or fallback when none was given.
func (a Appointment) NameOr(fallback string) string {
	if a.PatientName == nil || strings.TrimSpace(*a.PatientName) == "" {
		return fallback
	}
	return *a.PatientName
}

// AppointmentInput carries the fields a patient submits.
type AppointmentInput struct {
	AppointmentType string `json:"appointment_type"`
	PreferredDate   string `json:"preferred_date"`
	PhoneNumber     string `json:"phone_number"`
	PatientName     string `json:"patient_name"`
	Doctor          string `json:"doctor,omitempty"`
	TimeSlot        string `json:"time_slot,omitempty"`
	Email           string `json:"email,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// ContactMessage is an inquiry left through the contact form.
type ContactMessage struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	Subject   string        `json:"subject"`
	Message   string        `json:"message"`
	Location  *string       `json:"location"`
	Status    ContactStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ContactInput carries the fields a visitor submits.
type ContactInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

// DefaultContactSubject is stored when the visitor leaves the subject blank.
const DefaultContactSubject = "General Inquiry"

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

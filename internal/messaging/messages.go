package messaging

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/messaging/templates"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
)

const (
	tmplAdminAlert   = "admin_alert"
	tmplContactAlert = "contact_alert"
	tmplConfirmed    = "status_confirmed"
	tmplCancelled    = "status_cancelled"
	tmplCompleted    = "status_completed"
	tmplQuick        = "quick_message"
	tmplThanks       = "booking_thanks"
)

var defaultTemplates = map[string]string{
	tmplAdminAlert: `🚨 NEW APPOINTMENT ALERT 🚨

Patient: {{.Patient}}
Phone: {{.Phone}}
Type: {{.Type}}
Preferred Date: {{.Date}}
Status: PENDING ⏳

Booked: {{.Booked}}

👆 Click to manage this appointment in admin dashboard.

Quick Actions:
• Call patient: {{.Phone}}
• Confirm appointment
• Send confirmation message

Admin Dashboard: {{.Dashboard}}`,

	tmplContactAlert: `📩 NEW CONTACT MESSAGE

From: {{.Patient}}
Phone: {{.Phone}}
Email: {{.Email}}
Subject: {{.Subject}}

{{.Message}}

Admin Dashboard: {{.Dashboard}}`,

	tmplConfirmed: `Hi {{.Patient}}, your appointment for {{.Type}} on {{.Date}} has been CONFIRMED. Please arrive 15 minutes early. Contact: {{.Clinic}}`,
	tmplCancelled: `Hi {{.Patient}}, your appointment for {{.Type}} on {{.Date}} has been CANCELLED. Please call us to reschedule. Contact: {{.Clinic}}`,
	tmplCompleted: `Hi {{.Patient}}, thank you for visiting us today. Please follow the prescribed treatment and contact us if you have any concerns. Contact: {{.Clinic}}`,
	tmplQuick:     `Hi {{.Patient}}, this is regarding your appointment for {{.Type}} on {{.Date}}. Please let us know if you need any assistance.`,
	tmplThanks:    `Hi {{.Patient}}, thank you for booking an appointment with us. We will confirm your appointment shortly.`,
}

type messageData struct {
	Patient   string
	Phone     string
	Email     string
	Type      string
	Date      string
	Subject   string
	Message   string
	Booked    string
	Clinic    string
	Dashboard string
}

// Composer renders the clinic's outbound message texts.
type Composer struct {
	set       *templates.Set
	clinic    string
	dashboard string
	loc       *time.Location
}

// NewComposer builds a composer. baseURL is the public site origin; the
// admin dashboard lives at baseURL + "/admin".
func NewComposer(clinicContact, baseURL string, loc *time.Location) (*Composer, error) {
	set, err := templates.NewSet(defaultTemplates)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	if clinicContact == "" {
		clinicContact = "+91 98765 43210"
	}
	return &Composer{
		set:       set,
		clinic:    clinicContact,
		dashboard: strings.TrimRight(baseURL, "/") + "/admin",
		loc:       loc,
	}, nil
}

// AdminAlert is the WhatsApp text sent to the admin for a new booking.
func (c *Composer) AdminAlert(a records.Appointment, booked time.Time) (string, error) {
	return c.set.Render(tmplAdminAlert, messageData{
		Patient:   a.NameOr("Anonymous Patient"),
		Phone:     a.PhoneNumber,
		Type:      a.AppointmentType,
		Date:      a.PreferredDate,
		Booked:    booked.In(c.loc).Format("2 Jan 2006, 3:04:05 PM"),
		Dashboard: c.dashboard,
	})
}

// ContactAlert is the WhatsApp text sent to the admin for a new inquiry.
func (c *Composer) ContactAlert(m records.ContactMessage) (string, error) {
	return c.set.Render(tmplContactAlert, messageData{
		Patient:   m.Name,
		Phone:     m.Phone,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Message,
		Dashboard: c.dashboard,
	})
}

// StatusUpdate renders the patient message for a status change. ok is false
// for statuses that have no canned message.
func (c *Composer) StatusUpdate(a records.Appointment, status records.AppointmentStatus) (msg string, ok bool, err error) {
	var name string
	switch status {
	case records.StatusConfirmed:
		name = tmplConfirmed
	case records.StatusCancelled:
		name = tmplCancelled
	case records.StatusCompleted:
		name = tmplCompleted
	default:
		return "", false, nil
	}
	msg, err = c.set.Render(name, c.patientData(a, "Patient"))
	if err != nil {
		return "", false, err
	}
	return msg, true, nil
}

// QuickMessage is the generic "regarding your appointment" text.
func (c *Composer) QuickMessage(a records.Appointment) (string, error) {
	return c.set.Render(tmplQuick, c.patientData(a, "there"))
}

// BookingThanks acknowledges a new booking to the patient.
func (c *Composer) BookingThanks(a records.Appointment) (string, error) {
	return c.set.Render(tmplThanks, c.patientData(a, "there"))
}

// PlatformAlert returns the title, body and de-duplication tag of the
// browser notification for a new booking.
func (c *Composer) PlatformAlert(a records.Appointment) (title, body, tag string) {
	body = fmt.Sprintf("%s booked %s for %s", a.NameOr("Anonymous"), a.AppointmentType, a.PreferredDate)
	return "New Appointment Booking!", body, "appointment-" + a.ID
}

func (c *Composer) patientData(a records.Appointment, fallback string) messageData {
	return messageData{
		Patient: a.NameOr(fallback),
		Phone:   a.PhoneNumber,
		Type:    a.AppointmentType,
		Date:    a.PreferredDate,
		Clinic:  c.clinic,
	}
}

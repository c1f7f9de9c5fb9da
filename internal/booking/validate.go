package booking

import (
	"strings"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/records"
)

const (
	MsgFutureDate = "Please select a future date"
	MsgShortPhone = "Please enter a valid phone number (minimum 10 digits)"
	MsgBadDate    = "Please select a valid date"

	minPhoneLength = 10
)

// Form is the single-submit appointment request.
type Form struct {
	AppointmentType string `json:"appointment_type"`
	PreferredDate   string `json:"preferred_date"`
	PhoneNumber     string `json:"phone_number"`
	PatientName     string `json:"patient_name"`
}

// Validate returns every problem with f in display order. Dates are compared
// at day granularity in now's location, so today is still bookable.
func Validate(f Form, now time.Time) []string {
	var problems []string
	if strings.TrimSpace(f.AppointmentType) == "" {
		problems = append(problems, records.MsgMissingType)
	}
	if strings.TrimSpace(f.PreferredDate) == "" {
		problems = append(problems, records.MsgMissingDate)
	}
	if strings.TrimSpace(f.PhoneNumber) == "" {
		problems = append(problems, records.MsgMissingPhone)
	} else if len(f.PhoneNumber) < minPhoneLength {
		// Raw length, not digit count: "+91 98765" passes the same way it
		// does on the site.
		problems = append(problems, MsgShortPhone)
	}
	if date := strings.TrimSpace(f.PreferredDate); date != "" {
		d, err := time.ParseInLocation(time.DateOnly, date, now.Location())
		switch {
		case err != nil:
			problems = append(problems, MsgBadDate)
		case d.Before(startOfDay(now)):
			problems = append(problems, MsgFutureDate)
		}
	}
	return problems
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// input carries the submitted values through unchanged. Only the date, which
// Validate has already parsed, loses surrounding blanks; a blank name is
// stored as NULL by the gateway.
func (f Form) input() records.AppointmentInput {
	return records.AppointmentInput{
		AppointmentType: f.AppointmentType,
		PreferredDate:   strings.TrimSpace(f.PreferredDate),
		PhoneNumber:     f.PhoneNumber,
		PatientName:     f.PatientName,
	}
}

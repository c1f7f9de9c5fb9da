package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/records"
)

// Step is a position in the booking wizard.
type Step string

const (
	StepTypeSelection   Step = "type_selection"
	StepDoctorTime      Step = "doctor_time_selection"
	StepPersonalDetails Step = "personal_details"
	StepConfirmed       Step = "confirmed"
)

var stepOrder = []Step{StepTypeSelection, StepDoctorTime, StepPersonalDetails, StepConfirmed}

// Number is the 1-based position shown as "Step n of 3".
func (s Step) Number() int {
	for i, v := range stepOrder {
		if v == s {
			return i + 1
		}
	}
	return 0
}

// Draft is the wizard state persisted between requests.
type Draft struct {
	ID                string    `json:"id"`
	Step              Step      `json:"step"`
	AppointmentType   string    `json:"appointment_type"`
	Doctor            string    `json:"doctor"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	Age               string    `json:"age,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	Address           string    `json:"address,omitempty"`
	Symptoms          string    `json:"symptoms,omitempty"`
	PreviousTreatment bool      `json:"previous_treatment"`
	EmergencyContact  string    `json:"emergency_contact,omitempty"`
	Insurance         string    `json:"insurance,omitempty"`
	Feedback          *Feedback `json:"feedback,omitempty"`
	AppointmentID     string    `json:"appointment_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DraftPatch carries the fields a client wants to change. Nil fields are
// left alone.
type DraftPatch struct {
	AppointmentType   *string `json:"appointment_type"`
	Doctor            *string `json:"doctor"`
	Date              *string `json:"date"`
	Time              *string `json:"time"`
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	Age               *string `json:"age"`
	Gender            *string `json:"gender"`
	Address           *string `json:"address"`
	Symptoms          *string `json:"symptoms"`
	PreviousTreatment *bool   `json:"previous_treatment"`
	EmergencyContact  *string `json:"emergency_contact"`
	Insurance         *string `json:"insurance"`
}

// Apply merges p into d. Confirmed drafts are immutable.
func (d *Draft) Apply(p DraftPatch) error {
	if d.Step == StepConfirmed {
		return ErrDraftConfirmed
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&d.AppointmentType, p.AppointmentType)
	set(&d.Doctor, p.Doctor)
	set(&d.Date, p.Date)
	set(&d.Time, p.Time)
	set(&d.FirstName, p.FirstName)
	set(&d.LastName, p.LastName)
	set(&d.Email, p.Email)
	set(&d.Phone, p.Phone)
	set(&d.Age, p.Age)
	set(&d.Gender, p.Gender)
	set(&d.Address, p.Address)
	set(&d.Symptoms, p.Symptoms)
	set(&d.EmergencyContact, p.EmergencyContact)
	set(&d.Insurance, p.Insurance)
	if p.PreviousTreatment != nil {
		d.PreviousTreatment = *p.PreviousTreatment
	}
	return nil
}

// Missing lists the required fields of the current step that are blank.
func (d *Draft) Missing() []string {
	var missing []string
	need := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	switch d.Step {
	case StepTypeSelection:
		need("appointment_type", d.AppointmentType)
	case StepDoctorTime:
		need("doctor", d.Doctor)
		need("date", d.Date)
		need("time", d.Time)
	case StepPersonalDetails:
		need("first_name", d.FirstName)
		need("last_name", d.LastName)
		need("email", d.Email)
		need("phone", d.Phone)
	}
	return missing
}

// Next advances one step once the current step is complete. The last step
// before confirmation is left only through submission.
func (d *Draft) Next() error {
	switch d.Step {
	case StepTypeSelection, StepDoctorTime:
	case StepConfirmed:
		return ErrDraftConfirmed
	default:
		return ErrWrongStep
	}
	if missing := d.Missing(); len(missing) > 0 {
		return &StepIncompleteError{Step: d.Step, Missing: missing}
	}
	d.Step = stepOrder[d.Step.Number()]
	d.Feedback = nil
	return nil
}

// Previous goes back one step. It is a no-op on the first step.
func (d *Draft) Previous() error {
	switch d.Step {
	case StepConfirmed:
		return ErrDraftConfirmed
	case StepTypeSelection:
		return nil
	}
	if d.Step.Number() < 2 {
		return ErrWrongStep
	}
	d.Step = stepOrder[d.Step.Number()-2]
	d.Feedback = nil
	return nil
}

// PatientName joins first and last name.
func (d *Draft) PatientName() string {
	return strings.TrimSpace(strings.TrimSpace(d.FirstName) + " " + strings.TrimSpace(d.LastName))
}

// form projects the draft onto the single-submit form for shared validation.
func (d *Draft) form(c Catalog) Form {
	return Form{
		AppointmentType: c.TypeName(d.AppointmentType),
		PreferredDate:   d.Date,
		PhoneNumber:     d.Phone,
		PatientName:     d.PatientName(),
	}
}

func (d *Draft) input(c Catalog) records.AppointmentInput {
	in := d.form(c).input()
	in.Doctor = d.Doctor
	if doc, ok := c.Doctor(d.Doctor); ok {
		in.Doctor = doc.Name
	}
	in.TimeSlot = strings.TrimSpace(d.Time)
	in.Email = strings.TrimSpace(d.Email)
	in.Notes = d.notes()
	return in
}

// notes folds the optional intake fields into one free-text note.
func (d *Draft) notes() string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", label, v))
		}
	}
	add("Age", d.Age)
	add("Gender", d.Gender)
	add("Address", d.Address)
	add("Symptoms", d.Symptoms)
	if d.PreviousTreatment {
		lines = append(lines, "Previous treatment: yes")
	}
	add("Emergency contact", d.EmergencyContact)
	add("Insurance", d.Insurance)
	return strings.Join(lines, "\n")
}

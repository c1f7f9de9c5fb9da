package records

import (
	"fmt"
	"time"
)

type columnKind int

const (
	colID columnKind = iota
	colText
	colNullText
	colTime
)

type column struct {
	name string
	kind columnKind
}

var appointmentColumns = []column{
	{"id", colID},
	{"appointment_type", colText},
	{"preferred_date", colText},
	{"phone_number", colText},
	{"patient_name", colNullText},
	{"doctor", colNullText},
	{"time_slot", colNullText},
	{"email", colNullText},
	{"notes", colNullText},
	{"status", colText},
	{"created_at", colTime},
	{"updated_at", colTime},
}

var contactColumns = []column{
	{"id", colID},
	{"name", colText},
	{"email", colText},
	{"phone", colText},
	{"subject", colText},
	{"message", colText},
	{"location", colNullText},
	{"status", colText},
	{"created_at", colTime},
	{"updated_at", colTime},
}

func schemaFor(table Table) ([]column, error) {
	switch table {
	case TableAppointments:
		return appointmentColumns, nil
	case TableContactMessages:
		return contactColumns, nil
	default:
		return nil, fmt.Errorf("records: %w: %q", ErrUnknownTable, table)
	}
}

func lookupColumn(table Table, name string) (column, error) {
	cols, err := schemaFor(table)
	if err != nil {
		return column{}, err
	}
	for _, c := range cols {
		if c.name == name {
			return c, nil
		}
	}
	return column{}, fmt.Errorf("records: %w: %s.%s", ErrUnknownColumn, table, name)
}

func appointmentRow(in AppointmentInput, status AppointmentStatus) Row {
	return Row{
		"appointment_type": in.AppointmentType,
		"preferred_date":   in.PreferredDate,
		"phone_number":     in.PhoneNumber,
		"patient_name":     nullable(in.PatientName),
		"doctor":           nullable(in.Doctor),
		"time_slot":        nullable(in.TimeSlot),
		"email":            nullable(in.Email),
		"notes":            nullable(in.Notes),
		"status":           string(status),
	}
}

func contactRow(in ContactInput, status ContactStatus) Row {
	subject := in.Subject
	if subject == "" {
		subject = DefaultContactSubject
	}
	return Row{
		"name":     in.Name,
		"email":    in.Email,
		"phone":    in.Phone,
		"subject":  subject,
		"message":  in.Message,
		"location": nullable(in.Location),
		"status":   string(status),
	}
}

// AppointmentFromRow decodes a backend row. Timestamps may arrive as
// time.Time or as RFC 3339 strings from JSON transports.
func AppointmentFromRow(r Row) (Appointment, error) {
	var (
		a   Appointment
		err error
	)
	a.ID = rowString(r, "id")
	a.AppointmentType = rowString(r, "appointment_type")
	a.PreferredDate = rowString(r, "preferred_date")
	a.PhoneNumber = rowString(r, "phone_number")
	a.PatientName = rowOptString(r, "patient_name")
	a.Doctor = rowOptString(r, "doctor")
	a.TimeSlot = rowOptString(r, "time_slot")
	a.Email = rowOptString(r, "email")
	a.Notes = rowOptString(r, "notes")
	a.Status = AppointmentStatus(rowString(r, "status"))
	if a.CreatedAt, err = rowTime(r, "created_at"); err != nil {
		return Appointment{}, err
	}
	if a.UpdatedAt, err = rowTime(r, "updated_at"); err != nil {
		return Appointment{}, err
	}
	return a, nil
}

// ContactFromRow decodes a contact_messages row.
func ContactFromRow(r Row) (ContactMessage, error) {
	var (
		m   ContactMessage
		err error
	)
	m.ID = rowString(r, "id")
	m.Name = rowString(r, "name")
	m.Email = rowString(r, "email")
	m.Phone = rowString(r, "phone")
	m.Subject = rowString(r, "subject")
	m.Message = rowString(r, "message")
	m.Location = rowOptString(r, "location")
	m.Status = ContactStatus(rowString(r, "status"))
	if m.CreatedAt, err = rowTime(r, "created_at"); err != nil {
		return ContactMessage{}, err
	}
	if m.UpdatedAt, err = rowTime(r, "updated_at"); err != nil {
		return ContactMessage{}, err
	}
	return m, nil
}

func nullable(s string) any {
	if p := optional(s); p != nil {
		return *p
	}
	return nil
}

func rowString(r Row, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

func rowOptString(r Row, key string) *string {
	switch v := r[key].(type) {
	case string:
		return &v
	case *string:
		if v != nil {
			s := *v
			return &s
		}
	}
	return nil
}

func rowTime(r Row, key string) (time.Time, error) {
	switch v := r[key].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			// PostgREST omits the zone colon on some deployments.
			if t2, err2 := time.Parse("2006-01-02T15:04:05.999999-07", v); err2 == nil {
				return t2, nil
			}
			return time.Time{}, fmt.Errorf("records: parse %s: %w", key, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("records: unexpected %s type %T", key, v)
	}
}

// compareValues orders two column values of the same kind.
func compareValues(a, b any) int {
	ta, aok := a.(time.Time)
	tb, bok := b.(time.Time)
	if aok && bok {
		return ta.Compare(tb)
	}
	sa, sb := valueString(a), valueString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

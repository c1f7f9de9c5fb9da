package admin

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/records"
)

// DateRange narrows the board to preferred dates around today.
type DateRange string

const (
	DateAll   DateRange = "all"
	DateToday DateRange = "today"
	DateWeek  DateRange = "week"
	DateMonth DateRange = "month"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// Filter is the board's view selection. The zero value matches everything.
type Filter struct {
	Search string    `json:"search,omitempty"`
	Status string    `json:"status,omitempty"`
	Date   DateRange `json:"date,omitempty"`
}

// ParseFilter builds a Filter from query values, rejecting unknown status or
// date range names.
func ParseFilter(search, status, date string) (Filter, error) {
	f := Filter{
		Search: strings.TrimSpace(search),
		Status: strings.ToLower(strings.TrimSpace(status)),
		Date:   DateRange(strings.ToLower(strings.TrimSpace(date))),
	}
	if f.Status != "" && f.Status != StatusAll && !records.AppointmentStatus(f.Status).Valid() {
		return Filter{}, fmt.Errorf("%w: status %q", ErrUnknownFilter, status)
	}
	switch f.Date {
	case "", DateAll, DateToday, DateWeek, DateMonth:
	default:
		return Filter{}, fmt.Errorf("%w: date %q", ErrUnknownFilter, date)
	}
	return f, nil
}

func (f Filter) String() string {
	var parts []string
	if f.Search != "" {
		parts = append(parts, "search="+f.Search)
	}
	if f.Status != "" && f.Status != StatusAll {
		parts = append(parts, "status="+f.Status)
	}
	if f.Date != "" && f.Date != DateAll {
		parts = append(parts, "date="+string(f.Date))
	}
	return strings.Join(parts, "&")
}

// Apply returns the appointments matching every part of f, in their
// original order. now fixes "today" for the date range; its location is the
// clinic's. The input slice is not modified.
func Apply(list []records.Appointment, f Filter, now time.Time) []records.Appointment {
	today := dayOf(now, now.Location())
	search := strings.ToLower(f.Search)

	out := make([]records.Appointment, 0, len(list))
	for _, a := range list {
		if !matchesSearch(a, f.Search, search) {
			continue
		}
		if f.Status != "" && f.Status != StatusAll && string(a.Status) != f.Status {
			continue
		}
		if !matchesDate(a, f.Date, today, now.Location()) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchesSearch(a records.Appointment, raw, lower string) bool {
	if raw == "" {
		return true
	}
	if a.PatientName != nil && strings.Contains(strings.ToLower(*a.PatientName), lower) {
		return true
	}
	if strings.Contains(a.PhoneNumber, raw) {
		return true
	}
	return strings.Contains(strings.ToLower(a.AppointmentType), lower)
}

func matchesDate(a records.Appointment, r DateRange, today time.Time, loc *time.Location) bool {
	var span int
	switch r {
	case "", DateAll:
		return true
	case DateToday:
		span = 0
	case DateWeek:
		span = 7
	case DateMonth:
		span = 30
	default:
		return false
	}
	d, err := time.ParseInLocation("2006-01-02", a.PreferredDate, loc)
	if err != nil {
		return false
	}
	return !d.Before(today) && !d.After(today.AddDate(0, 0, span))
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

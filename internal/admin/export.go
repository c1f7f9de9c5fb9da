package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/archive"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
)

// CSVHeader is the fixed first row of every export.
var CSVHeader = []string{"Date Created", "Patient Name", "Phone", "Appointment Type", "Preferred Date", "Status"}

// Archiver keeps a copy of each export. *archive.Store implements it.
type Archiver interface {
	ArchiveExport(ctx context.Context, exp archive.Export) (string, error)
}

// WriteCSV writes list as CSV. Creation dates are rendered as D/M/YYYY in
// loc; a missing patient name is written as N/A. Fields containing commas
// or quotes are quoted.
func WriteCSV(w io.Writer, list []records.Appointment, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("admin: write csv header: %w", err)
	}
	for _, a := range list {
		row := []string{
			a.CreatedAt.In(loc).Format("2/1/2006"),
			a.NameOr("N/A"),
			a.PhoneNumber,
			a.AppointmentType,
			a.PreferredDate,
			string(a.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("admin: write csv row %s: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names an export taken at now, using the UTC calendar date.
func ExportFilename(now time.Time) string {
	return "appointments_" + now.UTC().Format("2006-01-02") + ".csv"
}

// RenderExport builds the CSV body for list.
func RenderExport(list []records.Appointment, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, list, loc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

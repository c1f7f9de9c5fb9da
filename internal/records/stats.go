package records

import (
	"context"
	"time"
)

// Stats summarizes appointments by status plus those created today.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	NoShow    int `json:"no_show"`
	Today     int `json:"today"`
}

// AppointmentStats aggregates over a full fetch. It is linear in the table
// size and only suitable for small clinics.
func (g *Gateway) AppointmentStats(ctx context.Context) (res Result[Stats]) {
	defer g.recoverInto(&res, "appointment stats")

	rows, err := g.backend.Select(ctx, TableAppointments, Query{Columns: []string{"status", "created_at"}})
	if err != nil {
		g.metrics.ObserveBackendError("select")
		g.logger.Error("records: stats fetch failed", "error", err)
		return Fail[Stats](err.Error())
	}

	now := g.clock.Now().In(g.loc)
	var s Stats
	for _, row := range rows {
		s.Total++
		switch AppointmentStatus(rowString(row, "status")) {
		case StatusPending:
			s.Pending++
		case StatusConfirmed:
			s.Confirmed++
		case StatusCompleted:
			s.Completed++
		case StatusCancelled:
			s.Cancelled++
		case StatusNoShow:
			s.NoShow++
		}
		created, err := rowTime(row, "created_at")
		if err == nil && sameDay(created.In(g.loc), now) {
			s.Today++
		}
	}
	return OK(s)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

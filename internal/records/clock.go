package records

import (
	"sync"
	"time"
)

// Stamper hands out strictly increasing timestamps at microsecond precision,
// the resolution Postgres keeps, so successive mutations never tie.
type Stamper struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewStamper creates a stamper over now; nil means time.Now.
func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

// Stamp returns the next timestamp in UTC.
func (s *Stamper) Stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Now returns the wall clock without advancing the stamp sequence.
func (s *Stamper) Now() time.Time {
	return s.now()
}

package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// MemoryBackend keeps both tables in process. It backs local development
// and tests, and implements the same contract as the hosted backends
// including the change feed.
type MemoryBackend struct {
	mu     sync.RWMutex
	tables map[Table]map[string]Row
	clock  *Stamper
	feed   *LocalFeed
}

// NewMemoryBackend returns an empty store. clock may be nil.
func NewMemoryBackend(logger *logging.Logger, clock *Stamper) *MemoryBackend {
	if clock == nil {
		clock = NewStamper(nil)
	}
	return &MemoryBackend{
		tables: map[Table]map[string]Row{
			TableAppointments:    {},
			TableContactMessages: {},
		},
		clock: clock,
		feed:  NewLocalFeed(logger),
	}
}

func (m *MemoryBackend) Insert(ctx context.Context, table Table, row Row) (Row, error) {
	if err := checkColumns(table, row); err != nil {
		return nil, err
	}
	stored := row.Clone()
	stored["id"] = uuid.NewString()
	now := m.clock.Stamp()
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = now
	}
	if _, ok := stored["updated_at"]; !ok {
		stored["updated_at"] = now
	}

	m.mu.Lock()
	m.tables[table][stored["id"].(string)] = stored
	m.mu.Unlock()

	_ = m.feed.Publish(ctx, ChangeEvent{Type: EventInsert, Table: table, New: stored.Clone(), CommitTime: now})
	return stored.Clone(), nil
}

func (m *MemoryBackend) Select(_ context.Context, table Table, q Query) ([]Row, error) {
	if _, err := schemaFor(table); err != nil {
		return nil, err
	}
	for _, f := range q.Filters {
		if _, err := lookupColumn(table, f.Column); err != nil {
			return nil, err
		}
	}
	if q.Order != nil {
		if _, err := lookupColumn(table, q.Order.Column); err != nil {
			return nil, err
		}
	}
	for _, c := range q.Columns {
		if _, err := lookupColumn(table, c); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	out := make([]Row, 0, len(m.tables[table]))
	for _, row := range m.tables[table] {
		if matches(row, q.Filters) {
			out = append(out, project(row, q.Columns))
		}
	}
	m.mu.RUnlock()

	if q.Order != nil {
		col, asc := q.Order.Column, q.Order.Ascending
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][col], out[j][col])
			if asc {
				return c < 0
			}
			return c > 0
		})
	}
	return out, nil
}

func (m *MemoryBackend) Update(ctx context.Context, table Table, id string, patch Row) (Row, error) {
	if err := checkColumns(table, patch); err != nil {
		return nil, err
	}
	m.mu.Lock()
	row, ok := m.tables[table][id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("records: update %s %s: %w", table, id, ErrNotFound)
	}
	old := row.Clone()
	updated := row.Clone()
	for k, v := range patch {
		if k == "id" || k == "created_at" {
			continue
		}
		updated[k] = v
	}
	if _, ok := patch["updated_at"]; !ok {
		updated["updated_at"] = m.clock.Stamp()
	}
	updated["updated_at"] = notBefore(updated["updated_at"], old["updated_at"])
	m.tables[table][id] = updated
	m.mu.Unlock()

	_ = m.feed.Publish(ctx, ChangeEvent{Type: EventUpdate, Table: table, New: updated.Clone(), Old: old, CommitTime: m.clock.Now()})
	return updated.Clone(), nil
}

func (m *MemoryBackend) Delete(ctx context.Context, table Table, id string) error {
	if _, err := schemaFor(table); err != nil {
		return err
	}
	m.mu.Lock()
	row, ok := m.tables[table][id]
	if ok {
		delete(m.tables[table], id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("records: delete %s %s: %w", table, id, ErrNotFound)
	}
	_ = m.feed.Publish(ctx, ChangeEvent{Type: EventDelete, Table: table, Old: row, CommitTime: m.clock.Now()})
	return nil
}

func (m *MemoryBackend) Subscribe(ctx context.Context, table Table, fn func(ChangeEvent)) (Subscription, error) {
	return m.feed.Subscribe(ctx, table, fn)
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Feed exposes the in-process change feed.
func (m *MemoryBackend) Feed() *LocalFeed { return m.feed }

func checkColumns(table Table, row Row) error {
	for k := range row {
		if _, err := lookupColumn(table, k); err != nil {
			return err
		}
	}
	return nil
}

func matches(row Row, filters []Filter) bool {
	for _, f := range filters {
		c := compareValues(row[f.Column], f.Value)
		switch f.Op {
		case OpEq:
			if valueString(row[f.Column]) != f.Value {
				return false
			}
		case OpGte:
			if c < 0 {
				return false
			}
		case OpLte:
			if c > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func project(row Row, cols []string) Row {
	if len(cols) == 0 {
		return row.Clone()
	}
	out := make(Row, len(cols))
	for _, c := range cols {
		out[c] = row[c]
	}
	return out
}

// notBefore mirrors the GREATEST guard of the SQL backend: a stamp that does
// not pass prev is moved to one microsecond after it.
func notBefore(next, prev any) any {
	n, ok1 := next.(time.Time)
	p, ok2 := prev.(time.Time)
	if !ok1 || !ok2 || n.After(p) {
		return next
	}
	return p.Add(time.Microsecond)
}

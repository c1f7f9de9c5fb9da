package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// restClient is the PostgREST surface used here; *supa.Client and
// *postgrest.Client both satisfy it.
type restClient interface {
	From(table string) *postgrest.QueryBuilder
}

// SupabaseBackend talks to a hosted Supabase project over PostgREST. The
// REST API has no change stream of its own, so every successful write is
// announced on the Redis feed that all replicas subscribe to.
type SupabaseBackend struct {
	rest   restClient
	feed   *RedisFeed
	logger *logging.Logger
}

// NewSupabaseClient builds the hosted client for url and key.
func NewSupabaseClient(url, key string) (*supa.Client, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("records: supabase client: %w", err)
	}
	return client, nil
}

func NewSupabaseBackend(rest restClient, feed *RedisFeed, logger *logging.Logger) *SupabaseBackend {
	if logger == nil {
		logger = logging.Default()
	}
	return &SupabaseBackend{rest: rest, feed: feed, logger: logger}
}

func (s *SupabaseBackend) Insert(ctx context.Context, table Table, row Row) (Row, error) {
	if err := checkColumns(table, row); err != nil {
		return nil, err
	}
	payload := row.Clone()
	payload["id"] = uuid.NewString()

	data, _, err := s.rest.From(string(table)).
		Insert(payload, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("records: insert %s: %w", table, err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("records: insert %s: empty representation", table)
	}
	s.announce(ctx, ChangeEvent{Type: EventInsert, Table: table, New: rows[0]})
	return rows[0], nil
}

func (s *SupabaseBackend) Select(_ context.Context, table Table, q Query) ([]Row, error) {
	if _, err := schemaFor(table); err != nil {
		return nil, err
	}
	columns := "*"
	if len(q.Columns) > 0 {
		for _, c := range q.Columns {
			if _, err := lookupColumn(table, c); err != nil {
				return nil, err
			}
		}
		columns = strings.Join(q.Columns, ",")
	}

	query := s.rest.From(string(table)).Select(columns, "", false)
	// PostgREST filters are keyed by column in the builder, so only the first
	// filter per column goes to the server and the rest are applied here.
	applied := make(map[string]bool, len(q.Filters))
	var local []Filter
	for _, f := range q.Filters {
		if _, err := lookupColumn(table, f.Column); err != nil {
			return nil, err
		}
		if applied[f.Column] {
			local = append(local, f)
			continue
		}
		applied[f.Column] = true
		switch f.Op {
		case OpEq:
			query = query.Eq(f.Column, f.Value)
		case OpGte:
			query = query.Gte(f.Column, f.Value)
		case OpLte:
			query = query.Lte(f.Column, f.Value)
		default:
			return nil, fmt.Errorf("records: unsupported filter op %q", f.Op)
		}
	}
	if q.Order != nil {
		if _, err := lookupColumn(table, q.Order.Column); err != nil {
			return nil, err
		}
		query = query.Order(q.Order.Column, &postgrest.OrderOpts{Ascending: q.Order.Ascending})
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("records: select %s: %w", table, err)
	}
	rows, err := decodeRows(data)
	if err != nil || len(local) == 0 {
		return rows, err
	}
	out := rows[:0]
	for _, row := range rows {
		if matches(row, local) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *SupabaseBackend) Update(ctx context.Context, table Table, id string, patch Row) (Row, error) {
	if err := checkColumns(table, patch); err != nil {
		return nil, err
	}
	body := make(map[string]any, len(patch))
	for k, v := range patch {
		if k == "id" || k == "created_at" {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339Nano)
		}
		body[k] = v
	}

	data, _, err := s.rest.From(string(table)).
		Update(body, "representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("records: update %s: %w", table, err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("records: update %s %s: %w", table, id, ErrNotFound)
	}
	s.announce(ctx, ChangeEvent{Type: EventUpdate, Table: table, New: rows[0]})
	return rows[0], nil
}

func (s *SupabaseBackend) Delete(ctx context.Context, table Table, id string) error {
	if _, err := schemaFor(table); err != nil {
		return err
	}
	data, _, err := s.rest.From(string(table)).
		Delete("representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("records: delete %s: %w", table, err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("records: delete %s %s: %w", table, id, ErrNotFound)
	}
	s.announce(ctx, ChangeEvent{Type: EventDelete, Table: table, Old: rows[0]})
	return nil
}

func (s *SupabaseBackend) Subscribe(ctx context.Context, table Table, fn func(ChangeEvent)) (Subscription, error) {
	if s.feed == nil {
		return nil, ErrSubscriptionsUnavailable
	}
	return s.feed.Subscribe(ctx, table, fn)
}

// Ping issues a one-row select against appointments.
func (s *SupabaseBackend) Ping(context.Context) error {
	_, _, err := s.rest.From(string(TableAppointments)).
		Select("id", "", false).
		Limit(1, "").
		Execute()
	if err != nil {
		return fmt.Errorf("records: supabase ping: %w", err)
	}
	return nil
}

func (s *SupabaseBackend) announce(ctx context.Context, evt ChangeEvent) {
	if s.feed == nil {
		return
	}
	evt.CommitTime = time.Now().UTC()
	if err := s.feed.Publish(ctx, evt); err != nil {
		s.logger.Warn("records: change announcement failed", "table", evt.Table, "event", evt.Type, "error", err)
	}
}

func decodeRows(data []byte) ([]Row, error) {
	var rows []Row
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("records: decode rows: %w", err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

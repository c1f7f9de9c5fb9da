package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresBackend stores records in Postgres through pgx. Change events come
// from the notify trigger installed by the migrations and are delivered by
// the Subscriber passed to NewPostgresBackend.
type PostgresBackend struct {
	db   pgQuerier
	feed Subscriber
}

// NewPostgresBackend wraps pool. feed may be nil, in which case Subscribe
// reports ErrSubscriptionsUnavailable.
func NewPostgresBackend(pool *pgxpool.Pool, feed Subscriber) *PostgresBackend {
	if pool == nil {
		panic("records: pgx pool required")
	}
	return &PostgresBackend{db: pool, feed: feed}
}

func newPostgresBackendWithDB(db pgQuerier, feed Subscriber) *PostgresBackend {
	return &PostgresBackend{db: db, feed: feed}
}

func (p *PostgresBackend) Insert(ctx context.Context, table Table, row Row) (Row, error) {
	cols, err := schemaFor(table)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(table, row); err != nil {
		return nil, err
	}

	names := []string{"id"}
	args := []any{uuid.New()}
	for _, k := range sortedKeys(row) {
		if k == "id" {
			continue
		}
		names = append(names, k)
		args = append(args, row[k])
	}
	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "), selectList(cols, nil))
	out, err := scanRow(p.db.QueryRow(ctx, sql, args...), cols, nil)
	if err != nil {
		return nil, fmt.Errorf("records: insert %s: %w", table, err)
	}
	return out, nil
}

func (p *PostgresBackend) Select(ctx context.Context, table Table, q Query) ([]Row, error) {
	cols, err := schemaFor(table)
	if err != nil {
		return nil, err
	}
	for _, c := range q.Columns {
		if _, err := lookupColumn(table, c); err != nil {
			return nil, err
		}
	}

	var (
		where []string
		args  []any
	)
	for _, f := range q.Filters {
		col, err := lookupColumn(table, f.Column)
		if err != nil {
			return nil, err
		}
		var op string
		switch f.Op {
		case OpEq:
			op = "="
		case OpGte:
			op = ">="
		case OpLte:
			op = "<="
		default:
			return nil, fmt.Errorf("records: unsupported filter op %q", f.Op)
		}
		var value any = f.Value
		if col.kind == colID {
			id, err := uuid.Parse(f.Value)
			if err != nil {
				return []Row{}, nil
			}
			value = id
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s %s $%d", col.name, op, len(args)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectList(cols, q.Columns), table)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if q.Order != nil {
		if _, err := lookupColumn(table, q.Order.Column); err != nil {
			return nil, err
		}
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", q.Order.Column, dir)
	}

	rows, err := p.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("records: select %s: %w", table, err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		row, err := scanRow(rows, cols, q.Columns)
		if err != nil {
			return nil, fmt.Errorf("records: scan %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: select %s: %w", table, err)
	}
	return out, nil
}

func (p *PostgresBackend) Update(ctx context.Context, table Table, id string, patch Row) (Row, error) {
	cols, err := schemaFor(table)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(table, patch); err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("records: update %s %s: %w", table, id, ErrNotFound)
	}

	var (
		sets []string
		args []any
	)
	for _, k := range sortedKeys(patch) {
		if k == "id" || k == "created_at" {
			continue
		}
		args = append(args, patch[k])
		if k == "updated_at" {
			// the row was stamped by the database on insert; never step back past it
			sets = append(sets, fmt.Sprintf("updated_at = GREATEST($%d, updated_at + interval '1 microsecond')", len(args)))
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	if _, ok := patch["updated_at"]; !ok {
		sets = append(sets, "updated_at = GREATEST(now(), updated_at + interval '1 microsecond')")
	}
	args = append(args, uid)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), selectList(cols, nil))
	out, err := scanRow(p.db.QueryRow(ctx, sql, args...), cols, nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("records: update %s %s: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("records: update %s: %w", table, err)
	}
	return out, nil
}

func (p *PostgresBackend) Delete(ctx context.Context, table Table, id string) error {
	if _, err := schemaFor(table); err != nil {
		return err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("records: delete %s %s: %w", table, id, ErrNotFound)
	}
	tag, err := p.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), uid)
	if err != nil {
		return fmt.Errorf("records: delete %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("records: delete %s %s: %w", table, id, ErrNotFound)
	}
	return nil
}

func (p *PostgresBackend) Subscribe(ctx context.Context, table Table, fn func(ChangeEvent)) (Subscription, error) {
	if p.feed == nil {
		return nil, ErrSubscriptionsUnavailable
	}
	return p.feed.Subscribe(ctx, table, fn)
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.db.Ping(ctx)
}

// selectList renders the projection; ids are read back as text.
func selectList(schema []column, only []string) string {
	var parts []string
	for _, c := range projected(schema, only) {
		if c.kind == colID {
			parts = append(parts, c.name+"::text")
			continue
		}
		parts = append(parts, c.name)
	}
	return strings.Join(parts, ", ")
}

func projected(schema []column, only []string) []column {
	if len(only) == 0 {
		return schema
	}
	var out []column
	for _, c := range schema {
		for _, name := range only {
			if c.name == name {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func scanRow(r pgx.Row, schema []column, only []string) (Row, error) {
	cols := projected(schema, only)
	dests := make([]any, len(cols))
	for i, c := range cols {
		switch c.kind {
		case colID, colText:
			dests[i] = new(string)
		case colNullText:
			dests[i] = new(*string)
		case colTime:
			dests[i] = new(time.Time)
		}
	}
	if err := r.Scan(dests...); err != nil {
		return nil, err
	}
	out := make(Row, len(cols))
	for i, c := range cols {
		switch d := dests[i].(type) {
		case *string:
			out[c.name] = *d
		case **string:
			if *d == nil {
				out[c.name] = nil
			} else {
				out[c.name] = **d
			}
		case *time.Time:
			out[c.name] = d.UTC()
		}
	}
	return out, nil
}

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package records

import (
	"context"
	"time"
)

// Row is one record as the backend sees it: column name to value.
type Row map[string]any

// Clone returns a shallow copy; values are treated as immutable.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FilterOp is a comparison understood by every backend.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGte FilterOp = "gte"
	OpLte FilterOp = "lte"
)

// Filter restricts a select to rows whose column compares to Value.
type Filter struct {
	Column string
	Op     FilterOp
	Value  string
}

// Order sorts a select by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Query describes a filtered, ordered select. Empty Columns selects all.
type Query struct {
	Columns []string
	Filters []Filter
	Order   *Order
}

// EventType is the kind of change a backend reports.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one row-level change delivered by a subscription.
type ChangeEvent struct {
	Type       EventType `json:"eventType"`
	Table      Table     `json:"table"`
	New        Row       `json:"new,omitempty"`
	Old        Row       `json:"old,omitempty"`
	CommitTime time.Time `json:"commit_timestamp"`
}

// Subscription is a live change stream; Unsubscribe is safe to call twice.
type Subscription interface {
	Unsubscribe()
}

// Subscriber delivers change events for a table to fn until unsubscribed.
type Subscriber interface {
	Subscribe(ctx context.Context, table Table, fn func(ChangeEvent)) (Subscription, error)
}

// Publisher announces change events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, evt ChangeEvent) error
}

// Backend is the hosted store contract: table-level CRUD, filtered queries
// and a change stream. The gateway depends on nothing else.
type Backend interface {
	Subscriber
	Insert(ctx context.Context, table Table, row Row) (Row, error)
	Select(ctx context.Context, table Table, q Query) ([]Row, error)
	Update(ctx context.Context, table Table, id string, patch Row) (Row, error)
	Delete(ctx context.Context, table Table, id string) error
	Ping(ctx context.Context) error
}

// SubscriptionFunc adapts a func to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

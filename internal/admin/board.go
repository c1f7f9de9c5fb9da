package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/observability/metrics"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// DefaultRefreshInterval is how often the board re-fetches the full list.
const DefaultRefreshInterval = 30 * time.Second

// maxJournal bounds the events kept for replay while no fetch lands.
const maxJournal = 1024

// Lister fetches the full appointment list.
type Lister interface {
	ListAppointments(ctx context.Context, opts records.ListOptions) records.Result[[]records.Appointment]
}

// BoardConfig wires a Board. Lister is required; Feed may be nil to run on
// polling alone.
type BoardConfig struct {
	Lister          Lister
	Feed            records.Subscriber
	RefreshInterval time.Duration
	Logger          *logging.Logger
	Metrics         *metrics.BoardMetrics
	Now             func() time.Time
}

// Snapshot is a consistent copy of the board state.
type Snapshot struct {
	Appointments []records.Appointment `json:"appointments"`
	Version      uint64                `json:"version"`
	RefreshedAt  time.Time             `json:"refreshed_at"`
	LastError    string                `json:"last_error,omitempty"`
}

type journaled struct {
	seq uint64
	evt records.ChangeEvent
}

// Board holds the admin's in-memory appointment list. Two producers feed it:
// full fetches (timer, manual, after mutations) and the change stream. Both
// draw from one sequence counter. A fetch result older than the newest
// applied fetch is discarded, and events applied after a fetch started are
// replayed on top of its result so they are never lost.
type Board struct {
	lister   Lister
	feed     records.Subscriber
	interval time.Duration
	logger   *logging.Logger
	metrics  *metrics.BoardMetrics
	now      func() time.Time

	mu          sync.Mutex
	list        []records.Appointment
	seq         uint64
	appliedSeq  uint64
	journal     []journaled
	version     uint64
	refreshedAt time.Time
	lastErr     string
	started     bool
	closed      bool

	sub  records.Subscription
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewBoard(cfg BoardConfig) (*Board, error) {
	if cfg.Lister == nil {
		return nil, errors.New("admin: board requires a lister")
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Board{
		lister:   cfg.Lister,
		feed:     cfg.Feed,
		interval: cfg.RefreshInterval,
		logger:   cfg.Logger.Component("admin_board"),
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		stop:     make(chan struct{}),
	}, nil
}

// Start subscribes to appointment changes, performs the first fetch and
// starts the refresh timer. A failed first fetch is logged, not returned;
// the timer retries.
func (b *Board) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBoardClosed
	}
	if b.started {
		b.mu.Unlock()
		return errors.New("admin: board already started")
	}
	b.started = true
	b.mu.Unlock()

	if b.feed != nil {
		sub, err := b.feed.Subscribe(ctx, records.TableAppointments, b.ApplyEvent)
		if err != nil {
			if !errors.Is(err, records.ErrSubscriptionsUnavailable) {
				return fmt.Errorf("admin: subscribe: %w", err)
			}
			b.logger.Warn("board: change stream unavailable, polling only")
		} else {
			b.mu.Lock()
			b.sub = sub
			b.mu.Unlock()
		}
	}

	if err := b.Refresh(ctx); err != nil {
		b.logger.Warn("board: initial refresh failed", "error", err)
	}

	runCtx := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := b.Refresh(runCtx); err != nil {
					b.logger.Warn("board: scheduled refresh failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// Refresh fetches the full list and applies it unless a newer fetch has
// already landed.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBoardClosed
	}
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	res := b.lister.ListAppointments(ctx, records.ListOptions{})
	if !res.Success {
		b.mu.Lock()
		b.lastErr = res.Error
		b.mu.Unlock()
		b.metrics.ObserveRefresh("error")
		return fmt.Errorf("admin: refresh: %s", res.Error)
	}
	if !b.applyFetch(seq, res.Data) {
		b.metrics.ObserveRefresh("discarded")
		b.logger.Debug("board: discarded stale fetch", "seq", seq)
		return nil
	}
	b.metrics.ObserveRefresh("applied")
	return nil
}

func (b *Board) applyFetch(seq uint64, fetched []records.Appointment) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.appliedSeq {
		return false
	}
	list := append([]records.Appointment(nil), fetched...)
	kept := b.journal[:0]
	for _, j := range b.journal {
		if j.seq > seq {
			list = mergeEvent(list, j.evt)
			kept = append(kept, j)
		}
	}
	b.journal = kept
	b.appliedSeq = seq
	b.list = list
	b.version++
	b.refreshedAt = b.now()
	b.lastErr = ""
	return true
}

// ApplyEvent merges one change event into the list: inserts prepend,
// updates replace in place, deletes remove.
func (b *Board) ApplyEvent(evt records.ChangeEvent) {
	if evt.Table != records.TableAppointments {
		return
	}
	b.metrics.ObserveEvent(string(evt.Type))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.seq++
	b.journal = append(b.journal, journaled{seq: b.seq, evt: evt})
	if len(b.journal) > maxJournal {
		b.journal = append([]journaled(nil), b.journal[len(b.journal)-maxJournal:]...)
	}
	b.list = mergeEvent(b.list, evt)
	b.version++
}

func mergeEvent(list []records.Appointment, evt records.ChangeEvent) []records.Appointment {
	switch evt.Type {
	case records.EventInsert:
		a, err := records.AppointmentFromRow(evt.New)
		if err != nil || a.ID == "" || indexOf(list, a.ID) >= 0 {
			return list
		}
		return append([]records.Appointment{a}, list...)
	case records.EventUpdate:
		a, err := records.AppointmentFromRow(evt.New)
		if err != nil {
			return list
		}
		if i := indexOf(list, a.ID); i >= 0 {
			out := append([]records.Appointment(nil), list...)
			out[i] = a
			return out
		}
		return list
	case records.EventDelete:
		id := rowID(evt.Old)
		if i := indexOf(list, id); i >= 0 {
			out := make([]records.Appointment, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...)
		}
		return list
	}
	return list
}

func rowID(r records.Row) string {
	if id, ok := r["id"].(string); ok {
		return id
	}
	return ""
}

func indexOf(list []records.Appointment, id string) int {
	if id == "" {
		return -1
	}
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns a copy of the current list.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Appointments: append([]records.Appointment{}, b.list...),
		Version:      b.version,
		RefreshedAt:  b.refreshedAt,
		LastError:    b.lastErr,
	}
}

// View applies f to the current list.
func (b *Board) View(f Filter) ([]records.Appointment, Snapshot) {
	snap := b.Snapshot()
	return Apply(snap.Appointments, f, b.now()), snap
}

// Close unsubscribes the change stream, stops the timer and waits for it.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	sub := b.sub
	b.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	close(b.stop)
	b.wg.Wait()
}

package records

import (
	"context"
	"sync"

	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

const feedBuffer = 128

// LocalFeed fans change events out to in-process subscribers. Each
// subscriber owns a buffered channel and a goroutine, so a slow consumer
// drops its own events without stalling writers or other subscribers.
type LocalFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Table]map[int]chan ChangeEvent
	logger *logging.Logger
}

func NewLocalFeed(logger *logging.Logger) *LocalFeed {
	if logger == nil {
		logger = logging.Default()
	}
	return &LocalFeed{
		subs:   make(map[Table]map[int]chan ChangeEvent),
		logger: logger,
	}
}

// Subscribe registers fn for events on table. The subscription ends when
// Unsubscribe is called or ctx is cancelled.
func (f *LocalFeed) Subscribe(ctx context.Context, table Table, fn func(ChangeEvent)) (Subscription, error) {
	if _, err := schemaFor(table); err != nil {
		return nil, err
	}
	ch := make(chan ChangeEvent, feedBuffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.subs[table] == nil {
		f.subs[table] = make(map[int]chan ChangeEvent)
	}
	f.subs[table][id] = ch
	f.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[table], id)
			f.mu.Unlock()
			close(done)
		})
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				stop()
				return
			case evt := <-ch:
				fn(evt)
			}
		}
	}()

	return SubscriptionFunc(stop), nil
}

// Publish delivers evt to every subscriber of its table without blocking.
func (f *LocalFeed) Publish(_ context.Context, evt ChangeEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for id, ch := range f.subs[evt.Table] {
		select {
		case ch <- evt:
		default:
			f.logger.Warn("records: change feed subscriber lagging, event dropped",
				"table", evt.Table, "subscriber", id, "event", evt.Type)
		}
	}
	return nil
}

// Subscribers reports how many subscriptions are live for table.
func (f *LocalFeed) Subscribers(table Table) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[table])
}

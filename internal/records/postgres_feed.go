package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// NotifyChannel is the Postgres channel the record trigger notifies on.
const NotifyChannel = "record_changes"

// PostgresFeed turns LISTEN/NOTIFY payloads from the record trigger into
// change events for local subscribers.
type PostgresFeed struct {
	listener *pq.Listener
	local    *LocalFeed
	logger   *logging.Logger
}

// NewPostgresFeed opens a dedicated listener connection to dsn.
func NewPostgresFeed(dsn string, logger *logging.Logger) (*PostgresFeed, error) {
	if logger == nil {
		logger = logging.Default()
	}
	listener := pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Warn("records: listener connection failed", "error", err)
		case pq.ListenerEventDisconnected:
			logger.Warn("records: listener disconnected", "error", err)
		case pq.ListenerEventReconnected:
			logger.Info("records: listener reconnected")
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("records: listen %s: %w", NotifyChannel, err)
	}
	return &PostgresFeed{listener: listener, local: NewLocalFeed(logger), logger: logger}, nil
}

func (f *PostgresFeed) Subscribe(ctx context.Context, table Table, fn func(ChangeEvent)) (Subscription, error) {
	return f.local.Subscribe(ctx, table, fn)
}

// Run dispatches notifications until ctx is cancelled.
func (f *PostgresFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(90 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-f.listener.Notify:
			if n == nil {
				// Delivered after a reconnect; anything sent while down is lost.
				f.logger.Info("records: change feed resumed after reconnect")
				continue
			}
			f.handleNotification(ctx, n.Extra)
		case <-ticker.C:
			if err := f.listener.Ping(); err != nil {
				f.logger.Warn("records: listener ping failed", "error", err)
			}
		}
	}
}

func (f *PostgresFeed) Close() error {
	return f.listener.Close()
}

func (f *PostgresFeed) handleNotification(ctx context.Context, payload string) {
	evt, err := decodeNotification(payload)
	if err != nil {
		f.logger.Warn("records: discarding malformed notification", "error", err)
		return
	}
	_ = f.local.Publish(ctx, evt)
}

// decodeNotification parses the trigger's JSON payload.
func decodeNotification(payload string) (ChangeEvent, error) {
	var evt ChangeEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return ChangeEvent{}, fmt.Errorf("records: decode notification: %w", err)
	}
	if _, err := schemaFor(evt.Table); err != nil {
		return ChangeEvent{}, err
	}
	switch evt.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return ChangeEvent{}, fmt.Errorf("records: unknown event type %q", evt.Type)
	}
	return evt, nil
}

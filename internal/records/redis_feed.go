package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// RedisFeed carries change events over Redis pub/sub so every API replica
// sees writes made by any other replica.
type RedisFeed struct {
	client *redis.Client
	prefix string
	logger *logging.Logger
}

func NewRedisFeed(client *redis.Client, logger *logging.Logger) *RedisFeed {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisFeed{client: client, prefix: "records:", logger: logger}
}

func (f *RedisFeed) channel(table Table) string {
	return f.prefix + string(table)
}

// Publish encodes evt as JSON on the table's channel.
func (f *RedisFeed) Publish(ctx context.Context, evt ChangeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("records: encode change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel(evt.Table), payload).Err(); err != nil {
		return fmt.Errorf("records: publish change event: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription with Redis before returning, so
// events published after Subscribe returns are never missed.
func (f *RedisFeed) Subscribe(ctx context.Context, table Table, fn func(ChangeEvent)) (Subscription, error) {
	if _, err := schemaFor(table); err != nil {
		return nil, err
	}
	ps := f.client.Subscribe(ctx, f.channel(table))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("records: subscribe %s: %w", table, err)
	}

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	msgs := ps.Channel()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				stop()
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					f.logger.Warn("records: discarding malformed change event", "channel", msg.Channel, "error", err)
					continue
				}
				fn(evt)
			}
		}
	}()
	return SubscriptionFunc(stop), nil
}

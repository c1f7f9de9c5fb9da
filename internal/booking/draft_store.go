package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DraftStore persists wizard drafts between requests.
type DraftStore interface {
	Get(ctx context.Context, id string) (Draft, error)
	Save(ctx context.Context, d Draft) error
	Delete(ctx context.Context, id string) error
}

// RedisDraftStore keeps drafts as JSON with a sliding TTL.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	if client == nil {
		panic("booking: redis client required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisDraftStore{client: client, ttl: ttl, prefix: "booking:draft:"}
}

func (s *RedisDraftStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisDraftStore) Get(ctx context.Context, id string) (Draft, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("booking: load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("booking: decode draft: %w", err)
	}
	return d, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, d Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("booking: encode draft: %w", err)
	}
	if err := s.client.Set(ctx, s.key(d.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("booking: save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("booking: delete draft: %w", err)
	}
	return nil
}

// MemoryDraftStore is the single-process fallback when Redis is not
// configured. Expired drafts are dropped lazily on access.
type MemoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]memoryDraft
}

type memoryDraft struct {
	draft   Draft
	expires time.Time
}

func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemoryDraftStore{ttl: ttl, now: time.Now, drafts: make(map[string]memoryDraft)}
}

func (s *MemoryDraftStore) Get(_ context.Context, id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	if s.now().After(entry.expires) {
		delete(s.drafts, id)
		return Draft{}, ErrDraftNotFound
	}
	return entry.draft, nil
}

func (s *MemoryDraftStore) Save(_ context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ID] = memoryDraft{draft: d, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

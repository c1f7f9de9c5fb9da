package notify

import (
	"sync"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/records"
)

// DefaultCapacity is how many notifications the admin tray retains.
const DefaultCapacity = 10

// Notification is one entry in the admin notification tray.
type Notification struct {
	ID          string               `json:"id"`
	Type        string               `json:"type"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Appointment *records.Appointment `json:"appointment,omitempty"`
	Link        string               `json:"whatsapp_link,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
	Read        bool                 `json:"read"`
}

// Buffer is a capped, newest-first list of notifications. Pushing beyond
// capacity evicts the oldest entry regardless of its read flag.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	items    []Notification
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Push prepends n and trims the tail. It returns the evicted entries.
func (b *Buffer) Push(n Notification) []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append([]Notification{n}, b.items...)
	if len(b.items) <= b.capacity {
		return nil
	}
	evicted := append([]Notification(nil), b.items[b.capacity:]...)
	b.items = b.items[:b.capacity]
	return evicted
}

// List returns a copy, newest first.
func (b *Buffer) List() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notification{}, b.items...)
}

// MarkRead flags the notification as read. It reports whether id was found.
func (b *Buffer) MarkRead(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			b.items[i].Read = true
			return true
		}
	}
	return false
}

// Remove drops the notification. It reports whether id was found.
func (b *Buffer) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Buffer) UnreadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, it := range b.items {
		if !it.Read {
			n++
		}
	}
	return n
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

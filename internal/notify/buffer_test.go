package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferKeepsNewestTen(t *testing.T) {
	b := NewBuffer(DefaultCapacity)
	for i := 0; i < 11; i++ {
		evicted := b.Push(Notification{ID: fmt.Sprintf("n%d", i)})
		if i < 10 {
			assert.Empty(t, evicted)
		} else {
			require.Len(t, evicted, 1)
			assert.Equal(t, "n0", evicted[0].ID)
		}
	}

	list := b.List()
	require.Len(t, list, 10)
	assert.Equal(t, "n10", list[0].ID)
	assert.Equal(t, "n1", list[9].ID)
	for _, n := range list {
		assert.NotEqual(t, "n0", n.ID)
	}
}

func TestBufferReadFlagOnlyAffectsUnreadCount(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 3; i++ {
		b.Push(Notification{ID: fmt.Sprintf("n%d", i)})
	}
	require.True(t, b.MarkRead("n0"))
	require.True(t, b.MarkRead("n1"))
	assert.False(t, b.MarkRead("missing"))
	assert.Equal(t, 1, b.UnreadCount())
	assert.Equal(t, 3, b.Len())

	// Read entries are evicted like any other once they are the oldest.
	b.Push(Notification{ID: "n3"})
	ids := []string{}
	for _, n := range b.List() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"n3", "n2", "n1"}, ids)
	assert.Equal(t, 2, b.UnreadCount())
}

func TestBufferRemove(t *testing.T) {
	b := NewBuffer(0)
	b.Push(Notification{ID: "a"})
	b.Push(Notification{ID: "b"})
	assert.True(t, b.Remove("a"))
	assert.False(t, b.Remove("a"))
	require.Len(t, b.List(), 1)
	assert.Equal(t, "b", b.List()[0].ID)
}

func TestBufferListIsCopy(t *testing.T) {
	b := NewBuffer(2)
	b.Push(Notification{ID: "a"})
	list := b.List()
	list[0].Read = true
	assert.Equal(t, 1, b.UnreadCount())
}

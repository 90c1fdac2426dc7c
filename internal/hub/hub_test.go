package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipd/internal/history"
)

func TestPublishFansOut(t *testing.T) {
	h := New()
	a := h.Subscribe("a", 4)
	b := h.Subscribe("b", 4)
	defer a.Close()
	defer b.Close()
	require.Equal(t, 2, h.Len())

	ev := Event{Kind: NewItem, ID: 7, Entry: &history.Preview{ID: 7, Preview: "hello"}}
	h.Publish(ev)

	assert.Equal(t, ev, <-a.Events())
	assert.Equal(t, ev, <-b.Events())
}

func TestFullQueueDrops(t *testing.T) {
	h := New()
	s := h.Subscribe("slow", 1)
	defer s.Close()

	h.Publish(Event{Kind: ItemDeleted, ID: 1})
	h.Publish(Event{Kind: ItemDeleted, ID: 2})
	h.Publish(Event{Kind: ItemDeleted, ID: 3})

	assert.Equal(t, uint64(2), s.Dropped())
	got := <-s.Events()
	assert.Equal(t, uint64(1), got.ID)
}

func TestCloseUnregisters(t *testing.T) {
	h := New()
	s := h.Subscribe("gone", 0)
	s.Close()
	s.Close()

	assert.Zero(t, h.Len())
	_, open := <-s.Events()
	assert.False(t, open)

	h.Publish(Event{Kind: HistoryCleared})
}

func TestDefaultBuffer(t *testing.T) {
	s := New().Subscribe("x", 0)
	defer s.Close()
	assert.Equal(t, DefaultBuffer, cap(s.ch))
}

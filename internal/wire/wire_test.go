package wire

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipd/internal/message"
)

func TestReadWrite(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go func() {
		wc := New(a)
		_ = wc.WriteMsg(&message.Message{Type: message.TypeGetHistory})
		_ = wc.WriteMsg(&message.Message{Type: message.TypeSetPinned, ID: 7, Pinned: true})
	}()

	rc := New(b)
	m, err := rc.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, message.TypeGetHistory, m.Type)
	m, err = rc.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), m.ID)
	assert.True(t, m.Pinned)
}

func TestLongLineSpansBuffers(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	payload := bytes.Repeat([]byte("x"), 200*1024)
	go func() {
		_ = New(a).WriteMsg(&message.Message{
			Type: message.TypeCopy,
			Data: []message.Item{message.NewItem("text/plain", payload)},
		})
	}()

	m, err := New(b).ReadMsg()
	require.NoError(t, err)
	require.Len(t, m.Data, 1)
	got, err := m.Data[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadRejectsOversizedLine(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	go func() {
		chunk := bytes.Repeat([]byte("a"), 1024*1024)
		for range MaxMessageSize/len(chunk) + 1 {
			if _, err := a.Write(chunk); err != nil {
				return
			}
		}
		_ = a.Close()
	}()

	_, err := New(b).ReadMsg()
	assert.ErrorIs(t, err, ErrTooLarge)
	_ = a.Close()
}

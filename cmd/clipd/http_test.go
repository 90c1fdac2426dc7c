package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipd/internal/engine"
	"go.klb.dev/clipd/internal/grpcservice"
	"go.klb.dev/clipd/internal/history"
	"go.klb.dev/clipd/internal/hub"
	"go.klb.dev/clipd/internal/ipc"
	"go.klb.dev/clipd/internal/message"
	"go.klb.dev/clipd/internal/wire"
)

func TestOneSocketThreeProtocols(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "clipd.sock")
	eng := engine.New(engine.Options{})
	_, err := eng.Ingest(history.MIMEData{{MIME: history.MIMEText, Data: []byte("shared")}})
	require.NoError(t, err)

	ln, err := ipc.Listen(socket)
	require.NoError(t, err)
	srv, err := newIPCServer(ln, eng, grpcservice.New(eng, "test", nil))
	require.NoError(t, err)
	go srv.serve()
	defer srv.stop()

	t.Run("GRPC", func(t *testing.T) {
		conn, err := grpcservice.Dial(socket)
		require.NoError(t, err)
		defer conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h, err := grpcservice.NewClient(conn).GetHistory(ctx)
		require.NoError(t, err)
		require.Len(t, h.Items, 1)
		assert.Equal(t, "shared", h.Items[0].Preview)
	})

	t.Run("HTTP", func(t *testing.T) {
		client := &http.Client{Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		}}
		resp, err := client.Get("http://clipd/v1/history")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var out grpcservice.HistoryResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		require.Len(t, out.Items, 1)
	})

	t.Run("JSONLines", func(t *testing.T) {
		conn, err := ipc.Dial(socket)
		require.NoError(t, err)
		wc := wire.New(conn)
		defer wc.Close()
		require.NoError(t, wc.WriteMsg(&message.Message{Type: message.TypeGetHistory}))
		resp, err := wc.ReadMsg()
		require.NoError(t, err)
		assert.Equal(t, message.TypeHistory, resp.Type)
		require.Len(t, resp.History, 1)
	})
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, &grpcservice.HistoryResponse{
		Items: []history.Preview{
			{ID: 4, ContentType: history.URL, Preview: "https://go.dev", Timestamp: time.Now().Unix(), Pinned: true},
			{ID: 7, ContentType: history.Text, Preview: "two\nlines", Timestamp: time.Now().Unix()},
		},
		Ownership: engine.Ownership{Phase: engine.Owned, EntryID: 7},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "https://go.dev")
	assert.Contains(t, lines[2], "yes")
	assert.True(t, strings.HasPrefix(lines[3], "*"))
	assert.Contains(t, lines[3], "two lines")

	buf.Reset()
	printHistory(&buf, &grpcservice.HistoryResponse{})
	assert.Equal(t, "History is empty.\n", buf.String())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "abc", oneLine("  abc ", 10))
	assert.Equal(t, "abcd…", oneLine("abcdefgh", 5))

	assert.Equal(t, uint64(9), newest([]history.Preview{{ID: 2, Pinned: true}, {ID: 9}, {ID: 5}}))

	id, err := parseID("12")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	_, err = parseID("0")
	assert.Error(t, err)
	_, err = parseID("x")
	assert.Error(t, err)
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		ev   hub.Event
		want string
	}{
		{hub.Event{Kind: hub.NewItem, ID: 3, Entry: &history.Preview{ID: 3, ContentType: history.URL, Preview: "https://go.dev\n"}}, "new\t3\tUrl\thttps://go.dev"},
		{hub.Event{Kind: hub.ItemPinned, ID: 3, Pinned: true}, "pinned\t3"},
		{hub.Event{Kind: hub.ItemPinned, ID: 3}, "unpinned\t3"},
		{hub.Event{Kind: hub.ItemDeleted, ID: 9}, "deleted\t9"},
		{hub.Event{Kind: hub.HistoryCleared}, "cleared"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatEvent(&tt.ev))
		})
	}
}

func TestWatchOverSocket(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "clipd.sock")
	eng := engine.New(engine.Options{})
	ln, err := ipc.Listen(socket)
	require.NoError(t, err)
	srv, err := newIPCServer(ln, eng, grpcservice.New(eng, "test", nil))
	require.NoError(t, err)
	go srv.serve()
	defer srv.stop()

	conn, err := grpcservice.Dial(socket)
	require.NoError(t, err)
	defer conn.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := grpcservice.NewClient(conn).Watch(ctx)
	require.NoError(t, err)

	_, err = eng.Ingest(history.MIMEData{{MIME: history.MIMEText, Data: []byte("live")}})
	require.NoError(t, err)
	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "new\t1\tText\tlive", formatEvent(ev))
}

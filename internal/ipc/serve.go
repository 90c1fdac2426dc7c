package ipc

import (
	"errors"
	"io"
	"log/slog"
	"net"

	"go.klb.dev/clipd/internal/engine"
	"go.klb.dev/clipd/internal/history"
	"go.klb.dev/clipd/internal/hub"
	"go.klb.dev/clipd/internal/message"
	"go.klb.dev/clipd/internal/wire"
)

// Backend is the set of clipboard operations reachable over IPC.
type Backend interface {
	History() []history.Preview
	Item(id uint64) (history.Entry, error)
	SetClipboard(id uint64) error
	SetPinned(id uint64, pinned bool) error
	Delete(id uint64) error
	Clear()
	Copy(data history.MIMEData) (uint64, error)
	Events() *hub.Hub
}

var _ Backend = (*engine.Engine)(nil)

// Serve accepts JSON-lines connections on ln until it is closed.
func Serve(ln net.Listener, b Backend) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go ServeConn(conn, b)
	}
}

// ServeConn answers requests on conn until the peer hangs up.
func ServeConn(conn net.Conn, b Backend) {
	defer conn.Close()
	wc := wire.New(conn)

	for {
		msg, err := wc.ReadMsg()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("ipc: read failed", "err", err)
				_ = wc.WriteMsg(message.Errorf("%v", err))
			}
			return
		}
		if msg.Type == message.TypeSubscribe {
			stream(wc, b.Events())
			return
		}
		resp := Handle(b, msg)
		if err := wc.WriteMsg(resp); err != nil {
			slog.Debug("ipc: write failed", "type", resp.Type, "err", err)
			return
		}
	}
}

// stream pushes history events to a subscribed connection until the peer
// hangs up or a write fails.
func stream(wc *wire.Conn, h *hub.Hub) {
	sub := h.Subscribe("ipc", 0)
	defer sub.Close()
	if err := wc.WriteMsg(&message.Message{Type: message.TypeSubscribed}); err != nil {
		return
	}

	// requests are ignored from here on; any read error ends the stream
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, err := wc.ReadMsg(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := wc.WriteMsg(message.FromEvent(ev)); err != nil {
				slog.Debug("ipc: event write failed", "kind", ev.Kind, "err", err)
				return
			}
		case <-gone:
			return
		}
	}
}

// Handle answers a single request.
func Handle(b Backend, msg *message.Message) *message.Message {
	slog.Debug("ipc: request", "type", msg.Type, "id", msg.ID)

	switch msg.Type {
	case message.TypeGetHistory:
		return &message.Message{Type: message.TypeHistory, History: b.History()}

	case message.TypeGetItem:
		e, err := b.Item(msg.ID)
		if err != nil {
			return message.Errorf("%v", err)
		}
		p := e.Summary()
		return &message.Message{Type: message.TypeItem, ID: e.ID, Entry: &p, Data: message.ItemsOf(e.Data)}

	case message.TypeSetClipboard:
		if err := b.SetClipboard(msg.ID); err != nil {
			return message.Errorf("%v", err)
		}
		return &message.Message{Type: message.TypeClipboardSet, ID: msg.ID}

	case message.TypeSetPinned:
		if err := b.SetPinned(msg.ID, msg.Pinned); err != nil {
			return message.Errorf("%v", err)
		}
		return &message.Message{Type: message.TypeItemPinned, ID: msg.ID, Pinned: msg.Pinned}

	case message.TypeDeleteItem:
		if err := b.Delete(msg.ID); err != nil {
			return message.Errorf("%v", err)
		}
		return &message.Message{Type: message.TypeItemDeleted, ID: msg.ID}

	case message.TypeClearHistory:
		b.Clear()
		return &message.Message{Type: message.TypeHistoryCleared}

	case message.TypeSubscribe:
		return message.Errorf("SUBSCRIBE is only valid on a streaming connection")

	case message.TypeCopy:
		data, err := message.MIMEData(msg.Data)
		if err != nil {
			return message.Errorf("%v", err)
		}
		id, err := b.Copy(data)
		if id == 0 {
			return message.Errorf("%v", err)
		}
		if err != nil {
			slog.Warn("ipc: copy stored but not offered", "id", id, "err", err)
		}
		return &message.Message{Type: message.TypeCopied, ID: id}

	default:
		return message.Errorf("unknown message type %q", msg.Type)
	}
}

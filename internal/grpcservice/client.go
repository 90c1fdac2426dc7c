package grpcservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/clipd/internal/history"
	"go.klb.dev/clipd/internal/hub"
)

// Client calls clipd.v1.Clipboard.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial returns a connection to the daemon's Unix socket. No auth is needed;
// the socket is local and owner-restricted.
func Dial(path string) (*grpc.ClientConn, error) {
	return grpc.NewClient(
		"unix://"+path,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

// GetHistory returns the history previews and the ownership state.
func (c *Client) GetHistory(ctx context.Context) (*HistoryResponse, error) {
	out := new(HistoryResponse)
	if err := c.invoke(ctx, "GetHistory", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetItem returns an entry with its payloads.
func (c *Client) GetItem(ctx context.Context, id uint64) (*ItemResponse, error) {
	out := new(ItemResponse)
	if err := c.invoke(ctx, "GetItem", &ItemRequest{ID: id}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetClipboard makes the entry the current selection.
func (c *Client) SetClipboard(ctx context.Context, id uint64) error {
	return c.invoke(ctx, "SetClipboard", &ItemRequest{ID: id}, new(Empty))
}

// SetPinned pins or unpins the entry.
func (c *Client) SetPinned(ctx context.Context, id uint64, pinned bool) error {
	return c.invoke(ctx, "SetPinned", &ItemRequest{ID: id, Pinned: pinned}, new(Empty))
}

// DeleteItem removes the entry.
func (c *Client) DeleteItem(ctx context.Context, id uint64) error {
	return c.invoke(ctx, "DeleteItem", &ItemRequest{ID: id}, new(Empty))
}

// ClearHistory removes every entry.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.invoke(ctx, "ClearHistory", &Empty{}, new(Empty))
}

// Copy stores data and makes it the selection.
func (c *Client) Copy(ctx context.Context, data history.MIMEData) (*CopyResponse, error) {
	out := new(CopyResponse)
	if err := c.invoke(ctx, "Copy", &CopyRequest{Data: data}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status describes the daemon.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.invoke(ctx, "Status", &Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// EventStream receives history events from Watch.
type EventStream struct {
	cs grpc.ClientStream
}

// Recv blocks for the next event. It returns io.EOF when the daemon ends the
// stream.
func (s *EventStream) Recv() (*hub.Event, error) {
	ev := new(hub.Event)
	if err := s.cs.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Watch subscribes to history events until ctx is cancelled. It returns once
// the daemon has registered the subscription.
func (c *Client) Watch(ctx context.Context) (*EventStream, error) {
	cs, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], fullMethod("Watch"), grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(&Empty{}); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	if _, err := cs.Header(); err != nil {
		return nil, err
	}
	return &EventStream{cs: cs}, nil
}

// Package grpcservice implements the clipd.v1.Clipboard gRPC service, its
// client and the HTTP/JSON gateway in front of it.
//
// Messages are plain Go structs carried with a JSON codec (content-subtype
// "json"), so the service descriptor is written by hand instead of generated.
package grpcservice

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipd/internal/engine"
	"go.klb.dev/clipd/internal/history"
	"go.klb.dev/clipd/internal/hub"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "clipd.v1.Clipboard"

// Backend is the set of clipboard operations the service exposes.
type Backend interface {
	History() []history.Preview
	Item(id uint64) (history.Entry, error)
	SetClipboard(id uint64) error
	SetPinned(id uint64, pinned bool) error
	Delete(id uint64) error
	Clear()
	Copy(data history.MIMEData) (uint64, error)
	Ownership() engine.Ownership
	Events() *hub.Hub
}

var _ Backend = (*engine.Engine)(nil)

// ClipboardServer is the server API of clipd.v1.Clipboard.
type ClipboardServer interface {
	GetHistory(context.Context, *Empty) (*HistoryResponse, error)
	GetItem(context.Context, *ItemRequest) (*ItemResponse, error)
	SetClipboard(context.Context, *ItemRequest) (*Empty, error)
	SetPinned(context.Context, *ItemRequest) (*Empty, error)
	DeleteItem(context.Context, *ItemRequest) (*Empty, error)
	ClearHistory(context.Context, *Empty) (*Empty, error)
	Copy(context.Context, *CopyRequest) (*CopyResponse, error)
	Status(context.Context, *Empty) (*StatusResponse, error)
	Watch(*Empty, WatchServer) error
}

// WatchServer is the server side of the Watch stream.
type WatchServer interface {
	Send(*hub.Event) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (x *watchServer) Send(ev *hub.Event) error { return x.ServerStream.SendMsg(ev) }

// Service implements ClipboardServer.
type Service struct {
	b        Backend
	version  string
	protocol func() string
}

// New returns a Service backed by b. protocol reports the bound data-control
// variant and may be nil.
func New(b Backend, version string, protocol func() string) *Service {
	return &Service{b: b, version: version, protocol: protocol}
}

// Register adds the service to s.
func Register(s *grpc.Server, svc ClipboardServer) {
	s.RegisterService(&serviceDesc, svc)
}

// GetHistory implements ClipboardServer.
func (s *Service) GetHistory(context.Context, *Empty) (*HistoryResponse, error) {
	return &HistoryResponse{Items: s.b.History(), Ownership: s.b.Ownership()}, nil
}

// GetItem implements ClipboardServer.
func (s *Service) GetItem(_ context.Context, req *ItemRequest) (*ItemResponse, error) {
	e, err := s.b.Item(req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ItemResponse{Entry: e.Summary(), Data: e.Data}, nil
}

// SetClipboard implements ClipboardServer.
func (s *Service) SetClipboard(_ context.Context, req *ItemRequest) (*Empty, error) {
	if err := s.b.SetClipboard(req.ID); err != nil {
		return nil, toStatus(err)
	}
	slog.Debug("rpc: clipboard set", "id", req.ID)
	return &Empty{}, nil
}

// SetPinned implements ClipboardServer.
func (s *Service) SetPinned(_ context.Context, req *ItemRequest) (*Empty, error) {
	if err := s.b.SetPinned(req.ID, req.Pinned); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// DeleteItem implements ClipboardServer.
func (s *Service) DeleteItem(_ context.Context, req *ItemRequest) (*Empty, error) {
	if err := s.b.Delete(req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// ClearHistory implements ClipboardServer.
func (s *Service) ClearHistory(context.Context, *Empty) (*Empty, error) {
	s.b.Clear()
	return &Empty{}, nil
}

// Copy implements ClipboardServer.
func (s *Service) Copy(_ context.Context, req *CopyRequest) (*CopyResponse, error) {
	id, err := s.b.Copy(req.Data)
	if id == 0 {
		return nil, toStatus(err)
	}
	resp := &CopyResponse{ID: id, Offered: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

// Status implements ClipboardServer.
func (s *Service) Status(context.Context, *Empty) (*StatusResponse, error) {
	items := s.b.History()
	resp := &StatusResponse{
		Version:   s.version,
		Entries:   len(items),
		Ownership: s.b.Ownership(),
	}
	for _, it := range items {
		if it.Pinned {
			resp.Pinned++
		}
	}
	if s.protocol != nil {
		resp.Protocol = s.protocol()
	}
	return resp, nil
}

// Watch implements ClipboardServer. Headers are sent once the subscription is
// registered, so a client that has seen them misses no later event.
func (s *Service) Watch(_ *Empty, stream WatchServer) error {
	sub := s.b.Events().Subscribe("grpc", 0)
	defer sub.Close()
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := stream.Send(&ev); err != nil {
				return err
			}
		}
	}
}

// Events exposes the backend's event hub to the HTTP gateway.
func (s *Service) Events() *hub.Hub { return s.b.Events() }

// toStatus maps engine and history errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, history.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, history.ErrEmpty):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrNotBound):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ── service descriptor ─────────────────────────────────────────────────────

func unary[Req, Resp any](name string, call func(ClipboardServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(ClipboardServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ClipboardServer), ctx, req.(*Req))
			})
		},
	}
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClipboardServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetHistory", ClipboardServer.GetHistory),
		unary("GetItem", ClipboardServer.GetItem),
		unary("SetClipboard", ClipboardServer.SetClipboard),
		unary("SetPinned", ClipboardServer.SetPinned),
		unary("DeleteItem", ClipboardServer.DeleteItem),
		unary("ClearHistory", ClipboardServer.ClearHistory),
		unary("Copy", ClipboardServer.Copy),
		unary("Status", ClipboardServer.Status),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(Empty)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(ClipboardServer).Watch(in, &watchServer{stream})
			},
		},
	},
	Metadata: "clipd/v1/clipboard",
}

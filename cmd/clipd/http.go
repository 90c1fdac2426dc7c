package main

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"

	"go.klb.dev/clipd/internal/engine"
	"go.klb.dev/clipd/internal/grpcservice"
	"go.klb.dev/clipd/internal/ipc"
)

// ipcServer multiplexes gRPC, the HTTP gateway and JSON lines on one socket.
type ipcServer struct {
	ln   net.Listener
	mux  cmux.CMux
	grpc *grpc.Server
	http *http.Server
	eng  *engine.Engine

	grpcL, httpL, lineL net.Listener
}

func newIPCServer(ln net.Listener, eng *engine.Engine, svc *grpcservice.Service) (*ipcServer, error) {
	gw, err := grpcservice.NewGateway(svc)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	grpcservice.Register(gs, svc)

	m := cmux.New(ln)
	return &ipcServer{
		ln:    ln,
		mux:   m,
		grpc:  gs,
		http:  &http.Server{Handler: gw},
		eng:   eng,
		grpcL: m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc")),
		httpL: m.Match(cmux.HTTP1Fast()),
		lineL: m.Match(cmux.Any()),
	}, nil
}

func (s *ipcServer) serve() {
	go func() { logServeErr("grpc", s.grpc.Serve(s.grpcL)) }()
	go func() { logServeErr("http", serveHTTPGateway(s.httpL, s.http)) }()
	go func() { logServeErr("json-lines", ipc.Serve(s.lineL, s.eng)) }()
	logServeErr("cmux", s.mux.Serve())
}

// serveHTTPGateway runs an HTTP/1.1 server on ln serving the grpc-gateway mux.
func serveHTTPGateway(ln net.Listener, srv *http.Server) error {
	return srv.Serve(ln)
}

func (s *ipcServer) stop() {
	_ = s.ln.Close()
	s.grpc.Stop()
	_ = s.http.Close()
	_ = s.lineL.Close()
}

func logServeErr(what string, err error) {
	if err == nil ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, grpc.ErrServerStopped) ||
		errors.Is(err, cmux.ErrListenerClosed) {
		return
	}
	slog.Warn("IPC server stopped", "server", what, "err", err)
}

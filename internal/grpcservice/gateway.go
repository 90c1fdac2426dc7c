package grpcservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/clipd/internal/hub"
)

type route struct {
	method, path string
	h            gwruntime.HandlerFunc
}

// NewGateway returns an HTTP/JSON mux over svc:
//
//	GET    /v1/history
//	DELETE /v1/history
//	GET    /v1/status
//	POST   /v1/copy
//	GET    /v1/items/{id}
//	DELETE /v1/items/{id}
//	POST   /v1/items/{id}/select
//	POST   /v1/items/{id}/pin
//	DELETE /v1/items/{id}/pin
//	GET    /v1/events  (newline-delimited JSON, when svc has an event hub)
func NewGateway(svc ClipboardServer) (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux()
	routes := []route{
		{http.MethodGet, "/v1/history", handle(func(ctx context.Context, _ *http.Request, _ map[string]string) (any, error) {
			return svc.GetHistory(ctx, &Empty{})
		})},
		{http.MethodDelete, "/v1/history", handle(func(ctx context.Context, _ *http.Request, _ map[string]string) (any, error) {
			return svc.ClearHistory(ctx, &Empty{})
		})},
		{http.MethodGet, "/v1/status", handle(func(ctx context.Context, _ *http.Request, _ map[string]string) (any, error) {
			return svc.Status(ctx, &Empty{})
		})},
		{http.MethodPost, "/v1/copy", handle(func(ctx context.Context, r *http.Request, _ map[string]string) (any, error) {
			var req CopyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "decode body: %v", err)
			}
			return svc.Copy(ctx, &req)
		})},
		{http.MethodGet, "/v1/items/{id}", withID(svc.GetItem, false)},
		{http.MethodDelete, "/v1/items/{id}", withID(svc.DeleteItem, false)},
		{http.MethodPost, "/v1/items/{id}/select", withID(svc.SetClipboard, false)},
		{http.MethodPost, "/v1/items/{id}/pin", withID(svc.SetPinned, true)},
		{http.MethodDelete, "/v1/items/{id}/pin", withID(svc.SetPinned, false)},
	}
	if es, ok := svc.(interface{ Events() *hub.Hub }); ok {
		routes = append(routes, route{http.MethodGet, "/v1/events", streamEvents(es.Events())})
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, rt.h); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func withID[Resp any](call func(context.Context, *ItemRequest) (*Resp, error), pinned bool) gwruntime.HandlerFunc {
	return handle(func(ctx context.Context, _ *http.Request, params map[string]string) (any, error) {
		id, err := strconv.ParseUint(params["id"], 10, 64)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "bad id %q", params["id"])
		}
		return call(ctx, &ItemRequest{ID: id, Pinned: pinned})
	})
}

func handle(call func(context.Context, *http.Request, map[string]string) (any, error)) gwruntime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		resp, err := call(r.Context(), r, params)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			st := status.Convert(err)
			w.WriteHeader(gwruntime.HTTPStatusFromCode(st.Code()))
			_ = json.NewEncoder(w).Encode(map[string]string{"error": st.Message()})
			return
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Debug("http: write failed", "path", r.URL.Path, "err", err)
		}
	}
}

// streamEvents writes one JSON event per line until the client goes away.
func streamEvents(h *hub.Hub) gwruntime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		sub := h.Subscribe("http", 0)
		defer sub.Close()

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		rc := http.NewResponseController(w)
		_ = rc.Flush()

		enc := json.NewEncoder(w)
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := enc.Encode(ev); err != nil {
					slog.Debug("http: event write failed", "err", err)
					return
				}
				_ = rc.Flush()
			}
		}
	}
}

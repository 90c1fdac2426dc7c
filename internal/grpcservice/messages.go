package grpcservice

import (
	"go.klb.dev/clipd/internal/engine"
	"go.klb.dev/clipd/internal/history"
)

// Empty is the request or response of methods that carry nothing.
type Empty struct{}

// ItemRequest names an entry; Pinned is only read by SetPinned.
type ItemRequest struct {
	ID     uint64 `json:"id"`
	Pinned bool   `json:"pinned,omitempty"`
}

// HistoryResponse lists the history previews.
type HistoryResponse struct {
	Items     []history.Preview `json:"items"`
	Ownership engine.Ownership  `json:"ownership"`
}

// ItemResponse is a full entry with its payloads.
type ItemResponse struct {
	Entry history.Preview  `json:"entry"`
	Data  history.MIMEData `json:"data"`
}

// CopyRequest carries payloads in MIME order.
type CopyRequest struct {
	Data history.MIMEData `json:"data"`
}

// CopyResponse returns the id of the stored entry.
type CopyResponse struct {
	ID uint64 `json:"id"`
	// Offered is false when the entry was stored but could not be made the
	// selection.
	Offered bool   `json:"offered"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse describes the daemon.
type StatusResponse struct {
	Version   string           `json:"version"`
	Protocol  string           `json:"protocol,omitempty"`
	Entries   int              `json:"entries"`
	Pinned    int              `json:"pinned"`
	Ownership engine.Ownership `json:"ownership"`
}

// Package engine is the clipboard protocol engine. It reacts to data-control
// events from the compositor, pulls offered payloads into the history and
// re-offers history entries as this process's own selection.
//
//	compositor ──events──▶ router ──▶ reader ──▶ history.Store
//	                          │                       │
//	                          └──▶ ownership ◀── external ops (IPC)
//
// All mutable state lives in Engine behind one mutex. The mutex is held for
// one logical operation at a time and never across a pipe read or write.
package engine

import (
	"errors"
	"log/slog"
	"sync"

	"go.klb.dev/clipd/internal/datacontrol"
	"go.klb.dev/clipd/internal/history"
	"go.klb.dev/clipd/internal/hub"
)

// ErrNotBound is returned by ownership operations while no data-control
// device is bound.
var ErrNotBound = errors.New("data-control device is not bound")

// Options configures an Engine.
type Options struct {
	// MonitorOnly disables re-offering external selections after they are
	// read.
	MonitorOnly bool
}

// pending is an announced offer and the MIME types accumulated for it.
type pending struct {
	offer datacontrol.Offer
	mimes []string
}

// Engine implements datacontrol.Handler and the operations exposed to IPC.
type Engine struct {
	opts   Options
	events *hub.Hub

	mu      sync.Mutex
	store   *history.Store
	ctl     datacontrol.Controller
	offers  map[uint64]*pending
	current uint64
	own     owner
}

var _ datacontrol.Handler = (*Engine)(nil)

// New returns an engine with an empty history. It is unbound until Attach.
func New(opts Options) *Engine {
	return &Engine{
		opts:   opts,
		events: hub.New(),
		store:  history.NewStore(),
		offers: make(map[uint64]*pending),
	}
}

// Events returns the hub that history changes are published to.
func (e *Engine) Events() *hub.Hub { return e.events }

// Attach binds the controller used for ownership.
func (e *Engine) Attach(ctl datacontrol.Controller) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctl = ctl
}

// Shutdown releases ownership and drops pending offers. The engine is unbound
// afterwards.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release("shutdown")
	e.dropOffers()
	if e.ctl != nil {
		if err := e.ctl.Flush(); err != nil {
			slog.Warn("flush on shutdown failed", "err", err)
		}
	}
	e.ctl = nil
}

// dropOffers destroys every announced offer. Callers hold e.mu.
func (e *Engine) dropOffers() {
	for key, p := range e.offers {
		destroyOffer(p.offer)
		delete(e.offers, key)
	}
}

func destroyOffer(o datacontrol.Offer) {
	if err := o.Destroy(); err != nil {
		slog.Debug("destroy offer", "offer", o.Key(), "err", err)
	}
}

package engine

import (
	"log/slog"
	"os"

	"go.klb.dev/clipd/internal/datacontrol"
)

// DataOffer implements datacontrol.Handler.
func (e *Engine) DataOffer(o datacontrol.Offer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offers[o.Key()] = &pending{offer: o}
}

// OfferMIME implements datacontrol.Handler.
func (e *Engine) OfferMIME(o datacontrol.Offer, mime string) {
	if !acceptMIME(mime) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.offers[o.Key()]; ok {
		p.mimes = append(p.mimes, mime)
	}
}

// Selection implements datacontrol.Handler. Unless reads are suppressed it
// reads the offer, stores the result and, outside monitor-only mode, takes
// ownership of the new entry.
func (e *Engine) Selection(o datacontrol.Offer) {
	e.mu.Lock()
	if o == nil {
		e.current = 0
		e.dropOffers()
		e.mu.Unlock()
		slog.Debug("selection cleared")
		return
	}

	key := o.Key()
	if key == e.current {
		e.mu.Unlock()
		slog.Debug("selection repeats current offer", "offer", key)
		destroyOffer(o)
		return
	}
	p, ok := e.offers[key]
	if !ok {
		e.mu.Unlock()
		slog.Debug("selection names unknown offer", "offer", key)
		destroyOffer(o)
		return
	}
	delete(e.offers, key)
	// offers announced before this one can no longer become the selection
	e.dropOffers()

	if e.own.suppressed() {
		if e.own.phase == Owned {
			e.own.phase = PendingExternalTakeover
		}
		e.current = key
		owned := e.own.entry
		e.mu.Unlock()
		slog.Debug("selection read suppressed", "offer", key, "owned", owned)
		destroyOffer(o)
		return
	}
	e.current = key
	mimes := p.mimes
	flush := e.flusher()
	e.mu.Unlock()

	data := readOffer(o, flush, mimes)
	destroyOffer(o)

	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.insert(data)
	if err != nil {
		slog.Warn("selection not stored", "offer", key, "mimes", mimes, "err", err)
		return
	}
	slog.Info("clipboard entry added", "id", id, "mimes", data.Types())

	switch {
	case e.opts.MonitorOnly:
	case e.own.suppressed():
		slog.Debug("ownership changed during read, not re-offering", "id", id)
	default:
		if err := e.takeOwnership(id); err != nil {
			slog.Warn("taking ownership failed", "id", id, "err", err)
		}
	}
}

// flusher returns the flush function used while reading. Callers hold e.mu.
func (e *Engine) flusher() func() error {
	ctl := e.ctl
	return func() error {
		if ctl == nil {
			return ErrNotBound
		}
		return ctl.Flush()
	}
}

// PrimarySelection implements datacontrol.Handler. The primary selection is
// not tracked; its offers are discarded.
func (e *Engine) PrimarySelection(o datacontrol.Offer) {
	if o == nil {
		return
	}
	e.mu.Lock()
	delete(e.offers, o.Key())
	e.mu.Unlock()
	destroyOffer(o)
}

// Finished implements datacontrol.Handler. The device is gone; ownership
// operations fail until a new controller is attached.
func (e *Engine) Finished() {
	e.mu.Lock()
	defer e.mu.Unlock()
	slog.Warn("data-control device finished by compositor")
	e.release("device finished")
	e.dropOffers()
	e.current = 0
	e.ctl = nil
}

// Send implements datacontrol.Handler. It writes the owned entry's payload
// for mime to fd and closes fd.
func (e *Engine) Send(s datacontrol.Source, mime string, fd *os.File) {
	defer fd.Close()

	e.mu.Lock()
	var (
		data  []byte
		found bool
		id    = e.own.entry
	)
	if e.own.source != nil && e.own.source.Key() == s.Key() {
		if entry, err := e.store.Get(id); err == nil {
			data, found = entry.Data.Get(mime)
		}
	}
	e.mu.Unlock()

	if !found {
		slog.Warn("send requested for unavailable data", "id", id, "mime", mime, "source", s.Key())
		return
	}
	if _, err := fd.Write(data); err != nil {
		slog.Warn("writing selection failed", "id", id, "mime", mime, "err", err)
		return
	}
	slog.Debug("selection sent", "id", id, "mime", mime, "bytes", len(data))
}

// Cancelled implements datacontrol.Handler. Cancellation of the owned source
// means another client took the selection; reads resume.
func (e *Engine) Cancelled(s datacontrol.Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.own.source == nil || e.own.source.Key() != s.Key() {
		slog.Debug("stale source cancelled", "source", s.Key())
		return
	}
	slog.Debug("selection taken over by another client", "id", e.own.entry)
	e.release("cancelled")
}

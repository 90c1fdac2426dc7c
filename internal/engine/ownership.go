package engine

import (
	"fmt"
	"log/slog"

	"go.klb.dev/clipd/internal/datacontrol"
)

// Phase is the state of this process's selection ownership.
type Phase int

const (
	// Idle: no source is offered; selections are read.
	Idle Phase = iota
	// Owned: a source was set and its echo has not arrived yet.
	Owned
	// PendingExternalTakeover: the echo arrived; waiting for Cancelled.
	PendingExternalTakeover
)

var phaseNames = [...]string{"idle", "owned", "pending-external-takeover"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown ownership phase %q", b)
}

// Ownership is a snapshot of the ownership state.
type Ownership struct {
	Phase   Phase  `json:"phase"`
	EntryID uint64 `json:"entry_id,omitempty"`
}

type owner struct {
	phase  Phase
	entry  uint64
	source datacontrol.Source
}

// suppressed reports whether selections must not be read.
func (o *owner) suppressed() bool { return o.phase != Idle }

// takeOwnership offers the entry as the selection. Callers hold e.mu.
func (e *Engine) takeOwnership(id uint64) error {
	if e.ctl == nil {
		return ErrNotBound
	}
	entry, err := e.store.Get(id)
	if err != nil {
		return err
	}

	e.release("superseded")

	src, err := e.ctl.CreateSource()
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	for _, mime := range entry.Data.Types() {
		if err := src.Offer(mime); err != nil {
			_ = src.Destroy()
			return fmt.Errorf("offer %s: %w", mime, err)
		}
	}
	if err := e.ctl.SetSelection(src); err != nil {
		_ = src.Destroy()
		return fmt.Errorf("set selection: %w", err)
	}
	e.own = owner{phase: Owned, entry: id, source: src}

	if err := e.ctl.Flush(); err != nil {
		slog.Warn("flush after set_selection failed", "id", id, "err", err)
	}
	slog.Debug("took selection ownership", "id", id, "source", src.Key(), "mimes", len(entry.Data))
	return nil
}

// release destroys the owned source, if any, and returns to Idle. Callers
// hold e.mu.
func (e *Engine) release(reason string) {
	if e.own.source == nil {
		e.own = owner{}
		return
	}
	slog.Debug("releasing selection ownership", "id", e.own.entry, "reason", reason)
	if err := e.own.source.Destroy(); err != nil {
		slog.Warn("destroy source failed", "id", e.own.entry, "err", err)
	}
	e.own = owner{}
	if e.ctl != nil {
		if err := e.ctl.Flush(); err != nil {
			slog.Warn("flush after release failed", "err", err)
		}
	}
}

// releaseIfOwns drops ownership of id before it leaves the history. Callers
// hold e.mu.
func (e *Engine) releaseIfOwns(id uint64, reason string) {
	if e.own.source != nil && e.own.entry == id {
		e.release(reason)
	}
}

// releaseIfEvicted drops ownership when the owned entry is no longer in the
// history. Callers hold e.mu.
func (e *Engine) releaseIfEvicted() {
	if e.own.source != nil && !e.store.Has(e.own.entry) {
		e.release("evicted")
	}
}

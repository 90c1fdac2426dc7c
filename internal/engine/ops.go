package engine

import (
	"fmt"
	"log/slog"

	"go.klb.dev/clipd/internal/history"
	"go.klb.dev/clipd/internal/hub"
)

// History returns the entry previews, newest first after the pinned ones.
func (e *Engine) History() []history.Preview {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.History()
}

// Item returns a full entry including its payloads.
func (e *Engine) Item(id uint64) (history.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Get(id)
}

// SetClipboard makes the entry the current selection.
func (e *Engine) SetClipboard(id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.takeOwnership(id)
}

// SetPinned pins or unpins an entry.
func (e *Engine) SetPinned(id uint64, pinned bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SetPinned(id, pinned); err != nil {
		return err
	}
	e.events.Publish(hub.Event{Kind: hub.ItemPinned, ID: id, Pinned: pinned})
	return nil
}

// Delete removes an entry, first releasing the selection if it is offered.
func (e *Engine) Delete(id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.store.Has(id) {
		return e.store.Delete(id)
	}
	e.releaseIfOwns(id, "deleted")
	if err := e.store.Delete(id); err != nil {
		return err
	}
	e.events.Publish(hub.Event{Kind: hub.ItemDeleted, ID: id})
	return nil
}

// Clear empties the history and releases the selection.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release("history cleared")
	e.store.Clear()
	e.events.Publish(hub.Event{Kind: hub.HistoryCleared})
	slog.Info("history cleared")
}

// Ownership returns a snapshot of the ownership state.
func (e *Engine) Ownership() Ownership {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Ownership{Phase: e.own.phase, EntryID: e.own.entry}
}

// Ingest stores data as if it had been read from a selection, without taking
// ownership.
func (e *Engine) Ingest(data history.MIMEData) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insert(data)
}

// Copy stores data and makes it the current selection. The id is returned
// even when taking ownership fails, but not when the entry could not be kept.
func (e *Engine) Copy(data history.MIMEData) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.insert(data)
	if err != nil {
		return 0, err
	}
	return id, e.takeOwnership(id)
}

// insert adds data to the history. Callers hold e.mu.
func (e *Engine) insert(data history.MIMEData) (uint64, error) {
	id, err := e.store.Insert(data)
	if err != nil {
		return 0, err
	}
	e.releaseIfEvicted()
	p, err := e.store.Summary(id)
	if err != nil {
		// every slot is pinned, so the cap dropped the new entry
		return 0, fmt.Errorf("entry %d not kept: %w", id, history.ErrNotFound)
	}
	e.events.Publish(hub.Event{Kind: hub.NewItem, ID: id, Entry: &p})
	return id, nil
}

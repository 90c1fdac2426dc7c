// Package history keeps the in-memory clipboard history.
//
// Entries are ordered newest first with pinned entries forming a prefix:
//
//	[ pinned ... | unpinned ... ]   len <= MaxEntries
//
// New entries are inserted at the boundary. A Store is not safe for concurrent
// use; the engine serialises access with its own mutex.
package history

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// MaxEntries caps the history length.
const MaxEntries = 100

var (
	// ErrNotFound is returned for an unknown entry id.
	ErrNotFound = errors.New("no clipboard item with that id")

	// ErrEmpty is returned when inserting a MIME map without payloads.
	ErrEmpty = errors.New("clipboard content has no mime types")
)

// Store is an ordered list of entries.
type Store struct {
	entries []*Entry
	nextID  uint64
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nextID: 1, now: time.Now}
}

// Insert adds data as the newest entry and returns its id. An existing entry
// with the same preview is replaced. The oldest entries beyond MaxEntries are
// dropped, pinned or not.
func (s *Store) Insert(data MIMEData) (uint64, error) {
	if len(data) == 0 {
		return 0, ErrEmpty
	}
	preview, ct := describe(data)
	e := &Entry{
		ID:          s.nextID,
		ContentType: ct,
		Preview:     preview,
		Timestamp:   s.now().Unix(),
		Data:        data.Clone(),
	}
	if ct == Image {
		png, _ := data.Get(MIMEPNG)
		e.Thumbnail = Thumbnail(png)
	}
	s.nextID++

	s.entries = slices.DeleteFunc(s.entries, func(x *Entry) bool { return x.Preview == preview })
	s.entries = slices.Insert(s.entries, s.boundary(), e)
	if len(s.entries) > MaxEntries {
		clear(s.entries[MaxEntries:])
		s.entries = s.entries[:MaxEntries]
	}
	return e.ID, nil
}

// boundary is the index of the first unpinned entry.
func (s *Store) boundary() int {
	i := slices.IndexFunc(s.entries, func(x *Entry) bool { return !x.Pinned })
	if i < 0 {
		return len(s.entries)
	}
	return i
}

func (s *Store) index(id uint64) (int, error) {
	i := slices.IndexFunc(s.entries, func(x *Entry) bool { return x.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return i, nil
}

// History returns the previews in order.
func (s *Store) History() []Preview {
	out := make([]Preview, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Summary()
	}
	return out
}

// Get returns a copy of the entry.
func (s *Store) Get(id uint64) (Entry, error) {
	i, err := s.index(id)
	if err != nil {
		return Entry{}, err
	}
	e := *s.entries[i]
	e.Data = e.Data.Clone()
	e.Thumbnail = slices.Clone(e.Thumbnail)
	return e, nil
}

// Summary returns the preview of one entry.
func (s *Store) Summary(id uint64) (Preview, error) {
	i, err := s.index(id)
	if err != nil {
		return Preview{}, err
	}
	return s.entries[i].Summary(), nil
}

// Has reports whether id is in the history.
func (s *Store) Has(id uint64) bool {
	_, err := s.index(id)
	return err == nil
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Delete removes the entry.
func (s *Store) Delete(id uint64) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return nil
}

// Clear removes every entry. Ids are not reused afterwards.
func (s *Store) Clear() {
	clear(s.entries)
	s.entries = s.entries[:0]
}

// SetPinned moves a pinned entry to the front, or an unpinned one to the
// first unpinned position.
func (s *Store) SetPinned(id uint64, pinned bool) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	e := s.entries[i]
	s.entries = slices.Delete(s.entries, i, i+1)
	e.Pinned = pinned
	at := 0
	if !pinned {
		at = s.boundary()
	}
	s.entries = slices.Insert(s.entries, at, e)
	return nil
}

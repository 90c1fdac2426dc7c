// Package message defines the clipd JSON-lines IPC protocol.
//
// Every request and response is exactly one line: <json>\n. A connection may
// carry any number of request/response pairs until it sends SUBSCRIBE; from
// then on the daemon only writes history events. Payload bytes are
// base64-encoded so binary content (images, etc.) is safe to embed in JSON
// strings.
package message

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"go.klb.dev/clipd/internal/history"
	"go.klb.dev/clipd/internal/hub"
)

// Type identifies the kind of message.
type Type string

// Requests.
const (
	TypeGetHistory   Type = "GET_HISTORY"
	TypeGetItem      Type = "GET_ITEM"
	TypeSetClipboard Type = "SET_CLIPBOARD"
	TypeSetPinned    Type = "SET_PINNED"
	TypeDeleteItem   Type = "DELETE_ITEM"
	TypeClearHistory Type = "CLEAR_HISTORY"
	TypeCopy         Type = "COPY"
	TypeSubscribe    Type = "SUBSCRIBE"
)

// Responses.
const (
	TypeHistory        Type = "HISTORY"
	TypeItem           Type = "ITEM"
	TypeClipboardSet   Type = "CLIPBOARD_SET"
	TypeItemPinned     Type = "ITEM_PINNED"
	TypeItemDeleted    Type = "ITEM_DELETED"
	TypeHistoryCleared Type = "HISTORY_CLEARED"
	TypeCopied         Type = "COPIED"
	TypeSubscribed     Type = "SUBSCRIBED"
	TypeError          Type = "ERROR"
)

// Events pushed after SUBSCRIBED. ITEM_PINNED, ITEM_DELETED and
// HISTORY_CLEARED reuse the response types.
const (
	TypeNewItem Type = "NEW_ITEM"
)

// Item is a single clipboard representation with a MIME type.
// Data is always base64-encoded.
type Item struct {
	MIME string `json:"mime"`
	Data string `json:"data"` // base64-encoded
}

// NewItem creates an Item from raw bytes.
func NewItem(mime string, data []byte) Item {
	return Item{
		MIME: mime,
		Data: base64.StdEncoding.EncodeToString(data),
	}
}

// Decode returns the raw bytes of the item payload.
func (it Item) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(it.Data)
}

// ItemsOf encodes a MIME map, keeping its order.
func ItemsOf(data history.MIMEData) []Item {
	out := make([]Item, len(data))
	for i, p := range data {
		out[i] = NewItem(p.MIME, p.Data)
	}
	return out
}

// MIMEData decodes items back into a MIME map.
func MIMEData(items []Item) (history.MIMEData, error) {
	var out history.MIMEData
	for _, it := range items {
		b, err := it.Decode()
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.MIME, err)
		}
		out = out.Set(it.MIME, b)
	}
	return out, nil
}

// Message is the top-level wire envelope.
type Message struct {
	Type Type `json:"type"`

	// SET_CLIPBOARD, SET_PINNED, DELETE_ITEM, GET_ITEM and their responses;
	// COPIED carries the new entry id.
	ID     uint64 `json:"id,omitempty"`
	Pinned bool   `json:"pinned,omitempty"`

	// HISTORY
	History []history.Preview `json:"items,omitempty"`

	// ITEM, COPY: payloads in MIME order
	Data []Item `json:"data,omitempty"`

	// ITEM, NEW_ITEM
	Entry *history.Preview `json:"entry,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}

// FromEvent converts a history event into the message pushed to
// subscribers.
func FromEvent(ev hub.Event) *Message {
	return &Message{Type: Type(ev.Kind), ID: ev.ID, Pinned: ev.Pinned, Entry: ev.Entry}
}

// Errorf builds an ERROR response.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

// TextPayload returns the decoded content of the first text item, or "".
func (m *Message) TextPayload() string {
	for _, it := range m.Data {
		if it.MIME == history.MIMEText || it.MIME == "text/plain" {
			b, err := it.Decode()
			if err != nil {
				return ""
			}
			return string(b)
		}
	}
	return ""
}

package history

import (
	"fmt"
	"slices"
	"strings"
)

// ContentType is the coarse category shown next to an entry.
type ContentType int

const (
	Text ContentType = iota
	URL
	Code
	Password
	File
	Image
	Other
)

var contentTypeNames = [...]string{"Text", "Url", "Code", "Password", "File", "Image", "Other"}

func (t ContentType) String() string {
	if t < 0 || int(t) >= len(contentTypeNames) {
		return fmt.Sprintf("ContentType(%d)", int(t))
	}
	return contentTypeNames[t]
}

// MarshalText encodes the type by name.
func (t ContentType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes a name produced by MarshalText.
func (t *ContentType) UnmarshalText(b []byte) error {
	for i, n := range contentTypeNames {
		if strings.EqualFold(n, string(b)) {
			*t = ContentType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown content type %q", b)
}

// Payload is the data stored for one MIME type.
type Payload struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// MIMEData maps MIME types to payloads, keeping the order types were added.
type MIMEData []Payload

// Get returns the payload for mime.
func (m MIMEData) Get(mime string) ([]byte, bool) {
	for _, p := range m {
		if p.MIME == mime {
			return p.Data, true
		}
	}
	return nil, false
}

// Set adds or replaces the payload for mime. A replaced type keeps its
// position.
func (m MIMEData) Set(mime string, data []byte) MIMEData {
	for i := range m {
		if m[i].MIME == mime {
			m[i].Data = data
			return m
		}
	}
	return append(m, Payload{MIME: mime, Data: data})
}

// Types lists the MIME types in order.
func (m MIMEData) Types() []string {
	out := make([]string, len(m))
	for i, p := range m {
		out[i] = p.MIME
	}
	return out
}

// Clone returns a deep copy.
func (m MIMEData) Clone() MIMEData {
	if m == nil {
		return nil
	}
	out := make(MIMEData, len(m))
	for i, p := range m {
		out[i] = Payload{MIME: p.MIME, Data: slices.Clone(p.Data)}
	}
	return out
}

// Entry is one item of clipboard history.
type Entry struct {
	ID          uint64
	ContentType ContentType
	Preview     string
	Timestamp   int64
	Pinned      bool
	Data        MIMEData
	Thumbnail   []byte
}

// Preview is the public view of an Entry: no payloads, no full text.
type Preview struct {
	ID          uint64      `json:"id"`
	ContentType ContentType `json:"content_type"`
	Preview     string      `json:"preview"`
	Timestamp   int64       `json:"timestamp"`
	Pinned      bool        `json:"pinned"`
	Thumbnail   []byte      `json:"thumbnail,omitempty"`
}

// Summary returns the public view of the entry.
func (e *Entry) Summary() Preview {
	return Preview{
		ID:          e.ID,
		ContentType: e.ContentType,
		Preview:     e.Preview,
		Timestamp:   e.Timestamp,
		Pinned:      e.Pinned,
		Thumbnail:   e.Thumbnail,
	}
}

// String renders the preview on one line for logs and the CLI.
func (p Preview) String() string {
	s := strings.ReplaceAll(p.Preview, "\n", "⏎")
	if p.Pinned {
		return fmt.Sprintf("%d\t%s\t📌 %s", p.ID, p.ContentType, s)
	}
	return fmt.Sprintf("%d\t%s\t%s", p.ID, p.ContentType, s)
}

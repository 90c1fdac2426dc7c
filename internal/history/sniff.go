package history

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MIMEText is the MIME type used for text previews.
	MIMEText = "text/plain;charset=utf-8"
	// MIMEPNG is the MIME type that marks an entry as an image.
	MIMEPNG = "image/png"

	// PreviewRunes bounds the text preview.
	PreviewRunes = 200
)

const passwordSpecials = "!@#$%^&*()-_=+[]{};:,.<>?/\\|`~"

// describe derives the preview and content type of a MIME map.
func describe(data MIMEData) (string, ContentType) {
	if png, ok := data.Get(MIMEPNG); ok {
		return placeholder(MIMEPNG, png), Image
	}

	if txt, ok := data.Get(MIMEText); ok && utf8.Valid(txt) {
		preview := truncate(string(txt), PreviewRunes)
		return preview, Sniff(preview)
	}
	return placeholder(data[0].MIME, data[0].Data), Other
}

func placeholder(mime string, b []byte) string {
	return fmt.Sprintf("<%s %d bytes>", mime, len(b))
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Sniff guesses the content type of a text preview.
func Sniff(s string) ContentType {
	switch {
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return URL
	case strings.Contains(s, "fn "), strings.Contains(s, "impl "), strings.Contains(s, "struct "):
		return Code
	case strings.Contains(s, "/") && !strings.Contains(s, " ") && len(s) < 256:
		return File
	case s != "" && len(s) < 50 && !strings.Contains(s, " ") && strings.ContainsAny(s, passwordSpecials):
		return Password
	default:
		return Text
	}
}

package hub

import (
	"context"
	"log/slog"
)

// logEvent logs a published event at DEBUG, with the entry preview when there
// is one.
func logEvent(ev Event, delivered int) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{"kind", ev.Kind, "id", ev.ID, "delivered", delivered}
	if ev.Entry != nil {
		preview := ev.Entry.Preview
		if r := []rune(preview); len(r) > 60 {
			preview = string(r[:60]) + "…"
		}
		attrs = append(attrs, "content_type", ev.Entry.ContentType, "preview", preview)
	}
	slog.Debug("history event", attrs...)
}

package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"go.klb.dev/clipd/internal/datacontrol"
	"go.klb.dev/clipd/internal/history"
)

// imagePreference orders the image types read when an offer carries images.
var imagePreference = []string{"image/png", "image/jpeg", "image/bmp"}

// targets narrows the announced types to the ones worth reading: one image
// type if any preferred image is offered, every type otherwise.
func targets(mimes []string) []string {
	for _, want := range imagePreference {
		if slices.Contains(mimes, want) {
			return []string{want}
		}
	}
	return slices.Clone(mimes)
}

// pipe owns both ends of an os.Pipe until Close.
type pipe struct {
	r, w *os.File
}

func openPipe() (*pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	return &pipe{r: r, w: w}, nil
}

// closeWrite closes the local write end so the reader sees EOF once the
// remote copy is closed too.
func (p *pipe) closeWrite() error {
	if p.w == nil {
		return nil
	}
	err := p.w.Close()
	p.w = nil
	return err
}

func (p *pipe) Close() error {
	return errors.Join(p.closeWrite(), p.r.Close())
}

// withPipe runs fn with a fresh pipe and closes both ends on every path.
func withPipe(fn func(p *pipe) error) (err error) {
	p, err := openPipe()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(p)
}

// receive reads one MIME type from an offer. It blocks until the selection
// owner closes its end of the pipe.
func receive(o datacontrol.Offer, flush func() error, mime string) ([]byte, error) {
	var data []byte
	err := withPipe(func(p *pipe) error {
		if err := o.Receive(mime, p.w); err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if err := flush(); err != nil {
			return err
		}
		if err := p.closeWrite(); err != nil {
			return err
		}
		var err error
		data, err = io.ReadAll(p.r)
		return err
	})
	return data, err
}

// readOffer reads every target type of an offer. A type that fails or yields
// no bytes is skipped.
func readOffer(o datacontrol.Offer, flush func() error, mimes []string) history.MIMEData {
	var out history.MIMEData
	for _, mime := range targets(mimes) {
		data, err := receive(o, flush, mime)
		if err != nil {
			slog.Warn("reading offer failed", "offer", o.Key(), "mime", mime, "err", err)
			continue
		}
		if len(data) == 0 {
			slog.Debug("offer produced no data", "offer", o.Key(), "mime", mime)
			continue
		}
		out = out.Set(mime, data)
	}
	return out
}

// acceptMIME filters MIME types as they are announced.
func acceptMIME(mime string) bool {
	return !strings.HasPrefix(mime, "video")
}

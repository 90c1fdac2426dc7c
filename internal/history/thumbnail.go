package history

import (
	"bytes"
	"image"
	"image/jpeg"
	"log/slog"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Thumbnail bounds.
const (
	ThumbWidth  = 300
	ThumbHeight = 180
)

// Thumbnail scales an image payload to fit ThumbWidth x ThumbHeight and
// encodes it as JPEG. Payloads that already fit, or that cannot be decoded,
// are returned unchanged.
func Thumbnail(data []byte) []byte {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("thumbnail: undecodable image, keeping original", "bytes", len(data), "err", err)
		return data
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || (w <= ThumbWidth && h <= ThumbHeight) {
		return data
	}

	dw, dh := fit(w, h, ThumbWidth, ThumbHeight)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		slog.Warn("thumbnail: encode failed", "format", format, "err", err)
		return data
	}
	return buf.Bytes()
}

// fit scales w x h uniformly so it fits within maxW x maxH.
func fit(w, h, maxW, maxH int) (int, int) {
	sw := float64(maxW) / float64(w)
	sh := float64(maxH) / float64(h)
	s := min(sw, sh)
	dw := max(int(float64(w)*s+0.5), 1)
	dh := max(int(float64(h)*s+0.5), 1)
	return dw, dh
}

// Package decoder turns encoded image bytes into a canonical raster.Image.
package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"pixshift/logger"
	"pixshift/raster"

	"github.com/gen2brain/avif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnknownFormat is the primary-path error for bytes that match no known signature.
var ErrUnknownFormat = errors.New("unrecognized image format")

// DecodeError is returned when both the primary and the fallback decoder fail.
type DecodeError struct {
	Primary  error
	Fallback error
}

func (e *DecodeError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("failed to decode image: %v", e.Primary)
	}
	return fmt.Sprintf("failed to decode image: %v (AVIF decode also failed: %v)", e.Primary, e.Fallback)
}

func (e *DecodeError) Unwrap() []error {
	var errs []error
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}

type signature struct {
	name   string
	match  func([]byte) bool
	decode func(io.Reader) (image.Image, error)
}

func prefix(p string) func([]byte) bool {
	return func(b []byte) bool { return bytes.HasPrefix(b, []byte(p)) }
}

func isRIFFWebP(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP"
}

// primary lists the formats the general-purpose path recognizes. AVIF is
// deliberately absent: it is only reached through the fallback.
var primary = []signature{
	{"jpeg", prefix("\xff\xd8\xff"), jpeg.Decode},
	{"png", prefix("\x89PNG\r\n\x1a\n"), png.Decode},
	{"gif", prefix("GIF8"), gif.Decode},
	{"webp", isRIFFWebP, webp.Decode},
	{"bmp", prefix("BM"), bmp.Decode},
	{"tiff", func(b []byte) bool { return prefix("II*\x00")(b) || prefix("MM\x00*")(b) }, tiff.Decode},
}

// Sniff returns the primary-path format name for data, or "" when none matches.
func Sniff(data []byte) string {
	for _, s := range primary {
		if s.match(data) {
			return s.name
		}
	}
	return ""
}

// Decode decodes data with the primary path and falls back to the AVIF
// decoder when that fails.
func Decode(data []byte) (*raster.Image, error) {
	img, perr := decodePrimary(data)
	if perr == nil {
		return img, nil
	}
	logger.Debugf("primary decode failed (%v), trying AVIF fallback", perr)

	img, ferr := decodeFallback(data)
	if ferr != nil {
		return nil, &DecodeError{Primary: perr, Fallback: ferr}
	}
	return img, nil
}

func decodePrimary(data []byte) (*raster.Image, error) {
	for _, s := range primary {
		if !s.match(data) {
			continue
		}
		m, err := s.decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		return raster.FromImage(m)
	}
	return nil, ErrUnknownFormat
}

func decodeFallback(data []byte) (*raster.Image, error) {
	m, err := avif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return materialize(m)
}

// materialize maps the fallback decoder's output onto the normalization table.
func materialize(m image.Image) (*raster.Image, error) {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	switch p := m.(type) {
	case *image.RGBA:
		return raster.Normalize(raster.Layout{Channels: 4, BitDepth: 8}, w, h, p.Stride, p.Pix[p.PixOffset(b.Min.X, b.Min.Y):])
	case *image.NRGBA:
		return raster.Normalize(raster.Layout{Channels: 4, BitDepth: 8}, w, h, p.Stride, p.Pix[p.PixOffset(b.Min.X, b.Min.Y):])
	case *image.RGBA64:
		return raster.Normalize(raster.Layout{Channels: 4, BitDepth: 16}, w, h, p.Stride, p.Pix[p.PixOffset(b.Min.X, b.Min.Y):])
	case *image.NRGBA64:
		return raster.Normalize(raster.Layout{Channels: 4, BitDepth: 16}, w, h, p.Stride, p.Pix[p.PixOffset(b.Min.X, b.Min.Y):])
	case *image.Gray:
		return raster.Normalize(raster.Layout{Channels: 1, BitDepth: 8}, w, h, p.Stride, p.Pix[p.PixOffset(b.Min.X, b.Min.Y):])
	case *image.Gray16:
		return raster.Normalize(raster.Layout{Channels: 1, BitDepth: 16}, w, h, p.Stride, p.Pix[p.PixOffset(b.Min.X, b.Min.Y):])
	default:
		return nil, fmt.Errorf("cannot materialize pixel buffer from %T", m)
	}
}

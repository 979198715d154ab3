package encoder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pixshift/logger"
	"pixshift/raster"

	"github.com/disintegration/imaging"
)

// Format is a closed set of encoder kinds a target identifier resolves to.
type Format int

const (
	FormatUnsupported Format = iota
	FormatWebP               // lossy, 3-channel, metadata
	FormatJPEG               // baseline, 3-channel, metadata
	FormatPNG                // lossless, 4-channel, metadata, quality ignored
	FormatAVIF               // 4-channel, quality and speed, no metadata
	FormatTIFF               // archival, no quality, no metadata
	FormatByExtension        // any other format known by its file extension
	FormatFault              // reserved identifier that always fails
)

func (f Format) String() string {
	switch f {
	case FormatWebP:
		return "webp"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatAVIF:
		return "avif"
	case FormatTIFF:
		return "tiff"
	case FormatByExtension:
		return "extension"
	case FormatFault:
		return "fault"
	default:
		return "unsupported"
	}
}

// FaultIdentifier is the target identifier reserved for fault injection.
const FaultIdentifier = "error"

// ErrFaultInjection is the fixed error every job targeting FaultIdentifier gets.
var ErrFaultInjection = errors.New("Intentional error for testing (dev mode)")

// Target is a parsed target format identifier.
type Target struct {
	ID     string // lowercased identifier, also the output extension
	Format Format
}

// SupportsMetadata reports whether the target can carry a raw EXIF block.
func (t Target) SupportsMetadata() bool {
	return t.Format == FormatWebP || t.Format == FormatJPEG || t.Format == FormatPNG
}

// ParseTarget resolves a target identifier.
func ParseTarget(id string) Target {
	id = strings.ToLower(strings.TrimSpace(id))
	t := Target{ID: id}
	switch id {
	case "webp":
		t.Format = FormatWebP
	case "jpeg", "jpg":
		t.Format = FormatJPEG
	case "png":
		t.Format = FormatPNG
	case "avif":
		t.Format = FormatAVIF
	case "tiff", "tif":
		t.Format = FormatTIFF
	case FaultIdentifier:
		t.Format = FormatFault
	default:
		if _, err := imaging.FormatFromExtension(id); err == nil && id != "" {
			t.Format = FormatByExtension
		}
	}
	return t
}

// EncodeOptions carries the per-batch knobs. Encoders ignore what they do not support.
type EncodeOptions struct {
	Quality int
	Speed   int
	Exif    []byte // nil means no block
}

// EncodeFunc is the function signature for any encoder
type EncodeFunc func(ctx context.Context, t Target, img *raster.Image, opts EncodeOptions) ([]byte, error)

// UnsupportedFormatError is returned for identifiers no encoder handles.
type UnsupportedFormatError struct {
	ID string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.ID)
}

// EncodeError wraps a codec or metadata splice failure.
type EncodeError struct {
	Target string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Target, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// registry maps each encoder kind to its handler. FormatUnsupported and
// FormatFault are handled in Encode and never reach it.
var registry = map[Format]EncodeFunc{
	FormatWebP:        encodeWebP,
	FormatJPEG:        encodeJPEG,
	FormatPNG:         encodePNG,
	FormatAVIF:        encodeAVIF,
	FormatTIFF:        encodeTIFF,
	FormatByExtension: encodeByExtension,
}

// Get looks up the encoder for a format.
func Get(f Format) (EncodeFunc, bool) {
	fn, ok := registry[f]
	return fn, ok
}

// Check returns the error Encode would fail with before doing any codec work,
// or nil when t has an encoder.
func Check(t Target) error {
	switch t.Format {
	case FormatFault:
		return ErrFaultInjection
	case FormatUnsupported:
		return &UnsupportedFormatError{ID: t.ID}
	}
	if _, ok := Get(t.Format); !ok {
		return &UnsupportedFormatError{ID: t.ID}
	}
	return nil
}

// Encode encodes img for target t.
func Encode(ctx context.Context, t Target, img *raster.Image, opts EncodeOptions) ([]byte, error) {
	if err := Check(t); err != nil {
		return nil, err
	}
	fn, _ := Get(t.Format)
	data, err := fn(ctx, t, img, opts)
	if err != nil {
		var encErr *EncodeError
		var unsupported *UnsupportedFormatError
		if errors.As(err, &encErr) || errors.As(err, &unsupported) {
			return nil, err
		}
		return nil, &EncodeError{Target: t.ID, Err: err}
	}
	logger.Debugf("encoded %dx%d image as %s (%d bytes)", img.Width, img.Height, t.ID, len(data))
	return data, nil
}

func clampQuality(q, lo int) int {
	if q < lo {
		return lo
	}
	if q > 100 {
		return 100
	}
	return q
}

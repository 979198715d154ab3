package encoder

import (
	"bytes"
	"context"
	"image"

	"pixshift/raster"

	"github.com/gen2brain/avif"
)

const (
	minAVIFSpeed = 1
	maxAVIFSpeed = 10
)

// ClampSpeed brings an AVIF speed knob into 1 (slowest, smallest) .. 10 (fastest).
func ClampSpeed(speed int) int {
	if speed < minAVIFSpeed {
		return minAVIFSpeed
	}
	if speed > maxAVIFSpeed {
		return maxAVIFSpeed
	}
	return speed
}

// encodeAVIF encodes the 4-channel view. Metadata is not supported for AVIF
// and o.Exif is ignored. The encoder runs single-threaded per image since
// gen2brain/avif exposes no thread count; parallelism comes from the batch
// scheduler running several jobs at once.
func encodeAVIF(ctx context.Context, t Target, img *raster.Image, o EncodeOptions) ([]byte, error) {
	q := clampQuality(o.Quality, 0)
	var buf bytes.Buffer
	err := avif.Encode(&buf, img.NRGBA(), avif.Options{
		Quality:           q,
		QualityAlpha:      q,
		Speed:             ClampSpeed(o.Speed),
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

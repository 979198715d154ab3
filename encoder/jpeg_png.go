package encoder

import (
	"bytes"
	"context"

	"pixshift/metadata"
	"pixshift/raster"

	"github.com/disintegration/imaging"
)

// encodeJPEG writes a baseline JPEG from the 3-channel view
func encodeJPEG(ctx context.Context, t Target, img *raster.Image, o EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.RGB(), imaging.JPEG, imaging.JPEGQuality(clampQuality(o.Quality, 1))); err != nil {
		return nil, err
	}
	if o.Exif == nil {
		return buf.Bytes(), nil
	}
	return metadata.EmbedJPEG(buf.Bytes(), o.Exif)
}

// encodePNG writes a 4-channel PNG. Quality has no effect.
func encodePNG(ctx context.Context, t Target, img *raster.Image, o EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.NRGBA(), imaging.PNG); err != nil {
		return nil, err
	}
	if o.Exif == nil {
		return buf.Bytes(), nil
	}
	return metadata.EmbedPNG(buf.Bytes(), o.Exif)
}

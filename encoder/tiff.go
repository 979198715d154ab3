package encoder

import (
	"bytes"
	"context"

	"pixshift/raster"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
)

func encodeTIFF(ctx context.Context, t Target, img *raster.Image, o EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeByExtension handles the remaining formats imaging knows by extension (gif, bmp).
func encodeByExtension(ctx context.Context, t Target, img *raster.Image, o EncodeOptions) ([]byte, error) {
	f, err := imaging.FormatFromExtension(t.ID)
	if err != nil {
		return nil, &UnsupportedFormatError{ID: t.ID}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.NRGBA(), f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

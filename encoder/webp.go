package encoder

import (
	"context"

	"pixshift/metadata"
	"pixshift/raster"

	"github.com/chai2010/webp"
)

func encodeWebP(ctx context.Context, t Target, img *raster.Image, o EncodeOptions) ([]byte, error) {
	rgb := img.RGB()
	view := &webp.RGBImage{
		XPix:    rgb.Pix,
		XStride: rgb.Width * 3,
		XRect:   rgb.Bounds(),
	}
	data, err := webp.EncodeRGB(view, float32(clampQuality(o.Quality, 0)))
	if err != nil {
		return nil, err
	}
	if o.Exif == nil {
		return data, nil
	}
	return metadata.EmbedWebP(data, o.Exif)
}

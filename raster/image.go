// Package raster holds the canonical pixel buffer every encoder consumes.
package raster

import (
	"fmt"
	"image"
	"image/color"
)

// Image is an 8-bit, tightly packed, row-major pixel buffer with 1 (gray),
// 3 (RGB) or 4 (straight-alpha RGBA) channels.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

var _ image.Image = (*Image)(nil)

// New allocates a zeroed canonical image.
func New(width, height, channels int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	switch channels {
	case 1, 3, 4:
	default:
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}, nil
}

func (m *Image) stride() int { return m.Width * m.Channels }

func (m *Image) ColorModel() color.Model {
	switch m.Channels {
	case 1:
		return color.GrayModel
	case 3:
		return color.RGBAModel
	default:
		return color.NRGBAModel
	}
}

func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

func (m *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.NRGBA{}
	}
	i := y*m.stride() + x*m.Channels
	switch m.Channels {
	case 1:
		return color.Gray{Y: m.Pix[i]}
	case 3:
		return color.RGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: 0xff}
	default:
		return color.NRGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: m.Pix[i+3]}
	}
}

// Opaque reports whether every pixel is fully opaque.
func (m *Image) Opaque() bool {
	if m.Channels != 4 {
		return true
	}
	for i := 3; i < len(m.Pix); i += 4 {
		if m.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// RGB returns a 3-channel view. Alpha is dropped, gray is replicated.
// A 3-channel image is returned as is.
func (m *Image) RGB() *Image {
	if m.Channels == 3 {
		return m
	}
	out := &Image{Width: m.Width, Height: m.Height, Channels: 3, Pix: make([]uint8, m.Width*m.Height*3)}
	n := m.Width * m.Height
	for p := 0; p < n; p++ {
		src := p * m.Channels
		dst := p * 3
		if m.Channels == 1 {
			out.Pix[dst], out.Pix[dst+1], out.Pix[dst+2] = m.Pix[src], m.Pix[src], m.Pix[src]
			continue
		}
		copy(out.Pix[dst:dst+3], m.Pix[src:src+3])
	}
	return out
}

// NRGBA returns a 4-channel copy as a standard library image.
func (m *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(m.Bounds())
	if m.Channels == 4 {
		copy(out.Pix, m.Pix)
		return out
	}
	n := m.Width * m.Height
	for p := 0; p < n; p++ {
		src := p * m.Channels
		dst := p * 4
		if m.Channels == 1 {
			out.Pix[dst], out.Pix[dst+1], out.Pix[dst+2] = m.Pix[src], m.Pix[src], m.Pix[src]
		} else {
			copy(out.Pix[dst:dst+3], m.Pix[src:src+3])
		}
		out.Pix[dst+3] = 0xff
	}
	return out
}

// FromImage converts a decoded image into the canonical buffer. Gray sources
// keep one channel, opaque sources get three and everything else gets four.
// 16-bit sources keep the high byte of each sample.
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	switch s := src.(type) {
	case *Image:
		return s, nil
	case *image.Gray:
		return Normalize(Layout{Channels: 1, BitDepth: 8}, b.Dx(), b.Dy(), s.Stride, s.Pix[s.PixOffset(b.Min.X, b.Min.Y):])
	case *image.Gray16:
		return Normalize(Layout{Channels: 1, BitDepth: 16}, b.Dx(), b.Dy(), s.Stride, s.Pix[s.PixOffset(b.Min.X, b.Min.Y):])
	case *image.NRGBA:
		return Normalize(Layout{Channels: 4, BitDepth: 8}, b.Dx(), b.Dy(), s.Stride, s.Pix[s.PixOffset(b.Min.X, b.Min.Y):])
	case *image.NRGBA64:
		return Normalize(Layout{Channels: 4, BitDepth: 16}, b.Dx(), b.Dy(), s.Stride, s.Pix[s.PixOffset(b.Min.X, b.Min.Y):])
	}

	channels := 4
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		channels = 3
	}
	out, err := New(b.Dx(), b.Dy(), channels)
	if err != nil {
		return nil, err
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
			if channels == 4 {
				out.Pix[i+3] = c.A
			}
			i += channels
		}
	}
	return out, nil
}

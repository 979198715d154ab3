package raster

import "fmt"

// Layout describes a decoded pixel buffer before normalization.
type Layout struct {
	Channels int // 1, 3 or 4
	BitDepth int // 8 or 16
}

func (l Layout) String() string {
	return fmt.Sprintf("%dch/%dbit", l.Channels, l.BitDepth)
}

// Strategy is how samples of a layout are brought down to 8 bits.
type Strategy int

const (
	// Copy takes 8-bit samples as they are.
	Copy Strategy = iota
	// HighByte keeps the most significant byte of each big-endian 16-bit sample.
	HighByte
)

func (s Strategy) String() string {
	if s == HighByte {
		return "high-byte"
	}
	return "copy"
}

// StrategyFor maps a source layout to its normalization strategy.
//
//	RGBA 4ch 8bit   copy
//	RGB  3ch 8bit   copy
//	RGBA 4ch 16bit  high byte
//	RGB  3ch 16bit  high byte
//	Gray 1ch 8bit   copy
//	Gray 1ch 16bit  high byte
func StrategyFor(l Layout) (Strategy, error) {
	switch l.Channels {
	case 1, 3, 4:
	default:
		return 0, fmt.Errorf("unsupported layout %s", l)
	}
	switch l.BitDepth {
	case 8:
		return Copy, nil
	case 16:
		return HighByte, nil
	default:
		return 0, fmt.Errorf("unsupported layout %s", l)
	}
}

// Normalize builds a canonical image from rows of samples in layout l.
// stride is the byte distance between row starts in pix.
func Normalize(l Layout, width, height, stride int, pix []byte) (*Image, error) {
	strategy, err := StrategyFor(l)
	if err != nil {
		return nil, err
	}
	out, err := New(width, height, l.Channels)
	if err != nil {
		return nil, err
	}

	bytesPerSample := l.BitDepth / 8
	rowLen := width * l.Channels * bytesPerSample
	if stride < rowLen {
		return nil, fmt.Errorf("stride %d shorter than row of %d bytes", stride, rowLen)
	}
	if len(pix) < (height-1)*stride+rowLen {
		return nil, fmt.Errorf("pixel buffer too short for %dx%d %s", width, height, l)
	}

	dstStride := out.stride()
	for y := 0; y < height; y++ {
		row := pix[y*stride : y*stride+rowLen]
		dst := out.Pix[y*dstStride : (y+1)*dstStride]
		switch strategy {
		case Copy:
			copy(dst, row)
		case HighByte:
			for i := range dst {
				dst[i] = row[i*2]
			}
		}
	}
	return out, nil
}

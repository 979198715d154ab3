package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chai2010/webp"
)

const vp8xExifFlag = 0x08

func extractWebP(data []byte) ([]byte, error) {
	return webp.GetMetadata(data, "EXIF")
}

// EmbedWebP replaces the EXIF chunk of a WebP file with block.
// A nil block removes any existing one.
func EmbedWebP(data, block []byte) ([]byte, error) {
	if !isWebP(data) {
		return nil, errors.New("reparse webp: not a RIFF/WEBP container")
	}
	stripped, err := dropRIFFChunk(data, "EXIF")
	if err != nil {
		return nil, fmt.Errorf("reparse webp: %w", err)
	}
	if block == nil {
		return stripped, nil
	}
	if len(block) == 0 {
		return nil, errors.New("empty metadata block")
	}
	out, err := webp.SetMetadata(stripped, block, "EXIF")
	if err != nil {
		return nil, fmt.Errorf("set webp metadata: %w", err)
	}
	return out, nil
}

// dropRIFFChunk removes every chunk with the given fourcc, fixes the RIFF
// size and clears the matching VP8X feature flag.
func dropRIFFChunk(data []byte, fourcc string) ([]byte, error) {
	out := make([]byte, 12, len(data))
	copy(out, data[:12])

	vp8x := -1
	found := false
	for off := 12; off < len(data); {
		if off+8 > len(data) {
			return nil, errors.New("truncated chunk header")
		}
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		end := off + 8 + size + size&1
		if end > len(data) {
			if off+8+size != len(data) {
				return nil, errors.New("truncated chunk")
			}
			end = len(data)
		}
		id := string(data[off : off+4])
		if id == fourcc {
			found = true
		} else {
			if id == "VP8X" {
				vp8x = len(out)
			}
			out = append(out, data[off:end]...)
		}
		off = end
	}
	if !found {
		return data, nil
	}
	if vp8x >= 0 && fourcc == "EXIF" && len(out) > vp8x+8 {
		out[vp8x+8] &^= vp8xExifFlag
	}
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out, nil
}

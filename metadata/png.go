package metadata

import (
	"bytes"
	"errors"
	"fmt"

	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
)

func parsePNG(data []byte) (*pngstructure.ChunkSlice, error) {
	var cs *pngstructure.ChunkSlice
	err := guard("png", func() error {
		mc, err := pngstructure.NewPngMediaParser().ParseBytes(data)
		if err != nil {
			return err
		}
		slice, ok := mc.(*pngstructure.ChunkSlice)
		if !ok || slice == nil {
			return errors.New("unexpected png media context")
		}
		cs = slice
		return nil
	})
	return cs, err
}

func extractPNG(data []byte) ([]byte, error) {
	cs, err := parsePNG(data)
	if err != nil {
		return nil, err
	}
	if chunks := cs.Index()[pngstructure.EXifChunkType]; len(chunks) > 0 {
		return append([]byte(nil), chunks[0].Data...), nil
	}
	return nil, nil
}

// EmbedPNG reparses data as PNG and replaces its eXIf chunk with block.
// A nil block removes any existing one.
func EmbedPNG(data, block []byte) ([]byte, error) {
	if !isPNG(data) {
		return nil, errors.New("reparse png: missing signature")
	}
	cs, err := parsePNG(data)
	if err != nil {
		return nil, fmt.Errorf("reparse png: %w", err)
	}

	chunks := make([]*pngstructure.Chunk, 0, len(cs.Chunks())+1)
	for _, c := range cs.Chunks() {
		if c.Type == pngstructure.EXifChunkType {
			continue
		}
		chunks = append(chunks, c)
	}
	if len(chunks) == 0 || chunks[0].Type != pngstructure.IHDRChunkType {
		return nil, errors.New("png does not start with IHDR")
	}
	if block != nil {
		exifChunk := &pngstructure.Chunk{
			Type:   pngstructure.EXifChunkType,
			Data:   append([]byte(nil), block...),
			Length: uint32(len(block)),
		}
		exifChunk.UpdateCrc32()
		chunks = append(chunks[:1], append([]*pngstructure.Chunk{exifChunk}, chunks[1:]...)...)
	}

	var buf bytes.Buffer
	err = guard("png", func() error {
		return pngstructure.NewChunkSlice(chunks).WriteTo(&buf)
	})
	if err != nil {
		return nil, fmt.Errorf("rewrite png: %w", err)
	}
	return buf.Bytes(), nil
}

package metadata

import (
	"bytes"
	"errors"
	"fmt"

	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// maxAPP1Payload is the largest segment body a 16-bit JPEG length can describe.
const maxAPP1Payload = 0xffff - 2

func parseJPEG(data []byte) (*jpegstructure.SegmentList, error) {
	var sl *jpegstructure.SegmentList
	err := guard("jpeg", func() error {
		mc, err := jpegstructure.NewJpegMediaParser().ParseBytes(data)
		if err != nil {
			return err
		}
		list, ok := mc.(*jpegstructure.SegmentList)
		if !ok || list == nil {
			return errors.New("unexpected jpeg media context")
		}
		sl = list
		return nil
	})
	return sl, err
}

func extractJPEG(data []byte) ([]byte, error) {
	sl, err := parseJPEG(data)
	if err != nil {
		return nil, err
	}
	for _, s := range sl.Segments() {
		if s.IsExif() {
			return append([]byte(nil), s.Data[len(exifHeader):]...), nil
		}
	}
	return nil, nil
}

// EmbedJPEG reparses data as JPEG and replaces its EXIF block with block.
// A nil block removes any existing one.
func EmbedJPEG(data, block []byte) ([]byte, error) {
	if !isJPEG(data) {
		return nil, errors.New("reparse jpeg: missing SOI marker")
	}
	sl, err := parseJPEG(data)
	if err != nil {
		return nil, fmt.Errorf("reparse jpeg: %w", err)
	}
	if len(exifHeader)+len(block) > maxAPP1Payload {
		return nil, fmt.Errorf("metadata block of %d bytes does not fit in an APP1 segment", len(block))
	}

	segments := make([]*jpegstructure.Segment, 0, len(sl.Segments())+1)
	for _, s := range sl.Segments() {
		if s.IsExif() {
			continue
		}
		segments = append(segments, s)
	}
	if len(segments) == 0 {
		return nil, errors.New("jpeg has no segments")
	}
	if block != nil {
		app1 := &jpegstructure.Segment{
			MarkerId:   jpegstructure.MARKER_APP1,
			MarkerName: "APP1",
			Data:       append(append([]byte(nil), exifHeader...), block...),
		}
		// right after SOI
		segments = append(segments[:1], append([]*jpegstructure.Segment{app1}, segments[1:]...)...)
	}

	var buf bytes.Buffer
	err = guard("jpeg", func() error {
		return jpegstructure.NewSegmentList(segments).Write(&buf)
	})
	if err != nil {
		return nil, fmt.Errorf("rewrite jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Package metadata carries a raw EXIF block from source bytes to freshly
// encoded bytes. The block is never interpreted.
package metadata

import (
	"bytes"
	"fmt"

	"pixshift/logger"
)

// exifHeader prefixes the EXIF payload inside a JPEG APP1 segment.
var exifHeader = []byte("Exif\x00\x00")

// Extract returns the raw EXIF block of a JPEG, PNG or WebP image, trying the
// containers in that order. ok is false when data is none of those or
// carries no block.
func Extract(data []byte) (block []byte, ok bool) {
	for _, c := range containers {
		if !c.sniff(data) {
			continue
		}
		block, err := c.extract(data)
		if err != nil {
			logger.Debugf("no %s metadata: %v", c.name, err)
			continue
		}
		if len(block) > 0 {
			return block, true
		}
	}
	return nil, false
}

type container struct {
	name    string
	sniff   func([]byte) bool
	extract func([]byte) ([]byte, error)
}

var containers = []container{
	{"jpeg", isJPEG, extractJPEG},
	{"png", isPNG, extractPNG},
	{"webp", isWebP, extractWebP},
}

func isJPEG(b []byte) bool { return len(b) >= 3 && b[0] == 0xff && b[1] == 0xd8 && b[2] == 0xff }

func isPNG(b []byte) bool { return bytes.HasPrefix(b, []byte("\x89PNG\r\n\x1a\n")) }

func isWebP(b []byte) bool {
	return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP"
}

// guard converts a panic raised inside a container parser into an error.
func guard(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s parser panicked: %v", name, r)
		}
	}()
	return fn()
}

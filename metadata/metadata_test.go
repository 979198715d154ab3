package metadata

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
)

// sampleBlock is a minimal big-endian TIFF header with an empty IFD.
var sampleBlock = []byte("MM\x00\x2a\x00\x00\x00\x08\x00\x00\x00\x00\x00\x00")

func sampleImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 90, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, sampleImage(), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, sampleImage()); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func encodeWebP(t *testing.T) []byte {
	t.Helper()
	data, err := webp.EncodeRGB(sampleImage(), 80)
	if err != nil {
		t.Fatalf("webp.EncodeRGB failed: %v", err)
	}
	return data
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*testing.T) []byte
		embed  func([]byte, []byte) ([]byte, error)
	}{
		{"jpeg", encodeJPEG, EmbedJPEG},
		{"png", encodePNG, EmbedPNG},
		{"webp", encodeWebP, EmbedWebP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plain := tt.encode(t)
			if _, ok := Extract(plain); ok {
				t.Fatal("Freshly encoded image should carry no metadata")
			}

			tagged, err := tt.embed(plain, sampleBlock)
			if err != nil {
				t.Fatalf("embed failed: %v", err)
			}
			got, ok := Extract(tagged)
			if !ok {
				t.Fatal("Expected metadata after embed")
			}
			if !bytes.Equal(got, sampleBlock) {
				t.Errorf("Extracted block %q, want %q", got, sampleBlock)
			}

			// replacing keeps exactly one block
			other := append([]byte(nil), sampleBlock...)
			other[len(other)-1] = 0x01
			replaced, err := tt.embed(tagged, other)
			if err != nil {
				t.Fatalf("replace failed: %v", err)
			}
			if got, _ := Extract(replaced); !bytes.Equal(got, other) {
				t.Errorf("Expected replaced block %q, got %q", other, got)
			}

			cleared, err := tt.embed(tagged, nil)
			if err != nil {
				t.Fatalf("clear failed: %v", err)
			}
			if _, ok := Extract(cleared); ok {
				t.Error("Expected no metadata after clearing")
			}
		})
	}
}

func TestEmbedRejectsWrongContainer(t *testing.T) {
	pngData := encodePNG(t)
	if _, err := EmbedJPEG(pngData, sampleBlock); err == nil {
		t.Error("EmbedJPEG should fail on PNG bytes")
	}
	if _, err := EmbedPNG(encodeJPEG(t), sampleBlock); err == nil {
		t.Error("EmbedPNG should fail on JPEG bytes")
	}
	if _, err := EmbedWebP(pngData, sampleBlock); err == nil {
		t.Error("EmbedWebP should fail on PNG bytes")
	}
}

func TestExtractUnknownContainer(t *testing.T) {
	if _, ok := Extract([]byte("GIF89a....")); ok {
		t.Error("GIF should yield no metadata")
	}
	if _, ok := Extract(nil); ok {
		t.Error("Empty input should yield no metadata")
	}
}

func TestEmbedJPEGTooLarge(t *testing.T) {
	if _, err := EmbedJPEG(encodeJPEG(t), make([]byte, maxAPP1Payload)); err == nil {
		t.Error("Expected error for oversized block")
	}
}

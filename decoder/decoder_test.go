package decoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestDecodePNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}

	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Width != 3 || img.Height != 2 || img.Channels != 4 {
		t.Fatalf("Unexpected image shape %dx%dx%d", img.Width, img.Height, img.Channels)
	}
	i := (1*3 + 2) * 4
	if got := img.Pix[i : i+4]; !bytes.Equal(got, []byte{10, 20, 30, 40}) {
		t.Errorf("Unexpected pixel %v", got)
	}
}

func TestDecodeGarbageCarriesBothCauses(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	if err == nil {
		t.Fatal("Expected error for garbage input")
	}

	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Expected *DecodeError, got %T", err)
	}
	if !errors.Is(decErr.Primary, ErrUnknownFormat) {
		t.Errorf("Expected primary cause ErrUnknownFormat, got %v", decErr.Primary)
	}
	if decErr.Fallback == nil {
		t.Error("Expected fallback cause to be recorded")
	}
}

func TestDecodeTruncatedPNG(t *testing.T) {
	_, err := Decode([]byte("\x89PNG\r\n\x1a\n\x00\x00"))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Expected *DecodeError, got %v", err)
	}
	if errors.Is(decErr.Primary, ErrUnknownFormat) {
		t.Error("Truncated PNG should fail inside the png decoder, not at sniffing")
	}
}

func TestMaterializeRGBA64TakesHighByte(t *testing.T) {
	src := image.NewRGBA64(image.Rect(0, 0, 2, 1))
	src.SetRGBA64(0, 0, color.RGBA64{R: 0x1234, G: 0xabcd, B: 0x00ff, A: 0xffff})
	src.SetRGBA64(1, 0, color.RGBA64{R: 0x8001, G: 0x7ffe, B: 0x0102, A: 0xfedc})

	img, err := materialize(src)
	if err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	want := []byte{0x12, 0xab, 0x00, 0xff, 0x80, 0x7f, 0x01, 0xfe}
	if img.Channels != 4 || !bytes.Equal(img.Pix, want) {
		t.Errorf("Expected %v with 4 channels, got %v with %d", want, img.Pix, img.Channels)
	}
}

func TestMaterializeGray16(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 1, 1))
	src.SetGray16(0, 0, color.Gray16{Y: 0xbeef})

	img, err := materialize(src)
	if err != nil {
		t.Fatalf("materialize failed: %v", err)
	}
	if img.Channels != 1 || img.Pix[0] != 0xbe {
		t.Errorf("Unexpected gray result %v", img.Pix)
	}
}

func TestMaterializeUnknownType(t *testing.T) {
	src := image.NewCMYK(image.Rect(0, 0, 1, 1))
	if _, err := materialize(src); err == nil {
		t.Error("Expected error for unsupported decoded type")
	}
}

func TestSniff(t *testing.T) {
	tests := map[string][]byte{
		"jpeg": {0xff, 0xd8, 0xff, 0xe0},
		"png":  []byte("\x89PNG\r\n\x1a\n...."),
		"gif":  []byte("GIF89a"),
		"webp": []byte("RIFF\x00\x00\x00\x00WEBPVP8 "),
		"bmp":  []byte("BM...."),
		"tiff": []byte("II*\x00...."),
		"":     []byte("\x00\x00\x00\x1cftypavif"),
	}
	for want, data := range tests {
		if got := Sniff(data); got != want {
			t.Errorf("Sniff(%q) = %q, want %q", data, got, want)
		}
	}
}

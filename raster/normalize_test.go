package raster

import (
	"image"
	"image/color"
	"testing"
)

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		layout Layout
		want   Strategy
		ok     bool
	}{
		{Layout{4, 8}, Copy, true},
		{Layout{3, 8}, Copy, true},
		{Layout{4, 16}, HighByte, true},
		{Layout{3, 16}, HighByte, true},
		{Layout{1, 8}, Copy, true},
		{Layout{1, 16}, HighByte, true},
		{Layout{2, 8}, 0, false},
		{Layout{4, 12}, 0, false},
	}

	for _, tt := range tests {
		got, err := StrategyFor(tt.layout)
		if tt.ok && err != nil {
			t.Errorf("StrategyFor(%s) unexpected error: %v", tt.layout, err)
			continue
		}
		if !tt.ok {
			if err == nil {
				t.Errorf("StrategyFor(%s) expected error", tt.layout)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("StrategyFor(%s) = %s, want %s", tt.layout, got, tt.want)
		}
	}
}

func TestNormalizeHighByte(t *testing.T) {
	// 2x1 RGBA 16-bit, big-endian samples
	pix := []byte{
		0x12, 0x34, 0xab, 0xcd, 0x00, 0xff, 0xff, 0x00,
		0x80, 0x01, 0x7f, 0xfe, 0x01, 0x02, 0xfe, 0xdc,
	}
	img, err := Normalize(Layout{Channels: 4, BitDepth: 16}, 2, 1, len(pix), pix)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := []byte{0x12, 0xab, 0x00, 0xff, 0x80, 0x7f, 0x01, 0xfe}
	if img.Channels != 4 {
		t.Fatalf("Expected 4 channels, got %d", img.Channels)
	}
	for i := range want {
		if img.Pix[i] != want[i] {
			t.Errorf("Pix[%d] = %#x, want %#x", i, img.Pix[i], want[i])
		}
	}
}

func TestNormalizeHonorsStride(t *testing.T) {
	// 1x2 gray 8-bit with 3 bytes of padding per row
	pix := []byte{10, 0, 0, 0, 20, 0, 0, 0}
	img, err := Normalize(Layout{Channels: 1, BitDepth: 8}, 1, 2, 4, pix)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if img.Pix[0] != 10 || img.Pix[1] != 20 {
		t.Errorf("Unexpected pixels %v", img.Pix)
	}
}

func TestNormalizeShortBuffer(t *testing.T) {
	if _, err := Normalize(Layout{Channels: 3, BitDepth: 8}, 2, 2, 6, make([]byte, 10)); err == nil {
		t.Error("Expected error for short buffer")
	}
}

func TestFromImageChannels(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	opaque := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}
	translucent := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	translucent.SetNRGBA(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	tests := []struct {
		name string
		src  image.Image
		want int
	}{
		{"gray", gray, 1},
		{"opaque rgba", opaque, 3},
		{"nrgba", translucent, 4},
	}
	for _, tt := range tests {
		img, err := FromImage(tt.src)
		if err != nil {
			t.Fatalf("%s: FromImage failed: %v", tt.name, err)
		}
		if img.Channels != tt.want {
			t.Errorf("%s: expected %d channels, got %d", tt.name, tt.want, img.Channels)
		}
	}
}

func TestViews(t *testing.T) {
	img, _ := New(1, 1, 4)
	copy(img.Pix, []byte{9, 8, 7, 6})

	rgb := img.RGB()
	if rgb.Channels != 3 || rgb.Pix[0] != 9 || rgb.Pix[2] != 7 {
		t.Errorf("Unexpected RGB view %+v", rgb)
	}

	gray, _ := New(1, 1, 1)
	gray.Pix[0] = 42
	n := gray.NRGBA()
	if n.Pix[0] != 42 || n.Pix[1] != 42 || n.Pix[2] != 42 || n.Pix[3] != 0xff {
		t.Errorf("Unexpected NRGBA view %v", n.Pix)
	}
	if !gray.Opaque() || img.Opaque() {
		t.Error("Opaque reported wrong value")
	}
}

package main

import "testing"

func TestSpeedFlag(t *testing.T) {
	tests := map[int]uint8{
		-5:   1,
		0:    1,
		6:    6,
		10:   10,
		11:   10,
		256:  10,
		1000: 10,
	}
	for in, want := range tests {
		if got := speedFlag(in); got != want {
			t.Errorf("speedFlag(%d) = %d, want %d", in, got, want)
		}
	}
}

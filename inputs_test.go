package main

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestLoadPaletteParsesTriples(t *testing.T) {
	src := "; comment line\n0 0 0\n255 255 255\n\n16 32 48\n"
	pal, err := LoadPalette(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadPalette: %v", err)
	}
	want := []RGB{{0, 0, 0}, {255, 255, 255}, {16, 32, 48}}
	if len(pal) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(pal))
	}
	for i, c := range want {
		if pal[i] != c {
			t.Errorf("entry %d: want %+v, got %+v", i, c, pal[i])
		}
	}
}

func TestLoadPaletteRejectsOutOfRangeChannel(t *testing.T) {
	_, err := LoadPalette(strings.NewReader("0 0 300\n"))
	if err == nil {
		t.Fatal("expected error for out-of-range channel value")
	}
}

func TestLoadPaletteRejectsWrongFieldCount(t *testing.T) {
	_, err := LoadPalette(strings.NewReader("0 0\n"))
	if err == nil {
		t.Fatal("expected error for wrong field count")
	}
}

func TestLoadPaletteRejectsEmpty(t *testing.T) {
	_, err := LoadPalette(strings.NewReader("; only a comment\n"))
	if err == nil {
		t.Fatal("expected error for empty palette")
	}
}

func TestLoadErrorMapRoundTrip(t *testing.T) {
	width, height := 2, 2
	n := width * height
	var buf bytes.Buffer
	for c := 0; c < 128; c++ {
		for i := 0; i < n; i++ {
			var v [4]byte
			binary.LittleEndian.PutUint32(v[:], uint32(c*1000+i))
			buf.Write(v[:])
		}
	}
	maps, err := LoadErrorMap(&buf, width, height)
	if err != nil {
		t.Fatalf("LoadErrorMap: %v", err)
	}
	if maps[0][0] != 0 || maps[0][1] != 1 {
		t.Errorf("palette 0 row mismatch: %v", maps[0])
	}
	if maps[5][2] != 5002 {
		t.Errorf("palette 5 index 2: want 5002, got %d", maps[5][2])
	}
}

func TestLoadErrorMapTruncated(t *testing.T) {
	_, err := LoadErrorMap(bytes.NewReader([]byte{1, 2, 3}), 4, 4)
	if err == nil {
		t.Fatal("expected error for truncated error map")
	}
}

func TestLoadSourcePixelsDiscardsAlpha(t *testing.T) {
	raw := []byte{
		10, 20, 30, 255,
		40, 50, 60, 0,
	}
	pixels, err := LoadSourcePixels(bytes.NewReader(raw), 2, 1)
	if err != nil {
		t.Fatalf("LoadSourcePixels: %v", err)
	}
	want := []RGB{{10, 20, 30}, {40, 50, 60}}
	for i, c := range want {
		if pixels[i] != c {
			t.Errorf("pixel %d: want %+v, got %+v", i, c, pixels[i])
		}
	}
}

func TestBuildErrorMapPicksExactMatchAsZero(t *testing.T) {
	palette := []RGB{{0, 0, 0}, {255, 255, 255}, {128, 128, 128}}
	source := []RGB{{255, 255, 255}}
	maps := BuildErrorMap(palette, source, EuclideanMetric{})
	if maps[1][0] != 0 {
		t.Errorf("expected zero distance for exact palette match, got %d", maps[1][0])
	}
	if maps[0][0] == 0 {
		t.Errorf("expected nonzero distance for non-matching palette entry")
	}
}

func TestBuildLineHintsNearestIndexAndDoubling(t *testing.T) {
	width, height := 2, 1
	maps := BuildErrorMap(
		[]RGB{{0, 0, 0}, {255, 255, 255}},
		[]RGB{{10, 10, 10}, {240, 240, 240}},
		EuclideanMetric{},
	)
	possibleColors, sourceIndexAt := BuildLineHints(maps, width, height)

	if sourceIndexAt(0, 0) != 0 {
		t.Errorf("pixel (0,0): expected nearest palette index 0, got %d", sourceIndexAt(0, 0))
	}
	if sourceIndexAt(1, 0) != 1 {
		t.Errorf("pixel (1,0): expected nearest palette index 1, got %d", sourceIndexAt(1, 0))
	}
	if sourceIndexAt(5, 5) != 0 {
		t.Errorf("out-of-bounds pixel: expected 0, got %d", sourceIndexAt(5, 5))
	}

	if len(possibleColors) != height {
		t.Fatalf("expected %d line hint rows, got %d", height, len(possibleColors))
	}
	row := possibleColors[0]
	if len(row) != 2 {
		t.Fatalf("expected 2 distinct doubled hints, got %d: %v", len(row), row)
	}
	if row[0] != 0 || row[1] != 2 {
		t.Errorf("expected doubled indices [0 2], got %v", row)
	}
}

func TestBuildLineHintsCapsAtMaxHints(t *testing.T) {
	width, height := maxLineHints+4, 1
	palette := make([]RGB, width)
	source := make([]RGB, width)
	for i := range palette {
		v := uint8(i * 10 % 256)
		palette[i] = RGB{v, v, v}
		source[i] = RGB{v, v, v}
	}
	maps := BuildErrorMap(palette, source, EuclideanMetric{})
	possibleColors, _ := BuildLineHints(maps, width, height)
	if len(possibleColors[0]) > maxLineHints {
		t.Fatalf("expected at most %d hints, got %d", maxLineHints, len(possibleColors[0]))
	}
}

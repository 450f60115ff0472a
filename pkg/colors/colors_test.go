package colors

import (
	"math"
	"testing"
)

func closeRGB(a, b RGB) bool {
	const eps = 1e-9
	return math.Abs(a.R-b.R) < eps && math.Abs(a.G-b.G) < eps && math.Abs(a.B-b.B) < eps
}

func TestWeightColor(t *testing.T) {
	p := ThemeMax.Palette()

	tests := []struct {
		name string
		w    float64
		want RGB
	}{
		{"zero", 0, RGB{0, 0, 1}},
		{"quarter", 0.25, RGB{0, 0.5, 0.5}},
		{"half", 0.5, RGB{0, 1, 0}},
		{"three quarters", 0.75, RGB{0.5, 0.5, 0}},
		{"full", 1, RGB{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeightColor(tt.w, p); !closeRGB(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseTheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Theme
		wantErr bool
	}{
		{"max", ThemeMax, false},
		{"Maya", ThemeMaya, false},
		{"softimage", ThemeSoftimage, false},
		{"max_influences", ThemeMaximumInfluences, false},
		{"rainbow", ThemeMax, true},
	}
	for _, tt := range tests {
		got, err := ParseTheme(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTheme(%q) = %v, %v", tt.in, got, err)
		}
		if err == nil && got.String() == "" {
			t.Errorf("theme %v has no name", got)
		}
	}
}

func TestInfluenceColors(t *testing.T) {
	infs := []string{"hip", "spine", "chest", "neck"}
	a := InfluenceColors(infs)
	b := InfluenceColors([]string{"neck", "chest", "spine", "hip"})

	if len(a) != len(infs) {
		t.Fatalf("expected %d colors, got %d", len(infs), len(a))
	}
	seen := make(map[RGB]bool)
	for inf, c := range a {
		if !closeRGB(c, b[inf]) {
			t.Errorf("%s: colors depend on input order", inf)
		}
		if seen[c] {
			t.Errorf("%s: duplicate color %+v", inf, c)
		}
		seen[c] = true
	}
	if len(InfluenceColors(nil)) != 0 {
		t.Error("expected no colors for no influences")
	}
}

func TestHSV(t *testing.T) {
	tests := []struct {
		h, s, v float64
		want    RGB
	}{
		{0, 1, 1, RGB{1, 0, 0}},
		{120, 1, 1, RGB{0, 1, 0}},
		{240, 1, 1, RGB{0, 0, 1}},
		{360, 1, 1, RGB{1, 0, 0}},
		{0, 0, 0.5, RGB{0.5, 0.5, 0.5}},
	}
	for _, tt := range tests {
		if got := HSV(tt.h, tt.s, tt.v); !closeRGB(got, tt.want) {
			t.Errorf("HSV(%v,%v,%v) = %+v, want %+v", tt.h, tt.s, tt.v, got, tt.want)
		}
	}
}

func TestBlend(t *testing.T) {
	got := Blend(
		map[string]float64{"a": 0.25, "b": 0.75},
		map[string]RGB{"a": {1, 0, 0}, "b": {0, 0, 1}},
	)
	if !closeRGB(got, RGB{0.25, 0, 0.75}) {
		t.Errorf("got %+v", got)
	}
}

func TestMaxInfluences(t *testing.T) {
	if MaxInfluences(5, 4) != OverLimit || MaxInfluences(4, 4) != AtLimit || MaxInfluences(1, 4) != WithinLimit {
		t.Error("unexpected max influence colors")
	}
}

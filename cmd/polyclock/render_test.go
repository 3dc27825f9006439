package main

import (
	"strings"
	"testing"

	"github.com/cbegin/polyclock-go/internal/samples"
)

func TestParseClockSpec(t *testing.T) {
	cases := []struct {
		in      string
		sample  string
		length  int
		beats   []float64
		wantErr string
	}{
		{in: "kick:4:0,2", sample: "kick", length: 4, beats: []float64{0, 2}},
		{in: " rim : 3 : 0, 1.5 ,", sample: "rim", length: 3, beats: []float64{0, 1.5}},
		{in: "snare:2:", sample: "snare", length: 2},
		{in: "kick:4", wantErr: "sample:length:beats"},
		{in: ":4:0", wantErr: "missing sample"},
		{in: "kick:0:0", wantErr: "length must be"},
		{in: "kick:13:0", wantErr: "length must be"},
		{in: "kick:4:x", wantErr: "bad beat"},
	}
	for _, tc := range cases {
		got, err := parseClockSpec(tc.in)
		if tc.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("%q: err = %v, want %q", tc.in, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got.sample != tc.sample || got.length != tc.length || len(got.beats) != len(tc.beats) {
			t.Errorf("%q = %+v", tc.in, got)
			continue
		}
		for i := range tc.beats {
			if got.beats[i] != tc.beats[i] {
				t.Errorf("%q beats = %v, want %v", tc.in, got.beats, tc.beats)
			}
		}
	}
}

func TestParseClockSpecsChecksSamples(t *testing.T) {
	store := samples.Builtin(8000)
	if _, err := parseClockSpecs(defaultRenderClocks, store); err != nil {
		t.Fatalf("default clocks: %v", err)
	}
	_, err := parseClockSpecs([]string{"cowbell:4:0"}, store)
	if err == nil || !strings.Contains(err.Error(), "unknown sample") {
		t.Fatalf("err = %v, want unknown sample", err)
	}
}

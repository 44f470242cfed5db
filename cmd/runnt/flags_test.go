package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseInts(t *testing.T) {
	got, err := parseInts("0, 2,5")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(got, []int{0, 2, 5}); diff != "" {
		t.Errorf("Wrong ints; diff (-got +want)\n%s", diff)
	}

	if _, err := parseInts("1,x"); err == nil {
		t.Errorf("parseInts(1,x) succeeded, want error")
	}
	if _, err := parseInts(""); err == nil {
		t.Errorf("parseInts of empty string succeeded, want error")
	}
}

func TestParseFloats(t *testing.T) {
	got, err := parseFloats("1.5,-2,3e-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(got, []float32{1.5, -2, 0.3}); diff != "" {
		t.Errorf("Wrong floats; diff (-got +want)\n%s", diff)
	}
}

func TestParseConversion(t *testing.T) {
	for _, name := range []string{"float", "normalise", "onehot"} {
		if _, err := parseConversion(name); err != nil {
			t.Errorf("parseConversion(%q): %v", name, err)
		}
	}
	if _, err := parseConversion("log"); err == nil {
		t.Errorf("parseConversion(log) succeeded, want error")
	}
}

package fingerprint

import (
	"errors"
	"testing"

	"github.com/himanishpuri/WhistleKey/internal/model"
)

func TestDistanceIdentical(t *testing.T) {
	seqs := []model.Sequence{
		{},
		{5, 6, 7},
		{model.NoPeak, model.NoPeak},
		{63, model.NoPeak, 5, 40},
	}

	for _, s := range seqs {
		d, err := Distance(s, s.Clone(), DefaultHysteresis)
		if err != nil {
			t.Fatal(err)
		}
		if d != 0 {
			t.Errorf("Distance(%v, itself) = %d, expected 0", s, d)
		}
	}
}

func TestDistanceHysteresisBand(t *testing.T) {
	key := model.Sequence{20, 20, 20, 20, 20}

	tests := []struct {
		name     string
		cand     model.Sequence
		expected int
	}{
		{"within band above", model.Sequence{25, 21, 22, 23, 24}, 0},
		{"within band below", model.Sequence{15, 19, 18, 17, 16}, 0},
		{"one just outside", model.Sequence{26, 20, 20, 20, 20}, 6},
		{"one far below", model.Sequence{20, 20, 2, 20, 20}, 18},
		{"mixed", model.Sequence{26, 14, 20, 23, 40}, 6 + 6 + 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Distance(key, tt.cand, DefaultHysteresis)
			if err != nil {
				t.Fatal(err)
			}
			if d != tt.expected {
				t.Errorf("Distance = %d, expected %d", d, tt.expected)
			}
		})
	}
}

func TestDistanceMonotonic(t *testing.T) {
	key := model.Sequence{30, 30, 30}
	prev := -1
	for dev := 0; dev <= 30; dev++ {
		cand := model.Sequence{30, model.Symbol(30 + dev), 30}
		d, err := Distance(key, cand, DefaultHysteresis)
		if err != nil {
			t.Fatal(err)
		}
		if d < prev {
			t.Fatalf("distance dropped from %d to %d at deviation %d", prev, d, dev)
		}
		prev = d
	}
}

func TestDistanceNoPeakSentinel(t *testing.T) {
	// NoPeak counts as bin -1
	d, _ := Distance(model.Sequence{20}, model.Sequence{model.NoPeak}, DefaultHysteresis)
	if d != 21 {
		t.Errorf("Expected 21 for bin 20 against NoPeak, got %d", d)
	}

	// and is free against the lowest bins
	d, _ = Distance(model.Sequence{DefaultMinBin - 1}, model.Sequence{model.NoPeak}, DefaultHysteresis)
	if d != 0 {
		t.Errorf("Expected low bin against NoPeak to fall inside the band, got %d", d)
	}
}

func TestDistanceLengthMismatch(t *testing.T) {
	_, err := Distance(model.Sequence{1, 2}, model.Sequence{1}, DefaultHysteresis)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("Expected ErrLengthMismatch, got %v", err)
	}
}

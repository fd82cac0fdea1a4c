package gpa

import (
	"math"
	"testing"

	"studyhall/internal/storage"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWeighted(t *testing.T) {
	grades := []storage.Grade{
		{Points: 4.0, Credits: 3},
		{Points: 3.0, Credits: 5},
	}
	// (4*3 + 3*5) / 8 = 27/8 = 3.375
	if got := Weighted(grades); !almostEqual(got, 3.375) {
		t.Errorf("Weighted = %v, want 3.375", got)
	}
}

func TestWeighted_NoCredits(t *testing.T) {
	if got := Weighted(nil); got != 0 {
		t.Errorf("Weighted(nil) = %v, want 0", got)
	}
	if got := Weighted([]storage.Grade{{Points: 4.0, Credits: 0}}); got != 0 {
		t.Errorf("Weighted with zero credits = %v, want 0", got)
	}
}

func TestByTerm(t *testing.T) {
	grades := []storage.Grade{
		{Points: 4.0, Credits: 3, Term: "2025F"},
		{Points: 2.0, Credits: 3, Term: "2025F"},
		{Points: 3.0, Credits: 4, Term: "2026S"},
	}
	byTerm := ByTerm(grades)
	if len(byTerm) != 2 {
		t.Fatalf("len = %d, want 2", len(byTerm))
	}
	if !almostEqual(byTerm["2025F"], 3.0) {
		t.Errorf("2025F = %v, want 3.0", byTerm["2025F"])
	}
	if !almostEqual(byTerm["2026S"], 3.0) {
		t.Errorf("2026S = %v, want 3.0", byTerm["2026S"])
	}
}

func TestLetter(t *testing.T) {
	cases := []struct {
		points float64
		want   string
	}{
		{4.0, "A"},
		{3.7, "A-"},
		{3.3, "B+"},
		{3.0, "B"},
		{2.0, "C"},
		{1.0, "D"},
		{0.5, "F"},
	}
	for _, tc := range cases {
		if got := Letter(tc.points); got != tc.want {
			t.Errorf("Letter(%v) = %q, want %q", tc.points, got, tc.want)
		}
	}
}

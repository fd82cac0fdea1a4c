// Package gpa computes grade point averages on the 4.0 scale.
package gpa

import "studyhall/internal/storage"

// Weighted is the credit-weighted average of grade points. No credits
// means no GPA, reported as 0.
func Weighted(grades []storage.Grade) float64 {
	var points, credits float64
	for _, g := range grades {
		points += g.Points * g.Credits
		credits += g.Credits
	}
	if credits == 0 {
		return 0
	}
	return points / credits
}

// ByTerm computes the weighted average per term.
func ByTerm(grades []storage.Grade) map[string]float64 {
	byTerm := make(map[string][]storage.Grade)
	for _, g := range grades {
		byTerm[g.Term] = append(byTerm[g.Term], g)
	}
	out := make(map[string]float64, len(byTerm))
	for term, gs := range byTerm {
		out[term] = Weighted(gs)
	}
	return out
}

// Letter maps grade points to the letter scale.
func Letter(points float64) string {
	switch {
	case points >= 3.85:
		return "A"
	case points >= 3.5:
		return "A-"
	case points >= 3.15:
		return "B+"
	case points >= 2.85:
		return "B"
	case points >= 2.5:
		return "B-"
	case points >= 2.15:
		return "C+"
	case points >= 1.85:
		return "C"
	case points >= 1.5:
		return "C-"
	case points >= 1.0:
		return "D"
	default:
		return "F"
	}
}

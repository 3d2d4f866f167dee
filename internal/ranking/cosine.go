package ranking

import "gonum.org/v1/gonum/floats"

// Cosine returns the cosine similarity of two equal-length vectors. The
// second result is false when either vector has zero norm, in which case
// the similarity is undefined and reported as 0.
func Cosine(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return clamp(floats.Dot(a, b) / (na * nb)), true
}

// clamp keeps rounding noise from pushing a cosine of non-negative vectors
// outside [0, 1].
func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

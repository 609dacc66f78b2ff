// Package math provides small numeric helpers shared across components that
// need basic statistics or vector comparison. CosineSimilarity uses gonum's
// floats package; the statistics helpers are plain Go.
package math

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Returns 0 for mismatched lengths, empty vectors, or either
// vector having zero magnitude (undefined angle).
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	normA, normB := floats.Norm(a, 2), floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	return floats.Dot(a, b) / (normA * normB)
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Variance returns the population variance of values, or 0 for a slice of
// fewer than two elements.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return sq / float64(len(values))
}

// StandardDeviation returns the population standard deviation of values.
func StandardDeviation(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Min returns the smallest value in values, or 0 for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value in values, or 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Sum returns the sum of values.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

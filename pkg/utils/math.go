package utils

import "math"

// normEpsilon keeps the zero vector at zero instead of dividing by zero.
const normEpsilon = 1e-12

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) * norm)
	}
}

// UnitVector returns a normalized copy of x. The input is not modified.
func UnitVector(x []float32) []float32 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum) + normEpsilon
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// FitDimension zero-pads or truncates x to exactly dim components.
func FitDimension(x []float32, dim int) []float32 {
	if len(x) == dim {
		return x
	}
	out := make([]float32, dim)
	copy(out, x)
	return out
}

package utils

import "math"

// Near reports whether a and b agree within tol, absolutely or relative to the larger magnitude.
func Near(a, b, tol float64) bool {
	d := math.Abs(a - b)
	return d <= tol || d <= tol*math.Max(math.Abs(a), math.Abs(b))
}

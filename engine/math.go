package engine

import "math"

// log1p returns log(1+x), guarding against negative x from decimal
// rounding noise.
func log1p(x float64) float64 {
	if x < 0 {
		x = 0
	}
	return math.Log1p(x)
}

func powFloat(x, n float64) float64 {
	if x < 0 {
		x = 0
	}
	return math.Pow(x, n)
}

package profile

import "math"

// Reduce converts a color to a brightness-like scalar: the Euclidean norm of
// its channel triple, clamped to [0, maxVal]. A non-positive maxVal yields 0.
func Reduce(c Color, maxVal float64) float64 {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	raw := math.Sqrt(r*r + g*g + b*b)
	return clampFloat(raw, 0, math.Max(maxVal, 0))
}

// ReduceAll fills the Scalar field of every sample in place.
func ReduceAll(samples []Sample, maxVal float64) {
	for i := range samples {
		samples[i].Scalar = Reduce(samples[i].Color, maxVal)
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

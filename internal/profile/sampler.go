package profile

import (
	"image"
	"math"
)

// InBounds reports whether p lies inside the image rectangle, with Min
// inclusive and Max exclusive on both axes.
func InBounds(p Point, bounds image.Rectangle) bool {
	return p.X >= float64(bounds.Min.X) && p.X < float64(bounds.Max.X) &&
		p.Y >= float64(bounds.Min.Y) && p.Y < float64(bounds.Max.Y)
}

// StepCount returns the number of samples SampleLine takes between a and b:
// the floor of their Euclidean distance. Anything below 2 means no profile.
func StepCount(a, b Point) int {
	return int(math.Floor(a.Dist(b)))
}

// SampleLine reads pixel colors along the segment a→b.
//
// The segment is split into floor(|b-a|) steps. Step i sits at
// a + (b-a)*i/(n-1), so the first sample is exactly a and the last is
// exactly b. Each position reads the pixel whose grid cell contains it.
//
// SampleLine returns nil when either endpoint is outside the image or when
// the segment is shorter than two steps. Scalars are left at zero; see
// ReduceAll.
func SampleLine(img image.Image, a, b Point) []Sample {
	bounds := img.Bounds()
	if !InBounds(a, bounds) || !InBounds(b, bounds) {
		return nil
	}

	n := StepCount(a, b)
	if n < 2 {
		return nil
	}

	d := b.Sub(a)
	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		p := a.Add(d.Mul(t))
		if i == n-1 {
			p = b
		}
		samples[i] = Sample{
			Index:    i,
			Position: p,
			Color:    ColorOf(img.At(pixelCoord(p.X), pixelCoord(p.Y))),
		}
	}
	return samples
}

// pixelCoord maps a floating coordinate onto the pixel grid cell that
// contains it.
func pixelCoord(v float64) int {
	return int(math.Floor(v))
}

package profile

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the scalar profile.
type Stats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Rising  int     `json:"rising"`
	Falling int     `json:"falling"`
}

// Summarize computes Stats over the samples' scalars and counts events by
// direction. All four figures are rounded to two decimals. StdDev is the
// sample standard deviation and is zero for fewer than two samples.
func Summarize(samples []Sample, events []EdgeEvent) Stats {
	var s Stats
	for _, e := range events {
		switch e.Direction {
		case Rising:
			s.Rising++
		case Falling:
			s.Falling++
		}
	}
	if len(samples) == 0 {
		return s
	}

	values := Scalars(samples)
	s.Min = round2(floats.Min(values))
	s.Max = round2(floats.Max(values))
	if len(values) < 2 {
		s.Mean = round2(values[0])
		return s
	}
	mean, std := stat.MeanStdDev(values, nil)
	s.Mean = round2(mean)
	s.StdDev = round2(std)
	return s
}

// Scalars extracts the scalar profile in traversal order.
func Scalars(samples []Sample) []float64 {
	values := make([]float64, len(samples))
	for i, smp := range samples {
		values[i] = smp.Scalar
	}
	return values
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

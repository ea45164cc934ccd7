package imaging

import (
	"image"
	"math"

	"github.com/ironsheep/line-profile-mcp/internal/profile"
)

// SegmentMeasurement contains measurement information for a segment.
type SegmentMeasurement struct {
	DistancePixels        float64  `json:"distance_pixels"`
	DeltaX                float64  `json:"delta_x"`
	DeltaY                float64  `json:"delta_y"`
	AngleDegrees          float64  `json:"angle_degrees"`
	DistancePercentWidth  float64  `json:"distance_percent_width"`
	DistancePercentHeight float64  `json:"distance_percent_height"`
	SampleCount           int      `json:"sample_count"`
	DistanceMicrons       *float64 `json:"distance_microns,omitempty"`
	Calibration           string   `json:"calibration,omitempty"`
}

// MeasureSegment measures the segment a→b on img. When cal is non-nil the
// length is also reported in micrometers.
//
// The angle is in degrees with 0 pointing right and 90 pointing down.
// SampleCount is the number of samples a profile along the segment takes.
func MeasureSegment(img image.Image, a, b profile.Point, cal *profile.Calibration) *SegmentMeasurement {
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	d := b.Sub(a)
	distance := a.Dist(b)
	angle := math.Atan2(d.Y, d.X) * 180 / math.Pi

	n := profile.StepCount(a, b)
	if n < 2 {
		n = 0
	}

	m := &SegmentMeasurement{
		DistancePixels:        math.Round(distance*100) / 100,
		DeltaX:                d.X,
		DeltaY:                d.Y,
		AngleDegrees:          math.Round(angle*10) / 10,
		DistancePercentWidth:  math.Round(distance/width*1000) / 10,
		DistancePercentHeight: math.Round(distance/height*1000) / 10,
		SampleCount:           n,
	}
	if cal != nil {
		um := math.Round(cal.Microns(distance)*100) / 100
		m.DistanceMicrons = &um
		m.Calibration = cal.Name
	}
	return m
}

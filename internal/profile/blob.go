package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// BlobLine is one measured axis of a blob.
type BlobLine struct {
	A             Point    `json:"a"`
	B             Point    `json:"b"`
	LengthPixels  float64  `json:"length_pixels"`
	LengthMicrons *float64 `json:"length_microns,omitempty"`
}

// BlobMeasurement describes an object measured along two crossing axes,
// such as the length and width of a spore. Line2 is perpendicular to Line1
// and crosses it at Crossing.
type BlobMeasurement struct {
	Line1       BlobLine `json:"line1"`
	Line2       BlobLine `json:"line2"`
	Crossing    Point    `json:"crossing"`
	Calibration string   `json:"calibration,omitempty"`
}

// PointBetweenPerpendiculars reports whether p lies in the band bounded by
// the perpendiculars to segment ab through a and through b. Points on either
// boundary count as inside. A zero-length segment accepts every point.
func PointBetweenPerpendiculars(p, a, b Point) bool {
	seg := b.Sub(a)
	d1 := dot(seg, p.Sub(a))
	d2 := dot(seg, p.Sub(b))
	return (d1 <= 0 && d2 >= 0) || (d1 >= 0 && d2 <= 0)
}

// SegmentIntersection returns the point where segments p1q1 and p2q2 cross.
// Touching at an endpoint counts as crossing. Parallel and collinear
// segments report false.
func SegmentIntersection(p1, q1, p2, q2 Point) (Point, bool) {
	r := q1.Sub(p1)
	s := q2.Sub(p2)
	denom := cross(r, s)
	if denom == 0 {
		return Point{}, false
	}
	d := p2.Sub(p1)
	t := cross(d, s) / denom
	u := cross(d, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return p1.Add(r.Mul(t)), true
}

// PerpendicularEnd snaps the free end of a line starting at start so the
// line runs perpendicular to segment ab. The snapped line keeps the length
// |end-start| and points to the side of ab that end lies on; when end is
// exactly on the perpendicular through start, it points towards ab.
func PerpendicularEnd(a, b, start, end Point) Point {
	seg := b.Sub(a)
	n := Pt(-seg.Y, seg.X).Mul(1 / math.Hypot(seg.X, seg.Y))
	length := start.Dist(end)

	side := dot(end.Sub(start), n)
	if side == 0 {
		side = -dot(start.Sub(a), n)
	}
	if side < 0 {
		n = n.Mul(-1)
	}
	return start.Add(n.Mul(length))
}

// MeasureBlob measures an object from four clicks: a1 and b1 span the first
// axis, a2 starts the second axis and b2 is snapped perpendicular to the
// first. a2 must lie between the perpendiculars of the first axis and the
// snapped second axis must cross it. Lengths are rounded to two decimals and
// converted with cal when it is non-nil.
//
// The first axis is reported with its lower-y end first.
func MeasureBlob(a1, b1, a2, b2 Point, cal *Calibration) (*BlobMeasurement, error) {
	if a1 == b1 {
		return nil, errors.New("first line has zero length")
	}
	if !PointBetweenPerpendiculars(a2, a1, b1) {
		return nil, fmt.Errorf("point %v is not between the perpendiculars of the first line", a2)
	}
	if a2 == b2 {
		return nil, errors.New("second line has zero length")
	}
	if a1.Y > b1.Y {
		a1, b1 = b1, a1
	}

	end := PerpendicularEnd(a1, b1, a2, b2)
	crossing, ok := SegmentIntersection(a1, b1, a2, end)
	if !ok {
		return nil, errors.New("second line does not cross the first line")
	}

	m := &BlobMeasurement{
		Line1:    blobLine(a1, b1, cal),
		Line2:    blobLine(a2, end, cal),
		Crossing: Pt(round2(crossing.X), round2(crossing.Y)),
	}
	if cal != nil {
		m.Calibration = cal.Name
	}
	Logger().Debug("blob measured",
		slog.Float64("line1_px", m.Line1.LengthPixels),
		slog.Float64("line2_px", m.Line2.LengthPixels))
	return m, nil
}

func blobLine(a, b Point, cal *Calibration) BlobLine {
	l := BlobLine{A: a, B: b, LengthPixels: round2(a.Dist(b))}
	if cal != nil {
		um := round2(cal.Microns(a.Dist(b)))
		l.LengthMicrons = &um
	}
	return l
}

func dot(p, q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

func cross(p, q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

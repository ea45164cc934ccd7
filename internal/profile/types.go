package profile

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultThreshold is the minimum absolute scalar delta between two
// consecutive samples that counts as an edge.
const DefaultThreshold = 10.0

// DefaultMaxValue is the scalar clamp used when the caller gives none.
const DefaultMaxValue = 255.0

// MaxScalar is the largest value Reduce can return for an 8-bit color, the
// magnitude of pure white. A larger clamp never changes a scalar.
var MaxScalar = math.Sqrt(3) * 255

// Point is a floating-point image coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Mul returns p scaled by k.
func (p Point) Mul(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// Color is an 8-bit RGB sample of image content.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ColorOf converts any color.Color to 8-bit channels. Alpha is dropped.
func ColorOf(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// Hex returns the color as "#RRGGBB".
func (c Color) Hex() string {
	return strings.ToUpper(c.colorful().Hex())
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// Direction labels a step of the profile.
type Direction int

const (
	None Direction = iota
	Rising
	Falling
)

func (d Direction) String() string {
	switch d {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "none"
	}
}

// MarshalJSON encodes the direction as its lowercase name.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "none", "":
		*d = None
	case "rising":
		*d = Rising
	case "falling":
		*d = Falling
	default:
		return fmt.Errorf("unknown direction: %q", s)
	}
	return nil
}

// Sample is one point along the traced segment. Index is the traversal
// order from A (0) to B (len-1).
type Sample struct {
	Index    int     `json:"index"`
	Position Point   `json:"position"`
	Color    Color   `json:"color"`
	Scalar   float64 `json:"scalar"`
}

// EdgeEvent is a Rising or Falling transition at a sample. Delta is the
// chained scalar difference that triggered it.
type EdgeEvent struct {
	Index     int       `json:"index"`
	Position  Point     `json:"position"`
	Direction Direction `json:"direction"`
	Delta     float64   `json:"delta"`
}

// Endpoints holds the two user-chosen segment ends. An endpoint that has not
// been selected yet has its Has flag false.
type Endpoints struct {
	A    Point `json:"a"`
	B    Point `json:"b"`
	HasA bool  `json:"has_a"`
	HasB bool  `json:"has_b"`
}

// Complete reports whether both endpoints have been selected.
func (e Endpoints) Complete() bool {
	return e.HasA && e.HasB
}

package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/line-profile-mcp/internal/profile"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations, plus the
// scalar the profile pipeline would derive from it.
type ColorResult struct {
	Hex    string    `json:"hex"`  // Hex format "#RRGGBB" (no alpha)
	RGB    RGBColor  `json:"rgb"`  // RGB components
	RGBA   RGBAColor `json:"rgba"` // RGBA components with alpha
	HSL    HSLColor  `json:"hsl"`  // HSL representation
	Scalar float64   `json:"scalar"`
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are 0-based with origin at top-left. maxVal clamps the
// reported scalar the same way a profile would.
//
// Returns an error if coordinates are outside the image bounds.
func SampleColor(img image.Image, x, y int, maxVal float64) (*ColorResult, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	r, g, b, a := img.At(x, y).RGBA()
	// Convert from 16-bit to 8-bit
	r8, g8, b8, a8 := uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8)

	c := colorful.Color{R: float64(r8) / 255.0, G: float64(g8) / 255.0, B: float64(b8) / 255.0}
	scalar := profile.Reduce(profile.Color{R: r8, G: g8, B: b8}, maxVal)

	return &ColorResult{
		Hex:    strings.ToUpper(c.Hex()),
		RGB:    RGBColor{R: r8, G: g8, B: b8},
		RGBA:   RGBAColor{R: r8, G: g8, B: b8, A: a8},
		HSL:    toHSL(c),
		Scalar: math.Round(scalar*100) / 100,
	}, nil
}

// toHSL converts to integer HSL. colorful reports hue in degrees and
// saturation/lightness in [0,1].
func toHSL(c colorful.Color) HSLColor {
	h, s, l := c.Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return HSLColor{
		H: int(h),
		S: int(s * 100),
		L: int(l * 100),
	}
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA" into an RGBA color. The
// optional alpha byte is applied on top of the RGB part.
func parseHexColor(hex string) (colorful.Color, uint8, error) {
	if hex == "" {
		return colorful.Color{}, 0, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}

	alpha := uint8(255)
	switch len(hex) {
	case 7:
	case 9:
		var a uint8
		if _, err := fmt.Sscanf(hex[7:], "%02x", &a); err != nil {
			return colorful.Color{}, 0, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		alpha = a
		hex = hex[:7]
	default:
		return colorful.Color{}, 0, fmt.Errorf("invalid hex color length")
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, 0, err
	}
	return c, alpha, nil
}

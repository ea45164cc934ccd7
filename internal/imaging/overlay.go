package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/line-profile-mcp/internal/profile"
)

// OverlayOptions controls RenderProfile. Empty colors fall back to the
// defaults below.
type OverlayOptions struct {
	LineColor    string // segment drawn over the image, default "#FFFF00"
	RisingColor  string // default "#00C000"
	FallingColor string // default "#FF0000"
	ShowLabels   bool
}

const (
	defaultLineColor    = "#FFFF00"
	defaultRisingColor  = "#00C000"
	defaultFallingColor = "#FF0000"

	panelMargin  = 10
	markerRadius = 3
	minPlotWidth = 200
)

// RenderProfile draws the profile over the image and plots it in a panel
// below.
//
// The panel is MaxValue pixels tall plus margins, capped at MaxScalar since
// no scalar can exceed it. A sample's scalar is
// plotted at panelTop+scalar, so brighter samples sit lower and a step up in
// brightness reads as a falling curve, matching the Falling label. Edge
// events get a marker on the segment and a vertical tick in the panel. In
// swatch mode the panel shows each sample's color as a column instead of a
// curve.
//
// An invalid profile renders the image with an empty panel.
func RenderProfile(img image.Image, p *profile.Profile, opts OverlayOptions) (*EncodedImage, error) {
	lineColor, err := uniformFromHex(opts.LineColor, defaultLineColor)
	if err != nil {
		return nil, err
	}
	risingColor, err := uniformFromHex(opts.RisingColor, defaultRisingColor)
	if err != nil {
		return nil, err
	}
	fallingColor, err := uniformFromHex(opts.FallingColor, defaultFallingColor)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	if width < minPlotWidth {
		width = minPlotWidth
	}
	plotHeight := plotHeightFor(p.MaxValue)
	panelHeight := plotHeight + 2*panelMargin
	imgHeight := bounds.Dy()

	result := image.NewRGBA(image.Rect(0, 0, width, imgHeight+panelHeight))
	draw.Draw(result, image.Rect(0, 0, bounds.Dx(), imgHeight), img, bounds.Min, draw.Src)
	panel := image.Rect(0, imgHeight, width, imgHeight+panelHeight)
	draw.Draw(result, panel, image.NewUniform(color.RGBA{24, 24, 24, 255}), image.Point{}, draw.Src)

	if !p.Valid {
		if opts.ShowLabels {
			drawText(result, panelMargin, imgHeight+panelMargin+13, "no profile: "+p.Reason, color.White)
		}
		return encodePNG(result)
	}

	// Image coordinates in the result are shifted by bounds.Min.
	toResult := func(pt profile.Point) image.Point {
		return image.Pt(int(math.Floor(pt.X))-bounds.Min.X, int(math.Floor(pt.Y))-bounds.Min.Y)
	}

	for _, s := range p.Samples {
		blend(result, toResult(s.Position), lineColor)
	}
	drawMarker(result, toResult(p.A), markerRadius, lineColor)
	drawMarker(result, toResult(p.B), markerRadius, lineColor)

	n := len(p.Samples)
	plotX := func(i int) int {
		if n < 2 {
			return 0
		}
		return i * (width - 1) / (n - 1)
	}
	plotTop := imgHeight + panelMargin

	if p.Mode == profile.ModeSwatch.String() {
		for i, s := range p.Samples {
			c := color.RGBA{s.Color.R, s.Color.G, s.Color.B, 255}
			x0, x1 := plotX(i), plotX(i+1)
			if i == n-1 || x1 <= x0 {
				x1 = x0 + 1
			}
			draw.Draw(result, image.Rect(x0, plotTop, x1, plotTop+plotHeight), image.NewUniform(c), image.Point{}, draw.Src)
		}
	} else {
		curve := image.NewUniform(color.RGBA{230, 230, 230, 255})
		prev := image.Pt(plotX(0), plotTop+int(p.Samples[0].Scalar))
		for i := 1; i < n; i++ {
			cur := image.Pt(plotX(i), plotTop+int(p.Samples[i].Scalar))
			drawLine(result, prev, cur, curve)
			prev = cur
		}
	}

	for _, e := range p.Events {
		c := fallingColor
		if e.Direction == profile.Rising {
			c = risingColor
		}
		drawMarker(result, toResult(e.Position), markerRadius, c)
		x := plotX(e.Index)
		drawLine(result, image.Pt(x, imgHeight+1), image.Pt(x, imgHeight+panelHeight-2), c)
	}

	if opts.ShowLabels {
		a, b := toResult(p.A), toResult(p.B)
		drawText(result, a.X+markerRadius+2, a.Y-markerRadius, "A", color.White)
		drawText(result, b.X+markerRadius+2, b.Y-markerRadius, "B", color.White)
		summary := fmt.Sprintf("%d samples  %d rising  %d falling", n, p.Stats.Rising, p.Stats.Falling)
		if p.LengthMicrons != nil {
			summary += fmt.Sprintf("  %.2f um", *p.LengthMicrons)
		}
		drawText(result, panelMargin, imgHeight+panelHeight-3, summary, color.White)
	}

	return encodePNG(result)
}

// plotHeightFor is the panel's drawing height in pixels for a scalar clamp.
func plotHeightFor(maxVal float64) int {
	if maxVal <= 0 || math.IsNaN(maxVal) {
		maxVal = profile.DefaultMaxValue
	}
	return int(math.Ceil(math.Min(maxVal, profile.MaxScalar)))
}

func uniformFromHex(hex, fallback string) (*image.Uniform, error) {
	if hex == "" {
		hex = fallback
	}
	c, alpha, err := parseHexColor(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return image.NewUniform(color.NRGBA{R: r, G: g, B: b, A: alpha}), nil
}

// blend composites src over a single pixel, ignoring points outside dst.
func blend(dst *image.RGBA, p image.Point, src *image.Uniform) {
	if !p.In(dst.Bounds()) {
		return
	}
	draw.Draw(dst, image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))}, src, image.Point{}, draw.Over)
}

// drawMarker outlines a square of the given radius centred on p.
func drawMarker(dst *image.RGBA, p image.Point, radius int, src *image.Uniform) {
	for d := -radius; d <= radius; d++ {
		blend(dst, image.Pt(p.X+d, p.Y-radius), src)
		blend(dst, image.Pt(p.X+d, p.Y+radius), src)
		blend(dst, image.Pt(p.X-radius, p.Y+d), src)
		blend(dst, image.Pt(p.X+radius, p.Y+d), src)
	}
}

// drawLine rasterizes a 1px line with Bresenham's algorithm.
func drawLine(dst *image.RGBA, a, b image.Point, src *image.Uniform) {
	dx := absInt(b.X - a.X)
	dy := -absInt(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	for {
		blend(dst, a, src)
		if a == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			a.X += sx
		}
		if e2 <= dx {
			e += dx
			a.Y += sy
		}
	}
}

// drawText writes s with its baseline at (x, y).
func drawText(dst *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

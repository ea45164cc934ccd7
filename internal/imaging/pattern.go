package imaging

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// Pattern kinds accepted by GeneratePattern.
const (
	PatternStep     = "step"
	PatternGradient = "gradient"
	PatternBars     = "bars"
	PatternChecker  = "checker"
)

// PatternKinds lists the supported pattern names.
var PatternKinds = []string{PatternStep, PatternGradient, PatternBars, PatternChecker}

const checkerSize = 8

// GeneratePattern draws a synthetic test target.
//
//   - step: black left half, white right half; the edge is at column w/2
//   - gradient: horizontal ramp from black (column 0) to white (column w-1)
//   - bars: groups of three white bars on black, each group narrower than
//     the last, in the manner of a resolution target
//   - checker: 8x8 black and white squares, black at the origin
func GeneratePattern(kind string, width, height int) (*image.NRGBA, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("pattern size %dx%d too small: need at least 2x2", width, height)
	}

	img := imaging.New(width, height, color.Black)
	white := color.NRGBA{255, 255, 255, 255}

	switch kind {
	case PatternStep:
		fillRect(img, image.Rect(width/2, 0, width, height), white)

	case PatternGradient:
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / (width - 1))
			fillRect(img, image.Rect(x, 0, x+1, height), color.NRGBA{v, v, v, 255})
		}

	case PatternBars:
		for _, bar := range barLayout(width) {
			fillRect(img, image.Rect(bar.Min, height/4, bar.Max, height-height/4), white)
		}

	case PatternChecker:
		for y := 0; y < height; y += checkerSize {
			for x := 0; x < width; x += checkerSize {
				if (x/checkerSize+y/checkerSize)%2 == 1 {
					fillRect(img, image.Rect(x, y, x+checkerSize, y+checkerSize), white)
				}
			}
		}

	default:
		return nil, fmt.Errorf("unknown pattern: %s", kind)
	}

	return img, nil
}

// span is a half-open column range.
type span struct{ Min, Max int }

// barLayout places groups of three bars across width. A group with bar
// width w occupies 6w columns (bar, gap, bar, gap, bar, gap); w halves
// from group to group until it reaches one pixel.
func barLayout(width int) []span {
	var bars []span
	x := width / 16
	for w := width / 16; w >= 1; w /= 2 {
		if x+6*w > width {
			break
		}
		for i := 0; i < 3; i++ {
			bars = append(bars, span{x, x + w})
			x += 2 * w
		}
	}
	return bars
}

func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// SavePNG writes img to path as PNG, creating the parent directory if needed.
func SavePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}

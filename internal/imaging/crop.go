package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/line-profile-mcp/internal/profile"
)

// EncodedImage is a rendered PNG returned to the client.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// encodePNG renders img as a base64 PNG.
func encodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// ZoomResult is a magnified crop around a segment.
type ZoomResult struct {
	EncodedImage

	// Region is the crop rectangle in source image coordinates, with
	// (X1,Y1) inclusive and (X2,Y2) exclusive.
	Region Region  `json:"region"`
	Scale  float64 `json:"scale"`
}

// Region represents a rectangular region within an image.
type Region struct {
	X1 int `json:"x1"` // Left edge X coordinate (inclusive)
	Y1 int `json:"y1"` // Top edge Y coordinate (inclusive)
	X2 int `json:"x2"` // Right edge X coordinate (exclusive)
	Y2 int `json:"y2"` // Bottom edge Y coordinate (exclusive)
}

// SegmentRegion returns the bounding box of the segment a→b grown by
// padding on every side and clipped to bounds.
func SegmentRegion(bounds image.Rectangle, a, b profile.Point, padding int) image.Rectangle {
	x1 := int(math.Floor(math.Min(a.X, b.X))) - padding
	y1 := int(math.Floor(math.Min(a.Y, b.Y))) - padding
	x2 := int(math.Floor(math.Max(a.X, b.X))) + 1 + padding
	y2 := int(math.Floor(math.Max(a.Y, b.Y))) + 1 + padding
	return image.Rect(x1, y1, x2, y2).Intersect(bounds)
}

// CropSegment extracts the area around the segment a→b and magnifies it by
// scale with nearest-neighbour resampling, so individual pixels stay
// visible. Both endpoints must be inside the image.
func CropSegment(img image.Image, a, b profile.Point, padding int, scale float64) (*ZoomResult, error) {
	bounds := img.Bounds()
	if !profile.InBounds(a, bounds) || !profile.InBounds(b, bounds) {
		return nil, fmt.Errorf("segment %v-%v outside image bounds (%d,%d)-(%d,%d)",
			a, b, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if padding < 0 {
		return nil, fmt.Errorf("invalid padding %d: must be >= 0", padding)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v: must be > 0", scale)
	}

	rect := SegmentRegion(bounds, a, b, padding)
	cropped := imaging.Crop(img, rect)

	if scale != 1.0 {
		newWidth := int(math.Max(1, float64(cropped.Bounds().Dx())*scale))
		newHeight := int(math.Max(1, float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.NearestNeighbor)
	}

	enc, err := encodePNG(cropped)
	if err != nil {
		return nil, err
	}
	return &ZoomResult{
		EncodedImage: *enc,
		Region:       Region{X1: rect.Min.X, Y1: rect.Min.Y, X2: rect.Max.X, Y2: rect.Max.Y},
		Scale:        scale,
	}, nil
}

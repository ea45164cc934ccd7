package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// Each entry keeps the decoded original and, once requested, a copy fitted
// into a display box. Profiles are always taken on the fitted copy, so the
// coordinates a user clicks on are the coordinates that get sampled.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.LoadFitted("/path/to/target.png", 800, 600)
//	if err != nil {
//	    log.Fatal(err)
//	}
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*cachedImage
}

type cachedImage struct {
	original image.Image
	fitted   image.Image
	box      image.Point
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*cachedImage),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Supported formats are PNG, JPEG, and GIF. The image is cached using the
// exact path string provided.
func (c *ImageCache) Load(path string) (image.Image, error) {
	entry, err := c.entry(path)
	if err != nil {
		return nil, err
	}
	return entry.original, nil
}

// LoadFitted returns the image scaled down to fit inside maxWidth x maxHeight
// while keeping its aspect ratio. Images that already fit are returned
// unscaled. The fitted copy is cached per path for the most recent box.
func (c *ImageCache) LoadFitted(path string, maxWidth, maxHeight int) (image.Image, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, fmt.Errorf("invalid display size %dx%d", maxWidth, maxHeight)
	}

	entry, err := c.entry(path)
	if err != nil {
		return nil, err
	}

	box := image.Pt(maxWidth, maxHeight)
	c.mu.RLock()
	if entry.fitted != nil && entry.box == box {
		fitted := entry.fitted
		c.mu.RUnlock()
		return fitted, nil
	}
	c.mu.RUnlock()

	fitted := FitToDisplay(entry.original, maxWidth, maxHeight)

	c.mu.Lock()
	entry.fitted = fitted
	entry.box = box
	c.mu.Unlock()

	return fitted, nil
}

func (c *ImageCache) entry(path string) (*cachedImage, error) {
	c.mu.RLock()
	if e, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return e, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.images[path]; ok {
		return e, nil
	}
	e := &cachedImage{original: img}
	c.images[path] = e
	return e, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*cachedImage)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// FitToDisplay scales img down with a Lanczos filter so it fits inside the
// given box. Images already inside the box are returned as-is.
func FitToDisplay(img image.Image, maxWidth, maxHeight int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth && b.Dy() <= maxHeight {
		return img
	}
	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the original image width in pixels.
	Width int `json:"width"`

	// Height is the original image height in pixels.
	Height int `json:"height"`

	// DisplayWidth and DisplayHeight are the dimensions after fitting into
	// the display box. Endpoint coordinates refer to this space.
	DisplayWidth  int `json:"display_width"`
	DisplayHeight int `json:"display_height"`

	// Scale is DisplayWidth / Width.
	Scale float64 `json:"scale"`

	// Format is the detected image format: "png", "jpeg", "gif", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image, fits it into the display box and returns
// metadata about both versions.
//
// # Format Detection
//
// The format is determined by file extension:
//   - ".png" -> "png"
//   - ".jpg", ".jpeg" -> "jpeg"
//   - ".gif" -> "gif"
//   - Other extensions -> "unknown"
func LoadImageInfo(cache *ImageCache, path string, maxWidth, maxHeight int) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	fitted, err := cache.LoadFitted(path, maxWidth, maxHeight)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch filepath.Ext(path) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	fb := fitted.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		DisplayWidth:  fb.Dx(),
		DisplayHeight: fb.Dy(),
		Scale:         float64(fb.Dx()) / float64(bounds.Dx()),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the original width and height of an image and
// the size it is displayed at.
type DimensionsResult struct {
	Width         int `json:"width"`
	Height        int `json:"height"`
	DisplayWidth  int `json:"display_width"`
	DisplayHeight int `json:"display_height"`
}

// GetDimensions returns the dimensions of an image without additional
// metadata. The display size is the image fitted into maxWidth x maxHeight.
func GetDimensions(cache *ImageCache, path string, maxWidth, maxHeight int) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	fitted, err := cache.LoadFitted(path, maxWidth, maxHeight)
	if err != nil {
		return nil, err
	}

	bounds, fb := img.Bounds(), fitted.Bounds()
	return &DimensionsResult{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		DisplayWidth:  fb.Dx(),
		DisplayHeight: fb.Dy(),
	}, nil
}

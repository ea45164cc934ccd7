// Package imaging provides the image side of the line profile server.
//
// It loads and caches images, fits them into the display box, samples
// colors, measures and crops around a segment, generates synthetic test
// patterns, and renders a computed profile as an overlay. The profile
// itself is computed by package profile; this package only draws it.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward. For regions, (x1,y1) is
// inclusive and (x2,y2) is exclusive.
//
// Images loaded with LoadFitted are scaled down to fit the display box.
// Endpoint coordinates passed to the profile operations refer to the
// fitted image, not the file on disk.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The remaining functions are
// stateless and do not modify their input images.
//
// # Output Images
//
// Overlays and zooms are returned as base64 PNG in an EncodedImage.
// Generated patterns are written to disk with SavePNG.
package imaging

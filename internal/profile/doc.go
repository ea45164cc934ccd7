// Package profile samples brightness profiles along a line segment and
// classifies the transitions it finds.
//
// The pipeline runs in a fixed order:
//
//  1. SampleLine walks the segment A→B in integer steps and reads the pixel
//     color under each step.
//  2. Reduce turns each color into a scalar (the Euclidean norm of the RGB
//     triple, clamped to [0, maxVal]).
//  3. Label and Classify compare consecutive scalars against a threshold and
//     mark each step as Rising, Falling or None.
//
// Analyzer.Recompute ties the three steps together and is the only entry
// point the server uses. All functions are pure: given the same image,
// endpoints and options they return the same result, and nothing is cached.
//
// # Coordinate System
//
// Points are floating-point image coordinates with (0,0) at the top-left
// corner, X increasing rightward and Y increasing downward. A point is inside
// the image when Min <= coord < Max on both axes of img.Bounds(). Sampled
// positions map onto pixels by truncation.
//
// # Edge Polarity
//
// A scalar increase between consecutive samples is labelled Falling and a
// decrease is labelled Rising. The profile is plotted in screen space where Y
// grows downward, so a brighter sample is drawn lower and the plotted curve
// falls. The labels follow the plot, not the brightness.
//
// # Endpoint Selection
//
// Selector models the two-click interaction as a small state machine
// (AwaitingA, AwaitingB) plus a one-shot "just selected" flag. Callers pass
// TakeJustSelected() as Options.EmitLog so edge events are logged exactly
// once per selection while the profile itself can be recomputed any number of
// times.
package profile

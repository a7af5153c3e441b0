// Package imaging provides the raster operations behind stamp placement.
//
// The central piece is the region classifier: given a rectangle of a page
// raster it decides whether the area is free of visible content. The test is
// deliberately strict and conjunctive, so that faint ink, scan noise or a
// light watermark all disqualify a region. The package also contains the
// helpers used to inspect a placement: cropping, PNG encoding and an overlay
// that draws the scan grid and chosen rectangle on a page.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive (top-left), Max is exclusive (bottom-right)
//
// # Grayscale
//
// Regions are converted to 8-bit luminance using ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B), rounded to the nearest integer.
//
// # Classifier Statistics
//
// For a grayscale region the classifier computes:
//   - white percentage: share of pixels brighter than the white threshold
//   - contrast: population standard deviation of intensities
//   - text density: share of pixels darker than the white threshold minus 50
//
// # Thread Safety
//
// All functions are stateless. A GrayRaster is immutable after construction
// and may be shared between goroutines.
package imaging

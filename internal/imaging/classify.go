package imaging

import (
	"image"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat"
)

// Thresholds configures the free-region test.
//
// A region is free only when all three conditions hold:
//
//	WhitePercentage >= MinWhitePercentage
//	Contrast        <  Contrast
//	TextDensity     <  TextDensity
type Thresholds struct {
	// White is the 8-bit intensity above which a pixel counts as white.
	// Pixels darker than White-50 count as ink.
	White int `json:"white_threshold"`

	// Contrast is the exclusive upper bound for the intensity standard deviation.
	Contrast float64 `json:"contrast_threshold"`

	// TextDensity is the exclusive upper bound for the ink percentage.
	TextDensity float64 `json:"text_density_threshold"`

	// MinWhitePercentage is the inclusive lower bound for the white percentage.
	MinWhitePercentage float64 `json:"min_white_percentage"`
}

// DefaultThresholds returns the strict defaults: any visible ink, scan noise
// or light watermark disqualifies a region.
func DefaultThresholds() Thresholds {
	return Thresholds{
		White:              245,
		Contrast:           15,
		TextDensity:        3,
		MinWhitePercentage: 98,
	}
}

// inkLevel is the intensity below which a pixel counts toward text density.
func (t Thresholds) inkLevel() int {
	return t.White - 50
}

// RegionStats holds the statistics the classifier derives from a region.
type RegionStats struct {
	// WhitePercentage is the share of pixels brighter than the white threshold (0-100).
	WhitePercentage float64 `json:"white_percentage"`

	// Contrast is the population standard deviation of grayscale intensities.
	Contrast float64 `json:"contrast"`

	// TextDensity is the share of pixels darker than White-50 (0-100).
	TextDensity float64 `json:"text_density"`

	// Pixels is the number of pixels examined.
	Pixels int `json:"pixels"`
}

// Free reports whether the statistics pass all three thresholds.
func (s RegionStats) Free(t Thresholds) bool {
	return s.Pixels > 0 &&
		s.WhitePercentage >= t.MinWhitePercentage &&
		s.Contrast < t.Contrast &&
		s.TextDensity < t.TextDensity
}

// ComputeRegionStats crops rect out of img, converts it to grayscale and
// computes the classifier statistics.
//
// The second return value is false when rect is empty or not fully contained
// in the image bounds; the statistics are then zero.
func ComputeRegionStats(img image.Image, rect image.Rectangle, t Thresholds) (RegionStats, bool) {
	if rect.Empty() || !rect.In(img.Bounds()) {
		return RegionStats{}, false
	}
	gray := imaging.Grayscale(imaging.Crop(img, rect))
	return grayStats(gray, gray.Bounds(), t), true
}

// IsFree reports whether rect of img is free of visible content.
// Regions outside the image are never free.
func IsFree(img image.Image, rect image.Rectangle, t Thresholds) bool {
	stats, ok := ComputeRegionStats(img, rect, t)
	return ok && stats.Free(t)
}

// GrayRaster is a page converted to grayscale once, so that many candidate
// regions can be classified without repeating the conversion. Results are
// identical to ComputeRegionStats on the source image.
type GrayRaster struct {
	gray   *image.NRGBA
	origin image.Point
}

// NewGrayRaster converts img to grayscale.
func NewGrayRaster(img image.Image) *GrayRaster {
	return &GrayRaster{
		gray:   imaging.Grayscale(img),
		origin: img.Bounds().Min,
	}
}

// Bounds returns the bounds of the source image.
func (g *GrayRaster) Bounds() image.Rectangle {
	return g.gray.Bounds().Add(g.origin)
}

// Stats computes the classifier statistics for rect, given in the source
// image's coordinates. See ComputeRegionStats for the meaning of ok.
func (g *GrayRaster) Stats(rect image.Rectangle, t Thresholds) (RegionStats, bool) {
	if rect.Empty() || !rect.In(g.Bounds()) {
		return RegionStats{}, false
	}
	return grayStats(g.gray, rect.Sub(g.origin), t), true
}

// IsFree reports whether rect is free of visible content.
func (g *GrayRaster) IsFree(rect image.Rectangle, t Thresholds) bool {
	stats, ok := g.Stats(rect, t)
	return ok && stats.Free(t)
}

// grayStats reads the red channel of a grayscale NRGBA image, which carries
// the luminance, over rect.
func grayStats(gray *image.NRGBA, rect image.Rectangle, t Thresholds) RegionStats {
	n := rect.Dx() * rect.Dy()
	values := make([]float64, 0, n)
	white, ink := 0, 0
	inkLevel := t.inkLevel()

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := gray.PixOffset(rect.Min.X, y)
		for x := 0; x < rect.Dx(); x++ {
			v := int(gray.Pix[row+x*4])
			if v > t.White {
				white++
			}
			if v < inkLevel {
				ink++
			}
			values = append(values, float64(v))
		}
	}

	_, std := stat.PopMeanStdDev(values, nil)
	return RegionStats{
		WhitePercentage: 100 * float64(white) / float64(n),
		Contrast:        std,
		TextDensity:     100 * float64(ink) / float64(n),
		Pixels:          n,
	}
}

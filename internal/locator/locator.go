// Package locator finds where a stamp can be placed on a page raster.
//
// The scan starts at the bottom of the page, which is the conventional and
// least intrusive place for an approval stamp, and moves upward one step at
// a time; within a row it moves left to right. The first candidate the
// region classifier accepts wins. When no candidate is free the locator
// falls back to the bottom-left corner and says so in the returned Placement.
package locator

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/pdf-stamp/internal/config"
	"github.com/ironsheep/pdf-stamp/internal/imaging"
)

// Kind tells how a placement was obtained.
type Kind int

const (
	// Placed means the classifier accepted the region.
	Placed Kind = iota
	// FallbackUsed means no free region existed and the bottom-left default
	// was returned. The region is not necessarily free.
	FallbackUsed
)

// String returns "placed" or "fallback".
func (k Kind) String() string {
	if k == FallbackUsed {
		return "fallback"
	}
	return "placed"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes "placed" or "fallback".
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "placed":
		*k = Placed
	case "fallback":
		*k = FallbackUsed
	default:
		return fmt.Errorf("unknown placement kind %q", text)
	}
	return nil
}

// Placement is the top-left corner of the stamp in raster pixel space.
type Placement struct {
	X    int  `json:"x"`
	Y    int  `json:"y"`
	Kind Kind `json:"kind"`
}

// Fallback reports whether the placement is the unconditional default.
func (p Placement) Fallback() bool {
	return p.Kind == FallbackUsed
}

// Rect returns the stamp rectangle for a stamp of the given size.
func (p Placement) Rect(width, height int) image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+width, p.Y+height)
}

// Options controls the scan.
type Options struct {
	Thresholds imaging.Thresholds

	// Step is the scan step in pixels, in both directions. Values below one
	// are treated as one.
	Step int

	// Logger receives a debug line per scan; nil disables logging.
	Logger logrus.FieldLogger
}

// OptionsFromConfig derives the scan options from cfg.
func OptionsFromConfig(cfg *config.Config, logger logrus.FieldLogger) Options {
	return Options{
		Thresholds: imaging.Thresholds{
			White:              cfg.Classifier.White,
			Contrast:           cfg.Classifier.Contrast,
			TextDensity:        cfg.Classifier.TextDensity,
			MinWhitePercentage: cfg.Classifier.MinWhitePercentage,
		},
		Step:   cfg.StepPixels(),
		Logger: logger,
	}
}

// FindEmptySpace returns the first free stamp-sized region of page.
//
// Rows are scanned from y = H-h down to 0 and, within a row, columns from
// x = 0 up to W-w, both inclusive and in steps of opts.Step. Every candidate
// therefore lies inside the page. If none is free, or the stamp does not fit
// at all, the result is (0, H-h) with Kind FallbackUsed. Coordinates are
// relative to the page's top-left corner. FindEmptySpace never fails.
func FindEmptySpace(page image.Image, stampWidth, stampHeight int, opts Options) Placement {
	bounds := page.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	step := opts.Step
	if step < 1 {
		step = 1
	}

	fallback := Placement{X: 0, Y: height - stampHeight, Kind: FallbackUsed}
	if stampWidth <= 0 || stampHeight <= 0 || stampWidth > width || stampHeight > height {
		logScan(opts.Logger, fallback, 0)
		return fallback
	}

	gray := imaging.NewGrayRaster(page)
	tested := 0
	for y := height - stampHeight; y >= 0; y -= step {
		for x := 0; x <= width-stampWidth; x += step {
			tested++
			rect := image.Rect(x, y, x+stampWidth, y+stampHeight).Add(bounds.Min)
			if gray.IsFree(rect, opts.Thresholds) {
				p := Placement{X: x, Y: y, Kind: Placed}
				logScan(opts.Logger, p, tested)
				return p
			}
		}
	}

	logScan(opts.Logger, fallback, tested)
	return fallback
}

func logScan(logger logrus.FieldLogger, p Placement, tested int) {
	if logger == nil {
		return
	}
	logger.WithFields(logrus.Fields{
		"x":          p.X,
		"y":          p.Y,
		"placement":  p.Kind.String(),
		"candidates": tested,
	}).Debug("free-space scan finished")
}

package document

import (
	"bytes"
	"fmt"
	"image"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func init() {
	// Keep pdfcpu from creating a configuration directory on disk.
	model.ConfigPath = "disable"
}

// pointsPerInch is the PDF user space unit.
const pointsPerInch = 72.0

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PixelsToPoints converts a raster length at dpi to PDF points.
func PixelsToPoints(px int, dpi float64) float64 {
	return float64(px) * pointsPerInch / dpi
}

// WatermarkDescription returns the pdfcpu watermark description that places
// an image of the raster rectangle rect, rendered at dpi, on a page.
//
// The image is anchored at the page's top-left corner and moved right by
// rect.Min.X and down by rect.Min.Y (converted to points). pdfcpu measures
// image size in pixels, so an absolute scale of 72/dpi reproduces the
// physical size the stamp was designed for.
func WatermarkDescription(rect image.Rectangle, dpi float64) string {
	return fmt.Sprintf("position:tl, offset:%.4f %.4f, scalefactor:%.6f abs, rotation:0, opacity:1",
		PixelsToPoints(rect.Min.X, dpi),
		-PixelsToPoints(rect.Min.Y, dpi),
		pointsPerInch/dpi)
}

// ApplyStamp overlays stampPNG on every page of data at the raster rectangle
// rect (pixels at dpi, origin top-left) and returns the serialized document.
//
// The stamp is drawn on top of the existing content. The same rectangle is
// used for every page. On error no output is returned.
func ApplyStamp(data, stampPNG []byte, rect image.Rectangle, dpi float64) ([]byte, error) {
	if err := Validate(data, 0); err != nil {
		return nil, err
	}
	if rect.Empty() {
		return nil, fmt.Errorf("stamp rectangle %v is empty", rect)
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("dpi must be positive, got %v", dpi)
	}

	wm, err := api.ImageWatermarkForReader(bytes.NewReader(stampPNG), WatermarkDescription(rect, dpi), true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare stamp image: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &out, nil, wm, newConfiguration()); err != nil {
		return nil, fmt.Errorf("%w: failed to apply stamp: %v", ErrInvalidDocument, err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages of data as seen by pdfcpu.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return n, nil
}

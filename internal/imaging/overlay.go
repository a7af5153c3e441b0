package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// OverlayResult contains a page raster annotated with the placement scan.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	GridSpacing int    `json:"grid_spacing"`
}

// PlacementOverlay draws the locator's scan grid and the chosen stamp
// rectangle on a copy of img.
//
// Grid lines mark the top-left corners of the scanned candidates: columns at
// multiples of gridSpacing from the left edge, rows at multiples of
// gridSpacing upward from the last row that still fits the stamp. A
// gridSpacing of zero draws no grid. Invalid colors fall back to
// semi-transparent red for the grid and opaque blue for the placement.
func PlacementOverlay(img image.Image, placement image.Rectangle, gridSpacing int, gridColorHex, boxColorHex string) (*OverlayResult, error) {
	result := RenderPlacementOverlay(img, placement, gridSpacing, gridColorHex, boxColorHex)

	encoded, err := EncodePNGBase64(result)
	if err != nil {
		return nil, err
	}

	return &OverlayResult{
		Width:       result.Bounds().Dx(),
		Height:      result.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		GridSpacing: gridSpacing,
	}, nil
}

// RenderPlacementOverlay is PlacementOverlay without the encoding step.
// The returned image has its origin at (0,0); placement is given in the
// coordinates of img.
func RenderPlacementOverlay(img image.Image, placement image.Rectangle, gridSpacing int, gridColorHex, boxColorHex string) *image.NRGBA {
	origin := img.Bounds().Min
	result := imaging.Clone(img)
	placement = placement.Sub(origin)
	width := result.Bounds().Dx()
	height := result.Bounds().Dy()

	gridColor, err := ParseHexColor(gridColorHex)
	if err != nil {
		gridColor = color.NRGBA{255, 0, 0, 128}
	}
	boxColor, err := ParseHexColor(boxColorHex)
	if err != nil {
		boxColor = color.NRGBA{0, 0, 255, 255}
	}

	if gridSpacing > 0 {
		for x := 0; x < width; x += gridSpacing {
			for y := 0; y < height; y++ {
				blend(result, x, y, gridColor)
			}
		}
		for y := height - placement.Dy(); y >= 0; y -= gridSpacing {
			for x := 0; x < width; x++ {
				blend(result, x, y, gridColor)
			}
		}
	}

	// Three pixel outline, drawn inside the placement rectangle.
	for i := 0; i < 3; i++ {
		r := placement.Inset(i)
		if r.Empty() {
			break
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			blend(result, x, r.Min.Y, boxColor)
			blend(result, x, r.Max.Y-1, boxColor)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			blend(result, r.Min.X, y, boxColor)
			blend(result, r.Max.X-1, y, boxColor)
		}
	}

	return result
}

// blend composites c over the pixel at (x, y); out-of-bounds points are ignored.
func blend(img *image.NRGBA, x, y int, c color.NRGBA) {
	if !(image.Point{x, y}.In(img.Bounds())) {
		return
	}
	if c.A == 255 {
		img.SetNRGBA(x, y, c)
		return
	}
	dst := img.NRGBAAt(x, y)
	a := uint32(c.A)
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*(255-a)) / 255)
	}
	img.SetNRGBA(x, y, color.NRGBA{
		R: mix(c.R, dst.R),
		G: mix(c.G, dst.G),
		B: mix(c.B, dst.B),
		A: dst.A,
	})
}

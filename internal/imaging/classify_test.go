package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
)

func TestIsFree_AllWhite(t *testing.T) {
	img := createInMemoryImage(300, 200, white)
	th := DefaultThresholds()

	rect := image.Rect(10, 20, 222, 114)
	stats, ok := ComputeRegionStats(img, rect, th)
	if !ok {
		t.Fatal("ComputeRegionStats rejected an in-bounds region")
	}
	if stats.WhitePercentage != 100 || stats.Contrast != 0 || stats.TextDensity != 0 {
		t.Errorf("stats: got %+v, want 100%% white, 0 contrast, 0 density", stats)
	}
	if stats.Pixels != 212*94 {
		t.Errorf("Pixels: got %d, want %d", stats.Pixels, 212*94)
	}
	if !IsFree(img, rect, th) {
		t.Error("all-white region should be free")
	}
}

func TestIsFree_InkDisqualifies(t *testing.T) {
	th := DefaultThresholds()
	rect := image.Rect(0, 0, 100, 100)

	tests := []struct {
		name     string
		darkPix  int
		shade    color.RGBA
		wantFree bool
	}{
		{"3 percent black", 300, black, false},
		{"10 percent black", 1000, black, false},
		{"3 percent just below ink level", 300, color.RGBA{194, 194, 194, 255}, false},
		{"1 percent light gray", 100, color.RGBA{200, 200, 200, 255}, true},
		{"single black pixel", 1, black, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createInMemoryImage(100, 100, white)
			paintPixels(img, rect, tt.darkPix, tt.shade)
			if got := IsFree(img, rect, th); got != tt.wantFree {
				stats, _ := ComputeRegionStats(img, rect, th)
				t.Errorf("IsFree: got %v, want %v (stats %+v)", got, tt.wantFree, stats)
			}
		})
	}
}

func TestIsFree_LightWatermark(t *testing.T) {
	// Uniform light gray: no contrast, no ink, but not white.
	img := createInMemoryImage(100, 100, color.RGBA{240, 240, 240, 255})
	rect := image.Rect(0, 0, 100, 100)

	stats, _ := ComputeRegionStats(img, rect, DefaultThresholds())
	if stats.WhitePercentage != 0 {
		t.Errorf("WhitePercentage: got %v, want 0", stats.WhitePercentage)
	}
	if IsFree(img, rect, DefaultThresholds()) {
		t.Error("light gray region should not be free")
	}
}

func TestIsFree_ContrastAlone(t *testing.T) {
	img := createInMemoryImage(100, 100, white)
	rect := image.Rect(0, 0, 100, 100)
	paintPixels(img, rect, 100, color.RGBA{200, 200, 200, 255})

	stats, _ := ComputeRegionStats(img, rect, DefaultThresholds())
	// Population std-dev of 99% 255 and 1% 200.
	want := 55 * math.Sqrt(0.01*0.99)
	if math.Abs(stats.Contrast-want) > 1e-9 {
		t.Errorf("Contrast: got %v, want %v", stats.Contrast, want)
	}

	th := DefaultThresholds()
	th.Contrast = 5
	if IsFree(img, rect, th) {
		t.Error("region should fail the contrast test with threshold 5")
	}
}

func TestIsFree_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, white)
	th := DefaultThresholds()

	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"past right edge", image.Rect(50, 0, 101, 10)},
		{"past bottom edge", image.Rect(0, 95, 10, 105)},
		{"negative origin", image.Rect(-1, -1, 10, 10)},
		{"empty", image.Rect(10, 10, 10, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsFree(img, tt.rect, th) {
				t.Error("out-of-bounds region must not be free")
			}
			if _, ok := ComputeRegionStats(img, tt.rect, th); ok {
				t.Error("ComputeRegionStats should report !ok")
			}
		})
	}
}

func TestGrayRaster_MatchesComputeRegionStats(t *testing.T) {
	img := createPatternImage(200, 160)
	paintPixels(img, image.Rect(120, 100, 200, 160), 50, black)
	gray := NewGrayRaster(img)
	th := DefaultThresholds()

	rects := []image.Rectangle{
		image.Rect(0, 0, 200, 160),
		image.Rect(100, 80, 200, 160),
		image.Rect(120, 100, 180, 140),
		image.Rect(90, 70, 110, 90),
	}

	for _, r := range rects {
		want, _ := ComputeRegionStats(img, r, th)
		got, ok := gray.Stats(r, th)
		if !ok {
			t.Fatalf("Stats(%v) rejected in-bounds region", r)
		}
		if got != want {
			t.Errorf("Stats(%v): got %+v, want %+v", r, got, want)
		}
		if gray.IsFree(r, th) != IsFree(img, r, th) {
			t.Errorf("IsFree(%v) differs between GrayRaster and image", r)
		}
	}
}

func TestGrayRaster_OffsetBounds(t *testing.T) {
	base := createInMemoryImage(100, 100, white)
	sub := base.SubImage(image.Rect(20, 30, 100, 100))
	gray := NewGrayRaster(sub)

	if gray.Bounds() != sub.Bounds() {
		t.Errorf("Bounds: got %v, want %v", gray.Bounds(), sub.Bounds())
	}
	if !gray.IsFree(image.Rect(20, 30, 60, 60), DefaultThresholds()) {
		t.Error("white sub-image region should be free")
	}
	if gray.IsFree(image.Rect(0, 0, 40, 40), DefaultThresholds()) {
		t.Error("region outside the sub-image must not be free")
	}
}

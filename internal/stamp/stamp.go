// Package stamp renders the approval stamp bitmap.
//
// A stamp is a small transparent RGBA image (1.8 x 0.8 cm at 300 DPI by
// default) with four lines of text in a single accent color and a thin
// rectangular border:
//
//	Checked and approved          <- bold
//	Date: 19.10.2026 14:05
//	<identity>
//	Device-ID [AA:BB:CC:DD:EE:FF]
//
// Fonts come from an ordered list of well-known system paths. When none can
// be used the renderer falls back to a built-in bitmap face; rendering never
// fails because of fonts.
package stamp

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/pdf-stamp/internal/config"
	"github.com/ironsheep/pdf-stamp/internal/host"
	"github.com/ironsheep/pdf-stamp/internal/imaging"
)

// ErrEmptyIdentity is returned when the identity line would be blank.
var ErrEmptyIdentity = errors.New("identity must not be empty")

// fallbackColor is used when the configured accent color does not parse.
var fallbackColor = color.NRGBA{177, 81, 15, 255}

// Stamp is a rendered stamp. It is not modified after creation.
type Stamp struct {
	// PNG is the lossless encoding of Image.
	PNG []byte

	// Image is the canvas the stamp was drawn on.
	Image *image.RGBA

	// Lines holds the rendered text, title first.
	Lines []string

	CreatedAt time.Time

	// TitleFont and TextFont name the font files used; empty when the
	// built-in face was used.
	TitleFont string
	TextFont  string

	// FontFallback is true when no system font could be used.
	FontFallback bool
}

// Size returns the stamp dimensions in pixels.
func (s *Stamp) Size() image.Point {
	return s.Image.Bounds().Size()
}

// Renderer creates stamps. It holds no mutable state and may be used from
// several goroutines.
type Renderer struct {
	cfg    *config.Config
	host   host.Provider
	now    func() time.Time
	logger logrus.FieldLogger
}

// NewRenderer returns a renderer using the wall clock.
func NewRenderer(cfg *config.Config, provider host.Provider, logger logrus.FieldLogger) *Renderer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Renderer{cfg: cfg, host: provider, now: time.Now, logger: logger}
}

// WithClock returns a copy of r that reads the time from now.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	c := *r
	c.now = now
	return &c
}

// Size returns the stamp dimensions in pixels.
func (r *Renderer) Size() image.Point {
	return image.Pt(r.cfg.Pixels(r.cfg.Stamp.WidthCM), r.cfg.Pixels(r.cfg.Stamp.HeightCM))
}

// Lines composes the stamp text.
func (r *Renderer) Lines(identity string, at time.Time, deviceID string) []string {
	s := r.cfg.Stamp
	return []string{
		s.Title,
		fmt.Sprintf("%s %s", s.DateLabel, at.Format(s.TimeLayout)),
		identity,
		fmt.Sprintf("%s [%s]", s.DeviceLabel, deviceID),
	}
}

// Create renders a stamp for identity.
//
// The device identifier is required; if the host cannot supply one the stamp
// is not created.
func (r *Renderer) Create(identity string) (*Stamp, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrEmptyIdentity
	}

	deviceID, err := r.host.DeviceID()
	if err != nil {
		return nil, fmt.Errorf("failed to determine device identifier: %w", err)
	}

	now := r.now()
	lines := r.Lines(identity, now, deviceID)

	accent, err := imaging.ParseHexColor(r.cfg.Stamp.Color)
	if err != nil {
		r.logger.WithError(err).Warn("invalid stamp color, using default")
		accent = fallbackColor
	}

	faces := r.loadFaces()
	defer faces.close()

	size := r.Size()
	canvas := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	r.drawText(canvas, lines, faces, accent)
	drawBorder(canvas, r.cfg.Stamp.BorderInset, r.cfg.Stamp.BorderWidth, accent)

	data, err := imaging.EncodePNG(canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stamp: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"identity":      identity,
		"width":         size.X,
		"height":        size.Y,
		"font_fallback": faces.fallback,
	}).Debug("stamp rendered")

	return &Stamp{
		PNG:          data,
		Image:        canvas,
		Lines:        lines,
		CreatedAt:    now,
		TitleFont:    faces.titlePath,
		TextFont:     faces.textPath,
		FontFallback: faces.fallback,
	}, nil
}

// drawText draws the title with the title face and every other line with
// the text face. Each line starts below the previous one by that line's
// rendered height plus the configured gap.
func (r *Renderer) drawText(canvas draw.Image, lines []string, faces *faceSet, c color.Color) {
	x := r.cfg.Pixels(r.cfg.Stamp.MarginCM)
	top := r.cfg.Pixels(r.cfg.Stamp.MarginCM)
	gap := r.cfg.Pixels(r.cfg.Stamp.LineGapCM)
	src := image.NewUniform(c)

	for i, line := range lines {
		face := faces.text
		if i == 0 {
			face = faces.title
		}
		ascent := face.Metrics().Ascent.Ceil()
		d := &font.Drawer{
			Dst:  canvas,
			Src:  src,
			Face: face,
			Dot:  fixed.P(x, top+ascent),
		}
		d.DrawString(line)
		top += lineHeight(face, line) + gap
	}
}

// lineHeight is the distance from the top of the line to the lowest inked
// pixel of text.
func lineHeight(face font.Face, text string) int {
	ascent := face.Metrics().Ascent.Ceil()
	bounds, _ := font.BoundString(face, text)
	if below := bounds.Max.Y.Ceil(); below > 0 {
		return ascent + below
	}
	return ascent
}

// drawBorder draws a rectangle outline width pixels wide. The outer edge
// runs through the pixels at inset on the top and left and at size-inset on
// the right and bottom, so the corners are inclusive.
func drawBorder(canvas *image.RGBA, inset, width int, c color.Color) {
	src := image.NewUniform(c)
	b := canvas.Bounds()
	outer := image.Rect(b.Min.X+inset, b.Min.Y+inset, b.Max.X-inset+1, b.Max.Y-inset+1).Intersect(b)
	for i := 0; i < width; i++ {
		r := outer.Inset(i)
		if r.Empty() {
			return
		}
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
			image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
			image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(canvas, e, src, image.Point{}, draw.Src)
		}
	}
}

// faceSet holds the two faces used for one stamp.
type faceSet struct {
	title, text         font.Face
	titlePath, textPath string
	fallback            bool
}

func (f *faceSet) close() {
	f.title.Close()
	if f.text != f.title {
		f.text.Close()
	}
}

// loadFaces resolves the title and text faces. The bold list is tried for
// the title; if no bold face is usable the regular font is used at title
// size. Without any usable font both faces are the built-in 7x13 face.
func (r *Renderer) loadFaces() *faceSet {
	s := r.cfg.Stamp
	titlePx := r.cfg.Pixels(s.TitleSizeCM)
	textPx := r.cfg.Pixels(s.TextSizeCM)

	fs := &faceSet{}
	if face, path, ok := r.openFace(s.RegularFonts, textPx); ok {
		fs.text, fs.textPath = face, path
	}
	if face, path, ok := r.openFace(s.BoldFonts, titlePx); ok {
		fs.title, fs.titlePath = face, path
	} else if fs.text != nil {
		if face, path, ok := r.openFace(s.RegularFonts, titlePx); ok {
			fs.title, fs.titlePath = face, path
		}
	}

	switch {
	case fs.title == nil && fs.text == nil:
		r.logger.Debug("no usable font found, using built-in face")
		fs.title, fs.text = basicfont.Face7x13, basicfont.Face7x13
		fs.fallback = true
	case fs.text == nil:
		// Only a bold face exists; reuse its file at text size.
		if face, path, ok := r.openFace(s.BoldFonts, textPx); ok {
			fs.text, fs.textPath = face, path
		} else {
			fs.text = basicfont.Face7x13
		}
	case fs.title == nil:
		fs.title = basicfont.Face7x13
	}
	return fs
}

// openFace loads the first font among paths at a pixel size.
func (r *Renderer) openFace(paths []string, px int) (font.Face, string, bool) {
	if px <= 0 {
		return nil, "", false
	}
	f, err := r.host.ResolveFont(paths)
	if err != nil {
		return nil, "", false
	}
	face, err := parseFace(f.Data, px)
	if err != nil {
		r.logger.WithError(err).WithField("path", f.Path).Warn("failed to parse font")
		return nil, "", false
	}
	return face, f.Path, true
}

// parseFace parses a TrueType/OpenType font or the first font of a
// collection (.ttc) and returns a face with an em size of px pixels.
func parseFace(data []byte, px int) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		coll, cerr := opentype.ParseCollection(data)
		if cerr != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		if f, err = coll.Font(0); err != nil {
			return nil, fmt.Errorf("failed to read font from collection: %w", err)
		}
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Package pipeline runs the complete stamping flow for one document: render
// the stamp, rasterize page 1, locate free space, composite the stamp onto
// every page and derive the output file name.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/pdf-stamp/internal/config"
	"github.com/ironsheep/pdf-stamp/internal/document"
	"github.com/ironsheep/pdf-stamp/internal/host"
	"github.com/ironsheep/pdf-stamp/internal/imaging"
	"github.com/ironsheep/pdf-stamp/internal/locator"
	"github.com/ironsheep/pdf-stamp/internal/stamp"
)

// ErrUnknownIdentity is returned for a name that is not in the configured
// identity list.
var ErrUnknownIdentity = errors.New("unknown identity")

// Request is one stamping job.
type Request struct {
	// Document holds the PDF bytes.
	Document []byte

	// FileName is the name of the uploaded or input file; it is only used to
	// derive the output name.
	FileName string

	Identity string
}

// Result is a stamped document.
type Result struct {
	Document  []byte
	FileName  string
	Identity  string
	Placement locator.Placement
	Stamp     *stamp.Stamp

	// PageCount is the number of pages, identical for input and output.
	PageCount int

	// PageSize is the raster size of page 1 at the configured DPI.
	PageSize image.Point
}

// Location is the outcome of a locate-only run.
type Location struct {
	Placement locator.Placement `json:"placement"`
	StampSize image.Point       `json:"-"`
	PageCount int               `json:"page_count"`

	// Raster is page 1 at the configured DPI.
	Raster *image.RGBA `json:"-"`
}

// Stamper holds read-only configuration and may serve concurrent calls.
type Stamper struct {
	cfg      *config.Config
	renderer *stamp.Renderer
	logger   logrus.FieldLogger
}

// New returns a Stamper. A nil logger uses the logrus standard logger.
func New(cfg *config.Config, provider host.Provider, logger logrus.FieldLogger) *Stamper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Stamper{
		cfg:      cfg,
		renderer: stamp.NewRenderer(cfg, provider, logger),
		logger:   logger,
	}
}

// WithClock returns a copy of s whose stamps read the time from now.
func (s *Stamper) WithClock(now func() time.Time) *Stamper {
	c := *s
	c.renderer = s.renderer.WithClock(now)
	return &c
}

// Config returns the configuration the Stamper was built with.
func (s *Stamper) Config() *config.Config {
	return s.cfg
}

// Identities returns a copy of the configured identity list.
func (s *Stamper) Identities() []string {
	return append([]string(nil), s.cfg.Identities...)
}

// StampSize returns the stamp size in pixels.
func (s *Stamper) StampSize() image.Point {
	return s.renderer.Size()
}

// ValidateIdentity trims identity and checks it against the identity list.
// An empty list accepts any non-empty name.
func (s *Stamper) ValidateIdentity(identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", stamp.ErrEmptyIdentity
	}
	if len(s.cfg.Identities) == 0 {
		return identity, nil
	}
	for _, name := range s.cfg.Identities {
		if name == identity {
			return identity, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIdentity, identity)
}

// Preview renders the stamp for identity without touching a document.
func (s *Stamper) Preview(identity string) (*stamp.Stamp, error) {
	identity, err := s.ValidateIdentity(identity)
	if err != nil {
		return nil, err
	}
	return s.renderer.Create(identity)
}

// Locate rasterizes page 1 of data and finds space for a width x height
// stamp. Non-positive dimensions select the configured stamp size.
func (s *Stamper) Locate(data []byte, width, height int) (*Location, error) {
	raster, pages, err := document.RasterizeFirstPage(data, s.cfg.Raster.DPI)
	if err != nil {
		return nil, err
	}

	placement, size := s.FindSpace(raster, width, height)
	return &Location{
		Placement: placement,
		StampSize: size,
		PageCount: pages,
		Raster:    raster,
	}, nil
}

// FindSpace runs the locator on an already rasterized page with the
// configured thresholds and step. Non-positive dimensions select the
// configured stamp size; the size used is returned with the placement.
func (s *Stamper) FindSpace(raster image.Image, width, height int) (locator.Placement, image.Point) {
	size := s.renderer.Size()
	if width > 0 {
		size.X = width
	}
	if height > 0 {
		size.Y = height
	}
	return locator.FindEmptySpace(raster, size.X, size.Y, locator.OptionsFromConfig(s.cfg, s.logger)), size
}

// Thresholds returns the configured classifier thresholds.
func (s *Stamper) Thresholds() imaging.Thresholds {
	return locator.OptionsFromConfig(s.cfg, nil).Thresholds
}

// Process stamps every page of req.Document. On error no output is produced.
func (s *Stamper) Process(req Request) (*Result, error) {
	identity, err := s.ValidateIdentity(req.Identity)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithField("identity", identity)

	st, err := s.renderer.Create(identity)
	if err != nil {
		return nil, err
	}

	size := st.Size()
	loc, err := s.Locate(req.Document, size.X, size.Y)
	if err != nil {
		return nil, err
	}
	if loc.Placement.Fallback() {
		log.Warn("no free region found, stamping bottom-left corner")
	}

	dpi := s.cfg.Raster.DPI
	out, err := document.ApplyStamp(req.Document, st.PNG, loc.Placement.Rect(size.X, size.Y), dpi)
	if err != nil {
		return nil, err
	}

	outPages, err := document.PageCount(out)
	if err != nil {
		return nil, fmt.Errorf("failed to verify stamped document: %w", err)
	}
	if outPages != loc.PageCount {
		return nil, fmt.Errorf("stamped document has %d pages, input had %d", outPages, loc.PageCount)
	}

	name := OutputFileName(req.FileName, s.cfg.OutputSuffix)
	log.WithFields(logrus.Fields{
		"page_count": loc.PageCount,
		"x":          loc.Placement.X,
		"y":          loc.Placement.Y,
		"placement":  loc.Placement.Kind.String(),
		"output":     name,
	}).Info("document stamped")

	return &Result{
		Document:  out,
		FileName:  name,
		Identity:  identity,
		Placement: loc.Placement,
		Stamp:     st,
		PageCount: loc.PageCount,
		PageSize:  loc.Raster.Bounds().Size(),
	}, nil
}

// OutputFileName derives the download name: directory parts are dropped, a
// trailing ".pdf" (any case) is removed and suffix plus ".pdf" appended.
func OutputFileName(original, suffix string) string {
	name := strings.ReplaceAll(original, "..", "")
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(filepath.FromSlash(name)))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "document"
	}
	return name + suffix + ".pdf"
}

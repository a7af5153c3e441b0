// Package config holds the tunable parameters of the stamping pipeline.
//
// Every threshold and physical dimension used by the classifier, the locator
// and the stamp renderer lives here with a documented default, so tuning does
// not require touching the algorithms. A Config can be read from a TOML file
// and selectively overridden from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variables recognized by FromEnv.
const (
	EnvConfigFile  = "PDF_STAMP_CONFIG"
	EnvPort        = "PDF_STAMP_PORT"
	EnvMaxFileSize = "PDF_STAMP_MAX_FILE_SIZE"
	EnvLogLevel    = "PDF_STAMP_LOG_LEVEL"
)

// Classifier holds the region classifier thresholds.
//
// Intensities are 8-bit grayscale values (0 = black, 255 = white);
// percentages are in the range 0-100.
type Classifier struct {
	// White is the intensity above which a pixel counts as white.
	White int `toml:"white_threshold"`

	// Contrast is the exclusive upper bound for the standard deviation of
	// the region's intensities.
	Contrast float64 `toml:"contrast_threshold"`

	// TextDensity is the exclusive upper bound for the percentage of pixels
	// darker than White-50.
	TextDensity float64 `toml:"text_density_threshold"`

	// MinWhitePercentage is the inclusive lower bound for the percentage of
	// white pixels.
	MinWhitePercentage float64 `toml:"min_white_percentage"`
}

// Raster controls page rasterization and the placement scan.
type Raster struct {
	// DPI is the rasterization resolution used for locating and for all
	// centimeter to pixel conversions.
	DPI float64 `toml:"dpi"`

	// StepCM is the scan step of the locator in centimeters.
	StepCM float64 `toml:"step_cm"`
}

// Stamp describes the rendered stamp.
type Stamp struct {
	WidthCM      float64  `toml:"width_cm"`
	HeightCM     float64  `toml:"height_cm"`
	MarginCM     float64  `toml:"margin_cm"`
	LineGapCM    float64  `toml:"line_gap_cm"`
	TitleSizeCM  float64  `toml:"title_size_cm"`
	TextSizeCM   float64  `toml:"text_size_cm"`
	BorderWidth  int      `toml:"border_width"`
	BorderInset  int      `toml:"border_inset"`
	Color        string   `toml:"color"`
	Title        string   `toml:"title"`
	DateLabel    string   `toml:"date_label"`
	DeviceLabel  string   `toml:"device_label"`
	TimeLayout   string   `toml:"time_layout"`
	BoldFonts    []string `toml:"bold_fonts"`
	RegularFonts []string `toml:"regular_fonts"`
}

// Server holds settings of the HTTP surface.
type Server struct {
	Port        string `toml:"port"`
	MaxFileSize int64  `toml:"max_file_size"`
}

// Config is the complete configuration.
type Config struct {
	Classifier Classifier `toml:"classifier"`
	Raster     Raster     `toml:"raster"`
	Stamp      Stamp      `toml:"stamp"`
	Server     Server     `toml:"server"`

	// Identities is the enumerated list of names a stamp may carry.
	// An empty list accepts any non-empty identity.
	Identities []string `toml:"identities"`

	// OutputSuffix is appended to the base name of the stamped document.
	OutputSuffix string `toml:"output_suffix"`

	LogLevel string `toml:"log_level"`
}

// Default returns the configuration with all documented defaults.
func Default() *Config {
	return &Config{
		Classifier: Classifier{
			White:              245,
			Contrast:           15,
			TextDensity:        3,
			MinWhitePercentage: 98,
		},
		Raster: Raster{
			DPI:    300,
			StepCM: 0.25,
		},
		Stamp: Stamp{
			WidthCM:     1.8,
			HeightCM:    0.8,
			MarginCM:    0.1,
			LineGapCM:   0.04,
			TitleSizeCM: 0.12,
			TextSizeCM:  0.1,
			BorderWidth: 2,
			BorderInset: 2,
			Color:       "#B1510F",
			Title:       "Checked and approved",
			DateLabel:   "Date:",
			DeviceLabel: "Device-ID",
			TimeLayout:  "02.01.2006 15:04",
			BoldFonts: []string{
				"C:/Windows/Fonts/calibrib.ttf",
				"/System/Library/Fonts/Helvetica.ttc",
				"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			},
			RegularFonts: []string{
				"C:/Windows/Fonts/calibri.ttf",
				"/System/Library/Fonts/Helvetica.ttc",
				"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			},
		},
		Server: Server{
			Port:        "8080",
			MaxFileSize: 10 * 1024 * 1024,
		},
		Identities: []string{
			"Martin Zinser",
			"Brigitte Stäldi",
			"Oliver Baumann",
			"Gunar Haas",
			"Henrik Kattrup",
			"Nadia Wullschleger",
			"Walter Vogt",
		},
		OutputSuffix: "_approved",
		LogLevel:     "info",
	}
}

// Load reads a TOML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv builds the configuration from the file named by PDF_STAMP_CONFIG
// (if set) and applies the remaining environment overrides.
func FromEnv() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from environment variables. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvPort); v != "" {
		c.Server.Port = v
	}
	if v := getenv(EnvMaxFileSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxFileSize, v, err)
		}
		c.Server.MaxFileSize = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Raster.DPI <= 0:
		return fmt.Errorf("dpi must be positive, got %v", c.Raster.DPI)
	case c.Raster.StepCM <= 0:
		return fmt.Errorf("step_cm must be positive, got %v", c.Raster.StepCM)
	case c.Stamp.WidthCM <= 0 || c.Stamp.HeightCM <= 0:
		return fmt.Errorf("stamp size must be positive, got %vx%v cm", c.Stamp.WidthCM, c.Stamp.HeightCM)
	case c.Classifier.White < 50 || c.Classifier.White > 255:
		return fmt.Errorf("white_threshold must be in [50, 255], got %d", c.Classifier.White)
	case c.Classifier.MinWhitePercentage < 0 || c.Classifier.MinWhitePercentage > 100:
		return fmt.Errorf("min_white_percentage must be in [0, 100], got %v", c.Classifier.MinWhitePercentage)
	case c.Stamp.BorderWidth < 0 || c.Stamp.BorderInset < 0:
		return fmt.Errorf("border width and inset must not be negative")
	case c.Server.MaxFileSize <= 0:
		return fmt.Errorf("max_file_size must be positive, got %d", c.Server.MaxFileSize)
	}
	return nil
}

// Pixels converts a length in centimeters to whole pixels at the raster
// resolution, truncating toward zero.
func (c *Config) Pixels(cm float64) int {
	return CMToPixels(cm, c.Raster.DPI)
}

// StepPixels returns the locator scan step in pixels, never less than one.
func (c *Config) StepPixels() int {
	if step := c.Pixels(c.Raster.StepCM); step > 0 {
		return step
	}
	return 1
}

// CMToPixels converts centimeters to pixels at dpi, truncating toward zero.
func CMToPixels(cm, dpi float64) int {
	return int(cm / 2.54 * dpi)
}

// Package config loads rasterpdf settings from a YAML file and the
// environment.
package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gompdf/rasterpdf/internal/capture"
	"github.com/gompdf/rasterpdf/internal/geometry"
	"github.com/gompdf/rasterpdf/internal/res"
	"github.com/gompdf/rasterpdf/internal/store"
	"github.com/gompdf/rasterpdf/pkg/errors"
)

// Backends accepted in BrowserConfig.Backend.
const (
	BackendChrome = "chrome"
	BackendRod    = "rod"
	BackendImage  = "image"
)

// Config is the top-level rasterpdf configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Page     PageConfig     `yaml:"page"`
	Capture  CaptureConfig  `yaml:"capture"`
	Document DocumentConfig `yaml:"document"`
	Output   OutputConfig   `yaml:"output"`
}

// BrowserConfig selects and configures the renderer.
type BrowserConfig struct {
	Backend          string `yaml:"backend"` // chrome | rod | image
	Remote           string `yaml:"remote"`
	ExecPath         string `yaml:"exec_path"`
	ViewportWidth    int    `yaml:"viewport_width"`
	ViewportHeight   int    `yaml:"viewport_height"`
	NoSandbox        bool   `yaml:"no_sandbox"`
	AllowCrossOrigin bool   `yaml:"allow_cross_origin"`
	// Timeout bounds a whole export. Zero means no bound.
	Timeout time.Duration `yaml:"timeout"`
}

// PageConfig describes the output pages.
type PageConfig struct {
	Format      string  `yaml:"format"`
	Orientation string  `yaml:"orientation"` // portrait | landscape
	Margin      float64 `yaml:"margin"`      // mm
	Fit         string  `yaml:"fit"`         // width | page
}

// CaptureConfig controls rasterization.
type CaptureConfig struct {
	Scale      float64  `yaml:"scale"`
	Quality    float64  `yaml:"quality"`
	Background string   `yaml:"background"`
	Class      string   `yaml:"class"`
	Font       string   `yaml:"font"`
	Hide       []string `yaml:"hide"`
	CSS        string   `yaml:"css"`
	// SearchPaths are searched for image captures not found at their path.
	SearchPaths []string `yaml:"search_paths"`
}

// DocumentConfig is written into the PDF info dictionary.
type DocumentConfig struct {
	Author   string `yaml:"author"`
	Creator  string `yaml:"creator"`
	Keywords string `yaml:"keywords"`
}

// OutputConfig decides where documents go.
type OutputConfig struct {
	Dir    string            `yaml:"dir"`
	Prefix string            `yaml:"prefix"`
	Verify bool              `yaml:"verify"`
	S3     store.MinioConfig `yaml:"s3"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path (if not empty), fills defaults and applies RASTERPDF_*
// environment overrides.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
		}
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Backend == "" {
		c.Browser.Backend = BackendChrome
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1280
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 1024
	}
	if c.Page.Format == "" {
		c.Page.Format = geometry.A4.Name
	}
	if c.Page.Orientation == "" {
		c.Page.Orientation = string(geometry.Portrait)
	}
	if c.Page.Margin <= 0 {
		c.Page.Margin = geometry.DefaultMargin
	}
	if c.Page.Fit == "" {
		c.Page.Fit = string(geometry.FitWidth)
	}
	if c.Capture.Scale <= 0 {
		c.Capture.Scale = capture.DefaultMagnification
	}
	if c.Capture.Quality <= 0 {
		c.Capture.Quality = 0.95
	}
	if c.Capture.Background == "" {
		c.Capture.Background = "#ffffff"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.Prefix == "" {
		c.Output.Prefix = "lesson-plan"
	}
}

func (c *Config) applyEnv() {
	c.Browser.Backend = getenv("RASTERPDF_BACKEND", c.Browser.Backend)
	c.Browser.Remote = getenv("RASTERPDF_CHROME_URL", c.Browser.Remote)
	c.Browser.ExecPath = getenv("RASTERPDF_CHROME_PATH", c.Browser.ExecPath)
	c.Browser.NoSandbox = getenvBool("RASTERPDF_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.Timeout = getenvDuration("RASTERPDF_TIMEOUT", c.Browser.Timeout)
	c.Page.Format = getenv("RASTERPDF_FORMAT", c.Page.Format)
	c.Capture.Scale = getenvFloat("RASTERPDF_SCALE", c.Capture.Scale)
	c.Capture.Quality = getenvFloat("RASTERPDF_QUALITY", c.Capture.Quality)
	if v := os.Getenv("RASTERPDF_SEARCH_PATH"); v != "" {
		c.Capture.SearchPaths = append(c.Capture.SearchPaths, filepath.SplitList(v)...)
	}
	c.Output.Dir = getenv("RASTERPDF_OUTPUT_DIR", c.Output.Dir)
	c.Output.S3.Endpoint = getenv("RASTERPDF_S3_ENDPOINT", c.Output.S3.Endpoint)
	c.Output.S3.Bucket = getenv("RASTERPDF_S3_BUCKET", c.Output.S3.Bucket)
	c.Output.S3.Prefix = getenv("RASTERPDF_S3_PREFIX", c.Output.S3.Prefix)
	c.Output.S3.Region = getenv("RASTERPDF_S3_REGION", c.Output.S3.Region)
	c.Output.S3.AccessKey = getenv("RASTERPDF_S3_ACCESS_KEY", c.Output.S3.AccessKey)
	c.Output.S3.SecretKey = getenv("RASTERPDF_S3_SECRET_KEY", c.Output.S3.SecretKey)
	c.Output.S3.UseSSL = getenvBool("RASTERPDF_S3_SSL", c.Output.S3.UseSSL)
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Browser.Backend {
	case BackendChrome, BackendRod, BackendImage:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown backend %q", c.Browser.Backend)
	}
	if _, err := c.PageFormat(); err != nil {
		return err
	}
	if _, err := geometry.ParseFitMode(c.Page.Fit); err != nil {
		return err
	}
	if c.Capture.Quality > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "quality %v outside (0, 1]", c.Capture.Quality)
	}
	if _, err := c.Capture.BackgroundColor(); err != nil {
		return err
	}
	return c.Capture.Override().Validate()
}

// PageFormat resolves the configured format, orientation and margin.
func (c *Config) PageFormat() (geometry.PageFormat, error) {
	f, ok := geometry.Lookup(c.Page.Format)
	if !ok {
		return geometry.PageFormat{}, errors.New(errors.ErrCodeInvalidInput, "unknown page format %q", c.Page.Format)
	}
	var o geometry.Orientation
	switch strings.ToLower(c.Page.Orientation) {
	case "", "portrait", "p":
		o = geometry.Portrait
	case "landscape", "l":
		o = geometry.Landscape
	default:
		return geometry.PageFormat{}, errors.New(errors.ErrCodeInvalidInput, "unknown orientation %q", c.Page.Orientation)
	}
	return f.Oriented(o).WithMargin(c.Page.Margin), nil
}

// Override builds the style override for captures.
func (c CaptureConfig) Override() capture.StyleOverride {
	return capture.StyleOverride{
		Class:         c.Class,
		FontFamily:    c.Font,
		HideSelectors: c.Hide,
		CSS:           c.CSS,
	}
}

// Loader returns a resource loader that falls back to SearchPaths.
func (c CaptureConfig) Loader() *res.Loader {
	l := res.NewLoader("")
	for _, dir := range c.SearchPaths {
		if dir = strings.TrimSpace(dir); dir != "" {
			l.AddSearchPath(dir)
		}
	}
	return l
}

// BackgroundColor parses Background as #rgb or #rrggbb.
func (c CaptureConfig) BackgroundColor() (color.Color, error) {
	r, g, b, ok := parseHexColor(c.Background)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid background color %q", c.Background)
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}, nil
}

func parseHexColor(s string) (int, int, int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

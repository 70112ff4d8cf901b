package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/PhotoBooth/internal/logic/filter"
)

// CameraConfig describes the capture device.
// Type selects a concrete implementation ("webcam" or "mock").
type CameraConfig struct {
	Type     string `yaml:"type"`      // e.g., "webcam"
	DeviceID int    `yaml:"device_id"` // video device index (0 = first camera)
	WidthPx  int    `yaml:"width_px"`  // requested capture width
	HeightPx int    `yaml:"height_px"` // requested capture height
	Mirror   bool   `yaml:"mirror"`    // flip horizontally (selfie view)
}

// BoothConfig holds the timing of a capture run.
type BoothConfig struct {
	PhotoCount       int    `yaml:"photo_count"`       // stills per run
	CountdownSeconds int    `yaml:"countdown_seconds"` // countdown before each still
	TickMs           int    `yaml:"tick_ms"`           // duration of one countdown step
	StabilizeMs      int    `yaml:"stabilize_ms"`      // pause before the shot
	DoneMs           int    `yaml:"done_ms"`           // "done" status hold after the shot
	DefaultFilter    string `yaml:"default_filter"`    // filter selected at startup
	ThumbnailPx      int    `yaml:"thumbnail_px"`      // longest side of a thumbnail
}

// StripConfig describes the composited strip styling.
type StripConfig struct {
	Background     string  `yaml:"background"`       // hex colour, e.g. "#071021"
	Border         string  `yaml:"border"`           // hex colour, e.g. "#ffffff"
	MinBorderPx    int     `yaml:"min_border_px"`    // lower bound for the border width
	BorderRatio    float64 `yaml:"border_ratio"`     // border width as a fraction of strip width
	PreviewWidthPx int     `yaml:"preview_width_px"` // on-screen preview width cap
}

// ShareConfig controls the share code.
type ShareConfig struct {
	QRSizePx int `yaml:"qr_size_px"` // QR image width and height
}

// WebConfig controls the browser surface.
type WebConfig struct {
	LiveFPS     int `yaml:"live_fps"`      // live preview frame rate
	MaxUploadMB int `yaml:"max_upload_mb"` // overlay upload size limit
}

// GPIOConfig describes the optional physical controls.
// A pin value of 0 means "not connected".
type GPIOConfig struct {
	Mock       bool `yaml:"mock"`        // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	ButtonPin  int  `yaml:"button_pin"`  // start button (BCM), active LOW
	LampPin    int  `yaml:"lamp_pin"`    // countdown lamp (BCM), active HIGH
	DebounceMs int  `yaml:"debounce_ms"` // button debounce window
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Booth    BoothConfig    `yaml:"booth"`
	Strip    StripConfig    `yaml:"strip"`
	Share    ShareConfig    `yaml:"share"`
	Web      WebConfig      `yaml:"web"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath rejects paths that are empty, contain "..", do not end in
// ".yaml", or do not live directly in a "configs" directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain \"..\"", path)
		}
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	if err := cfg.applyDefaults(); err != nil {
		panic(err) // defaults are always valid
	}
	return &cfg
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Camera.Type == "" {
		c.Camera.Type = "webcam"
	}
	if c.Camera.Type != "webcam" && c.Camera.Type != "mock" {
		return fmt.Errorf("unsupported camera.type %q", c.Camera.Type)
	}
	if c.Camera.DeviceID < 0 {
		return fmt.Errorf("camera.device_id must be >= 0, got %d", c.Camera.DeviceID)
	}
	if c.Camera.WidthPx <= 0 {
		c.Camera.WidthPx = 1280
	}
	if c.Camera.HeightPx <= 0 {
		c.Camera.HeightPx = 720
	}

	if c.Booth.PhotoCount <= 0 {
		c.Booth.PhotoCount = 4
	}
	if c.Booth.PhotoCount > 10 {
		return fmt.Errorf("booth.photo_count must be <= 10, got %d", c.Booth.PhotoCount)
	}
	if c.Booth.CountdownSeconds <= 0 {
		c.Booth.CountdownSeconds = 3
	}
	if c.Booth.TickMs <= 0 {
		c.Booth.TickMs = 1000
	}
	if c.Booth.StabilizeMs <= 0 {
		c.Booth.StabilizeMs = 150
	}
	if c.Booth.DoneMs <= 0 {
		c.Booth.DoneMs = 400
	}
	if c.Booth.DefaultFilter == "" {
		c.Booth.DefaultFilter = filter.None
	}
	if !filter.Valid(c.Booth.DefaultFilter) {
		return fmt.Errorf("booth.default_filter %q is neither a preset nor a filter expression", c.Booth.DefaultFilter)
	}
	if c.Booth.ThumbnailPx <= 0 {
		c.Booth.ThumbnailPx = 320
	}

	if c.Strip.Background == "" {
		c.Strip.Background = "#071021"
	}
	if c.Strip.Border == "" {
		c.Strip.Border = "#ffffff"
	}
	if _, err := ParseHexColor(c.Strip.Background); err != nil {
		return fmt.Errorf("strip.background: %w", err)
	}
	if _, err := ParseHexColor(c.Strip.Border); err != nil {
		return fmt.Errorf("strip.border: %w", err)
	}
	if c.Strip.MinBorderPx <= 0 {
		c.Strip.MinBorderPx = 6
	}
	if c.Strip.BorderRatio < 0 || c.Strip.BorderRatio > 0.5 {
		return fmt.Errorf("strip.border_ratio must be between 0 and 0.5, got %.3f", c.Strip.BorderRatio)
	}
	if c.Strip.BorderRatio == 0 {
		c.Strip.BorderRatio = 0.01
	}
	if c.Strip.PreviewWidthPx <= 0 {
		c.Strip.PreviewWidthPx = 240
	}

	if c.Share.QRSizePx <= 0 {
		c.Share.QRSizePx = 160
	}

	if c.Web.LiveFPS <= 0 {
		c.Web.LiveFPS = 15
	}
	if c.Web.LiveFPS > 60 {
		return fmt.Errorf("web.live_fps must be <= 60, got %d", c.Web.LiveFPS)
	}
	if c.Web.MaxUploadMB <= 0 {
		c.Web.MaxUploadMB = 10
	}

	if c.GPIO.ButtonPin < 0 || c.GPIO.LampPin < 0 {
		return fmt.Errorf("gpio pins must be >= 0")
	}
	if c.GPIO.ButtonPin != 0 && c.GPIO.ButtonPin == c.GPIO.LampPin {
		return fmt.Errorf("gpio.button_pin and gpio.lamp_pin must differ, both are %d", c.GPIO.ButtonPin)
	}
	if c.GPIO.DebounceMs <= 0 {
		c.GPIO.DebounceMs = 50
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// ParseHexColor parses "#rgb" or "#rrggbb" into an opaque colour.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 || !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// TotalPhotos returns the number of stills per run.
func (c *Config) TotalPhotos() int {
	return c.Booth.PhotoCount
}

// Tick returns the duration of one countdown step.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Booth.TickMs) * time.Millisecond
}

// Stabilize returns the pause between the last countdown step and the shot.
func (c *Config) Stabilize() time.Duration {
	return time.Duration(c.Booth.StabilizeMs) * time.Millisecond
}

// DoneDelay returns how long the "done" status is held after each shot.
func (c *Config) DoneDelay() time.Duration {
	return time.Duration(c.Booth.DoneMs) * time.Millisecond
}

// Debounce returns the button debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.GPIO.DebounceMs) * time.Millisecond
}

// LiveInterval returns the delay between two live preview frames.
func (c *Config) LiveInterval() time.Duration {
	return time.Second / time.Duration(c.Web.LiveFPS)
}

// MaxUploadBytes returns the overlay upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Web.MaxUploadMB) << 20
}

// BackgroundColor returns the strip background colour.
func (c *Config) BackgroundColor() color.RGBA {
	col, _ := ParseHexColor(c.Strip.Background)
	return col
}

// BorderColor returns the strip border colour.
func (c *Config) BorderColor() color.RGBA {
	col, _ := ParseHexColor(c.Strip.Border)
	return col
}

// RunDuration returns the nominal wall-clock length of one run.
func (c *Config) RunDuration() time.Duration {
	per := time.Duration(c.Booth.CountdownSeconds)*c.Tick() + c.Stabilize() + c.DoneDelay()
	return time.Duration(c.Booth.PhotoCount) * per
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cjeanneret/PhotoBooth/internal/booth"
	"github.com/cjeanneret/PhotoBooth/internal/config"
	"github.com/cjeanneret/PhotoBooth/internal/debug"
	"github.com/cjeanneret/PhotoBooth/internal/hw/button"
	"github.com/cjeanneret/PhotoBooth/internal/hw/camera"
	"github.com/cjeanneret/PhotoBooth/internal/hw/camera/webcam"
	"github.com/cjeanneret/PhotoBooth/internal/hw/gpio"
	"github.com/cjeanneret/PhotoBooth/internal/hw/lamp"
	"github.com/cjeanneret/PhotoBooth/internal/logic/capture"
	"github.com/cjeanneret/PhotoBooth/internal/logic/filter"
	"github.com/cjeanneret/PhotoBooth/internal/logic/strip"
	"github.com/cjeanneret/PhotoBooth/internal/web"
)

// overrides holds the CLI values that replace configuration entries.
// Zero values mean "use config default".
type overrides struct {
	Filter     string
	PhotoCount int
	CameraType string
}

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	filterName := flag.String("filter", "", "override the default filter (preset name or filter expression)")
	photoCount := flag.Int("photos", 0, "override the number of photos per strip (1-10)")
	cameraType := flag.String("camera", "", "override camera type (webcam or mock)")
	outPath := flag.String("out", "", "strip output path in one-shot mode (default photobooth_strip_<ms>.png)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (only non-zero values are applied)
	o := overrides{Filter: *filterName, PhotoCount: *photoCount, CameraType: *cameraType}
	if err := validateCLIOverrides(o); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, o)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.GPIO.Mock)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.GPIO.Mock)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize camera and lamp
	debug.Step(2, "Initializing camera")
	cam, err := newCameraFromConfig(cfg)
	if err != nil {
		log.Fatalf("init camera failed: %v", err)
	}
	debug.PrintStruct("Camera config", cfg.Camera)
	countdownLamp := newLampFromConfig(gpioDriver, cfg)

	var broadcaster *web.StatusBroadcaster
	port := webPort.port()
	if port > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}

	debug.Step(3, "Opening booth session")
	opts := sessionOptions(cfg)
	if broadcaster != nil {
		opts.Notify = broadcaster.BroadcastStatus
	}
	session := booth.New(cam, countdownLamp, opts)
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("closing camera failed: %v", err)
		}
	}()
	debug.Summary("Booth Summary")
	debug.Strip(cfg.Camera.WidthPx, cfg.Camera.HeightPx, cfg.TotalPhotos())
	debug.Value("Run duration", cfg.RunDuration())

	openErr := session.Open(ctx)
	if openErr != nil {
		debug.Error(openErr)
	}

	if cfg.GPIO.ButtonPin != 0 {
		debug.Step(4, "Watching start button")
		btn := button.New(gpioDriver, cfg.GPIO.ButtonPin, cfg.Debounce())
		go func() {
			err := btn.Watch(ctx, func() {
				if err := session.Start(ctx); err != nil {
					debug.Info("Start button ignored: %v", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				debug.Error(err)
			}
		}()
	}

	if port > 0 {
		webAddr := fmt.Sprintf(":%d", port)
		formDefaults := web.FormConfig{
			Filters:          filter.Presets(),
			DefaultFilter:    cfg.Booth.DefaultFilter,
			PhotoCount:       cfg.Booth.PhotoCount,
			CountdownSeconds: cfg.Booth.CountdownSeconds,
			LiveFPS:          cfg.Web.LiveFPS,
		}
		if openErr != nil {
			formDefaults.CameraError = openErr.Error()
		}
		limits := web.Limits{
			LiveInterval:   cfg.LiveInterval(),
			MaxUploadBytes: cfg.MaxUploadBytes(),
		}
		srv := web.NewServer(webAddr, broadcaster, session, formDefaults, limits)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	{
		// One-shot: take a single strip and write it to disk
		if openErr != nil {
			log.Fatalf("camera unavailable: %v", openErr)
		}
		if err := runOnce(ctx, session, *outPath, time.Now); err != nil {
			log.Fatalf("capture failed: %v", err)
		}
	}
}

// runOnce performs one run and writes the strip PNG to out, or to the
// default export name in the working directory when out is empty.
func runOnce(ctx context.Context, session *booth.Session, out string, now func() time.Time) error {
	debug.Section("Starting Capture Run")
	if err := session.Run(ctx); err != nil {
		return err
	}
	name, data, err := session.Download(now())
	if err != nil {
		return err
	}
	path := outputPath(out, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write strip: %w", err)
	}
	debug.Section("Run Complete")
	debug.Info("Strip saved to %s (%d bytes)", path, len(data))
	return nil
}

func outputPath(out, name string) string {
	if out != "" {
		return out
	}
	return name
}

// validateCLIOverrides checks that non-zero CLI overrides are valid.
// Zero values are ignored (they mean "use config default").
func validateCLIOverrides(o overrides) error {
	if o.Filter != "" && !filter.Valid(o.Filter) {
		return fmt.Errorf("filter %q is neither a preset nor a filter expression", o.Filter)
	}
	if o.PhotoCount != 0 && (o.PhotoCount < 0 || o.PhotoCount > 10) {
		return fmt.Errorf("photos must be between 1 and 10, got %d", o.PhotoCount)
	}
	if o.CameraType != "" && o.CameraType != "webcam" && o.CameraType != "mock" {
		return fmt.Errorf("camera must be webcam or mock, got %q", o.CameraType)
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, o overrides) {
	if o.Filter != "" {
		cfg.Booth.DefaultFilter = o.Filter
	}
	if o.PhotoCount > 0 {
		cfg.Booth.PhotoCount = o.PhotoCount
	}
	if o.CameraType != "" {
		cfg.Camera.Type = o.CameraType
	}
}

// sessionOptions maps the configuration onto booth session options.
func sessionOptions(cfg *config.Config) booth.Options {
	return booth.Options{
		Params: capture.Params{
			Count:     cfg.Booth.PhotoCount,
			Countdown: cfg.Booth.CountdownSeconds,
			Tick:      cfg.Tick(),
			Stabilize: cfg.Stabilize(),
			Done:      cfg.DoneDelay(),
		},
		Style: strip.Style{
			Background:   cfg.BackgroundColor(),
			Border:       cfg.BorderColor(),
			MinBorderPx:  cfg.Strip.MinBorderPx,
			BorderRatio:  cfg.Strip.BorderRatio,
			PreviewWidth: cfg.Strip.PreviewWidthPx,
		},
		DefaultFilter: cfg.Booth.DefaultFilter,
		ThumbnailPx:   cfg.Booth.ThumbnailPx,
		QRSizePx:      cfg.Share.QRSizePx,
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }

// newCameraFromConfig selects a camera implementation based on configuration.
func newCameraFromConfig(cfg *config.Config) (camera.Source, error) {
	switch cfg.Camera.Type {
	case "webcam":
		return webcam.New(cfg.Camera.DeviceID, cfg.Camera.WidthPx, cfg.Camera.HeightPx, cfg.Camera.Mirror), nil
	case "mock":
		return camera.NewMock(cfg.Camera.WidthPx, cfg.Camera.HeightPx), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// newLampFromConfig returns the countdown lamp, or a no-op when no pin is wired.
func newLampFromConfig(g gpio.Driver, cfg *config.Config) lamp.Lamp {
	if cfg.GPIO.LampPin == 0 {
		return lamp.Nop{}
	}
	debug.Value("Lamp pin", cfg.GPIO.LampPin)
	return lamp.NewGPIOLamp(g, cfg.GPIO.LampPin, cfg.Tick()/4)
}

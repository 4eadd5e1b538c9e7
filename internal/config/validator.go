package config

import (
	"fmt"
	"regexp"
	"strings"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

var backends = map[string]bool{"tq84": true, "gstreamer": true, "v4l2": true, "sim": true}

// Validate checks the configuration and fills in defaults
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if !backends[cfg.Backend] {
		return fmt.Errorf("backend must be one of tq84, gstreamer, v4l2, sim (got %q)", cfg.Backend)
	}

	if err := cfg.Geometry().Validate(); err != nil {
		return fmt.Errorf("frame: %w", err)
	}

	if cfg.Window.Width < 0 || cfg.Window.Height < 0 {
		return fmt.Errorf("window width/height must be >= 0")
	}
	if cfg.Window.Width == 0 && cfg.Window.Height == 0 {
		cfg.Window.Width = cfg.Frame.Width
		cfg.Window.Height = cfg.Frame.Height
	}

	if cfg.DurationMS < -1 {
		return fmt.Errorf("duration_ms must be -1 (library default), 0 (until interrupted) or positive")
	}

	if cfg.BufferFrames < 0 {
		return fmt.Errorf("buffer_frames must be >= 0")
	}
	if cfg.BufferFrames == 0 {
		cfg.BufferFrames = 10 // default
	}

	if cfg.WarmupS < 0 {
		return fmt.Errorf("warmup_s must be >= 0")
	}

	if err := validateRestart(&cfg.Restart); err != nil {
		return fmt.Errorf("restart: %w", err)
	}

	if cfg.Sim.FPS < 0 || cfg.GStreamer.FPS < 0 {
		return fmt.Errorf("fps must be >= 0")
	}

	if err := validateOutput(&cfg.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	if err := ValidateRects(cfg.Rects, cfg.Frame.Width, cfg.Frame.Height); err != nil {
		return fmt.Errorf("rect validation failed: %w", err)
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = fmt.Sprintf("raspicam/%s/stats", cfg.InstanceID)
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
		if cfg.MQTT.IntervalS <= 0 {
			cfg.MQTT.IntervalS = 10
		}
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}

	return nil
}

func validateRestart(r *RestartConfig) error {
	if r.MaxRetries < 0 || r.InitialDelayMS < 0 || r.MaxDelayMS < 0 {
		return fmt.Errorf("values must be >= 0")
	}
	// all-zero keeps the bridge default policy
	if *r == (RestartConfig{}) {
		return nil
	}
	if r.InitialDelayMS == 0 {
		r.InitialDelayMS = 1000
	}
	if r.MaxDelayMS == 0 {
		r.MaxDelayMS = 30000
	}
	if r.MaxDelayMS < r.InitialDelayMS {
		return fmt.Errorf("max_delay_ms (%d) < initial_delay_ms (%d)", r.MaxDelayMS, r.InitialDelayMS)
	}
	return nil
}

func validateOutput(o *OutputConfig) error {
	if o.Dir == "" {
		return nil
	}
	switch strings.ToLower(o.Format) {
	case "":
		o.Format = "png"
	case "png", "jpeg", "jpg", "raw":
	default:
		return fmt.Errorf("format must be png, jpeg or raw (got %q)", o.Format)
	}
	if o.JPEGQuality < 0 || o.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be 1-100")
	}
	if o.MaxWidth < 0 {
		return fmt.Errorf("max_width must be >= 0")
	}
	return nil
}

// ValidateRects checks overlay rectangles against the frame size
func ValidateRects(rects []RectConfig, width, height int) error {
	for i, r := range rects {
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("rect %d: width and height must be > 0, got %dx%d", i, r.Width, r.Height)
		}
		if r.X < 0 || r.Y < 0 || r.X+r.Width > width || r.Y+r.Height > height {
			return fmt.Errorf("rect %d: (%d,%d %dx%d) outside %dx%d frame",
				i, r.X, r.Y, r.Width, r.Height, width, height)
		}
	}
	return nil
}

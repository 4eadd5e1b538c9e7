package config

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/rmussadi/userland/modules/framegrid"
)

// Config represents the complete harness configuration
type Config struct {
	InstanceID   string          `yaml:"instance_id"`
	Backend      string          `yaml:"backend"`     // tq84, gstreamer, v4l2, sim
	Frame        FrameConfig     `yaml:"frame"`
	Window       WindowConfig    `yaml:"window"`
	DurationMS   int             `yaml:"duration_ms"` // -1 = library default (5000), 0 = until interrupted
	BufferFrames int             `yaml:"buffer_frames"`
	WarmupS      int             `yaml:"warmup_s"` // 0 skips the warm-up FPS check
	Restart      RestartConfig   `yaml:"restart"`
	GStreamer    GStreamerConfig `yaml:"gstreamer"`
	V4L2         V4L2Config      `yaml:"v4l2"`
	Sim          SimConfig       `yaml:"sim"`
	Output       OutputConfig    `yaml:"output"`
	Rects        []RectConfig    `yaml:"rects"`
	MQTT         MQTTConfig      `yaml:"mqtt"`
	Log          LogConfig       `yaml:"log"`
}

// FrameConfig is the layout of every frame buffer
type FrameConfig struct {
	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	Channels int `yaml:"channels"` // 1, 3 or 4
}

// WindowConfig is the preview rectangle handed to start_video
type WindowConfig struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// RestartConfig controls loop restarts after a failure
type RestartConfig struct {
	MaxRetries     int `yaml:"max_retries"`
	InitialDelayMS int `yaml:"initial_delay_ms"`
	MaxDelayMS     int `yaml:"max_delay_ms"`
}

// GStreamerConfig contains settings for the gstreamer backend
type GStreamerConfig struct {
	Source string  `yaml:"source"` // videotestsrc, v4l2src, libcamerasrc
	Device string  `yaml:"device"`
	FPS    float64 `yaml:"fps"`
}

// V4L2Config contains settings for the v4l2 backend
type V4L2Config struct {
	Device string `yaml:"device"`
}

// SimConfig contains settings for the simulated backend
type SimConfig struct {
	FPS float64 `yaml:"fps"`
}

// OutputConfig controls saving frames to disk (empty dir disables saving)
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Format      string `yaml:"format"` // png, jpeg, raw
	Prefix      string `yaml:"prefix"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	EveryN      uint64 `yaml:"every_n"`
	MaxWidth    int    `yaml:"max_width"`
}

// RectConfig is an overlay rectangle drawn once capture starts
type RectConfig struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// MQTTConfig contains optional telemetry broker settings (empty broker disables)
type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	Topic     string `yaml:"topic"`
	QoS       byte   `yaml:"qos"`
	IntervalS int    `yaml:"interval_s"`
}

// LogConfig controls slog output
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file is given: the sim
// backend at the native library's 1024x1024 RGBA layout.
func Default() *Config {
	return &Config{
		InstanceID: "raspicam-1",
		Backend:    "sim",
		Frame:      FrameConfig{Width: 1024, Height: 1024, Channels: 4},
		Window:     WindowConfig{X: 0, Y: 0, Width: 1024, Height: 1024},
		DurationMS: -1,
		Sim:        SimConfig{FPS: 30},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over Default and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Geometry returns the frame layout
func (c *Config) Geometry() framegrid.Geometry {
	return framegrid.Geometry{Width: c.Frame.Width, Height: c.Frame.Height, Channels: c.Frame.Channels}
}

// PreviewWindow returns the start_video window
func (c *Config) PreviewWindow() camerabridge.Window {
	return camerabridge.Window{X: c.Window.X, Y: c.Window.Y, Width: c.Window.Width, Height: c.Window.Height}
}

// Duration returns the capture timeout; negative values keep their meaning
// of "library default".
func (c *Config) Duration() time.Duration {
	return time.Duration(c.DurationMS) * time.Millisecond
}

// Warmup returns the warm-up period (0 = skip)
func (c *Config) Warmup() time.Duration {
	return time.Duration(c.WarmupS) * time.Second
}

// RestartPolicy converts the restart section
func (c *Config) RestartPolicy() camerabridge.RestartPolicy {
	return camerabridge.RestartPolicy{
		MaxRetries:   c.Restart.MaxRetries,
		InitialDelay: time.Duration(c.Restart.InitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(c.Restart.MaxDelayMS) * time.Millisecond,
	}
}

// OverlayRects converts the rects section
func (c *Config) OverlayRects() []image.Rectangle {
	rects := make([]image.Rectangle, 0, len(c.Rects))
	for _, r := range c.Rects {
		rects = append(rects, image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height))
	}
	return rects
}

// MQTTInterval returns the telemetry publish interval
func (c *Config) MQTTInterval() time.Duration {
	return time.Duration(c.MQTT.IntervalS) * time.Second
}

// LogLevel parses log.level
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

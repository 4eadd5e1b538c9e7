package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rmussadi/userland/internal/config"
	"github.com/rmussadi/userland/modules/camerabridge/backends"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Frame = config.FrameConfig{Width: 64, Height: 48, Channels: 3}
	cfg.Window = config.WindowConfig{Width: 64, Height: 48}
	cfg.Sim.FPS = 50
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return cfg
}

func TestRun_SimSavesFrames(t *testing.T) {
	cfg := testConfig(t)
	cfg.DurationMS = 300
	cfg.Output.Dir = t.TempDir()
	cfg.Output.Format = "png"
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := run(ctx, cfg, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(cfg.Output.Dir, "frame_*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("Expected saved frames in output dir")
	}
	if !strings.Contains(out.String(), "Final Statistics") {
		t.Error("Expected final statistics in output")
	}

	t.Logf("✅ Sim run saved %d frames", len(files))
}

func TestRun_CancelledUnboundedCapture(t *testing.T) {
	cfg := testConfig(t)
	cfg.DurationMS = 0

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, &out) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRun_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = "bogus"

	if err := run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harness.yaml")
	yaml := `
instance_id: cam-test
backend: sim
frame: {width: 32, height: 32, channels: 1}
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(flags{configPath: path, outputDir: dir, format: "raw", debug: true})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.InstanceID != "cam-test" || cfg.Output.Dir != dir || cfg.Output.Format != "raw" {
		t.Errorf("overrides not applied: %+v", cfg.Output)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}

	if _, err := loadConfig(flags{backend: "nope"}); err == nil {
		t.Error("Expected validation error for bad backend override")
	}
}

func TestBackendOptions(t *testing.T) {
	cfg := testConfig(t)

	cfg.Backend = backends.V4L2
	cfg.V4L2.Device = "/dev/video2"
	if opts := backendOptions(cfg); opts.Device != "/dev/video2" || opts.Name != backends.V4L2 {
		t.Errorf("v4l2 options = %+v", opts)
	}

	cfg.Backend = backends.Sim
	if opts := backendOptions(cfg); opts.FPS != 50 || opts.Geometry != cfg.Geometry() {
		t.Errorf("sim options = %+v", opts)
	}
}

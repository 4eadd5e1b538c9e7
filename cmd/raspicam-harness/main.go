package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rmussadi/userland/internal/config"
)

const (
	version = "v0.1.0"
)

type flags struct {
	configPath string
	backend    string
	outputDir  string
	format     string
	debug      bool
}

func main() {
	f := parseFlags()

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	printBanner(os.Stdout, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Harness failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Harness stopped gracefully")
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "YAML configuration file (optional, defaults to the sim backend)")
	flag.StringVar(&f.backend, "backend", "", "Override backend: tq84, gstreamer, v4l2 or sim")
	flag.StringVar(&f.outputDir, "output", "", "Override output directory to save frames")
	flag.StringVar(&f.format, "format", "", "Override output format: png, jpeg or raw")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")

	flag.Parse()
	return f
}

// loadConfig reads the file (or defaults) and applies flag overrides
func loadConfig(f flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.format != "" {
		cfg.Output.Format = f.format
	}
	if f.debug {
		cfg.Log.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

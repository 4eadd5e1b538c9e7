package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rmussadi/userland/internal/config"
	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/rmussadi/userland/modules/camerabridge/backends"
	"github.com/rmussadi/userland/modules/framebus"
	"github.com/rmussadi/userland/modules/framesaver"
	"github.com/rmussadi/userland/modules/telemetry"
)

const (
	saverBuffer   = 4
	statsInterval = 5 * time.Second
)

// run wires backend → bridge → framebus → consumers and blocks until the
// capture loop ends or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	// 1. Open the camera library
	lib, err := backends.Open(backendOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}

	// 2. Wrap it in a bridge
	bridge, err := camerabridge.New(lib, camerabridge.Config{
		Geometry:     cfg.Geometry(),
		Window:       cfg.PreviewWindow(),
		Duration:     cfg.Duration(),
		BufferFrames: cfg.BufferFrames,
		Restart:      cfg.RestartPolicy(),
		Rects:        cfg.OverlayRects(),
	})
	if err != nil {
		lib.Close()
		return fmt.Errorf("failed to create bridge: %w", err)
	}
	defer bridge.Stop()

	// 3. Frame saver (optional)
	var saver *framesaver.Saver
	if cfg.Output.Dir != "" {
		saver, err = framesaver.New(framesaver.Options{
			Dir:         cfg.Output.Dir,
			Format:      cfg.Output.Format,
			Prefix:      cfg.Output.Prefix,
			JPEGQuality: cfg.Output.JPEGQuality,
			EveryN:      cfg.Output.EveryN,
			MaxWidth:    cfg.Output.MaxWidth,
		})
		if err != nil {
			return fmt.Errorf("failed to create frame saver: %w", err)
		}
		slog.Info("Frame saving enabled",
			"output_dir", cfg.Output.Dir,
			"format", cfg.Output.Format,
			"every_n", cfg.Output.EveryN)
	}

	// 4. Start capture
	frames, err := bridge.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	if cfg.Warmup() > 0 {
		if _, err := bridge.Warmup(ctx, cfg.Warmup()); err != nil {
			slog.Warn("Warmup failed, continuing", "error", err)
		}
	}

	// 5. Fan out through framebus
	bus := framebus.New()
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup

	var saverCh chan framebus.Frame
	var saveWorker *SaveWorker
	if saver != nil {
		saverCh = make(chan framebus.Frame, saverBuffer)
		if err := bus.Subscribe("saver", saverCh); err != nil {
			return fmt.Errorf("failed to subscribe saver: %w", err)
		}
		saveWorker = NewSaveWorker(saver)
		wg.Add(1)
		go func() {
			defer wg.Done()
			saveWorker.Run(saverCh)
		}()
	}

	receiver, err := bus.SubscribeDropOld("inspector")
	if err != nil {
		return fmt.Errorf("failed to subscribe inspector: %w", err)
	}
	inspector := NewInspector(cfg.Geometry())
	wg.Add(1)
	go func() {
		defer wg.Done()
		inspector.Run(receiver)
	}()

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		pump(frames, bus)
	}()

	// 6. Telemetry (optional)
	if cfg.MQTT.Broker != "" {
		emitter, err := startTelemetry(workerCtx, cfg, bridge, bus, saveWorker, &wg)
		if err != nil {
			slog.Warn("Telemetry disabled", "error", err)
		} else {
			defer emitter.Disconnect()
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		reportStats(workerCtx, out, bridge, bus, saveWorker, inspector)
	}()

	// 7. Block until the loop ends or a signal arrives
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping gracefully...")
	case <-bridge.Done():
		slog.Info("Capture loop ended")
	}

	// 8. Tear down in dependency order
	if err := bridge.Stop(); err != nil {
		slog.Error("Failed to stop bridge gracefully", "error", err)
	}
	<-pumpDone
	bus.Close()
	if saverCh != nil {
		close(saverCh)
	}
	cancelWorkers()
	wg.Wait()

	printFinalStats(out, bridge.Stats(), bus.BusStats(), saveWorker, inspector)

	loopErr := bridge.Wait()
	if loopErr == nil {
		return ctx.Err()
	}
	return loopErr
}

func backendOptions(cfg *config.Config) backends.Options {
	opts := backends.Options{Name: cfg.Backend, Geometry: cfg.Geometry()}
	switch cfg.Backend {
	case backends.GStreamer:
		opts.Source = cfg.GStreamer.Source
		opts.Device = cfg.GStreamer.Device
		opts.FPS = cfg.GStreamer.FPS
	case backends.V4L2:
		opts.Device = cfg.V4L2.Device
	case backends.Sim:
		opts.FPS = cfg.Sim.FPS
	}
	return opts
}

// pump forwards bridge frames to the bus until the channel is closed by Stop
func pump(frames <-chan camerabridge.Frame, bus framebus.Bus) {
	for frame := range frames {
		bus.Publish(frame)
	}
	slog.Debug("Frame channel closed")
}

// telemetrySnapshot is the JSON document published over MQTT
type telemetrySnapshot struct {
	InstanceID string                    `json:"instance_id"`
	Timestamp  time.Time                 `json:"timestamp"`
	Capture    camerabridge.CaptureStats `json:"capture"`
	BusDrop    float64                   `json:"bus_drop_rate"`
	Saved      uint64                    `json:"frames_saved"`
}

func startTelemetry(
	ctx context.Context,
	cfg *config.Config,
	bridge *camerabridge.Bridge,
	bus framebus.Bus,
	saveWorker *SaveWorker,
	wg *sync.WaitGroup,
) (*telemetry.MQTTEmitter, error) {
	emitter, err := telemetry.NewMQTTEmitter(telemetry.Config{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.InstanceID,
		Topic:    cfg.MQTT.Topic,
		QoS:      cfg.MQTT.QoS,
	})
	if err != nil {
		return nil, err
	}
	if err := emitter.Connect(ctx); err != nil {
		return nil, err
	}

	snap := func() any {
		s := telemetrySnapshot{
			InstanceID: cfg.InstanceID,
			Timestamp:  time.Now(),
			Capture:    bridge.Stats(),
			BusDrop:    framebus.CalculateDropRate(bus.BusStats()),
		}
		if saveWorker != nil {
			s.Saved = saveWorker.Stats().Saved
		}
		return s
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		emitter.Run(ctx, cfg.MQTTInterval(), snap)
	}()

	slog.Info("Telemetry enabled", "topic", emitter.Topic(), "interval", cfg.MQTTInterval())
	return emitter, nil
}

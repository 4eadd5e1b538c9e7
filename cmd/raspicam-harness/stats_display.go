package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rmussadi/userland/internal/config"
	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/rmussadi/userland/modules/framebus"
)

// reportStats periodically prints statistics from all harness components
func reportStats(
	ctx context.Context,
	out io.Writer,
	source camerabridge.FrameSource,
	bus framebus.Bus,
	saveWorker *SaveWorker,
	inspector *Inspector,
) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printLiveStats(out, time.Since(startTime), source.Stats(), bus.BusStats(), saveWorker, inspector)
		}
	}
}

// printLiveStats prints current statistics from all components
func printLiveStats(
	out io.Writer,
	uptime time.Duration,
	capture camerabridge.CaptureStats,
	busStats framebus.BusStats,
	saveWorker *SaveWorker,
	inspector *Inspector,
) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "╭─────────────────────────────────────────────────────────────────╮")
	fmt.Fprintf(out, "│ Harness Statistics (Uptime: %v)\n", uptime.Round(time.Second))
	fmt.Fprintln(out, "├─────────────────────────────────────────────────────────────────┤")

	fmt.Fprintln(out, "│ Camera Bridge:")
	fmt.Fprintf(out, "│   Library:            %s (%s)\n", capture.Source, capture.Resolution)
	fmt.Fprintf(out, "│   Frames Received:    %6d frames\n", capture.FramesReceived)
	fmt.Fprintf(out, "│   Frames Dropped:     %6d frames (%.1f%%)\n", capture.FramesDropped, capture.DropRate)
	fmt.Fprintf(out, "│   Frames Invalid:     %6d\n", capture.FramesInvalid)
	fmt.Fprintf(out, "│   FPS (window/avg):   %6.2f / %.2f fps\n", capture.FPSWindow, capture.FPSAverage)
	fmt.Fprintf(out, "│   Since Last Frame:   %6d ms\n", capture.LatencyMS)
	fmt.Fprintf(out, "│   Compare Calls:      %6d\n", capture.CompareCalls)
	fmt.Fprintf(out, "│   Restarts:           %6d\n", capture.Restarts)
	fmt.Fprintf(out, "│   Running:            %6v\n", capture.IsRunning)

	printBusStats(out, "│   ", busStats)

	if saveWorker != nil {
		s := saveWorker.Stats()
		fmt.Fprintln(out, "│")
		fmt.Fprintln(out, "│ Frame Saving:")
		fmt.Fprintf(out, "│   Frames Saved:       %6d frames\n", s.Saved)
		fmt.Fprintf(out, "│   Skipped (every_n):  %6d frames\n", s.Skipped)
		fmt.Fprintf(out, "│   Save Failures:      %6d\n", s.Failed)
	}

	if inspector != nil {
		s := inspector.Stats()
		fmt.Fprintln(out, "│")
		fmt.Fprintln(out, "│ Inspector:")
		fmt.Fprintf(out, "│   Inspected:          %6d (last seq %d, mean %.1f)\n", s.Inspected, s.LastSeq, s.LastMean)
		fmt.Fprintf(out, "│   Invalid:            %6d\n", s.Invalid)
	}

	fmt.Fprintln(out, "╰─────────────────────────────────────────────────────────────────╯")
	fmt.Fprintln(out)
}

func printBusStats(out io.Writer, indent string, busStats framebus.BusStats) {
	fmt.Fprintln(out, "│")
	fmt.Fprintln(out, "│ FrameBus:")
	fmt.Fprintf(out, "%sPublished:          %6d\n", indent, busStats.TotalPublished)
	fmt.Fprintf(out, "%sDrop Rate:          %6.1f%%\n", indent, framebus.CalculateDropRate(busStats)*100)
	for id, sub := range busStats.Subscribers {
		fmt.Fprintf(out, "%s  %-16s %s: %d sent, %d dropped (%.1f%%)\n",
			indent, id, sub.Policy, sub.Sent, sub.Dropped,
			framebus.CalculateSubscriberDropRate(busStats, id)*100)
	}
}

// printFinalStats prints final statistics at shutdown
func printFinalStats(
	out io.Writer,
	capture camerabridge.CaptureStats,
	busStats framebus.BusStats,
	saveWorker *SaveWorker,
	inspector *Inspector,
) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(out, "                     Final Statistics                         ")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")

	fmt.Fprintf(out, "  Frames Received:       %d frames\n", capture.FramesReceived)
	fmt.Fprintf(out, "  Bridge Drops:          %d frames (%.1f%%)\n", capture.FramesDropped, capture.DropRate)
	fmt.Fprintf(out, "  Invalid Buffers:       %d\n", capture.FramesInvalid)
	fmt.Fprintf(out, "  Average FPS:           %.2f fps\n", capture.FPSAverage)
	fmt.Fprintf(out, "  Restart Count:         %d\n", capture.Restarts)
	fmt.Fprintf(out, "  Compare Calls:         %d\n", capture.CompareCalls)
	if errs := capture.ErrorsDevice + capture.ErrorsNegotiation + capture.ErrorsResource + capture.ErrorsUnknown; errs > 0 {
		fmt.Fprintf(out, "  Errors:                %d (device=%d negotiation=%d resource=%d unknown=%d)\n",
			errs, capture.ErrorsDevice, capture.ErrorsNegotiation, capture.ErrorsResource, capture.ErrorsUnknown)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Bus Published:         %d\n", busStats.TotalPublished)
	fmt.Fprintf(out, "  Bus Drop Rate:         %.1f%%\n", framebus.CalculateDropRate(busStats)*100)

	if saveWorker != nil {
		s := saveWorker.Stats()
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Frames Saved:          %d\n", s.Saved)
		if s.Failed > 0 {
			fmt.Fprintf(out, "  Save Failures:         %d\n", s.Failed)
		}
		if s.LastPath != "" {
			fmt.Fprintf(out, "  Last File:             %s\n", s.LastPath)
		}
	}

	if inspector != nil {
		s := inspector.Stats()
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Frames Inspected:      %d (invalid %d)\n", s.Inspected, s.Invalid)
	}

	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(out)
}

func printBanner(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "╔═══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║    Raspicam Harness - Frame Callback Bridge                   ║")
	fmt.Fprintf(out, "║                    Version %-34s ║\n", version)
	fmt.Fprintln(out, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")

	fmt.Fprintf(out, "  Instance:        %s\n", cfg.InstanceID)
	fmt.Fprintf(out, "  Backend:         %s\n", cfg.Backend)
	fmt.Fprintf(out, "  Frame:           %s\n", cfg.Geometry())
	fmt.Fprintf(out, "  Window:          %v\n", cfg.PreviewWindow().Rect())
	switch d := cfg.Duration(); {
	case d < 0:
		fmt.Fprintf(out, "  Duration:        library default (%v)\n", camerabridge.DefaultDuration)
	case d == 0:
		fmt.Fprintln(out, "  Duration:        until interrupted")
	default:
		fmt.Fprintf(out, "  Duration:        %v\n", d)
	}
	fmt.Fprintf(out, "  Overlay Rects:   %d\n", len(cfg.Rects))
	if cfg.Output.Dir != "" {
		fmt.Fprintf(out, "  Output:          %s (%s)\n", cfg.Output.Dir, cfg.Output.Format)
	}
	if cfg.MQTT.Broker != "" {
		fmt.Fprintf(out, "  Telemetry:       %s → %s\n", cfg.MQTT.Broker, cfg.MQTT.Topic)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Pipeline:")
	fmt.Fprintln(out, "  camera library → camerabridge → framebus → saver / inspector")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Press Ctrl+C to stop gracefully")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(out)
}

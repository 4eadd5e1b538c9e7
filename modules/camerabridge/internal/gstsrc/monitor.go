package gstsrc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/tinyzimmer/go-gst/gst"
)

// MonitorPipelineBus polls the pipeline bus until the capture ends
//
// This function:
//  1. Polls the bus every 50ms (responsive to cancellation)
//  2. Returns nil on EOS or when duration elapses (duration 0 = no limit)
//  3. Returns a classified error on a bus error
//  4. Returns ctx.Err() on cancellation
func MonitorPipelineBus(ctx context.Context, pipeline *gst.Pipeline, duration time.Duration) error {
	if pipeline == nil {
		return fmt.Errorf("gstsrc: pipeline not initialized")
	}

	bus := pipeline.GetPipelineBus()

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Debug("gstsrc: context cancelled, stopping bus monitor")
			return ctx.Err()

		case <-deadline:
			slog.Info("gstsrc: capture duration elapsed", "duration", duration)
			return nil

		default:
			msg := bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Info("gstsrc: end of stream received")
				return nil

			case gst.MessageError:
				gerr := msg.ParseError()
				category := ClassifyGStreamerError(gerr)

				slog.Error("gstsrc: pipeline error",
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
					"category", category.String(),
				)
				return camerabridge.Classify(category,
					fmt.Errorf("gstsrc: pipeline error: %s", gerr.Error()))

			case gst.MessageStateChanged:
				if msg.Source() == pipeline.GetName() {
					oldState, newState := msg.ParseStateChanged()
					slog.Debug("gstsrc: pipeline state changed",
						"from", oldState,
						"to", newState,
					)
					if newState == gst.StatePlaying {
						slog.Info("gstsrc: pipeline playing")
					}
				}
			}
		}
	}
}

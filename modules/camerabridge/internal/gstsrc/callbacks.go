package gstsrc

import (
	"log/slog"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// OnNewSample is called by GStreamer when a new frame is available
//
// This callback:
//  1. Pulls the sample from the appsink
//  2. Maps the buffer read-only
//  3. Hands the mapped bytes to cb (valid only until Unmap)
//  4. Unmaps the buffer
//
// Returns gst.FlowOK to keep the pipeline running; a bad sample is skipped.
func OnNewSample(sink *app.Sink, cb camerabridge.FrameCallback) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstsrc: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstsrc: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	defer buffer.Unmap()

	data := mapInfo.Bytes()
	if len(data) == 0 {
		slog.Warn("gstsrc: empty buffer received")
		return gst.FlowOK
	}

	if cb == nil {
		return gst.FlowOK
	}

	if status := cb(data); status != camerabridge.StatusOK {
		slog.Debug("gstsrc: frame callback declined buffer",
			"status", status.String(),
			"size_bytes", len(data),
		)
	}

	return gst.FlowOK
}

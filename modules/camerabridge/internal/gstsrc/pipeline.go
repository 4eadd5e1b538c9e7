package gstsrc

import (
	"fmt"
	"log/slog"

	"github.com/rmussadi/userland/modules/framegrid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Source element names accepted in PipelineConfig.Source
const (
	SourceTest      = "videotestsrc"
	SourceV4L2      = "v4l2src"
	SourceLibcamera = "libcamerasrc"
)

// PipelineConfig contains configuration for GStreamer pipeline creation
type PipelineConfig struct {
	Source   string
	Device   string // v4l2src only
	Geometry framegrid.Geometry
	FPS      float64 // 0 = whatever the source negotiates
}

// PipelineElements holds references to GStreamer pipeline elements
// needed for callbacks and cleanup
type PipelineElements struct {
	Pipeline   *gst.Pipeline
	AppSink    *app.Sink
	CapsFilter *gst.Element
}

// CreatePipeline creates and configures a GStreamer capture pipeline
//
// Pipeline structure:
//
//	source → videoconvert → videoscale → capsfilter → appsink
//
// The capsfilter pins the raw format (GRAY8/RGB/RGBA by channel count) and
// resolution, so every buffer the appsink hands out has exactly
// Geometry.Size() bytes.
//
// The pipeline is configured but NOT started (state remains NULL).
func CreatePipeline(cfg PipelineConfig) (*PipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	source, err := gst.NewElement(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", cfg.Source, err)
	}
	switch cfg.Source {
	case SourceV4L2:
		if cfg.Device != "" {
			source.SetProperty("device", cfg.Device)
		}
	case SourceTest:
		source.SetProperty("is-live", true)
	}

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsStr, err := buildCaps(cfg.Geometry, cfg.FPS)
	if err != nil {
		return nil, err
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)    // No sync with clock (real-time)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)     // Drop old frames

	pipeline.AddMany(source, converter, scaler, capsfilter, appsink.Element)

	if err := gst.ElementLinkMany(source, converter, scaler, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("failed to link pipeline elements: %w", err)
	}

	slog.Debug("gstsrc: pipeline created",
		"source", cfg.Source,
		"device", cfg.Device,
		"caps", capsStr,
	)

	return &PipelineElements{
		Pipeline:   pipeline,
		AppSink:    appsink,
		CapsFilter: capsfilter,
	}, nil
}

// DestroyPipeline sets the pipeline to NULL and releases its resources.
// Safe to call with nil.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}

	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}

	slog.Debug("gstsrc: pipeline destroyed")
	return nil
}

// rawFormat maps a channel count to a GStreamer raw video format
func rawFormat(channels int) (string, error) {
	switch channels {
	case 1:
		return "GRAY8", nil
	case 3:
		return "RGB", nil
	case 4:
		return "RGBA", nil
	default:
		return "", fmt.Errorf("gstsrc: no raw format for %d channels", channels)
	}
}

// buildCaps builds the capsfilter string
//
// Handles fractional framerates:
//   - fps >= 1.0: framerate = fps/1 (e.g., 5.0 → 5/1)
//   - fps < 1.0: framerate = 1/(1/fps) (e.g., 0.5 → 1/2)
//
// Format: "video/x-raw,format=F,width=W,height=H[,framerate=N/D]"
func buildCaps(g framegrid.Geometry, fps float64) (string, error) {
	format, err := rawFormat(g.Channels)
	if err != nil {
		return "", err
	}

	caps := fmt.Sprintf("video/x-raw,format=%s,width=%d,height=%d", format, g.Width, g.Height)
	if fps <= 0 {
		return caps, nil
	}

	numerator, denominator := 1, 1
	if fps < 1.0 {
		denominator = int(1.0 / fps)
	} else {
		numerator = int(fps)
	}
	return fmt.Sprintf("%s,framerate=%d/%d", caps, numerator, denominator), nil
}

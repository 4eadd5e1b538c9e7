package gstsrc

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/rmussadi/userland/modules/framegrid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Options configures the GStreamer backend
type Options struct {
	// Geometry every appsink buffer is converted to (required)
	Geometry framegrid.Geometry
	// Source element: videotestsrc (default), v4l2src or libcamerasrc
	Source string
	// Device node for v4l2src (e.g., /dev/video0)
	Device string
	// FPS pins the framerate caps; 0 accepts whatever the source offers
	FPS float64
}

// Library implements camerabridge.Library with a GStreamer appsink pipeline
type Library struct {
	opts Options

	mu       sync.Mutex
	frameCB  camerabridge.FrameCallback
	elements *PipelineElements
	duration time.Duration
	closed   bool
}

// Open validates options and checks that GStreamer is usable
func Open(opts Options) (*Library, error) {
	if err := opts.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("gstsrc: %w", err)
	}
	if opts.Source == "" {
		opts.Source = SourceTest
	}
	switch opts.Source {
	case SourceTest, SourceV4L2, SourceLibcamera:
	default:
		return nil, fmt.Errorf("gstsrc: unsupported source %q", opts.Source)
	}
	if opts.FPS < 0 {
		return nil, fmt.Errorf("gstsrc: invalid FPS %.2f", opts.FPS)
	}

	if err := checkGStreamerAvailable(opts.Source); err != nil {
		return nil, fmt.Errorf("%w: %v", camerabridge.ErrUnavailable, err)
	}

	slog.Info("gstsrc: library opened",
		"source", opts.Source,
		"device", opts.Device,
		"geometry", opts.Geometry.String(),
		"fps", opts.FPS,
	)

	return &Library{opts: opts}, nil
}

// Name implements camerabridge.Library
func (l *Library) Name() string { return "gstreamer" }

// RegisterFrameCallback implements camerabridge.Library
func (l *Library) RegisterFrameCallback(cb camerabridge.FrameCallback) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frameCB = cb
	return nil
}

// RegisterCompareCallback is not provided by GStreamer
func (l *Library) RegisterCompareCallback(camerabridge.CompareCallback) error {
	return camerabridge.ErrUnsupported
}

// StartVideo builds a fresh pipeline and sets it PLAYING.
// The window is logged only: frames go to the appsink, not a preview.
func (l *Library) StartVideo(win camerabridge.Window, duration time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return camerabridge.ErrUnavailable
	}

	if err := DestroyPipeline(l.elements); err != nil {
		slog.Warn("gstsrc: failed to destroy previous pipeline", "error", err)
	}
	l.elements = nil

	elements, err := CreatePipeline(PipelineConfig{
		Source:   l.opts.Source,
		Device:   l.opts.Device,
		Geometry: l.opts.Geometry,
		FPS:      l.opts.FPS,
	})
	if err != nil {
		return camerabridge.Classify(camerabridge.ErrCategoryDevice, err)
	}

	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return OnNewSample(sink, l.callback())
		},
	})

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		DestroyPipeline(elements)
		return camerabridge.Classify(camerabridge.ErrCategoryDevice,
			fmt.Errorf("gstsrc: failed to start pipeline: %w", err))
	}

	l.elements = elements
	l.duration = camerabridge.ResolveDuration(duration)

	slog.Info("gstsrc: video started",
		"window", win.Rect().String(),
		"duration", l.duration,
	)
	return nil
}

func (l *Library) callback() camerabridge.FrameCallback {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frameCB
}

// BeginLoop monitors the bus until EOS, error, duration or cancellation,
// then tears the pipeline down.
func (l *Library) BeginLoop(ctx context.Context) error {
	l.mu.Lock()
	elements := l.elements
	duration := l.duration
	l.mu.Unlock()

	if elements == nil {
		return fmt.Errorf("gstsrc: begin loop before start video")
	}

	err := MonitorPipelineBus(ctx, elements.Pipeline, duration)

	l.mu.Lock()
	if l.elements == elements {
		if derr := DestroyPipeline(elements); derr != nil {
			slog.Error("gstsrc: failed to destroy pipeline", "error", derr)
		}
		l.elements = nil
	}
	l.mu.Unlock()

	return err
}

// DrawRect is not provided by GStreamer
func (l *Library) DrawRect(image.Rectangle) (int, error) {
	return 0, camerabridge.ErrUnsupported
}

// Close destroys any running pipeline
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.frameCB = nil

	err := DestroyPipeline(l.elements)
	l.elements = nil
	return err
}

// checkGStreamerAvailable verifies GStreamer can create the source element
func checkGStreamerAvailable(source string) error {
	gst.Init(nil)

	elem, err := gst.NewElement(source)
	if err != nil {
		return fmt.Errorf("element %s not available: %w", source, err)
	}
	elem.SetState(gst.StateNull)

	return nil
}

//go:build linux

package v4l2src

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/rmussadi/userland/modules/camerabridge"
)

// Library implements camerabridge.Library over a V4L2 device streaming YUYV
type Library struct {
	opts Options

	mu       sync.Mutex
	frameCB  camerabridge.FrameCallback
	cam      *webcam.Webcam
	scratch  []byte
	duration time.Duration
	closed   bool
}

// Open validates options. The device itself is opened by StartVideo.
func Open(opts Options) (*Library, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	slog.Info("v4l2src: library opened",
		"device", opts.Device,
		"geometry", opts.Geometry.String(),
	)

	return &Library{
		opts:    opts,
		scratch: make([]byte, opts.Geometry.Size()),
	}, nil
}

// Name implements camerabridge.Library
func (l *Library) Name() string { return "v4l2" }

// RegisterFrameCallback implements camerabridge.Library
func (l *Library) RegisterFrameCallback(cb camerabridge.FrameCallback) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frameCB = cb
	return nil
}

// RegisterCompareCallback is not provided by V4L2
func (l *Library) RegisterCompareCallback(camerabridge.CompareCallback) error {
	return camerabridge.ErrUnsupported
}

// StartVideo opens the device, negotiates YUYV at the configured size and
// starts streaming. The window is logged only.
func (l *Library) StartVideo(win camerabridge.Window, duration time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return camerabridge.ErrUnavailable
	}
	l.closeCamLocked()

	cam, err := webcam.Open(l.opts.Device)
	if err != nil {
		return camerabridge.Classify(camerabridge.ErrCategoryDevice,
			fmt.Errorf("v4l2src: open %s: %w", l.opts.Device, err))
	}

	var selected webcam.PixelFormat
	for format, desc := range cam.GetSupportedFormats() {
		if strings.HasPrefix(desc, "YUYV") || strings.HasPrefix(desc, "YUV 4:2:2") {
			selected = format
			break
		}
	}
	if selected == 0 {
		cam.Close()
		return camerabridge.Classify(camerabridge.ErrCategoryNegotiation,
			fmt.Errorf("v4l2src: %s does not offer YUYV", l.opts.Device))
	}

	g := l.opts.Geometry
	_, w, h, err := cam.SetImageFormat(selected, uint32(g.Width), uint32(g.Height))
	if err != nil {
		cam.Close()
		return camerabridge.Classify(camerabridge.ErrCategoryNegotiation,
			fmt.Errorf("v4l2src: set format: %w", err))
	}
	if int(w) != g.Width || int(h) != g.Height {
		cam.Close()
		return camerabridge.Classify(camerabridge.ErrCategoryNegotiation,
			fmt.Errorf("v4l2src: device chose %dx%d, want %dx%d", w, h, g.Width, g.Height))
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return camerabridge.Classify(camerabridge.ErrCategoryResource,
			fmt.Errorf("v4l2src: start streaming: %w", err))
	}

	l.cam = cam
	l.duration = camerabridge.ResolveDuration(duration)

	slog.Info("v4l2src: video started",
		"device", l.opts.Device,
		"window", win.Rect().String(),
		"duration", l.duration,
	)
	return nil
}

// BeginLoop reads frames until the duration elapses, the device fails or
// ctx is cancelled. The device is released when it returns.
func (l *Library) BeginLoop(ctx context.Context) error {
	l.mu.Lock()
	cam := l.cam
	duration := l.duration
	l.mu.Unlock()

	if cam == nil {
		return fmt.Errorf("v4l2src: begin loop before start video")
	}
	defer func() {
		l.mu.Lock()
		if l.cam == cam {
			l.closeCamLocked()
		}
		l.mu.Unlock()
	}()

	var deadline time.Time
	if duration > 0 {
		deadline = time.Now().Add(duration)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			slog.Info("v4l2src: capture duration elapsed", "duration", duration)
			return nil
		}

		err := cam.WaitForFrame(waitTimeout)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			slog.Debug("v4l2src: frame wait timed out", "device", l.opts.Device)
			continue
		default:
			return camerabridge.Classify(camerabridge.ErrCategoryDevice,
				fmt.Errorf("v4l2src: wait for frame: %w", err))
		}

		raw, err := cam.ReadFrame()
		if err != nil {
			return camerabridge.Classify(camerabridge.ErrCategoryDevice,
				fmt.Errorf("v4l2src: read frame: %w", err))
		}
		if len(raw) == 0 {
			continue
		}

		l.deliver(raw)
	}
}

func (l *Library) deliver(raw []byte) {
	l.mu.Lock()
	cb := l.frameCB
	l.mu.Unlock()

	if cb == nil {
		return
	}
	if err := ConvertYUYV(l.scratch, raw, l.opts.Geometry); err != nil {
		slog.Warn("v4l2src: dropping unconvertible frame", "error", err)
		return
	}
	if status := cb(l.scratch); status != camerabridge.StatusOK {
		slog.Debug("v4l2src: frame callback returned non-zero", "status", status.String())
	}
}

// DrawRect is not provided by V4L2
func (l *Library) DrawRect(image.Rectangle) (int, error) {
	return 0, camerabridge.ErrUnsupported
}

// Close releases the device
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.frameCB = nil
	return l.closeCamLocked()
}

func (l *Library) closeCamLocked() error {
	if l.cam == nil {
		return nil
	}
	cam := l.cam
	l.cam = nil

	if err := cam.StopStreaming(); err != nil {
		slog.Warn("v4l2src: stop streaming failed", "device", l.opts.Device, "error", err)
	}
	return cam.Close()
}

package camerabridge

import (
	"context"
	"image"
	"time"
)

// FrameCallback receives one frame buffer from a Library.
//
// buf is owned by the library and is only valid until the callback returns.
// Implementations must copy anything they want to keep.
type FrameCallback func(buf []byte) Status

// CompareCallback is the (float, float, byte*) -> int shape the native
// library uses to exercise a registered comparison. payload may be nil.
type CompareCallback func(a, b float32, payload []byte) int

// Window is the on-screen preview rectangle handed to start_video
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect returns the window as an image.Rectangle
func (w Window) Rect() image.Rectangle {
	return image.Rect(w.X, w.Y, w.X+w.Width, w.Y+w.Height)
}

// DefaultDuration is the capture timeout a native library applies when asked for -1
const DefaultDuration = 5000 * time.Millisecond

// ResolveDuration maps a requested capture duration onto native semantics:
// negative selects DefaultDuration, zero means run until cancelled.
func ResolveDuration(d time.Duration) time.Duration {
	if d < 0 {
		return DefaultDuration
	}
	return d
}

// Library is the capture capability a Bridge drives.
//
// The call order is fixed: register callbacks, StartVideo, then BeginLoop.
// After BeginLoop returns, StartVideo may be called again to restart capture.
//
// Implementations must guarantee:
//   - Frame callbacks are only invoked between StartVideo and the return of BeginLoop
//   - RegisterCompareCallback invokes the callback synchronously at least once
//   - BeginLoop returns promptly once ctx is cancelled
//   - Close is idempotent
type Library interface {
	// Name identifies the backend in logs and stats ("tq84", "gstreamer", ...)
	Name() string

	// RegisterFrameCallback installs cb as the frame sink (set_glbuff_cb)
	RegisterFrameCallback(cb FrameCallback) error

	// RegisterCompareCallback installs and exercises cb (callmeback).
	// Returns ErrUnsupported when the backend has no such entry point.
	RegisterCompareCallback(cb CompareCallback) error

	// StartVideo opens the camera and preview window (start_video).
	// duration follows ResolveDuration semantics.
	StartVideo(win Window, duration time.Duration) error

	// BeginLoop runs the capture loop until the duration elapses (nil),
	// the library fails (error), or ctx is cancelled (ctx.Err()).
	BeginLoop(ctx context.Context) error

	// DrawRect adds an overlay rectangle in window coordinates and returns its index.
	// Returns ErrUnsupported when the backend has no overlay.
	DrawRect(r image.Rectangle) (int, error)

	// Close releases the library. Safe to call multiple times.
	Close() error
}

package camerabridge

import (
	"context"
	"time"
)

// FrameSource defines the contract for consuming frames from a capture library
//
// Implementations must guarantee:
//   - Start() returns immediately (non-blocking)
//   - The channel returned by Start() stays open until Stop()
//   - Stop() is idempotent (safe to call multiple times)
//   - Stats() is thread-safe (can be called from any goroutine)
type FrameSource interface {
	// Start registers callbacks with the library, launches the capture loop
	// and returns a read-only channel of copied frames.
	//
	// Frames are sent using a non-blocking pattern: if the channel buffer is
	// full, frames are dropped rather than queued, so the library's callback
	// thread is never held up by a slow consumer.
	//
	// Example:
	//   src, _ := camerabridge.New(lib, cfg)
	//   frames, err := src.Start(ctx)
	//   if err != nil {
	//       log.Fatal(err)
	//   }
	//   for frame := range frames {
	//       // Process frame...
	//   }
	Start(ctx context.Context) (<-chan Frame, error)

	// Stop cancels the capture loop, waits up to 3 seconds for it to exit,
	// closes the frame channel and closes the library.
	Stop() error

	// Stats returns current capture statistics.
	Stats() CaptureStats

	// Warmup consumes frames for duration and reports FPS stability.
	// Returns an error if fewer than 2 frames arrive.
	Warmup(ctx context.Context, duration time.Duration) (*WarmupStats, error)
}

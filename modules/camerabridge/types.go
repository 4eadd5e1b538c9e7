package camerabridge

import (
	"image"
	"time"

	"github.com/rmussadi/userland/modules/framegrid"
)

// Frame is a single frame copied out of a library callback
type Frame struct {
	// Seq is the monotonic sequence number (starts at 1)
	Seq uint64
	// Timestamp is when the callback delivered the frame
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Channels per pixel (1=gray, 3=RGB, 4=RGBA)
	Channels int
	// Data is a private copy of the native buffer (Width*Height*Channels bytes)
	Data []byte
	// Source is the library name that produced the frame
	Source string
	// TraceID is a unique identifier for distributed tracing
	TraceID string
}

// Geometry returns the frame layout
func (f Frame) Geometry() framegrid.Geometry {
	return framegrid.Geometry{Width: f.Width, Height: f.Height, Channels: f.Channels}
}

// Grid views the frame data as a 2-D grid without copying
func (f Frame) Grid() (*framegrid.Grid, error) {
	return framegrid.Reshape(f.Data, f.Geometry())
}

// CaptureStats contains current bridge statistics
type CaptureStats struct {
	// Source is the library name
	Source string
	// FramesReceived counts valid frames delivered by the library
	FramesReceived uint64
	// FramesDropped counts frames discarded because the channel was full
	FramesDropped uint64
	// FramesInvalid counts callbacks whose buffer did not match the geometry
	FramesInvalid uint64
	// DropRate is the percentage of valid frames dropped (0-100)
	DropRate float64
	// BytesRead is the total bytes copied out of the library
	BytesRead uint64
	// CompareCalls counts compare callback invocations
	CompareCalls uint64
	// Restarts is the number of capture loop restarts
	Restarts uint32
	// FPSWindow is the rate over the last completed meter window
	FPSWindow float64
	// FPSAverage is the rate since the first frame
	FPSAverage float64
	// LatencyMS is the time since the last frame in milliseconds
	LatencyMS int64
	// Resolution is the frame geometry (e.g., "1024x1024x4")
	Resolution string
	// IsRunning indicates if the capture loop is active
	IsRunning bool

	// Error telemetry by category
	ErrorsDevice      uint64
	ErrorsNegotiation uint64
	ErrorsResource    uint64
	ErrorsUnknown     uint64
}

// RestartPolicy controls how the capture loop is restarted after a failure
type RestartPolicy struct {
	// MaxRetries is the number of consecutive restarts before giving up (0 disables restarts)
	MaxRetries int
	// InitialDelay is the first backoff delay, doubled per consecutive failure
	InitialDelay time.Duration
	// MaxDelay caps the backoff delay
	MaxDelay time.Duration
}

// DefaultRestartPolicy returns 5 retries with 1s..30s exponential backoff
func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Config contains configuration for a Bridge
type Config struct {
	// Geometry is the layout every frame buffer must have (required)
	Geometry framegrid.Geometry
	// Window is the preview rectangle passed to StartVideo
	Window Window
	// Duration is the capture timeout (-1 = library default of 5s, 0 = until cancelled)
	Duration time.Duration
	// BufferFrames is the frame channel capacity (default 10)
	BufferFrames int
	// Restart controls loop restarts after a failure
	Restart RestartPolicy
	// Rects are overlay rectangles drawn once capture starts
	Rects []image.Rectangle
	// Compare is registered with the library's compare entry point (default GreaterThan)
	Compare CompareCallback
	// Inspect, if set, is called with a zero-copy grid over the native buffer
	// before the frame is copied. Writes are visible to the library.
	Inspect func(*framegrid.Grid)
	// FPSLogInterval is how often the measured FPS is logged (default 5s)
	FPSLogInterval time.Duration
}

// WarmupStats contains statistics collected during the warm-up phase
type WarmupStats struct {
	// FramesReceived is the number of frames received during warm-up
	FramesReceived int
	// Duration is the actual warm-up duration
	Duration time.Duration
	// FPSMean is the mean FPS across all frames
	FPSMean float64
	// FPSStdDev is the standard deviation of FPS
	FPSStdDev float64
	// FPSMin is the minimum instantaneous FPS
	FPSMin float64
	// FPSMax is the maximum instantaneous FPS
	FPSMax float64
	// IsStable is true if FPS is stable (stddev < 15% of mean and jitter < 20% of interval)
	IsStable bool
	// JitterMean is the mean deviation from the expected inter-frame interval (seconds)
	JitterMean float64
	// JitterMax is the largest deviation observed (seconds)
	JitterMax float64
}

package camerabridge

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rmussadi/userland/modules/camerabridge/internal/fps"
	"github.com/rmussadi/userland/modules/camerabridge/internal/restart"
	"github.com/rmussadi/userland/modules/framegrid"
)

// stopTimeout bounds how long Stop waits for the capture loop to exit
const stopTimeout = 3 * time.Second

var _ FrameSource = (*Bridge)(nil)

// Bridge implements FrameSource on top of a Library.
//
// The frame callback it registers copies each buffer on receipt, so frames
// on the channel never alias library memory.
type Bridge struct {
	// Configuration
	lib      Library
	geometry framegrid.Geometry
	window   Window
	duration time.Duration
	rects    []image.Rectangle
	compare  CompareCallback
	inspect  func(*framegrid.Grid)

	// Frame output
	frames chan Frame
	mu     sync.RWMutex // held for reading by callbacks while they send on frames
	// running is true between Start and Stop; callbacks check it under mu
	running bool
	stopped bool

	// Lifecycle
	cancel  context.CancelFunc
	done    chan struct{}
	loopErr error
	started time.Time

	// Statistics (atomic for thread-safety)
	frameCount    atomic.Uint64
	framesDropped atomic.Uint64
	framesInvalid atomic.Uint64
	bytesRead     atomic.Uint64
	compareCalls  atomic.Uint64
	lastFrameAt   atomic.Int64 // unix nanoseconds
	meter         *fps.Meter

	// Error telemetry (atomic for thread-safety)
	errorsDevice      atomic.Uint64
	errorsNegotiation atomic.Uint64
	errorsResource    atomic.Uint64
	errorsUnknown     atomic.Uint64

	// Restart state
	restartCfg   restart.Config
	restartState *restart.State

	// Shutdown protection
	framesClosed atomic.Bool
	closeLib     sync.Once
}

// New creates a bridge over lib with fail-fast validation
//
// Validates configuration at construction time:
//   - Geometry must be valid (positive dimensions, 1/3/4 channels)
//   - BufferFrames must not be negative
//   - Restart policy delays must be positive
func New(lib Library, cfg Config) (*Bridge, error) {
	if lib == nil {
		return nil, fmt.Errorf("camerabridge: library is required")
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("camerabridge: %w", err)
	}
	if cfg.BufferFrames < 0 {
		return nil, fmt.Errorf("camerabridge: invalid buffer size %d", cfg.BufferFrames)
	}
	if cfg.BufferFrames == 0 {
		cfg.BufferFrames = 10
	}

	policy := cfg.Restart
	if policy == (RestartPolicy{}) {
		policy = DefaultRestartPolicy()
	}
	restartCfg := restart.Config{
		MaxRetries:   policy.MaxRetries,
		InitialDelay: policy.InitialDelay,
		MaxDelay:     policy.MaxDelay,
	}
	if err := restartCfg.Validate(); err != nil {
		return nil, fmt.Errorf("camerabridge: %w", err)
	}

	compare := cfg.Compare
	if compare == nil {
		compare = GreaterThanCallback
	}

	b := &Bridge{
		lib:          lib,
		geometry:     cfg.Geometry,
		window:       cfg.Window,
		duration:     ResolveDuration(cfg.Duration),
		rects:        append([]image.Rectangle(nil), cfg.Rects...),
		compare:      compare,
		inspect:      cfg.Inspect,
		frames:       make(chan Frame, cfg.BufferFrames),
		done:         make(chan struct{}),
		meter:        fps.NewMeter("camerabridge: "+lib.Name(), cfg.FPSLogInterval),
		restartCfg:   restartCfg,
		restartState: &restart.State{},
	}

	slog.Info("camerabridge: bridge created",
		"library", lib.Name(),
		"geometry", cfg.Geometry.String(),
		"window", fmt.Sprintf("%d,%d %dx%d", cfg.Window.X, cfg.Window.Y, cfg.Window.Width, cfg.Window.Height),
		"duration", b.duration,
		"buffer_frames", cfg.BufferFrames,
	)

	return b, nil
}

// Start registers callbacks with the library and launches the capture loop
//
// This method:
//  1. Registers the frame callback (copy on receipt)
//  2. Registers and exercises the compare callback (unsupported is tolerated)
//  3. Launches the loop goroutine: StartVideo → DrawRect per overlay → BeginLoop,
//     restarted with exponential backoff on failure
//  4. Returns the frame channel immediately (non-blocking)
func (b *Bridge) Start(ctx context.Context) (<-chan Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return nil, ErrStopped
	}
	if b.cancel != nil {
		return nil, ErrAlreadyStarted
	}

	if err := b.lib.RegisterFrameCallback(b.onFrame); err != nil {
		return nil, fmt.Errorf("camerabridge: register frame callback: %w", err)
	}

	if err := b.lib.RegisterCompareCallback(b.onCompare); err != nil {
		if !errors.Is(err, ErrUnsupported) {
			return nil, fmt.Errorf("camerabridge: register compare callback: %w", err)
		}
		slog.Debug("camerabridge: library has no compare entry point", "library", b.lib.Name())
	}

	loopCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.running = true
	b.started = time.Now()

	go b.runLoop(loopCtx)

	slog.Info("camerabridge: bridge started",
		"library", b.lib.Name(),
		"note", "frames arrive asynchronously once the library starts video",
	)

	return b.frames, nil
}

// runLoop drives StartVideo/BeginLoop sessions until the library finishes,
// fails past the restart budget, or the context is cancelled.
func (b *Bridge) runLoop(ctx context.Context) {
	defer close(b.done)

	err := restart.Run(ctx, b.session, b.restartCfg, b.restartState)
	if err != nil && ctx.Err() != nil {
		// Cancellation is the normal way out of an unbounded capture
		err = nil
	}
	b.loopErr = err

	if err != nil {
		slog.Error("camerabridge: capture loop stopped after restart failure",
			"error", err,
			"library", b.lib.Name(),
			"uptime", time.Since(b.started),
			"frames_processed", b.frameCount.Load(),
			"restarts", b.restartState.Restarts(),
		)
		return
	}

	slog.Info("camerabridge: capture loop finished",
		"library", b.lib.Name(),
		"frames_processed", b.frameCount.Load(),
	)
}

// session runs one StartVideo → BeginLoop cycle
func (b *Bridge) session(ctx context.Context) error {
	if err := b.lib.StartVideo(b.window, b.duration); err != nil {
		b.recordError(err)
		return fmt.Errorf("start video: %w", err)
	}

	for _, r := range b.rects {
		idx, err := b.lib.DrawRect(r)
		if errors.Is(err, ErrUnsupported) {
			slog.Debug("camerabridge: library has no overlay, skipping rects", "library", b.lib.Name())
			break
		}
		if err != nil {
			slog.Warn("camerabridge: draw rect failed", "rect", r.String(), "error", err)
			continue
		}
		slog.Debug("camerabridge: rect drawn", "rect", r.String(), "index", idx)
	}

	if err := b.lib.BeginLoop(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.recordError(err)
		return fmt.Errorf("begin loop: %w", err)
	}
	return nil
}

// recordError updates the per-category error counters
func (b *Bridge) recordError(err error) {
	category := CategoryOf(err)
	switch category {
	case ErrCategoryDevice:
		b.errorsDevice.Add(1)
	case ErrCategoryNegotiation:
		b.errorsNegotiation.Add(1)
	case ErrCategoryResource:
		b.errorsResource.Add(1)
	default:
		b.errorsUnknown.Add(1)
	}

	slog.Error("camerabridge: library error",
		"error", err,
		"category", category.String(),
		"library", b.lib.Name(),
		"frames_processed", b.frameCount.Load(),
		"restarts", b.restartState.Restarts(),
	)
}

// onFrame is the FrameCallback handed to the library.
//
// It runs on the library's thread. buf is only valid during the call, so it
// is validated, optionally inspected in place, then copied before anything
// leaves this function.
func (b *Bridge) onFrame(buf []byte) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("camerabridge: panic in frame callback", "panic", r)
			status = StatusPanic
		}
	}()

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.running {
		return StatusStopped
	}

	if len(buf) != b.geometry.Size() {
		b.framesInvalid.Add(1)
		slog.Debug("camerabridge: rejecting frame with wrong size",
			"size_bytes", len(buf),
			"expected_bytes", b.geometry.Size(),
		)
		return StatusBadSize
	}

	if b.inspect != nil {
		b.inspect(&framegrid.Grid{Pix: buf, Geometry: b.geometry})
	}

	data := make([]byte, len(buf))
	copy(data, buf)

	now := time.Now()
	seq := b.frameCount.Add(1)
	b.bytesRead.Add(uint64(len(buf)))
	b.lastFrameAt.Store(now.UnixNano())
	b.meter.Tick(now)
	b.restartState.Reset()

	frame := Frame{
		Seq:       seq,
		Timestamp: now,
		Width:     b.geometry.Width,
		Height:    b.geometry.Height,
		Channels:  b.geometry.Channels,
		Data:      data,
		Source:    b.lib.Name(),
		TraceID:   uuid.New().String(),
	}

	// Non-blocking send: never hold up the library's thread
	select {
	case b.frames <- frame:
	default:
		b.framesDropped.Add(1)
		slog.Debug("camerabridge: dropping frame, channel full",
			"seq", frame.Seq,
			"trace_id", frame.TraceID,
		)
	}

	return StatusOK
}

// onCompare is the CompareCallback handed to the library
func (b *Bridge) onCompare(x, y float32, payload []byte) (result int) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("camerabridge: panic in compare callback", "panic", r)
			result = 0
		}
	}()

	b.compareCalls.Add(1)
	return b.compare(x, y, payload)
}

// DrawRect adds an overlay rectangle on a running bridge
func (b *Bridge) DrawRect(r image.Rectangle) (int, error) {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()

	if !running {
		return 0, ErrNotStarted
	}
	return b.lib.DrawRect(r)
}

// Stop gracefully shuts down the bridge
//
// This method:
//  1. Refuses further callbacks (late native calls get StatusStopped)
//  2. Cancels the capture loop and waits for it (timeout 3s)
//  3. Closes the frame channel exactly once
//  4. Closes the library
//
// Idempotent - safe to call multiple times.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	cancel := b.cancel
	b.running = false
	b.stopped = true
	b.cancel = nil
	b.mu.Unlock()

	var stopErr error
	if cancel != nil {
		slog.Info("camerabridge: stopping bridge", "library", b.lib.Name())
		cancel()

		select {
		case <-b.done:
			slog.Debug("camerabridge: capture loop stopped cleanly")
		case <-time.After(stopTimeout):
			slog.Warn("camerabridge: stop timeout exceeded, capture loop may still be running")
			stopErr = fmt.Errorf("camerabridge: stop timeout after %s", stopTimeout)
		}
	}

	// Callbacks hold the read lock while sending, so closing under the
	// write lock can never race a send.
	b.mu.Lock()
	if b.framesClosed.CompareAndSwap(false, true) {
		close(b.frames)
		slog.Debug("camerabridge: frame channel closed")
	}
	b.mu.Unlock()

	b.closeLib.Do(func() {
		if err := b.lib.Close(); err != nil {
			slog.Error("camerabridge: failed to close library", "error", err)
			if stopErr == nil {
				stopErr = fmt.Errorf("camerabridge: close library: %w", err)
			}
		}
	})

	if cancel != nil {
		slog.Info("camerabridge: bridge stopped",
			"frames_captured", b.frameCount.Load(),
			"frames_dropped", b.framesDropped.Load(),
			"restarts", b.restartState.Restarts(),
			"uptime", time.Since(b.started),
		)
	}

	return stopErr
}

// Done returns a channel closed when the capture loop exits.
// It never closes if the bridge was never started.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the capture loop exits and returns its error.
// Cancellation is not an error.
func (b *Bridge) Wait() error {
	b.mu.RLock()
	startedOnce := !b.started.IsZero()
	b.mu.RUnlock()

	if !startedOnce {
		return ErrNotStarted
	}

	<-b.done
	return b.loopErr
}

// Stats returns current capture statistics
//
// Thread-safe - uses atomic operations for counters.
func (b *Bridge) Stats() CaptureStats {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()

	frameCount := b.frameCount.Load()
	framesDropped := b.framesDropped.Load()

	var dropRate float64
	if frameCount > 0 {
		dropRate = float64(framesDropped) / float64(frameCount) * 100.0
	}

	var latencyMS int64
	if last := b.lastFrameAt.Load(); last != 0 {
		latencyMS = time.Since(time.Unix(0, last)).Milliseconds()
	}

	return CaptureStats{
		Source:            b.lib.Name(),
		FramesReceived:    frameCount,
		FramesDropped:     framesDropped,
		FramesInvalid:     b.framesInvalid.Load(),
		DropRate:          dropRate,
		BytesRead:         b.bytesRead.Load(),
		CompareCalls:      b.compareCalls.Load(),
		Restarts:          b.restartState.Restarts(),
		FPSWindow:         b.meter.Last(),
		FPSAverage:        b.meter.Average(time.Now()),
		LatencyMS:         latencyMS,
		Resolution:        b.geometry.String(),
		IsRunning:         running,
		ErrorsDevice:      b.errorsDevice.Load(),
		ErrorsNegotiation: b.errorsNegotiation.Load(),
		ErrorsResource:    b.errorsResource.Load(),
		ErrorsUnknown:     b.errorsUnknown.Load(),
	}
}

// Warmup measures capture FPS stability over a specified duration
//
// It consumes frames from the bridge channel for the duration, so call it
// before handing the channel to other consumers.
//
// Returns WarmupStats with FPS measurements, or an error if:
//   - Bridge is not running
//   - Not enough frames received (< 2)
//   - The frame channel closes during warmup
func (b *Bridge) Warmup(ctx context.Context, duration time.Duration) (*WarmupStats, error) {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()
	if !running {
		return nil, ErrNotStarted
	}

	slog.Info("camerabridge: starting warmup", "duration", duration)

	startTime := time.Now()
	frameTimes := make([]time.Time, 0, 100)

	warmupCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

collect:
	for {
		select {
		case <-warmupCtx.Done():
			break collect

		case frame, ok := <-b.frames:
			if !ok {
				return nil, fmt.Errorf("camerabridge: frame channel closed during warmup")
			}
			frameTimes = append(frameTimes, frame.Timestamp)

		case <-b.done:
			break collect
		}
	}

	elapsed := time.Since(startTime)

	if len(frameTimes) < 2 {
		return nil, fmt.Errorf(
			"camerabridge: not enough frames received during warmup (got %d, need at least 2)",
			len(frameTimes),
		)
	}

	stats := CalculateFPSStats(frameTimes, elapsed)

	slog.Info("camerabridge: warmup complete",
		"frames", stats.FramesReceived,
		"duration", stats.Duration,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		"fps_range", fmt.Sprintf("%.1f-%.1f", stats.FPSMin, stats.FPSMax),
		"stable", stats.IsStable,
	)

	if !stats.IsStable {
		slog.Warn("camerabridge: capture FPS unstable",
			"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
			"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		)
	}

	return stats, nil
}

// Package simlib is an in-process stand-in for the native camera library.
//
// It honors the same entry points and ownership rules as libtq84: one
// internal frame buffer is reused for every callback, the compare entry
// point calls back with (2.0, 1.0, {1..10}), overlays are limited to ten
// rectangles, and the loop ends when the capture duration elapses.
package simlib

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/rmussadi/userland/modules/framegrid"
)

// MaxRects is the number of overlay rectangles the preview can hold
const MaxRects = 10

// ErrFault is the injected failure returned by StartVideo/BeginLoop
var ErrFault = errors.New("simlib: injected camera fault")

// Options configures the simulated library
type Options struct {
	// Geometry of every delivered buffer (required)
	Geometry framegrid.Geometry
	// FPS is the frame rate (default 30)
	FPS float64
	// FailStarts makes the first N StartVideo calls fail
	FailStarts int
	// FailLoops makes the first N BeginLoop calls fail after one frame
	FailLoops int
	// ComparePayload is passed to compare callbacks (default {1..10})
	ComparePayload []byte
}

// Library simulates libtq84 in pure Go
type Library struct {
	opts Options

	mu             sync.Mutex
	frameCB        camerabridge.FrameCallback
	compareResults []int
	buf            []byte
	started        bool
	closed         bool
	window         camerabridge.Window
	duration       time.Duration
	rects          []image.Rectangle
	starts         int
	loops          int
	frameNo        int
	statuses       map[camerabridge.Status]int
}

// New creates a simulated library
func New(opts Options) (*Library, error) {
	if err := opts.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("simlib: %w", err)
	}
	if opts.FPS < 0 {
		return nil, fmt.Errorf("simlib: invalid FPS %.2f", opts.FPS)
	}
	if opts.FPS == 0 {
		opts.FPS = 30
	}
	if opts.ComparePayload == nil {
		opts.ComparePayload = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	}

	return &Library{
		opts:     opts,
		buf:      make([]byte, opts.Geometry.Size()),
		statuses: make(map[camerabridge.Status]int),
	}, nil
}

// Name implements camerabridge.Library
func (l *Library) Name() string { return "sim" }

// RegisterFrameCallback implements camerabridge.Library (set_glbuff_cb)
func (l *Library) RegisterFrameCallback(cb camerabridge.FrameCallback) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return camerabridge.ErrUnavailable
	}
	l.frameCB = cb
	return nil
}

// RegisterCompareCallback implements camerabridge.Library (callmeback)
func (l *Library) RegisterCompareCallback(cb camerabridge.CompareCallback) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return camerabridge.ErrUnavailable
	}
	payload := l.opts.ComparePayload
	l.mu.Unlock()

	r := cb(2.0, 1.0, payload)

	l.mu.Lock()
	l.compareResults = append(l.compareResults, r)
	l.mu.Unlock()
	return nil
}

// StartVideo implements camerabridge.Library (start_video)
func (l *Library) StartVideo(win camerabridge.Window, duration time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return camerabridge.ErrUnavailable
	}

	l.starts++
	if l.starts <= l.opts.FailStarts {
		return camerabridge.Classify(camerabridge.ErrCategoryDevice, ErrFault)
	}

	l.window = win
	l.duration = camerabridge.ResolveDuration(duration)
	l.rects = l.rects[:0]
	l.started = true

	slog.Debug("simlib: video started",
		"window", win.Rect().String(),
		"duration", l.duration,
	)
	return nil
}

// BeginLoop implements camerabridge.Library (begin_loop)
func (l *Library) BeginLoop(ctx context.Context) error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return fmt.Errorf("simlib: begin_loop before start_video")
	}
	l.loops++
	fail := l.loops <= l.opts.FailLoops
	duration := l.duration
	l.mu.Unlock()

	defer l.teardown()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / l.opts.FPS))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return nil
		case <-ticker.C:
			l.publish()
			if fail {
				return camerabridge.Classify(camerabridge.ErrCategoryDevice, ErrFault)
			}
		}
	}
}

// publish renders the next frame into the shared buffer and hands it to the
// registered callback. Without a callback the frame is rendered and discarded.
func (l *Library) publish() {
	l.mu.Lock()
	l.frameNo++
	render(l.buf, l.opts.Geometry, l.frameNo, l.rects)
	cb := l.frameCB
	buf := l.buf
	l.mu.Unlock()

	if cb == nil {
		return
	}
	// The callback runs without the lock so it may call DrawRect
	status := cb(buf)

	l.mu.Lock()
	l.statuses[status]++
	l.mu.Unlock()
}

func (l *Library) teardown() {
	l.mu.Lock()
	l.started = false
	l.mu.Unlock()
}

// DrawRect implements camerabridge.Library (draw_rect)
func (l *Library) DrawRect(r image.Rectangle) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return 0, fmt.Errorf("simlib: draw_rect before start_video")
	}
	if len(l.rects) >= MaxRects {
		return 0, fmt.Errorf("simlib: overlay full (%d rects)", MaxRects)
	}
	l.rects = append(l.rects, r.Canon())
	return len(l.rects) - 1, nil
}

// Close implements camerabridge.Library
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.frameCB = nil
	return nil
}

// CompareResults returns the values compare callbacks returned
func (l *Library) CompareResults() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.compareResults...)
}

// Rects returns the overlay rectangles of the current session
func (l *Library) Rects() []image.Rectangle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]image.Rectangle(nil), l.rects...)
}

// Starts returns how many times StartVideo was called
func (l *Library) Starts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starts
}

// StatusCount returns how many callbacks returned status
func (l *Library) StatusCount(status camerabridge.Status) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statuses[status]
}

// Deliver synchronously hands buf to the registered frame callback, the way
// a misbehaving native library might deliver an arbitrary buffer.
func (l *Library) Deliver(buf []byte) camerabridge.Status {
	l.mu.Lock()
	cb := l.frameCB
	l.mu.Unlock()

	if cb == nil {
		return camerabridge.StatusStopped
	}
	return cb(buf)
}

// render draws a horizontal gradient shifted by frame number, with overlay
// rectangle outlines at full intensity.
func render(buf []byte, g framegrid.Geometry, frameNo int, rects []image.Rectangle) {
	grid, err := framegrid.Reshape(buf, g)
	if err != nil {
		return
	}

	shift := frameNo * 4
	for y := 0; y < g.Height; y++ {
		row := grid.Row(y)
		for x := 0; x < g.Width; x++ {
			v := byte((x*256/g.Width + shift) & 0xff)
			px := row[x*g.Channels : (x+1)*g.Channels]
			for c := range px {
				px[c] = v
			}
			if g.Channels == 4 {
				px[3] = 255
			}
		}
	}

	bounds := image.Rect(0, 0, g.Width, g.Height)
	for _, r := range rects {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			outline(grid, x, r.Min.Y)
			outline(grid, x, r.Max.Y-1)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			outline(grid, r.Min.X, y)
			outline(grid, r.Max.X-1, y)
		}
	}
}

func outline(grid *framegrid.Grid, x, y int) {
	px := grid.At(x, y)
	for c := range px {
		px[c] = 255
	}
}

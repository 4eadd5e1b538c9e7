//go:build cgo && tq84

package native

/*
#cgo LDFLAGS: -ltq84

typedef int (*callback_type)(float, float, void*);
typedef int (*buffer_cb_type)(unsigned char*);

extern int callmeback(callback_type t);
extern int set_glbuff_cb(buffer_cb_type cb);
extern int start_video(int x, int y, int w, int h, int duration);
extern void begin_loop(void);
extern int draw_rect(int x, int y, int w, int h);

extern int goFrameCallback(unsigned char* buf);
extern int goCompareCallback(float a, float b, void* buf);

static int tq84_set_frame_cb(void) { return set_glbuff_cb(goFrameCallback); }
static int tq84_clear_frame_cb(void) { return set_glbuff_cb(0); }
static int tq84_callmeback(void) { return callmeback(goCompareCallback); }
*/
import "C"

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/rmussadi/userland/modules/camerabridge"
)

// Library binds libtq84 through cgo
type Library struct {
	slot *slot

	mu sync.Mutex
	// loopDone is closed when the native begin_loop call returns; it outlives
	// a cancelled BeginLoop because the native thread cannot be interrupted.
	loopDone chan struct{}

	closeOnce sync.Once
}

// Open claims the process-wide native library
func Open(opts Options) (*Library, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}

	s, err := claim(opts.Geometry.Size(), opts.PayloadLen)
	if err != nil {
		return nil, err
	}

	slog.Info("native: libtq84 opened",
		"geometry", opts.Geometry.String(),
		"payload_len", opts.PayloadLen,
	)
	return &Library{slot: s}, nil
}

// Name implements camerabridge.Library
func (l *Library) Name() string { return "tq84" }

// RegisterFrameCallback implements camerabridge.Library via set_glbuff_cb
func (l *Library) RegisterFrameCallback(cb camerabridge.FrameCallback) error {
	l.slot.setFrame(cb)
	if rc := C.tq84_set_frame_cb(); rc != 0 {
		return &camerabridge.StatusError{Op: "set_glbuff_cb", Code: int(rc)}
	}
	return nil
}

// RegisterCompareCallback implements camerabridge.Library via callmeback
func (l *Library) RegisterCompareCallback(cb camerabridge.CompareCallback) error {
	l.slot.setCompare(cb)
	if rc := C.tq84_callmeback(); rc != 0 {
		return &camerabridge.StatusError{Op: "callmeback", Code: int(rc)}
	}
	return nil
}

// StartVideo implements camerabridge.Library via start_video.
// A zero duration asks the library to run until cancelled.
func (l *Library) StartVideo(win camerabridge.Window, duration time.Duration) error {
	l.mu.Lock()
	pending := l.loopDone
	l.mu.Unlock()

	if pending != nil {
		select {
		case <-pending:
		default:
			return camerabridge.Classify(camerabridge.ErrCategoryResource,
				fmt.Errorf("native: previous begin_loop still running"))
		}
	}

	ms := camerabridge.ResolveDuration(duration).Milliseconds()
	rc := C.start_video(C.int(win.X), C.int(win.Y), C.int(win.Width), C.int(win.Height), C.int(ms))
	if rc != 0 {
		return &camerabridge.StatusError{Op: "start_video", Code: int(rc)}
	}
	return nil
}

// BeginLoop implements camerabridge.Library via begin_loop.
//
// begin_loop blocks its thread until the capture timeout, so it runs on a
// locked goroutine. Cancellation returns immediately; the native loop keeps
// running until its own timeout and its late callbacks are refused by the
// bridge.
func (l *Library) BeginLoop(ctx context.Context) error {
	done := make(chan struct{})

	l.mu.Lock()
	l.loopDone = done
	l.mu.Unlock()

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)
		C.begin_loop()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.Warn("native: begin_loop abandoned on cancellation, native thread continues until its timeout")
		return ctx.Err()
	}
}

// DrawRect implements camerabridge.Library via draw_rect
func (l *Library) DrawRect(r image.Rectangle) (int, error) {
	r = r.Canon()
	rc := C.draw_rect(C.int(r.Min.X), C.int(r.Min.Y), C.int(r.Dx()), C.int(r.Dy()))
	if rc < 0 {
		return 0, &camerabridge.StatusError{Op: "draw_rect", Code: int(rc)}
	}
	return int(rc), nil
}

// Close detaches the Go callbacks and releases the process-wide slot
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		C.tq84_clear_frame_cb()
		release(l.slot)
	})
	return nil
}

package native

import (
	"errors"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/rmussadi/userland/modules/framegrid"
)

// ErrBusy is returned when the process already holds the native library
var ErrBusy = errors.New("native: library already open in this process")

// The native entry points take bare function pointers with no userdata, so
// exported Go callbacks cannot tell which Go handler they belong to. The
// library keeps one global callback, so the registry keeps one active slot.
var registry struct {
	mu     sync.RWMutex
	active *slot
	nextID uint64
}

// slot holds the Go handlers for one open Library
type slot struct {
	id         uint64
	frameSize  int
	payloadLen int

	mu      sync.RWMutex
	frame   camerabridge.FrameCallback
	compare camerabridge.CompareCallback
}

func (s *slot) setFrame(cb camerabridge.FrameCallback) {
	s.mu.Lock()
	s.frame = cb
	s.mu.Unlock()
}

func (s *slot) setCompare(cb camerabridge.CompareCallback) {
	s.mu.Lock()
	s.compare = cb
	s.mu.Unlock()
}

// claim makes a new slot active. Fails with ErrBusy while another slot is active.
func claim(frameSize, payloadLen int) (*slot, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.active != nil {
		return nil, ErrBusy
	}
	registry.nextID++
	s := &slot{id: registry.nextID, frameSize: frameSize, payloadLen: payloadLen}
	registry.active = s
	return s, nil
}

// release deactivates s. Releasing a stale slot is a no-op.
func release(s *slot) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.active == s {
		registry.active = nil
	}
}

func activeSlot() *slot {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.active
}

// dispatchFrame routes a native frame pointer to the active frame handler
func dispatchFrame(ptr unsafe.Pointer) int {
	s := activeSlot()
	if s == nil {
		return int(camerabridge.StatusStopped)
	}

	s.mu.RLock()
	cb := s.frame
	s.mu.RUnlock()
	if cb == nil {
		return int(camerabridge.StatusStopped)
	}

	buf, err := framegrid.View(ptr, s.frameSize)
	if err != nil {
		slog.Debug("native: invalid frame pointer", "error", err)
		return int(camerabridge.StatusBadSize)
	}
	return int(cb(buf))
}

// dispatchCompare routes a native compare call to the active compare handler.
// A nil pointer or zero payload length yields a nil payload.
func dispatchCompare(a, b float32, ptr unsafe.Pointer) int {
	s := activeSlot()
	if s == nil {
		return 0
	}

	s.mu.RLock()
	cb := s.compare
	s.mu.RUnlock()
	if cb == nil {
		return 0
	}

	var payload []byte
	if ptr != nil && s.payloadLen > 0 {
		payload, _ = framegrid.View(ptr, s.payloadLen)
	}
	return cb(a, b, payload)
}

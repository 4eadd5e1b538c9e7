package native

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"github.com/rmussadi/userland/modules/camerabridge"
)

func TestRegistry_SingleActiveSlot(t *testing.T) {
	s, err := claim(16, 10)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	defer release(s)

	if _, err := claim(16, 10); !errors.Is(err, ErrBusy) {
		t.Errorf("Second claim: expected ErrBusy, got %v", err)
	}
}

func TestRegistry_StaleReleaseIsNoop(t *testing.T) {
	first, _ := claim(4, 0)
	release(first)

	second, err := claim(4, 0)
	if err != nil {
		t.Fatalf("claim after release failed: %v", err)
	}
	defer release(second)

	release(first)
	if activeSlot() != second {
		t.Error("Releasing a stale slot cleared the active one")
	}
	if second.id == first.id {
		t.Error("Slots share an id")
	}
}

func TestDispatchFrame_RoutesToActiveHandler(t *testing.T) {
	s, _ := claim(8, 0)
	defer release(s)

	native := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	var got []byte
	s.setFrame(func(buf []byte) camerabridge.Status {
		got = append([]byte(nil), buf...)
		buf[0] = 42
		return camerabridge.StatusOK
	})

	rc := dispatchFrame(unsafe.Pointer(&native[0]))
	if rc != int(camerabridge.StatusOK) {
		t.Errorf("Expected StatusOK, got %d", rc)
	}
	// The handler sees exactly the declared frame size
	if !bytes.Equal(got, native[:8]) {
		t.Errorf("Handler saw %v, want %v", got, native[:8])
	}
	// Writes go straight to native memory
	if native[0] != 42 {
		t.Error("Handler write not visible in native memory")
	}
}

func TestDispatchFrame_NoHandler(t *testing.T) {
	b := []byte{0}
	if rc := dispatchFrame(unsafe.Pointer(&b[0])); rc != int(camerabridge.StatusStopped) {
		t.Errorf("No active slot: expected StatusStopped, got %d", rc)
	}

	s, _ := claim(1, 0)
	defer release(s)
	if rc := dispatchFrame(unsafe.Pointer(&b[0])); rc != int(camerabridge.StatusStopped) {
		t.Errorf("No frame handler: expected StatusStopped, got %d", rc)
	}

	s.setFrame(func([]byte) camerabridge.Status { return camerabridge.StatusOK })
	if rc := dispatchFrame(nil); rc != int(camerabridge.StatusBadSize) {
		t.Errorf("Nil pointer: expected StatusBadSize, got %d", rc)
	}
}

func TestDispatchCompare(t *testing.T) {
	s, _ := claim(1, DefaultPayloadLen)
	defer release(s)

	var payload []byte
	s.setCompare(func(a, b float32, p []byte) int {
		payload = append([]byte(nil), p...)
		return camerabridge.GreaterThan(a, b)
	})

	native := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if rc := dispatchCompare(2.0, 1.0, unsafe.Pointer(&native[0])); rc != 1 {
		t.Errorf("compare(2, 1) = %d, want 1", rc)
	}
	if !bytes.Equal(payload, native) {
		t.Errorf("payload = %v, want %v", payload, native)
	}

	if rc := dispatchCompare(1.0, 2.0, nil); rc != 0 {
		t.Errorf("compare(1, 2) = %d, want 0", rc)
	}
	if payload != nil {
		t.Errorf("Nil pointer should yield nil payload, got %v", payload)
	}
}

func TestOptions_Defaults(t *testing.T) {
	var o Options
	if err := o.withDefaults(); err != nil {
		t.Fatalf("withDefaults failed: %v", err)
	}
	if o.Geometry != DefaultGeometry || o.PayloadLen != DefaultPayloadLen {
		t.Errorf("Unexpected defaults: %+v", o)
	}

	bad := Options{PayloadLen: -1}
	if err := bad.withDefaults(); err == nil {
		t.Error("Expected error for negative payload length")
	}
}

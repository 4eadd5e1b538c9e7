package camerabridge

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned by a Library that does not implement an entry point
	ErrUnsupported = errors.New("camerabridge: operation not supported by library")
	// ErrUnavailable is returned when a backend cannot be loaded on this build or host
	ErrUnavailable = errors.New("camerabridge: library unavailable")
	// ErrAlreadyStarted is returned by Start on a running bridge
	ErrAlreadyStarted = errors.New("camerabridge: bridge already started")
	// ErrNotStarted is returned by operations that need a running bridge
	ErrNotStarted = errors.New("camerabridge: bridge not started")
	// ErrStopped is returned by Start once the bridge has been stopped and its library closed
	ErrStopped = errors.New("camerabridge: bridge stopped")
)

// Status is the integer a frame or compare callback hands back to native code
type Status int

const (
	// StatusOK means the frame was accepted (it may still be dropped downstream)
	StatusOK Status = 0
	// StatusStopped means the bridge is not accepting frames
	StatusStopped Status = 1
	// StatusBadSize means the buffer did not match the configured geometry
	StatusBadSize Status = 2
	// StatusPanic means the Go handler panicked and the frame was discarded
	StatusPanic Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusStopped:
		return "stopped"
	case StatusBadSize:
		return "bad_size"
	case StatusPanic:
		return "panic"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StatusError is a non-zero return code from a native entry point
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("camerabridge: %s returned %d", e.Op, e.Code)
}

// ErrorCategory classifies capture failures for telemetry
type ErrorCategory int

const (
	// ErrCategoryDevice indicates the camera or device node could not be opened or read
	ErrCategoryDevice ErrorCategory = iota
	// ErrCategoryNegotiation indicates a format/caps mismatch between source and requested geometry
	ErrCategoryNegotiation
	// ErrCategoryResource indicates exhausted or busy resources (memory, busy device, permissions)
	ErrCategoryResource
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryNegotiation:
		return "negotiation"
	case ErrCategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}

// ClassifiedError carries the category a backend assigned to a failure
type ClassifiedError struct {
	Category ErrorCategory
	Err      error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("[%s] %v", e.Category, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Classify wraps err with a category. A nil err stays nil.
func Classify(category ErrorCategory, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Category: category, Err: err}
}

// CategoryOf returns the category attached to err, or ErrCategoryUnknown
func CategoryOf(err error) ErrorCategory {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	var se *StatusError
	if errors.As(err, &se) {
		return ErrCategoryDevice
	}
	return ErrCategoryUnknown
}

//go:build !linux

package v4l2src

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rmussadi/userland/modules/camerabridge"
)

// Library is unavailable off Linux
type Library struct{}

// Open always fails: V4L2 is Linux only
func Open(opts Options) (*Library, error) {
	if _, err := opts.withDefaults(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: v4l2 requires linux", camerabridge.ErrUnavailable)
}

func (l *Library) Name() string { return "v4l2" }

func (l *Library) RegisterFrameCallback(camerabridge.FrameCallback) error {
	return camerabridge.ErrUnavailable
}

func (l *Library) RegisterCompareCallback(camerabridge.CompareCallback) error {
	return camerabridge.ErrUnsupported
}

func (l *Library) StartVideo(camerabridge.Window, time.Duration) error {
	return camerabridge.ErrUnavailable
}

func (l *Library) BeginLoop(context.Context) error { return camerabridge.ErrUnavailable }

func (l *Library) DrawRect(image.Rectangle) (int, error) {
	return 0, camerabridge.ErrUnsupported
}

func (l *Library) Close() error { return nil }

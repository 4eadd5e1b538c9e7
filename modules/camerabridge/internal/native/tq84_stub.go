//go:build !cgo || !tq84

package native

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rmussadi/userland/modules/camerabridge"
)

// Library is unavailable without cgo and the tq84 build tag
type Library struct{}

// Open reports that libtq84 support was not compiled in
func Open(opts Options) (*Library, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: built without cgo or the tq84 tag", camerabridge.ErrUnavailable)
}

func (l *Library) Name() string { return "tq84" }

func (l *Library) RegisterFrameCallback(camerabridge.FrameCallback) error {
	return camerabridge.ErrUnavailable
}

func (l *Library) RegisterCompareCallback(camerabridge.CompareCallback) error {
	return camerabridge.ErrUnavailable
}

func (l *Library) StartVideo(camerabridge.Window, time.Duration) error {
	return camerabridge.ErrUnavailable
}

func (l *Library) BeginLoop(context.Context) error {
	return camerabridge.ErrUnavailable
}

func (l *Library) DrawRect(image.Rectangle) (int, error) {
	return 0, camerabridge.ErrUnavailable
}

func (l *Library) Close() error { return nil }

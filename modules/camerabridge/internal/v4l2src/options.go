package v4l2src

import (
	"fmt"

	"github.com/rmussadi/userland/modules/framegrid"
)

// DefaultDevice is the first V4L2 capture node
const DefaultDevice = "/dev/video0"

// waitTimeout is how long (seconds) WaitForFrame blocks before re-checking cancellation
const waitTimeout = 1

// Options configures the V4L2 webcam backend
type Options struct {
	// Geometry frames are converted to; the device must accept Width x Height
	Geometry framegrid.Geometry
	// Device node (default /dev/video0)
	Device string
}

func (o Options) withDefaults() (Options, error) {
	if err := o.Geometry.Validate(); err != nil {
		return o, fmt.Errorf("v4l2src: %w", err)
	}
	if o.Geometry.Width%2 != 0 {
		return o, fmt.Errorf("v4l2src: YUYV needs an even width, got %d", o.Geometry.Width)
	}
	if o.Device == "" {
		o.Device = DefaultDevice
	}
	return o, nil
}

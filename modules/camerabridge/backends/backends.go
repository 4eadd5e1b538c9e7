// Package backends opens a camerabridge.Library by name.
package backends

import (
	"fmt"
	"sort"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/rmussadi/userland/modules/camerabridge/internal/gstsrc"
	"github.com/rmussadi/userland/modules/camerabridge/internal/native"
	"github.com/rmussadi/userland/modules/camerabridge/internal/v4l2src"
	"github.com/rmussadi/userland/modules/camerabridge/simlib"
	"github.com/rmussadi/userland/modules/framegrid"
)

// Backend names
const (
	TQ84      = "tq84"
	GStreamer = "gstreamer"
	V4L2      = "v4l2"
	Sim       = "sim"
)

// Options selects and configures a backend
type Options struct {
	// Name of the backend (tq84, gstreamer, v4l2, sim)
	Name string
	// Geometry of delivered frames
	Geometry framegrid.Geometry
	// FPS for sim and gstreamer (0 = backend default)
	FPS float64
	// Device node for v4l2 and gstreamer v4l2src
	Device string
	// Source element for gstreamer (videotestsrc, v4l2src, libcamerasrc)
	Source string
	// PayloadLen of the tq84 compare buffer (0 = default)
	PayloadLen int
}

// Names lists the supported backends
func Names() []string {
	names := []string{TQ84, GStreamer, V4L2, Sim}
	sort.Strings(names)
	return names
}

// Open creates the named library
func Open(opts Options) (camerabridge.Library, error) {
	var (
		lib camerabridge.Library
		err error
	)

	switch opts.Name {
	case TQ84:
		var l *native.Library
		l, err = native.Open(native.Options{Geometry: opts.Geometry, PayloadLen: opts.PayloadLen})
		lib = l
	case GStreamer:
		var l *gstsrc.Library
		l, err = gstsrc.Open(gstsrc.Options{
			Geometry: opts.Geometry,
			Source:   opts.Source,
			Device:   opts.Device,
			FPS:      opts.FPS,
		})
		lib = l
	case V4L2:
		var l *v4l2src.Library
		l, err = v4l2src.Open(v4l2src.Options{Geometry: opts.Geometry, Device: opts.Device})
		lib = l
	case Sim:
		var l *simlib.Library
		l, err = simlib.New(simlib.Options{Geometry: opts.Geometry, FPS: opts.FPS})
		lib = l
	default:
		return nil, fmt.Errorf("backends: unknown backend %q (want one of %v)", opts.Name, Names())
	}

	// a typed nil must not escape as a non-nil interface
	if err != nil {
		return nil, err
	}
	return lib, nil
}

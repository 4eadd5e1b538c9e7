package native

import (
	"fmt"

	"github.com/rmussadi/userland/modules/framegrid"
)

// DefaultPayloadLen is the size of the buffer libtq84's callmeback passes along
const DefaultPayloadLen = 10

// Options configures the native binding
type Options struct {
	// Geometry of the frame buffers the library publishes (default 1024x1024 RGBA)
	Geometry framegrid.Geometry
	// PayloadLen is how many bytes of the compare payload to expose (default 10)
	PayloadLen int
}

// DefaultGeometry is the library's GL framebuffer layout
var DefaultGeometry = framegrid.Geometry{Width: 1024, Height: 1024, Channels: 4}

func (o *Options) withDefaults() error {
	if o.Geometry == (framegrid.Geometry{}) {
		o.Geometry = DefaultGeometry
	}
	if err := o.Geometry.Validate(); err != nil {
		return fmt.Errorf("native: %w", err)
	}
	if o.PayloadLen < 0 {
		return fmt.Errorf("native: invalid payload length %d", o.PayloadLen)
	}
	if o.PayloadLen == 0 {
		o.PayloadLen = DefaultPayloadLen
	}
	return nil
}

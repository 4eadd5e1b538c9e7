package v4l2src

import (
	"fmt"
	"image/color"

	"github.com/rmussadi/userland/modules/framegrid"
)

// ConvertYUYV unpacks a packed YUYV 4:2:2 frame into dst laid out as g.
//
// One channel keeps the luma plane only; three and four channels convert to
// RGB (alpha 255). dst must hold g.Size() bytes and src 2*Width*Height.
func ConvertYUYV(dst, src []byte, g framegrid.Geometry) error {
	if g.Width%2 != 0 {
		return fmt.Errorf("v4l2src: YUYV needs an even width, got %d", g.Width)
	}
	if len(src) < g.Width*g.Height*2 {
		return fmt.Errorf("v4l2src: frame length (%d) less than expected (%d)", len(src), g.Width*g.Height*2)
	}
	if len(dst) != g.Size() {
		return fmt.Errorf("%w: dst has %d bytes, want %d", framegrid.ErrGeometry, len(dst), g.Size())
	}

	pixels := g.Width * g.Height
	if g.Channels == 1 {
		for i := 0; i < pixels; i++ {
			dst[i] = src[2*i]
		}
		return nil
	}

	c := g.Channels
	for p := 0; p < pixels; p += 2 {
		y0, u, y1, v := src[2*p], src[2*p+1], src[2*p+2], src[2*p+3]

		r, gr, b := color.YCbCrToRGB(y0, u, v)
		put(dst[p*c:], c, r, gr, b)

		r, gr, b = color.YCbCrToRGB(y1, u, v)
		put(dst[(p+1)*c:], c, r, gr, b)
	}
	return nil
}

func put(px []byte, channels int, r, g, b uint8) {
	px[0], px[1], px[2] = r, g, b
	if channels == 4 {
		px[3] = 255
	}
}

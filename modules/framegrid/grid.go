package framegrid

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"unsafe"
)

// ErrGeometry is returned when a buffer cannot be viewed under a geometry
// because the sample counts differ.
var ErrGeometry = errors.New("framegrid: buffer size does not match geometry")

// Geometry describes the layout of an interleaved 8-bit frame buffer
type Geometry struct {
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Channels per pixel (1=gray, 3=RGB, 4=RGBA)
	Channels int
}

// Size returns the number of samples a buffer with this geometry holds
func (g Geometry) Size() int {
	return g.Width * g.Height * g.Channels
}

// Stride returns the number of samples per row
func (g Geometry) Stride() int {
	return g.Width * g.Channels
}

// Validate checks that every dimension is positive and the channel count
// is one of 1, 3 or 4.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("framegrid: invalid dimensions %dx%d", g.Width, g.Height)
	}
	switch g.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("framegrid: unsupported channel count %d (must be 1, 3 or 4)", g.Channels)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%dx%d", g.Width, g.Height, g.Channels)
}

// Grid is a height x width view over interleaved samples.
//
// Pix is never copied by Reshape or FromPointer: writes through Set or Row
// land in the memory the grid was built from.
type Grid struct {
	Pix []byte
	Geometry
}

// Reshape views buf as a grid with geometry g without copying.
// It fails with ErrGeometry when len(buf) != g.Size().
func Reshape(buf []byte, g Geometry) (*Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if len(buf) != g.Size() {
		return nil, fmt.Errorf("%w: have %d samples, want %s=%d",
			ErrGeometry, len(buf), g, g.Size())
	}
	return &Grid{Pix: buf, Geometry: g}, nil
}

// View wraps n bytes of foreign memory starting at ptr as a slice.
//
// The slice aliases ptr; it is only valid while the owner keeps the memory alive.
func View(ptr unsafe.Pointer, n int) ([]byte, error) {
	if ptr == nil {
		return nil, errors.New("framegrid: nil pointer")
	}
	if n <= 0 {
		return nil, fmt.Errorf("framegrid: invalid element count %d", n)
	}
	return unsafe.Slice((*byte)(ptr), n), nil
}

// FromPointer views the memory at ptr as a grid with geometry g.
// The declared element count is g.Size().
func FromPointer(ptr unsafe.Pointer, g Geometry) (*Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	buf, err := View(ptr, g.Size())
	if err != nil {
		return nil, err
	}
	return &Grid{Pix: buf, Geometry: g}, nil
}

// Flatten returns the backing samples in row-major order
func (gr *Grid) Flatten() []byte {
	return gr.Pix
}

// Offset returns the index of the first sample of pixel (x, y)
func (gr *Grid) Offset(x, y int) int {
	return y*gr.Stride() + x*gr.Channels
}

// Row returns row y as a slice aliasing the grid
func (gr *Grid) Row(y int) []byte {
	start := y * gr.Stride()
	return gr.Pix[start : start+gr.Stride() : start+gr.Stride()]
}

// At returns the channel samples of pixel (x, y), aliasing the grid
func (gr *Grid) At(x, y int) []byte {
	i := gr.Offset(x, y)
	return gr.Pix[i : i+gr.Channels : i+gr.Channels]
}

// Set writes px into pixel (x, y). Extra samples are ignored, missing ones
// leave the existing channel values untouched.
func (gr *Grid) Set(x, y int, px ...byte) {
	copy(gr.At(x, y), px)
}

// Clone returns a grid backed by a private copy of the samples
func (gr *Grid) Clone() *Grid {
	pix := make([]byte, len(gr.Pix))
	copy(pix, gr.Pix)
	return &Grid{Pix: pix, Geometry: gr.Geometry}
}

// Reshape re-views the same samples under g. The sizes must match.
func (gr *Grid) Reshape(g Geometry) (*Grid, error) {
	return Reshape(gr.Pix, g)
}

// Image returns an image.Image over the grid.
//
// Samples are straight (non-premultiplied) alpha, so 4-channel grids map to
// image.NRGBA. Gray and RGBA grids share memory with the returned image; RGB
// grids are expanded into a new NRGBA image with opaque alpha.
func (gr *Grid) Image() image.Image {
	rect := image.Rect(0, 0, gr.Width, gr.Height)
	switch gr.Channels {
	case 1:
		return &image.Gray{Pix: gr.Pix, Stride: gr.Stride(), Rect: rect}
	case 4:
		return &image.NRGBA{Pix: gr.Pix, Stride: gr.Stride(), Rect: rect}
	default:
		return rgbToNRGBA(gr.Pix, gr.Width, gr.Height)
	}
}

// FromImage converts img into a new grid with the given channel count
func FromImage(img image.Image, channels int) (*Grid, error) {
	b := img.Bounds()
	g := Geometry{Width: b.Dx(), Height: b.Dy(), Channels: channels}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	if gray, ok := img.(*image.Gray); ok && channels == 1 {
		gr := &Grid{Pix: make([]byte, g.Size()), Geometry: g}
		for y := 0; y < g.Height; y++ {
			i := gray.PixOffset(b.Min.X, b.Min.Y+y)
			copy(gr.Row(y), gray.Pix[i:i+g.Width])
		}
		return gr, nil
	}

	gr := &Grid{Pix: make([]byte, g.Size()), Geometry: g}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch channels {
			case 1:
				gr.Set(x, y, color.GrayModel.Convert(c).(color.Gray).Y)
			default:
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				gr.Set(x, y, n.R, n.G, n.B, n.A)
			}
		}
	}
	return gr, nil
}

// rgbToNRGBA expands packed RGB samples into an opaque NRGBA image
func rgbToNRGBA(rgb []byte, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(rgb) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j+0] = rgb[i+0]
		img.Pix[j+1] = rgb[i+1]
		img.Pix[j+2] = rgb[i+2]
		img.Pix[j+3] = 255
	}
	return img
}

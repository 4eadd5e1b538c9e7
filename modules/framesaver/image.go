package framesaver

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// Gradient returns a w x h grayscale ramp: w*h evenly spaced samples from 0
// to 1 laid out row-major and quantized as uint8(v*255).
func Gradient(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	n := w * h
	if n <= 1 {
		return img
	}

	step := 1.0 / float64(n-1)
	for i := 0; i < n; i++ {
		v := float64(i) * step
		if i == n-1 {
			v = 1
		}
		img.Pix[(i/w)*img.Stride+i%w] = uint8(v * 255)
	}
	return img
}

// SaveImage encodes img by the path extension (.png, .jpg/.jpeg)
func SaveImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("framesaver: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("framesaver: save %s: %w", path, err)
	}
	return f.Close()
}

// LoadImage decodes a png or jpeg file
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("framesaver: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("framesaver: decode %s: %w", path, err)
	}
	return img, nil
}

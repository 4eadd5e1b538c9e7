// Package framesaver persists captured frames as png, jpeg or msgpack raw dumps.
package framesaver

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nfnt/resize"
	"github.com/rmussadi/userland/modules/camerabridge"
)

// Output formats
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatRaw  = "raw"
)

// RawExt is the extension of raw dumps
const RawExt = "msgpack"

// ErrUnsupportedFormat is returned by New for unknown formats
var ErrUnsupportedFormat = errors.New("unsupported format")

// Options configures a Saver
type Options struct {
	// Dir is created if missing
	Dir string
	// Format: png, jpeg or raw (default png)
	Format string
	// Prefix of every file name (default "frame_")
	Prefix string
	// JPEGQuality 1-100 (default 90, jpeg only)
	JPEGQuality int
	// EveryN saves only frames whose Seq is a multiple of N (default 1)
	EveryN uint64
	// MaxWidth downscales wider frames, keeping aspect (0 = never)
	MaxWidth int
}

// Saver writes captured frames to disk.
//
// Thread-safe: can be called from multiple goroutines concurrently.
type Saver struct {
	opts Options

	mu      sync.Mutex
	counter uint64

	framesSaved   atomic.Uint64
	framesSkipped atomic.Uint64
	framesDropped atomic.Uint64
}

// New creates the output directory and validates options
func New(opts Options) (*Saver, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("framesaver: output directory is required")
	}
	if opts.Format == "" {
		opts.Format = FormatPNG
	}
	opts.Format = strings.ToLower(opts.Format)
	if opts.Format == "jpg" {
		opts.Format = FormatJPEG
	}
	switch opts.Format {
	case FormatPNG, FormatJPEG, FormatRaw:
	default:
		return nil, fmt.Errorf("framesaver: %w: %s (must be png, jpeg or raw)", ErrUnsupportedFormat, opts.Format)
	}
	if opts.Prefix == "" {
		opts.Prefix = "frame_"
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = 90
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		return nil, fmt.Errorf("framesaver: jpeg quality must be 1-100, got %d", opts.JPEGQuality)
	}
	if opts.EveryN == 0 {
		opts.EveryN = 1
	}
	if opts.MaxWidth < 0 {
		return nil, fmt.Errorf("framesaver: invalid max width %d", opts.MaxWidth)
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("framesaver: failed to create output directory: %w", err)
	}

	return &Saver{opts: opts}, nil
}

// SaveFrame writes frame and returns its path.
//
// Frames filtered out by EveryN return an empty path and no error.
// Filename format: {prefix}{counter:06d}.{ext}, counter starting at 0.
func (s *Saver) SaveFrame(frame *camerabridge.Frame) (string, error) {
	if frame.Seq%s.opts.EveryN != 0 {
		s.framesSkipped.Add(1)
		return "", nil
	}

	path, err := s.write(frame)
	if err != nil {
		s.framesDropped.Add(1)
		return "", err
	}

	s.framesSaved.Add(1)
	return path, nil
}

func (s *Saver) write(frame *camerabridge.Frame) (string, error) {
	var encode func(*os.File) error

	switch s.opts.Format {
	case FormatRaw:
		encode = func(f *os.File) error { return encodeRaw(f, frame) }
	default:
		grid, err := frame.Grid()
		if err != nil {
			return "", fmt.Errorf("framesaver: %w", err)
		}
		img := s.downscale(grid.Image())
		encode = func(f *os.File) error { return s.encodeImage(f, img) }
	}

	path := s.nextPath()

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("framesaver: failed to create file: %w", err)
	}
	if err := encode(file); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("framesaver: %s encode failed: %w", s.opts.Format, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("framesaver: failed to close %s: %w", path, err)
	}

	slog.Debug("framesaver: frame saved", "seq", frame.Seq, "path", path)
	return path, nil
}

func (s *Saver) nextPath() string {
	s.mu.Lock()
	n := s.counter
	s.counter++
	s.mu.Unlock()

	name := fmt.Sprintf("%s%06d.%s", s.opts.Prefix, n, s.ext())
	return filepath.Join(s.opts.Dir, name)
}

func (s *Saver) ext() string {
	if s.opts.Format == FormatRaw {
		return RawExt
	}
	return s.opts.Format
}

func (s *Saver) downscale(img image.Image) image.Image {
	w := img.Bounds().Dx()
	if s.opts.MaxWidth == 0 || w <= s.opts.MaxWidth {
		return img
	}
	// height 0 keeps the aspect ratio
	return resize.Resize(uint(s.opts.MaxWidth), 0, img, resize.Bilinear)
}

func (s *Saver) encodeImage(f *os.File, img image.Image) error {
	if s.opts.Format == FormatJPEG {
		return jpeg.Encode(f, img, &jpeg.Options{Quality: s.opts.JPEGQuality})
	}
	return png.Encode(f, img)
}

// Stats returns current save statistics.
func (s *Saver) Stats() (saved, skipped, dropped uint64) {
	return s.framesSaved.Load(), s.framesSkipped.Load(), s.framesDropped.Load()
}

// Dir returns the output directory
func (s *Saver) Dir() string { return s.opts.Dir }

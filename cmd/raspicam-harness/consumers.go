package main

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rmussadi/userland/modules/framebus"
	"github.com/rmussadi/userland/modules/framegrid"
	"github.com/rmussadi/userland/modules/framesaver"
)

// SaveWorker drains a DropNew subscription into a framesaver.Saver.
//
// The bus drops frames when the worker falls behind; the saver itself only
// ever sees frames it has time for.
type SaveWorker struct {
	saver  *framesaver.Saver
	logger *slog.Logger

	failed   atomic.Uint64
	lastPath atomic.Value // string
}

// SaveStats holds statistics for the save worker
type SaveStats struct {
	Saved    uint64
	Skipped  uint64
	Failed   uint64
	LastPath string
}

// NewSaveWorker creates a worker writing through saver
func NewSaveWorker(saver *framesaver.Saver) *SaveWorker {
	return &SaveWorker{
		saver:  saver,
		logger: slog.Default().With("worker", "saver"),
	}
}

// Run consumes ch until it is closed
func (w *SaveWorker) Run(ch <-chan framebus.Frame) {
	w.logger.Info("Worker started", "dir", w.saver.Dir())

	for frame := range ch {
		path, err := w.saver.SaveFrame(&frame)
		if err != nil {
			w.failed.Add(1)
			w.logger.Error("Failed to save frame", "seq", frame.Seq, "error", err)
			continue
		}
		if path != "" {
			w.lastPath.Store(path)
		}
	}

	w.logger.Info("Worker stopped")
}

// Stats returns current save statistics
func (w *SaveWorker) Stats() SaveStats {
	saved, skipped, _ := w.saver.Stats()
	last, _ := w.lastPath.Load().(string)
	return SaveStats{
		Saved:    saved,
		Skipped:  skipped,
		Failed:   w.failed.Load(),
		LastPath: last,
	}
}

// Inspector reads the latest frame from a DropOld subscription and checks
// it against the configured geometry, tracking mean intensity.
type Inspector struct {
	geometry framegrid.Geometry
	logger   *slog.Logger

	mu          sync.Mutex
	inspected   uint64
	invalid     uint64
	lastSeq     uint64
	lastMean    float64
	lastLatency time.Duration
}

// InspectorStats holds statistics for the inspector
type InspectorStats struct {
	Inspected   uint64
	Invalid     uint64
	LastSeq     uint64
	LastMean    float64
	LastLatency time.Duration
}

// NewInspector creates an inspector expecting frames of geometry g
func NewInspector(g framegrid.Geometry) *Inspector {
	return &Inspector{
		geometry: g,
		logger:   slog.Default().With("worker", "inspector"),
	}
}

// Run consumes the receiver until it is closed
func (in *Inspector) Run(receiver framebus.FrameReceiver) {
	for {
		frame, ok := receiver.Receive()
		if !ok {
			return
		}

		mean, err := in.inspect(frame)

		in.mu.Lock()
		if err != nil {
			in.invalid++
		} else {
			in.inspected++
			in.lastSeq = frame.Seq
			in.lastMean = mean
			in.lastLatency = time.Since(frame.Timestamp)
		}
		in.mu.Unlock()

		if err != nil {
			in.logger.Error("Frame inspection failed", "seq", frame.Seq, "error", err)
			continue
		}
		in.logger.Debug("Frame inspected", "seq", frame.Seq, "mean", fmt.Sprintf("%.1f", mean))
	}
}

// inspect validates the frame layout and returns the mean sample value
// over the color channels.
func (in *Inspector) inspect(frame framebus.Frame) (float64, error) {
	if frame.Geometry() != in.geometry {
		return 0, fmt.Errorf("frame geometry %s, expected %s", frame.Geometry(), in.geometry)
	}
	grid, err := frame.Grid()
	if err != nil {
		return 0, err
	}

	colors := grid.Channels
	if colors == 4 {
		colors = 3 // ignore alpha
	}

	var sum uint64
	for y := 0; y < grid.Height; y++ {
		row := grid.Row(y)
		for x := 0; x < grid.Width; x++ {
			px := row[x*grid.Channels : x*grid.Channels+colors]
			for _, v := range px {
				sum += uint64(v)
			}
		}
	}
	return float64(sum) / float64(grid.Width*grid.Height*colors), nil
}

// Stats returns current inspector statistics
func (in *Inspector) Stats() InspectorStats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return InspectorStats{
		Inspected:   in.inspected,
		Invalid:     in.invalid,
		LastSeq:     in.lastSeq,
		LastMean:    in.lastMean,
		LastLatency: in.lastLatency,
	}
}

package framesaver

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rmussadi/userland/modules/camerabridge"
	"github.com/rmussadi/userland/modules/framegrid"
	"github.com/vmihailenco/msgpack/v5"
)

// Record is the on-disk layout of a raw dump.
// Data holds the samples untouched (Width*Height*Channels bytes).
type Record struct {
	Seq       uint64 `msgpack:"seq"`
	Timestamp string `msgpack:"timestamp"`
	Width     int    `msgpack:"width"`
	Height    int    `msgpack:"height"`
	Channels  int    `msgpack:"channels"`
	Source    string `msgpack:"source"`
	TraceID   string `msgpack:"trace_id"`
	Data      []byte `msgpack:"data"`
}

// Frame converts the record back into a frame
func (r *Record) Frame() (*camerabridge.Frame, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("framesaver: bad timestamp %q: %w", r.Timestamp, err)
	}
	return &camerabridge.Frame{
		Seq:       r.Seq,
		Timestamp: ts,
		Width:     r.Width,
		Height:    r.Height,
		Channels:  r.Channels,
		Data:      r.Data,
		Source:    r.Source,
		TraceID:   r.TraceID,
	}, nil
}

// Grid views the record's samples as a grid
func (r *Record) Grid() (*framegrid.Grid, error) {
	return framegrid.Reshape(r.Data, framegrid.Geometry{Width: r.Width, Height: r.Height, Channels: r.Channels})
}

func encodeRaw(w io.Writer, frame *camerabridge.Frame) error {
	rec := Record{
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp.Format(time.RFC3339Nano),
		Width:     frame.Width,
		Height:    frame.Height,
		Channels:  frame.Channels,
		Source:    frame.Source,
		TraceID:   frame.TraceID,
		Data:      frame.Data,
	}
	return msgpack.NewEncoder(w).Encode(&rec)
}

// LoadRaw reads a raw dump and checks its samples against its geometry
func LoadRaw(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("framesaver: %w", err)
	}
	defer f.Close()

	var rec Record
	if err := msgpack.NewDecoder(f).Decode(&rec); err != nil {
		return nil, fmt.Errorf("framesaver: failed to decode %s: %w", path, err)
	}
	if _, err := rec.Grid(); err != nil {
		return nil, fmt.Errorf("framesaver: %s: %w", path, err)
	}
	return &rec, nil
}

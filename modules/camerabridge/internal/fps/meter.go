package fps

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is how often a Meter reports, matching the camera preview's FPS log
const DefaultInterval = 5 * time.Second

// Meter counts frames and reports the rate once per interval.
//
// Tick is called from whatever thread delivers frames, so all state is
// guarded; Last can be read concurrently without taking the lock.
type Meter struct {
	name     string
	interval time.Duration

	mu          sync.Mutex
	windowStart time.Time
	windowCount int
	firstTick   time.Time
	total       uint64

	last atomic.Uint64 // math.Float64bits of the last window rate
}

// NewMeter creates a meter that logs "<name>: fps" every interval.
// A non-positive interval selects DefaultInterval.
func NewMeter(name string, interval time.Duration) *Meter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Meter{name: name, interval: interval}
}

// Tick records one frame at now. It returns the window rate and true when
// a window has just closed.
func (m *Meter) Tick(now time.Time) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	if m.firstTick.IsZero() {
		m.firstTick = now
	}

	// the opening frame marks the window start; frames are counted in (start, end]
	if m.windowStart.IsZero() {
		m.windowStart = now
		return 0, false
	}
	m.windowCount++

	elapsed := now.Sub(m.windowStart)
	if elapsed <= m.interval {
		return 0, false
	}

	rate := float64(m.windowCount) / elapsed.Seconds()
	m.windowCount = 0
	m.windowStart = now
	m.last.Store(math.Float64bits(rate))

	slog.Info(m.name+": fps", "fps", fmt.Sprintf("%3.2f", rate), "frames_total", m.total)

	return rate, true
}

// Last returns the rate of the most recently closed window (0 before the first)
func (m *Meter) Last() float64 {
	return math.Float64frombits(m.last.Load())
}

// Average returns total frames divided by the time since the first frame
func (m *Meter) Average(now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.firstTick.IsZero() {
		return 0
	}
	elapsed := now.Sub(m.firstTick).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(m.total) / elapsed
}

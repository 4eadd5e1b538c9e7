package fps

import (
	"math"
	"time"
)

const (
	// stabilityThreshold is the maximum FPS standard deviation as a fraction of mean FPS.
	// Example: 30 FPS mean → stable if stddev < 4.5 FPS
	stabilityThreshold = 0.15

	// jitterThreshold is the maximum mean jitter as a fraction of the expected interval.
	// Example: 30 FPS (33ms interval) → stable if jitter < 6.6ms
	jitterThreshold = 0.20
)

// Stats summarizes frame arrival times over a window
type Stats struct {
	FramesReceived int           // Number of frames observed
	Duration       time.Duration // Observation window
	FPSMean        float64       // Frames / window seconds
	FPSStdDev      float64       // Standard deviation of instantaneous FPS around the mean
	FPSMin         float64       // Lowest instantaneous FPS
	FPSMax         float64       // Highest instantaneous FPS
	IsStable       bool          // stddev < 15% of mean AND jitter < 20% of interval
	JitterMean     float64       // Mean deviation from the expected interval (seconds)
	JitterStdDev   float64       // Standard deviation of jitter (seconds)
	JitterMax      float64       // Largest deviation observed (seconds)
}

// Calculate derives FPS statistics from frame arrival times observed over total.
//
// Instantaneous FPS is 1/interval for each consecutive pair; zero-length
// intervals are skipped. With fewer than two usable timestamps only
// FramesReceived and FPSMean are populated and the result is never stable.
func Calculate(frameTimes []time.Time, total time.Duration) *Stats {
	n := len(frameTimes)
	stats := &Stats{FramesReceived: n, Duration: total}
	if n == 0 || total <= 0 {
		return stats
	}

	stats.FPSMean = float64(n) / total.Seconds()

	intervals := make([]float64, 0, n-1)
	instant := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		d := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		intervals = append(intervals, d)
		if d > 0 {
			instant = append(instant, 1/d)
		}
	}
	if len(instant) == 0 {
		return stats
	}

	stats.FPSMin, stats.FPSMax = minMax(instant)
	stats.FPSStdDev = deviation(instant, stats.FPSMean)

	expected := 1 / stats.FPSMean
	jitters := make([]float64, len(intervals))
	for i, d := range intervals {
		jitters[i] = math.Abs(d - expected)
	}
	stats.JitterMean = mean(jitters)
	stats.JitterStdDev = deviation(jitters, stats.JitterMean)
	_, stats.JitterMax = minMax(jitters)

	stats.IsStable = stats.FPSStdDev < stats.FPSMean*stabilityThreshold &&
		stats.JitterMean < expected*jitterThreshold

	return stats
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// deviation is the root mean square distance of xs from center
func deviation(xs []float64, center float64) float64 {
	var sq float64
	for _, x := range xs {
		d := x - center
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}

func minMax(xs []float64) (lo, hi float64) {
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

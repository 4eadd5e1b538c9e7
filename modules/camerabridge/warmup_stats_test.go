package camerabridge

import (
	"math/rand"
	"testing"
	"testing/quick"
	"time"
)

// generateFrameTimes generates n frame timestamps at rate Hz with uniform
// jitter of +/- jitterFrac of the nominal interval.
func generateFrameTimes(n int, rate, jitterFrac float64) []time.Time {
	rng := rand.New(rand.NewSource(int64(n)*1000 + int64(rate*10)))
	interval := time.Duration(float64(time.Second) / rate)

	times := make([]time.Time, n)
	current := time.Unix(1700000000, 0)
	for i := 0; i < n; i++ {
		times[i] = current
		noise := time.Duration((rng.Float64()*2 - 1) * jitterFrac * float64(interval))
		current = current.Add(interval + noise)
	}
	return times
}

// TestFPSStats_Property1_StabilityThresholds tests the stability criteria
//
// Property: low jitter → IsStable = true, high jitter → IsStable = false
func TestFPSStats_Property1_StabilityThresholds(t *testing.T) {
	t.Run("stable capture", func(t *testing.T) {
		frameTimes := generateFrameTimes(30, 1.0, 0.02)
		stats := CalculateFPSStats(frameTimes, 30*time.Second)

		if !stats.IsStable {
			t.Errorf("Expected stable capture (FPS stddev: %.2f%%, jitter: %.2f%%)",
				(stats.FPSStdDev/stats.FPSMean)*100,
				(stats.JitterMean/(1.0/stats.FPSMean))*100,
			)
		}
	})

	t.Run("unstable capture", func(t *testing.T) {
		frameTimes := generateFrameTimes(30, 1.0, 0.8)
		stats := CalculateFPSStats(frameTimes, 30*time.Second)

		if stats.IsStable {
			t.Errorf("Expected unstable capture with 80%% jitter (jitter: %.2f%%)",
				(stats.JitterMean/(1.0/stats.FPSMean))*100,
			)
		}
	})
}

// TestFPSStats_Property2_EdgeCases tests degenerate inputs
//
// Property: edge cases do not panic and are never stable
func TestFPSStats_Property2_EdgeCases(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name       string
		frameTimes []time.Time
		duration   time.Duration
	}{
		{"zero frames", []time.Time{}, 1 * time.Second},
		{"one frame", []time.Time{now}, 1 * time.Second},
		{"two frames (minimal)", []time.Time{now, now.Add(1 * time.Second)}, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := CalculateFPSStats(tt.frameTimes, tt.duration)
			if stats == nil {
				t.Fatal("CalculateFPSStats returned nil")
			}
			if stats.FPSStdDev < 0 || stats.JitterMean < 0 || stats.JitterMax < 0 {
				t.Errorf("Negative statistic: %+v", stats)
			}
			if stats.IsStable {
				t.Error("Expected IsStable=false for degenerate input")
			}
		})
	}
}

// TestFPSStats_Property3_JitterBounds tests jitter bounds
//
// Property: jitter metrics are non-negative and JitterMax >= JitterMean
func TestFPSStats_Property3_JitterBounds(t *testing.T) {
	f := func(rate float64, numFrames uint8) bool {
		if rate < 0.1 || rate > 30.0 {
			return true
		}
		if numFrames < 2 || numFrames > 100 {
			return true
		}

		frameTimes := generateFrameTimes(int(numFrames), rate, 0.1)
		duration := time.Duration(float64(numFrames)/rate*1000) * time.Millisecond
		stats := CalculateFPSStats(frameTimes, duration)

		if stats.JitterMean < 0 || stats.JitterMax < 0 {
			t.Logf("FAIL: negative jitter with rate=%.2f, frames=%d", rate, numFrames)
			return false
		}
		if stats.JitterMax < stats.JitterMean {
			t.Logf("FAIL: JitterMax (%.6f) < JitterMean (%.6f)", stats.JitterMax, stats.JitterMean)
			return false
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 100}); err != nil {
		t.Errorf("Property violated: %v", err)
	}
}

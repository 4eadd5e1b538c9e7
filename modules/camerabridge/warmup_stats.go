package camerabridge

import (
	"time"

	"github.com/rmussadi/userland/modules/camerabridge/internal/fps"
)

// CalculateFPSStats calculates FPS statistics from frame timestamps.
//
// Stability threshold:
//   - FPS: stddev < 15% of mean FPS
//   - Jitter: mean jitter < 20% of expected interval
func CalculateFPSStats(frameTimes []time.Time, totalDuration time.Duration) *WarmupStats {
	s := fps.Calculate(frameTimes, totalDuration)

	return &WarmupStats{
		FramesReceived: s.FramesReceived,
		Duration:       s.Duration,
		FPSMean:        s.FPSMean,
		FPSStdDev:      s.FPSStdDev,
		FPSMin:         s.FPSMin,
		FPSMax:         s.FPSMax,
		IsStable:       s.IsStable,
		JitterMean:     s.JitterMean,
		JitterMax:      s.JitterMax,
	}
}

package restart

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Config contains configuration for exponential backoff restarts
type Config struct {
	MaxRetries   int           // Maximum number of consecutive restarts (default: 5)
	InitialDelay time.Duration // First backoff delay (default: 1 second)
	MaxDelay     time.Duration // Backoff cap (default: 30 seconds)
}

// DefaultConfig returns the default restart configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Validate rejects negative retry counts and non-positive delays
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("restart: max retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.InitialDelay <= 0 {
		return fmt.Errorf("restart: initial delay must be > 0, got %s", c.InitialDelay)
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("restart: max delay %s is below initial delay %s", c.MaxDelay, c.InitialDelay)
	}
	return nil
}

// State tracks consecutive failures and the lifetime restart count.
// Safe for concurrent use: Reset is typically called from a frame callback
// while Run is sleeping in backoff.
type State struct {
	consecutive atomic.Int32
	restarts    atomic.Uint32
}

// Consecutive returns the number of failures since the last Reset
func (s *State) Consecutive() int {
	return int(s.consecutive.Load())
}

// Restarts returns the total number of restarts performed
func (s *State) Restarts() uint32 {
	return s.restarts.Load()
}

// Reset clears the consecutive failure counter after a healthy run
func (s *State) Reset() {
	if s.consecutive.Swap(0) != 0 {
		slog.Debug("restart: consecutive failure counter reset")
	}
}

// RunFunc runs one capture session. A nil return means the session finished
// on its own and no restart is wanted.
type RunFunc func(ctx context.Context) error

// Run executes fn, restarting it with exponential backoff while it fails.
//
// Backoff schedule with the default config:
//   - Restart 1: 1 second
//   - Restart 2: 2 seconds
//   - Restart 3: 4 seconds
//   - Restart 4: 8 seconds
//   - Restart 5: 16 seconds
//   - After 5 consecutive failures: give up
//
// Returns nil when fn finishes cleanly, ctx.Err() on cancellation, or an
// error wrapping the last failure once MaxRetries is exceeded.
func Run(ctx context.Context, fn RunFunc, cfg Config, state *State) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			slog.Debug("restart: session finished")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		slog.Error("restart: session failed", "error", err)

		attempt := int(state.consecutive.Add(1))
		if attempt > cfg.MaxRetries {
			return fmt.Errorf("restart: max retries exceeded (%d attempts): %w", cfg.MaxRetries, err)
		}
		state.restarts.Add(1)

		delay := Backoff(attempt, cfg)

		slog.Warn("restart: restarting session",
			"attempt", attempt,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Backoff returns initialDelay * 2^(attempt-1), capped at MaxDelay
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return cfg.MaxDelay
	}

	delay := cfg.InitialDelay * time.Duration(1<<uint(attempt-1))
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}

	return delay
}

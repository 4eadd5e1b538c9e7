package restart

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoff_Schedule(t *testing.T) {
	cfg := DefaultConfig()

	testCases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{40, 30 * time.Second},
	}

	for _, tc := range testCases {
		if got := Backoff(tc.attempt, cfg); got != tc.want {
			t.Errorf("Backoff(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func fastConfig(retries int) Config {
	return Config{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
	}
}

func TestRun_CleanFinishStopsImmediately(t *testing.T) {
	var calls int32
	state := &State{}

	err := Run(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, fastConfig(3), state)

	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if state.Restarts() != 0 {
		t.Errorf("Expected 0 restarts, got %d", state.Restarts())
	}
}

func TestRun_RecoversAfterFailures(t *testing.T) {
	var calls int32
	state := &State{}

	err := Run(context.Background(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return errors.New("camera busy")
		}
		return nil
	}, fastConfig(3), state)

	if err != nil {
		t.Fatalf("Expected recovery, got %v", err)
	}
	if state.Restarts() != 2 {
		t.Errorf("Expected 2 restarts, got %d", state.Restarts())
	}

	t.Logf("✅ Recovered after %d restarts", state.Restarts())
}

func TestRun_MaxRetriesExceeded(t *testing.T) {
	sentinel := errors.New("no camera")
	state := &State{}

	err := Run(context.Background(), func(ctx context.Context) error {
		return sentinel
	}, fastConfig(2), state)

	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected wrapped sentinel, got %v", err)
	}
	if state.Restarts() != 2 {
		t.Errorf("Expected 2 restarts before giving up, got %d", state.Restarts())
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	state := &State{}

	err := Run(ctx, func(ctx context.Context) error {
		cancel()
		return errors.New("interrupted")
	}, fastConfig(5), state)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestState_Reset(t *testing.T) {
	state := &State{}
	state.consecutive.Store(3)
	state.Reset()

	if state.Consecutive() != 0 {
		t.Errorf("Expected 0 consecutive failures after reset, got %d", state.Consecutive())
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
	if err := (Config{MaxRetries: -1, InitialDelay: time.Second, MaxDelay: time.Second}).Validate(); err == nil {
		t.Error("Expected error for negative retries")
	}
	if err := (Config{MaxRetries: 1, InitialDelay: 2 * time.Second, MaxDelay: time.Second}).Validate(); err == nil {
		t.Error("Expected error for max delay below initial delay")
	}
}

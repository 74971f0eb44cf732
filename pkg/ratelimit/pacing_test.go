package ratelimit

import (
	"context"
	"testing"
	"time"

	"engagebot/pkg/actionlog"
)

func TestDelayRangeIdleLoad(t *testing.T) {
	l, clock := newTestLimiter(t, nil)

	// Empty history is below 20% of the hourly cap, so the idle load factor
	// applies and pacing speeds up.
	multiplier := 0.7 * (2.0 - l.model.Multiplier(clock.Now(), false))
	wantMin := clampSeconds(60 * multiplier)
	wantMax := clampSeconds(600 * multiplier)
	if wantMax < wantMin {
		wantMax = wantMin
	}

	minSec, maxSec := l.delayRange()
	if !almostEqual(minSec, wantMin) || !almostEqual(maxSec, wantMax) {
		t.Errorf("delayRange() = (%.3f, %.3f), want (%.3f, %.3f)", minSec, maxSec, wantMin, wantMax)
	}
}

func TestDelayRangeHighLoad(t *testing.T) {
	l, clock := newTestLimiter(t, func(o *Options) {
		o.Limits.MaxActionsPerHour = 10
	})

	// 8 of 10 actions in the last hour is at the 80% threshold.
	for i := 0; i < 8; i++ {
		l.Record(actionlog.TypeSearch, true, nil)
	}

	multiplier := 1.5 * (2.0 - l.model.Multiplier(clock.Now(), false))
	wantMin := clampSeconds(60 * multiplier)
	wantMax := clampSeconds(600 * multiplier)
	if wantMax < wantMin {
		wantMax = wantMin
	}

	minSec, maxSec := l.delayRange()
	if !almostEqual(minSec, wantMin) || !almostEqual(maxSec, wantMax) {
		t.Errorf("delayRange() = (%.3f, %.3f), want (%.3f, %.3f)", minSec, maxSec, wantMin, wantMax)
	}
}

func TestDelayRangeClamped(t *testing.T) {
	l, _ := newTestLimiter(t, func(o *Options) {
		o.Delays.BetweenActions.Min = 1
		o.Delays.BetweenActions.Max = 100000
	})

	minSec, maxSec := l.delayRange()
	if minSec < minDelaySeconds {
		t.Errorf("min delay %.3f below floor %d", minSec, minDelaySeconds)
	}
	if maxSec > maxDelaySeconds {
		t.Errorf("max delay %.3f above ceiling %d", maxSec, maxDelaySeconds)
	}
	if maxSec < minSec {
		t.Errorf("inverted range (%.3f, %.3f)", minSec, maxSec)
	}
}

func TestDelayBeforeWithinJitteredBounds(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	minSec, maxSec := l.delayRange()
	low := time.Duration(minSec * 0.8 * float64(time.Second))
	high := time.Duration(maxSec * 1.2 * float64(time.Second))

	for i := 0; i < 200; i++ {
		d := l.DelayBefore()
		if d < low || d > high {
			t.Fatalf("DelayBefore() = %v outside [%v, %v]", d, low, high)
		}
	}
}

func TestDelayAfterErrorScalesWithStreak(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	for i := 0; i < 3; i++ {
		l.Record(actionlog.TypeLike, false, nil)
	}

	// scale = 1 + 0.5*3 over the (900, 1800) base range, jittered by ±10%.
	low := time.Duration(900 * 2.5 * 0.9 * float64(time.Second))
	high := time.Duration(1800 * 2.5 * 1.1 * float64(time.Second))

	for i := 0; i < 200; i++ {
		d := l.DelayAfterError()
		if d < low || d > high {
			t.Fatalf("DelayAfterError() = %v outside [%v, %v]", d, low, high)
		}
	}
}

func TestDelayAfterErrorNoStreak(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	low := time.Duration(900 * 0.9 * float64(time.Second))
	high := time.Duration(1800 * 1.1 * float64(time.Second))

	for i := 0; i < 200; i++ {
		d := l.DelayAfterError()
		if d < low || d > high {
			t.Fatalf("DelayAfterError() = %v outside [%v, %v]", d, low, high)
		}
	}
}

func TestJitterFloor(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	l.mu.Lock()
	d := l.jitterLocked(0.0001, 0.2)
	l.mu.Unlock()

	if d != minSleep {
		t.Errorf("jitterLocked near zero = %v, want floor %v", d, minSleep)
	}
}

func TestWaitBeforeUsesSampledDelay(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	var slept time.Duration
	l.sleep = func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	if err := l.WaitBefore(context.Background(), actionlog.TypeLike); err != nil {
		t.Fatalf("WaitBefore() error = %v", err)
	}
	if slept <= 0 {
		t.Error("WaitBefore() slept for nothing")
	}

	minSec, maxSec := l.delayRange()
	low := time.Duration(minSec * 0.8 * float64(time.Second))
	high := time.Duration(maxSec * 1.2 * float64(time.Second))
	if slept < low || slept > high {
		t.Errorf("slept %v outside [%v, %v]", slept, low, high)
	}
}

func TestWaitAfterErrorPropagatesCancellation(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.WaitAfterError(ctx); err != context.Canceled {
		t.Errorf("WaitAfterError() error = %v, want context.Canceled", err)
	}
}

func TestRealSleep(t *testing.T) {
	t.Run("returns after the duration", func(t *testing.T) {
		start := time.Now()
		if err := realSleep(context.Background(), 10*time.Millisecond); err != nil {
			t.Fatalf("realSleep() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
			t.Errorf("returned after %v, want at least 10ms", elapsed)
		}
	})

	t.Run("zero duration returns immediately", func(t *testing.T) {
		if err := realSleep(context.Background(), 0); err != nil {
			t.Errorf("realSleep(0) error = %v", err)
		}
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := realSleep(ctx, time.Hour); err != context.Canceled {
			t.Errorf("realSleep() error = %v, want context.Canceled", err)
		}
	})
}

func clampSeconds(v float64) float64 {
	if v < minDelaySeconds {
		return minDelaySeconds
	}
	if v > maxDelaySeconds {
		return maxDelaySeconds
	}
	return v
}

func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}

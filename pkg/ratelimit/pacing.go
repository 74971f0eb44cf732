package ratelimit

import (
	"context"
	"time"

	"engagebot/pkg/actionlog"
)

const (
	// minDelaySeconds and maxDelaySeconds clamp the dynamic delay range.
	minDelaySeconds = 10
	maxDelaySeconds = 1800

	// minSleep is the floor applied after jitter so a wait never rounds to
	// nothing.
	minSleep = 100 * time.Millisecond

	// errorBackoffStep scales the post-error delay range per consecutive
	// failure.
	errorBackoffStep = 0.5
)

// sleepFunc blocks for the duration or until the context is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// delayRange computes the dynamic (min, max) delay bounds in seconds for the
// next action. The base range stretches when the last hour is close to quota
// and shrinks when it is nearly idle, then scales inversely with the current
// activity multiplier: during busy human hours the bot paces faster.
func (l *Limiter) delayRange() (float64, float64) {
	now := l.clock.Now()
	base := l.delays.BetweenActions

	recent := l.history.CountSince(now.Add(-time.Hour))
	var loadFactor float64
	switch {
	case float64(recent) >= float64(l.limits.MaxActionsPerHour)*0.8:
		loadFactor = 1.5
	case float64(recent) < float64(l.limits.MaxActionsPerHour)*0.2:
		loadFactor = 0.7
	default:
		loadFactor = 1.0
	}

	multiplier := loadFactor * (2.0 - l.model.Multiplier(now, l.BurstActive()))

	minSec := base.Min * multiplier
	maxSec := base.Max * multiplier

	if minSec < minDelaySeconds {
		minSec = minDelaySeconds
	}
	if maxSec > maxDelaySeconds {
		maxSec = maxDelaySeconds
	}
	if maxSec < minSec {
		maxSec = minSec
	}

	return minSec, maxSec
}

// DelayBefore samples the wait applied before the next action: uniform over
// the dynamic range, then jittered by ±20% to keep the pacing irregular.
func (l *Limiter) DelayBefore() time.Duration {
	minSec, maxSec := l.delayRange()

	l.mu.Lock()
	sampled := minSec + l.rng.Float64()*(maxSec-minSec)
	jittered := l.jitterLocked(sampled, 0.2)
	l.mu.Unlock()

	return jittered
}

// DelayAfterError samples the wait applied after a failed cycle. Both bounds
// of the configured range scale with the failure streak, so repeated errors
// back the bot off progressively harder.
func (l *Limiter) DelayAfterError() time.Duration {
	l.mu.Lock()
	scale := 1.0 + errorBackoffStep*float64(l.consecutiveErrors)
	minSec := l.delays.AfterError.Min * scale
	maxSec := l.delays.AfterError.Max * scale
	sampled := minSec + l.rng.Float64()*(maxSec-minSec)
	jittered := l.jitterLocked(sampled, 0.1)
	l.mu.Unlock()

	return jittered
}

// jitterLocked applies the human-like variance transform: the sampled delay
// scaled by 1±variance, floored at 100ms. Callers must hold l.mu.
func (l *Limiter) jitterLocked(seconds, variance float64) time.Duration {
	seconds *= 1 + (l.rng.Float64()*2-1)*variance
	d := time.Duration(seconds * float64(time.Second))
	if d < minSleep {
		d = minSleep
	}
	return d
}

// WaitBefore blocks the caller for the sampled pre-action delay. The wait is
// interruptible through the context; an aborted wait leaves the limiter
// state untouched, so a shutdown persist is always safe afterwards.
func (l *Limiter) WaitBefore(ctx context.Context, actionType actionlog.Type) error {
	delay := l.DelayBefore()
	l.logger.InfoWithFields("waiting before action", map[string]interface{}{
		"type":  string(actionType),
		"delay": delay,
	})
	return l.sleep(ctx, delay)
}

// WaitAfterError blocks the caller for the sampled post-error delay.
func (l *Limiter) WaitAfterError(ctx context.Context) error {
	delay := l.DelayAfterError()
	l.logger.WarnWithFields("waiting after error", map[string]interface{}{
		"delay":              delay,
		"consecutive_errors": l.ConsecutiveErrors(),
	})
	return l.sleep(ctx, delay)
}

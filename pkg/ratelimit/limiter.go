package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"engagebot/pkg/actionlog"
	"engagebot/pkg/activity"
	"engagebot/pkg/config"
	"engagebot/pkg/logger"
)

const (
	// errorCooldownThreshold is the consecutive-failure count that puts the
	// limiter into cooldown.
	errorCooldownThreshold = 5

	// errorCooldown is how long the limiter denies everything once the
	// threshold is hit, measured from the last failure.
	errorCooldown = 30 * time.Minute

	// persistEvery controls how often the history is flushed to disk:
	// every Nth recorded action, plus once at Close.
	persistEvery = 10
)

// Options configures a Limiter.
type Options struct {
	// Limits holds the per-window quotas. Required.
	Limits config.RateLimitsConfig

	// Delays holds the base delay ranges. Required.
	Delays config.DelaysConfig

	// Model supplies the time-of-day activity multiplier and quiet periods.
	// Required.
	Model *activity.Model

	// Store persists the action history. Optional; nil disables persistence.
	Store *actionlog.Store

	// Clock supplies the current time. Defaults to the system clock.
	Clock Clock

	// Rand is the source for delay sampling and quiet-period suppression.
	// Defaults to a time-seeded source.
	Rand *rand.Rand

	// Sleep overrides how waits block. Defaults to a context-aware timer;
	// tests inject a stub to avoid real waits.
	Sleep func(ctx context.Context, d time.Duration) error

	// Logger defaults to the global logger.
	Logger logger.Logger
}

// Limiter is the single entry point the orchestrator drives before and after
// every action. It owns the action history, the error-cooldown state, and
// the burst-mode flag.
//
// All methods are safe for concurrent use, though the base deployment is a
// single action stream plus the background burst-expiry timer.
type Limiter struct {
	limits config.RateLimitsConfig
	delays config.DelaysConfig
	model  *activity.Model
	store  *actionlog.Store
	clock  Clock
	logger logger.Logger

	history *actionlog.History

	mu                sync.Mutex
	rng               *rand.Rand
	consecutiveErrors int
	lastErrorTime     time.Time
	burst             bool
	burstTimer        *time.Timer
	appended          int

	sessionStart time.Time

	// sleep is swapped out in tests to avoid real waits.
	sleep sleepFunc
}

// New creates a limiter, loading any persisted action history through the
// store. A missing or corrupt log simply yields an empty history.
func New(opts Options) *Limiter {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Sleep == nil {
		opts.Sleep = realSleep
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	now := opts.Clock.Now()

	var history *actionlog.History
	if opts.Store != nil {
		history = opts.Store.Load(now)
	} else {
		history = actionlog.NewHistory()
	}

	l := &Limiter{
		limits:       opts.Limits,
		delays:       opts.Delays,
		model:        opts.Model,
		store:        opts.Store,
		clock:        opts.Clock,
		logger:       opts.Logger,
		history:      history,
		rng:          opts.Rand,
		sessionStart: now,
		sleep:        opts.Sleep,
	}

	l.logger.InfoWithFields("rate limiter initialized", map[string]interface{}{
		"history_records":      history.Len(),
		"max_actions_per_hour": opts.Limits.MaxActionsPerHour,
		"max_actions_per_day":  opts.Limits.MaxActionsPerDay,
	})

	return l
}

// Record appends an action to the history and updates the error state:
// a failure extends the consecutive-failure streak, a success clears it.
// Records past the retention period are evicted before the append so a
// long-running process never accumulates expired history.
// Every tenth append flushes the history to disk; flush failures are logged
// and absorbed, never returned.
func (l *Limiter) Record(actionType actionlog.Type, success bool, metadata map[string]interface{}) {
	now := l.clock.Now()

	l.history.EvictBefore(now.Add(-actionlog.RetentionPeriod))
	l.history.Append(actionlog.Record{
		ID:        uuid.NewString(),
		Type:      actionType,
		Success:   success,
		Timestamp: now,
		Metadata:  metadata,
	})

	l.mu.Lock()
	if success {
		l.consecutiveErrors = 0
		l.lastErrorTime = time.Time{}
	} else {
		l.consecutiveErrors++
		l.lastErrorTime = now
		l.logger.WarnWithFields("action failed", map[string]interface{}{
			"type":               string(actionType),
			"consecutive_errors": l.consecutiveErrors,
		})
	}
	l.appended++
	flush := l.store != nil && l.appended%persistEvery == 0
	l.mu.Unlock()

	if flush {
		if err := l.store.Save(l.history, now); err != nil {
			l.logger.WithError(err).Error("failed to persist actions history")
		}
	}

	l.logger.DebugWithFields("recorded action", map[string]interface{}{
		"type":    string(actionType),
		"success": success,
	})
}

// ConsecutiveErrors returns the current failure streak length.
func (l *Limiter) ConsecutiveErrors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consecutiveErrors
}

// ResetErrors clears the failure streak and cooldown state.
func (l *Limiter) ResetErrors() {
	l.mu.Lock()
	l.consecutiveErrors = 0
	l.lastErrorTime = time.Time{}
	l.mu.Unlock()
	l.logger.Info("error count reset")
}

// EnableBurst boosts the activity multiplier for the given duration. The
// flag is cleared by a background timer, independent of action recording.
func (l *Limiter) EnableBurst(duration time.Duration) {
	l.mu.Lock()
	l.burst = true
	if l.burstTimer != nil {
		l.burstTimer.Stop()
	}
	l.burstTimer = time.AfterFunc(duration, func() {
		l.mu.Lock()
		l.burst = false
		l.mu.Unlock()
		l.logger.Info("burst mode disabled")
	})
	l.mu.Unlock()

	l.logger.InfoWithFields("burst mode enabled", map[string]interface{}{
		"duration": duration,
	})
}

// BurstActive reports whether burst mode is currently on.
func (l *Limiter) BurstActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.burst
}

// Persist forces a flush of the history to disk.
func (l *Limiter) Persist() error {
	if l.store == nil {
		return nil
	}
	return l.store.Save(l.history, l.clock.Now())
}

// Close stops the burst timer and flushes the history. Safe to call after
// an interrupted wait; persistence only reads a snapshot of the history.
func (l *Limiter) Close() {
	l.mu.Lock()
	if l.burstTimer != nil {
		l.burstTimer.Stop()
		l.burstTimer = nil
	}
	l.mu.Unlock()

	if err := l.Persist(); err != nil {
		l.logger.WithError(err).Error("failed to persist actions history on close")
	}
}

// random returns a uniform value in [0, 1) under the limiter lock; the
// shared *rand.Rand is not safe for concurrent use.
func (l *Limiter) random() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

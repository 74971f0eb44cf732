// Package activity models when a human account holder would plausibly be
// online. It produces a time-of-day multiplier that the pacing scheduler
// feeds into its delay computation, and knows which hours count as quiet
// periods during which actions should mostly be suppressed.
package activity

import (
	"math/rand"
	"time"
)

// burstBoost is applied on top of the hourly pattern while burst mode is on.
const burstBoost = 1.5

// QuietPeriod is an hour-of-day range during which the account holder is
// assumed to be away. Start > End means the range wraps past midnight,
// e.g. (23, 6) covers 23:00 through 06:59.
type QuietPeriod struct {
	Start int
	End   int
}

// Contains reports whether the given hour falls inside the period.
// Both bounds are inclusive.
func (q QuietPeriod) Contains(hour int) bool {
	if q.Start > q.End {
		return hour >= q.Start || hour <= q.End
	}
	return hour >= q.Start && hour <= q.End
}

// Model holds a fixed 24-hour activity pattern plus weekend damping and
// quiet-period configuration. The pattern is generated once at construction
// and is read-only afterwards, so concurrent reads need no locking.
type Model struct {
	pattern          [24]float64
	weekendMode      bool
	weekendReduction float64
	quietPeriods     []QuietPeriod
}

// Options configures a Model.
type Options struct {
	// WeekendMode enables damping of the multiplier on Saturdays and Sundays.
	WeekendMode bool
	// WeekendReduction is the damping factor applied on weekends (default 0.5).
	WeekendReduction float64
	// QuietPeriods lists the hour ranges treated as away time. When empty,
	// the defaults (23-6 overnight, 12-13 lunch) are used.
	QuietPeriods []QuietPeriod
}

// DefaultQuietPeriods returns the built-in away-time ranges: the overnight
// stretch and a lunch break.
func DefaultQuietPeriods() []QuietPeriod {
	return []QuietPeriod{
		{Start: 23, End: 6},
		{Start: 12, End: 13},
	}
}

// NewModel generates a model using the given random source for jitter.
// The source is injected so tests can pin the generated pattern.
func NewModel(rng *rand.Rand, opts Options) *Model {
	if opts.WeekendReduction == 0 {
		opts.WeekendReduction = 0.5
	}
	if len(opts.QuietPeriods) == 0 {
		opts.QuietPeriods = DefaultQuietPeriods()
	}

	m := &Model{
		weekendMode:      opts.WeekendMode,
		weekendReduction: opts.WeekendReduction,
		quietPeriods:     opts.QuietPeriods,
	}
	m.pattern = generatePattern(rng)
	return m
}

// generatePattern builds the 24-entry multiplier table: morning and evening
// peaks, a lunch dip, a deep overnight trough, and a baseline elsewhere.
// Each entry is jittered by a uniform factor in [0.8, 1.2] so the pattern
// is not perfectly periodic across runs.
func generatePattern(rng *rand.Rand) [24]float64 {
	var pattern [24]float64
	for hour := 0; hour < 24; hour++ {
		var multiplier float64
		switch {
		case hour >= 6 && hour <= 9:
			multiplier = 1.5 // morning peak
		case hour >= 12 && hour <= 13:
			multiplier = 0.8 // lunch dip
		case hour >= 17 && hour <= 22:
			multiplier = 1.8 // evening peak
		case hour >= 23 || hour <= 5:
			multiplier = 0.3 // overnight trough
		default:
			multiplier = 1.0
		}

		multiplier *= 0.8 + rng.Float64()*0.4
		pattern[hour] = multiplier
	}
	return pattern
}

// Multiplier returns the activity multiplier for the given instant.
// Weekend damping applies on Saturdays and Sundays when enabled; burst mode
// boosts the result independently of the hourly pattern.
func (m *Model) Multiplier(now time.Time, burst bool) float64 {
	multiplier := m.pattern[now.Hour()]

	if m.weekendMode && isWeekend(now) {
		multiplier *= m.weekendReduction
	}
	if burst {
		multiplier *= burstBoost
	}

	return multiplier
}

// PatternValue returns the raw (jittered) pattern entry for an hour.
func (m *Model) PatternValue(hour int) float64 {
	return m.pattern[hour]
}

// InQuietPeriod reports whether the instant falls inside any configured
// quiet period.
func (m *Model) InQuietPeriod(now time.Time) bool {
	hour := now.Hour()
	for _, period := range m.quietPeriods {
		if period.Contains(hour) {
			return true
		}
	}
	return false
}

// isWeekend reports whether the instant falls on a Saturday or Sunday.
func isWeekend(now time.Time) bool {
	day := now.Weekday()
	return day == time.Saturday || day == time.Sunday
}

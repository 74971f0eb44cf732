package ratelimit

import (
	"time"

	"engagebot/pkg/actionlog"
)

// WindowUsage describes quota consumption for one window or action type.
type WindowUsage struct {
	Used       int     `json:"used"`
	Limit      int     `json:"limit"`
	Remaining  int     `json:"remaining"`
	Percentage float64 `json:"percentage"`
}

func usage(used, limit int) WindowUsage {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	var pct float64
	if limit > 0 {
		pct = float64(used) / float64(limit) * 100
	}
	return WindowUsage{Used: used, Limit: limit, Remaining: remaining, Percentage: pct}
}

// Status is a point-in-time view of quota consumption and limiter state,
// suitable for monitoring output.
type Status struct {
	HourlyActions  WindowUsage `json:"hourly_actions"`
	DailyActions   WindowUsage `json:"daily_actions"`
	HourlyLikes    WindowUsage `json:"hourly_likes"`
	HourlyReplies  WindowUsage `json:"hourly_replies"`
	HourlyRetweets WindowUsage `json:"hourly_retweets"`

	ConsecutiveErrors int `json:"consecutive_errors"`

	// LastErrorTime is nil while the failure streak is empty, so JSON
	// output omits it instead of emitting the zero time.
	LastErrorTime      *time.Time `json:"last_error_time,omitempty"`
	ActivityMultiplier float64    `json:"activity_multiplier"`
	InQuietPeriod      bool       `json:"in_quiet_period"`
	BurstMode          bool       `json:"burst_mode"`
}

// Status reports current quota usage across every window and type.
func (l *Limiter) Status() Status {
	now := l.clock.Now()
	hourCutoff := now.Add(-time.Hour)
	dayCutoff := now.Add(-24 * time.Hour)

	l.mu.Lock()
	consecutiveErrors := l.consecutiveErrors
	var lastErrorTime *time.Time
	if !l.lastErrorTime.IsZero() {
		t := l.lastErrorTime
		lastErrorTime = &t
	}
	burst := l.burst
	l.mu.Unlock()

	return Status{
		HourlyActions:  usage(l.history.CountSince(hourCutoff), l.limits.MaxActionsPerHour),
		DailyActions:   usage(l.history.CountSince(dayCutoff), l.limits.MaxActionsPerDay),
		HourlyLikes:    usage(l.history.CountTypeSince(actionlog.TypeLike, hourCutoff), l.limits.MaxLikesPerHour),
		HourlyReplies:  usage(l.history.CountTypeSince(actionlog.TypeReply, hourCutoff), l.limits.MaxRepliesPerHour),
		HourlyRetweets: usage(l.history.CountTypeSince(actionlog.TypeRetweet, hourCutoff), l.limits.MaxRetweetsPerHour),

		ConsecutiveErrors:  consecutiveErrors,
		LastErrorTime:      lastErrorTime,
		ActivityMultiplier: l.model.Multiplier(now, burst),
		InQuietPeriod:      l.model.InQuietPeriod(now),
		BurstMode:          burst,
	}
}

// Statistics aggregates session-level activity numbers.
type Statistics struct {
	SessionDuration       time.Duration                           `json:"session_duration"`
	TotalActions          int                                     `json:"total_actions"`
	ActionsLastHour       int                                     `json:"actions_last_hour"`
	ActionsLastDay        int                                     `json:"actions_last_day"`
	ByType                map[actionlog.Type]actionlog.TypeCounts `json:"actions_by_type"`
	SuccessRate           float64                                 `json:"success_rate"`
	AverageActionsPerHour float64                                 `json:"average_actions_per_hour"`
}

// Statistics reports totals, a per-type breakdown, the overall success rate
// (percent), and the session's average actions per hour.
func (l *Limiter) Statistics() Statistics {
	now := l.clock.Now()
	total := l.history.Len()

	stats := Statistics{
		SessionDuration: now.Sub(l.sessionStart),
		TotalActions:    total,
		ActionsLastHour: l.history.CountSince(now.Add(-time.Hour)),
		ActionsLastDay:  l.history.CountSince(now.Add(-24 * time.Hour)),
		ByType:          l.history.CountByType(),
	}

	if total > 0 {
		stats.SuccessRate = float64(l.history.CountSuccesses()) / float64(total) * 100
	}

	sessionHours := now.Sub(l.sessionStart).Hours()
	if sessionHours > 0 {
		stats.AverageActionsPerHour = float64(total) / sessionHours
	}

	return stats
}

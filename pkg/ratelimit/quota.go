package ratelimit

import (
	"fmt"
	"time"

	"engagebot/pkg/actionlog"
)

// quietSkipProbability is the chance that an otherwise-permitted action is
// suppressed during a quiet period.
const quietSkipProbability = 0.7

// Deny codes, stable identifiers for the reason class (metrics labels,
// switch statements). The Reason string carries the specifics.
const (
	DenyErrorCooldown = "error_cooldown"
	DenyDailyLimit    = "daily_limit"
	DenyHourlyLimit   = "hourly_limit"
	DenyTypeLimit     = "type_limit"
	DenyQuietPeriod   = "quiet_period"
)

// Decision is the outcome of a quota check. A deny carries a stable code and
// a human-readable reason for logging; denies are expected operational
// states, not errors.
type Decision struct {
	Allowed bool
	Code    string
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(code, format string, args ...interface{}) Decision {
	return Decision{Allowed: false, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// CanPerform checks every quota layer for the proposed action, in order:
// error cooldown, daily cap, hourly cap, the per-type hourly cap (likes,
// replies, and retweets only), and quiet-period suppression.
//
// Once the cooldown window has elapsed, this check resets the failure streak
// as a side effect, which is what lets the bot retry after an error burst.
func (l *Limiter) CanPerform(actionType actionlog.Type) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	if l.consecutiveErrors >= errorCooldownThreshold {
		if !l.lastErrorTime.IsZero() && now.Sub(l.lastErrorTime) < errorCooldown {
			errs := l.consecutiveErrors
			l.mu.Unlock()
			return deny(DenyErrorCooldown, "error cooldown active (%d consecutive errors)", errs)
		}
		// Cooldown window elapsed; the streak resets here rather than on the
		// next Record so the limiter recovers without requiring a success.
		l.consecutiveErrors = 0
		l.lastErrorTime = time.Time{}
	}
	l.mu.Unlock()

	dayCount := l.history.CountSince(now.Add(-24 * time.Hour))
	if dayCount >= l.limits.MaxActionsPerDay {
		return deny(DenyDailyLimit, "daily limit reached: %d/%d", dayCount, l.limits.MaxActionsPerDay)
	}

	hourCutoff := now.Add(-time.Hour)
	hourCount := l.history.CountSince(hourCutoff)
	if hourCount >= l.limits.MaxActionsPerHour {
		return deny(DenyHourlyLimit, "hourly limit reached: %d/%d", hourCount, l.limits.MaxActionsPerHour)
	}

	if limit, tracked := l.hourlyCap(actionType); tracked {
		typeCount := l.history.CountTypeSince(actionType, hourCutoff)
		if typeCount >= limit {
			return deny(DenyTypeLimit, "hourly %s limit reached: %d/%d", actionType, typeCount, limit)
		}
	}

	if l.model.InQuietPeriod(now) {
		if l.random() < quietSkipProbability {
			return deny(DenyQuietPeriod, "suppressed during quiet period (hour %d)", now.Hour())
		}
	}

	return allow()
}

// hourlyCap returns the per-type hourly cap and whether the type is tracked.
// Searches and generic engagements have no cap of their own and only pass
// through the global checks.
func (l *Limiter) hourlyCap(actionType actionlog.Type) (int, bool) {
	switch actionType {
	case actionlog.TypeLike:
		return l.limits.MaxLikesPerHour, true
	case actionlog.TypeReply:
		return l.limits.MaxRepliesPerHour, true
	case actionlog.TypeRetweet:
		return l.limits.MaxRetweetsPerHour, true
	default:
		return 0, false
	}
}

// NextActionTime returns the earliest instant the given action could be
// permitted. The second return is true when the action is permitted now.
// The estimate is conservative: daily exhaustion waits for the next morning,
// hourly exhaustion for the top of the next hour.
func (l *Limiter) NextActionTime(actionType actionlog.Type) (time.Time, bool) {
	if l.CanPerform(actionType).Allowed {
		return time.Time{}, true
	}

	now := l.clock.Now()

	dayCount := l.history.CountSince(now.Add(-24 * time.Hour))
	if dayCount >= l.limits.MaxActionsPerDay {
		morning := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location())
		if !morning.After(now) {
			morning = morning.Add(24 * time.Hour)
		}
		return morning, false
	}

	hourCutoff := now.Add(-time.Hour)
	nextHour := now.Truncate(time.Hour).Add(time.Hour)

	if l.history.CountSince(hourCutoff) >= l.limits.MaxActionsPerHour {
		return nextHour, false
	}

	if limit, tracked := l.hourlyCap(actionType); tracked {
		if l.history.CountTypeSince(actionType, hourCutoff) >= limit {
			return nextHour, false
		}
	}

	// Cooldown or quiet period; retry in half an hour.
	return now.Add(30 * time.Minute), false
}

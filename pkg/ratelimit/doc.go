// Package ratelimit implements the adaptive pacing engine that decides
// whether the bot may act, and how long it should wait between actions.
//
// The engine combines several layers:
//
// Quota enforcement:
//   - Global trailing-hour and trailing-day action caps
//   - Per-type hourly caps for likes, replies, and retweets
//   - Counts computed against a rolling, persisted action history
//
// Human pacing:
//   - A 24-hour activity pattern (see package activity) drives a dynamic
//     delay range: busy human hours pace faster, quiet hours slower
//   - Delays are sampled uniformly and jittered so no two waits look alike
//   - Quiet-period hours additionally suppress most action attempts
//
// Error cooldown:
//   - Five consecutive failures put the limiter into a cooldown state that
//     denies everything for thirty minutes
//   - Post-error waits escalate with the length of the failure streak
//
// Usage:
//
//	limiter := ratelimit.New(ratelimit.Options{
//	    Limits: cfg.RateLimits,
//	    Delays: cfg.Behavior.Delays,
//	    Model:  model,
//	    Store:  actionlog.NewStore(cfg.RateLimits.ActionsLogFile),
//	})
//	defer limiter.Close()
//
//	if d := limiter.CanPerform(actionlog.TypeLike); d.Allowed {
//	    limiter.WaitBefore(ctx, actionlog.TypeLike)
//	    err := doLike()
//	    limiter.Record(actionlog.TypeLike, err == nil, nil)
//	}
//
// The clock and random source are injectable, so quota decisions and exact
// delay values are deterministic under test.
package ratelimit

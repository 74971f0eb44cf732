// Package bot wires discovery, engagement, the session, and the rate
// limiter into the main run loop. Every action passes through the limiter:
// a quota check before, a pre-action wait, and a record afterwards; failed
// cycles add an escalating post-error wait.
package bot

import (
	"context"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"

	"engagebot/pkg/actionlog"
	"engagebot/pkg/config"
	"engagebot/pkg/engage"
	"engagebot/pkg/finder"
	"engagebot/pkg/logger"
	"engagebot/pkg/metrics"
	"engagebot/pkg/ratelimit"
)

// Session is the slice of the session manager the run loop needs.
type Session interface {
	IsValid() bool
	Refresh(ctx context.Context) error
}

// Options wires the bot's collaborators together.
type Options struct {
	Config  *config.Config
	Limiter *ratelimit.Limiter
	Session Session
	Finder  *finder.Finder
	Engine  *engage.Engine

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Metrics

	// Rand drives the between-cycle pause sampling. Defaults to a
	// time-seeded source.
	Rand *rand.Rand

	Logger logger.Logger
}

// Bot drives repeated engagement cycles until the context is cancelled or
// the configured cycle budget runs out.
type Bot struct {
	cfg     *config.Config
	limiter *ratelimit.Limiter
	session Session
	finder  *finder.Finder
	engine  *engage.Engine
	metrics *metrics.Metrics
	rng     *rand.Rand
	logger  logger.Logger
	cron    *cron.Cron

	cycles int
}

// New creates a bot from its collaborators.
func New(opts Options) *Bot {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return &Bot{
		cfg:     opts.Config,
		limiter: opts.Limiter,
		session: opts.Session,
		finder:  opts.Finder,
		engine:  opts.Engine,
		metrics: opts.Metrics,
		rng:     opts.Rand,
		logger:  opts.Logger,
	}
}

// Run executes engagement cycles until the context is cancelled. The action
// log is persisted by the limiter along the way, so cancelling mid-wait
// loses nothing.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot starting")

	if schedule := b.cfg.Runtime.BurstSchedule; schedule != "" {
		b.cron = cron.New()
		_, err := b.cron.AddFunc(schedule, func() {
			b.limiter.EnableBurst(b.cfg.Runtime.BurstDuration)
		})
		if err != nil {
			b.logger.WithError(err).Error("invalid burst schedule, ignoring")
			b.cron = nil
		} else {
			b.cron.Start()
			defer b.cron.Stop()
		}
	}

	statsTicker := time.NewTicker(b.cfg.Runtime.StatsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping")
			return ctx.Err()
		case <-statsTicker.C:
			b.logStatistics()
		default:
		}

		if err := b.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				b.logger.Info("bot stopping")
				return ctx.Err()
			}
			b.logger.WithError(err).Warn("cycle failed")
			if werr := b.limiter.WaitAfterError(ctx); werr != nil {
				return werr
			}
		}

		b.cycles++
		if b.cfg.Runtime.MaxCycles > 0 && b.cycles >= b.cfg.Runtime.MaxCycles {
			b.logger.InfoWithFields("cycle budget exhausted", map[string]interface{}{
				"cycles": b.cycles,
			})
			return nil
		}

		if b.metrics != nil {
			b.metrics.ObserveStatus(b.limiter.Status())
		}

		if err := b.pauseBetweenCycles(ctx); err != nil {
			return err
		}
	}
}

// cycle runs one discover-select-engage pass.
func (b *Bot) cycle(ctx context.Context) error {
	if !b.session.IsValid() {
		b.logger.Warn("session invalid, refreshing")
		if err := b.session.Refresh(ctx); err != nil {
			b.limiter.Record(actionlog.TypeEngagement, false, map[string]interface{}{
				"stage": "session_refresh",
			})
			return err
		}
	}

	if decision := b.limiter.CanPerform(actionlog.TypeSearch); !decision.Allowed {
		b.noteDenial(actionlog.TypeSearch, decision)
		return nil
	}
	if err := b.limiter.WaitBefore(ctx, actionlog.TypeSearch); err != nil {
		return err
	}

	tweets, err := b.finder.Find(ctx)
	b.record(actionlog.TypeSearch, err == nil, map[string]interface{}{
		"results": len(tweets),
	})
	if err != nil {
		return err
	}

	tweet := b.finder.SelectBest(tweets)
	if tweet == nil {
		b.logger.Debug("no suitable tweets this cycle")
		return nil
	}

	engaged := false
	for _, actionType := range b.engine.ChooseActions() {
		if decision := b.limiter.CanPerform(actionType); !decision.Allowed {
			b.noteDenial(actionType, decision)
			continue
		}
		if err := b.limiter.WaitBefore(ctx, actionType); err != nil {
			return err
		}

		performErr := b.engine.Perform(ctx, actionType, *tweet)
		b.record(actionType, performErr == nil, map[string]interface{}{
			"tweet_id": tweet.ID,
			"author":   tweet.Author,
		})
		if performErr != nil {
			if err := b.limiter.WaitAfterError(ctx); err != nil {
				return err
			}
			continue
		}
		engaged = true
	}

	if engaged {
		b.finder.MarkEngaged(tweet.ID)
	}
	return nil
}

// record logs the action through the limiter and the metrics in one place.
func (b *Bot) record(actionType actionlog.Type, success bool, metadata map[string]interface{}) {
	b.limiter.Record(actionType, success, metadata)
	if b.metrics != nil {
		b.metrics.RecordAction(actionType, success)
	}
}

func (b *Bot) noteDenial(actionType actionlog.Type, decision ratelimit.Decision) {
	b.logger.InfoWithFields("action denied", map[string]interface{}{
		"type":   string(actionType),
		"reason": decision.Reason,
	})
	if b.metrics != nil {
		b.metrics.RecordDenial(decision)
	}
}

// pauseBetweenCycles sleeps a uniform sample of the between-searches range.
func (b *Bot) pauseBetweenCycles(ctx context.Context) error {
	span := b.cfg.Behavior.Delays.BetweenSearches
	seconds := span.Min + b.rng.Float64()*(span.Max-span.Min)
	pause := time.Duration(seconds * float64(time.Second))

	b.logger.DebugWithFields("pausing between cycles", map[string]interface{}{
		"pause": pause,
	})

	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// logStatistics emits the limiter's session statistics.
func (b *Bot) logStatistics() {
	stats := b.limiter.Statistics()
	b.logger.InfoWithFields("session statistics", map[string]interface{}{
		"session_duration":  stats.SessionDuration,
		"total_actions":     stats.TotalActions,
		"actions_last_hour": stats.ActionsLastHour,
		"actions_last_day":  stats.ActionsLastDay,
		"success_rate":      stats.SuccessRate,
		"tweets_engaged":    b.finder.EngagedCount(),
	})
}

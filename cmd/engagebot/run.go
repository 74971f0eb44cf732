package main

import (
	"context"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"engagebot/pkg/actionlog"
	"engagebot/pkg/activity"
	"engagebot/pkg/bot"
	"engagebot/pkg/config"
	"engagebot/pkg/engage"
	"engagebot/pkg/finder"
	"engagebot/pkg/logger"
	"engagebot/pkg/metrics"
	"engagebot/pkg/ratelimit"
)

var (
	// Run command flags
	maxActionsPerHour int
	maxActionsPerDay  int
	actionsLogFile    string
	metricsAddr       string
	simulate          bool
	seed              int64
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engagement loop",
	Long: `Run the discover-select-engage loop under the pacing engine.

Each cycle checks the session, searches for candidate tweets, picks the best
one, and engages with it. Every action is gated by the rate limiter: quota
check first, a randomized human-like wait, then the action, then a record
that feeds future quota decisions. Failures escalate the post-error backoff
and five in a row put the bot into a 30-minute cooldown.

The browser driver is pluggable. The built-in simulation mode (--simulate)
exercises the full pacing engine against synthetic tweets without touching
the network.`,
	Example: `  # Simulate a full session, writing the action log to ./actions_log.json
  engagebot run --simulate

  # Tighter quotas and a Prometheus endpoint
  engagebot run --simulate --max-actions-per-hour 6 --metrics-addr :9191

  # Deterministic pacing for debugging
  engagebot run --simulate --seed 42 --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&maxActionsPerHour, "max-actions-per-hour", 0, "override hourly action cap")
	runCmd.Flags().IntVar(&maxActionsPerDay, "max-actions-per-day", 0, "override daily action cap")
	runCmd.Flags().StringVar(&actionsLogFile, "actions-log", "", "action log file path")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	runCmd.Flags().BoolVar(&simulate, "simulate", false, "use the built-in simulated browser")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "seed for the random source (0 = time-based)")
}

func runBot() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("engagebot starting")

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	model := activity.NewModel(rng, activity.Options{
		WeekendMode:      cfg.Runtime.WeekendMode,
		WeekendReduction: cfg.Runtime.WeekendReduction,
		QuietPeriods:     quietPeriods(cfg),
	})

	limiter := ratelimit.New(ratelimit.Options{
		Limits: cfg.RateLimits,
		Delays: cfg.Behavior.Delays,
		Model:  model,
		Store:  actionlog.NewStore(cfg.RateLimits.ActionsLogFile),
		Rand:   rng,
	})
	defer limiter.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			log.WithField("addr", cfg.Metrics.Addr).Info("metrics endpoint listening")
			if err := m.Serve(cfg.Metrics.Addr); err != nil {
				log.WithError(err).Error("metrics endpoint failed")
			}
		}()
	}

	var (
		source   finder.Source
		executor engage.Executor
		sess     bot.Session
	)
	if simulate {
		sim := newSimulator(rng)
		source = sim
		executor = sim
		sess = sim
	} else {
		// A real browser driver would be wired here; none ships with this
		// binary yet.
		return fmt.Errorf("no browser driver configured, use --simulate")
	}

	f := finder.New(source, cfg.Search, cfg.Twitter.Username, rng)
	engine := engage.New(executor, cfg.Behavior.ActionProbabilities, cfg.Behavior.ReplyTemplates, rng)

	b := bot.New(bot.Options{
		Config:  cfg,
		Limiter: limiter,
		Session: sess,
		Finder:  f,
		Engine:  engine,
		Metrics: m,
		Rand:    rng,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("engagebot stopped")
	return nil
}

// loadConfig assembles the flag overrides and loads the layered config.
func loadConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if maxActionsPerHour > 0 {
		flags["max-actions-per-hour"] = maxActionsPerHour
	}
	if maxActionsPerDay > 0 {
		flags["max-actions-per-day"] = maxActionsPerDay
	}
	if actionsLogFile != "" {
		flags["actions-log"] = actionsLogFile
	}
	if metricsAddr != "" {
		flags["metrics-addr"] = metricsAddr
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// quietPeriods converts the config hour ranges into the model's type.
func quietPeriods(cfg *config.Config) []activity.QuietPeriod {
	out := make([]activity.QuietPeriod, 0, len(cfg.Runtime.QuietPeriods))
	for _, q := range cfg.Runtime.QuietPeriods {
		out = append(out, activity.QuietPeriod{Start: q.Start, End: q.End})
	}
	return out
}

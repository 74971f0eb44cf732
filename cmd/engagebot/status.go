package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"engagebot/pkg/actionlog"
	"engagebot/pkg/activity"
	"engagebot/pkg/logger"
	"engagebot/pkg/ratelimit"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show quota usage from the persisted action log",
	Long: `Show current quota consumption and session statistics.

The command reads the persisted action log and evaluates it against the
configured limits as of now. It never writes to the log, so it is safe to
run alongside an active bot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func showStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Logging.Level = "error" // keep command output clean
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	model := activity.NewModel(rng, activity.Options{
		WeekendMode:      cfg.Runtime.WeekendMode,
		WeekendReduction: cfg.Runtime.WeekendReduction,
		QuietPeriods:     quietPeriods(cfg),
	})

	// The limiter only writes the log on Record and Close, neither of which
	// happens here, so loading through the real store is read-only.
	limiter := ratelimit.New(ratelimit.Options{
		Limits: cfg.RateLimits,
		Delays: cfg.Behavior.Delays,
		Model:  model,
		Store:  actionlog.NewStore(cfg.RateLimits.ActionsLogFile),
		Rand:   rng,
	})

	status := limiter.Status()
	stats := limiter.Statistics()

	if statusJSON {
		out := struct {
			Status     ratelimit.Status     `json:"status"`
			Statistics ratelimit.Statistics `json:"statistics"`
		}{status, stats}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "WINDOW\tUSED\tLIMIT\tREMAINING")
	printUsage(w, "actions/hour", status.HourlyActions)
	printUsage(w, "actions/day", status.DailyActions)
	printUsage(w, "likes/hour", status.HourlyLikes)
	printUsage(w, "replies/hour", status.HourlyReplies)
	printUsage(w, "retweets/hour", status.HourlyRetweets)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "activity multiplier\t%.2f\n", status.ActivityMultiplier)
	fmt.Fprintf(w, "quiet period\t%v\n", status.InQuietPeriod)
	fmt.Fprintf(w, "burst mode\t%v\n", status.BurstMode)
	fmt.Fprintf(w, "consecutive errors\t%d\n", status.ConsecutiveErrors)
	if status.LastErrorTime != nil {
		fmt.Fprintf(w, "last error\t%s\n", status.LastErrorTime.Format(time.RFC3339))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "total actions\t%d\n", stats.TotalActions)
	fmt.Fprintf(w, "last hour\t%d\n", stats.ActionsLastHour)
	fmt.Fprintf(w, "last 24h\t%d\n", stats.ActionsLastDay)
	fmt.Fprintf(w, "success rate\t%.1f%%\n", stats.SuccessRate)
	for _, t := range []actionlog.Type{actionlog.TypeLike, actionlog.TypeReply, actionlog.TypeRetweet, actionlog.TypeSearch} {
		if counts, ok := stats.ByType[t]; ok {
			fmt.Fprintf(w, "%s\t%d ok / %d failed\n", t, counts.Successful, counts.Failed)
		}
	}

	return w.Flush()
}

func printUsage(w *tabwriter.Writer, name string, u ratelimit.WindowUsage) {
	fmt.Fprintf(w, "%s\t%d\t%d\t%d (%.0f%%)\n", name, u.Used, u.Limit, u.Remaining, u.Percentage)
}

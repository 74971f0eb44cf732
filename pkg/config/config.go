package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the engagement bot
type Config struct {
	// Twitter account settings
	Twitter TwitterConfig `yaml:"twitter" json:"twitter"`

	// Rate limiting configuration
	RateLimits RateLimitsConfig `yaml:"rate_limits" json:"rate_limits"`

	// Behavior settings (delays, action probabilities, reply templates)
	Behavior BehaviorConfig `yaml:"behavior" json:"behavior"`

	// Tweet discovery settings
	Search SearchConfig `yaml:"search" json:"search"`

	// Runtime pacing settings
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`

	// Metrics endpoint settings
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TwitterConfig holds account and session settings
type TwitterConfig struct {
	Username     string        `yaml:"username" json:"username"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	CookieFile   string        `yaml:"cookie_file" json:"cookie_file"`
	CookieMaxAge time.Duration `yaml:"cookie_max_age" json:"cookie_max_age"`
}

// RateLimitsConfig holds the per-window action quotas
type RateLimitsConfig struct {
	MaxActionsPerHour  int    `yaml:"max_actions_per_hour" json:"max_actions_per_hour"`
	MaxActionsPerDay   int    `yaml:"max_actions_per_day" json:"max_actions_per_day"`
	MaxLikesPerHour    int    `yaml:"max_likes_per_hour" json:"max_likes_per_hour"`
	MaxRepliesPerHour  int    `yaml:"max_replies_per_hour" json:"max_replies_per_hour"`
	MaxRetweetsPerHour int    `yaml:"max_retweets_per_hour" json:"max_retweets_per_hour"`
	ActionsLogFile     string `yaml:"actions_log_file" json:"actions_log_file"`
}

// DelayRange is a (min, max) delay span in seconds, written in YAML as a
// two-element sequence, e.g. `between_actions: [60, 600]`.
type DelayRange struct {
	Min float64
	Max float64
}

// UnmarshalYAML decodes a two-element sequence into the range.
func (d *DelayRange) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("delay range must have exactly 2 elements, got %d", len(pair))
	}
	d.Min = pair[0]
	d.Max = pair[1]
	return nil
}

// MarshalYAML encodes the range back to a two-element sequence.
func (d DelayRange) MarshalYAML() (interface{}, error) {
	return []float64{d.Min, d.Max}, nil
}

// MinDuration returns the lower bound as a time.Duration.
func (d DelayRange) MinDuration() time.Duration {
	return time.Duration(d.Min * float64(time.Second))
}

// MaxDuration returns the upper bound as a time.Duration.
func (d DelayRange) MaxDuration() time.Duration {
	return time.Duration(d.Max * float64(time.Second))
}

// DelaysConfig holds the base delay ranges used by the pacing scheduler
type DelaysConfig struct {
	BetweenActions  DelayRange `yaml:"between_actions" json:"between_actions"`
	BetweenSearches DelayRange `yaml:"between_searches" json:"between_searches"`
	AfterError      DelayRange `yaml:"after_error" json:"after_error"`
}

// BehaviorConfig holds engagement behavior settings
type BehaviorConfig struct {
	Delays              DelaysConfig       `yaml:"delays" json:"delays"`
	ActionProbabilities map[string]float64 `yaml:"action_probabilities" json:"action_probabilities"`
	ReplyTemplates      []string           `yaml:"reply_templates" json:"reply_templates"`
}

// WeightedQuery is a search query with a selection weight
type WeightedQuery struct {
	Query  string  `yaml:"query" json:"query"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// SearchConfig holds tweet discovery criteria
type SearchConfig struct {
	Queries          []WeightedQuery `yaml:"queries" json:"queries"`
	MinLikes         int             `yaml:"min_likes" json:"min_likes"`
	MaxLikes         int             `yaml:"max_likes" json:"max_likes"`
	MaxReplies       int             `yaml:"max_replies" json:"max_replies"`
	TweetAgeLimit    time.Duration   `yaml:"tweet_age_limit" json:"tweet_age_limit"`
	BlockedKeywords  []string        `yaml:"blocked_keywords" json:"blocked_keywords"`
	ResultsPerSearch int             `yaml:"results_per_search" json:"results_per_search"`
}

// HourRange is an hour-of-day span, possibly wrapping past midnight,
// written in YAML as a two-element sequence, e.g. `[23, 6]`.
type HourRange struct {
	Start int
	End   int
}

// UnmarshalYAML decodes a two-element sequence into the range.
func (h *HourRange) UnmarshalYAML(value *yaml.Node) error {
	var pair []int
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("hour range must have exactly 2 elements, got %d", len(pair))
	}
	h.Start = pair[0]
	h.End = pair[1]
	return nil
}

// MarshalYAML encodes the range back to a two-element sequence.
func (h HourRange) MarshalYAML() (interface{}, error) {
	return []int{h.Start, h.End}, nil
}

// RuntimeConfig holds pacing and activity-pattern settings
type RuntimeConfig struct {
	WeekendMode      bool          `yaml:"weekend_mode" json:"weekend_mode"`
	WeekendReduction float64       `yaml:"weekend_reduction" json:"weekend_reduction"`
	QuietPeriods     []HourRange   `yaml:"quiet_periods" json:"quiet_periods"`
	BurstSchedule    string        `yaml:"burst_schedule" json:"burst_schedule"`
	BurstDuration    time.Duration `yaml:"burst_duration" json:"burst_duration"`
	MaxCycles        int           `yaml:"max_cycles" json:"max_cycles"`
	StatsInterval    time.Duration `yaml:"stats_interval" json:"stats_interval"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with conservative defaults
func DefaultConfig() *Config {
	return &Config{
		Twitter: TwitterConfig{
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			CookieFile:   "twitter_cookies.json",
			CookieMaxAge: time.Hour,
		},
		RateLimits: RateLimitsConfig{
			MaxActionsPerHour:  12,
			MaxActionsPerDay:   100,
			MaxLikesPerHour:    8,
			MaxRepliesPerHour:  3,
			MaxRetweetsPerHour: 2,
			ActionsLogFile:     "actions_log.json",
		},
		Behavior: BehaviorConfig{
			Delays: DelaysConfig{
				BetweenActions:  DelayRange{Min: 60, Max: 600},
				BetweenSearches: DelayRange{Min: 300, Max: 900},
				AfterError:      DelayRange{Min: 900, Max: 1800},
			},
			ActionProbabilities: map[string]float64{
				"like":    0.8,
				"reply":   0.2,
				"retweet": 0.1,
			},
			ReplyTemplates: []string{
				"Great insights!",
				"Thanks for sharing!",
				"Really useful information!",
				"Interesting perspective!",
				"Well explained!",
			},
		},
		Search: SearchConfig{
			Queries: []WeightedQuery{
				{Query: "golang", Weight: 3},
				{Query: "web development", Weight: 2},
				{Query: "machine learning", Weight: 2},
			},
			MinLikes:         5,
			MaxLikes:         5000,
			MaxReplies:       50,
			TweetAgeLimit:    12 * time.Hour,
			ResultsPerSearch: 10,
		},
		Runtime: RuntimeConfig{
			WeekendMode:      true,
			WeekendReduction: 0.5,
			QuietPeriods: []HourRange{
				{Start: 23, End: 6},
				{Start: 12, End: 13},
			},
			BurstDuration: 30 * time.Minute,
			StatsInterval: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9191",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if username := os.Getenv("ENGAGEBOT_USERNAME"); username != "" {
		c.Twitter.Username = username
	}
	if userAgent := os.Getenv("ENGAGEBOT_USER_AGENT"); userAgent != "" {
		c.Twitter.UserAgent = userAgent
	}
	if cookieFile := os.Getenv("ENGAGEBOT_COOKIE_FILE"); cookieFile != "" {
		c.Twitter.CookieFile = cookieFile
	}
	if logFile := os.Getenv("ENGAGEBOT_ACTIONS_LOG"); logFile != "" {
		c.RateLimits.ActionsLogFile = logFile
	}
	if perHour := os.Getenv("ENGAGEBOT_MAX_ACTIONS_PER_HOUR"); perHour != "" {
		if val, err := strconv.Atoi(perHour); err == nil && val > 0 {
			c.RateLimits.MaxActionsPerHour = val
		}
	}
	if perDay := os.Getenv("ENGAGEBOT_MAX_ACTIONS_PER_DAY"); perDay != "" {
		if val, err := strconv.Atoi(perDay); err == nil && val > 0 {
			c.RateLimits.MaxActionsPerDay = val
		}
	}
	if weekend := os.Getenv("ENGAGEBOT_WEEKEND_MODE"); weekend != "" {
		c.Runtime.WeekendMode = strings.ToLower(weekend) == "true"
	}
	if metricsAddr := os.Getenv("ENGAGEBOT_METRICS_ADDR"); metricsAddr != "" {
		c.Metrics.Enabled = true
		c.Metrics.Addr = metricsAddr
	}
	if logLevel := os.Getenv("ENGAGEBOT_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".engagebot.yaml",
		".engagebot.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "engagebot", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "engagebot", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".engagebot.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Validate rate limits
	if c.RateLimits.MaxActionsPerHour <= 0 {
		errs = append(errs, errors.New("max actions per hour must be positive"))
	}
	if c.RateLimits.MaxActionsPerDay <= 0 {
		errs = append(errs, errors.New("max actions per day must be positive"))
	}
	if c.RateLimits.MaxLikesPerHour <= 0 {
		errs = append(errs, errors.New("max likes per hour must be positive"))
	}
	if c.RateLimits.MaxRepliesPerHour <= 0 {
		errs = append(errs, errors.New("max replies per hour must be positive"))
	}
	if c.RateLimits.MaxRetweetsPerHour <= 0 {
		errs = append(errs, errors.New("max retweets per hour must be positive"))
	}
	if c.RateLimits.ActionsLogFile == "" {
		errs = append(errs, errors.New("actions log file is required"))
	}

	// Validate delay ranges
	for name, r := range map[string]DelayRange{
		"between_actions":  c.Behavior.Delays.BetweenActions,
		"between_searches": c.Behavior.Delays.BetweenSearches,
		"after_error":      c.Behavior.Delays.AfterError,
	} {
		if r.Min <= 0 || r.Max <= 0 {
			errs = append(errs, fmt.Errorf("%s delay bounds must be positive", name))
		}
		if r.Min > r.Max {
			errs = append(errs, fmt.Errorf("%s delay min must not exceed max", name))
		}
	}

	// Validate action probabilities
	for action, prob := range c.Behavior.ActionProbabilities {
		if prob < 0 || prob > 1 {
			errs = append(errs, fmt.Errorf("action probability for %q must be in [0, 1]", action))
		}
	}

	// Validate runtime settings
	if c.Runtime.WeekendReduction <= 0 || c.Runtime.WeekendReduction > 1 {
		errs = append(errs, errors.New("weekend reduction must be in (0, 1]"))
	}
	for _, q := range c.Runtime.QuietPeriods {
		if q.Start < 0 || q.Start > 23 || q.End < 0 || q.End > 23 {
			errs = append(errs, fmt.Errorf("quiet period hours must be in [0, 23], got (%d, %d)", q.Start, q.End))
		}
	}
	if c.Runtime.BurstDuration < 0 {
		errs = append(errs, errors.New("burst duration cannot be negative"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	// Validate metrics
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics address is required when metrics are enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if username, ok := flags["username"].(string); ok && username != "" {
		c.Twitter.Username = username
	}
	if logFile, ok := flags["actions-log"].(string); ok && logFile != "" {
		c.RateLimits.ActionsLogFile = logFile
	}
	if perHour, ok := flags["max-actions-per-hour"].(int); ok && perHour > 0 {
		c.RateLimits.MaxActionsPerHour = perHour
	}
	if perDay, ok := flags["max-actions-per-day"].(int); ok && perDay > 0 {
		c.RateLimits.MaxActionsPerDay = perDay
	}
	if metricsAddr, ok := flags["metrics-addr"].(string); ok && metricsAddr != "" {
		c.Metrics.Enabled = true
		c.Metrics.Addr = metricsAddr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".engagebot.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

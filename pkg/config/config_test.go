package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.RateLimits.MaxActionsPerHour != 12 {
		t.Errorf("Expected default max actions per hour to be 12, got %d", config.RateLimits.MaxActionsPerHour)
	}
	if config.RateLimits.MaxActionsPerDay != 100 {
		t.Errorf("Expected default max actions per day to be 100, got %d", config.RateLimits.MaxActionsPerDay)
	}
	if config.RateLimits.ActionsLogFile != "actions_log.json" {
		t.Errorf("Expected default actions log file, got %s", config.RateLimits.ActionsLogFile)
	}
	if config.Behavior.Delays.BetweenActions.Min != 60 || config.Behavior.Delays.BetweenActions.Max != 600 {
		t.Errorf("Unexpected default between_actions range: %+v", config.Behavior.Delays.BetweenActions)
	}
	if config.Runtime.WeekendReduction != 0.5 {
		t.Errorf("Expected default weekend reduction 0.5, got %f", config.Runtime.WeekendReduction)
	}
	if len(config.Runtime.QuietPeriods) != 2 {
		t.Errorf("Expected 2 default quiet periods, got %d", len(config.Runtime.QuietPeriods))
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("ENGAGEBOT_USERNAME", "test_account")
	os.Setenv("ENGAGEBOT_MAX_ACTIONS_PER_HOUR", "6")
	os.Setenv("ENGAGEBOT_MAX_ACTIONS_PER_DAY", "40")
	os.Setenv("ENGAGEBOT_ACTIONS_LOG", "/tmp/test-actions.json")
	os.Setenv("ENGAGEBOT_WEEKEND_MODE", "false")
	os.Setenv("ENGAGEBOT_METRICS_ADDR", ":9999")
	os.Setenv("ENGAGEBOT_LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("ENGAGEBOT_USERNAME")
		os.Unsetenv("ENGAGEBOT_MAX_ACTIONS_PER_HOUR")
		os.Unsetenv("ENGAGEBOT_MAX_ACTIONS_PER_DAY")
		os.Unsetenv("ENGAGEBOT_ACTIONS_LOG")
		os.Unsetenv("ENGAGEBOT_WEEKEND_MODE")
		os.Unsetenv("ENGAGEBOT_METRICS_ADDR")
		os.Unsetenv("ENGAGEBOT_LOG_LEVEL")
	}()

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if config.Twitter.Username != "test_account" {
		t.Errorf("Username = %s", config.Twitter.Username)
	}
	if config.RateLimits.MaxActionsPerHour != 6 {
		t.Errorf("MaxActionsPerHour = %d, want 6", config.RateLimits.MaxActionsPerHour)
	}
	if config.RateLimits.MaxActionsPerDay != 40 {
		t.Errorf("MaxActionsPerDay = %d, want 40", config.RateLimits.MaxActionsPerDay)
	}
	if config.RateLimits.ActionsLogFile != "/tmp/test-actions.json" {
		t.Errorf("ActionsLogFile = %s", config.RateLimits.ActionsLogFile)
	}
	if config.Runtime.WeekendMode {
		t.Error("WeekendMode should be disabled")
	}
	if !config.Metrics.Enabled || config.Metrics.Addr != ":9999" {
		t.Errorf("Metrics = %+v", config.Metrics)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s", config.Logging.Level)
	}
}

func TestInvalidEnvValuesIgnored(t *testing.T) {
	os.Setenv("ENGAGEBOT_MAX_ACTIONS_PER_HOUR", "not-a-number")
	defer os.Unsetenv("ENGAGEBOT_MAX_ACTIONS_PER_HOUR")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if config.RateLimits.MaxActionsPerHour != 12 {
		t.Errorf("invalid env value applied: %d", config.RateLimits.MaxActionsPerHour)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
twitter:
  username: filebot
rate_limits:
  max_actions_per_hour: 5
  max_likes_per_hour: 4
behavior:
  delays:
    between_actions: [30, 120]
runtime:
  quiet_periods:
    - [22, 5]
  burst_schedule: "0 18 * * *"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if config.Twitter.Username != "filebot" {
		t.Errorf("Username = %s", config.Twitter.Username)
	}
	if config.RateLimits.MaxActionsPerHour != 5 {
		t.Errorf("MaxActionsPerHour = %d, want 5", config.RateLimits.MaxActionsPerHour)
	}
	if config.RateLimits.MaxLikesPerHour != 4 {
		t.Errorf("MaxLikesPerHour = %d, want 4", config.RateLimits.MaxLikesPerHour)
	}
	if config.Behavior.Delays.BetweenActions.Min != 30 || config.Behavior.Delays.BetweenActions.Max != 120 {
		t.Errorf("BetweenActions = %+v", config.Behavior.Delays.BetweenActions)
	}
	if len(config.Runtime.QuietPeriods) != 1 || config.Runtime.QuietPeriods[0] != (HourRange{22, 5}) {
		t.Errorf("QuietPeriods = %+v", config.Runtime.QuietPeriods)
	}
	if config.Runtime.BurstSchedule != "0 18 * * *" {
		t.Errorf("BurstSchedule = %s", config.Runtime.BurstSchedule)
	}

	// File values that were not set keep their defaults.
	if config.RateLimits.MaxActionsPerDay != 100 {
		t.Errorf("MaxActionsPerDay = %d, want default 100", config.RateLimits.MaxActionsPerDay)
	}
}

func TestLoadFromFileMissingIsNotAnError(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(""); err != nil {
		t.Errorf("LoadFromFile(\"\") error = %v", err)
	}
}

func TestDelayRangeYAMLErrors(t *testing.T) {
	config := DefaultConfig()

	bad := `
behavior:
  delays:
    between_actions: [30]
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if err := config.LoadFromFile(path); err == nil {
		t.Error("expected error for one-element delay range")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"zero hourly cap", func(c *Config) { c.RateLimits.MaxActionsPerHour = 0 }, true},
		{"zero daily cap", func(c *Config) { c.RateLimits.MaxActionsPerDay = 0 }, true},
		{"missing log file", func(c *Config) { c.RateLimits.ActionsLogFile = "" }, true},
		{"inverted delay range", func(c *Config) {
			c.Behavior.Delays.BetweenActions = DelayRange{Min: 100, Max: 10}
		}, true},
		{"negative delay", func(c *Config) {
			c.Behavior.Delays.AfterError = DelayRange{Min: -1, Max: 10}
		}, true},
		{"probability above one", func(c *Config) {
			c.Behavior.ActionProbabilities["like"] = 1.5
		}, true},
		{"weekend reduction above one", func(c *Config) { c.Runtime.WeekendReduction = 1.2 }, true},
		{"quiet period hour out of range", func(c *Config) {
			c.Runtime.QuietPeriods = []HourRange{{Start: 25, End: 3}}
		}, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"metrics enabled without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"username":             "flagbot",
		"actions-log":          "flag.json",
		"max-actions-per-hour": 7,
		"metrics-addr":         ":8080",
		"log-level":            "warn",
	})

	if config.Twitter.Username != "flagbot" {
		t.Errorf("Username = %s", config.Twitter.Username)
	}
	if config.RateLimits.ActionsLogFile != "flag.json" {
		t.Errorf("ActionsLogFile = %s", config.RateLimits.ActionsLogFile)
	}
	if config.RateLimits.MaxActionsPerHour != 7 {
		t.Errorf("MaxActionsPerHour = %d", config.RateLimits.MaxActionsPerHour)
	}
	if !config.Metrics.Enabled || config.Metrics.Addr != ":8080" {
		t.Errorf("Metrics = %+v", config.Metrics)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s", config.Logging.Level)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	original := DefaultConfig()
	original.Twitter.Username = "saved"
	original.Runtime.QuietPeriods = []HourRange{{Start: 21, End: 7}}
	if err := original.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Twitter.Username != "saved" {
		t.Errorf("Username = %s", loaded.Twitter.Username)
	}
	if len(loaded.Runtime.QuietPeriods) != 1 || loaded.Runtime.QuietPeriods[0] != (HourRange{21, 7}) {
		t.Errorf("QuietPeriods = %+v", loaded.Runtime.QuietPeriods)
	}
}

func TestLoadPrecedence(t *testing.T) {
	content := `
rate_limits:
  max_actions_per_hour: 5
  max_actions_per_day: 50
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("ENGAGEBOT_MAX_ACTIONS_PER_DAY", "60")
	defer os.Unsetenv("ENGAGEBOT_MAX_ACTIONS_PER_DAY")

	config, err := Load(path, map[string]interface{}{"max-actions-per-hour": 3})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Flag beats file, env beats file, untouched values come from the file.
	if config.RateLimits.MaxActionsPerHour != 3 {
		t.Errorf("MaxActionsPerHour = %d, want 3 (flag)", config.RateLimits.MaxActionsPerHour)
	}
	if config.RateLimits.MaxActionsPerDay != 60 {
		t.Errorf("MaxActionsPerDay = %d, want 60 (env)", config.RateLimits.MaxActionsPerDay)
	}
}

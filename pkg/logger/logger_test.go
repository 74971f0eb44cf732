package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"engagebot/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "warning alias",
			cfg:     &config.LoggingConfig{Level: "warning"},
			wantErr: false,
		},
		{
			name:    "invalid level",
			cfg:     &config.LoggingConfig{Level: "verbose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger without error")
			}
		})
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")

	l, err := New(&config.LoggingConfig{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.WithField("tweet_id", "123").Info("liked tweet")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "liked tweet") {
		t.Errorf("log file missing message, got: %s", data)
	}
	if !strings.Contains(string(data), "123") {
		t.Errorf("log file missing field, got: %s", data)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "disabled", "DEBUG", "Info"} {
		if _, err := parseLogLevel(level); err != nil {
			t.Errorf("parseLogLevel(%q) unexpected error: %v", level, err)
		}
	}
	if _, err := parseLogLevel("trace"); err == nil {
		t.Error("parseLogLevel(\"trace\") expected error")
	}
}

func TestTestLoggerCapture(t *testing.T) {
	tl := NewTestLogger()

	tl.Info("plain message")
	tl.WithField("count", 3).Warn("with field")
	tl.ErrorWithFields("with fields", map[string]interface{}{"reason": "quota"})

	msgs := tl.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 captured messages, got %d", len(msgs))
	}
	if !tl.HasMessage("plain message") {
		t.Error("missing plain message")
	}
	if got := tl.MessagesByLevel("WARN"); len(got) != 1 || got[0].Fields["count"] != 3 {
		t.Errorf("WARN capture wrong: %+v", got)
	}
	if got := tl.MessagesByLevel("ERROR"); len(got) != 1 || got[0].Fields["reason"] != "quota" {
		t.Errorf("ERROR capture wrong: %+v", got)
	}

	tl.Clear()
	if len(tl.Messages()) != 0 {
		t.Error("Clear() left messages behind")
	}
}

// Package logger provides structured logging for the engagement bot.
//
// It wraps zerolog behind a small interface so components can log with
// fields while tests swap in the in-memory TestLogger. Console output is
// pretty-printed; when a log file is configured, events are written to both.
//
// Basic usage:
//
//	cfg := &config.LoggingConfig{Level: "info"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//
//	logger.Info("bot started")
//	logger.WithField("tweet_id", id).Info("liked tweet")
//	logger.WithError(err).Error("search failed")
//
// Components should take a Logger value rather than calling the package
// functions, so their output can be captured or silenced in tests.
package logger

package ratelimit

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"engagebot/pkg/actionlog"
)

func TestStatus(t *testing.T) {
	l, clock := newTestLimiter(t, nil)

	l.Record(actionlog.TypeLike, true, nil)
	l.Record(actionlog.TypeLike, true, nil)
	l.Record(actionlog.TypeReply, false, nil)
	clock.Advance(time.Minute)

	status := l.Status()

	if status.HourlyActions.Used != 3 {
		t.Errorf("HourlyActions.Used = %d, want 3", status.HourlyActions.Used)
	}
	if status.HourlyActions.Limit != 12 || status.HourlyActions.Remaining != 9 {
		t.Errorf("HourlyActions = %+v", status.HourlyActions)
	}
	if status.HourlyLikes.Used != 2 {
		t.Errorf("HourlyLikes.Used = %d, want 2", status.HourlyLikes.Used)
	}
	if status.HourlyReplies.Used != 1 {
		t.Errorf("HourlyReplies.Used = %d, want 1", status.HourlyReplies.Used)
	}
	if status.HourlyRetweets.Used != 0 {
		t.Errorf("HourlyRetweets.Used = %d, want 0", status.HourlyRetweets.Used)
	}
	if status.ConsecutiveErrors != 1 {
		t.Errorf("ConsecutiveErrors = %d, want 1", status.ConsecutiveErrors)
	}
	if status.InQuietPeriod {
		t.Error("mid-morning flagged as quiet period")
	}
	if status.BurstMode {
		t.Error("burst mode reported without EnableBurst")
	}
	if status.ActivityMultiplier <= 0 {
		t.Errorf("ActivityMultiplier = %.3f, want positive", status.ActivityMultiplier)
	}
}

func TestStatusLastErrorTime(t *testing.T) {
	l, clock := newTestLimiter(t, nil)

	data, err := json.Marshal(l.Status())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "last_error_time") {
		t.Errorf("error-free status serialized a last error time: %s", data)
	}

	l.Record(actionlog.TypeLike, false, nil)
	status := l.Status()
	if status.LastErrorTime == nil {
		t.Fatal("LastErrorTime is nil after a failure")
	}
	if !status.LastErrorTime.Equal(clock.Now()) {
		t.Errorf("LastErrorTime = %v, want %v", status.LastErrorTime, clock.Now())
	}
}

func TestWindowUsagePercentage(t *testing.T) {
	u := usage(3, 12)
	if u.Percentage != 25 {
		t.Errorf("Percentage = %.1f, want 25", u.Percentage)
	}

	// Remaining never goes negative even if the window is overfull.
	u = usage(15, 12)
	if u.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", u.Remaining)
	}

	u = usage(1, 0)
	if u.Percentage != 0 {
		t.Errorf("Percentage with zero limit = %.1f, want 0", u.Percentage)
	}
}

func TestStatistics(t *testing.T) {
	l, clock := newTestLimiter(t, nil)

	l.Record(actionlog.TypeLike, true, nil)
	l.Record(actionlog.TypeLike, false, nil)
	l.Record(actionlog.TypeReply, true, nil)
	l.Record(actionlog.TypeSearch, true, nil)

	clock.Advance(2 * time.Hour)
	l.Record(actionlog.TypeRetweet, true, nil)

	stats := l.Statistics()

	if stats.TotalActions != 5 {
		t.Errorf("TotalActions = %d, want 5", stats.TotalActions)
	}
	if stats.ActionsLastHour != 1 {
		t.Errorf("ActionsLastHour = %d, want 1", stats.ActionsLastHour)
	}
	if stats.ActionsLastDay != 5 {
		t.Errorf("ActionsLastDay = %d, want 5", stats.ActionsLastDay)
	}
	if stats.SuccessRate != 80 {
		t.Errorf("SuccessRate = %.1f, want 80", stats.SuccessRate)
	}
	if stats.SessionDuration != 2*time.Hour {
		t.Errorf("SessionDuration = %v, want 2h", stats.SessionDuration)
	}
	if stats.AverageActionsPerHour != 2.5 {
		t.Errorf("AverageActionsPerHour = %.2f, want 2.5", stats.AverageActionsPerHour)
	}

	likes := stats.ByType[actionlog.TypeLike]
	if likes.Total != 2 || likes.Successful != 1 || likes.Failed != 1 {
		t.Errorf("like counts = %+v", likes)
	}
}

func TestStatisticsEmpty(t *testing.T) {
	l, _ := newTestLimiter(t, nil)

	stats := l.Statistics()
	if stats.TotalActions != 0 || stats.SuccessRate != 0 {
		t.Errorf("empty statistics = %+v", stats)
	}
}

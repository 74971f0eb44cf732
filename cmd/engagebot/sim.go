package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	errs "engagebot/pkg/errors"
	"engagebot/pkg/finder"
)

// simFailureProbability is the chance a simulated action fails, which is
// enough to exercise the error backoff and cooldown paths over a long run.
const simFailureProbability = 0.05

var simAuthors = []string{
	"gopher_dev", "code_wanderer", "ml_enthusiast", "webdev_daily",
	"cloud_native_fan", "systems_nerd", "backend_builder",
}

var simTexts = []string{
	"Just shipped a new release, the performance gains are wild",
	"Hot take: simplicity beats cleverness every single time",
	"Spent the whole day debugging a one-line fix",
	"Here's a thread on what I learned building this from scratch",
	"Does anyone else feel like tooling churn is out of control?",
}

// simulator is an in-process stand-in for the browser collaborators. It
// implements finder.Source, engage.Executor, and bot.Session, so a full run
// can exercise the pacing engine without a network or a driver.
type simulator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	nextID int
}

func newSimulator(rng *rand.Rand) *simulator {
	return &simulator{rng: rng}
}

// Search fabricates plausible tweets for the given query. Engagement counts
// are skewed low so most results pass the suitability filter.
func (s *simulator) Search(ctx context.Context, query string, count int) ([]finder.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tweets := make([]finder.Tweet, 0, count)
	for i := 0; i < count; i++ {
		s.nextID++
		id := fmt.Sprintf("sim-%d", s.nextID)
		tweets = append(tweets, finder.Tweet{
			ID:       id,
			URL:      "https://twitter.com/i/status/" + id,
			Author:   simAuthors[s.rng.Intn(len(simAuthors))],
			Text:     simTexts[s.rng.Intn(len(simTexts))] + " #" + query,
			Likes:    5 + s.rng.Intn(200),
			Replies:  s.rng.Intn(20),
			Retweets: s.rng.Intn(50),
			PostedAt: time.Now().Add(-time.Duration(s.rng.Intn(600)) * time.Minute),
			IsReply:  s.rng.Float64() < 0.1,
		})
	}
	return tweets, nil
}

func (s *simulator) Like(ctx context.Context, tweet finder.Tweet) error {
	return s.act(ctx, "like", tweet.ID)
}

func (s *simulator) Reply(ctx context.Context, tweet finder.Tweet, text string) error {
	return s.act(ctx, "reply", tweet.ID)
}

func (s *simulator) Retweet(ctx context.Context, tweet finder.Tweet) error {
	return s.act(ctx, "retweet", tweet.ID)
}

func (s *simulator) act(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	failed := s.rng.Float64() < simFailureProbability
	s.mu.Unlock()

	if failed {
		return errs.New(errs.ErrorTypeElementNotFound,
			fmt.Sprintf("simulated %s failure on %s", name, id))
	}
	return nil
}

// IsValid always reports a live session; the simulator has nothing to expire.
func (s *simulator) IsValid() bool { return true }

func (s *simulator) Refresh(ctx context.Context) error { return nil }

// Package finder selects candidate tweets worth engaging with. The actual
// page scraping lives behind the Source interface; this package owns query
// selection, suitability filtering, and candidate scoring. The rate limiter
// never sees any of this content.
package finder

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"engagebot/pkg/config"
	"engagebot/pkg/logger"
)

// Tweet is a candidate post surfaced by the discovery source.
type Tweet struct {
	ID       string
	URL      string
	Author   string
	Text     string
	Likes    int
	Replies  int
	Retweets int
	PostedAt time.Time
	IsReply  bool
}

// Source supplies raw search results. Implemented by the browser collaborator.
type Source interface {
	Search(ctx context.Context, query string, count int) ([]Tweet, error)
}

// Finder filters and ranks candidates against the configured criteria,
// remembering which tweets have already been engaged with this session.
type Finder struct {
	source Source
	cfg    config.SearchConfig
	self   string
	rng    *rand.Rand
	logger logger.Logger

	mu      sync.Mutex
	engaged map[string]bool
}

// New creates a finder. self is the bot's own username, used to skip its own
// posts; rng drives weighted query selection.
func New(source Source, cfg config.SearchConfig, self string, rng *rand.Rand) *Finder {
	return &Finder{
		source:  source,
		cfg:     cfg,
		self:    strings.ToLower(self),
		rng:     rng,
		logger:  logger.GetLogger(),
		engaged: make(map[string]bool),
	}
}

// PickQuery selects a search query at random, weighted by the configured
// per-query weights.
func (f *Finder) PickQuery() string {
	if len(f.cfg.Queries) == 0 {
		return ""
	}

	var total float64
	for _, q := range f.cfg.Queries {
		if q.Weight > 0 {
			total += q.Weight
		}
	}
	if total <= 0 {
		return f.cfg.Queries[0].Query
	}

	f.mu.Lock()
	target := f.rng.Float64() * total
	f.mu.Unlock()

	for _, q := range f.cfg.Queries {
		if q.Weight <= 0 {
			continue
		}
		target -= q.Weight
		if target <= 0 {
			return q.Query
		}
	}
	return f.cfg.Queries[len(f.cfg.Queries)-1].Query
}

// Find searches with a weighted-random query and returns the suitable subset
// of the results.
func (f *Finder) Find(ctx context.Context) ([]Tweet, error) {
	query := f.PickQuery()
	if query == "" {
		return nil, nil
	}

	results, err := f.source.Search(ctx, query, f.cfg.ResultsPerSearch)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	suitable := make([]Tweet, 0, len(results))
	for _, tweet := range results {
		if ok, reason := f.Suitable(tweet, now); ok {
			suitable = append(suitable, tweet)
		} else {
			f.logger.DebugWithFields("skipping tweet", map[string]interface{}{
				"id":     tweet.ID,
				"reason": reason,
			})
		}
	}

	f.logger.InfoWithFields("tweet search complete", map[string]interface{}{
		"query":    query,
		"found":    len(results),
		"suitable": len(suitable),
	})

	return suitable, nil
}

// Suitable applies the engagement criteria: like and reply thresholds, an
// age limit, blocked keywords, the bot's own posts, and anything already
// engaged with this session. Returns the reason when unsuitable.
func (f *Finder) Suitable(tweet Tweet, now time.Time) (bool, string) {
	if tweet.ID == "" {
		return false, "missing id"
	}

	f.mu.Lock()
	seen := f.engaged[tweet.ID]
	f.mu.Unlock()
	if seen {
		return false, "already engaged"
	}

	if strings.EqualFold(tweet.Author, f.self) {
		return false, "own tweet"
	}
	if tweet.Likes < f.cfg.MinLikes {
		return false, "too few likes"
	}
	if f.cfg.MaxLikes > 0 && tweet.Likes > f.cfg.MaxLikes {
		return false, "too popular"
	}
	if f.cfg.MaxReplies > 0 && tweet.Replies > f.cfg.MaxReplies {
		return false, "too many replies"
	}
	if f.cfg.TweetAgeLimit > 0 && !tweet.PostedAt.IsZero() && now.Sub(tweet.PostedAt) > f.cfg.TweetAgeLimit {
		return false, "too old"
	}

	text := strings.ToLower(tweet.Text)
	for _, keyword := range f.cfg.BlockedKeywords {
		if keyword != "" && strings.Contains(text, strings.ToLower(keyword)) {
			return false, "blocked keyword"
		}
	}

	return true, ""
}

// SelectBest ranks the candidates and returns the highest scoring one, or
// nil when the slice is empty.
func (f *Finder) SelectBest(tweets []Tweet) *Tweet {
	if len(tweets) == 0 {
		return nil
	}

	best := 0
	bestScore := f.score(tweets[0])
	for i := 1; i < len(tweets); i++ {
		if s := f.score(tweets[i]); s > bestScore {
			best = i
			bestScore = s
		}
	}
	return &tweets[best]
}

// score favors moderately popular, recent tweets with an active but not
// saturated conversation.
func (f *Finder) score(tweet Tweet) float64 {
	score := float64(tweet.Likes)

	// A crowded reply thread means the bot's engagement gets lost.
	score -= float64(tweet.Replies) * 2

	// Retweets signal reach without crowding the conversation.
	score += float64(tweet.Retweets) * 0.5

	// Fresher tweets are more likely to still be in feeds.
	if !tweet.PostedAt.IsZero() {
		ageHours := time.Since(tweet.PostedAt).Hours()
		score -= ageHours * 3
	}

	return score
}

// MarkEngaged records that the tweet has been acted on this session so it is
// never selected twice.
func (f *Finder) MarkEngaged(id string) {
	f.mu.Lock()
	f.engaged[id] = true
	f.mu.Unlock()
}

// EngagedCount returns how many distinct tweets were engaged this session.
func (f *Finder) EngagedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engaged)
}

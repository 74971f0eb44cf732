// Package engage turns a selected tweet into concrete actions: it rolls the
// configured probabilities to decide what to do, picks reply text, and
// dispatches to the browser-side Executor.
package engage

import (
	"context"
	"math/rand"
	"sync"

	"engagebot/pkg/actionlog"
	errs "engagebot/pkg/errors"
	"engagebot/pkg/finder"
	"engagebot/pkg/logger"
)

// Executor performs the actual click/type sequences in the browser.
// Implementations are external collaborators; the engine never inspects the
// page itself.
type Executor interface {
	Like(ctx context.Context, tweet finder.Tweet) error
	Reply(ctx context.Context, tweet finder.Tweet, text string) error
	Retweet(ctx context.Context, tweet finder.Tweet) error
}

// Stats tracks per-type outcomes for the session.
type Stats struct {
	Attempted  map[actionlog.Type]int
	Successful map[actionlog.Type]int
	Failed     map[actionlog.Type]int
}

// Engine decides which actions to take on a tweet and executes them.
type Engine struct {
	executor      Executor
	probabilities map[string]float64
	templates     []string
	logger        logger.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	stats Stats
}

// New creates an engine. probabilities maps action names (like, reply,
// retweet) to their independent selection chances; templates is the reply
// text pool.
func New(executor Executor, probabilities map[string]float64, templates []string, rng *rand.Rand) *Engine {
	return &Engine{
		executor:      executor,
		probabilities: probabilities,
		templates:     templates,
		rng:           rng,
		logger:        logger.GetLogger(),
		stats: Stats{
			Attempted:  make(map[actionlog.Type]int),
			Successful: make(map[actionlog.Type]int),
			Failed:     make(map[actionlog.Type]int),
		},
	}
}

// engageOrder fixes the roll order so behavior is reproducible under a
// seeded random source.
var engageOrder = []actionlog.Type{actionlog.TypeLike, actionlog.TypeReply, actionlog.TypeRetweet}

// ChooseActions rolls each action's probability independently and returns
// the ones selected, in execution order. An empty result means the tweet is
// skipped this round.
func (e *Engine) ChooseActions() []actionlog.Type {
	e.mu.Lock()
	defer e.mu.Unlock()

	var chosen []actionlog.Type
	for _, actionType := range engageOrder {
		if e.rng.Float64() < e.probabilities[string(actionType)] {
			chosen = append(chosen, actionType)
		}
	}
	return chosen
}

// PickReply returns a random template, or an empty string when none are
// configured.
func (e *Engine) PickReply() string {
	if len(e.templates) == 0 {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.templates[e.rng.Intn(len(e.templates))]
}

// Perform executes one action against the tweet and updates the stats.
func (e *Engine) Perform(ctx context.Context, actionType actionlog.Type, tweet finder.Tweet) error {
	e.mu.Lock()
	e.stats.Attempted[actionType]++
	e.mu.Unlock()

	var err error
	switch actionType {
	case actionlog.TypeLike:
		err = e.executor.Like(ctx, tweet)
	case actionlog.TypeReply:
		text := e.PickReply()
		if text == "" {
			err = errs.New(errs.ErrorTypeUnknown, "no reply templates configured")
		} else {
			err = e.executor.Reply(ctx, tweet, text)
		}
	case actionlog.TypeRetweet:
		err = e.executor.Retweet(ctx, tweet)
	default:
		err = errs.New(errs.ErrorTypeUnknown, "unsupported action type "+string(actionType))
	}

	e.mu.Lock()
	if err == nil {
		e.stats.Successful[actionType]++
	} else {
		e.stats.Failed[actionType]++
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.ErrorWithFields("engagement failed", map[string]interface{}{
			"type":  string(actionType),
			"tweet": tweet.ID,
			"error": err.Error(),
		})
		return err
	}

	e.logger.InfoWithFields("engagement succeeded", map[string]interface{}{
		"type":   string(actionType),
		"tweet":  tweet.ID,
		"author": tweet.Author,
	})
	return nil
}

// Statistics returns a copy of the per-type outcome counts.
func (e *Engine) Statistics() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := Stats{
		Attempted:  make(map[actionlog.Type]int, len(e.stats.Attempted)),
		Successful: make(map[actionlog.Type]int, len(e.stats.Successful)),
		Failed:     make(map[actionlog.Type]int, len(e.stats.Failed)),
	}
	for k, v := range e.stats.Attempted {
		out.Attempted[k] = v
	}
	for k, v := range e.stats.Successful {
		out.Successful[k] = v
	}
	for k, v := range e.stats.Failed {
		out.Failed[k] = v
	}
	return out
}

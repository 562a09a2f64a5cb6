package pool

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-pool/internal/question"
)

// Refresher returns the current, possibly just refreshed, pool.
type Refresher interface {
	EnsureFresh(ctx context.Context) (Pool, error)
}

// Selector samples questions of one level from the active pool.
type Selector struct {
	refresher Refresher
	bank      QuestionStore
	metrics   *Metrics
	logger    zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector builds a Selector; rng may be nil for a randomly seeded source.
func NewSelector(refresher Refresher, bank QuestionStore, rng *rand.Rand, metrics *Metrics, logger zerolog.Logger) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{
		refresher: refresher,
		bank:      bank,
		metrics:   metrics,
		logger:    logger.With().Str("component", "pool_selector").Logger(),
		rng:       rng,
	}
}

// Sample returns up to n shuffled questions of level. When the pool holds
// fewer than n questions of that level the whole master bank level is used
// instead. The returned slice is always usable, even alongside an error from
// the refresh step; the error is only informational for the caller.
func (s *Selector) Sample(ctx context.Context, level string, n int) ([]question.Question, error) {
	current, refreshErr := s.refresher.EnsureFresh(ctx)

	candidates := question.FilterLevel(current.Questions, level)
	if len(candidates) < n {
		master, err := s.bank.LoadQuestions(ctx)
		switch {
		case err == nil || errors.Is(err, ErrNotFound):
			candidates = question.FilterLevel(master, level)
			s.metrics.observeFallback(level)
		default:
			s.logger.Warn().Err(err).Str("level", level).Msg("master bank fallback unavailable, serving pool subset")
		}
	}

	s.mu.Lock()
	picked := Pick(s.rng, candidates, n)
	s.mu.Unlock()
	return picked, refreshErr
}

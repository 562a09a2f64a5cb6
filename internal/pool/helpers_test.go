package pool

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gokatarajesh/quiz-pool/internal/question"
)

type memBank struct {
	mu        sync.Mutex
	questions []question.Question
	err       error
	loads     int
}

func (b *memBank) LoadQuestions(context.Context) ([]question.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	if b.err != nil {
		return nil, b.err
	}
	return append([]question.Question(nil), b.questions...), nil
}

type memStore struct {
	mu        sync.Mutex
	pool      *Pool
	loadErr   error
	saveErr   error
	policy    PolicyOverrides
	policyErr error
	saves     int
}

func (s *memStore) LoadPool(context.Context) (Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return Pool{}, s.loadErr
	}
	if s.pool == nil {
		return Pool{}, ErrNotFound
	}
	return *s.pool, nil
}

func (s *memStore) SavePool(_ context.Context, p Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.pool = &p
	return nil
}

func (s *memStore) LoadPolicy(context.Context) (PolicyOverrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policyErr != nil {
		return PolicyOverrides{}, s.policyErr
	}
	return s.policy, nil
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// makeQuestions returns n questions of level with ids prefix-0..prefix-(n-1).
func makeQuestions(level, prefix string, n int) []question.Question {
	out := make([]question.Question, n)
	for i := range out {
		out[i] = question.Question{ID: fmt.Sprintf("%s-%d", prefix, i), Level: level}
	}
	return out
}

func idSet(qs []question.Question) map[string]struct{} {
	set := make(map[string]struct{}, len(qs))
	for _, q := range qs {
		set[q.ID] = struct{}{}
	}
	return set
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

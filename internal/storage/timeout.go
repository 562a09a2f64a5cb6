package storage

import (
	"context"
	"time"

	"github.com/gokatarajesh/quiz-pool/internal/pool"
	"github.com/gokatarajesh/quiz-pool/internal/question"
)

type boundedBank struct {
	next    pool.QuestionStore
	timeout time.Duration
}

// BoundBank caps every master-bank read at timeout. A non-positive timeout
// returns next unchanged.
func BoundBank(next pool.QuestionStore, timeout time.Duration) pool.QuestionStore {
	if timeout <= 0 {
		return next
	}
	return &boundedBank{next: next, timeout: timeout}
}

func (b *boundedBank) LoadQuestions(ctx context.Context) ([]question.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.LoadQuestions(ctx)
}

type boundedPool struct {
	next    pool.PoolStore
	timeout time.Duration
}

// BoundPool caps every pool and policy call at timeout.
func BoundPool(next pool.PoolStore, timeout time.Duration) pool.PoolStore {
	if timeout <= 0 {
		return next
	}
	return &boundedPool{next: next, timeout: timeout}
}

func (b *boundedPool) LoadPool(ctx context.Context) (pool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.LoadPool(ctx)
}

func (b *boundedPool) SavePool(ctx context.Context, p pool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.SavePool(ctx, p)
}

func (b *boundedPool) LoadPolicy(ctx context.Context) (pool.PolicyOverrides, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.LoadPolicy(ctx)
}

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-pool/internal/pool"
	"github.com/gokatarajesh/quiz-pool/internal/question"
)

type deadlineProbe struct {
	deadlines []time.Duration
}

func (d *deadlineProbe) record(ctx context.Context) {
	if dl, ok := ctx.Deadline(); ok {
		d.deadlines = append(d.deadlines, time.Until(dl))
		return
	}
	d.deadlines = append(d.deadlines, -1)
}

func (d *deadlineProbe) LoadQuestions(ctx context.Context) ([]question.Question, error) {
	d.record(ctx)
	return nil, nil
}

func (d *deadlineProbe) LoadPool(ctx context.Context) (pool.Pool, error) {
	d.record(ctx)
	return pool.Pool{}, nil
}

func (d *deadlineProbe) SavePool(ctx context.Context, _ pool.Pool) error {
	d.record(ctx)
	return nil
}

func (d *deadlineProbe) LoadPolicy(ctx context.Context) (pool.PolicyOverrides, error) {
	d.record(ctx)
	return pool.PolicyOverrides{}, nil
}

func TestBoundedStoresApplyDeadline(t *testing.T) {
	probe := &deadlineProbe{}
	bank := BoundBank(probe, time.Minute)
	store := BoundPool(probe, time.Minute)
	ctx := context.Background()

	_, err := bank.LoadQuestions(ctx)
	require.NoError(t, err)
	_, err = store.LoadPool(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SavePool(ctx, pool.Pool{}))
	_, err = store.LoadPolicy(ctx)
	require.NoError(t, err)

	require.Len(t, probe.deadlines, 4)
	for _, d := range probe.deadlines {
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Minute)
	}
}

func TestZeroTimeoutLeavesStoreUnwrapped(t *testing.T) {
	probe := &deadlineProbe{}
	assert.Same(t, probe, BoundBank(probe, 0))
	assert.Same(t, probe, BoundPool(probe, 0))
}

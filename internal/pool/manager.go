package pool

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-pool/internal/question"
)

// QuestionStore reads the master question bank.
type QuestionStore interface {
	LoadQuestions(ctx context.Context) ([]question.Question, error)
}

// PoolStore persists the active pool and reads the refresh policy.
// SavePool must publish atomically: readers see the old or the new pool, never a mix.
type PoolStore interface {
	LoadPool(ctx context.Context) (Pool, error)
	SavePool(ctx context.Context, p Pool) error
	LoadPolicy(ctx context.Context) (PolicyOverrides, error)
}

// ManagerOptions tunes the Manager; zero values select defaults.
type ManagerOptions struct {
	Levels   question.Levels
	Defaults Policy
	Rand     *rand.Rand
	Clock    func() time.Time
	Metrics  *Metrics
}

// Manager owns the active pool and its refresh cycle. All refreshes run
// under one lock so concurrent callers cannot overwrite each other's churn.
type Manager struct {
	mu sync.Mutex

	bank     QuestionStore
	store    PoolStore
	levels   question.Levels
	defaults Policy
	rng      *rand.Rand
	now      func() time.Time
	metrics  *Metrics
	logger   zerolog.Logger
}

// NewManager constructs a Manager over the given stores.
func NewManager(bank QuestionStore, store PoolStore, opts ManagerOptions, logger zerolog.Logger) *Manager {
	levels := opts.Levels
	if len(levels) == 0 {
		levels = question.DefaultLevels
	}
	defaults := opts.Defaults
	if defaults == (Policy{}) {
		defaults = DefaultPolicy()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		bank:     bank,
		store:    store,
		levels:   levels,
		defaults: defaults.Normalize(),
		rng:      rng,
		now:      clock,
		metrics:  opts.Metrics,
		logger:   logger.With().Str("component", "pool_manager").Logger(),
	}
}

// Levels returns the level enumeration the manager partitions by.
func (m *Manager) Levels() question.Levels {
	return m.levels
}

// EnsureFresh returns the current pool, refreshing and persisting it first
// when a refresh is due. On failure the previously loaded pool is returned
// together with an error wrapping ErrStorageUnavailable.
func (m *Manager) EnsureFresh(ctx context.Context) (Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	policy := m.loadPolicy(ctx)
	current := m.loadPool(ctx)
	now := m.now().UTC()

	if !policy.Due(current.LastRefresh, now) && len(current.Questions) > 0 {
		return current, nil
	}

	master, err := m.bank.LoadQuestions(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		m.metrics.observeFailure()
		return current, fmt.Errorf("%w: load master bank: %w", ErrStorageUnavailable, err)
	}

	var (
		next   []question.Question
		report Report
	)
	if len(current.Questions) == 0 {
		// bootstrap stamps the call time whatever the stored stamp says
		next, report = Bootstrap(master)
	} else {
		// churn only runs once now is poolDays past lastRefresh, so the stamp only moves forward
		next, report = Rotate(m.rng, policy, m.levels, current.Questions, master)
	}
	stamp := now
	updated := Pool{LastRefresh: &stamp, Questions: next}

	if err := m.store.SavePool(ctx, updated); err != nil {
		m.metrics.observeFailure()
		return current, fmt.Errorf("%w: save active pool: %w", ErrStorageUnavailable, err)
	}

	m.metrics.observeRefresh(report.Kind, updated)
	m.logReport(report, policy, stamp)
	return updated, nil
}

func (m *Manager) loadPolicy(ctx context.Context) Policy {
	overrides, err := m.store.LoadPolicy(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn().Err(err).Msg("policy unreadable, using defaults")
		}
		return m.defaults
	}
	return m.defaults.Apply(overrides)
}

func (m *Manager) loadPool(ctx context.Context) Pool {
	p, err := m.store.LoadPool(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn().Err(err).Msg("active pool unreadable, treating as empty")
		}
		return Pool{}
	}
	return p
}

func (m *Manager) logReport(report Report, policy Policy, stamp time.Time) {
	evt := m.logger.Info().
		Str("kind", report.Kind).
		Int("total", report.Total).
		Int("pool_days", policy.PoolDays).
		Time("last_refresh", stamp)
	for _, lr := range report.Levels {
		evt = evt.Dict(lr.Level, zerolog.Dict().
			Int("previous", lr.Previous).
			Int("churn_pct", lr.ChurnPercent).
			Int("survivors", lr.Survivors).
			Int("replacements", lr.Replacements).
			Bool("skipped", lr.Skipped))
	}
	evt.Msg("active pool refreshed")
}

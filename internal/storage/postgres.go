package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quiz-pool/internal/pool"
	"github.com/gokatarajesh/quiz-pool/internal/question"
)

const (
	selectQuestionsSQL = `SELECT payload FROM question_bank ORDER BY id, numeric_id`
	upsertQuestionSQL  = `INSERT INTO question_bank (id, numeric_id, level, payload) VALUES ($1, $2, $3, $4)
ON CONFLICT (id, numeric_id) DO UPDATE SET level = EXCLUDED.level, payload = EXCLUDED.payload`
	selectPoolSQL = `SELECT last_refresh, questions FROM active_pool WHERE id = 1`
	upsertPoolSQL = `INSERT INTO active_pool (id, last_refresh, questions, updated_at) VALUES (1, $1, $2, now())
ON CONFLICT (id) DO UPDATE SET last_refresh = EXCLUDED.last_refresh, questions = EXCLUDED.questions, updated_at = now()`
	selectPolicySQL = `SELECT pool_days, churn_percent_min, churn_percent_max FROM pool_meta WHERE id = 1`
)

// dbtx is the subset of pgxpool.Pool used by PostgresStore.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore keeps the master bank, active pool and policy in Postgres.
// The active pool is a single row replaced by one upsert statement.
type PostgresStore struct {
	db dbtx
}

var (
	_ pool.QuestionStore = (*PostgresStore)(nil)
	_ pool.PoolStore     = (*PostgresStore)(nil)
)

func NewPostgresStore(db dbtx) *PostgresStore {
	return &PostgresStore{db: db}
}

// LoadQuestions returns every question in the bank.
func (s *PostgresStore) LoadQuestions(ctx context.Context) ([]question.Question, error) {
	rows, err := s.db.Query(ctx, selectQuestionsSQL)
	if err != nil {
		return nil, fmt.Errorf("query question bank: %w", err)
	}
	payloads, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan question bank: %w", err)
	}
	qs := make([]question.Question, 0, len(payloads))
	for _, payload := range payloads {
		var q question.Question
		if err := json.Unmarshal(payload, &q); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		qs = append(qs, q)
	}
	return qs, nil
}

// UpsertQuestions inserts or replaces questions by key in one batch.
func (s *PostgresStore) UpsertQuestions(ctx context.Context, qs []question.Question) error {
	if len(qs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, q := range qs {
		payload, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("encode question %s: %w", q.ID, err)
		}
		key := q.Key()
		batch.Queue(upsertQuestionSQL, key.ID, key.Numeric, q.Level, payload)
	}

	br := s.db.SendBatch(ctx, batch)
	for _, q := range qs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return br.Close()
}

// LoadPool reads the single active pool row.
func (s *PostgresStore) LoadPool(ctx context.Context) (pool.Pool, error) {
	var (
		last    pgtype.Timestamptz
		payload []byte
	)
	err := s.db.QueryRow(ctx, selectPoolSQL).Scan(&last, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return pool.Pool{}, fmt.Errorf("active pool: %w", pool.ErrNotFound)
	}
	if err != nil {
		return pool.Pool{}, fmt.Errorf("query active pool: %w", err)
	}

	var p pool.Pool
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p.Questions); err != nil {
			return pool.Pool{}, fmt.Errorf("decode active pool: %w", err)
		}
	}
	if last.Valid {
		ts := last.Time.UTC()
		p.LastRefresh = &ts
	}
	return p, nil
}

// SavePool replaces the active pool row.
func (s *PostgresStore) SavePool(ctx context.Context, p pool.Pool) error {
	qs := p.Questions
	if qs == nil {
		qs = []question.Question{}
	}
	payload, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("encode active pool: %w", err)
	}
	last := pgtype.Timestamptz{}
	if p.LastRefresh != nil {
		last = pgtype.Timestamptz{Time: p.LastRefresh.UTC(), Valid: true}
	}
	if _, err := s.db.Exec(ctx, upsertPoolSQL, last, payload); err != nil {
		return fmt.Errorf("upsert active pool: %w", err)
	}
	return nil
}

// LoadPolicy reads the policy row; NULL columns fall back to defaults.
func (s *PostgresStore) LoadPolicy(ctx context.Context) (pool.PolicyOverrides, error) {
	var days, churnMin, churnMax pgtype.Int4
	err := s.db.QueryRow(ctx, selectPolicySQL).Scan(&days, &churnMin, &churnMax)
	if errors.Is(err, pgx.ErrNoRows) {
		return pool.PolicyOverrides{}, fmt.Errorf("pool meta: %w", pool.ErrNotFound)
	}
	if err != nil {
		return pool.PolicyOverrides{}, fmt.Errorf("query pool meta: %w", err)
	}
	return pool.PolicyOverrides{
		PoolDays:        int4Ptr(days),
		ChurnPercentMin: int4Ptr(churnMin),
		ChurnPercentMax: int4Ptr(churnMax),
	}, nil
}

func int4Ptr(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int32)
	return &n
}

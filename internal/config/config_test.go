package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "quiz-pool", cfg.Name)
	assert.Equal(t, []string{"U10", "11-15", "16+"}, cfg.Pool.Levels)
	assert.Equal(t, 24*time.Hour, cfg.Pool.RefreshInterval)
	assert.Equal(t, 20, cfg.Pool.QuestionCount)
	assert.Equal(t, 5, cfg.Pool.PoolDays)
	assert.Equal(t, 10, cfg.Pool.ChurnPercentMin)
	assert.Equal(t, 15, cfg.Pool.ChurnPercentMax)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POOL_LEVELS", "easy,hard")
	t.Setenv("POOL_REFRESH_INTERVAL", "6h")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_DATABASE", "quiz")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"easy", "hard"}, cfg.Pool.Levels)
	assert.Equal(t, 6*time.Hour, cfg.Pool.RefreshInterval)
	assert.Contains(t, cfg.Postgres.DSN(), "dbname=quiz")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":       {"STORAGE_BACKEND": "s3"},
		"postgres without user": {"STORAGE_BACKEND": "postgres"},
		"zero question count":   {"POOL_QUESTION_COUNT": "0"},
		"inverted churn bounds": {"POOL_CHURN_MIN_DEFAULT": "20", "POOL_CHURN_MAX_DEFAULT": "10"},
		"churn above hundred":   {"POOL_CHURN_MAX_DEFAULT": "120"},
		"non numeric pool days": {"POOL_DAYS_DEFAULT": "five"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load(context.Background())
			assert.Error(t, err)
		})
	}
}

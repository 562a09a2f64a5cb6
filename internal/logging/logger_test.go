package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "quiz-pool", "production")

	logger.Debug().Msg("hidden")
	logger.Info().Str("level_tag", "U10").Msg("pool refreshed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "quiz-pool", entry["app"])
	assert.Equal(t, "production", entry["env"])
	assert.Equal(t, "pool refreshed", entry["message"])
	assert.Equal(t, "U10", entry["level_tag"])
}

func TestDevelopmentLoggerIsVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "quiz-pool", "development")

	logger.Debug().Msg("sampling")

	assert.Contains(t, buf.String(), "sampling")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("request_id", "abc").Logger()
	ctx := IntoContext(context.Background(), logger)

	logger = FromContext(ctx, zerolog.Nop())
	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)

	var other bytes.Buffer
	fallback := FromContext(context.Background(), zerolog.New(&other))
	fallback.Info().Msg("fallback")
	assert.Contains(t, other.String(), "fallback")
}

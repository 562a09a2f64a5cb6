package question

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionUnmarshalKeepsContent(t *testing.T) {
	raw := `{"id": 17, "level": "U10", "q": "How many legs does a dog have?", "choices": ["2", "4"], "answer": 1}`

	var q Question
	require.NoError(t, json.Unmarshal([]byte(raw), &q))
	assert.Equal(t, "17", q.ID)
	assert.Equal(t, "U10", q.Level)

	choices, ok := q.Field("choices")
	require.True(t, ok)
	assert.JSONEq(t, `["2","4"]`, string(choices))

	out, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestQuestionUnmarshalStringID(t *testing.T) {
	var q Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u10-001","level":"16+"}`), &q))
	assert.Equal(t, "u10-001", q.ID)
	assert.Equal(t, "16+", q.Level)
}

func TestQuestionKeySeparatesNumericAndStringIDs(t *testing.T) {
	var numeric, text Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"level":"U10"}`), &numeric))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","level":"U10"}`), &text))

	assert.Equal(t, numeric.ID, text.ID)
	assert.NotEqual(t, numeric.Key(), text.Key())
	assert.Equal(t, Key{ID: "1", Numeric: true}, numeric.Key())

	out, err := json.Marshal(numeric)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"level":"U10"}`, string(out))
}

func TestQuestionUnmarshalRejectsMissingID(t *testing.T) {
	var q Question
	assert.Error(t, json.Unmarshal([]byte(`{"level":"U10"}`), &q))
	assert.Error(t, json.Unmarshal([]byte(`{"id":{"x":1},"level":"U10"}`), &q))
}

func TestNewQuestionRoundTrip(t *testing.T) {
	q, err := New("a1", "11-15", map[string]any{"q": "Which breed is largest?"})
	require.NoError(t, err)

	out, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","level":"11-15","q":"Which breed is largest?"}`, string(out))
}

func TestParseLevels(t *testing.T) {
	assert.Equal(t, Levels{"A", "B"}, ParseLevels([]string{" A", "B", "", "A"}))
	assert.Equal(t, DefaultLevels, ParseLevels(nil))
}

func TestLevelsNormalize(t *testing.T) {
	levels := DefaultLevels
	assert.Equal(t, "16+", levels.Normalize("16+"))
	assert.Equal(t, "U10", levels.Normalize("adult"))
	assert.Equal(t, "U10", levels.Normalize(""))
}

func TestGroupByLevelDropsUnknown(t *testing.T) {
	qs := []Question{
		{ID: "1", Level: "U10"},
		{ID: "2", Level: "16+"},
		{ID: "3", Level: "other"},
	}
	groups := GroupByLevel(qs, DefaultLevels)
	assert.Len(t, groups, 3)
	assert.Len(t, groups["U10"], 1)
	assert.Len(t, groups["11-15"], 0)
	assert.Len(t, groups["16+"], 1)

	assert.Equal(t, []Question{{ID: "2", Level: "16+"}}, FilterLevel(qs, "16+"))
}

package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONPlainObject(t *testing.T) {
	var got map[string]any
	require.NoError(t, ExtractJSON(`{"a": 1, "b": "two"}`, &got))
	assert.Equal(t, float64(1), got["a"])
	assert.Equal(t, "two", got["b"])
}

func TestExtractJSONFencedWithTrailingComma(t *testing.T) {
	raw := "Here is the result:\n```json\n{\n  \"intent_score\": 85,\n  \"quality_score\": 72,\n}\n```\nLet me know if you need anything else."
	var got struct {
		IntentScore  int `json:"intent_score"`
		QualityScore int `json:"quality_score"`
	}
	require.NoError(t, ExtractJSON(raw, &got))
	assert.Equal(t, 85, got.IntentScore)
	assert.Equal(t, 72, got.QualityScore)
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	raw := `Sure! Based on the data, {"summary": "Good month", "insights": ["up 10%"]} is my take.`
	var got struct {
		Summary  string   `json:"summary"`
		Insights []string `json:"insights"`
	}
	require.NoError(t, ExtractJSON(raw, &got))
	assert.Equal(t, "Good month", got.Summary)
	assert.Equal(t, []string{"up 10%"}, got.Insights)
}

func TestExtractJSONArrayWithTrailingComma(t *testing.T) {
	raw := "```\n[{\"city\": \"Leeds\"}, {\"city\": \"Manchester\"},]\n```"
	var got []struct {
		City string `json:"city"`
	}
	require.NoError(t, ExtractJSON(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Leeds", got[0].City)
	assert.Equal(t, "Manchester", got[1].City)
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	var got struct {
		Reasoning string `json:"reasoning"`
		Score     int    `json:"score"`
	}
	require.NoError(t, ExtractJSON(`{"reasoning": "budget is {high} for the area", "score": 4}`, &got))
	assert.Equal(t, "budget is {high} for the area", got.Reasoning)
	assert.Equal(t, 4, got.Score)
}

func TestExtractJSONEscapedQuotes(t *testing.T) {
	var got struct {
		Note string `json:"note"`
	}
	require.NoError(t, ExtractJSON(`{"note": "said \"no\" twice"}`, &got))
	assert.Equal(t, `said "no" twice`, got.Note)
}

func TestExtractJSONNoPayload(t *testing.T) {
	var got map[string]any
	err := ExtractJSON("I cannot score this lead without more information.", &got)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractJSONUnbalanced(t *testing.T) {
	var got map[string]any
	err := ExtractJSON(`{"a": 1`, &got)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestSentences(t *testing.T) {
	got := Sentences("- First point\n\n* Second point\n  plain line\n")
	assert.Equal(t, []string{"First point", "Second point", "plain line"}, got)
}

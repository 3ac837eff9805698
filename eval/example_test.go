// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package eval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExampleAssignsIDAndTimestamp(t *testing.T) {
	ex := NewExample(map[string]any{"input": "hi"})
	assert.NotEmpty(t, ex.ExampleID)
	assert.False(t, ex.CreatedAt.IsZero())
	assert.Empty(t, ex.Name)
}

func TestExampleToModelFlattensProperties(t *testing.T) {
	ex := NewExample(map[string]any{"input": "hi", "expected": "bye"})
	model := ex.ToModel()

	assert.Equal(t, ex.ExampleID, model["example_id"])
	assert.Contains(t, model, "created_at")
	assert.Equal(t, "hi", model["input"])
	assert.Equal(t, "bye", model["expected"])
	assert.NotContains(t, model, "name")
}

func TestExampleToModelIncludesNameWhenSet(t *testing.T) {
	ex := NewExample(map[string]any{"input": "hi"}).WithName("case-1")
	model := ex.ToModel()
	assert.Equal(t, "case-1", model["name"])
}

func TestExampleMarshalJSON(t *testing.T) {
	ex := NewExample(map[string]any{"input": "hi"})
	b, err := json.Marshal(ex)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, ex.ExampleID, decoded["example_id"])
	assert.Equal(t, "hi", decoded["input"])
}

func TestScorerConfigJSONTags(t *testing.T) {
	sc := ScorerConfig{Name: "faithfulness", Config: map[string]any{"threshold": 0.5}}
	b, err := json.Marshal(sc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"faithfulness","config":{"threshold":0.5}}`, string(b))
}

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

func TestTraceSpanRefMarshalsAsPair(t *testing.T) {
	ref := TraceSpanRef{TraceID: "trace-1", SpanID: "span-1"}
	b, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `["trace-1","span-1"]`, string(b))
}

func TestNewExampleRun(t *testing.T) {
	ex := NewExample(map[string]any{"input": "hi"})
	scorers := []ScorerConfig{{Name: "faithfulness"}}
	run := NewExampleRun("proj", "async_evaluate_span1", "trace1", "span1", ex, scorers)

	assert.Equal(t, "proj", run.ProjectName)
	assert.Equal(t, "async_evaluate_span1", run.EvalName)
	assert.Equal(t, "trace1", run.TraceID)
	assert.Equal(t, "span1", run.TraceSpanID)
	assert.Equal(t, []*Example{ex}, run.Examples)
	assert.Nil(t, run.TraceAndSpanIDs)
	assert.Nil(t, run.IsOffline)

	b, err := json.Marshal(run)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.NotContains(t, decoded, "trace_and_span_ids")
	assert.NotContains(t, decoded, "is_offline")
	assert.Equal(t, "hi", decoded["examples"].([]any)[0].(map[string]any)["input"])
}

func TestNewTraceRun(t *testing.T) {
	refs := []TraceSpanRef{{TraceID: "t1", SpanID: "s1"}}
	scorers := []ScorerConfig{{Name: "relevance"}}
	run := NewTraceRun("proj", "async_trace_evaluate_s1", refs, scorers)

	require.NotNil(t, run.IsOffline)
	assert.False(t, *run.IsOffline)
	assert.Nil(t, run.Examples)
	assert.Empty(t, run.TraceID)

	b, err := json.Marshal(run)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.NotContains(t, decoded, "examples")
	assert.NotContains(t, decoded, "trace_id")
	assert.Equal(t, false, decoded["is_offline"])
	assert.Equal(t, []any{[]any{"t1", "s1"}}, decoded["trace_and_span_ids"])
}

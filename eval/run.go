// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package eval

// TraceSpanRef identifies one span within one trace, serialized as the
// [traceId, spanId] pair spec.md §3 requires for a trace run.
type TraceSpanRef struct {
	TraceID string
	SpanID  string
}

// MarshalJSON encodes the pair as a two-element array, matching the
// [[traceId, spanId]] wire shape exactly.
func (r TraceSpanRef) MarshalJSON() ([]byte, error) {
	return marshalPair(r.TraceID, r.SpanID)
}

// Run is the EvaluationRun request payload enqueued to the backend's eval
// queue. It covers both variants from spec.md §3: an example run carries
// Examples/TraceID/TraceSpanID and omits TraceAndSpanIDs; a trace run
// carries TraceAndSpanIDs and omits the rest. The two are never populated
// together by judgment/tracer.
type Run struct {
	ProjectName string `json:"project_name"`
	EvalName    string `json:"eval_name"`

	// Example run fields.
	TraceID     string     `json:"trace_id,omitempty"`
	TraceSpanID string     `json:"trace_span_id,omitempty"`
	Examples    []*Example `json:"examples,omitempty"`

	// Trace run fields.
	TraceAndSpanIDs []TraceSpanRef `json:"trace_and_span_ids,omitempty"`
	IsOffline       *bool          `json:"is_offline,omitempty"`

	JudgmentScorers []ScorerConfig `json:"judgment_scorers"`
	CustomScorers   []ScorerConfig `json:"custom_scorers,omitempty"`
}

// NewExampleRun builds the example-run variant: evalName is derived by the
// caller as AsyncEvalNamePrefix + spanId, per spec.md §4.J.
func NewExampleRun(projectName, evalName, traceID, traceSpanID string, example *Example, judgmentScorers []ScorerConfig) *Run {
	return &Run{
		ProjectName:     projectName,
		EvalName:        evalName,
		TraceID:         traceID,
		TraceSpanID:     traceSpanID,
		Examples:        []*Example{example},
		JudgmentScorers: judgmentScorers,
	}
}

// NewTraceRun builds the trace-run variant: evalName is derived by the
// caller as AsyncTraceEvalNamePrefix + spanId.
func NewTraceRun(projectName, evalName string, traceAndSpanIDs []TraceSpanRef, judgmentScorers []ScorerConfig) *Run {
	offline := false
	return &Run{
		ProjectName:     projectName,
		EvalName:        evalName,
		TraceAndSpanIDs: traceAndSpanIDs,
		IsOffline:       &offline,
		JudgmentScorers: judgmentScorers,
	}
}

func marshalPair(a, b string) ([]byte, error) {
	return jsonArray(a, b)
}

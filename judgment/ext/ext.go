// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package ext holds the namespaced string constants that are stable across
// the judgeval wire protocol: attribute keys, span kinds, resource keys,
// environment variable names, HTTP paths and headers, and eval-name prefixes.
// Exact strings matter here — the backend keys off of them directly.
package ext

// Span attribute keys. These are the only keys the core itself ever writes;
// user attributes set through Tracer.SetAttribute live alongside them under
// caller-chosen keys.
const (
	SpanKind           = "judgment.span_kind"
	Input              = "judgment.input"
	Output             = "judgment.output"
	CustomerID         = "judgment.customer_id"
	SessionID          = "judgment.session_id"
	ProjectIDOverride  = "judgment.project_id_override"
	PendingTraceEval   = "judgment.pending_trace_eval"
)

// SpanKindValue enumerates the values SpanKind may be set to.
type SpanKindValue string

const (
	KindSpan  SpanKindValue = "span"
	KindLLM   SpanKindValue = "llm"
	KindTool  SpanKindValue = "tool"
	KindChain SpanKindValue = "chain"
)

// Resource attribute keys, set once per exported batch.
const (
	ResourceServiceName = "service.name"
	ResourceSDKName     = "telemetry.sdk.name"
	ResourceSDKVersion  = "telemetry.sdk.version"
)

// SDKName is the fixed telemetry.sdk.name value the backend expects.
const SDKName = "judgeval"

// Environment variable names recognized at Start.
const (
	EnvAPIKey             = "JUDGMENT_API_KEY"
	EnvOrgID              = "JUDGMENT_ORG_ID"
	EnvAPIURL             = "JUDGMENT_API_URL"
	EnvMaxQueueSize       = "JUDGMENT_MAX_QUEUE_SIZE"
	EnvBatchSize          = "JUDGMENT_BATCH_SIZE"
	EnvScheduledDelayMS   = "JUDGMENT_SCHEDULED_DELAY_MS"
	EnvExportTimeoutMS    = "JUDGMENT_EXPORT_TIMEOUT_MS"
)

// DefaultAPIURL is used when JUDGMENT_API_URL is unset.
const DefaultAPIURL = "https://api.judgmentlabs.ai"

// HTTP paths consumed on the backend.
const (
	PathResolveProject   = "/v1/projects/resolve"
	PathQueueExamples    = "/v1/eval/queue/examples"
	PathExportTraces     = "/otel/v1/traces"
)

// HTTP headers.
const (
	HeaderOrgID     = "X-Organization-Id"
	HeaderProjectID = "X-Judgment-Project-Id"
)

// EvalNamePrefix values used to derive a deterministic eval name per span.
const (
	AsyncEvalNamePrefix      = "async_evaluate_"
	AsyncTraceEvalNamePrefix = "async_trace_evaluate_"
)

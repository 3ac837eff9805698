// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package export ships finished spans to the backend's OTLP-compatible
// trace endpoint. It never retries: failures are reported back to the
// batch processor (internal/batch), which owns the retry/drop decision.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

// Exporter ships a batch of ended spans. Export must not retry internally.
type Exporter interface {
	Export(ctx context.Context, spans []*judgment.Span) error
}

// ResourceAttributes describes the service.name/telemetry.sdk.* triple plus
// any user-supplied extras attached to every exported batch.
type ResourceAttributes struct {
	ServiceName string
	SDKVersion  string
	Extra       map[string]any
}

// Config configures an HTTP exporter.
type Config struct {
	BaseURL    string
	APIKey     string
	OrgID      string
	ProjectID  string
	Resource   ResourceAttributes
	HTTPClient *http.Client
}

type httpExporter struct {
	endpoint string
	cfg      Config
	client   *http.Client
}

// NewHTTP builds the span exporter described in spec.md §4.E: POSTs an
// OTLP-compatible envelope to <baseURL>/otel/v1/traces with the Authorization,
// X-Organization-Id, and project-id headers.
func NewHTTP(cfg Config) Exporter {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpExporter{endpoint: base + ext.PathExportTraces, cfg: cfg, client: client}
}

func (e *httpExporter) Export(ctx context.Context, spans []*judgment.Span) error {
	if len(spans) == 0 {
		return nil
	}
	body, err := json.Marshal(encodeEnvelope(e.cfg.Resource, spans))
	if err != nil {
		return fmt.Errorf("judgment: encode export payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("judgment: build export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	req.Header.Set(ext.HeaderOrgID, e.cfg.OrgID)
	req.Header.Set(ext.HeaderProjectID, e.cfg.ProjectID)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("judgment: export request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("judgment: export returned status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// Noop accepts every batch and always succeeds without making a network
// call. Selected whenever ProjectId fails to resolve (spec.md §4.E).
type Noop struct{}

// Export implements Exporter.
func (Noop) Export(context.Context, []*judgment.Span) error { return nil }

// --- OTLP-compatible JSON envelope ---

type envelope struct {
	ResourceSpans []resourceSpans `json:"resourceSpans"`
}

type resourceSpans struct {
	Resource   resource     `json:"resource"`
	ScopeSpans []scopeSpans `json:"scopeSpans"`
}

type resource struct {
	Attributes []kv `json:"attributes"`
}

type scopeSpans struct {
	Scope scope      `json:"scope"`
	Spans []otlpSpan `json:"spans"`
}

type scope struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type kv struct {
	Key   string   `json:"key"`
	Value anyValue `json:"value"`
}

type anyValue struct {
	StringValue *string  `json:"stringValue,omitempty"`
	BoolValue   *bool    `json:"boolValue,omitempty"`
	IntValue    *string  `json:"intValue,omitempty"`
	DoubleValue *float64 `json:"doubleValue,omitempty"`
}

type otlpSpan struct {
	TraceID           string       `json:"traceId"`
	SpanID            string       `json:"spanId"`
	ParentSpanID      string       `json:"parentSpanId,omitempty"`
	Name              string       `json:"name"`
	Kind              string       `json:"kind"`
	StartTimeUnixNano string       `json:"startTimeUnixNano"`
	EndTimeUnixNano   string       `json:"endTimeUnixNano"`
	Attributes        []kv         `json:"attributes"`
	Status            otlpStatus   `json:"status"`
	Events            []otlpEvent  `json:"events,omitempty"`
}

type otlpStatus struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type otlpEvent struct {
	Name              string `json:"name"`
	TimeUnixNano      string `json:"timeUnixNano"`
	Attributes        []kv   `json:"attributes,omitempty"`
}

func encodeEnvelope(res ResourceAttributes, spans []*judgment.Span) envelope {
	attrs := []kv{
		toKV(ext.ResourceServiceName, res.ServiceName),
		toKV(ext.ResourceSDKName, ext.SDKName),
		toKV(ext.ResourceSDKVersion, res.SDKVersion),
	}
	for k, v := range res.Extra {
		attrs = append(attrs, toKV(k, v))
	}
	out := make([]otlpSpan, 0, len(spans))
	for _, s := range spans {
		out = append(out, encodeSpan(s))
	}
	return envelope{ResourceSpans: []resourceSpans{{
		Resource: resource{Attributes: attrs},
		ScopeSpans: []scopeSpans{{
			Scope: scope{Name: ext.SDKName, Version: res.SDKVersion},
			Spans: out,
		}},
	}}}
}

func encodeSpan(s *judgment.Span) otlpSpan {
	var parent string
	if pid, ok := s.ParentSpanID(); ok {
		parent = pid.String()
	}
	status := s.GetStatus()
	code := "STATUS_CODE_OK"
	if status.Code == judgment.StatusError {
		code = "STATUS_CODE_ERROR"
	}
	attrs := make([]kv, 0, len(s.Attributes()))
	for k, v := range s.Attributes() {
		attrs = append(attrs, toKV(k, v))
	}
	events := make([]otlpEvent, 0, len(s.Events()))
	for _, e := range s.Events() {
		evAttrs := make([]kv, 0, len(e.Attributes))
		for k, v := range e.Attributes {
			evAttrs = append(evAttrs, toKV(k, v))
		}
		events = append(events, otlpEvent{
			Name:         e.Name,
			TimeUnixNano: strconv.FormatInt(e.Timestamp.UnixNano(), 10),
			Attributes:   evAttrs,
		})
	}
	return otlpSpan{
		TraceID:           s.TraceID().String(),
		SpanID:            s.SpanID().String(),
		ParentSpanID:      parent,
		Name:              s.Name(),
		Kind:              strings.ToUpper(string(s.Kind())),
		StartTimeUnixNano: strconv.FormatInt(s.StartTime().UnixNano(), 10),
		EndTimeUnixNano:   strconv.FormatInt(s.EndTime().UnixNano(), 10),
		Attributes:        attrs,
		Status:            otlpStatus{Code: code, Message: status.Message},
		Events:            events,
	}
}

func toKV(key string, v any) kv {
	switch t := v.(type) {
	case string:
		return kv{Key: key, Value: anyValue{StringValue: &t}}
	case bool:
		return kv{Key: key, Value: anyValue{BoolValue: &t}}
	case int:
		s := strconv.Itoa(t)
		return kv{Key: key, Value: anyValue{IntValue: &s}}
	case int64:
		s := strconv.FormatInt(t, 10)
		return kv{Key: key, Value: anyValue{IntValue: &s}}
	case float64:
		return kv{Key: key, Value: anyValue{DoubleValue: &t}}
	default:
		b, err := json.Marshal(t)
		if err != nil {
			s := fmt.Sprintf("%v", t)
			return kv{Key: key, Value: anyValue{StringValue: &s}}
		}
		s := string(b)
		return kv{Key: key, Value: anyValue{StringValue: &s}}
	}
}

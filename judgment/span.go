// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package judgment

import (
	"math/rand/v2"
	"sync"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/JudgmentLabs/judgeval-go/internal/log"
	"github.com/JudgmentLabs/judgeval-go/internal/serialize"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

// StatusCode is the terminal status of a finished span.
type StatusCode int

const (
	StatusOK StatusCode = iota
	StatusError
)

// Status is the span's terminal status; Message is populated iff Code is
// StatusError.
type Status struct {
	Code    StatusCode
	Message string
}

// Event is a timestamped, attributed occurrence recorded on a span,
// including recorded exceptions.
type Event struct {
	Name       string
	Timestamp  time.Time
	Attributes map[string]any
}

// Span is a named, timed, attributed unit of work. Its identity
// (TraceID, SpanID, ParentSpanID) is immutable once created; its
// attributes, events, and status may be mutated only until it is ended.
//
// Span deliberately uses go.opentelemetry.io/otel/trace's TraceID/SpanID
// array types: they are already the 16-byte / 8-byte wire-compatible forms
// OTLP expects, with hex codecs judgeval does not need to reimplement, and
// they make the OTEL-bridge adapter (internal/otelbridge) a matter of
// reinterpreting bits rather than converting between two ID schemes.
type Span struct {
	name         string
	kind         ext.SpanKindValue
	traceID      oteltrace.TraceID
	spanID       oteltrace.SpanID
	parentSpanID oteltrace.SpanID
	hasParent    bool
	sampled      bool
	start        time.Time

	mu         sync.Mutex
	end        time.Time
	ended      bool
	attributes map[string]any
	status     Status
	events     []Event
	onEnd      func(*Span)
}

// SetEndHook installs a callback End invokes exactly once, after the span's
// own state is finalized. Platform tracers use this to enqueue the span to
// a batch processor without requiring every caller of the advanced Span()
// form to route completion through the tracer by hand.
func (s *Span) SetEndHook(fn func(*Span)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onEnd = fn
	s.mu.Unlock()
}

// SpanOption configures a span at creation time.
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind       ext.SpanKindValue
	attributes map[string]any
	sampled    *bool
}

// WithKind sets the span's kind at creation time.
func WithKind(k ext.SpanKindValue) SpanOption {
	return func(c *spanConfig) { c.kind = k }
}

// WithAttribute pre-seeds an attribute on the span before any lifecycle
// processor runs.
func WithAttribute(key string, value any) SpanOption {
	return func(c *spanConfig) {
		if c.attributes == nil {
			c.attributes = map[string]any{}
		}
		c.attributes[key] = value
	}
}

// WithSampled forces the sampling decision for a root span. Child spans
// always inherit their parent's decision and ignore this option.
func WithSampled(sampled bool) SpanOption {
	return func(c *spanConfig) { c.sampled = &sampled }
}

func newConfig(opts []SpanOption) *spanConfig {
	c := &spanConfig{kind: ext.KindSpan}
	for _, o := range opts {
		o(c)
	}
	return c
}

func randTraceID() oteltrace.TraceID {
	var id oteltrace.TraceID
	for {
		rand.Read(id[:]) //nolint:errcheck // math/rand/v2.Read never errors
		if id.IsValid() {
			return id
		}
	}
}

func randSpanID() oteltrace.SpanID {
	var id oteltrace.SpanID
	for {
		rand.Read(id[:]) //nolint:errcheck
		if id.IsValid() {
			return id
		}
	}
}

// NewRootSpan creates a span with no parent, starting a new trace.
func NewRootSpan(name string, opts ...SpanOption) *Span {
	c := newConfig(opts)
	sampled := true
	if c.sampled != nil {
		sampled = *c.sampled
	}
	s := &Span{
		name:       name,
		kind:       c.kind,
		traceID:    randTraceID(),
		spanID:     randSpanID(),
		sampled:    sampled,
		start:      time.Now(),
		attributes: map[string]any{ext.SpanKind: string(c.kind)},
	}
	for k, v := range c.attributes {
		s.attributes[k] = v
	}
	addRootSpan()
	return s
}

// NewChildSpan creates a span whose ParentSpanID and TraceID are inherited
// from parent, and whose sampling decision is inherited too.
func NewChildSpan(parent *Span, name string, opts ...SpanOption) *Span {
	if parent == nil {
		return NewRootSpan(name, opts...)
	}
	c := newConfig(opts)
	s := &Span{
		name:         name,
		kind:         c.kind,
		traceID:      parent.traceID,
		spanID:       randSpanID(),
		parentSpanID: parent.spanID,
		hasParent:    true,
		sampled:      parent.sampled,
		start:        time.Now(),
		attributes:   map[string]any{ext.SpanKind: string(c.kind)},
	}
	for k, v := range c.attributes {
		s.attributes[k] = v
	}
	return s
}

// Name returns the span's operation name.
func (s *Span) Name() string { return s.name }

// Kind returns the span's kind.
func (s *Span) Kind() ext.SpanKindValue {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// TraceID returns the 16-byte trace identifier shared by every span in this
// trace.
func (s *Span) TraceID() oteltrace.TraceID {
	if s == nil {
		return oteltrace.TraceID{}
	}
	return s.traceID
}

// SpanID returns this span's 8-byte identifier, unique within the process.
func (s *Span) SpanID() oteltrace.SpanID {
	if s == nil {
		return oteltrace.SpanID{}
	}
	return s.spanID
}

// ParentSpanID returns this span's parent id and whether it has one.
func (s *Span) ParentSpanID() (oteltrace.SpanID, bool) {
	if s == nil {
		return oteltrace.SpanID{}, false
	}
	return s.parentSpanID, s.hasParent
}

// Sampled reports whether the low bit of the trace's flags is set; when
// false, evaluation submission (judgment/tracer's AsyncEvaluate and
// AsyncTraceEvaluate) is suppressed.
func (s *Span) Sampled() bool {
	if s == nil {
		return false
	}
	return s.sampled
}

// StartTime returns the monotonic creation timestamp.
func (s *Span) StartTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.start
}

// EndTime returns the finalization timestamp, or the zero Time if the span
// has not ended yet.
func (s *Span) EndTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.end
}

// IsEnded reports whether End has already been called.
func (s *Span) IsEnded() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// SetAttribute validates key is non-empty, skips nil values, serializes
// non-scalar values, and attaches the result to the span. It returns false
// (and logs) if the span has already ended or the key is empty — an
// invariant violation, not a user-body error.
func (s *Span) SetAttribute(key string, value any) bool {
	if s == nil || value == nil {
		return false
	}
	if key == "" {
		log.Error("judgment: SetAttribute called with an empty key on span %q", s.name)
		return false
	}
	enc, err := serialize.Value(value)
	if err != nil {
		s.RecordError(err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		log.Error("judgment: SetAttribute(%q) on ended span %q", key, s.name)
		return false
	}
	s.attributes[key] = enc
	return true
}

// SetAttributes applies SetAttribute to every entry of attrs.
func (s *Span) SetAttributes(attrs map[string]any) {
	for k, v := range attrs {
		s.SetAttribute(k, v)
	}
}

// Attribute returns the raw (already-serialized) value stored under key.
func (s *Span) Attribute(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attributes[key]
	return v, ok
}

// Attributes returns a defensive copy of every attribute on the span.
func (s *Span) Attributes() map[string]any {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.attributes))
	for k, v := range s.attributes {
		out[k] = v
	}
	return out
}

// SetKind overwrites the span-kind attribute and the Kind() accessor.
func (s *Span) SetKind(k ext.SpanKindValue) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.kind = k
	s.mu.Unlock()
	s.SetAttribute(ext.SpanKind, string(k))
}

// AddEvent appends a timestamped event, such as a recorded exception.
func (s *Span) AddEvent(name string, attrs map[string]any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.events = append(s.events, Event{Name: name, Timestamp: time.Now(), Attributes: attrs})
}

// RecordError records err as an "exception" event and sets the span status
// to error with err's message.
func (s *Span) RecordError(err error) {
	if s == nil || err == nil {
		return
	}
	s.AddEvent("exception", map[string]any{"exception.message": err.Error()})
	s.SetStatus(StatusError, err.Error())
}

// SetStatus sets the span's terminal status.
func (s *Span) SetStatus(code StatusCode, message string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.status = Status{Code: code, Message: message}
}

// GetStatus returns the span's current status.
func (s *Span) GetStatus() Status {
	if s == nil {
		return Status{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Events returns a defensive copy of the span's recorded events.
func (s *Span) Events() []Event {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// End finalizes the span exactly once; subsequent calls are no-ops and
// return false. Attributes cannot be mutated after End returns true.
func (s *Span) End() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return false
	}
	s.ended = true
	s.end = time.Now()
	if !s.hasParent {
		subRootSpan()
	}
	hook := s.onEnd
	s.mu.Unlock()
	if hook != nil {
		hook(s)
	}
	return true
}

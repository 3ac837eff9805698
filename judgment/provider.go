// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package judgment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/JudgmentLabs/judgeval-go/eval"
	"github.com/JudgmentLabs/judgeval-go/internal/jctx"
	"github.com/JudgmentLabs/judgeval-go/internal/log"
	"github.com/JudgmentLabs/judgeval-go/internal/serialize"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

func valueSerialize(v any) (any, error) { return serialize.Value(v) }

// Tracer is the contract judgment/tracer's implementation satisfies and the
// provider proxy (below) delegates to. Observe is deliberately not part of
// this interface: Go interface methods cannot be generic, so Observe lives
// as a free generic function in judgment/tracer that takes a Tracer.
type Tracer interface {
	// Span starts a span without making it active; the caller owns ending
	// it. Returns the span and a Context with it installed as active,
	// though the caller is free to discard the Context and manage
	// activation itself — this is the "advanced, rarely wanted" form.
	Span(ctx context.Context, name string, opts ...SpanOption) (*Span, context.Context)

	// With starts a span, installs it as active for fn's dynamic extent,
	// and ends it on return. Errors returned by fn are recorded on the
	// span, the status is set to error, and the error is returned to the
	// caller unchanged.
	With(ctx context.Context, name string, fn func(context.Context, *Span) error, opts ...SpanOption) error

	SetInput(ctx context.Context, data any)
	SetOutput(ctx context.Context, data any)
	SetAttribute(ctx context.Context, key string, value any) bool
	SetAttributes(ctx context.Context, attrs map[string]any)
	SetLLMSpan(ctx context.Context)
	SetToolSpan(ctx context.Context)
	SetGeneralSpan(ctx context.Context)
	SetCustomerID(ctx context.Context, id string)
	SetSessionID(ctx context.Context, id string)

	AsyncEvaluate(ctx context.Context, scorer eval.ScorerConfig, example *eval.Example)
	AsyncTraceEvaluate(ctx context.Context, scorer eval.ScorerConfig)

	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Active returns the span installed in ctx, if any.
func Active(ctx context.Context) (*Span, bool) {
	s, ok := jctx.Value(ctx).(*Span)
	return s, ok && s != nil
}

// WithSpan returns a Context derived from ctx with span installed as
// active, gated for the OTEL bridge.
func WithSpan(ctx context.Context, span *Span) context.Context {
	return jctx.WithGate(jctx.WithValue(ctx, span))
}

var rootSpansRecording atomic.Int64

func addRootSpan() { rootSpansRecording.Add(1) }
func subRootSpan() { rootSpansRecording.Add(-1) }

// AnyRootSpanRecording reports whether a root span is currently open
// anywhere in the process. SetActive refuses to swap delegates while this
// is true, since doing so would orphan in-flight spans against whichever
// tracer ends up handling their children.
func AnyRootSpanRecording() bool { return rootSpansRecording.Load() > 0 }

// registry is the provider proxy (component G): the lock-guarded set of
// registered tracers and the active-tracer slot. Alongside the root-span
// counter above, it is the package's shared mutable state; every notion of
// "current span" is answered through context.Context, never a global.
var registry = struct {
	mu      sync.RWMutex
	named   map[string]Tracer
	active  Tracer
	activeK string
}{named: map[string]Tracer{}, active: noop{}}

// Register adds a platform tracer under name. Idempotent: registering the
// same name twice replaces the prior entry.
func Register(name string, t Tracer) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.named[name] = t
}

// Deregister removes a platform tracer. Idempotent.
func Deregister(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.named, name)
	if registry.activeK == name {
		registry.active = noop{}
		registry.activeK = ""
	}
}

// SetActive installs the named tracer as the process-wide active delegate.
// It fails (returns false) if a root span is currently recording anywhere:
// swapping delegates mid-trace would orphan spans against a different
// project.
func SetActive(name string) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if AnyRootSpanRecording() {
		log.Error("judgment: refusing to activate tracer %q while a root span is recording", name)
		return false
	}
	t, ok := registry.named[name]
	if !ok {
		log.Error("judgment: no tracer registered under %q", name)
		return false
	}
	registry.active = t
	registry.activeK = name
	return true
}

// ActiveTracer returns the process-wide active tracer, or a local-only no-op
// tracer if none has been activated.
func ActiveTracer() Tracer {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return registry.active
}

// ForceFlush fans out to every registered tracer and awaits all of them.
func ForceFlush(ctx context.Context) error {
	registry.mu.RLock()
	ts := make([]Tracer, 0, len(registry.named))
	for _, t := range registry.named {
		ts = append(ts, t)
	}
	registry.mu.RUnlock()

	var errs []error
	for _, t := range ts {
		if err := t.ForceFlush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// Shutdown fans out to every registered tracer, awaits all of them, and
// clears the registry.
func Shutdown(ctx context.Context) error {
	registry.mu.Lock()
	ts := make([]Tracer, 0, len(registry.named))
	for _, t := range registry.named {
		ts = append(ts, t)
	}
	registry.named = map[string]Tracer{}
	registry.active = noop{}
	registry.activeK = ""
	registry.mu.Unlock()

	var errs []error
	for _, t := range ts {
		if err := t.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

// UseSpan installs span as active in a Context derived from ctx, runs fn,
// optionally records/stamps exceptions, and optionally ends span on exit.
// It is the central helper both the proxy and judgment/tracer's With use to
// get identical exception/activation semantics.
func UseSpan(ctx context.Context, span *Span, endOnExit, recordException, setStatusOnException bool, fn func(context.Context) error) (err error) {
	spanCtx := WithSpan(ctx, span)
	defer func() {
		if r := recover(); r != nil {
			if recordException {
				span.RecordError(fmt.Errorf("panic: %v", r))
			}
			if endOnExit {
				span.End()
			}
			panic(r)
		}
	}()
	err = fn(spanCtx)
	if err != nil {
		if recordException {
			span.RecordError(err)
		} else if setStatusOnException {
			span.SetStatus(StatusError, err.Error())
		}
	}
	if endOnExit {
		span.End()
	}
	return err
}

// noop is the delegate used when no platform tracer has been activated
// (i.e. judgeval.Start has not been called yet, or was never called at
// all). It still creates real spans and propagates real Context, so local
// With/Observe work before Start. It does not run lifecycle processors
// (child spans do not inherit customer/session/project-override
// attributes), does not export, and its AsyncEvaluate/AsyncTraceEvaluate
// do nothing.
type noop struct{}

func (noop) Span(ctx context.Context, name string, opts ...SpanOption) (*Span, context.Context) {
	parent, _ := Active(ctx)
	var s *Span
	if parent != nil {
		s = NewChildSpan(parent, name, opts...)
	} else {
		s = NewRootSpan(name, opts...)
	}
	return s, WithSpan(ctx, s)
}

func (n noop) With(ctx context.Context, name string, fn func(context.Context, *Span) error, opts ...SpanOption) error {
	span, spanCtx := n.Span(ctx, name, opts...)
	return UseSpan(spanCtx, span, true, true, true, func(c context.Context) error { return fn(c, span) })
}

func (noop) SetInput(ctx context.Context, data any) {
	if s, ok := Active(ctx); ok {
		enc, err := serializeOrRecord(s, data)
		if err == nil {
			s.SetAttribute(ext.Input, enc)
		}
	}
}

func (noop) SetOutput(ctx context.Context, data any) {
	if s, ok := Active(ctx); ok {
		enc, err := serializeOrRecord(s, data)
		if err == nil {
			s.SetAttribute(ext.Output, enc)
		}
	}
}

func (noop) SetAttribute(ctx context.Context, key string, value any) bool {
	s, ok := Active(ctx)
	if !ok {
		return false
	}
	return s.SetAttribute(key, value)
}

func (noop) SetAttributes(ctx context.Context, attrs map[string]any) {
	if s, ok := Active(ctx); ok {
		s.SetAttributes(attrs)
	}
}

func (noop) SetLLMSpan(ctx context.Context) {
	if s, ok := Active(ctx); ok {
		s.SetKind(ext.KindLLM)
	}
}

func (noop) SetToolSpan(ctx context.Context) {
	if s, ok := Active(ctx); ok {
		s.SetKind(ext.KindTool)
	}
}

func (noop) SetGeneralSpan(ctx context.Context) {
	if s, ok := Active(ctx); ok {
		s.SetKind(ext.KindSpan)
	}
}

func (noop) SetCustomerID(ctx context.Context, id string) {
	if s, ok := Active(ctx); ok {
		s.SetAttribute(ext.CustomerID, id)
	}
}

func (noop) SetSessionID(ctx context.Context, id string) {
	if s, ok := Active(ctx); ok {
		s.SetAttribute(ext.SessionID, id)
	}
}

func (noop) AsyncEvaluate(context.Context, eval.ScorerConfig, *eval.Example) {}
func (noop) AsyncTraceEvaluate(context.Context, eval.ScorerConfig)           {}
func (noop) ForceFlush(context.Context) error                               { return nil }
func (noop) Shutdown(context.Context) error                                 { return nil }

func serializeOrRecord(s *Span, data any) (any, error) {
	enc, err := valueSerialize(data)
	if err != nil {
		s.RecordError(err)
		return nil, err
	}
	return enc, nil
}

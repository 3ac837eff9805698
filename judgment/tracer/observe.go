// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package tracer

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

// ObserveOption configures the span Observe wraps a function in.
type ObserveOption func(*observeConfig)

type observeConfig struct {
	name string
	kind ext.SpanKindValue
}

// WithObserveName overrides the span name Observe would otherwise derive
// from the wrapped function's runtime name.
func WithObserveName(name string) ObserveOption {
	return func(c *observeConfig) { c.name = name }
}

// WithObserveKind sets the span kind Observe's span is created with.
func WithObserveKind(kind ext.SpanKindValue) ObserveOption {
	return func(c *observeConfig) { c.kind = kind }
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Observe wraps fn — whose first parameter must be a context.Context — so
// that every call starts a span, serializes the remaining arguments as the
// input attribute, runs fn, records the result as the output attribute, and
// ends the span. It detects four shapes by inspecting fn's reflected type:
// a plain "(R, error)"-returning function (shapes 1 and 2 of spec.md §4.H —
// Go has no async coloring, so the "asynchronous" shape is just this same
// shape called through judgeval.Go), a synchronous iter.Seq[V]/iter.Seq2[K,V]
// generator, or an asynchronous <-chan V generator.
//
// Go's reflection cannot recover parameter names (they are erased at
// compile time), so the input attribute uses positional keys arg0, arg1, …
func Observe[F any](t judgment.Tracer, fn F, opts ...ObserveOption) F {
	cfg := &observeConfig{kind: ext.KindSpan}
	for _, o := range opts {
		o(cfg)
	}

	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		panic("judgeval: Observe requires a function value")
	}
	if fnType.NumIn() == 0 || !fnType.In(0).Implements(ctxType) {
		panic("judgeval: observed function's first parameter must be context.Context")
	}

	name := cfg.name
	if name == "" {
		name = funcName(fnVal)
	}

	var wrapped reflect.Value
	switch {
	case isGeneratorOut(fnType):
		wrapped = reflect.MakeFunc(fnType, dispatchGenerator(t, name, cfg.kind, fnVal, fnType))
	case isChanOut(fnType):
		wrapped = reflect.MakeFunc(fnType, dispatchChan(t, name, cfg.kind, fnVal, fnType))
	default:
		wrapped = reflect.MakeFunc(fnType, dispatchSync(t, name, cfg.kind, fnVal, fnType))
	}
	return wrapped.Interface().(F)
}

func funcName(fnVal reflect.Value) string {
	full := runtime.FuncForPC(fnVal.Pointer()).Name()
	if i := strings.LastIndex(full, "."); i >= 0 {
		return full[i+1:]
	}
	return full
}

func inputMap(args []reflect.Value) map[string]any {
	m := make(map[string]any, len(args)-1)
	for i := 1; i < len(args); i++ {
		m[fmt.Sprintf("arg%d", i-1)] = args[i].Interface()
	}
	return m
}

func callWithCtx(fnVal reflect.Value, fnType reflect.Type, args []reflect.Value, ctx context.Context) []reflect.Value {
	callArgs := make([]reflect.Value, len(args))
	copy(callArgs, args)
	callArgs[0] = reflect.ValueOf(ctx)
	if fnType.IsVariadic() {
		return fnVal.CallSlice(callArgs)
	}
	return fnVal.Call(callArgs)
}

// isGeneratorOut reports whether fnType returns a single iter.Seq[V]- or
// iter.Seq2[K,V]-shaped value: a func taking one yield func (1 or 2 params,
// returning bool) and returning nothing.
func isGeneratorOut(fnType reflect.Type) bool {
	if fnType.NumOut() != 1 {
		return false
	}
	out := fnType.Out(0)
	if out.Kind() != reflect.Func || out.NumIn() != 1 || out.NumOut() != 0 {
		return false
	}
	yield := out.In(0)
	if yield.Kind() != reflect.Func || yield.NumOut() != 1 || yield.Out(0).Kind() != reflect.Bool {
		return false
	}
	return yield.NumIn() == 1 || yield.NumIn() == 2
}

// isChanOut reports whether fnType returns a single receive-capable
// channel value (the asynchronous-generator shape).
func isChanOut(fnType reflect.Type) bool {
	if fnType.NumOut() != 1 {
		return false
	}
	out := fnType.Out(0)
	return out.Kind() == reflect.Chan && out.ChanDir()&reflect.RecvDir != 0
}

func dispatchSync(t judgment.Tracer, name string, kind ext.SpanKindValue, fnVal reflect.Value, fnType reflect.Type) func([]reflect.Value) []reflect.Value {
	return func(args []reflect.Value) []reflect.Value {
		ctx := args[0].Interface().(context.Context)
		span, spanCtx := t.Span(ctx, name, judgment.WithKind(kind))
		t.SetInput(spanCtx, inputMap(args))

		hasErr := fnType.NumOut() > 0 && fnType.Out(fnType.NumOut()-1) == errorType

		var results []reflect.Value
		_ = judgment.UseSpan(spanCtx, span, true, true, true, func(c context.Context) error {
			results = callWithCtx(fnVal, fnType, args, c)
			if hasErr {
				if last := results[len(results)-1]; !last.IsNil() {
					return last.Interface().(error)
				}
			}
			if len(results) > 0 {
				t.SetOutput(c, results[0].Interface())
			}
			return nil
		})
		return results
	}
}

func dispatchGenerator(t judgment.Tracer, name string, kind ext.SpanKindValue, fnVal reflect.Value, fnType reflect.Type) func([]reflect.Value) []reflect.Value {
	return func(args []reflect.Value) []reflect.Value {
		ctx := args[0].Interface().(context.Context)
		span, spanCtx := t.Span(ctx, name, judgment.WithKind(kind))
		t.SetInput(spanCtx, inputMap(args))

		results := callWithCtx(fnVal, fnType, args, spanCtx)
		origSeq := results[0]
		seqType := origSeq.Type()
		yieldType := seqType.In(0)

		wrappedSeq := reflect.MakeFunc(seqType, func(inner []reflect.Value) []reflect.Value {
			yieldFn := inner[0]
			var lastVal any
			defer func() {
				if r := recover(); r != nil {
					span.RecordError(fmt.Errorf("panic: %v", r))
					span.End()
					panic(r)
				}
				t.SetOutput(spanCtx, lastVal)
				span.End()
			}()
			wrappedYield := reflect.MakeFunc(yieldType, func(yargs []reflect.Value) []reflect.Value {
				if len(yargs) == 1 {
					lastVal = yargs[0].Interface()
				} else {
					lastVal = map[string]any{"key": yargs[0].Interface(), "value": yargs[1].Interface()}
				}
				return yieldFn.Call(yargs)
			})
			origSeq.Call([]reflect.Value{wrappedYield})
			return nil
		})
		return []reflect.Value{wrappedSeq}
	}
}

func dispatchChan(t judgment.Tracer, name string, kind ext.SpanKindValue, fnVal reflect.Value, fnType reflect.Type) func([]reflect.Value) []reflect.Value {
	return func(args []reflect.Value) []reflect.Value {
		ctx := args[0].Interface().(context.Context)
		span, spanCtx := t.Span(ctx, name, judgment.WithKind(kind))
		t.SetInput(spanCtx, inputMap(args))

		results := callWithCtx(fnVal, fnType, args, spanCtx)
		origChan := results[0]
		elemType := origChan.Type().Elem()
		outChan := reflect.MakeChan(reflect.ChanOf(reflect.BothDir, elemType), 0)

		go func() {
			var last any
			defer func() {
				if r := recover(); r != nil {
					span.RecordError(fmt.Errorf("panic: %v", r))
				} else {
					t.SetOutput(spanCtx, last)
				}
				span.End()
				outChan.Close()
			}()
			for {
				v, ok := origChan.Recv()
				if !ok {
					return
				}
				last = v.Interface()
				outChan.Send(v)
			}
		}()

		recvChan := outChan.Convert(fnType.Out(0))
		return []reflect.Value{recvChan}
	}
}

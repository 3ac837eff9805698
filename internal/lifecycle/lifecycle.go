// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package lifecycle implements the on-start attribute-inheritance chain:
// each processor copies one attribute from the parent span to the child as
// it starts, so that customer/session/project-override set anywhere in a
// trace flow down to every descendant without the caller re-setting them.
package lifecycle

import (
	"github.com/JudgmentLabs/judgeval-go/internal/log"
	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

// Processor receives (span, parent) at span start and span at span end.
// OnStart must be idempotent and must never panic; OnEnd is a no-op for the
// processors this package provides but is part of the interface so future
// processors (and third-party ones) can hook span completion too.
type Processor interface {
	OnStart(span, parent *judgment.Span)
	OnEnd(span *judgment.Span)
}

// attributeInheritor copies one attribute key from parent to span, iff
// present on the parent and absent on the child.
type attributeInheritor struct {
	key string
}

func (a attributeInheritor) OnStart(span, parent *judgment.Span) {
	if parent == nil || span == nil {
		return
	}
	if _, already := span.Attribute(a.key); already {
		return
	}
	if v, ok := parent.Attribute(a.key); ok {
		span.SetAttribute(a.key, v)
	}
}

func (attributeInheritor) OnEnd(*judgment.Span) {}

// CustomerID propagates ext.CustomerID from parent to child.
var CustomerID Processor = attributeInheritor{key: ext.CustomerID}

// SessionID propagates ext.SessionID from parent to child.
var SessionID Processor = attributeInheritor{key: ext.SessionID}

// ProjectIDOverride propagates ext.ProjectIDOverride from parent to child.
var ProjectIDOverride Processor = attributeInheritor{key: ext.ProjectIDOverride}

// Default is the ordered chain judgment/tracer installs on every tracer:
// customer → session → project-override, per spec.md §4.D.
func Default() []Processor {
	return []Processor{CustomerID, SessionID, ProjectIDOverride}
}

// Chain runs every processor's OnStart against (span, parent) in order,
// recovering and logging any panic instead of letting it escape: lifecycle
// processors must not throw, and one misbehaving processor must not stop
// the rest of the chain or the span start itself.
func Chain(procs []Processor, span, parent *judgment.Span) {
	for _, p := range procs {
		runOnStart(p, span, parent)
	}
}

func runOnStart(p Processor, span, parent *judgment.Span) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("judgment: lifecycle processor %T panicked on start: %v", p, r)
		}
	}()
	p.OnStart(span, parent)
}

// ChainEnd runs every processor's OnEnd against span, swallowing panics the
// same way Chain does.
func ChainEnd(procs []Processor, span *judgment.Span) {
	for _, p := range procs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Warn("judgment: lifecycle processor %T panicked on end: %v", p, r)
				}
			}()
			p.OnEnd(span)
		}()
	}
}

// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package eval holds the wire-level data model for evaluation submission:
// the opaque Example property bag, scorer configuration, and the two
// EvaluationRun shapes. The example data object and the built-in/prompt
// scorers themselves are out of scope (spec.md §1) — only their serializable
// contract lives here.
package eval

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Example is an opaque {exampleId, createdAt, name?, properties} bundle
// submitted for scoring. Properties are flattened into the top level of its
// serialized form alongside example_id/created_at/name.
type Example struct {
	ExampleID  string
	CreatedAt  time.Time
	Name       string
	Properties map[string]any
}

// NewExample creates an Example from a property bag, generating a
// client-side example id (the backend does not hand one back synchronously
// for fire-and-forget submission, so judgeval mints a UUID up front exactly
// the way a client-generated idempotency key would be minted).
func NewExample(properties map[string]any) *Example {
	return &Example{
		ExampleID:  uuid.NewString(),
		CreatedAt:  time.Now(),
		Properties: properties,
	}
}

// WithName sets the optional display name and returns the Example for
// chaining.
func (e *Example) WithName(name string) *Example {
	e.Name = name
	return e
}

// ToModel returns the example's wire form: example_id, created_at, name (iff
// set), and every property flattened in at the top level.
func (e *Example) ToModel() map[string]any {
	m := make(map[string]any, len(e.Properties)+3)
	for k, v := range e.Properties {
		m[k] = v
	}
	m["example_id"] = e.ExampleID
	m["created_at"] = e.CreatedAt.UTC().Format(time.RFC3339Nano)
	if e.Name != "" {
		m["name"] = e.Name
	}
	return m
}

// MarshalJSON implements json.Marshaler using ToModel, so an Example
// embedded in an EvaluationRun serializes to its flattened wire form.
func (e *Example) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToModel())
}

// ScorerConfig identifies a scorer by name plus its serializable
// configuration; the scorer's implementation is out of scope here.
type ScorerConfig struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

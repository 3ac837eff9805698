// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package serialize implements the deterministic string encoding used to
// store arbitrary attribute values on a span. Scalars round-trip unchanged;
// everything else goes through encoding/json, whose map-key sorting already
// gives us determinism without a bespoke canonicalizer.
package serialize

import (
	"encoding/json"
	"strconv"
)

// IsScalar reports whether v is a string, bool, or any numeric kind — the
// three value shapes the wire protocol stores without serialization.
func IsScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Value encodes v into its attribute wire form. Scalars are returned
// unchanged (as their native Go type, so the exporter preserves them
// verbatim); everything else is JSON-encoded to a string. Errors are
// returned to the caller rather than swallowed: the serializer is
// user-facing data and a marshal failure is a user-body error, not an
// internal one.
func Value(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if IsScalar(v) {
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// String is a convenience wrapper around Value for call sites that always
// want a string (e.g. the pending-trace-eval attribute).
func String(v any) (string, error) {
	enc, err := Value(v)
	if err != nil {
		return "", err
	}
	switch t := enc.(type) {
	case string:
		return t, nil
	case nil:
		return "", nil
	default:
		return formatScalar(t), nil
	}
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

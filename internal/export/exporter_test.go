// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

func TestNoopExportSucceeds(t *testing.T) {
	s := judgment.NewRootSpan("root")
	defer s.End()
	require.NoError(t, Noop{}.Export(context.Background(), []*judgment.Span{s}))
}

func TestHTTPExportPostsOTLPEnvelope(t *testing.T) {
	var gotPath string
	var gotHeaders http.Header
	var body envelope

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exp := NewHTTP(Config{
		BaseURL:   srv.URL,
		APIKey:    "key-123",
		OrgID:     "org-1",
		ProjectID: "proj-1",
		Resource:  ResourceAttributes{ServiceName: "svc", SDKVersion: "0.1.0"},
	})

	s := judgment.NewRootSpan("op", judgment.WithKind(ext.KindLLM))
	s.SetAttribute("custom", "value")
	s.End()

	require.NoError(t, exp.Export(context.Background(), []*judgment.Span{s}))

	assert.Equal(t, ext.PathExportTraces, gotPath)
	assert.Equal(t, "Bearer key-123", gotHeaders.Get("Authorization"))
	assert.Equal(t, "org-1", gotHeaders.Get(ext.HeaderOrgID))
	assert.Equal(t, "proj-1", gotHeaders.Get(ext.HeaderProjectID))

	require.Len(t, body.ResourceSpans, 1)
	require.Len(t, body.ResourceSpans[0].ScopeSpans, 1)
	require.Len(t, body.ResourceSpans[0].ScopeSpans[0].Spans, 1)
	span := body.ResourceSpans[0].ScopeSpans[0].Spans[0]
	assert.Equal(t, "op", span.Name)
	assert.Equal(t, s.TraceID().String(), span.TraceID)
	assert.Equal(t, s.SpanID().String(), span.SpanID)
	assert.Equal(t, "LLM", span.Kind)
}

func TestHTTPExportEmptyBatchSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	exp := NewHTTP(Config{BaseURL: srv.URL, APIKey: "k", OrgID: "o", ProjectID: "p"})
	require.NoError(t, exp.Export(context.Background(), nil))
	assert.False(t, called)
}

func TestHTTPExportNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	exp := NewHTTP(Config{BaseURL: srv.URL, APIKey: "k", OrgID: "o", ProjectID: "p"})
	s := judgment.NewRootSpan("op")
	s.End()

	err := exp.Export(context.Background(), []*judgment.Span{s})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

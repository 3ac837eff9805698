// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

// Package api is the judgeval backend's REST surface: resolving a project
// name to a project id at startup, and enqueueing evaluation runs.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JudgmentLabs/judgeval-go/eval"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
)

// Client is the blocking HTTP client used once at startup (ResolveProject)
// and on every async evaluation submission (AddToRunEvalQueueExamples).
type Client struct {
	baseURL string
	apiKey  string
	orgID   string
	http    *http.Client
}

// NewClient builds a Client. If httpClient is nil a 30s-timeout default is
// used.
func NewClient(baseURL, apiKey, orgID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		orgID:   orgID,
		http:    httpClient,
	}
}

type resolveProjectRequest struct {
	ProjectName string `json:"project_name"`
}

type resolveProjectResponse struct {
	ProjectID string `json:"project_id"`
}

// ResolveProject exchanges a project name for the project id used on every
// subsequent header-stamped request. Called once, from judgeval.Start.
func (c *Client) ResolveProject(ctx context.Context, projectName string) (string, error) {
	var resp resolveProjectResponse
	if err := c.post(ctx, ext.PathResolveProject, "", resolveProjectRequest{ProjectName: projectName}, &resp); err != nil {
		return "", fmt.Errorf("judgment: resolve project %q: %w", projectName, err)
	}
	if resp.ProjectID == "" {
		return "", fmt.Errorf("judgment: resolve project %q: empty project id returned", projectName)
	}
	return resp.ProjectID, nil
}

// AddToRunEvalQueueExamples enqueues one evaluation run. It is fire-and-
// forget from the caller's perspective: judgment/tracer logs failures and
// never propagates them to user code, per spec.md §4.J.
func (c *Client) AddToRunEvalQueueExamples(ctx context.Context, projectID string, run *eval.Run) error {
	if err := c.post(ctx, ext.PathQueueExamples, projectID, run, nil); err != nil {
		return fmt.Errorf("judgment: queue eval run %q: %w", run.EvalName, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, projectID string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set(ext.HeaderOrgID, c.orgID)
	if projectID != "" {
		req.Header.Set(ext.HeaderProjectID, projectID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client calls a serve-mode server over HTTP. Cancellation and timeouts come
// from the per-call context; the transport itself imposes no deadline, since
// execute_bulk calls can legitimately run for minutes.
type Client struct {
	baseURL    string
	token      string
	actor      string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://127.0.0.1:7171". An empty token sends no Authorization header.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// SetActor sets the actor name reported with every call.
func (c *Client) SetActor(actor string) {
	c.actor = actor
}

// CallError is a failed call's server-reported error, with the taxonomy code
// when the server attached one.
type CallError struct {
	Status  int
	Code    string
	Message string
}

func (e *CallError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// call executes one operation, decoding the response into out when non-nil.
func (c *Client) call(ctx context.Context, operation string, args, out interface{}) error {
	method := operationToMethod(operation)
	if method == "" {
		return fmt.Errorf("unsupported operation: %s", operation)
	}

	body := []byte("{}")
	if args != nil {
		var err error
		body, err = json.Marshal(args)
		if err != nil {
			return fmt.Errorf("failed to marshal args: %w", err)
		}
	}

	url := c.baseURL + servicePathPrefix + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connect-Protocol-Version", "1")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		req.Header.Set("X-Lasso-Actor", c.actor)
	}
	if ClientVersion != "" {
		req.Header.Set("X-Lasso-Client-Version", ClientVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return &CallError{Status: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
		}
		return &CallError{Status: resp.StatusCode, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	var out PingResponse
	if err := c.call(ctx, OpPing, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.call(ctx, OpHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metrics fetches the server metrics snapshot.
func (c *Client) Metrics(ctx context.Context) (*MetricsSnapshot, error) {
	var out MetricsSnapshot
	if err := c.call(ctx, OpMetrics, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunQuery runs a query on the server and returns the issued handle.
func (c *Client) RunQuery(ctx context.Context, args RunQueryArgs) (*RunQueryResult, error) {
	var out RunQueryResult
	if err := c.call(ctx, OpRunQuery, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueHandle stores caller-supplied snapshots under a fresh handle.
func (c *Client) IssueHandle(ctx context.Context, args IssueHandleArgs) (*IssueHandleResult, error) {
	var out IssueHandleResult
	if err := c.call(ctx, OpIssueHandle, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveSelection previews which snapshots a selector picks.
func (c *Client) ResolveSelection(ctx context.Context, args ResolveSelectionArgs) (*ResolveSelectionResult, error) {
	var out ResolveSelectionResult
	if err := c.call(ctx, OpResolveSelection, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteBulk dispatches bulk actions over a selection.
func (c *Client) ExecuteBulk(ctx context.Context, args ExecuteBulkArgs) (*ExecuteBulkResult, error) {
	var out ExecuteBulkResult
	if err := c.call(ctx, OpExecuteBulk, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InspectHandle fetches one handle's metadata and sample.
func (c *Client) InspectHandle(ctx context.Context, token string) (*InspectHandleResult, error) {
	var out InspectHandleResult
	if err := c.call(ctx, OpInspectHandle, InspectHandleArgs{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListHandles enumerates handles on the server.
func (c *Client) ListHandles(ctx context.Context, includeExpired bool) (*ListHandlesResult, error) {
	var out ListHandlesResult
	if err := c.call(ctx, OpListHandles, ListHandlesArgs{IncludeExpired: includeExpired}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

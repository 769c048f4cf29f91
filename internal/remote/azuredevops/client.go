package azuredevops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/types"
)

// Client talks to the Azure DevOps REST API. Failures from the API come back
// as classified *remote.Error values so the dispatcher's retry logic can
// tell transient from permanent.
type Client struct {
	Organization string // Organization name or full URL
	Project      string
	PAT          string // Personal Access Token
	BaseURL      string // Derived from Organization
	HTTPClient   *http.Client
}

// NewClient creates an Azure DevOps client for one organization/project.
func NewClient(organization, project, pat string) *Client {
	// Accept either a bare organization name or a full URL.
	baseURL := organization
	if !strings.HasPrefix(organization, "http") {
		baseURL = fmt.Sprintf("https://dev.azure.com/%s", organization)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		Organization: organization,
		Project:      project,
		PAT:          pat,
		BaseURL:      baseURL,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// doRequest performs an authenticated request and returns the response body.
// Non-2xx statuses become classified remote errors.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, contentType, apiVersion string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	reqURL := c.BaseURL + path + separator + "api-version=" + apiVersion

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Azure DevOps uses Basic auth with empty username and PAT as password.
	auth := base64.StdEncoding.EncodeToString([]byte(":" + c.PAT))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	} else if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, remote.NewError(resp.StatusCode, apiErrorMessage(respBody))
	}

	return respBody, nil
}

// apiErrorMessage pulls the human message out of an ADO error payload,
// falling back to a bounded slice of the raw body.
func apiErrorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// RunWIQL executes a WIQL query and returns the referenced work item IDs in
// result order.
func (c *Client) RunWIQL(ctx context.Context, wiql string) ([]int, error) {
	path := fmt.Sprintf("/%s/_apis/wit/wiql", c.Project)

	respBody, err := c.doRequest(ctx, "POST", path, WIQLQueryRequest{Query: wiql}, "application/json", APIVersion)
	if err != nil {
		return nil, fmt.Errorf("WIQL query failed: %w", err)
	}

	var queryResp WIQLQueryResponse
	if err := json.Unmarshal(respBody, &queryResp); err != nil {
		return nil, fmt.Errorf("failed to parse WIQL response: %w", err)
	}

	ids := make([]int, len(queryResp.WorkItems))
	for i, ref := range queryResp.WorkItems {
		ids[i] = ref.ID
	}
	return ids, nil
}

// FetchWorkItems retrieves the given work items in batches, preserving the
// requested ID order in the result.
func (c *Client) FetchWorkItems(ctx context.Context, ids []int) ([]WorkItem, error) {
	if len(ids) == 0 {
		return []WorkItem{}, nil
	}

	byID := make(map[int]WorkItem, len(ids))
	for i := 0; i < len(ids); i += MaxPageSize {
		end := i + MaxPageSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		idStrings := make([]string, len(batch))
		for j, id := range batch {
			idStrings[j] = fmt.Sprintf("%d", id)
		}
		path := fmt.Sprintf("/%s/_apis/wit/workitems?ids=%s&$expand=fields",
			c.Project, strings.Join(idStrings, ","))

		respBody, err := c.doRequest(ctx, "GET", path, nil, "", APIVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch work items batch: %w", err)
		}

		var batchResp WorkItemBatchResponse
		if err := json.Unmarshal(respBody, &batchResp); err != nil {
			return nil, fmt.Errorf("failed to parse work items response: %w", err)
		}
		for _, wi := range batchResp.Value {
			byID[wi.ID] = wi
		}
	}

	// The batch endpoint does not guarantee request order; the snapshot list
	// must follow the WIQL result order.
	out := make([]WorkItem, 0, len(ids))
	for _, id := range ids {
		if wi, ok := byID[id]; ok {
			out = append(out, wi)
		}
	}
	return out, nil
}

// FetchWorkItem retrieves a single work item.
func (c *Client) FetchWorkItem(ctx context.Context, id int) (*WorkItem, error) {
	path := fmt.Sprintf("/%s/_apis/wit/workitems/%d", c.Project, id)

	respBody, err := c.doRequest(ctx, "GET", path, nil, "", APIVersion)
	if err != nil {
		return nil, err
	}

	var workItem WorkItem
	if err := json.Unmarshal(respBody, &workItem); err != nil {
		return nil, fmt.Errorf("failed to parse work item: %w", err)
	}
	return &workItem, nil
}

// UpdateWorkItem applies JSON-patch operations to a work item.
func (c *Client) UpdateWorkItem(ctx context.Context, id int, ops []types.PatchOperation) (*WorkItem, error) {
	path := fmt.Sprintf("/%s/_apis/wit/workitems/%d", c.Project, id)

	respBody, err := c.doRequest(ctx, "PATCH", path, ops, "application/json-patch+json", APIVersion)
	if err != nil {
		return nil, err
	}

	var workItem WorkItem
	if err := json.Unmarshal(respBody, &workItem); err != nil {
		return nil, fmt.Errorf("failed to parse update response: %w", err)
	}
	return &workItem, nil
}

// AddComment posts a discussion comment on a work item.
func (c *Client) AddComment(ctx context.Context, id int, text string) (*CommentResponse, error) {
	path := fmt.Sprintf("/%s/_apis/wit/workItems/%d/comments", c.Project, id)

	respBody, err := c.doRequest(ctx, "POST", path, CommentRequest{Text: text}, "application/json", commentsAPIVersion)
	if err != nil {
		return nil, err
	}

	var comment CommentResponse
	if err := json.Unmarshal(respBody, &comment); err != nil {
		return nil, fmt.Errorf("failed to parse comment response: %w", err)
	}
	return &comment, nil
}

// BuildWorkItemURL returns the web URL for a work item.
func (c *Client) BuildWorkItemURL(id int) string {
	return fmt.Sprintf("%s/%s/_workitems/edit/%d", c.BaseURL, c.Project, id)
}

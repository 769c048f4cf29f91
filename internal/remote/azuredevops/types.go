// Package azuredevops implements the remote collaborator contracts against
// the Azure DevOps REST API: WIQL queries into snapshot capture, and
// JSON-patch mutations for the bulk action catalog.
package azuredevops

import (
	"time"
)

// API constants
const (
	DefaultTimeout = 30 * time.Second
	MaxPageSize    = 200
	APIVersion     = "7.0"

	// Work item comments are still a preview surface in api-version 7.0.
	commentsAPIVersion = "7.0-preview.3"
)

// WorkItem is an Azure DevOps work item as returned by the REST API.
type WorkItem struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev"`
	URL    string         `json:"url"`
	Fields WorkItemFields `json:"fields"`
}

// WorkItemFields carries the field values lasso captures into snapshots.
type WorkItemFields struct {
	Title         string    `json:"System.Title"`
	State         string    `json:"System.State"`
	WorkItemType  string    `json:"System.WorkItemType"`
	AssignedTo    *Identity `json:"System.AssignedTo,omitempty"`
	ChangedDate   string    `json:"System.ChangedDate"`
	Tags          string    `json:"System.Tags,omitempty"` // Semicolon-separated
	IterationPath string    `json:"System.IterationPath,omitempty"`
}

// Identity is an Azure DevOps user identity.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

// WIQLQueryRequest is the request body for WIQL queries.
type WIQLQueryRequest struct {
	Query string `json:"query"`
}

// WIQLQueryResponse is the response from a WIQL query.
type WIQLQueryResponse struct {
	QueryType string        `json:"queryType"`
	AsOf      string        `json:"asOf"`
	WorkItems []WorkItemRef `json:"workItems"`
}

// WorkItemRef is a reference to a work item in WIQL results.
type WorkItemRef struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// WorkItemBatchResponse is the response from batch get.
type WorkItemBatchResponse struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

// CommentRequest is the body for posting a work item comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// CommentResponse is the created comment.
type CommentResponse struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

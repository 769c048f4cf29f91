package lasso_test

import (
	"context"
	"testing"

	"github.com/steveyegge/lasso"
	"github.com/steveyegge/lasso/internal/bulk"
	"github.com/steveyegge/lasso/internal/handle"
	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/remote/testutil"
)

func TestEmbeddedService(t *testing.T) {
	svc := lasso.New(nil, &testutil.StubMutator{}, nil, lasso.Options{})

	token, err := svc.IssueHandle([]lasso.WorkItemSnapshot{
		{ID: 1, Title: "One", State: "Active", Type: "Task"},
		{ID: 2, Title: "Two", State: "Active", Type: "Task"},
	}, "embedded snapshots", -1)
	if err != nil {
		t.Fatalf("IssueHandle failed: %v", err)
	}

	results, err := svc.ExecuteBulk(context.Background(), lasso.BulkRequest{
		Token:    token,
		Selector: lasso.SelectAll{},
		Actions:  []lasso.BulkAction{lasso.CommentAction{Text: "hello from embedder"}},
	})
	if err != nil {
		t.Fatalf("ExecuteBulk failed: %v", err)
	}
	if results[0].Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", results[0].Succeeded)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want lasso.Code
	}{
		{"handle not found", handle.ErrNotFound, lasso.CodeHandleNotFound},
		{"deadline", bulk.ErrDeadlineExceeded, lasso.CodeDeadlineExceeded},
		{"transient remote", remote.NewError(429, "slow down"), lasso.CodeTransient},
		{"permanent remote", remote.NewError(404, "gone"), lasso.CodeMutationFailed},
		{"context deadline", context.DeadlineExceeded, lasso.CodeDeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lasso.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
	if lasso.Classify(nil) != "" {
		t.Error("nil error should classify to empty code")
	}
}

// Test that exported constants have correct wire values
func TestConstants(t *testing.T) {
	if lasso.OutcomeSucceeded != "succeeded" {
		t.Errorf("OutcomeSucceeded = %q, want %q", lasso.OutcomeSucceeded, "succeeded")
	}
	if lasso.OutcomeFailed != "failed" {
		t.Errorf("OutcomeFailed = %q, want %q", lasso.OutcomeFailed, "failed")
	}
	if lasso.OutcomeSkipped != "skipped" {
		t.Errorf("OutcomeSkipped = %q, want %q", lasso.OutcomeSkipped, "skipped")
	}

	if lasso.ActionComment != "comment" {
		t.Errorf("ActionComment = %q, want %q", lasso.ActionComment, "comment")
	}
	if lasso.ActionTransition != "transition_state" {
		t.Errorf("ActionTransition = %q, want %q", lasso.ActionTransition, "transition_state")
	}
	if lasso.ActionEnhance != "enhance_content" {
		t.Errorf("ActionEnhance = %q, want %q", lasso.ActionEnhance, "enhance_content")
	}
}

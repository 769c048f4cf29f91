package lasso

import (
	"context"
	"errors"

	"github.com/steveyegge/lasso/internal/action"
	"github.com/steveyegge/lasso/internal/bulk"
	"github.com/steveyegge/lasso/internal/handle"
	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/selector"
)

// Code is the stable classification of a failure, shared by the serve layer
// (wire error codes) and the CLI (exit messages). Per-item failures inside a
// bulk result are reported as reasons on the item, not as codes; Code covers
// whole-call failures.
type Code string

const (
	CodeHandleNotFound   Code = "handle_not_found"
	CodeInvalidSelector  Code = "invalid_selector"
	CodeActionValidation Code = "action_validation_failed"
	CodeMutationFailed   Code = "mutation_failed"
	CodeTransient        Code = "transient_failure"
	CodeDeadlineExceeded Code = "deadline_exceeded"
	CodeInternal         Code = "internal_error"
)

// Classify maps an error to its taxonomy code. Unrecognized errors are
// internal.
func Classify(err error) Code {
	if err == nil {
		return ""
	}

	if errors.Is(err, handle.ErrNotFound) {
		return CodeHandleNotFound
	}
	var selErr *selector.InvalidSelectorError
	if errors.As(err, &selErr) {
		return CodeInvalidSelector
	}
	var valErr *action.ValidationError
	if errors.As(err, &valErr) {
		return CodeActionValidation
	}
	if errors.Is(err, bulk.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return CodeDeadlineExceeded
	}
	if remote.IsRetryable(err) {
		return CodeTransient
	}
	var remErr *remote.Error
	if errors.As(err, &remErr) {
		return CodeMutationFailed
	}
	return CodeInternal
}

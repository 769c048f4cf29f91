// Package lasso provides a minimal public API for embedding the bulk-operation
// safety layer in other Go programs.
//
// Most callers should run the lasso CLI or serve mode. This package exports
// only the essential types and the service constructor for Go programs that
// want to drive the handle store and dispatcher programmatically with their
// own remote adapters.
package lasso

import (
	"log/slog"
	"time"

	"github.com/steveyegge/lasso/internal/bulk"
	"github.com/steveyegge/lasso/internal/handle"
	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/service"
	"github.com/steveyegge/lasso/internal/types"
)

// Core types for working with handles and bulk operations
type (
	WorkItemSnapshot = types.WorkItemSnapshot
	Selector         = types.Selector
	SelectAll        = types.SelectAll
	SelectByIndex    = types.SelectByIndex
	SelectByCriteria = types.SelectByCriteria
	BulkAction       = types.BulkAction
	BulkResult       = types.BulkResult
	ItemResult       = types.ItemResult
	HandleMeta       = types.HandleMeta
)

// Action variants
type (
	CommentAction       = types.CommentAction
	FieldUpdateAction   = types.FieldUpdateAction
	AssignAction        = types.AssignAction
	RemoveAction        = types.RemoveAction
	AddTagAction        = types.AddTagAction
	RemoveTagAction     = types.RemoveTagAction
	TransitionAction    = types.TransitionAction
	MoveIterationAction = types.MoveIterationAction
	ChangeTypeAction    = types.ChangeTypeAction
	EnhanceAction       = types.EnhanceAction
)

// Outcome constants
const (
	OutcomeSucceeded = types.OutcomeSucceeded
	OutcomeFailed    = types.OutcomeFailed
	OutcomeSkipped   = types.OutcomeSkipped
)

// Action kind constants
const (
	ActionComment     = types.ActionComment
	ActionFieldUpdate = types.ActionFieldUpdate
	ActionAssign      = types.ActionAssign
	ActionRemove      = types.ActionRemove
	ActionAddTag      = types.ActionAddTag
	ActionRemoveTag   = types.ActionRemoveTag
	ActionTransition  = types.ActionTransition
	ActionMove        = types.ActionMove
	ActionChangeType  = types.ActionChangeType
	ActionEnhance     = types.ActionEnhance
)

// Service is the tool surface: RunQuery, IssueHandle, ResolveSelection,
// ExecuteBulk, InspectHandle, ListHandles.
type Service = service.Service

// BulkRequest is one ExecuteBulk call.
type BulkRequest = service.BulkRequest

// Collaborator contracts an embedder supplies.
type (
	QueryExecutor    = remote.QueryExecutor
	Mutator          = remote.Mutator
	ContentGenerator = remote.ContentGenerator
)

// Adapter vocabulary: what Mutator and ContentGenerator implementations
// return and receive.
type (
	ApplyResult    = remote.ApplyResult
	RemoteError    = remote.Error
	PatchOperation = types.PatchOperation
	EnhanceKind    = types.EnhanceKind
	EnhanceStyle   = types.EnhanceStyle
)

// Enhance kinds
const (
	EnhanceDescription = types.EnhanceDescription
	EnhanceCriteria    = types.EnhanceCriteria
	EnhanceEstimate    = types.EnhanceEstimate
)

// Options tunes an embedded service. Zero values pick defaults.
type Options struct {
	HandleTTL     time.Duration
	MaxConcurrent int
	MaxAttempts   int
	Logger        *slog.Logger
}

// New assembles a ready-to-use service over the given collaborators. The
// executor and generator may be nil when the embedder does not run queries
// or enhance actions through this instance.
func New(executor QueryExecutor, mutator Mutator, generator ContentGenerator, opts Options) *Service {
	store := handle.NewStore(handle.Config{DefaultTTL: opts.HandleTTL, Logger: opts.Logger})
	dispatcher := bulk.NewDispatcher(mutator, generator, bulk.Config{
		MaxConcurrent: opts.MaxConcurrent,
		MaxAttempts:   opts.MaxAttempts,
		Logger:        opts.Logger,
	})
	return service.New(store, executor, dispatcher, service.Config{Logger: opts.Logger})
}

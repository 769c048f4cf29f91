package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/steveyegge/lasso"
	"github.com/steveyegge/lasso/internal/service"
)

// Server dispatches protocol requests onto a service instance. It is
// transport-agnostic: the HTTP layer and in-process callers both go through
// Handle. Safe for concurrent use.
type Server struct {
	svc      *service.Service
	logger   *slog.Logger
	metrics  *Metrics
	version  string
	start    time.Time
	handlers map[string]func(context.Context, *Request) *Response
}

// ServerConfig carries server construction options.
type ServerConfig struct {
	Version string
	Logger  *slog.Logger
}

// NewServer creates a server over the given service.
func NewServer(svc *service.Service, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		svc:     svc,
		logger:  logger,
		metrics: NewMetrics(),
		version: version,
		start:   time.Now(),
	}
	s.metrics.SetSlowOpCallback(func(op string, latency time.Duration) {
		logger.Warn("slow operation",
			"operation", op,
			"latency_ms", float64(latency)/float64(time.Millisecond))
	})
	s.initHandlers()
	return s
}

func (s *Server) initHandlers() {
	s.handlers = map[string]func(context.Context, *Request) *Response{
		OpPing:             s.handlePing,
		OpHealth:           s.handleHealth,
		OpMetrics:          s.handleMetrics,
		OpRunQuery:         s.handleRunQuery,
		OpIssueHandle:      s.handleIssueHandle,
		OpResolveSelection: s.handleResolveSelection,
		OpExecuteBulk:      s.handleExecuteBulk,
		OpInspectHandle:    s.handleInspectHandle,
		OpListHandles:      s.handleListHandles,
	}
}

// Metrics returns the server's metrics collector.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handle processes one request and returns its response.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	handler, ok := s.handlers[req.Operation]
	if !ok {
		return errorResponse(fmt.Errorf("unknown operation: %s", req.Operation))
	}

	start := time.Now()
	resp := handler(ctx, req)
	latency := time.Since(start)

	s.metrics.RecordRequest(req.Operation, latency)
	if !resp.Success {
		s.metrics.RecordError(req.Operation)
	}
	s.logger.Debug("request handled",
		"operation", req.Operation,
		"actor", req.Actor,
		"success", resp.Success,
		"duration_ms", float64(latency)/float64(time.Millisecond))
	return resp
}

func (s *Server) handlePing(_ context.Context, _ *Request) *Response {
	return successResponse(PingResponse{Message: "pong", Version: s.version})
}

func (s *Server) handleHealth(_ context.Context, _ *Request) *Response {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	return successResponse(HealthResponse{
		Status:        "healthy",
		Version:       s.version,
		Uptime:        time.Since(s.start).Seconds(),
		ActiveHandles: len(s.svc.ListHandles(false)),
		MemoryAllocMB: memStats.Alloc / 1024 / 1024,
	})
}

func (s *Server) handleMetrics(_ context.Context, _ *Request) *Response {
	return successResponse(s.metrics.Snapshot(len(s.svc.ListHandles(false))))
}

func (s *Server) handleRunQuery(ctx context.Context, req *Request) *Response {
	var args RunQueryArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	if args.Query == "" {
		return errorResponse(errors.New("query is required"))
	}
	token, count, err := s.svc.RunQuery(ctx, args.Query, ttlFromSeconds(args.TTLSeconds))
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(RunQueryResult{Token: token, ItemCount: count})
}

func (s *Server) handleIssueHandle(_ context.Context, req *Request) *Response {
	var args IssueHandleArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	token, err := s.svc.IssueHandle(args.Snapshots, args.SourceQuery, ttlFromSeconds(args.TTLSeconds))
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(IssueHandleResult{Token: token, ItemCount: len(args.Snapshots)})
}

func (s *Server) handleResolveSelection(_ context.Context, req *Request) *Response {
	var args ResolveSelectionArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	sel, err := args.Selector.Decode()
	if err != nil {
		return errorResponse(err)
	}
	items, err := s.svc.ResolveSelection(args.Token, sel)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(ResolveSelectionResult{Items: items, Count: len(items)})
}

func (s *Server) handleExecuteBulk(ctx context.Context, req *Request) *Response {
	var args ExecuteBulkArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	sel, err := args.Selector.Decode()
	if err != nil {
		return errorResponse(err)
	}
	actions, err := DecodeActions(args.Actions)
	if err != nil {
		return errorResponse(err)
	}
	if len(actions) == 0 {
		return errorResponse(errors.New("at least one action is required"))
	}

	results, err := s.svc.ExecuteBulk(ctx, service.BulkRequest{
		Token:       args.Token,
		Selector:    sel,
		Actions:     actions,
		DryRun:      args.DryRun,
		StopOnError: args.StopOnError,
		Deadline:    time.Duration(args.DeadlineMS) * time.Millisecond,
	})
	if err != nil {
		// Deadline expiry still produced partial per-item outcomes; those
		// go back as data with the code attached. Anything else failed
		// before dispatch and carries no results.
		if code := lasso.Classify(err); code == lasso.CodeDeadlineExceeded && results != nil {
			return successResponse(ExecuteBulkResult{
				Results: results,
				Code:    string(code),
				Error:   err.Error(),
			})
		}
		return errorResponse(err)
	}
	return successResponse(ExecuteBulkResult{Results: results})
}

func (s *Server) handleInspectHandle(_ context.Context, req *Request) *Response {
	var args InspectHandleArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	ins, err := s.svc.InspectHandle(args.Token)
	if err != nil {
		return errorResponse(err)
	}
	return successResponse(InspectHandleResult{HandleMeta: ins.HandleMeta, Sample: ins.Sample})
}

func (s *Server) handleListHandles(_ context.Context, req *Request) *Response {
	var args ListHandlesArgs
	if err := unmarshalArgs(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	handles := s.svc.ListHandles(args.IncludeExpired)
	return successResponse(ListHandlesResult{Handles: handles, Count: len(handles)})
}

// unmarshalArgs decodes request arguments; missing args decode as the zero
// value so argument-free calls can omit the field.
func unmarshalArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// ttlFromSeconds maps the wire TTL to store semantics: non-positive values
// select the server default.
func ttlFromSeconds(sec int) time.Duration {
	if sec <= 0 {
		return -1
	}
	return time.Duration(sec) * time.Second
}

func successResponse(v interface{}) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResponse(fmt.Errorf("marshal response: %w", err))
	}
	return &Response{Success: true, Data: data}
}

func errorResponse(err error) *Response {
	return &Response{
		Success: false,
		Error:   err.Error(),
		Code:    string(lasso.Classify(err)),
	}
}

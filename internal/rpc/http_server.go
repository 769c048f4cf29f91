package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/lasso"
)

// servicePathPrefix is the Connect-RPC style route all tool operations hang
// off of: POST /lasso.v1.LassoService/<Method>.
const servicePathPrefix = "/lasso.v1.LassoService/"

// maxRequestBody bounds RPC request bodies. Snapshot uploads through
// issue_handle are the largest legitimate payload.
const maxRequestBody = 10 * 1024 * 1024

// HTTPServer exposes a Server over HTTP.
type HTTPServer struct {
	rpcServer  *Server
	httpServer *http.Server
	listener   net.Listener
	addr       string
	token      string
	ready      chan struct{}
	mu         sync.RWMutex
}

// NewHTTPServer creates an HTTP wrapper around an RPC server. An empty token
// disables authentication.
func NewHTTPServer(rpcServer *Server, addr, token string) *HTTPServer {
	return &HTTPServer{
		rpcServer: rpcServer,
		addr:      addr,
		token:     token,
		ready:     make(chan struct{}),
	}
}

// Handler builds the route table. Exposed so tests can drive the server
// without a listener.
func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Probe endpoints, no auth required.
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReadiness)
	mux.HandleFunc("/metrics", h.handleMetrics)

	// Tool operations, auth required.
	mux.HandleFunc(servicePathPrefix, h.handleRPC)

	return mux
}

// Start listens on the configured address and serves until ctx is done.
// Returns nil on graceful shutdown.
func (h *HTTPServer) Start(ctx context.Context) error {
	// WriteTimeout stays unset: execute_bulk calls carry their own deadline
	// and can legitimately outlast any fixed cap.
	h.httpServer = &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.listener = listener
	h.mu.Unlock()
	close(h.ready)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.httpServer.Shutdown(shutdownCtx)
	}()

	if err := h.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// WaitReady returns a channel closed once the listener is bound.
func (h *HTTPServer) WaitReady() <-chan struct{} {
	return h.ready
}

// Addr returns the address the server is listening on.
func (h *HTTPServer) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.addr
}

// handleHealth handles GET /healthz.
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := h.rpcServer.Handle(r.Context(), &Request{Operation: OpHealth})

	var health HealthResponse
	if resp.Success && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &health); err != nil {
			health.Error = fmt.Sprintf("failed to parse health response: %v", err)
		}
	}
	if health.Status == "" {
		if resp.Success {
			health.Status = "healthy"
		} else {
			health.Status = "unhealthy"
			if health.Error == "" {
				health.Error = resp.Error
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}

// handleReadiness handles GET /readyz.
func (h *HTTPServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := h.rpcServer.Handle(r.Context(), &Request{Operation: OpHealth})

	w.Header().Set("Content-Type", "application/json")
	if !resp.Success {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "not ready",
			"reason": resp.Error,
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ready",
	})
}

// handleMetrics handles GET /metrics.
func (h *HTTPServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := h.rpcServer.Handle(r.Context(), &Request{Operation: OpMetrics})

	w.Header().Set("Content-Type", "application/json")
	if resp.Success && len(resp.Data) > 0 {
		_, _ = w.Write(resp.Data)
	} else {
		_, _ = w.Write([]byte("{}"))
	}
}

// handleRPC handles POST /lasso.v1.LassoService/{method}.
func (h *HTTPServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.token != "" {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			h.writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
			return
		}
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != h.token {
			h.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
	}

	method := strings.TrimPrefix(r.URL.Path, servicePathPrefix)
	if method == "" || method == r.URL.Path {
		h.writeError(w, http.StatusNotFound, "invalid endpoint")
		return
	}
	operation := methodToOperation(method)
	if operation == "" {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown method: %s", method))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	req := &Request{
		Operation:     operation,
		Args:          body,
		Actor:         r.Header.Get("X-Lasso-Actor"),
		RequestID:     r.Header.Get("X-Request-ID"),
		ClientVersion: r.Header.Get("X-Lasso-Client-Version"),
	}
	resp := h.rpcServer.Handle(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	if !resp.Success {
		w.WriteHeader(statusForCode(resp.Code))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": resp.Error,
			"code":  resp.Code,
		})
		return
	}
	if len(resp.Data) > 0 {
		_, _ = w.Write(resp.Data)
	} else {
		_, _ = w.Write([]byte("{}"))
	}
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// statusForCode maps taxonomy codes onto HTTP statuses.
func statusForCode(code string) int {
	switch lasso.Code(code) {
	case lasso.CodeHandleNotFound:
		return http.StatusNotFound
	case lasso.CodeInvalidSelector, lasso.CodeActionValidation:
		return http.StatusBadRequest
	case lasso.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case lasso.CodeTransient:
		return http.StatusServiceUnavailable
	case lasso.CodeMutationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// methodToOperation maps Connect-RPC style method names to operations.
func methodToOperation(method string) string {
	methodMap := map[string]string{
		"Ping":             OpPing,
		"Health":           OpHealth,
		"Metrics":          OpMetrics,
		"RunQuery":         OpRunQuery,
		"IssueHandle":      OpIssueHandle,
		"ResolveSelection": OpResolveSelection,
		"ExecuteBulk":      OpExecuteBulk,
		"InspectHandle":    OpInspectHandle,
		"ListHandles":      OpListHandles,
	}
	return methodMap[method]
}

// operationToMethod is the inverse of methodToOperation, used by the client.
func operationToMethod(operation string) string {
	methodMap := map[string]string{
		OpPing:             "Ping",
		OpHealth:           "Health",
		OpMetrics:          "Metrics",
		OpRunQuery:         "RunQuery",
		OpIssueHandle:      "IssueHandle",
		OpResolveSelection: "ResolveSelection",
		OpExecuteBulk:      "ExecuteBulk",
		OpInspectHandle:    "InspectHandle",
		OpListHandles:      "ListHandles",
	}
	return methodMap[operation]
}

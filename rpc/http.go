package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stablevault/core"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes the vault ledger over a single JSON-RPC endpoint. Mutating
// methods require the shared bearer token when one is configured via
// STABLEVAULT_RPC_TOKEN.
type Server struct {
	node      *core.Node
	authToken string
	limiter   *rateLimiter
	logger    *slog.Logger
}

// NewServer constructs an RPC server around the node. requestsPerMinute and
// burst bound each client's request rate.
func NewServer(node *core.Node, logger *slog.Logger, requestsPerMinute float64, burst int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	token := strings.TrimSpace(os.Getenv("STABLEVAULT_RPC_TOKEN"))
	return &Server{
		node:      node,
		authToken: token,
		limiter:   newRateLimiter(requestsPerMinute, burst),
		logger:    logger,
	}
}

// Start blocks serving the RPC endpoint, the prometheus scrape endpoint and a
// liveness probe.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.allow(clientID(r)) {
		writeError(w, nil, codeRateLimited, "rate limit exceeded")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, nil, codeInvalidRequest, "unable to read request body")
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, req.ID, codeInvalidRequest, "unsupported JSON-RPC version")
		return
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		writeError(w, req.ID, codeInvalidRequest, "method required")
		return
	}
	if mutatingMethods[method] && !s.authorized(r) {
		writeError(w, req.ID, codeUnauthorized, "unauthorized")
		return
	}

	result, rpcErr := s.dispatch(method, req.Params)
	if rpcErr != nil {
		s.logger.Debug("rpc call failed", "method", method, "code", rpcErr.Code, "message", rpcErr.Message)
		writeRPCError(w, req.ID, rpcErr)
		return
	}
	writeResult(w, req.ID, result)
}

// authorized enforces the shared bearer token. An empty configured token
// disables auth, which is only acceptable for local development.
func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) == 1
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	writeJSON(w, rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	writeRPCError(w, id, &rpcError{Code: code, Message: message})
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, rpcErr *rpcError) {
	writeJSON(w, rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}

func writeJSON(w http.ResponseWriter, payload rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Fprintf(os.Stderr, "rpc: write response: %v\n", err)
	}
}

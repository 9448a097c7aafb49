// SPDX-License-Identifier: Apache-2.0

// Package server exposes the classification pipeline over HTTP+JSON.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/activa-ai/activa/pkg/errors"
	"github.com/activa-ai/activa/pkg/pipeline"
)

// Scanner runs one classification for a subject. Satisfied by
// pipeline.Service.
type Scanner interface {
	Scan(ctx context.Context, clientID int64, traceID string) (pipeline.ScanResponse, error)
}

// Server routes HTTP requests to the scanner.
type Server struct {
	scanner Scanner
	logger  *slog.Logger
}

// New creates the HTTP server wrapper.
func New(scanner Scanner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{scanner: scanner, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /agent/scan", s.handleScan)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scanRequest struct {
	ClientID *int64 `json:"client_id"`
	TraceID  string `json:"trace_id"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.New(errors.CodeInvalidInput, "invalid request body", err))
		return
	}
	if req.ClientID == nil {
		s.writeError(w, r, errors.New(errors.CodeInvalidInput, "client_id is required", nil))
		return
	}

	resp, err := s.scanner.Scan(r.Context(), *req.ClientID, req.TraceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps the typed error onto its HTTP status and the external
// {error, traceback} contract, where traceback carries the error chain and
// its context for operators.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := errors.AsError(err)
	s.logger.ErrorContext(r.Context(), "request failed",
		"path", r.URL.Path,
		"code", ae.Code,
		"error", ae,
	)
	writeJSON(w, ae.StatusCode, map[string]string{
		"error":     ae.Message,
		"traceback": traceback(ae),
	})
}

func traceback(ae *errors.Error) string {
	var b strings.Builder
	b.WriteString(ae.Error())
	if len(ae.Context) > 0 {
		keys := make([]string, 0, len(ae.Context))
		for k := range ae.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, ae.Context[k])
		}
		b.WriteString("}")
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

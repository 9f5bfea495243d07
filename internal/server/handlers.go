package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapquery/internal/metrics"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/rewriter"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type queryRequest struct {
	SQL       string `json:"sql"`
	Limit     *int64 `json:"limit,omitempty"`
	Statement bool   `json:"statement,omitempty"`
}

// ExecutionResponse describes a submitted query.
type ExecutionResponse struct {
	ID      string `json:"id"`
	InfoURI string `json:"info_uri"`
	NextURI string `json:"next_uri,omitempty"`
	State   string `json:"state"`
	Query   string `json:"query"`
	Error   string `json:"error,omitempty"`
}

// MappingResponse is one resolved table.
type MappingResponse struct {
	Reference string `json:"reference"`
	Path      string `json:"path"`
}

// RewriteResponse is the result of a dry run.
type RewriteResponse struct {
	SQL    string            `json:"sql"`
	Kind   string            `json:"kind"`
	Limit  string            `json:"limit,omitempty"`
	Tables []MappingResponse `json:"tables"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	project := chi.URLParam(r, "project")

	var (
		exec core.Execution
		err  error
	)
	if req.Limit != nil {
		exec, err = s.exec.ExecuteQueryWithLimit(r.Context(), project, req.SQL, *req.Limit)
	} else {
		exec, err = s.exec.ExecuteQuery(r.Context(), project, req.SQL)
	}
	s.respondExecution(w, exec, err)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	exec, err := s.exec.ExecuteStatement(r.Context(), chi.URLParam(r, "project"), req.SQL)
	s.respondExecution(w, exec, err)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	if !s.allowRaw {
		writeJSON(w, http.StatusForbidden, ErrorResponse{
			Error: "raw queries are disabled\nHint: set server.allow_raw to enable them",
			Type:  "forbidden",
		})
		return
	}
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	exec, err := s.exec.ExecuteRawQuery(r.Context(), req.SQL)
	s.respondExecution(w, exec, err)
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	res, err := s.exec.Rewrite(chi.URLParam(r, "project"), req.SQL, req.Limit, req.Statement)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewRewriteResponse(res))
}

// NewRewriteResponse converts a rewriter result for the wire.
func NewRewriteResponse(res *rewriter.Result) RewriteResponse {
	out := RewriteResponse{
		SQL:    res.SQL,
		Kind:   res.Kind.String(),
		Limit:  res.LimitText,
		Tables: make([]MappingResponse, 0, len(res.Mappings)),
	}
	for _, m := range res.Mappings {
		out.Tables = append(out.Tables, MappingResponse{Reference: m.Reference.String(), Path: m.Path.String()})
	}
	return out
}

// NewExecutionResponse converts an execution for the wire.
func NewExecutionResponse(exec core.Execution) ExecutionResponse {
	out := ExecutionResponse{
		ID:      exec.ID(),
		InfoURI: exec.InfoURI(),
		NextURI: exec.NextURI(),
		State:   exec.State(),
		Query:   exec.Query(),
	}
	if err := exec.Err(); err != nil {
		out.Error = err.Error()
	}
	return out
}

func (s *Server) respondExecution(w http.ResponseWriter, exec core.Execution, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, NewExecutionResponse(exec))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, &core.ArgumentError{Field: "request body", Reason: err.Error()})
		return req, false
	}
	if strings.TrimSpace(req.SQL) == "" {
		s.writeError(w, &core.ArgumentError{Field: "sql", Reason: "is required"})
		return req, false
	}
	return req, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Type: metrics.Outcome(err)})
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var (
		limit     *core.LimitExceededError
		transport *core.TransportError
		syntax    *core.SyntaxError
		schema    *core.UnknownSchemaError
		arg       *core.ArgumentError
	)
	switch {
	case errors.As(err, &limit):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transport):
		return http.StatusBadGateway
	case errors.As(err, &syntax), errors.As(err, &schema), errors.As(err, &arg):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

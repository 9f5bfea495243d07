// Package dispatch submits statements to a Presto or Trino coordinator
// over its HTTP statement protocol.
//
// Only submission is handled: Start posts the text, decodes the first
// response and returns. Polling nextUri is left to the caller.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// StatementPath is the submission endpoint.
const StatementPath = "/v1/statement"

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// Dispatcher sends statements for one engine. Safe for concurrent use.
type Dispatcher struct {
	client *http.Client
	cfg    core.EngineConfig
	opts   SessionOptions
	logger *slog.Logger
}

// New creates a Dispatcher. The client is shared and never closed here.
func New(client *http.Client, cfg core.EngineConfig, opts SessionOptions, logger *slog.Logger) (*Dispatcher, error) {
	if client == nil {
		return nil, &core.ArgumentError{Field: "http client", Reason: "is required"}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	// Fail fast on a bad address.
	if _, err := NewSession(cfg, opts); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{client: client, cfg: cfg, opts: opts.withDefaults(), logger: logger}, nil
}

// Session returns a fresh session descriptor.
func (d *Dispatcher) Session() (*Session, error) {
	return NewSession(d.cfg, d.opts)
}

// Start submits query and returns once the engine has acknowledged it.
func (d *Dispatcher) Start(ctx context.Context, query string) (*Execution, error) {
	session, err := d.Session()
	if err != nil {
		return nil, err
	}
	target := session.Server.JoinPath(StatementPath).String()
	trace := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(query))
	if err != nil {
		return nil, &core.TransportError{Op: "build request", URL: target, Err: err}
	}
	session.apply(req.Header, trace)

	d.logger.Debug("submitting statement",
		slog.String("url", target),
		slog.String("catalog", session.Catalog),
		slog.String("trace_token", trace))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &core.TransportError{Op: "POST", URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var cause error
		if msg := strings.TrimSpace(string(body)); msg != "" {
			cause = errors.New(msg)
		}
		return nil, &core.TransportError{Op: "POST", URL: target, StatusCode: resp.StatusCode, Err: cause}
	}

	var results QueryResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &core.TransportError{
			Op:         "decode response",
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("invalid query results: %w", err),
		}
	}
	if results.ID == "" {
		return nil, &core.TransportError{
			Op:         "decode response",
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        errors.New("response has no query id"),
		}
	}

	d.logger.Debug("statement accepted",
		slog.String("query_id", results.ID),
		slog.String("state", results.Stats.State))

	return &Execution{results: results, query: query, trace: trace}, nil
}

// apply writes the session headers for one submission.
func (s *Session) apply(h http.Header, trace string) {
	p := s.Protocol.headerPrefix()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set(p+"User", s.User)
	h.Set(p+"Source", s.Source)
	h.Set(p+"Catalog", s.Catalog)
	h.Set(p+"Schema", s.Schema)
	h.Set(p+"Time-Zone", s.TimeZone)
	h.Set(p+"Language", s.Locale.String())
	h.Set(p+"Trace-Token", trace)
	for k, v := range s.Properties {
		h.Add(p+"Session", k+"="+v)
	}
	if s.CompressionDisabled {
		h.Set("Accept-Encoding", "identity")
	}
}

// Package executor is the entry point for running project queries against
// the engine.
//
// An Executor rewrites project-relative SQL into physical table paths and
// submits it. It returns as soon as the engine has accepted the statement;
// callers follow the returned core.Execution themselves.
//
// # Usage
//
//	exec, err := executor.New(executor.Config{
//		Submit: core.EngineConfig{Address: "presto:8080", ColdStorageConnector: "hive"},
//		Logger: logger,
//	})
//	if err != nil {
//		return err
//	}
//	q, err := exec.ExecuteQueryWithLimit(ctx, "acme", "SELECT * FROM events", 1000)
package executor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/leapstack-labs/leapquery/internal/metrics"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dispatch"
	"github.com/leapstack-labs/leapquery/pkg/parser"
	"github.com/leapstack-labs/leapquery/pkg/resolver"
	"github.com/leapstack-labs/leapquery/pkg/rewriter"
)

// Mode names used in logs and metrics.
const (
	ModeQuery     = "query"
	ModeStatement = "statement"
	ModeRaw       = "raw"
)

// Config wires an Executor.
type Config struct {
	// Submit is the engine statements are sent to. Its connector is the
	// session catalog.
	Submit core.EngineConfig
	// Catalog supplies the default catalog for unqualified tables.
	// Defaults to Submit when empty.
	Catalog core.EngineConfig

	// HTTPClient is shared across calls. When nil one is built from HTTP.
	HTTPClient *http.Client
	HTTP       dispatch.HTTPConfig

	Rewrite       rewriter.Options
	UnknownSchema resolver.UnknownSchemaMode
	Session       dispatch.SessionOptions

	Logger *slog.Logger
}

// Executor rewrites and submits statements. Safe for concurrent use.
type Executor struct {
	rewriter   *rewriter.Rewriter
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// New validates cfg and builds the parser, resolver, rewriter and dispatcher.
func New(cfg Config) (*Executor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := cfg.Submit.Validate(); err != nil {
		return nil, err
	}
	catalog := cfg.Catalog
	if catalog == (core.EngineConfig{}) {
		catalog = cfg.Submit
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		var err error
		client, err = dispatch.NewHTTPClient(cfg.HTTP)
		if err != nil {
			return nil, err
		}
	}

	res, err := resolver.New(catalog.ColdStorageConnector, resolver.WithUnknownSchemaMode(cfg.UnknownSchema))
	if err != nil {
		return nil, err
	}
	p := parser.New(parser.WithLockObserver(func(d time.Duration) {
		metrics.ParseLockWait.Observe(d.Seconds())
	}))

	d, err := dispatch.New(client, cfg.Submit, cfg.Session, logger)
	if err != nil {
		return nil, err
	}

	return &Executor{
		rewriter:   rewriter.New(p, res, cfg.Rewrite),
		dispatcher: d,
		logger:     logger,
	}, nil
}

// ExecuteQueryWithLimit rewrites a SELECT for project, rejects it if its
// LIMIT exceeds limit and caps it at limit, then submits it.
func (e *Executor) ExecuteQueryWithLimit(ctx context.Context, project, sql string, limit int64) (core.Execution, error) {
	return e.execute(ctx, project, sql, ModeQuery, &limit)
}

// ExecuteQuery rewrites a SELECT for project and submits it uncapped.
func (e *Executor) ExecuteQuery(ctx context.Context, project, sql string) (core.Execution, error) {
	return e.execute(ctx, project, sql, ModeQuery, nil)
}

// ExecuteStatement rewrites any single statement for project and submits it.
func (e *Executor) ExecuteStatement(ctx context.Context, project, sql string) (core.Execution, error) {
	return e.execute(ctx, project, sql, ModeStatement, nil)
}

// ExecuteRawQuery submits sql verbatim. It performs no tenant scoping, and
// since nothing is rewritten only the dispatch metrics see it.
func (e *Executor) ExecuteRawQuery(ctx context.Context, sql string) (core.Execution, error) {
	start := time.Now()
	exec, err := e.submit(ctx, sql)
	e.logger.Debug("raw query",
		slog.String("mode", ModeRaw),
		slog.Duration("duration", time.Since(start)),
		slog.Any("error", err))
	if err != nil {
		return nil, err
	}
	return exec, nil
}

// Rewrite performs the rewrite without submitting anything.
func (e *Executor) Rewrite(project, sql string, limit *int64, statement bool) (*rewriter.Result, error) {
	mode := ModeQuery
	if statement {
		mode = ModeStatement
	}
	res, err := e.rewrite(project, sql, mode, limit)
	metrics.RewritesTotal.WithLabelValues(mode, metrics.Outcome(err)).Inc()
	return res, err
}

// Explain reports how each table of sql resolves for project.
func (e *Executor) Explain(project, sql string) ([]rewriter.Mapping, error) {
	return e.rewriter.Explain(project, sql)
}

func (e *Executor) execute(ctx context.Context, project, sql, mode string, limit *int64) (core.Execution, error) {
	start := time.Now()
	logger := e.logger.With(slog.String("project", project), slog.String("mode", mode))

	res, err := e.rewrite(project, sql, mode, limit)
	metrics.RewritesTotal.WithLabelValues(mode, metrics.Outcome(err)).Inc()
	if err != nil {
		logger.Debug("rewrite failed", slog.Duration("duration", time.Since(start)), slog.Any("error", err))
		return nil, err
	}

	exec, err := e.submit(ctx, res.SQL)
	logger.Debug("statement executed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("tables", len(res.Mappings)),
		slog.Any("error", err))
	if err != nil {
		return nil, err
	}
	return exec, nil
}

func (e *Executor) rewrite(project, sql, mode string, limit *int64) (*rewriter.Result, error) {
	if mode == ModeStatement {
		return e.rewriter.RewriteStatement(project, sql)
	}
	return e.rewriter.RewriteQuery(project, sql, limit)
}

func (e *Executor) submit(ctx context.Context, sql string) (*dispatch.Execution, error) {
	start := time.Now()
	exec, err := e.dispatcher.Start(ctx, sql)
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	metrics.DispatchTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	return exec, err
}

package config

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/leapquery/pkg/executor"
	"github.com/leapstack-labs/leapquery/pkg/resolver"
	"github.com/leapstack-labs/leapquery/pkg/rewriter"
)

// ExecutorConfig translates c into an executor configuration. client may be
// nil, in which case the executor builds one from the http section.
func (c *Config) ExecutorConfig(client *http.Client, logger *slog.Logger) (executor.Config, error) {
	limitMode, err := rewriter.ParseLimitMode(c.Rewrite.LimitMode)
	if err != nil {
		return executor.Config{}, err
	}
	unknown, err := resolver.ParseUnknownSchemaMode(c.Rewrite.UnknownSchema)
	if err != nil {
		return executor.Config{}, err
	}

	return executor.Config{
		Submit:     c.Engine,
		Catalog:    c.Catalog(),
		HTTPClient: client,
		HTTP:       c.HTTP,
		Rewrite: rewriter.Options{
			LimitMode:    limitMode,
			CacheTTL:     c.Rewrite.CacheTTL,
			CacheCleanup: c.Rewrite.CacheCleanup,
		},
		UnknownSchema: unknown,
		Session:       c.Session,
		Logger:        logger,
	}, nil
}

// NewLogger builds the process logger from the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

package config

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/resolver"
	"github.com/leapstack-labs/leapquery/pkg/rewriter"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return prefixed("engine", err)
	}
	if err := c.Catalog().Validate(); err != nil {
		return prefixed("catalog_engine", err)
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if c.HTTP.ConnectTimeout < 0 || c.HTTP.RequestTimeout < 0 {
		return &core.ArgumentError{Field: "http", Reason: "timeouts must not be negative"}
	}
	if _, err := rewriter.ParseLimitMode(c.Rewrite.LimitMode); err != nil {
		return err
	}
	if _, err := resolver.ParseUnknownSchemaMode(c.Rewrite.UnknownSchema); err != nil {
		return err
	}
	if c.Rewrite.CacheTTL < 0 {
		return &core.ArgumentError{Field: "rewrite.cache_ttl", Reason: "must not be negative"}
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return &core.ArgumentError{Field: "server.addr", Reason: "is required"}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return &core.ArgumentError{Field: "log.format", Reason: "must be text or json, got " + c.Log.Format}
	}
	switch c.Format {
	case "", FormatTable, FormatJSON:
	default:
		return &core.ArgumentError{Field: "format", Reason: "must be table or json, got " + c.Format}
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, &core.ArgumentError{Field: "log.level", Reason: "unknown level " + s}
	}
	return lvl, nil
}

// prefixed qualifies an ArgumentError field with its section.
func prefixed(section string, err error) error {
	if ae, ok := err.(*core.ArgumentError); ok {
		return &core.ArgumentError{Field: section + "." + ae.Field, Reason: ae.Reason}
	}
	return err
}

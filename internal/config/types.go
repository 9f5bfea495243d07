// Package config loads leapquery configuration.
//
// Sources are layered lowest to highest: built-in defaults, leapquery.yaml,
// LEAPQUERY_* environment variables, then explicitly set command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dispatch"
)

// Config holds all leapquery configuration.
type Config struct {
	// Engine is where statements are submitted.
	Engine core.EngineConfig `koanf:"engine"`
	// CatalogEngine supplies the default catalog for unqualified tables.
	// Unset fields inherit from Engine.
	CatalogEngine core.EngineConfig       `koanf:"catalog_engine"`
	Session       dispatch.SessionOptions `koanf:"session"`
	HTTP          dispatch.HTTPConfig     `koanf:"http"`
	Rewrite       RewriteConfig           `koanf:"rewrite"`
	Server        ServerConfig            `koanf:"server"`
	Log           LogConfig               `koanf:"log"`
	// Format is the CLI output format: table or json.
	Format string `koanf:"format"`
}

// RewriteConfig controls query rewriting.
type RewriteConfig struct {
	// LimitMode is append or clamp.
	LimitMode string `koanf:"limit_mode"`
	// UnknownSchema is reject or catalog.
	UnknownSchema string        `koanf:"unknown_schema"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	CacheCleanup  time.Duration `koanf:"cache_cleanup"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	AllowRaw          bool          `koanf:"allow_raw"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

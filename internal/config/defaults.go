package config

import (
	"time"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Default configuration values.
const (
	DefaultEngineAddress     = "localhost:8080"
	DefaultColdStorage       = "hive"
	DefaultServerAddr        = ":8765"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// defaults is the bottom configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"engine": map[string]any{
			"address":                DefaultEngineAddress,
			"cold_storage_connector": DefaultColdStorage,
		},
		"session": map[string]any{
			"user":     "api-server",
			"source":   "rakam",
			"schema":   "default",
			"protocol": "presto",
		},
		"http": map[string]any{
			"connect_timeout":         "10s",
			"request_timeout":         "0s",
			"max_idle_conns_per_host": 32,
			"user_agent":              "rakam",
		},
		"rewrite": map[string]any{
			"limit_mode":     "append",
			"unknown_schema": "reject",
			"cache_ttl":      "0s",
			"cache_cleanup":  "1m",
		},
		"server": map[string]any{
			"addr":                DefaultServerAddr,
			"allow_raw":           false,
			"read_header_timeout": DefaultReadHeaderTimeout.String(),
			"shutdown_timeout":    DefaultShutdownTimeout.String(),
		},
		"log": map[string]any{
			"level":  DefaultLogLevel,
			"format": DefaultLogFormat,
		},
		"format": FormatTable,
	}
}

// Catalog returns the engine used for catalog resolution. Fields left
// unset in catalog_engine are taken from engine.
func (c *Config) Catalog() core.EngineConfig {
	cat := c.CatalogEngine
	if cat.Address == "" {
		cat.Address = c.Engine.Address
	}
	if cat.ColdStorageConnector == "" {
		cat.ColdStorageConnector = c.Engine.ColdStorageConnector
	}
	return cat
}

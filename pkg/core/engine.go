package core

import (
	"net"
	"strconv"
	"strings"
)

// EngineConfig identifies a query engine endpoint and the catalog used for
// unqualified table references. It is loaded once and shared read-only.
type EngineConfig struct {
	// Address is the engine coordinator as host or host:port.
	Address string `koanf:"address"`
	// ColdStorageConnector is the default catalog (e.g. "hive").
	ColdStorageConnector string `koanf:"cold_storage_connector"`
}

// Validate checks that both fields are set and the address is well formed.
func (c EngineConfig) Validate() error {
	if strings.TrimSpace(c.ColdStorageConnector) == "" {
		return &ArgumentError{Field: "cold_storage_connector", Reason: "is required"}
	}
	if _, _, err := c.HostPort(); err != nil {
		return err
	}
	return nil
}

// HostPort splits Address into host and port. Port is 0 when the address
// carries none, in which case the scheme default applies.
func (c EngineConfig) HostPort() (string, int, error) {
	addr := strings.TrimSpace(c.Address)
	if addr == "" {
		return "", 0, &ArgumentError{Field: "address", Reason: "is required"}
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port: host only, possibly a bare IPv6 literal in brackets.
		if strings.Contains(err.Error(), "missing port") {
			return strings.Trim(addr, "[]"), 0, nil
		}
		return "", 0, &ArgumentError{Field: "address", Reason: err.Error()}
	}
	if host == "" {
		return "", 0, &ArgumentError{Field: "address", Reason: "host is empty"}
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, &ArgumentError{Field: "address", Reason: "invalid port " + strconv.Quote(portStr)}
	}
	return host, port, nil
}

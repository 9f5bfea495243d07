package core

import (
	"fmt"
	"strconv"
)

// SyntaxError is returned when query text is not a valid statement.
type SyntaxError struct {
	Message string
	// Position is the 1-based character offset reported by the parser, 0 if unknown.
	Position int
}

func (e *SyntaxError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("syntax error at position %d: %s", e.Position, e.Message)
	}
	return "syntax error: " + e.Message
}

// UnknownSchemaError is returned when a table reference uses a prefix that
// does not map to any schema of the project.
type UnknownSchemaError struct {
	Schema string
}

func (e *UnknownSchemaError) Error() string {
	return fmt.Sprintf("schema does not exist: %s\nHint: use \"continuous\", \"materialized\" or an unqualified table name", e.Schema)
}

// LimitExceededError is returned when a query asks for more rows than the
// caller allows.
type LimitExceededError struct {
	// Requested is the LIMIT literal as written in the query.
	Requested string
	Max       int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("LIMIT %s exceeds the maximum value of LIMIT statement (%d)", e.Requested, e.Max)
}

// TransportError wraps a network or HTTP-level failure while talking to the engine.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Op + " " + e.URL
	if e.StatusCode != 0 {
		msg += ": status " + strconv.Itoa(e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ArgumentError is returned for malformed configuration or requests.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Field == "" {
		return "invalid argument: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

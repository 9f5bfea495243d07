package dispatch

import (
	"fmt"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// QueryResults is the first document returned by POST /v1/statement.
// Fields beyond those needed to follow the query are ignored.
type QueryResults struct {
	ID      string      `json:"id"`
	InfoURI string      `json:"infoUri"`
	NextURI string      `json:"nextUri,omitempty"`
	Stats   QueryStats  `json:"stats"`
	Error   *QueryError `json:"error,omitempty"`
}

// QueryStats carries the engine-reported state.
type QueryStats struct {
	State string `json:"state"`
}

// QueryError is a failure reported inline by the engine.
type QueryError struct {
	Message   string `json:"message"`
	ErrorCode int    `json:"errorCode"`
	ErrorName string `json:"errorName"`
	ErrorType string `json:"errorType"`
}

func (e *QueryError) Error() string {
	if e.ErrorName == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.ErrorName, e.Message)
}

// Execution is the handle returned by Start.
type Execution struct {
	results QueryResults
	query   string
	trace   string
}

var _ core.Execution = (*Execution)(nil)

func (e *Execution) ID() string      { return e.results.ID }
func (e *Execution) InfoURI() string { return e.results.InfoURI }
func (e *Execution) NextURI() string { return e.results.NextURI }
func (e *Execution) State() string   { return e.results.Stats.State }
func (e *Execution) Query() string   { return e.query }

// TraceToken is the token sent with the submission.
func (e *Execution) TraceToken() string { return e.trace }

func (e *Execution) Err() error {
	if e.results.Error == nil {
		return nil
	}
	return e.results.Error
}

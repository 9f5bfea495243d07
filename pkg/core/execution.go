package core

// Execution is a handle to a query submitted to the engine. The caller owns
// it; nothing in leapquery tracks it after submission.
type Execution interface {
	// ID is the engine-assigned query id.
	ID() string
	// InfoURI points at the engine's query detail page.
	InfoURI() string
	// NextURI is where results are polled from. Empty once the query is done.
	NextURI() string
	// State is the engine-reported state at submission (QUEUED, RUNNING, ...).
	State() string
	// Query is the exact text that was submitted.
	Query() string
	// Err is the failure reported by the engine in its first response, if any.
	Err() error
}

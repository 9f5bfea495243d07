// Package parser turns query text into statements that can be inspected and
// rewritten.
//
// # Usage
//
//	p := parser.New()
//	stmt, err := p.Parse("SELECT * FROM continuous.clicks")
//	if err != nil {
//	    // handle *core.SyntaxError or *core.ArgumentError
//	}
//	for _, ref := range stmt.References() {
//	    fmt.Println(ref.Prefix(), ref.Name)
//	}
//
// Parsing is delegated to pg_query_go. A Parser serializes calls to the
// underlying library with its own mutex; the lock covers the parse and scan
// calls only, never rendering or anything the caller does with the statement
// afterwards.
//
// The tree is only read. Rewrites are spliced into the original text, so the
// output is in the dialect the caller wrote, not PostgreSQL's.
package parser

import (
	"errors"
	"strings"
	"sync"
	"time"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	pgparser "github.com/pganalyze/pg_query_go/v6/parser"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Parser parses SQL text into statements. Safe for concurrent use.
type Parser struct {
	mu     sync.Mutex
	onWait func(time.Duration)
}

// Option configures a Parser.
type Option func(*Parser)

// WithLockObserver registers a callback that receives how long each Parse
// call waited for the parser lock.
func WithLockObserver(fn func(time.Duration)) Option {
	return func(p *Parser) {
		p.onWait = fn
	}
}

// New creates a parser.
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses exactly one statement.
func (p *Parser) Parse(text string) (*Statement, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &core.ArgumentError{Field: "query", Reason: "is empty"}
	}

	tree, scan, err := p.parse(text)
	if err != nil {
		return nil, err
	}

	switch len(tree.GetStmts()) {
	case 0:
		return nil, &core.ArgumentError{Field: "query", Reason: "contains no statement"}
	case 1:
	default:
		return nil, &core.ArgumentError{Field: "query", Reason: "contains more than one statement"}
	}

	return newStatement(text, tree, scan), nil
}

// parse runs the parser and the scanner under the lock. Token positions
// from the scanner locate names that the tree stores without one.
func (p *Parser) parse(text string) (*pg_query.ParseResult, *pg_query.ScanResult, error) {
	start := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onWait != nil {
		p.onWait(time.Since(start))
	}

	tree, err := pg_query.Parse(text)
	if err != nil {
		return nil, nil, toSyntaxError(err)
	}
	scan, err := pg_query.Scan(text)
	if err != nil {
		return nil, nil, toSyntaxError(err)
	}
	return tree, scan, nil
}

func toSyntaxError(err error) *core.SyntaxError {
	var pgErr *pgparser.Error
	if errors.As(err, &pgErr) {
		return &core.SyntaxError{Message: pgErr.Message, Position: pgErr.Cursorpos}
	}
	return &core.SyntaxError{Message: err.Error()}
}

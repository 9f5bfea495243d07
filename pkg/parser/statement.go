package parser

import (
	"slices"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Kind tags what a statement is.
type Kind int

const (
	// KindOther is any statement that does not produce a result set the
	// row cap applies to: DDL, DML, utility statements, EXPLAIN.
	KindOther Kind = iota
	// KindQuery is a SELECT-shaped statement, including set operations,
	// VALUES lists and WITH queries.
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	default:
		return "statement"
	}
}

// Statement is a single parsed statement. It is owned by one caller and is
// not safe for concurrent mutation.
//
// Table rewrites are recorded as edits against the original text rather
// than applied to the tree, so Render keeps the caller's dialect intact:
// casts, typed literals and function syntax come back exactly as written.
type Statement struct {
	text   string
	tree   *pg_query.ParseResult
	tokens []*pg_query.ScanToken
	kind   Kind
	edits  []edit
}

// edit replaces text[start:end].
type edit struct {
	start, end int
	text       string
}

func newStatement(text string, tree *pg_query.ParseResult, scan *pg_query.ScanResult) *Statement {
	s := &Statement{text: text, tree: tree, tokens: significant(scan.GetTokens()), kind: KindOther}
	if s.root().GetSelectStmt() != nil {
		s.kind = KindQuery
	}
	return s
}

// Kind returns the statement tag.
func (s *Statement) Kind() Kind {
	return s.kind
}

// Text returns the original input.
func (s *Statement) Text() string {
	return s.text
}

// Select returns the top-level SELECT node, or nil for KindOther.
func (s *Statement) Select() *pg_query.SelectStmt {
	return s.root().GetSelectStmt()
}

// LimitCount returns the top-level LIMIT expression, or nil when the query
// has none.
func (s *Statement) LimitCount() *pg_query.Node {
	if sel := s.Select(); sel != nil {
		return sel.GetLimitCount()
	}
	return nil
}

// Render returns the statement text with every rewritten table name in
// place. The rest of the text, comments inside the statement included, is
// kept as written. Surrounding whitespace, a trailing semicolon and trailing
// comments are dropped, so a clause can be appended to the result.
func (s *Statement) Render() string {
	end := 0
	if n := len(s.tokens); n > 0 {
		end = int(s.tokens[n-1].GetEnd())
	}

	edits := slices.Clone(s.edits)
	slices.SortFunc(edits, func(a, b edit) int {
		return a.start - b.start
	})

	var b strings.Builder
	pos := 0
	for _, e := range edits {
		b.WriteString(s.text[pos:e.start])
		b.WriteString(e.text)
		pos = e.end
	}
	b.WriteString(s.text[pos:end])
	return strings.TrimSpace(b.String())
}

func (s *Statement) root() *pg_query.Node {
	stmts := s.tree.GetStmts()
	if len(stmts) == 0 {
		return nil
	}
	return stmts[0].GetStmt()
}

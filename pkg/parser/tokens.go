package parser

import (
	"sort"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// significant drops comments and statement terminators from a scan.
func significant(tokens []*pg_query.ScanToken) []*pg_query.ScanToken {
	out := make([]*pg_query.ScanToken, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.GetToken() {
		case pg_query.Token_SQL_COMMENT, pg_query.Token_C_COMMENT, pg_query.Token_ASCII_59:
			continue
		}
		out = append(out, tok)
	}
	return out
}

// isNamePart reports whether tok can be one part of a dotted name. Keywords
// are allowed; the parser has already decided they are used as names.
func isNamePart(tok *pg_query.ScanToken) bool {
	return tok.GetToken() == pg_query.Token_IDENT || tok.GetKeywordKind() != pg_query.KeywordKind_NO_KEYWORD
}

func (s *Statement) tokenText(i int) string {
	tok := s.tokens[i]
	return s.text[tok.GetStart():tok.GetEnd()]
}

// tokenAt returns the index of the token starting at byte offset pos.
func (s *Statement) tokenAt(pos int) (int, bool) {
	i := sort.Search(len(s.tokens), func(i int) bool {
		return int(s.tokens[i].GetStart()) >= pos
	})
	if i < len(s.tokens) && int(s.tokens[i].GetStart()) == pos {
		return i, true
	}
	return 0, false
}

// skipWords consumes words in order, case-insensitively, starting at token i.
func (s *Statement) skipWords(i int, words ...string) (int, bool) {
	for _, w := range words {
		if i >= len(s.tokens) || !strings.EqualFold(s.tokenText(i), w) {
			return i, false
		}
		i++
	}
	return i, true
}

// dottedName reads a name of the form a[.b[.c]] starting at token i. It
// returns the token index of every part and the index just past the name.
func (s *Statement) dottedName(i int) ([]int, int, bool) {
	if i >= len(s.tokens) || !isNamePart(s.tokens[i]) {
		return nil, i, false
	}
	parts := []int{i}
	for i+2 < len(s.tokens) &&
		s.tokens[i+1].GetToken() == pg_query.Token_ASCII_46 &&
		isNamePart(s.tokens[i+2]) {
		i += 2
		parts = append(parts, i)
	}
	return parts, i + 1, true
}

// identValue returns the name a single identifier token denotes: quoted
// identifiers keep their case, unquoted ones fold to lower case.
func identValue(tok string) string {
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		return strings.ReplaceAll(tok[1:len(tok)-1], `""`, `"`)
	}
	return strings.ToLower(tok)
}

// quoteIdent renders name so that the engine reads it back unchanged.
func quoteIdent(name string) string {
	if isPlainIdent(name) && !reserved[name] {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// reserved holds the Presto reserved words, which must be quoted when used
// as identifiers.
var reserved = map[string]bool{
	"alter": true, "and": true, "as": true, "between": true, "by": true,
	"case": true, "cast": true, "constraint": true, "create": true, "cross": true,
	"cube": true, "current_date": true, "current_path": true, "current_role": true,
	"current_time": true, "current_timestamp": true, "current_user": true,
	"deallocate": true, "delete": true, "describe": true, "distinct": true,
	"drop": true, "else": true, "end": true, "escape": true, "except": true,
	"execute": true, "exists": true, "extract": true, "false": true, "for": true,
	"from": true, "full": true, "group": true, "grouping": true, "having": true,
	"in": true, "inner": true, "insert": true, "intersect": true, "into": true,
	"is": true, "join": true, "left": true, "like": true, "localtime": true,
	"localtimestamp": true, "natural": true, "normalize": true, "not": true,
	"null": true, "on": true, "or": true, "order": true, "outer": true,
	"prepare": true, "recursive": true, "right": true, "rollup": true,
	"select": true, "table": true, "then": true, "true": true, "uescape": true,
	"union": true, "unnest": true, "using": true, "values": true, "when": true,
	"where": true, "with": true,
}

// Package rewriter rewrites project-relative queries into physical queries
// the engine can run.
//
// A rewrite parses the text, replaces every table reference through the
// resolver, applies the row cap and renders the statement again. Rendering
// splices the physical names into the text as written, so the output stays
// in the engine's dialect. Only the parse step touches shared state;
// everything else works on a per-call statement.
package rewriter

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/parser"
	"github.com/leapstack-labs/leapquery/pkg/resolver"
)

// LimitMode controls how a row cap is applied to a query that passes the check.
type LimitMode int

const (
	// LimitAppend appends " LIMIT <cap>" to the rewritten text, even when the
	// query already carries a smaller LIMIT.
	LimitAppend LimitMode = iota
	// LimitClamp appends the cap only when the statement has no LIMIT, so the
	// output always contains a single LIMIT clause.
	LimitClamp
)

// ParseLimitMode maps a configuration value to a mode.
func ParseLimitMode(s string) (LimitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return LimitAppend, nil
	case "clamp":
		return LimitClamp, nil
	default:
		return LimitAppend, &core.ArgumentError{Field: "rewrite.limit_mode", Reason: "must be one of append, clamp; got " + s}
	}
}

func (m LimitMode) String() string {
	if m == LimitClamp {
		return "clamp"
	}
	return "append"
}

// Options configures a Rewriter.
type Options struct {
	LimitMode LimitMode
	// CacheTTL enables the rewrite cache when positive.
	CacheTTL time.Duration
	// CacheCleanup is how often expired cache entries are purged.
	CacheCleanup time.Duration
}

// Mapping records how one table reference was resolved.
type Mapping struct {
	Reference core.TableReference
	Path      core.TablePath
	// Err is set by Explain when the reference does not resolve.
	Err error
}

// Result is a rewritten statement ready for submission.
type Result struct {
	SQL  string
	Kind parser.Kind
	// Limit is the LIMIT the query was written with, nil when it had none
	// or the value does not fit in an int64.
	Limit *int64
	// LimitText is the LIMIT literal as written, "" when absent or not a
	// literal.
	LimitText string
	Mappings  []Mapping
}

func (r *Result) clone() *Result {
	out := *r
	out.Mappings = append([]Mapping(nil), r.Mappings...)
	if r.Limit != nil {
		n := *r.Limit
		out.Limit = &n
	}
	return &out
}

// Rewriter rewrites queries for a project. Safe for concurrent use.
type Rewriter struct {
	parser   *parser.Parser
	resolver *resolver.Resolver
	opts     Options
	cache    *cache.Cache
}

// New creates a rewriter. The parser may be shared with other components.
func New(p *parser.Parser, r *resolver.Resolver, opts Options) *Rewriter {
	rw := &Rewriter{parser: p, resolver: r, opts: opts}
	if opts.CacheTTL > 0 {
		cleanup := opts.CacheCleanup
		if cleanup <= 0 {
			cleanup = time.Minute
		}
		rw.cache = cache.New(opts.CacheTTL, cleanup)
	}
	return rw
}

// RewriteQuery rewrites a SELECT-shaped query. When maxLimit is non-nil the
// query may not ask for more rows than *maxLimit, and the cap is applied
// according to the configured LimitMode.
func (rw *Rewriter) RewriteQuery(project, sql string, maxLimit *int64) (*Result, error) {
	if project == "" {
		return nil, &core.ArgumentError{Field: "project", Reason: "is required"}
	}
	if maxLimit != nil && *maxLimit < 0 {
		return nil, &core.ArgumentError{Field: "limit", Reason: fmt.Sprintf("must not be negative, got %d", *maxLimit)}
	}

	key := ""
	if rw.cache != nil {
		limitKey := "-"
		if maxLimit != nil {
			limitKey = strconv.FormatInt(*maxLimit, 10)
		}
		key = cacheKey("query", project, limitKey, sql)
		if res, ok := rw.cached(key); ok {
			return res, nil
		}
	}

	stmt, err := rw.parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	if stmt.Kind() != parser.KindQuery {
		return nil, &core.ArgumentError{Field: "query", Reason: "expected a SELECT query; use statement mode for other statements"}
	}

	res, err := rw.substitute(project, stmt)
	if err != nil {
		return nil, err
	}

	// Without a cap the LIMIT is only reported, so a clause the check could
	// not judge is no reason to fail.
	limit, text, err := readLimit(stmt.LimitCount())
	if err != nil && maxLimit != nil {
		return nil, err
	}
	res.LimitText = text
	if limit != nil && limit.IsInt64() {
		n := limit.Int64()
		res.Limit = &n
	}

	res.SQL = stmt.Render()
	if maxLimit != nil {
		if limit != nil && limit.Cmp(big.NewInt(*maxLimit)) > 0 {
			return nil, &core.LimitExceededError{Requested: text, Max: *maxLimit}
		}
		if rw.opts.LimitMode == LimitAppend || limit == nil {
			res.SQL += " LIMIT " + strconv.FormatInt(*maxLimit, 10)
		}
	}

	rw.store(key, res)
	return res, nil
}

// RewriteStatement rewrites any single statement. No row cap applies.
func (rw *Rewriter) RewriteStatement(project, sql string) (*Result, error) {
	if project == "" {
		return nil, &core.ArgumentError{Field: "project", Reason: "is required"}
	}

	key := ""
	if rw.cache != nil {
		key = cacheKey("statement", project, "-", sql)
		if res, ok := rw.cached(key); ok {
			return res, nil
		}
	}

	stmt, err := rw.parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	res, err := rw.substitute(project, stmt)
	if err != nil {
		return nil, err
	}

	res.SQL = stmt.Render()

	rw.store(key, res)
	return res, nil
}

// Explain resolves every table reference in sql without rewriting it.
// Resolution failures are reported per mapping; only parse errors fail the call.
func (rw *Rewriter) Explain(project, sql string) ([]Mapping, error) {
	stmt, err := rw.parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	refs := stmt.References()
	mappings := make([]Mapping, 0, len(refs))
	for _, ref := range refs {
		path, err := rw.resolver.Resolve(project, ref)
		mappings = append(mappings, Mapping{Reference: ref, Path: path, Err: err})
	}
	return mappings, nil
}

func (rw *Rewriter) substitute(project string, stmt *parser.Statement) (*Result, error) {
	res := &Result{Kind: stmt.Kind()}
	seen := make(map[core.TableReference]bool)

	err := stmt.RewriteTables(func(ref core.TableReference) (core.TablePath, error) {
		path, err := rw.resolver.Resolve(project, ref)
		if err != nil {
			return core.TablePath{}, err
		}
		if !seen[ref] {
			seen[ref] = true
			res.Mappings = append(res.Mappings, Mapping{Reference: ref, Path: path})
		}
		return path, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (rw *Rewriter) cached(key string) (*Result, bool) {
	v, ok := rw.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*Result).clone(), true
}

func (rw *Rewriter) store(key string, res *Result) {
	if rw.cache == nil {
		return
	}
	rw.cache.Set(key, res.clone(), cache.DefaultExpiration)
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}

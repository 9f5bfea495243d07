package rewriter

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/parser"
	"github.com/leapstack-labs/leapquery/pkg/resolver"
)

func newTestRewriter(t *testing.T, opts Options, resolverOpts ...resolver.Option) *Rewriter {
	t.Helper()
	r, err := resolver.New("hive", resolverOpts...)
	require.NoError(t, err)
	return New(parser.New(), r, opts)
}

func limitPtr(n int64) *int64 {
	return &n
}

func TestRewriteQuery_Tables(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "unqualified",
			sql:  "SELECT * FROM events",
			want: "SELECT * FROM hive.acme.events",
		},
		{
			name: "continuous",
			sql:  "SELECT * FROM continuous.clicks",
			want: "SELECT * FROM stream.acme.clicks",
		},
		{
			name: "materialized",
			sql:  "SELECT * FROM materialized.daily",
			want: "SELECT * FROM acme._materialized_daily",
		},
		{
			name: "where clause",
			sql:  "select * from events where x = 1",
			want: "select * from hive.acme.events where x = 1",
		},
		{
			name: "already physical",
			sql:  "SELECT * FROM hive.acme.events",
			want: "SELECT * FROM hive.acme.events",
		},
		{
			name: "already physical stream, layout kept",
			sql:  "select   *   from stream.acme.clicks;",
			want: "select   *   from stream.acme.clicks",
		},
	}

	rw := newTestRewriter(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rw.RewriteQuery("acme", tt.sql, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.SQL)
			assert.Equal(t, parser.KindQuery, res.Kind)
		})
	}
}

func TestRewriteQuery_KeepsEngineSyntax(t *testing.T) {
	rw := newTestRewriter(t, Options{})

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "cast",
			sql:  "SELECT CAST(x AS integer) FROM events",
			want: "SELECT CAST(x AS integer) FROM hive.acme.events LIMIT 100",
		},
		{
			name: "timestamp literal",
			sql:  "SELECT * FROM events WHERE ts > timestamp '2020-01-01 00:00:00'",
			want: "SELECT * FROM hive.acme.events WHERE ts > timestamp '2020-01-01 00:00:00' LIMIT 100",
		},
		{
			name: "date literal",
			sql:  "SELECT * FROM events WHERE d = date '2020-01-01'",
			want: "SELECT * FROM hive.acme.events WHERE d = date '2020-01-01' LIMIT 100",
		},
		{
			name: "extract",
			sql:  "SELECT EXTRACT(year FROM ts) FROM continuous.clicks",
			want: "SELECT EXTRACT(year FROM ts) FROM stream.acme.clicks LIMIT 100",
		},
		{
			name: "interval",
			sql:  "SELECT ts + interval '1' day FROM materialized.daily",
			want: "SELECT ts + interval '1' day FROM acme._materialized_daily LIMIT 100",
		},
		{
			name: "limit after trailing comment",
			sql:  "SELECT * FROM events -- all of them",
			want: "SELECT * FROM hive.acme.events LIMIT 100",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rw.RewriteQuery("acme", tt.sql, limitPtr(100))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.SQL)
			assert.NotContains(t, res.SQL, "::")
		})
	}
}

func TestRewriteQuery_NestedReferences(t *testing.T) {
	rw := newTestRewriter(t, Options{})

	res, err := rw.RewriteQuery("acme",
		"WITH recent AS (SELECT * FROM continuous.clicks) "+
			"SELECT r.id FROM recent r JOIN events e ON r.id = e.id "+
			"WHERE e.kind IN (SELECT kind FROM materialized.kinds)", nil)
	require.NoError(t, err)

	assert.Contains(t, res.SQL, "stream.acme.clicks")
	assert.Contains(t, res.SQL, "hive.acme.events")
	assert.Contains(t, res.SQL, "acme._materialized_kinds")
	assert.NotContains(t, res.SQL, "hive.acme.recent", "cte names must not be rewritten")

	paths := make([]string, 0, len(res.Mappings))
	for _, m := range res.Mappings {
		paths = append(paths, m.Path.String())
	}
	assert.ElementsMatch(t, []string{"stream.acme.clicks", "hive.acme.events", "acme._materialized_kinds"}, paths)
}

func TestRewriteQuery_Idempotent(t *testing.T) {
	rw := newTestRewriter(t, Options{})
	queries := []string{
		"SELECT * FROM events",
		"SELECT a.id FROM continuous.clicks a JOIN materialized.daily b ON a.id = b.id",
		"SELECT count(*) FROM events WHERE ts > 10 GROUP BY kind ORDER BY 1",
	}
	for _, sql := range queries {
		first, err := rw.RewriteQuery("acme", sql, nil)
		require.NoError(t, err)
		second, err := rw.RewriteQuery("acme", first.SQL, nil)
		require.NoError(t, err)
		assert.Equal(t, first.SQL, second.SQL, "rewriting %q twice", sql)
	}
}

func TestRewriteQuery_QuotedProject(t *testing.T) {
	rw := newTestRewriter(t, Options{})
	res, err := rw.RewriteQuery("my-project", "SELECT * FROM continuous.clicks", nil)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `"my-project"`)
}

func TestRewriteQuery_Errors(t *testing.T) {
	rw := newTestRewriter(t, Options{})

	t.Run("syntax", func(t *testing.T) {
		_, err := rw.RewriteQuery("acme", "SELECT * FORM events", nil)
		var target *core.SyntaxError
		assert.True(t, errors.As(err, &target), "got %v", err)
	})

	t.Run("unknown schema", func(t *testing.T) {
		_, err := rw.RewriteQuery("acme", "SELECT * FROM nosuch.events", nil)
		var target *core.UnknownSchemaError
		require.True(t, errors.As(err, &target), "got %v", err)
		assert.Equal(t, "nosuch", target.Schema)
	})

	t.Run("not a query", func(t *testing.T) {
		_, err := rw.RewriteQuery("acme", "CREATE TABLE events (id int)", nil)
		var target *core.ArgumentError
		assert.True(t, errors.As(err, &target), "got %v", err)
	})

	t.Run("empty project", func(t *testing.T) {
		_, err := rw.RewriteQuery("", "SELECT 1", nil)
		var target *core.ArgumentError
		assert.True(t, errors.As(err, &target), "got %v", err)
	})

	t.Run("negative cap", func(t *testing.T) {
		_, err := rw.RewriteQuery("acme", "SELECT * FROM events", limitPtr(-1))
		var target *core.ArgumentError
		assert.True(t, errors.As(err, &target), "got %v", err)
	})
}

func TestRewriteQuery_PermissiveCatalog(t *testing.T) {
	rw := newTestRewriter(t, Options{}, resolver.WithUnknownSchemaMode(resolver.Permissive))
	res, err := rw.RewriteQuery("acme", "SELECT * FROM postgres.users", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM postgres.acme.users", res.SQL)
}

func TestRewriteStatement(t *testing.T) {
	rw := newTestRewriter(t, Options{})

	tests := []struct {
		name     string
		sql      string
		contains string
	}{
		{name: "create table", sql: "CREATE TABLE events (id int)", contains: "CREATE TABLE hive.acme.events"},
		{name: "create table as", sql: "CREATE TABLE materialized.daily AS SELECT * FROM events", contains: "acme._materialized_daily"},
		{name: "insert select", sql: "INSERT INTO events SELECT * FROM continuous.clicks", contains: "stream.acme.clicks"},
		{name: "drop view", sql: "DROP VIEW materialized.daily", contains: "DROP VIEW acme._materialized_daily"},
		{name: "comment on table", sql: "COMMENT ON TABLE events IS 'x'", contains: "COMMENT ON TABLE hive.acme.events IS 'x'"},
		{name: "rename table", sql: "ALTER TABLE events RENAME TO e2", contains: "ALTER TABLE hive.acme.events RENAME TO hive.acme.e2"},
		{name: "rename continuous table", sql: "ALTER TABLE continuous.clicks RENAME TO taps", contains: "RENAME TO stream.acme.taps"},
		{name: "select is allowed", sql: "SELECT * FROM events", contains: "hive.acme.events"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rw.RewriteStatement("acme", tt.sql)
			require.NoError(t, err)
			assert.Contains(t, res.SQL, tt.contains)
			assert.Nil(t, res.Limit)
		})
	}

	_, err := rw.RewriteStatement("acme", "DROP TABLE nosuch.events")
	var target *core.UnknownSchemaError
	assert.True(t, errors.As(err, &target), "got %v", err)

	_, err = rw.RewriteStatement("acme", "ALTER TABLE events RENAME TO globex.events")
	assert.Error(t, err, "qualified rename targets do not parse")

	_, err = rw.RewriteStatement("acme", "DROP SCHEMA acme")
	var argErr *core.ArgumentError
	assert.True(t, errors.As(err, &argErr), "got %v", err)
}

func TestExplain(t *testing.T) {
	rw := newTestRewriter(t, Options{})

	mappings, err := rw.Explain("acme", "SELECT * FROM events JOIN nosuch.x ON true")
	require.NoError(t, err)
	require.Len(t, mappings, 2)

	assert.Equal(t, "events", mappings[0].Reference.String())
	assert.Equal(t, "hive.acme.events", mappings[0].Path.String())
	assert.NoError(t, mappings[0].Err)

	assert.Equal(t, "nosuch.x", mappings[1].Reference.String())
	var target *core.UnknownSchemaError
	assert.True(t, errors.As(mappings[1].Err, &target))

	_, err = rw.Explain("acme", "SELECT FROM FROM")
	assert.Error(t, err)
}

func TestRewrite_Cache(t *testing.T) {
	rw := newTestRewriter(t, Options{CacheTTL: time.Minute})

	first, err := rw.RewriteQuery("acme", "SELECT * FROM events", limitPtr(10))
	require.NoError(t, err)
	assert.Equal(t, 1, rw.cache.ItemCount())

	// Mutating a returned result must not leak into the cache.
	first.SQL = "mutated"
	first.Mappings[0].Path.Name = "mutated"

	second, err := rw.RewriteQuery("acme", "SELECT * FROM events", limitPtr(10))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM hive.acme.events LIMIT 10", second.SQL)
	assert.Equal(t, "events", second.Mappings[0].Path.Name)

	// Different project, cap and mode are different entries.
	_, err = rw.RewriteQuery("globex", "SELECT * FROM events", limitPtr(10))
	require.NoError(t, err)
	_, err = rw.RewriteQuery("acme", "SELECT * FROM events", nil)
	require.NoError(t, err)
	_, err = rw.RewriteStatement("acme", "SELECT * FROM events")
	require.NoError(t, err)
	assert.Equal(t, 4, rw.cache.ItemCount())

	// Failures are not cached.
	_, err = rw.RewriteQuery("acme", "SELECT * FROM nosuch.events", nil)
	require.Error(t, err)
	assert.Equal(t, 4, rw.cache.ItemCount())
}

func TestRewriteQuery_Concurrent(t *testing.T) {
	rw := newTestRewriter(t, Options{})

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		g.Go(func() error {
			project := fmt.Sprintf("p%d", i)
			res, err := rw.RewriteQuery(project, "SELECT * FROM continuous.clicks JOIN events ON true", limitPtr(100))
			if err != nil {
				return err
			}
			want := []string{"stream." + project + ".clicks", "hive." + project + ".events", "LIMIT 100"}
			for _, w := range want {
				if !strings.Contains(res.SQL, w) {
					return fmt.Errorf("project %s: %q missing %q", project, res.SQL, w)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

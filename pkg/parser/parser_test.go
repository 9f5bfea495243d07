package parser_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/parser"
)

func TestParse_Kind(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want parser.Kind
	}{
		{name: "select", sql: "SELECT * FROM events", want: parser.KindQuery},
		{name: "union", sql: "SELECT a FROM x UNION ALL SELECT a FROM y", want: parser.KindQuery},
		{name: "with", sql: "WITH r AS (SELECT 1) SELECT * FROM r", want: parser.KindQuery},
		{name: "values", sql: "VALUES (1), (2)", want: parser.KindQuery},
		{name: "create table", sql: "CREATE TABLE events (id int)", want: parser.KindOther},
		{name: "insert", sql: "INSERT INTO events VALUES (1)", want: parser.KindOther},
		{name: "drop view", sql: "DROP VIEW daily", want: parser.KindOther},
		{name: "explain", sql: "EXPLAIN SELECT 1", want: parser.KindOther},
	}

	p := parser.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := p.Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.Kind())
			assert.Equal(t, tt.sql, stmt.Text())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	p := parser.New()

	t.Run("syntax error", func(t *testing.T) {
		_, err := p.Parse("SELEC * FROM events")
		var syntaxErr *core.SyntaxError
		require.True(t, errors.As(err, &syntaxErr), "expected SyntaxError, got %T", err)
		assert.NotEmpty(t, syntaxErr.Message)
		assert.Positive(t, syntaxErr.Position)
	})

	tests := []struct {
		name string
		sql  string
	}{
		{name: "empty", sql: ""},
		{name: "blank", sql: "  \n\t"},
		{name: "two statements", sql: "SELECT 1; SELECT 2"},
		{name: "only semicolon", sql: ";"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.sql)
			var argErr *core.ArgumentError
			require.True(t, errors.As(err, &argErr), "expected ArgumentError, got %T: %v", err, err)
		})
	}
}

func TestStatement_References(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []core.TableReference
	}{
		{
			name: "unqualified",
			sql:  "SELECT * FROM events",
			want: []core.TableReference{{Name: "events"}},
		},
		{
			name: "join and subquery",
			sql:  "SELECT * FROM a JOIN continuous.b ON a.id = b.id WHERE a.x IN (SELECT y FROM hive.acme.c)",
			want: []core.TableReference{
				{Name: "a"},
				{Schema: "continuous", Name: "b"},
				{Catalog: "hive", Schema: "acme", Name: "c"},
			},
		},
		{
			name: "duplicates collapse",
			sql:  "SELECT * FROM events e1 JOIN events e2 ON e1.id = e2.id",
			want: []core.TableReference{{Name: "events"}},
		},
		{
			name: "cte names are not tables",
			sql:  "WITH recent AS (SELECT * FROM events) SELECT * FROM recent",
			want: []core.TableReference{{Name: "events"}},
		},
		{
			name: "qualified name matching a cte is still a table",
			sql:  "WITH recent AS (SELECT 1) SELECT * FROM materialized.recent",
			want: []core.TableReference{{Schema: "materialized", Name: "recent"}},
		},
		{
			name: "ddl target",
			sql:  "CREATE TABLE events (id int)",
			want: []core.TableReference{{Name: "events"}},
		},
		{
			name: "drop names",
			sql:  "DROP TABLE continuous.clicks, events",
			want: []core.TableReference{{Schema: "continuous", Name: "clicks"}, {Name: "events"}},
		},
		{
			name: "drop of a non-table object",
			sql:  "DROP FUNCTION cleanup()",
			want: nil,
		},
		{
			name: "no tables",
			sql:  "SELECT 1",
			want: nil,
		},
	}

	p := parser.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := p.Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.References())
		})
	}
}

func hiveAcme(ref core.TableReference) (core.TablePath, error) {
	if ref.Catalog != "" {
		return core.TablePath(ref), nil
	}
	return core.TablePath{Catalog: "hive", Schema: "acme", Name: ref.Name}, nil
}

func TestStatement_RewriteTables(t *testing.T) {
	p := parser.New()
	stmt, err := p.Parse("SELECT * FROM events")
	require.NoError(t, err)

	require.NoError(t, stmt.RewriteTables(hiveAcme))
	assert.Equal(t, "SELECT * FROM hive.acme.events", stmt.Render())
	assert.Equal(t, "SELECT * FROM events", stmt.Text(), "input text is not modified")
}

func TestStatement_RenderKeepsDialect(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "cast",
			sql:  "SELECT CAST(x AS integer) FROM events",
			want: "SELECT CAST(x AS integer) FROM hive.acme.events",
		},
		{
			name: "typed literals",
			sql:  "SELECT * FROM events WHERE ts > timestamp '2020-01-01 00:00:00' AND d = date '2020-01-01'",
			want: "SELECT * FROM hive.acme.events WHERE ts > timestamp '2020-01-01 00:00:00' AND d = date '2020-01-01'",
		},
		{
			name: "extract and interval",
			sql:  "SELECT EXTRACT(year FROM ts), ts + interval '1' day FROM events",
			want: "SELECT EXTRACT(year FROM ts), ts + interval '1' day FROM hive.acme.events",
		},
		{
			name: "case and layout",
			sql:  "select a\n  from Events e\n  where e.x = 1",
			want: "select a\n  from hive.acme.Events e\n  where e.x = 1",
		},
		{
			name: "quoted name keeps its quotes",
			sql:  `SELECT * FROM "Events"`,
			want: `SELECT * FROM hive.acme."Events"`,
		},
		{
			name: "comments and terminator",
			sql:  "/* report */ SELECT * FROM events; -- done",
			want: "/* report */ SELECT * FROM hive.acme.events",
		},
		{
			name: "unchanged physical name keeps its spelling",
			sql:  "SELECT * FROM HIVE.acme.events",
			want: "SELECT * FROM HIVE.acme.events",
		},
		{
			name: "several names",
			sql:  "SELECT * FROM a JOIN b USING (id) WHERE id IN (SELECT id FROM c)",
			want: "SELECT * FROM hive.acme.a JOIN hive.acme.b USING (id) WHERE id IN (SELECT id FROM hive.acme.c)",
		},
	}

	p := parser.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := p.Parse(tt.sql)
			require.NoError(t, err)
			require.NoError(t, stmt.RewriteTables(hiveAcme))
			assert.Equal(t, tt.want, stmt.Render())
		})
	}
}

func TestStatement_RewriteNamePositions(t *testing.T) {
	materialized := func(ref core.TableReference) (core.TablePath, error) {
		if ref.Schema == "materialized" {
			return core.TablePath{Schema: "acme", Name: "_materialized_" + ref.Name}, nil
		}
		return hiveAcme(ref)
	}

	tests := []struct {
		name string
		sql  string
		want string
		refs []core.TableReference
	}{
		{
			name: "drop view",
			sql:  "DROP VIEW materialized.daily",
			want: "DROP VIEW acme._materialized_daily",
			refs: []core.TableReference{{Schema: "materialized", Name: "daily"}},
		},
		{
			name: "drop several tables",
			sql:  "DROP TABLE IF EXISTS events, materialized.daily",
			want: "DROP TABLE IF EXISTS hive.acme.events, acme._materialized_daily",
			refs: []core.TableReference{{Name: "events"}, {Schema: "materialized", Name: "daily"}},
		},
		{
			name: "drop materialized view",
			sql:  "DROP MATERIALIZED VIEW daily",
			want: "DROP MATERIALIZED VIEW hive.acme.daily",
			refs: []core.TableReference{{Name: "daily"}},
		},
		{
			name: "comment on table",
			sql:  "COMMENT ON TABLE events IS 'x'",
			want: "COMMENT ON TABLE hive.acme.events IS 'x'",
			refs: []core.TableReference{{Name: "events"}},
		},
		{
			name: "comment on column",
			sql:  "COMMENT ON COLUMN events.kind IS 'x'",
			want: "COMMENT ON COLUMN hive.acme.events.kind IS 'x'",
			refs: []core.TableReference{{Name: "events"}},
		},
		{
			name: "rename table qualifies the new name",
			sql:  "ALTER TABLE events RENAME TO e2",
			want: "ALTER TABLE hive.acme.events RENAME TO hive.acme.e2",
			refs: []core.TableReference{{Name: "events"}, {Name: "e2"}},
		},
		{
			name: "rename keeps the schema of the old name",
			sql:  "ALTER VIEW materialized.daily RENAME TO weekly",
			want: "ALTER VIEW acme._materialized_daily RENAME TO acme._materialized_weekly",
			refs: []core.TableReference{{Schema: "materialized", Name: "daily"}, {Schema: "materialized", Name: "weekly"}},
		},
		{
			name: "rename of a physical table",
			sql:  "ALTER TABLE hive.acme.events RENAME TO e2",
			want: "ALTER TABLE hive.acme.events RENAME TO hive.acme.e2",
			refs: []core.TableReference{{Catalog: "hive", Schema: "acme", Name: "events"}, {Catalog: "hive", Schema: "acme", Name: "e2"}},
		},
		{
			name: "column rename leaves the column alone",
			sql:  "ALTER TABLE events RENAME COLUMN a TO b",
			want: "ALTER TABLE hive.acme.events RENAME COLUMN a TO b",
			refs: []core.TableReference{{Name: "events"}},
		},
	}

	p := parser.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := p.Parse(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.refs, stmt.References())
			require.NoError(t, stmt.RewriteTables(materialized))
			assert.Equal(t, tt.want, stmt.Render())
		})
	}
}

func TestStatement_RewriteRejectsUnsupportedNames(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "drop schema", sql: "DROP SCHEMA acme"},
		{name: "drop function", sql: "DROP FUNCTION cleanup()"},
		{name: "comment on schema", sql: "COMMENT ON SCHEMA acme IS 'x'"},
		{name: "rename schema", sql: "ALTER SCHEMA acme RENAME TO globex"},
		{name: "set schema", sql: "ALTER TABLE events SET SCHEMA globex"},
	}

	p := parser.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := p.Parse(tt.sql)
			require.NoError(t, err)
			err = stmt.RewriteTables(hiveAcme)
			var argErr *core.ArgumentError
			require.True(t, errors.As(err, &argErr), "expected ArgumentError, got %T: %v", err, err)
			assert.Contains(t, argErr.Reason, "not supported")
		})
	}
}

func TestStatement_RewriteTablesStopsOnError(t *testing.T) {
	p := parser.New()
	stmt, err := p.Parse("SELECT * FROM a JOIN b ON a.id = b.id")
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = stmt.RewriteTables(func(core.TableReference) (core.TablePath, error) {
		calls++
		return core.TablePath{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "walk should stop at the first error")
}

func TestStatement_LimitCount(t *testing.T) {
	p := parser.New()

	stmt, err := p.Parse("SELECT * FROM events")
	require.NoError(t, err)
	assert.Nil(t, stmt.LimitCount())

	stmt, err = p.Parse("SELECT * FROM events LIMIT 10")
	require.NoError(t, err)
	assert.NotNil(t, stmt.LimitCount())

	ddl, err := p.Parse("CREATE TABLE events (id int)")
	require.NoError(t, err)
	assert.Nil(t, ddl.Select())
	assert.Nil(t, ddl.LimitCount())
}

func TestParser_LockObserver(t *testing.T) {
	var calls atomic.Int32
	p := parser.New(parser.WithLockObserver(func(time.Duration) {
		calls.Add(1)
	}))

	_, err := p.Parse("SELECT 1")
	require.NoError(t, err)
	_, _ = p.Parse("SELEC")
	assert.Equal(t, int32(2), calls.Load())
}

func TestParser_Concurrent(t *testing.T) {
	p := parser.New()

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			table := fmt.Sprintf("t%d", i)
			stmt, err := p.Parse("SELECT * FROM " + table)
			if err != nil {
				return err
			}
			refs := stmt.References()
			if len(refs) != 1 || refs[0].Name != table {
				return fmt.Errorf("got %v, want %s", refs, table)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

package parser

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// References returns the distinct table references in the statement, in
// order of first appearance in the tree. Names bound by WITH clauses are
// excluded.
func (s *Statement) References() []core.TableReference {
	var refs []core.TableReference
	seen := make(map[core.TableReference]bool)
	_ = s.eachTable(func(name tableName) error {
		if !seen[name.ref] {
			seen[name.ref] = true
			refs = append(refs, name.ref)
		}
		return nil
	})
	return refs
}

// RewriteTables replaces every table reference with the path returned by fn.
// The first error from fn aborts the rewrite and is returned unchanged; the
// statement must then be discarded. Statements with name positions that
// cannot be rewritten fail with *core.ArgumentError.
func (s *Statement) RewriteTables(fn func(core.TableReference) (core.TablePath, error)) error {
	return s.eachTable(func(name tableName) error {
		path, err := fn(name.ref)
		if err != nil {
			return err
		}
		if path == core.TablePath(name.ref) && name.parts == pathParts(path) {
			return nil
		}
		s.edits = append(s.edits, edit{start: name.start, end: name.end, text: s.renderPath(name, path)})
		return nil
	})
}

// tableName is a place in the text that names a table.
type tableName struct {
	ref core.TableReference
	// start and end delimit the whole dotted name; nameStart is where its
	// last part begins.
	start, nameStart, end int
	// parts is how many dotted parts the text has.
	parts int
}

// renderPath writes path in place of name. The last part keeps its
// original spelling when the table name itself is unchanged.
func (s *Statement) renderPath(name tableName, path core.TablePath) string {
	var b strings.Builder
	for _, part := range []string{path.Catalog, path.Schema} {
		if part != "" {
			b.WriteString(quoteIdent(part))
			b.WriteByte('.')
		}
	}
	if path.Name == name.ref.Name {
		b.WriteString(s.text[name.nameStart:name.end])
	} else {
		b.WriteString(quoteIdent(path.Name))
	}
	return b.String()
}

func pathParts(path core.TablePath) int {
	n := 1
	if path.Schema != "" {
		n++
	}
	if path.Catalog != "" {
		n++
	}
	return n
}

// relationWords lists the object types whose names are tables, with the
// words that introduce them in DROP and COMMENT ON.
var relationWords = map[pg_query.ObjectType][]string{
	pg_query.ObjectType_OBJECT_TABLE:         {"table"},
	pg_query.ObjectType_OBJECT_VIEW:          {"view"},
	pg_query.ObjectType_OBJECT_MATVIEW:       {"materialized", "view"},
	pg_query.ObjectType_OBJECT_FOREIGN_TABLE: {"foreign", "table"},
}

func (s *Statement) eachTable(fn func(tableName) error) error {
	ctes := s.cteNames()
	done := make(map[*pg_query.RangeVar]bool)
	return walk(s.tree.ProtoReflect(), func(m protoreflect.Message) error {
		switch node := m.Interface().(type) {
		case *pg_query.RangeVar:
			if done[node] {
				return nil
			}
			if node.GetCatalogname() == "" && node.GetSchemaname() == "" && ctes[node.GetRelname()] {
				return nil
			}
			name, err := s.rangeVarName(node)
			if err != nil {
				return err
			}
			return fn(name)
		case *pg_query.DropStmt:
			return s.dropNames(node, fn)
		case *pg_query.CommentStmt:
			return s.commentName(node, fn)
		case *pg_query.RenameStmt:
			if node.GetRelation() == nil {
				return unsupported("ALTER ... RENAME of a " + objectKind(node.GetRenameType()))
			}
			done[node.GetRelation()] = true
			return s.renameNames(node, fn)
		case *pg_query.AlterObjectSchemaStmt:
			return unsupported("ALTER ... SET SCHEMA")
		}
		return nil
	})
}

func (s *Statement) rangeVarName(rv *pg_query.RangeVar) (tableName, error) {
	ref := core.TableReference{
		Catalog: rv.GetCatalogname(),
		Schema:  rv.GetSchemaname(),
		Name:    rv.GetRelname(),
	}
	i, ok := s.tokenAt(int(rv.GetLocation()))
	if !ok {
		return tableName{}, unlocated(ref)
	}
	return s.nameAt(i, ref)
}

// nameAt reads the dotted name at token i and checks it has as many parts
// as ref.
func (s *Statement) nameAt(i int, ref core.TableReference) (tableName, error) {
	parts, _, ok := s.dottedName(i)
	if !ok || len(parts) != pathParts(core.TablePath(ref)) {
		return tableName{}, unlocated(ref)
	}
	return s.spanOf(ref, parts), nil
}

func (s *Statement) spanOf(ref core.TableReference, parts []int) tableName {
	first, last := s.tokens[parts[0]], s.tokens[parts[len(parts)-1]]
	return tableName{
		ref:       ref,
		start:     int(first.GetStart()),
		nameStart: int(last.GetStart()),
		end:       int(last.GetEnd()),
		parts:     len(parts),
	}
}

// dropNames visits DROP TABLE/VIEW targets. The tree stores them as string
// lists without positions, so they are read from the text in order.
func (s *Statement) dropNames(node *pg_query.DropStmt, fn func(tableName) error) error {
	words, ok := relationWords[node.GetRemoveType()]
	if !ok {
		return unsupported("DROP of a " + objectKind(node.GetRemoveType()))
	}

	i, ok := s.skipWords(0, "drop")
	if ok {
		i, ok = s.skipWords(i, words...)
	}
	if !ok {
		return unsupported("this form of DROP")
	}
	if next, ok := s.skipWords(i, "if", "exists"); ok {
		i = next
	}

	for n, obj := range node.GetObjects() {
		ref, ok := listReference(obj.GetList())
		if !ok {
			return unsupported("this form of DROP")
		}
		if n > 0 {
			if i >= len(s.tokens) || s.tokens[i].GetToken() != pg_query.Token_ASCII_44 {
				return unlocated(ref)
			}
			i++
		}
		parts, next, ok := s.dottedName(i)
		if !ok || len(parts) != pathParts(core.TablePath(ref)) {
			return unlocated(ref)
		}
		if err := fn(s.spanOf(ref, parts)); err != nil {
			return err
		}
		i = next
	}
	return nil
}

// commentName visits the table of COMMENT ON TABLE/VIEW/COLUMN.
func (s *Statement) commentName(node *pg_query.CommentStmt, fn func(tableName) error) error {
	objType := node.GetObjtype()
	column := objType == pg_query.ObjectType_OBJECT_COLUMN
	words, ok := relationWords[objType]
	if column {
		words, ok = []string{"column"}, true
	}
	if !ok {
		return unsupported("COMMENT ON a " + objectKind(objType))
	}

	i, ok := s.skipWords(0, "comment", "on")
	if ok {
		i, ok = s.skipWords(i, words...)
	}
	list := node.GetObject().GetList()
	if !ok || list == nil {
		return unsupported("this form of COMMENT ON")
	}

	items := list.GetItems()
	parts, _, ok := s.dottedName(i)
	if !ok || len(parts) != len(items) {
		return unsupported("this form of COMMENT ON")
	}
	if column {
		// The last part names the column.
		items, parts = items[:len(items)-1], parts[:len(parts)-1]
	}
	ref, ok := listReference(&pg_query.List{Items: items})
	if !ok {
		return unsupported("this form of COMMENT ON")
	}
	return fn(s.spanOf(ref, parts))
}

// renameNames visits the renamed relation and, for a table or view rename,
// the new name. The new name lives next to the old one: it is resolved as a
// reference with the same prefix, so it is always qualified on output.
func (s *Statement) renameNames(node *pg_query.RenameStmt, fn func(tableName) error) error {
	src, err := s.rangeVarName(node.GetRelation())
	if err != nil {
		return err
	}
	if err := fn(src); err != nil {
		return err
	}
	if _, ok := relationWords[node.GetRenameType()]; !ok {
		// Column and constraint renames: the new name is not a table.
		return nil
	}

	ref := core.TableReference{Catalog: src.ref.Catalog, Schema: src.ref.Schema, Name: node.GetNewname()}
	last := len(s.tokens) - 1
	if last < 0 || !isNamePart(s.tokens[last]) || identValue(s.tokenText(last)) != ref.Name {
		return unlocated(ref)
	}
	tok := s.tokens[last]
	return fn(tableName{
		ref:       ref,
		start:     int(tok.GetStart()),
		nameStart: int(tok.GetStart()),
		end:       int(tok.GetEnd()),
		parts:     1,
	})
}

// listReference reads a dotted name stored as a list of strings.
func listReference(list *pg_query.List) (core.TableReference, bool) {
	items := list.GetItems()
	parts := make([]string, 0, len(items))
	for _, item := range items {
		str := item.GetString_()
		if str == nil {
			return core.TableReference{}, false
		}
		parts = append(parts, str.GetSval())
	}

	var ref core.TableReference
	switch len(parts) {
	case 1:
		ref.Name = parts[0]
	case 2:
		ref.Schema, ref.Name = parts[0], parts[1]
	case 3:
		ref.Catalog, ref.Schema, ref.Name = parts[0], parts[1], parts[2]
	default:
		return core.TableReference{}, false
	}
	return ref, true
}

func objectKind(t pg_query.ObjectType) string {
	return strings.ToLower(strings.TrimPrefix(t.String(), "OBJECT_"))
}

func unsupported(what string) error {
	return &core.ArgumentError{Field: "query", Reason: what + " is not supported"}
}

func unlocated(ref core.TableReference) error {
	return &core.ArgumentError{Field: "query", Reason: "cannot locate table name " + ref.String() + " in the statement text"}
}

// cteNames collects every CTE name declared anywhere in the statement.
// Scoping is not tracked: a CTE name shadows a same-named table everywhere.
func (s *Statement) cteNames() map[string]bool {
	names := make(map[string]bool)
	_ = walk(s.tree.ProtoReflect(), func(m protoreflect.Message) error {
		if cte, ok := m.Interface().(*pg_query.CommonTableExpr); ok {
			names[cte.GetCtename()] = true
		}
		return nil
	})
	return names
}

// walk visits m and every message reachable from it, depth-first, parents
// before children, fields in declaration order.
func walk(m protoreflect.Message, visit func(protoreflect.Message) error) error {
	if err := visit(m); err != nil {
		return err
	}

	fields := m.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.Kind() != protoreflect.MessageKind || fd.IsMap() || !m.Has(fd) {
			continue
		}
		if !fd.IsList() {
			if err := walk(m.Get(fd).Message(), visit); err != nil {
				return err
			}
			continue
		}
		list := m.Get(fd).List()
		for j := 0; j < list.Len(); j++ {
			if err := walk(list.Get(j).Message(), visit); err != nil {
				return err
			}
		}
	}
	return nil
}

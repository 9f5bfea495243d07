package core

import "strings"

// TableReference is a table name as written in a query: an optional prefix
// plus a table name. Three-part names carry both Catalog and Schema.
type TableReference struct {
	Catalog string
	Schema  string
	Name    string
}

// Prefix returns the qualifier in front of the table name, or "" when the
// reference is unqualified.
func (r TableReference) Prefix() string {
	return joinParts(r.Catalog, r.Schema)
}

// Qualified reports whether the reference carries any prefix.
func (r TableReference) Qualified() bool {
	return r.Catalog != "" || r.Schema != ""
}

func (r TableReference) String() string {
	return joinParts(r.Catalog, r.Schema, r.Name)
}

// TablePath is a fully resolved physical table location.
type TablePath struct {
	Catalog string
	Schema  string
	Name    string
}

func (p TablePath) String() string {
	return joinParts(p.Catalog, p.Schema, p.Name)
}

func joinParts(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, ".")
}

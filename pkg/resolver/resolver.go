// Package resolver maps project-relative table references to physical
// table paths.
//
// A project sees its tables through a small set of virtual schemas:
//
//	continuous.<table>    -> stream.<project>.<table>
//	materialized.<table>  -> <project>._materialized_<table>
//	<table>               -> <cold storage connector>.<project>.<table>
//
// Paths that are already physical for the same project are left alone, so
// rewriting a rewritten query is a no-op.
package resolver

import (
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

const (
	// ContinuousSchema is the virtual schema for streaming tables.
	ContinuousSchema = "continuous"
	// MaterializedSchema is the virtual schema for materialized views.
	MaterializedSchema = "materialized"
	// StreamCatalog is the engine catalog holding streaming tables.
	StreamCatalog = "stream"
	// MaterializedPrefix is prepended to the table name of materialized views.
	MaterializedPrefix = "_materialized_"
)

// UnknownSchemaMode decides what happens to a prefix that is not a virtual schema.
type UnknownSchemaMode int

const (
	// Strict rejects unknown prefixes with core.UnknownSchemaError.
	Strict UnknownSchemaMode = iota
	// Permissive uses an unknown two-part prefix as an explicit catalog name.
	Permissive
)

// ParseUnknownSchemaMode maps a configuration value to a mode.
func ParseUnknownSchemaMode(s string) (UnknownSchemaMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject", "strict":
		return Strict, nil
	case "catalog", "permissive":
		return Permissive, nil
	default:
		return Strict, &core.ArgumentError{Field: "rewrite.unknown_schema", Reason: "must be one of reject, catalog; got " + s}
	}
}

func (m UnknownSchemaMode) String() string {
	if m == Permissive {
		return "catalog"
	}
	return "reject"
}

// Resolver resolves table references. It holds no mutable state.
type Resolver struct {
	defaultCatalog string
	mode           UnknownSchemaMode
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithUnknownSchemaMode sets how unknown prefixes are handled. Default is Strict.
func WithUnknownSchemaMode(mode UnknownSchemaMode) Option {
	return func(r *Resolver) {
		r.mode = mode
	}
}

// New creates a resolver that places unqualified tables in defaultCatalog.
func New(defaultCatalog string, opts ...Option) (*Resolver, error) {
	if strings.TrimSpace(defaultCatalog) == "" {
		return nil, &core.ArgumentError{Field: "cold_storage_connector", Reason: "is required"}
	}
	r := &Resolver{defaultCatalog: defaultCatalog, mode: Strict}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// DefaultCatalog returns the catalog used for unqualified references.
func (r *Resolver) DefaultCatalog() string {
	return r.defaultCatalog
}

// Mode returns the unknown-prefix mode.
func (r *Resolver) Mode() UnknownSchemaMode {
	return r.mode
}

// Resolve maps ref to its physical path within project.
func (r *Resolver) Resolve(project string, ref core.TableReference) (core.TablePath, error) {
	if project == "" {
		return core.TablePath{}, &core.ArgumentError{Field: "project", Reason: "is required"}
	}
	if ref.Name == "" {
		return core.TablePath{}, &core.ArgumentError{Field: "table", Reason: "name is empty"}
	}

	switch {
	case !ref.Qualified():
		return core.TablePath{Catalog: r.defaultCatalog, Schema: project, Name: ref.Name}, nil

	case ref.Catalog == "" && ref.Schema == ContinuousSchema:
		return core.TablePath{Catalog: StreamCatalog, Schema: project, Name: ref.Name}, nil

	case ref.Catalog == "" && ref.Schema == MaterializedSchema:
		return core.TablePath{Schema: project, Name: MaterializedPrefix + ref.Name}, nil

	case isPhysical(project, ref):
		return core.TablePath(ref), nil

	case ref.Catalog == "" && r.mode == Permissive:
		return core.TablePath{Catalog: ref.Schema, Schema: project, Name: ref.Name}, nil

	default:
		return core.TablePath{}, &core.UnknownSchemaError{Schema: ref.Prefix()}
	}
}

// isPhysical reports whether ref already points at storage owned by project,
// in one of the shapes Resolve produces.
func isPhysical(project string, ref core.TableReference) bool {
	if ref.Schema != project {
		return false
	}
	if ref.Catalog != "" {
		return true
	}
	return strings.HasPrefix(ref.Name, MaterializedPrefix)
}

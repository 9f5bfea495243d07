// Package core defines the shared language of leapquery.
//
// This package contains:
//   - Naming types (TableReference, TablePath)
//   - Engine configuration (EngineConfig)
//   - The execution handle contract (Execution)
//   - The error taxonomy returned by every layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

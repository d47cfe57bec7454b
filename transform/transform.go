// Package transform rewrites IR modules into the shape a backend accepts.
//
// A Transform reads its config record from a DataMap, returns a rewritten
// copy of the module (never mutating its input) and attaches result records
// for later stages. A Manager runs an ordered list of transforms.
package transform

import "github.com/gogpu/raise/ir"

// Transform is one rewrite rule.
type Transform interface {
	// Name identifies the transform in errors and logs.
	Name() string

	// ShouldRun reports whether Apply would change m. It must not modify
	// its arguments.
	ShouldRun(m *ir.Module, inputs *DataMap) bool

	// Apply returns a rewritten copy of m and may add result records to
	// outputs. A nil module with a nil error means the transform is not
	// applicable and m should be used unchanged.
	Apply(m *ir.Module, inputs, outputs *DataMap) (*ir.Module, error)
}

// Ordered is implemented by transforms that must run before others in the
// same pipeline.
type Ordered interface {
	RunsBefore() []string
}

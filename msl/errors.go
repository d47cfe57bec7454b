package msl

import "errors"

var (
	// ErrMissingBinding reports a resource with no slot for an entry
	// point that uses it.
	ErrMissingBinding = errors.New("msl: missing binding")

	// ErrBindingConflict reports a resource given different slots by two
	// entry points.
	ErrBindingConflict = errors.New("msl: conflicting bindings")

	// ErrUnsupportedVersion reports a language version older than 1.2.
	ErrUnsupportedVersion = errors.New("msl: unsupported language version")
)

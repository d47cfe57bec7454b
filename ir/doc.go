// Package ir defines the intermediate representation the raise pipeline
// operates on.
//
// # Structure
//
// The IR is organized around a Module type that contains:
//   - Types: All type definitions used in the shader
//   - Constants: Module-scope constant values
//   - GlobalVariables: Module-scope variables (uniforms, storage, textures)
//   - Functions: All function definitions
//   - EntryPoints: Shader entry points with stage information
//
// Every cross reference is a typed handle (an index into one of the module
// arenas, or into a function's expression arena). Handles are stable for the
// lifetime of a Module; transforms never renumber existing objects, they
// append.
//
// # Expressions and statements
//
// Expressions live in a per-function arena and are made visible to
// statements by Emit ranges. Expressions that produce no work when
// evaluated (literals, arguments, variable references, call results) are
// never inside an Emit range; see NeedsEmit.
//
// # Rewriting
//
// Modules are treated as immutable snapshots. A transform clones the module
// (Module.Clone), then rebuilds individual functions with a Rewriter, which
// copies the old expression arena into a new one and records the old to new
// handle mapping.
package ir

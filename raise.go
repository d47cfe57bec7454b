// Package raise rewrites shader IR modules into the shape a backend writer
// accepts.
//
// Each backend package (glsl, hlsl, msl, spirv) owns a pipeline of
// transforms from the transform package and an Options struct configuring
// it. This package picks the pipeline by Backend:
//
//	opts := raise.DefaultOptions()
//	opts.HLSL.ShaderModel = hlsl.ShaderModel6_0
//	out, results, err := raise.Raise(module, raise.BackendHLSL, opts)
//
// The input module is never modified. results holds the records the host
// needs to feed the raised shader, such as
// transform.ArrayLengthFromUniformResult.
package raise

import (
	"fmt"
	"strings"

	"github.com/gogpu/raise/glsl"
	"github.com/gogpu/raise/hlsl"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/msl"
	"github.com/gogpu/raise/spirv"
	"github.com/gogpu/raise/transform"
)

// Backend selects a target shading language.
type Backend uint8

const (
	BackendSPIRV Backend = iota
	BackendGLSL
	BackendHLSL
	BackendMSL
)

// Backends lists every backend.
var Backends = []Backend{BackendSPIRV, BackendGLSL, BackendHLSL, BackendMSL}

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendSPIRV:
		return "spirv"
	case BackendGLSL:
		return "glsl"
	case BackendHLSL:
		return "hlsl"
	case BackendMSL:
		return "msl"
	default:
		return fmt.Sprintf("Backend(%d)", uint8(b))
	}
}

// ParseBackend parses a backend name as returned by String.
func ParseBackend(s string) (Backend, error) {
	for _, b := range Backends {
		if strings.EqualFold(s, b.String()) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown backend %q", s)
}

// Options holds the options of every backend; Raise uses the one selected.
type Options struct {
	SPIRV spirv.Options
	GLSL  glsl.Options
	HLSL  hlsl.Options
	MSL   msl.Options
}

// DefaultOptions returns each backend's default options.
func DefaultOptions() Options {
	return Options{
		SPIRV: spirv.DefaultOptions(),
		GLSL:  glsl.DefaultOptions(),
		HLSL:  hlsl.DefaultOptions(),
		MSL:   msl.DefaultOptions(),
	}
}

// Raise runs the pipeline of backend over m.
//
// On error the input module is returned unchanged.
func Raise(m *ir.Module, backend Backend, opts Options, mopts ...transform.Option) (*ir.Module, *transform.DataMap, error) {
	switch backend {
	case BackendSPIRV:
		return spirv.Raise(m, opts.SPIRV, mopts...)
	case BackendGLSL:
		return glsl.Raise(m, opts.GLSL, mopts...)
	case BackendHLSL:
		return hlsl.Raise(m, opts.HLSL, mopts...)
	case BackendMSL:
		return msl.Raise(m, opts.MSL, mopts...)
	default:
		return m, nil, fmt.Errorf("raise: unknown backend %v", backend)
	}
}

// Validate validates an IR module for correctness.
//
// Returns the first validation error, or nil if the module is valid.
func Validate(module *ir.Module) error {
	errs, err := ir.Validate(module)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", &errs[0])
	}
	return nil
}

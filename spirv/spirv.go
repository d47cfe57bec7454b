package spirv

import (
	"errors"
	"fmt"

	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Word returns the version as encoded in the SPIR-V module header.
func (v Version) Word() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)<<8
}

// ErrUnsupportedVersion reports a version outside 1.0 to 1.6.
var ErrUnsupportedVersion = errors.New("spirv: unsupported version")

// Options configures the SPIR-V pipeline.
type Options struct {
	// Version is the SPIR-V version to target
	Version Version

	// DepthRangeOffsets, when set, clamps fragment depth to the viewport
	// depth range read from push constants at these offsets.
	DepthRangeOffsets *transform.DepthRangeOffsets

	// Remappings moves bindings and overrides storage access modes.
	Remappings transform.Remappings

	// Validation validates the module after every transform.
	Validation bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Version:    Version1_3,
		Validation: true,
	}
}

// Pipeline returns the manager and inputs Raise would run.
func Pipeline(opts Options, mopts ...transform.Option) (*transform.Manager, *transform.DataMap, error) {
	if opts.Version.Word() < Version1_0.Word() || opts.Version.Word() > Version1_6.Word() {
		return nil, nil, fmt.Errorf("%w %s", ErrUnsupportedVersion, opts.Version)
	}
	if opts.Validation {
		mopts = append([]transform.Option{transform.WithValidation()}, mopts...)
	}
	mgr := transform.NewManager(mopts...)
	inputs := transform.NewDataMap()

	mgr.Add(transform.BindingRemapper{})
	transform.Add(inputs, opts.Remappings)
	mgr.Add(transform.PreparePushConstants{})
	if opts.DepthRangeOffsets != nil {
		mgr.Add(transform.ClampFragDepth{})
		offsets := *opts.DepthRangeOffsets
		transform.Add(inputs, transform.ClampFragDepthConfig{Offsets: &offsets})
	}
	return mgr, inputs, nil
}

// Raise rewrites m into a module the SPIR-V writer accepts.
func Raise(m *ir.Module, opts Options, mopts ...transform.Option) (*ir.Module, *transform.DataMap, error) {
	mgr, inputs, err := Pipeline(opts, mopts...)
	if err != nil {
		return m, nil, err
	}
	return mgr.Run(m, inputs)
}

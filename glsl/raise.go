// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// Pipeline returns the manager and inputs Raise would run.
func Pipeline(m *ir.Module, opts Options, mopts ...transform.Option) (*transform.Manager, *transform.DataMap) {
	if opts.LangVersion.Major == 0 {
		opts.LangVersion = VersionES300
	}
	mgr := transform.NewManager(append([]transform.Option{transform.WithValidation()}, mopts...)...)
	inputs := transform.NewDataMap()

	v := opts.LangVersion
	if !v.SupportsTextureQueryLevels() || !v.SupportsTextureSamples() {
		mgr.Add(TextureBuiltinsFromUniform{})
		transform.Add(inputs, opts.TextureBuiltinsFromUniform)
	}
	mgr.Add(CombineSamplers{})
	transform.Add(inputs, opts.CombineSamplers)

	mgr.Add(transform.BindingRemapper{})
	transform.Add(inputs, opts.remappings(m))

	mgr.Add(transform.PreparePushConstants{})
	if opts.FirstIndexOffsets != nil {
		mgr.Add(transform.OffsetFirstIndex{})
		transform.Add(inputs, *opts.FirstIndexOffsets)
	}
	if opts.DepthRangeOffsets != nil {
		mgr.Add(transform.ClampFragDepth{})
		transform.Add(inputs, transform.ClampFragDepthConfig{Offsets: opts.DepthRangeOffsets})
	}
	return mgr, inputs
}

// Raise rewrites m into a module the GLSL writer accepts. Results of the
// individual transforms, such as TextureBuiltinsFromUniformResult, are
// returned in the DataMap.
func Raise(m *ir.Module, opts Options, mopts ...transform.Option) (*ir.Module, *transform.DataMap, error) {
	mgr, inputs := Pipeline(m, opts, mopts...)
	return mgr.Run(m, inputs)
}

// remappings merges the binding bases with the explicit remappings.
func (o Options) remappings(m *ir.Module) transform.Remappings {
	r := transform.Remappings{
		BindingPoints:   make(map[binding.Point]binding.Point),
		AccessControls:  o.BindingRemapper.AccessControls,
		AllowCollisions: o.BindingRemapper.AllowCollisions,
	}
	shift := func(bp binding.Point, base uint32) {
		if base != 0 {
			r.BindingPoints[bp] = binding.Point{Group: bp.Group, Binding: bp.Binding + base}
		}
	}
	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		switch m.Types[gv.Type].Inner.(type) {
		case ir.SamplerType:
			shift(*gv.Binding, o.SamplerBindingBase)
		case ir.ImageType:
			shift(*gv.Binding, o.TextureBindingBase)
		default:
			switch gv.Space {
			case ir.SpaceUniform:
				shift(*gv.Binding, o.UniformBindingBase)
			case ir.SpaceStorage:
				shift(*gv.Binding, o.StorageBindingBase)
			}
		}
	}
	if _, ok := m.GlobalAt(o.TextureBuiltinsFromUniform.UBOBinding); !ok {
		shift(o.TextureBuiltinsFromUniform.UBOBinding, o.UniformBindingBase)
	}
	for from, to := range o.BindingRemapper.BindingPoints {
		r.BindingPoints[from] = to
	}
	return r
}

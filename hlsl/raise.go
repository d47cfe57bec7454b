// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// targetOf returns the register target of a binding point.
func (o *Options) targetOf(bp binding.Point) (BindTarget, bool) {
	if bt, ok := o.BindingMap[bp]; ok {
		return bt, true
	}
	if o.FakeMissingBindings && bp.Group <= 0xff {
		return BindTarget{Space: uint8(bp.Group), Register: bp.Binding}, true
	}
	return BindTarget{}, false
}

// check validates the options against m before any transform runs.
func (o *Options) check(m *ir.Module) error {
	type slot struct {
		rt RegisterType
		bt BindTarget
	}
	owners := make(map[slot]string)
	for i := range m.GlobalVariables {
		gv := &m.GlobalVariables[i]
		if gv.Binding == nil {
			continue
		}
		bt, ok := o.targetOf(*gv.Binding)
		if !ok {
			return NewError(ErrMissingBinding, "no register for %q at %s", gv.Name, *gv.Binding)
		}
		s := slot{rt: RegisterTypeOf(m, gv), bt: bt}
		if prev, taken := owners[s]; taken {
			return NewError(ErrRegisterCollision, "%q and %q both use %s",
				prev, gv.Name, s.rt.Register(bt))
		}
		owners[s] = gv.Name
	}
	if o.PixelLocal != nil && !o.ShaderModel.SupportsRasterizerOrderedViews() {
		for i := range m.GlobalVariables {
			if m.GlobalVariables[i].Space == ir.SpacePixelLocal {
				return NewError(ErrInvalidShaderModel,
					"pixel_local variable %q needs rasterizer ordered views, which %s lacks",
					m.GlobalVariables[i].Name, o.ShaderModel)
			}
		}
	}
	return nil
}

// remappings moves every bound global to its register target. Different
// register types may share a target, so collisions are allowed.
func (o *Options) remappings(m *ir.Module) transform.Remappings {
	r := transform.Remappings{
		BindingPoints:   make(map[binding.Point]binding.Point),
		AllowCollisions: true,
	}
	add := func(bp binding.Point) {
		if bt, ok := o.targetOf(bp); ok && bt.Point() != bp {
			r.BindingPoints[bp] = bt.Point()
		}
	}
	for i := range m.GlobalVariables {
		if bp := m.GlobalVariables[i].Binding; bp != nil {
			add(*bp)
		}
	}
	if o.ArrayLength != nil {
		add(o.ArrayLength.UBOBinding)
	}
	return r
}

// Pipeline returns the manager and inputs Raise would run. It does not
// check the options.
func Pipeline(m *ir.Module, opts Options, mopts ...transform.Option) (*transform.Manager, *transform.DataMap) {
	mgr := transform.NewManager(append([]transform.Option{transform.WithValidation()}, mopts...)...)
	inputs := transform.NewDataMap()

	if opts.ArrayLength != nil {
		mgr.Add(transform.ArrayLengthFromUniform{})
		transform.Add(inputs, *opts.ArrayLength)
	}
	mgr.Add(transform.BindingRemapper{})
	transform.Add(inputs, opts.remappings(m))
	if opts.PixelLocal != nil {
		mgr.Add(PixelLocal{})
		transform.Add(inputs, *opts.PixelLocal)
	}
	mgr.Add(transform.PreparePushConstants{})
	if opts.FirstIndexOffsets != nil {
		mgr.Add(transform.OffsetFirstIndex{})
		transform.Add(inputs, *opts.FirstIndexOffsets)
	}
	mgr.Add(EscapeReserved{})
	return mgr, inputs
}

// Raise rewrites m into a module the HLSL writer accepts: resources sit at
// their register targets and features HLSL lacks are emulated. Option
// errors are *Error; transform errors are *transform.Error.
func Raise(m *ir.Module, opts Options, mopts ...transform.Option) (*ir.Module, *transform.DataMap, error) {
	if err := opts.check(m); err != nil {
		return m, nil, err
	}
	mgr, inputs := Pipeline(m, opts, mopts...)
	return mgr.Run(m, inputs)
}

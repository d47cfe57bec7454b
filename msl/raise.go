package msl

import (
	"fmt"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// remappings resolves every bound resource to the slot its entry points
// give it. Slots of different kinds share group 0, so collisions are
// allowed.
func (o *Options) remappings(m *ir.Module) (transform.Remappings, error) {
	r := transform.Remappings{
		BindingPoints:   make(map[binding.Point]binding.Point),
		AllowCollisions: true,
	}
	owner := make(map[binding.Point]string)
	assign := func(ep string, from, to binding.Point) error {
		if prev, seen := r.BindingPoints[from]; seen && prev != to {
			return fmt.Errorf("%w: %s is slot %d in %q but slot %d in %q",
				ErrBindingConflict, from, prev.Binding, owner[from], to.Binding, ep)
		}
		r.BindingPoints[from] = to
		owner[from] = ep
		return nil
	}

	cg := ir.BuildCallGraph(m)
	for _, ep := range m.EntryPoints {
		res := o.PerEntryPointMap[ep.Name]
		for _, h := range transform.GlobalsUsedBy(m, cg, ep.Function) {
			gv := &m.GlobalVariables[h]
			if gv.Binding == nil {
				continue
			}
			from := *gv.Binding
			to := from
			bt, mapped := res.Resources[from]
			slot, ok := bt.slotFor(m, gv)
			switch {
			case mapped && ok:
				to = binding.Point{Binding: uint32(slot)}
			case !o.FakeMissingBindings:
				return r, fmt.Errorf("%w: %q at %s has no slot in entry point %q",
					ErrMissingBinding, gv.Name, from, ep.Name)
			}
			if err := assign(ep.Name, from, to); err != nil {
				return r, err
			}
		}
		if o.ArrayLength != nil && res.SizesBuffer != nil {
			to := binding.Point{Binding: uint32(*res.SizesBuffer)}
			if err := assign(ep.Name, o.ArrayLength.UBOBinding, to); err != nil {
				return r, err
			}
		}
	}
	for from, to := range r.BindingPoints {
		if from == to {
			delete(r.BindingPoints, from)
		}
	}
	return r, nil
}

// Pipeline returns the manager and inputs Raise would run.
func Pipeline(m *ir.Module, opts Options, mopts ...transform.Option) (*transform.Manager, *transform.DataMap, error) {
	if opts.LangVersion == (Version{}) {
		opts.LangVersion = Version2_1
	}
	if opts.LangVersion.Less(Version1_2) {
		return nil, nil, fmt.Errorf("%w %s", ErrUnsupportedVersion, opts.LangVersion)
	}
	remap, err := opts.remappings(m)
	if err != nil {
		return nil, nil, err
	}

	mgr := transform.NewManager(append([]transform.Option{transform.WithValidation()}, mopts...)...)
	inputs := transform.NewDataMap()
	if opts.ArrayLength != nil {
		mgr.Add(transform.ArrayLengthFromUniform{})
		transform.Add(inputs, *opts.ArrayLength)
	}
	mgr.Add(transform.BindingRemapper{})
	transform.Add(inputs, remap)
	mgr.Add(transform.PreparePushConstants{})
	if opts.DepthRange != nil {
		mgr.Add(transform.ClampFragDepth{})
		offsets := *opts.DepthRange
		transform.Add(inputs, transform.ClampFragDepthConfig{Offsets: &offsets})
	}
	return mgr, inputs, nil
}

// Raise rewrites m into a module the MSL writer accepts.
func Raise(m *ir.Module, opts Options, mopts ...transform.Option) (*ir.Module, *transform.DataMap, error) {
	mgr, inputs, err := Pipeline(m, opts, mopts...)
	if err != nil {
		return m, nil, err
	}
	return mgr.Run(m, inputs)
}

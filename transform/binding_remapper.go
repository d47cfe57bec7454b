package transform

import (
	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/ir"
)

// BindingRemapper moves resources to new binding points and overrides the
// access mode of storage buffers.
type BindingRemapper struct{}

// Name implements Transform.
func (BindingRemapper) Name() string { return "BindingRemapper" }

// ShouldRun implements Transform.
func (BindingRemapper) ShouldRun(m *ir.Module, inputs *DataMap) bool {
	cfg, ok := Get[Remappings](inputs)
	if !ok {
		return false
	}
	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		if to, ok := cfg.BindingPoints[*gv.Binding]; ok && to != *gv.Binding {
			return true
		}
		if access, ok := cfg.AccessControls[*gv.Binding]; ok && access != gv.Access {
			return true
		}
	}
	return false
}

// Apply implements Transform.
func (t BindingRemapper) Apply(m *ir.Module, inputs, _ *DataMap) (*ir.Module, error) {
	cfg, ok := Get[Remappings](inputs)
	if !ok {
		return nil, MissingDataError(t)
	}
	if err := t.check(m, &cfg); err != nil {
		return nil, err
	}
	if !t.ShouldRun(m, inputs) {
		return nil, nil
	}

	out := m.Clone()
	for i := range out.GlobalVariables {
		gv := &out.GlobalVariables[i]
		if gv.Binding == nil {
			continue
		}
		from := *gv.Binding
		if access, ok := cfg.AccessControls[from]; ok {
			gv.Access = access
		}
		if to, ok := cfg.BindingPoints[from]; ok {
			*gv.Binding = to
		}
	}
	return out, nil
}

// check validates cfg against m without modifying either.
func (t BindingRemapper) check(m *ir.Module, cfg *Remappings) error {
	for _, bp := range binding.SortedKeys(cfg.AccessControls) {
		access := cfg.AccessControls[bp]
		if !access.Valid() {
			return NewError(t.Name(), InvalidConfig, "invalid access mode %d for %s", access, bp)
		}
		for _, gv := range m.GlobalVariables {
			if gv.Binding != nil && *gv.Binding == bp && gv.Space != ir.SpaceStorage {
				return NewError(t.Name(), InvalidConfig,
					"access control for %s applies to %s variable %q, not a storage buffer", bp, gv.Space, gv.Name)
			}
		}
	}
	if cfg.AllowCollisions {
		return nil
	}

	// Points that stay put are claimed first; a remapped resource may only
	// land on a point claimed by resources sharing its original point.
	used := binding.NewRegistry()
	owner := make(map[binding.Point]binding.Point)
	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		if _, moved := cfg.BindingPoints[*gv.Binding]; !moved {
			used.Insert(*gv.Binding)
			owner[*gv.Binding] = *gv.Binding
		}
	}
	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		from := *gv.Binding
		to, moved := cfg.BindingPoints[from]
		if !moved {
			continue
		}
		if !used.Insert(to) && owner[to] != from {
			return NewError(t.Name(), InvalidConfig,
				"remapping %q from %s to %s collides with the resource at %s", gv.Name, from, to, owner[to])
		}
		owner[to] = from
	}
	return nil
}

package transform

import "github.com/gogpu/raise/ir"

// ClampFragDepth clamps the frag_depth output of fragment entry points to
// the depth range held in push constants. Backends whose depth range is not
// enforced by the rasterizer need it for correct depth clipping.
type ClampFragDepth struct{}

// Name implements Transform.
func (ClampFragDepth) Name() string { return "ClampFragDepth" }

// fragDepthEntries returns the fragment entry functions with a frag_depth
// output.
func fragDepthEntries(m *ir.Module) []ir.FunctionHandle {
	var out []ir.FunctionHandle
	for _, fn := range EntryFunctions(m, ir.StageFragment) {
		if _, ok := fragDepthMember(m, &m.Functions[fn]); ok {
			out = append(out, fn)
		}
	}
	return out
}

// fragDepthMember locates frag_depth in the result of f: member is -1 when
// the result itself is frag_depth.
func fragDepthMember(m *ir.Module, f *ir.Function) (member int, ok bool) {
	if f.Result == nil {
		return 0, false
	}
	if ir.IsBuiltin(f.Result.Binding, ir.BuiltinFragDepth) {
		return -1, true
	}
	st, isStruct := m.StructOf(f.Result.Type)
	if !isStruct {
		return 0, false
	}
	for i, mem := range st.Members {
		if ir.IsBuiltin(mem.Binding, ir.BuiltinFragDepth) {
			return i, true
		}
	}
	return 0, false
}

// ShouldRun implements Transform.
func (ClampFragDepth) ShouldRun(m *ir.Module, inputs *DataMap) bool {
	cfg, ok := Get[ClampFragDepthConfig](inputs)
	return ok && cfg.Offsets != nil && len(fragDepthEntries(m)) > 0
}

// Apply implements Transform.
func (t ClampFragDepth) Apply(m *ir.Module, inputs, _ *DataMap) (*ir.Module, error) {
	cfg, ok := Get[ClampFragDepthConfig](inputs)
	if !ok {
		return nil, MissingDataError(t)
	}
	if cfg.Offsets == nil {
		return nil, nil
	}
	entries := fragDepthEntries(m)
	if len(entries) == 0 {
		return nil, nil
	}
	pc, ok := Get[PushConstantLayout](inputs)
	if !ok {
		return nil, NewError(t.Name(), MissingData, "missing transform data for %s", PreparePushConstants{}.Name())
	}
	minMember, okMin := pc.Member(MemberMinDepth)
	maxMember, okMax := pc.Member(MemberMaxDepth)
	if !okMin || !okMax {
		return nil, NewError(t.Name(), Internal, "push constants lack the depth range")
	}

	out := m.Clone()
	for _, fn := range entries {
		member, _ := fragDepthMember(m, &m.Functions[fn])
		rw := ir.NewRewriter(m, fn)
		rw.Return = func(rw *ir.Rewriter, value *ir.ExpressionHandle) *ir.ExpressionHandle {
			if value == nil {
				return nil
			}
			clamp := func(v ir.ExpressionHandle) ir.ExpressionHandle {
				lo := LoadGlobalMember(rw, pc.Variable, minMember)
				hi := LoadGlobalMember(rw, pc.Variable, maxMember)
				return rw.Add(ir.ExprMath{Fun: ir.MathClamp, Arg: v, Arg1: &lo, Arg2: &hi})
			}
			if member < 0 {
				h := clamp(*value)
				return &h
			}
			st, _ := m.StructOf(rw.Old.Result.Type)
			comps := make([]ir.ExpressionHandle, len(st.Members))
			for i := range st.Members {
				comps[i] = rw.Add(ir.ExprAccessIndex{Base: *value, Index: uint32(i)})
				if i == member {
					comps[i] = clamp(comps[i])
				}
			}
			h := rw.Add(ir.ExprCompose{Type: rw.Old.Result.Type, Components: comps})
			return &h
		}
		out.Functions[fn] = *rw.Run()
	}
	return out, nil
}

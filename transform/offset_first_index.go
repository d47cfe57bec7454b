package transform

import "github.com/gogpu/raise/ir"

// OffsetFirstIndex adds the first vertex and first instance, read from push
// constants, to the vertex_index and instance_index builtins of vertex entry
// points. Backends whose builtins start at zero regardless of the draw call
// need it.
type OffsetFirstIndex struct{}

// Name implements Transform.
func (OffsetFirstIndex) Name() string { return "OffsetFirstIndex" }

// builtinUse locates one builtin among an entry point's arguments: either a
// whole argument (Member < 0) or a member of a struct argument.
type builtinUse struct {
	Builtin ir.BuiltinValue
	Arg     uint32
	Member  int
}

func builtinUses(m *ir.Module, f *ir.Function, builtin ir.BuiltinValue) []builtinUse {
	var uses []builtinUse
	for i, arg := range f.Arguments {
		if ir.IsBuiltin(arg.Binding, builtin) {
			uses = append(uses, builtinUse{Builtin: builtin, Arg: uint32(i), Member: -1})
			continue
		}
		st, ok := m.StructOf(arg.Type)
		if !ok {
			continue
		}
		for j, mem := range st.Members {
			if ir.IsBuiltin(mem.Binding, builtin) {
				uses = append(uses, builtinUse{Builtin: builtin, Arg: uint32(i), Member: j})
			}
		}
	}
	return uses
}

// firstIndexUses reports whether any vertex entry point reads vertex_index
// or instance_index.
func firstIndexUses(m *ir.Module) (vertex, instance bool) {
	for _, fn := range EntryFunctions(m, ir.StageVertex) {
		f := &m.Functions[fn]
		vertex = vertex || len(builtinUses(m, f, ir.BuiltinVertexIndex)) > 0
		instance = instance || len(builtinUses(m, f, ir.BuiltinInstanceIndex)) > 0
	}
	return vertex, instance
}

// ShouldRun implements Transform.
func (OffsetFirstIndex) ShouldRun(m *ir.Module, inputs *DataMap) bool {
	cfg, ok := Get[OffsetFirstIndexConfig](inputs)
	if !ok {
		return false
	}
	vertex, instance := firstIndexUses(m)
	return cfg.FirstVertexOffset != nil && vertex || cfg.FirstInstanceOffset != nil && instance
}

// Apply implements Transform.
func (t OffsetFirstIndex) Apply(m *ir.Module, inputs, outputs *DataMap) (*ir.Module, error) {
	cfg, ok := Get[OffsetFirstIndexConfig](inputs)
	if !ok {
		return nil, MissingDataError(t)
	}
	if !t.ShouldRun(m, inputs) {
		return nil, nil
	}
	pc, ok := Get[PushConstantLayout](inputs)
	if !ok {
		return nil, NewError(t.Name(), MissingData, "missing transform data for %s", PreparePushConstants{}.Name())
	}

	members := make(map[ir.BuiltinValue]uint32)
	if cfg.FirstVertexOffset != nil {
		i, ok := pc.Member(MemberFirstVertex)
		if ok {
			members[ir.BuiltinVertexIndex] = i
		}
	}
	if cfg.FirstInstanceOffset != nil {
		i, ok := pc.Member(MemberFirstInstance)
		if ok {
			members[ir.BuiltinInstanceIndex] = i
		}
	}
	if len(members) == 0 {
		return nil, NewError(t.Name(), Internal, "push constants lack the first index members")
	}

	out := m.Clone()
	var result OffsetFirstIndexResult
	for _, fn := range EntryFunctions(m, ir.StageVertex) {
		f := &m.Functions[fn]
		var uses []builtinUse
		for _, b := range []ir.BuiltinValue{ir.BuiltinVertexIndex, ir.BuiltinInstanceIndex} {
			if _, ok := members[b]; ok {
				uses = append(uses, builtinUses(m, f, b)...)
			}
		}
		if len(uses) == 0 {
			continue
		}
		for _, u := range uses {
			if u.Builtin == ir.BuiltinVertexIndex {
				result.HasVertexIndex = true
			} else {
				result.HasInstanceIndex = true
			}
		}
		out.Functions[fn] = *offsetBuiltins(m, fn, uses, pc.Variable, members)
	}
	Add(outputs, result)
	return out, nil
}

// offsetBuiltins rewrites fn so every read of a builtin in uses yields the
// builtin plus its push-constant member.
func offsetBuiltins(m *ir.Module, fn ir.FunctionHandle, uses []builtinUse, pc ir.GlobalVariableHandle, members map[ir.BuiltinValue]uint32) *ir.Function {
	rw := ir.NewRewriter(m, fn)
	offsets := make(map[ir.BuiltinValue]ir.ExpressionHandle)
	whole := make(map[uint32]ir.BuiltinValue)
	field := make(map[[2]uint32]ir.BuiltinValue)
	for _, u := range uses {
		if u.Member < 0 {
			whole[u.Arg] = u.Builtin
		} else {
			field[[2]uint32{u.Arg, uint32(u.Member)}] = u.Builtin
		}
	}

	rw.Prologue = func(rw *ir.Rewriter) {
		for _, b := range []ir.BuiltinValue{ir.BuiltinVertexIndex, ir.BuiltinInstanceIndex} {
			if member, ok := members[b]; ok {
				offsets[b] = LoadGlobalMember(rw, pc, member)
			}
		}
		// Whole-argument builtins are summed once; every reference to the
		// argument sees the sum.
		sums := make(map[uint32]ir.ExpressionHandle)
		for h, e := range rw.Old.Expressions {
			arg, ok := e.Kind.(ir.ExprFunctionArgument)
			if !ok {
				continue
			}
			b, ok := whole[arg.Index]
			if !ok {
				continue
			}
			sum, ok := sums[arg.Index]
			if !ok {
				sum = rw.Add(ir.ExprBinary{Op: ir.BinaryAdd, Left: rw.Argument(arg.Index), Right: offsets[b]})
				sums[arg.Index] = sum
			}
			rw.Map(ir.ExpressionHandle(h), sum)
		}
	}
	rw.Expression = func(rw *ir.Rewriter, old ir.ExpressionHandle) (ir.ExpressionHandle, bool) {
		acc, ok := rw.Old.Expressions[old].Kind.(ir.ExprAccessIndex)
		if !ok {
			return 0, false
		}
		arg, ok := rw.Old.Expressions[acc.Base].Kind.(ir.ExprFunctionArgument)
		if !ok {
			return 0, false
		}
		b, ok := field[[2]uint32{arg.Index, acc.Index}]
		if !ok {
			return 0, false
		}
		return rw.Add(ir.ExprBinary{Op: ir.BinaryAdd, Left: rw.Copy(old), Right: offsets[b]}), true
	}
	return rw.Run()
}

package transform

import (
	"errors"
	"slices"

	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/layout"
)

// Internal push-constant member names.
const (
	MemberMinDepth      = "min_depth"
	MemberMaxDepth      = "max_depth"
	MemberFirstVertex   = "first_vertex"
	MemberFirstInstance = "first_instance"
	memberUser          = "user"
)

// PreparePushConstants builds the single push-constant block holding the
// values later transforms read: the depth range for ClampFragDepth and the
// first vertex and instance for OffsetFirstIndex. A push-constant block the
// shader already declares becomes member 0 of the new block.
//
// It must run before ClampFragDepth and OffsetFirstIndex.
type PreparePushConstants struct{}

// Name implements Transform.
func (PreparePushConstants) Name() string { return "PreparePushConstants" }

// RunsBefore implements Ordered.
func (PreparePushConstants) RunsBefore() []string {
	return []string{ClampFragDepth{}.Name(), OffsetFirstIndex{}.Name()}
}

type pushMember struct {
	name   string
	scalar ir.ScalarType
	offset uint32
}

func (PreparePushConstants) requested(m *ir.Module, inputs *DataMap) []pushMember {
	var members []pushMember
	if cfg, ok := Get[ClampFragDepthConfig](inputs); ok && cfg.Offsets != nil && len(fragDepthEntries(m)) > 0 {
		members = append(members,
			pushMember{MemberMinDepth, ir.F32, cfg.Offsets.Min},
			pushMember{MemberMaxDepth, ir.F32, cfg.Offsets.Max})
	}
	if cfg, ok := Get[OffsetFirstIndexConfig](inputs); ok {
		vertex, instance := firstIndexUses(m)
		if cfg.FirstVertexOffset != nil && vertex {
			members = append(members, pushMember{MemberFirstVertex, ir.U32, *cfg.FirstVertexOffset})
		}
		if cfg.FirstInstanceOffset != nil && instance {
			members = append(members, pushMember{MemberFirstInstance, ir.U32, *cfg.FirstInstanceOffset})
		}
	}
	return members
}

// ShouldRun implements Transform.
func (t PreparePushConstants) ShouldRun(m *ir.Module, inputs *DataMap) bool {
	return len(t.requested(m, inputs)) > 0
}

// Apply implements Transform.
func (t PreparePushConstants) Apply(m *ir.Module, inputs, outputs *DataMap) (*ir.Module, error) {
	members := t.requested(m, inputs)
	if len(members) == 0 {
		return nil, nil
	}
	if cfg, ok := Get[ClampFragDepthConfig](inputs); ok && cfg.Offsets != nil && cfg.Offsets.Min >= cfg.Offsets.Max {
		return nil, NewError(t.Name(), InvalidConfig,
			"depth range offsets must satisfy min < max, got min %d, max %d", cfg.Offsets.Min, cfg.Offsets.Max)
	}

	user := -1
	for i, gv := range m.GlobalVariables {
		if gv.Space != ir.SpacePushConstant {
			continue
		}
		if user >= 0 {
			return nil, NewError(t.Name(), UnsupportedInput,
				"more than one push-constant variable (%q and %q)", m.GlobalVariables[user].Name, gv.Name)
		}
		user = i
	}

	out := m.Clone()
	b := layout.NewStructBuilder(out)
	var userSpan uint32
	if user >= 0 {
		ty := out.GlobalVariables[user].Type
		userSpan = layout.SizeOf(out, ty)
		if err := b.AddAt(memberUser, ty, 0); err != nil {
			return nil, NewError(t.Name(), Internal, "%v", err)
		}
	}
	types := ir.NewTypeRegistry(out)
	slices.SortStableFunc(members, func(x, y pushMember) int { return int(x.offset) - int(y.offset) })
	for _, mem := range members {
		if mem.offset < userSpan {
			return nil, NewError(t.Name(), InvalidConfig,
				"%s offset %d is inside the shader's push constants (%d bytes)", mem.name, mem.offset, userSpan)
		}
		if err := b.AddAt(mem.name, types.Scalar(mem.scalar), mem.offset); err != nil {
			if errors.Is(err, layout.ErrUnaligned) || errors.Is(err, layout.ErrOverlap) {
				return nil, NewError(t.Name(), InvalidConfig, "%v", err)
			}
			return nil, NewError(t.Name(), Internal, "%v", err)
		}
	}

	result := PushConstantLayout{Members: make(map[string]uint32, len(members))}
	for _, mem := range members {
		result.Members[mem.name], _ = b.Index(mem.name)
	}
	st := types.GetOrCreate(UniqueTypeName(out, "PushConstants"), b.Finish())

	if user < 0 {
		out.GlobalVariables = append(out.GlobalVariables, ir.GlobalVariable{
			Name:  UniqueGlobalName(out, "push_constants"),
			Space: ir.SpacePushConstant,
			Type:  st,
		})
		result.Variable = ir.GlobalVariableHandle(len(out.GlobalVariables) - 1)
		Add(outputs, result)
		return out, nil
	}

	gv := ir.GlobalVariableHandle(user)
	out.GlobalVariables[gv].Type = st
	userMember, _ := b.Index(memberUser)
	result.Variable = gv
	result.UserMember = &userMember
	for i := range m.Functions {
		if !UsesGlobal(&m.Functions[i], gv) {
			continue
		}
		out.Functions[i] = *redirectUserPushConstants(m, ir.FunctionHandle(i), gv, userMember)
	}
	Add(outputs, result)
	return out, nil
}

// redirectUserPushConstants makes every reference to gv in fn point at its
// user member. The member pointer is formed once in the prologue.
func redirectUserPushConstants(m *ir.Module, fn ir.FunctionHandle, gv ir.GlobalVariableHandle, member uint32) *ir.Function {
	rw := ir.NewRewriter(m, fn)
	rw.Prologue = func(rw *ir.Rewriter) {
		var ptr *ir.ExpressionHandle
		for h, e := range rw.Old.Expressions {
			g, ok := e.Kind.(ir.ExprGlobalVariable)
			if !ok || g.Variable != gv {
				continue
			}
			if ptr == nil {
				p := rw.Add(ir.ExprAccessIndex{Base: rw.Add(ir.ExprGlobalVariable{Variable: gv}), Index: member})
				ptr = &p
			}
			rw.Map(ir.ExpressionHandle(h), *ptr)
		}
	}
	return rw.Run()
}

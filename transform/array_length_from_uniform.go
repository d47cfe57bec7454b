package transform

import (
	"fmt"
	"slices"

	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/layout"
)

// ArrayLengthFromUniform replaces arrayLength() on runtime-sized arrays in
// storage buffers with a computation from the buffer's byte size, read from
// a uniform buffer the host fills in:
//
//	(buffer_size[idx / 4][idx % 4] - offset) / stride
//
// where idx is the buffer's size index, offset the byte offset of the array
// in the buffer and stride its element stride. Functions that take the
// array pointer as a parameter receive the length as an extra u32
// parameter instead. Buffers without a size index are left alone.
type ArrayLengthFromUniform struct{}

// Name implements Transform.
func (ArrayLengthFromUniform) Name() string { return "ArrayLengthFromUniform" }

type arrayLengthKind struct{}

// ShouldRun implements Transform.
func (ArrayLengthFromUniform) ShouldRun(m *ir.Module, inputs *DataMap) bool {
	cfg, ok := Get[ArrayLengthFromUniformOptions](inputs)
	if !ok {
		return false
	}
	for i := range m.Functions {
		f := &m.Functions[i]
		for _, e := range f.Expressions {
			al, ok := e.Kind.(ir.ExprArrayLength)
			if !ok {
				continue
			}
			switch k := f.Expressions[f.Root(al.Array)].Kind.(type) {
			case ir.ExprFunctionArgument:
				return true
			case ir.ExprGlobalVariable:
				if b := m.GlobalVariables[k.Variable].Binding; b != nil {
					if _, ok := cfg.BindpointToSizeIndex[*b]; ok {
						return true
					}
				}
			}
		}
	}
	return false
}

// runtimeArray locates the runtime-sized array ptr points at: its byte
// offset within the buffer and its element stride.
func runtimeArray(m *ir.Module, f *ir.Function, ptr ir.ExpressionHandle) (offset, stride uint32, err error) {
	switch k := f.Expressions[ptr].Kind.(type) {
	case ir.ExprGlobalVariable:
		if arr, ok := m.Types[m.GlobalVariables[k.Variable].Type].Inner.(ir.ArrayType); ok && arr.Size.Constant == nil {
			return 0, arr.Stride, nil
		}
	case ir.ExprAccessIndex:
		g, ok := f.Expressions[k.Base].Kind.(ir.ExprGlobalVariable)
		if !ok {
			break
		}
		st, ok := m.StructOf(m.GlobalVariables[g.Variable].Type)
		if !ok || int(k.Index) >= len(st.Members) {
			break
		}
		mem := st.Members[k.Index]
		if arr, ok := m.Types[mem.Type].Inner.(ir.ArrayType); ok && arr.Size.Constant == nil {
			return mem.Offset, arr.Stride, nil
		}
	}
	return 0, 0, fmt.Errorf("arrayLength operand in %q is not a runtime-sized array of a storage buffer", f.Name)
}

// Apply implements Transform.
//
//nolint:gocyclo,cyclop,funlen // analysis and rewrite share the use tables
func (t ArrayLengthFromUniform) Apply(m *ir.Module, inputs, outputs *DataMap) (*ir.Module, error) {
	cfg, ok := Get[ArrayLengthFromUniformOptions](inputs)
	if !ok {
		return nil, MissingDataError(t)
	}
	if !t.ShouldRun(m, inputs) {
		return nil, nil
	}
	if gv, taken := m.GlobalAt(cfg.UBOBinding); taken {
		return nil, NewError(t.Name(), InvalidConfig,
			"buffer size uniform binding %s is already used by %q", cfg.UBOBinding, m.GlobalVariables[gv].Name)
	}

	out := m.Clone()
	types := ir.NewTypeRegistry(out)
	u32 := types.Scalar(ir.U32)

	sizeIndex := func(gv ir.GlobalVariableHandle) (uint32, bool) {
		b := m.GlobalVariables[gv].Binding
		if b == nil {
			return 0, false
		}
		idx, ok := cfg.BindpointToSizeIndex[*b]
		return idx, ok
	}

	th, err := NewThreader[arrayLengthKind](m, func(n int) string {
		if n == 0 {
			return "buffer_length"
		}
		return fmt.Sprintf("buffer_length_%d", n)
	}, u32)
	if err != nil {
		return nil, Attribute(t.Name(), err)
	}
	th.CheckGlobal = func(fn ir.FunctionHandle, src Source[arrayLengthKind]) error {
		if _, ok := sizeIndex(src.Global); !ok {
			return nil
		}
		if _, _, err := runtimeArray(m, &m.Functions[fn], src.Expr); err != nil {
			return NewError(t.Name(), UnsupportedInput, "%v", err)
		}
		return nil
	}

	uses := make(map[ir.FunctionHandle]map[ir.ExpressionHandle]Source[arrayLengthKind])
	err = th.Analyze(func(fn ir.FunctionHandle, f *ir.Function, h ir.ExpressionHandle) error {
		al, ok := f.Expressions[h].Kind.(ir.ExprArrayLength)
		if !ok {
			return nil
		}
		root := f.Root(al.Array)
		switch k := f.Expressions[root].Kind.(type) {
		case ir.ExprGlobalVariable:
			if _, ok := sizeIndex(k.Variable); !ok {
				return nil
			}
			if _, _, err := runtimeArray(m, f, al.Array); err != nil {
				return NewError(t.Name(), UnsupportedInput, "%v", err)
			}
		case ir.ExprFunctionArgument:
			if root != al.Array {
				return NewError(t.Name(), UnsupportedInput,
					"arrayLength in %q must take the pointer parameter itself", f.Name)
			}
		default:
			return nil
		}
		src, _ := th.Require(fn, root, arrayLengthKind{}, al.Array)
		if uses[fn] == nil {
			uses[fn] = make(map[ir.ExpressionHandle]Source[arrayLengthKind])
		}
		uses[fn][h] = src
		th.MarkUse(fn)
		return nil
	})
	if err != nil {
		return nil, Attribute(t.Name(), err)
	}

	ubo := ir.GlobalVariableHandle(len(out.GlobalVariables))
	used := make(map[uint32]bool)
	hooks := Hooks[arrayLengthKind]{}
	hooks.Materialize = func(rw *ir.Rewriter, src Source[arrayLengthKind]) ir.ExpressionHandle {
		idx, ok := sizeIndex(src.Global)
		if !ok {
			return rw.Add(ir.ExprArrayLength{Array: rw.Lookup(src.Expr)})
		}
		used[idx] = true
		offset, stride, _ := runtimeArray(m, rw.Old, src.Expr)
		vec := rw.Add(ir.ExprAccessIndex{
			Base:  rw.Add(ir.ExprAccessIndex{Base: rw.Add(ir.ExprGlobalVariable{Variable: ubo}), Index: 0}),
			Index: idx / 4,
		})
		size := rw.Add(ir.ExprLoad{Pointer: rw.Add(ir.ExprAccessIndex{Base: vec, Index: idx % 4})})
		if offset > 0 {
			off := rw.Add(ir.Literal{Value: ir.LiteralU32(offset)})
			size = rw.Add(ir.ExprBinary{Op: ir.BinarySubtract, Left: size, Right: off})
		}
		div := rw.Add(ir.Literal{Value: ir.LiteralU32(stride)})
		return rw.Add(ir.ExprBinary{Op: ir.BinaryDivide, Left: size, Right: div})
	}
	hooks.Use = func(rw *ir.Rewriter, fn ir.FunctionHandle, old ir.ExpressionHandle) (ir.ExpressionHandle, bool) {
		src, ok := uses[fn][old]
		if !ok {
			return 0, false
		}
		return th.Value(rw, src, hooks), true
	}
	th.Rewrite(out, hooks)

	if len(used) == 0 {
		return nil, nil
	}
	indices := make([]uint32, 0, len(used))
	for idx := range used {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	vec4 := types.Vector(ir.Vec4, ir.U32)
	arr := types.Array(vec4, indices[len(indices)-1]/4+1, 16)
	b := layout.NewStructBuilder(out)
	b.Add("buffer_size", arr)
	st := types.GetOrCreate(UniqueTypeName(out, "BufferSizes"), b.Finish())
	bp := cfg.UBOBinding
	out.GlobalVariables = append(out.GlobalVariables, ir.GlobalVariable{
		Name:    UniqueGlobalName(out, "buffer_sizes"),
		Space:   ir.SpaceUniform,
		Binding: &bp,
		Type:    st,
	})
	Add(outputs, ArrayLengthFromUniformResult{UsedSizeIndices: indices})
	return out, nil
}

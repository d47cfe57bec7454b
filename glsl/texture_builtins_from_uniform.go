// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/codec"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/layout"
	"github.com/gogpu/raise/transform"
)

// FieldKind is the texture builtin a uniform field stands in for.
type FieldKind uint8

const (
	// TextureNumLevels replaces textureNumLevels().
	TextureNumLevels FieldKind = iota
	// TextureNumSamples replaces textureNumSamples().
	TextureNumSamples
)

// String returns the kind name.
func (k FieldKind) String() string {
	switch k {
	case TextureNumLevels:
		return "TextureNumLevels"
	case TextureNumSamples:
		return "TextureNumSamples"
	default:
		return fmt.Sprintf("FieldKind(%d)", uint8(k))
	}
}

func (k FieldKind) fieldName() string {
	if k == TextureNumSamples {
		return "texture_num_samples"
	}
	return "texture_num_levels"
}

func queryKind(q ir.ImageQuery) (FieldKind, bool) {
	switch q.(type) {
	case ir.ImageQueryNumLevels:
		return TextureNumLevels, true
	case ir.ImageQueryNumSamples:
		return TextureNumSamples, true
	default:
		return 0, false
	}
}

func (k FieldKind) query() ir.ImageQuery {
	if k == TextureNumSamples {
		return ir.ImageQueryNumSamples{}
	}
	return ir.ImageQueryNumLevels{}
}

// FieldAndOffset locates the uniform field serving one texture.
type FieldAndOffset struct {
	Kind   FieldKind
	Offset uint32
}

// Fields implements codec.Record.
func (f *FieldAndOffset) Fields() []codec.Field {
	return []codec.Field{
		codec.Value("kind", &f.Kind, codec.Uint[FieldKind]()),
		codec.Uint32("offset", &f.Offset),
	}
}

// TextureBuiltinsFromUniformOptions configures TextureBuiltinsFromUniform.
type TextureBuiltinsFromUniformOptions struct {
	// UBOBinding is where the uniform holding the builtin values is bound.
	UBOBinding binding.Point
}

// Fields implements codec.Record.
func (o *TextureBuiltinsFromUniformOptions) Fields() []codec.Field {
	return []codec.Field{codec.Nested("ubo_binding", &o.UBOBinding)}
}

// TextureBuiltinsFromUniformResult tells the host which value to write at
// which offset of the uniform, per texture binding point.
type TextureBuiltinsFromUniformResult struct {
	BindpointToData map[binding.Point]FieldAndOffset
}

// Fields implements codec.Record.
func (r *TextureBuiltinsFromUniformResult) Fields() []codec.Field {
	return []codec.Field{
		codec.Value("bindpoint_to_data", &r.BindpointToData, codec.Map(
			binding.PointCodec(),
			codec.RecordCodec(func(f *FieldAndOffset) codec.Record { return f }),
			binding.Point.Compare)),
	}
}

// TextureBuiltinsFromUniform replaces textureNumLevels() and
// textureNumSamples(), which GLSL ES and older desktop GLSL lack, with
// reads of u32 fields of a uniform buffer the host fills in. Functions that
// receive the texture as a parameter get the value as an extra parameter.
//
// It keys fields by the textures' binding points, so it must run before
// CombineSamplers.
type TextureBuiltinsFromUniform struct{}

// Name implements transform.Transform.
func (TextureBuiltinsFromUniform) Name() string { return "TextureBuiltinsFromUniform" }

// RunsBefore implements transform.Ordered.
func (TextureBuiltinsFromUniform) RunsBefore() []string {
	return []string{CombineSamplers{}.Name()}
}

// ShouldRun implements transform.Transform.
func (TextureBuiltinsFromUniform) ShouldRun(m *ir.Module, inputs *transform.DataMap) bool {
	if !transform.Has[TextureBuiltinsFromUniformOptions](inputs) {
		return false
	}
	for i := range m.Functions {
		f := &m.Functions[i]
		for _, e := range f.Expressions {
			q, ok := e.Kind.(ir.ExprImageQuery)
			if !ok {
				continue
			}
			if _, ok := queryKind(q.Query); !ok {
				continue
			}
			switch k := f.Expressions[f.Root(q.Image)].Kind.(type) {
			case ir.ExprFunctionArgument:
				return true
			case ir.ExprGlobalVariable:
				if m.GlobalVariables[k.Variable].Binding != nil {
					return true
				}
			}
		}
	}
	return false
}

type fieldKey struct {
	point binding.Point
	kind  FieldKind
}

// Apply implements transform.Transform.
//
//nolint:gocyclo,cyclop,funlen // analysis and rewrite share the use tables
func (t TextureBuiltinsFromUniform) Apply(m *ir.Module, inputs, outputs *transform.DataMap) (*ir.Module, error) {
	opts, ok := transform.Get[TextureBuiltinsFromUniformOptions](inputs)
	if !ok {
		return nil, transform.MissingDataError(t)
	}
	if !t.ShouldRun(m, inputs) {
		return nil, nil
	}

	// An existing uniform at the binding is extended rather than replaced.
	existing, hasExisting := m.GlobalAt(opts.UBOBinding)
	var base ir.StructType
	if hasExisting {
		gv := m.GlobalVariables[existing]
		st, isStruct := m.StructOf(gv.Type)
		if gv.Space != ir.SpaceUniform || !isStruct {
			return nil, transform.NewError(t.Name(), transform.InvalidConfig,
				"%s is used by %s variable %q, not a uniform struct", opts.UBOBinding, gv.Space, gv.Name)
		}
		base = st
	}

	out := m.Clone()
	types := ir.NewTypeRegistry(out)
	u32 := types.Scalar(ir.U32)

	th, err := transform.NewThreader[FieldKind](m, func(n int) string {
		if n == 0 {
			return "tex_builtin_value"
		}
		return fmt.Sprintf("tex_builtin_value_%d", n)
	}, u32)
	if err != nil {
		return nil, transform.Attribute(t.Name(), err)
	}

	kinds := make(map[binding.Point]FieldKind)
	claim := func(gv ir.GlobalVariableHandle, kind FieldKind) error {
		bp := m.GlobalVariables[gv].Binding
		if bp == nil {
			return nil
		}
		if prev, ok := kinds[*bp]; ok && prev != kind {
			return transform.NewError(t.Name(), transform.UnsupportedInput,
				"texture at %s is queried for both %s and %s", *bp, prev, kind)
		}
		kinds[*bp] = kind
		return nil
	}
	th.CheckGlobal = func(_ ir.FunctionHandle, src transform.Source[FieldKind]) error {
		return claim(src.Global, src.Kind)
	}

	uses := make(map[ir.FunctionHandle]map[ir.ExpressionHandle]transform.Source[FieldKind])
	err = th.Analyze(func(fn ir.FunctionHandle, f *ir.Function, h ir.ExpressionHandle) error {
		q, ok := f.Expressions[h].Kind.(ir.ExprImageQuery)
		if !ok {
			return nil
		}
		kind, ok := queryKind(q.Query)
		if !ok {
			return nil
		}
		root := f.Root(q.Image)
		if g, isGlobal := f.Expressions[root].Kind.(ir.ExprGlobalVariable); isGlobal {
			if m.GlobalVariables[g.Variable].Binding == nil {
				return nil
			}
			if err := claim(g.Variable, kind); err != nil {
				return err
			}
		}
		src, ok := th.Require(fn, root, kind, q.Image)
		if !ok {
			return nil
		}
		if uses[fn] == nil {
			uses[fn] = make(map[ir.ExpressionHandle]transform.Source[FieldKind])
		}
		uses[fn][h] = src
		th.MarkUse(fn)
		return nil
	})
	if err != nil {
		return nil, transform.Attribute(t.Name(), err)
	}

	ubo := existing
	if !hasExisting {
		ubo = ir.GlobalVariableHandle(len(out.GlobalVariables))
	}
	alloc := layout.NewAllocator[fieldKey](layout.Extend(out, base))

	hooks := transform.Hooks[FieldKind]{}
	hooks.Materialize = func(rw *ir.Rewriter, src transform.Source[FieldKind]) ir.ExpressionHandle {
		bp := m.GlobalVariables[src.Global].Binding
		if bp == nil {
			return rw.Add(ir.ExprImageQuery{Image: rw.Lookup(src.Expr), Query: src.Kind.query()})
		}
		name := fmt.Sprintf("%s_%d_%d", src.Kind.fieldName(), bp.Group, bp.Binding)
		slot := alloc.Get(fieldKey{point: *bp, kind: src.Kind}, name, u32)
		return transform.LoadGlobalMember(rw, ubo, slot.Member)
	}
	hooks.Use = func(rw *ir.Rewriter, fn ir.FunctionHandle, old ir.ExpressionHandle) (ir.ExpressionHandle, bool) {
		src, ok := uses[fn][old]
		if !ok {
			return 0, false
		}
		return th.Value(rw, src, hooks), true
	}
	th.Rewrite(out, hooks)

	if alloc.Len() == 0 {
		return nil, nil
	}

	result := TextureBuiltinsFromUniformResult{BindpointToData: make(map[binding.Point]FieldAndOffset, alloc.Len())}
	for _, key := range alloc.Keys() {
		slot, _ := alloc.Lookup(key)
		result.BindpointToData[key.point] = FieldAndOffset{Kind: key.kind, Offset: slot.Offset}
	}

	if hasExisting {
		// The struct grows in place unless something else shares it, in which
		// case the uniform gets its own copy under a fresh name.
		ty := out.GlobalVariables[ubo].Type
		if transform.TypeUsedElsewhere(out, ty, ubo) {
			name := transform.UniqueTypeName(out, out.Types[ty].Name)
			out.GlobalVariables[ubo].Type = types.GetOrCreate(name, alloc.StructType())
		} else {
			out.Types[ty].Inner = alloc.StructType()
		}
	} else {
		st := types.GetOrCreate(transform.UniqueTypeName(out, "TextureBuiltinsUniform"), alloc.StructType())
		bp := opts.UBOBinding
		out.GlobalVariables = append(out.GlobalVariables, ir.GlobalVariable{
			Name:    transform.UniqueGlobalName(out, "texture_builtins"),
			Space:   ir.SpaceUniform,
			Binding: &bp,
			Type:    st,
		})
	}
	transform.Add(outputs, result)
	return out, nil
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"cmp"
	"fmt"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/codec"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// SamplerTexturePair identifies a texture and the sampler it is used with.
// Placeholder pairs are textures read without a sampler; their Sampler is
// the placeholder binding.
type SamplerTexturePair struct {
	Texture     binding.Point
	Sampler     binding.Point
	Placeholder bool
}

// Fields implements codec.Record.
func (p *SamplerTexturePair) Fields() []codec.Field {
	return []codec.Field{
		codec.Nested("texture", &p.Texture),
		codec.Nested("sampler", &p.Sampler),
		codec.Bool("placeholder", &p.Placeholder),
	}
}

// Compare orders pairs by texture, then sampler, then placeholder last.
func (p SamplerTexturePair) Compare(o SamplerTexturePair) int {
	if c := p.Texture.Compare(o.Texture); c != 0 {
		return c
	}
	if c := p.Sampler.Compare(o.Sampler); c != 0 {
		return c
	}
	return cmp.Compare(boolInt(p.Placeholder), boolInt(o.Placeholder))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CombineSamplersOptions configures CombineSamplers.
type CombineSamplersOptions struct {
	// SamplerTextureToName names combined samplers. Unnamed pairs are
	// called <texture>_<sampler>.
	SamplerTextureToName map[SamplerTexturePair]string
	// PlaceholderSamplerBinding stands in for the sampler of textures that
	// are only loaded or queried.
	PlaceholderSamplerBinding binding.Point
}

// Fields implements codec.Record.
func (o *CombineSamplersOptions) Fields() []codec.Field {
	return []codec.Field{
		codec.Value("sampler_texture_to_name", &o.SamplerTextureToName, codec.Map(
			codec.RecordCodec(func(p *SamplerTexturePair) codec.Record { return p }),
			codec.StringCodec(),
			SamplerTexturePair.Compare)),
		codec.Nested("placeholder_sampler_binding", &o.PlaceholderSamplerBinding),
	}
}

// CombinedSampler is one global produced by CombineSamplers.
type CombinedSampler struct {
	Pair     SamplerTexturePair
	Variable ir.GlobalVariableHandle
	Name     string
}

// CombineSamplersResult lists the combined samplers in discovery order.
type CombineSamplersResult struct {
	Pairs []CombinedSampler
}

// CombineSamplers replaces separate textures and samplers, which GLSL does
// not have, with one combined sampler global per (texture, sampler) pair
// used together. Combined samplers are bound by name, so they carry no
// binding; the original globals lose theirs.
type CombineSamplers struct{}

// Name implements transform.Transform.
func (CombineSamplers) Name() string { return "CombineSamplers" }

// textureUse is an image expression and the sampler it is used with.
type textureUse struct {
	image   ir.ExpressionHandle
	sampler *ir.ExpressionHandle
}

func textureUses(kind ir.ExpressionKind) (textureUse, bool) {
	switch k := kind.(type) {
	case ir.ExprImageSample:
		s := k.Sampler
		return textureUse{image: k.Image, sampler: &s}, true
	case ir.ExprImageLoad:
		return textureUse{image: k.Image}, true
	case ir.ExprImageQuery:
		return textureUse{image: k.Image}, true
	default:
		return textureUse{}, false
	}
}

// ShouldRun implements transform.Transform.
func (CombineSamplers) ShouldRun(m *ir.Module, inputs *transform.DataMap) bool {
	if !transform.Has[CombineSamplersOptions](inputs) {
		return false
	}
	for i := range m.Functions {
		for _, e := range m.Functions[i].Expressions {
			if _, ok := textureUses(e.Kind); ok {
				return true
			}
		}
	}
	return false
}

// pairRoot is where one half of a pair comes from inside a function: a
// global, or the parameter at Index.
type pairRoot struct {
	Param bool
	Index uint32
}

// pairKey identifies a combined sampler inside one function. Once both
// roots are globals it names a combined global; otherwise the function
// receives the combined sampler as a parameter.
type pairKey struct {
	Texture     pairRoot
	Sampler     pairRoot
	Placeholder bool
}

func (k pairKey) global() bool {
	return !k.Texture.Param && (k.Placeholder || !k.Sampler.Param)
}

// combinable reports whether values of type ty are replaced by combined
// samplers: samplers and every image class except storage.
func combinable(m *ir.Module, ty ir.TypeHandle) bool {
	switch inner := m.Types[ty].Inner.(type) {
	case ir.SamplerType:
		return true
	case ir.ImageType:
		return inner.Class != ir.ImageClassStorage
	default:
		return false
	}
}

// Apply implements transform.Transform.
//
//nolint:gocyclo,cyclop,funlen // pair discovery and rewrite in one pass
func (t CombineSamplers) Apply(m *ir.Module, inputs, outputs *transform.DataMap) (*ir.Module, error) {
	opts, ok := transform.Get[CombineSamplersOptions](inputs)
	if !ok {
		return nil, transform.MissingDataError(t)
	}
	if !t.ShouldRun(m, inputs) {
		return nil, nil
	}

	th, err := transform.NewThreader[pairKey](m, func(n int) string {
		if n == 0 {
			return "combined_sampler"
		}
		return fmt.Sprintf("combined_sampler_%d", n)
	}, 0)
	if err != nil {
		return nil, transform.Attribute(t.Name(), err)
	}
	th.ParamTypeOf = func(fn ir.FunctionHandle, k pairKey) ir.TypeHandle {
		if k.Texture.Param {
			return m.Functions[fn].Arguments[k.Texture.Index].Type
		}
		return m.GlobalVariables[k.Texture.Index].Type
	}

	// root resolves an image or sampler operand of f to a bound global or a
	// parameter.
	root := func(f *ir.Function, h ir.ExpressionHandle, what string) (pairRoot, error) {
		switch k := f.Expressions[f.Root(h)].Kind.(type) {
		case ir.ExprGlobalVariable:
			if m.GlobalVariables[k.Variable].Binding == nil {
				return pairRoot{}, transform.NewError(t.Name(), transform.UnsupportedInput,
					"%s %q in %q has no binding", what, m.GlobalVariables[k.Variable].Name, f.Name)
			}
			return pairRoot{Index: uint32(k.Variable)}, nil
		case ir.ExprFunctionArgument:
			return pairRoot{Param: true, Index: k.Index}, nil
		default:
			return pairRoot{}, transform.NewError(t.Name(), transform.UnsupportedInput,
				"%s operand in %q is neither a global nor a parameter", what, f.Name)
		}
	}

	type pairGlobals struct {
		texture ir.GlobalVariableHandle
		sampler *ir.GlobalVariableHandle
	}
	var (
		order   []SamplerTexturePair
		globals = make(map[SamplerTexturePair]pairGlobals)
		uses    = make(map[ir.FunctionHandle]map[ir.ExpressionHandle]transform.Source[pairKey])
	)
	pairOf := func(k pairKey) SamplerTexturePair {
		tex := ir.GlobalVariableHandle(k.Texture.Index)
		pair := SamplerTexturePair{Texture: *m.GlobalVariables[tex].Binding}
		pg := pairGlobals{texture: tex}
		if k.Placeholder {
			pair.Sampler = opts.PlaceholderSamplerBinding
			pair.Placeholder = true
		} else {
			smp := ir.GlobalVariableHandle(k.Sampler.Index)
			pair.Sampler = *m.GlobalVariables[smp].Binding
			pg.sampler = &smp
		}
		if _, seen := globals[pair]; !seen {
			globals[pair] = pg
			order = append(order, pair)
		}
		return pair
	}
	// source records the pair once both halves are globals and otherwise
	// threads it into fn.
	source := func(fn ir.FunctionHandle, k pairKey, expr ir.ExpressionHandle) transform.Source[pairKey] {
		if k.global() {
			pairOf(k)
			return transform.Source[pairKey]{Kind: k, Param: -1, Expr: expr}
		}
		return th.RequireKey(fn, k, expr)
	}

	th.Forward = func(fn ir.FunctionHandle, f *ir.Function, call ir.StmtCall, k pairKey) (transform.Source[pairKey], error) {
		callee := m.Functions[call.Function].Name
		resolve := func(r *pairRoot, what string) error {
			if !r.Param {
				return nil
			}
			if int(r.Index) >= len(call.Arguments) {
				return transform.NewError(t.Name(), transform.UnsupportedInput,
					"call to %q in %q passes too few arguments", callee, f.Name)
			}
			var err error
			*r, err = root(f, call.Arguments[r.Index], what)
			return err
		}
		if err := resolve(&k.Texture, "texture"); err != nil {
			return transform.Source[pairKey]{}, err
		}
		if !k.Placeholder {
			if err := resolve(&k.Sampler, "sampler"); err != nil {
				return transform.Source[pairKey]{}, err
			}
		}
		return source(fn, k, 0), nil
	}

	err = th.Analyze(func(fn ir.FunctionHandle, f *ir.Function, h ir.ExpressionHandle) error {
		use, ok := textureUses(f.Expressions[h].Kind)
		if !ok {
			return nil
		}
		tex, err := root(f, use.image, "texture")
		if err != nil {
			return err
		}
		// Storage images stay separate image uniforms.
		var texType ir.TypeHandle
		if tex.Param {
			texType = f.Arguments[tex.Index].Type
		} else {
			texType = m.GlobalVariables[tex.Index].Type
		}
		if !combinable(m, texType) {
			return nil
		}
		k := pairKey{Texture: tex, Placeholder: use.sampler == nil}
		if use.sampler != nil {
			if k.Sampler, err = root(f, *use.sampler, "sampler"); err != nil {
				return err
			}
		}
		if uses[fn] == nil {
			uses[fn] = make(map[ir.ExpressionHandle]transform.Source[pairKey])
		}
		uses[fn][h] = source(fn, k, h)
		th.MarkUse(fn)
		return nil
	})
	if err != nil {
		return nil, transform.Attribute(t.Name(), err)
	}
	if len(order) == 0 {
		return nil, nil
	}

	// Texture and sampler parameters are replaced by combined ones, so every
	// function declaring them and every caller is rewritten.
	drops := func(fn ir.FunctionHandle, i uint32) bool {
		return combinable(m, m.Functions[fn].Arguments[i].Type)
	}
	dropping := make([]bool, len(m.Functions))
	for i := range m.Functions {
		for j := range m.Functions[i].Arguments {
			if drops(ir.FunctionHandle(i), uint32(j)) {
				dropping[i] = true
				th.MarkUse(ir.FunctionHandle(i))
				break
			}
		}
	}
	for i := range m.Functions {
		for _, call := range ir.CallSites(&m.Functions[i]) {
			if dropping[call.Function] {
				th.MarkUse(ir.FunctionHandle(i))
				break
			}
		}
	}

	out := m.Clone()
	combined := make(map[SamplerTexturePair]ir.GlobalVariableHandle, len(order))
	var result CombineSamplersResult
	for _, pair := range order {
		pg := globals[pair]
		name, ok := opts.SamplerTextureToName[pair]
		if !ok {
			tex := m.GlobalVariables[pg.texture].Name
			if pg.sampler != nil {
				name = tex + "_" + m.GlobalVariables[*pg.sampler].Name
			} else {
				name = tex + "_placeholder_sampler"
			}
		}
		name = transform.UniqueGlobalName(out, escapeKeyword(name))
		out.GlobalVariables = append(out.GlobalVariables, ir.GlobalVariable{
			Name:  name,
			Space: ir.SpaceHandle,
			Type:  m.GlobalVariables[pg.texture].Type,
		})
		h := ir.GlobalVariableHandle(len(out.GlobalVariables) - 1)
		combined[pair] = h
		result.Pairs = append(result.Pairs, CombinedSampler{Pair: pair, Variable: h, Name: name})
	}
	for _, pg := range globals {
		out.GlobalVariables[pg.texture].Binding = nil
		if pg.sampler != nil {
			out.GlobalVariables[*pg.sampler].Binding = nil
		}
	}

	hooks := transform.Hooks[pairKey]{DropArgument: drops}
	hooks.Materialize = func(rw *ir.Rewriter, src transform.Source[pairKey]) ir.ExpressionHandle {
		return rw.Add(ir.ExprGlobalVariable{Variable: combined[pairOf(src.Kind)]})
	}
	hooks.Use = func(rw *ir.Rewriter, fn ir.FunctionHandle, old ir.ExpressionHandle) (ir.ExpressionHandle, bool) {
		src, ok := uses[fn][old]
		if !ok {
			return 0, false
		}
		img := th.Value(rw, src, hooks)
		use, _ := textureUses(rw.Old.Expressions[old].Kind)
		kind := ir.MapOperands(rw.Old.Expressions[old].Kind, func(h ir.ExpressionHandle) ir.ExpressionHandle {
			if h == use.image || use.sampler != nil && h == *use.sampler {
				return img
			}
			return rw.Lookup(h)
		})
		return rw.Add(kind), true
	}
	th.Rewrite(out, hooks)

	transform.Add(outputs, result)
	return out, nil
}

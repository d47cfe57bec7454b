// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/codec"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// TexelFormat is the format of a pixel-local attachment.
type TexelFormat uint8

const (
	TexelFormatUndefined TexelFormat = iota
	TexelFormatR32Sint
	TexelFormatR32Uint
	TexelFormatR32Float
)

// String returns the WGSL texel format name.
func (f TexelFormat) String() string {
	switch f {
	case TexelFormatR32Sint:
		return "r32sint"
	case TexelFormatR32Uint:
		return "r32uint"
	case TexelFormatR32Float:
		return "r32float"
	default:
		return "undefined"
	}
}

// TextureFormat returns the matching WebGPU texture format.
func (f TexelFormat) TextureFormat() gputypes.TextureFormat {
	switch f {
	case TexelFormatR32Sint:
		return gputypes.TextureFormatR32Sint
	case TexelFormatR32Uint:
		return gputypes.TextureFormatR32Uint
	case TexelFormatR32Float:
		return gputypes.TextureFormatR32Float
	default:
		return gputypes.TextureFormatUndefined
	}
}

// TexelFormatOf returns the texel format of a WebGPU texture format usable
// as a pixel-local attachment.
func TexelFormatOf(tf gputypes.TextureFormat) (TexelFormat, bool) {
	for _, f := range []TexelFormat{TexelFormatR32Sint, TexelFormatR32Uint, TexelFormatR32Float} {
		if f.TextureFormat() == tf {
			return f, true
		}
	}
	return TexelFormatUndefined, false
}

func (f TexelFormat) storageFormat() ir.StorageFormat {
	switch f {
	case TexelFormatR32Sint:
		return ir.StorageFormatR32Sint
	case TexelFormatR32Uint:
		return ir.StorageFormatR32Uint
	case TexelFormatR32Float:
		return ir.StorageFormatR32Float
	default:
		return ir.StorageFormatUndefined
	}
}

func (f TexelFormat) scalarKind() ir.ScalarKind {
	switch f {
	case TexelFormatR32Sint:
		return ir.ScalarSint
	case TexelFormatR32Uint:
		return ir.ScalarUint
	default:
		return ir.ScalarFloat
	}
}

// PixelLocalOptions configures PixelLocal. Maps are keyed by member index
// of the pixel-local struct.
type PixelLocalOptions struct {
	// Attachments gives the register of each member's attachment.
	Attachments map[uint32]uint32
	// AttachmentFormats gives the format of each member's attachment.
	AttachmentFormats map[uint32]TexelFormat
	// GroupIndex is the group (register space) of the attachments.
	GroupIndex uint32
}

// Fields implements codec.Record.
func (o *PixelLocalOptions) Fields() []codec.Field {
	return []codec.Field{
		codec.Value("attachments", &o.Attachments,
			codec.Map(codec.Uint[uint32](), codec.Uint[uint32](), compareUint32)),
		codec.Value("attachment_formats", &o.AttachmentFormats,
			codec.Map(codec.Uint[uint32](), codec.Uint[TexelFormat](), compareUint32)),
		codec.Uint32("pixel_local_group_index", &o.GroupIndex),
	}
}

func compareUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// PixelLocal lowers the pixel_local variable to rasterizer-ordered storage
// textures, one per struct member. Fragment entry points that use the
// variable load every member from its texture on entry and store it back
// before returning; the variable itself becomes private.
type PixelLocal struct{}

// Name implements transform.Transform.
func (PixelLocal) Name() string { return "PixelLocal" }

// pixelLocalUse finds the pixel_local global and the fragment entry
// functions that reach it.
func pixelLocalUse(m *ir.Module) (gv ir.GlobalVariableHandle, entries []ir.FunctionHandle, err error) {
	found := false
	for i := range m.GlobalVariables {
		if m.GlobalVariables[i].Space != ir.SpacePixelLocal {
			continue
		}
		if found {
			return 0, nil, fmt.Errorf("more than one pixel_local variable (%q and %q)",
				m.GlobalVariables[gv].Name, m.GlobalVariables[i].Name)
		}
		gv, found = ir.GlobalVariableHandle(i), true
	}
	if !found {
		return 0, nil, nil
	}
	cg := ir.BuildCallGraph(m)
	for _, fn := range transform.EntryFunctions(m, ir.StageFragment) {
		if slices.Contains(transform.GlobalsUsedBy(m, cg, fn), gv) {
			entries = append(entries, fn)
		}
	}
	return gv, entries, nil
}

// ShouldRun implements transform.Transform.
func (PixelLocal) ShouldRun(m *ir.Module, inputs *transform.DataMap) bool {
	if !transform.Has[PixelLocalOptions](inputs) {
		return false
	}
	_, entries, err := pixelLocalUse(m)
	return err != nil || len(entries) > 0
}

type attachment struct {
	member  uint32
	name    string
	kind    ir.ScalarKind
	format  TexelFormat
	point   binding.Point
	texture ir.GlobalVariableHandle
}

// Apply implements transform.Transform.
//
//nolint:gocyclo,cyclop,funlen // validation precedes the rewrite
func (t PixelLocal) Apply(m *ir.Module, inputs, _ *transform.DataMap) (*ir.Module, error) {
	opts, ok := transform.Get[PixelLocalOptions](inputs)
	if !ok {
		return nil, transform.MissingDataError(t)
	}
	pl, entries, err := pixelLocalUse(m)
	if err != nil {
		return nil, transform.NewError(t.Name(), transform.UnsupportedInput, "%v", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	st, ok := m.StructOf(m.GlobalVariables[pl].Type)
	if !ok {
		return nil, transform.NewError(t.Name(), transform.UnsupportedInput,
			"pixel_local variable %q is not a struct", m.GlobalVariables[pl].Name)
	}
	atts := make([]attachment, len(st.Members))
	for i, mem := range st.Members {
		s, isScalar := m.Types[mem.Type].Inner.(ir.ScalarType)
		if !isScalar || s.Width != 4 || s.Kind == ir.ScalarBool {
			return nil, transform.NewError(t.Name(), transform.UnsupportedInput,
				"pixel_local member %q must be a 32-bit scalar", mem.Name)
		}
		reg, ok := opts.Attachments[uint32(i)]
		if !ok {
			return nil, transform.NewError(t.Name(), transform.InvalidConfig,
				"no attachment for pixel_local member %d (%q)", i, mem.Name)
		}
		format := opts.AttachmentFormats[uint32(i)]
		if format == TexelFormatUndefined {
			return nil, transform.NewError(t.Name(), transform.InvalidConfig,
				"attachment format for pixel_local member %d (%q) is undefined", i, mem.Name)
		}
		bp := binding.Point{Group: opts.GroupIndex, Binding: reg}
		if gv, taken := m.GlobalAt(bp); taken && RegisterTypeOf(m, &m.GlobalVariables[gv]) == RegisterTypeU {
			return nil, transform.NewError(t.Name(), transform.InvalidConfig,
				"attachment of pixel_local member %q at %s collides with %q", mem.Name, bp, m.GlobalVariables[gv].Name)
		}
		atts[i] = attachment{member: uint32(i), name: mem.Name, kind: s.Kind, format: format, point: bp}
	}

	out := m.Clone()
	types := ir.NewTypeRegistry(out)
	out.GlobalVariables[pl].Space = ir.SpacePrivate
	for i := range atts {
		a := &atts[i]
		ty := types.GetOrCreate("", ir.ImageType{
			Dim:               ir.Dim2D,
			Class:             ir.ImageClassStorage,
			Format:            a.format.storageFormat(),
			Access:            ir.StorageReadWrite,
			RasterizerOrdered: true,
		})
		bp := a.point
		out.GlobalVariables = append(out.GlobalVariables, ir.GlobalVariable{
			Name:    transform.UniqueGlobalName(out, "pixel_local_"+a.name),
			Space:   ir.SpaceHandle,
			Binding: &bp,
			Type:    ty,
		})
		a.texture = ir.GlobalVariableHandle(len(out.GlobalVariables) - 1)
	}
	vec4f := types.Vector(ir.Vec4, ir.F32)

	for _, fn := range entries {
		out.Functions[fn] = *t.rewriteEntry(m, fn, pl, atts, vec4f)
	}
	return out, nil
}

// fragCoord locates the position builtin among the arguments of f: member
// is -1 for a whole argument.
func fragCoord(m *ir.Module, f *ir.Function) (arg uint32, member int, ok bool) {
	for i, a := range f.Arguments {
		if ir.IsBuiltin(a.Binding, ir.BuiltinPosition) {
			return uint32(i), -1, true
		}
		if st, isStruct := m.StructOf(a.Type); isStruct {
			for j, mem := range st.Members {
				if ir.IsBuiltin(mem.Binding, ir.BuiltinPosition) {
					return uint32(i), j, true
				}
			}
		}
	}
	return 0, 0, false
}

func (PixelLocal) rewriteEntry(m *ir.Module, fn ir.FunctionHandle, pl ir.GlobalVariableHandle, atts []attachment, vec4f ir.TypeHandle) *ir.Function {
	rw := ir.NewRewriter(m, fn)
	arg, member, ok := fragCoord(m, &m.Functions[fn])
	if !ok {
		arg = rw.AddArgument("pixel_local_pos", vec4f)
		var b ir.Binding = ir.BuiltinBinding{Builtin: ir.BuiltinPosition}
		rw.New.Arguments[arg].Binding = &b
		member = -1
	}

	var coord ir.ExpressionHandle
	convert := func(v ir.ExpressionHandle, from, to ir.ScalarKind) ir.ExpressionHandle {
		if from == to {
			return v
		}
		return rw.Add(ir.ExprAs{Expr: v, Kind: to})
	}
	memberPtr := func(i uint32) ir.ExpressionHandle {
		return rw.Add(ir.ExprAccessIndex{Base: rw.Add(ir.ExprGlobalVariable{Variable: pl}), Index: i})
	}
	storeBack := func(rw *ir.Rewriter) {
		for _, a := range atts {
			v := rw.Add(ir.ExprLoad{Pointer: memberPtr(a.member)})
			v = convert(v, a.kind, a.format.scalarKind())
			splat := rw.Add(ir.ExprSplat{Size: ir.Vec4, Value: v})
			rw.AddStatement(ir.StmtImageStore{
				Image:      rw.Add(ir.ExprGlobalVariable{Variable: a.texture}),
				Coordinate: coord,
				Value:      splat,
			})
		}
	}

	rw.Prologue = func(rw *ir.Rewriter) {
		pos := rw.Argument(arg)
		if member >= 0 {
			pos = rw.Add(ir.ExprAccessIndex{Base: pos, Index: uint32(member)})
		}
		xy := rw.Add(ir.ExprSwizzle{Size: ir.Vec2, Vector: pos, Pattern: [4]ir.SwizzleComponent{ir.SwizzleX, ir.SwizzleY}})
		width := uint8(4)
		coord = rw.Add(ir.ExprAs{Expr: xy, Kind: ir.ScalarUint, Convert: &width})
		for _, a := range atts {
			texel := rw.Add(ir.ExprImageLoad{
				Image:      rw.Add(ir.ExprGlobalVariable{Variable: a.texture}),
				Coordinate: coord,
			})
			v := rw.Add(ir.ExprAccessIndex{Base: texel, Index: 0})
			v = convert(v, a.format.scalarKind(), a.kind)
			rw.AddStatement(ir.StmtStore{Pointer: memberPtr(a.member), Value: v})
		}
	}
	rw.Return = func(rw *ir.Rewriter, value *ir.ExpressionHandle) *ir.ExpressionHandle {
		storeBack(rw)
		return value
	}
	rw.Epilogue = storeBack
	return rw.Run()
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"errors"
	"testing"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// texModule starts a module with n sampled 2D textures bound at group 0,
// bindings 0..n-1.
func texModule(n int) (*ir.ModuleBuilder, []ir.GlobalVariableHandle) {
	b := ir.NewModuleBuilder()
	img := b.Type("", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled})
	names := []string{"t0", "t1", "t2", "t3"}
	texs := make([]ir.GlobalVariableHandle, n)
	for i := range texs {
		texs[i] = b.Resource(names[i], ir.SpaceHandle, img, 0, uint32(i))
	}
	return b, texs
}

// fragment finishes fs as a fragment entry point returning value at
// location 0.
func fragment(b *ir.ModuleBuilder, fs *ir.FunctionBuilder, value ir.ExpressionHandle) {
	width := uint8(4)
	fs.Returns(b.Types().Scalar(ir.F32), ir.LocationBinding{Location: 0})
	fs.Return(fs.Expr(ir.ExprAs{Expr: value, Kind: ir.ScalarFloat, Convert: &width}))
	b.EntryPoint("fs_main", ir.StageFragment, fs.Finish())
}

func runTextureBuiltins(t *testing.T, m *ir.Module, ubo binding.Point) (*ir.Module, TextureBuiltinsFromUniformResult, error) {
	t.Helper()
	inputs := transform.NewDataMap()
	transform.Add(inputs, TextureBuiltinsFromUniformOptions{UBOBinding: ubo})
	mgr := transform.NewManager(transform.WithValidation())
	mgr.Add(TextureBuiltinsFromUniform{})
	out, results, err := mgr.Run(m, inputs)
	res, _ := transform.Get[TextureBuiltinsFromUniformResult](results)
	return out, res, err
}

func countQueries(m *ir.Module) int {
	n := 0
	for i := range m.Functions {
		for _, e := range m.Functions[i].Expressions {
			if _, ok := e.Kind.(ir.ExprImageQuery); ok {
				n++
			}
		}
	}
	return n
}

func builtinsStruct(t *testing.T, m *ir.Module, ubo binding.Point) ir.StructType {
	t.Helper()
	gv, ok := m.GlobalAt(ubo)
	if !ok {
		t.Fatalf("no uniform at %s", ubo)
	}
	if m.GlobalVariables[gv].Space != ir.SpaceUniform {
		t.Fatalf("global at %s is in %s", ubo, m.GlobalVariables[gv].Space)
	}
	st, ok := m.StructOf(m.GlobalVariables[gv].Type)
	if !ok {
		t.Fatalf("uniform at %s is not a struct", ubo)
	}
	return st
}

var ubo30 = binding.Point{Group: 0, Binding: 30}

func TestTextureBuiltins_NoQueries(t *testing.T) {
	b, texs := texModule(1)
	fs := b.Function("fs_main")
	fs.Load(fs.Global(texs[0]))
	fragment(b, fs, fs.U32(1))
	m := b.Module()

	inputs := transform.NewDataMap()
	transform.Add(inputs, TextureBuiltinsFromUniformOptions{UBOBinding: ubo30})
	if (TextureBuiltinsFromUniform{}).ShouldRun(m, inputs) {
		t.Error("ShouldRun = true without queries")
	}
	out, res, err := runTextureBuiltins(t, m, ubo30)
	if err != nil {
		t.Fatal(err)
	}
	if out != m {
		t.Error("not applicable transform returned a new module")
	}
	if len(res.BindpointToData) != 0 {
		t.Errorf("result = %v, want none", res.BindpointToData)
	}
}

func TestTextureBuiltins_SingleQuery(t *testing.T) {
	b, texs := texModule(1)
	fs := b.Function("fs_main")
	fragment(b, fs, fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{}))
	m := b.Module()

	out, res, err := runTextureBuiltins(t, m, ubo30)
	if err != nil {
		t.Fatal(err)
	}
	st := builtinsStruct(t, out, ubo30)
	if len(st.Members) != 1 || st.Members[0].Offset != 0 || st.Span != 4 {
		t.Errorf("uniform struct = %+v, want one u32 at 0", st)
	}
	want := map[binding.Point]FieldAndOffset{{Group: 0, Binding: 0}: {Kind: TextureNumLevels, Offset: 0}}
	if len(res.BindpointToData) != 1 || res.BindpointToData[binding.Point{}] != want[binding.Point{}] {
		t.Errorf("result = %v, want %v", res.BindpointToData, want)
	}
	if n := countQueries(out); n != 0 {
		t.Errorf("%d queries remain", n)
	}
	if n := countQueries(m); n != 1 {
		t.Error("input module was modified")
	}
}

func TestTextureBuiltins_SameTextureTwice(t *testing.T) {
	b, texs := texModule(1)
	fs := b.Function("fs_main")
	a := fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{})
	c := fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{})
	fragment(b, fs, fs.Binary(ir.BinaryAdd, a, c))

	out, res, err := runTextureBuiltins(t, b.Module(), ubo30)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.BindpointToData) != 1 {
		t.Errorf("result has %d entries, want 1", len(res.BindpointToData))
	}
	if st := builtinsStruct(t, out, ubo30); len(st.Members) != 1 {
		t.Errorf("uniform has %d members, want 1", len(st.Members))
	}
}

func TestTextureBuiltins_ThreeTextures(t *testing.T) {
	b, texs := texModule(3)
	fs := b.Function("fs_main")
	sum := fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{})
	for _, tex := range texs[1:] {
		sum = fs.Binary(ir.BinaryAdd, sum, fs.Query(fs.Global(tex), ir.ImageQueryNumLevels{}))
	}
	fragment(b, fs, sum)

	out, res, err := runTextureBuiltins(t, b.Module(), ubo30)
	if err != nil {
		t.Fatal(err)
	}
	for i := uint32(0); i < 3; i++ {
		got := res.BindpointToData[binding.Point{Group: 0, Binding: i}]
		if got != (FieldAndOffset{Kind: TextureNumLevels, Offset: 4 * i}) {
			t.Errorf("binding %d: %+v, want offset %d", i, got, 4*i)
		}
	}
	if st := builtinsStruct(t, out, ubo30); st.Span != 12 {
		t.Errorf("struct size = %d, want 12", st.Span)
	}
}

// chain builds depth helpers, each passing its texture parameter to the
// next, the last querying it. It returns the outermost helper.
func chain(b *ir.ModuleBuilder, depth int, q ir.ImageQuery) ir.FunctionHandle {
	img := b.Module().GlobalVariables[0].Type
	u32 := b.Types().Scalar(ir.U32)
	names := []string{"level0", "level1", "level2", "level3"}
	var prev ir.FunctionHandle
	for d := range depth {
		fn := b.Function(names[d])
		tex := fn.Arg("t", img)
		fn.Returns(u32, nil)
		if d == 0 {
			fn.Return(fn.Query(tex, q))
		} else {
			fn.Return(fn.Call(prev, tex))
		}
		prev = fn.Finish()
	}
	return prev
}

func TestTextureBuiltins_Nested(t *testing.T) {
	for depth := 1; depth <= 3; depth++ {
		b, texs := texModule(1)
		outer := chain(b, depth, ir.ImageQueryNumLevels{})
		fs := b.Function("fs_main")
		fragment(b, fs, fs.Call(outer, fs.Global(texs[0])))
		m := b.Module()

		out, res, err := runTextureBuiltins(t, m, ubo30)
		if err != nil {
			t.Fatalf("depth %d: %v", depth, err)
		}
		for fn := 0; fn < depth; fn++ {
			args := out.Functions[fn].Arguments
			if len(args) != 2 || args[1].Name != "tex_builtin_value" {
				t.Errorf("depth %d: %s has arguments %+v", depth, out.Functions[fn].Name, args)
			}
		}
		if got := len(out.Functions[depth].Arguments); got != 0 {
			t.Errorf("depth %d: entry point gained %d arguments", depth, got)
		}
		if len(res.BindpointToData) != 1 || countQueries(out) != 0 {
			t.Errorf("depth %d: result %v, %d queries left", depth, res.BindpointToData, countQueries(out))
		}
	}
}

func TestTextureBuiltins_Diamond(t *testing.T) {
	b, texs := texModule(1)
	img := b.Module().GlobalVariables[0].Type
	u32 := b.Types().Scalar(ir.U32)

	leaf := chain(b, 1, ir.ImageQueryNumLevels{})
	var mids []ir.FunctionHandle
	for _, name := range []string{"left", "right"} {
		fn := b.Function(name)
		tex := fn.Arg("t", img)
		fn.Returns(u32, nil)
		fn.Return(fn.Call(leaf, tex))
		mids = append(mids, fn.Finish())
	}
	fs := b.Function("fs_main")
	l := fs.Call(mids[0], fs.Global(texs[0]))
	r := fs.Call(mids[1], fs.Global(texs[0]))
	fragment(b, fs, fs.Binary(ir.BinaryAdd, l, r))

	out, res, err := runTextureBuiltins(t, b.Module(), ubo30)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(out.Functions[leaf].Arguments); n != 2 {
		t.Errorf("shared helper has %d arguments, want 2", n)
	}
	for _, mid := range mids {
		if n := len(out.Functions[mid].Arguments); n != 2 {
			t.Errorf("%s has %d arguments, want 2", out.Functions[mid].Name, n)
		}
	}
	if len(res.BindpointToData) != 1 {
		t.Errorf("result has %d entries, want 1", len(res.BindpointToData))
	}
}

func TestTextureBuiltins_MultipleParameters(t *testing.T) {
	b, texs := texModule(3)
	img := b.Module().GlobalVariables[0].Type
	u32 := b.Types().Scalar(ir.U32)

	fn := b.Function("sum3")
	var sum ir.ExpressionHandle
	for i, name := range []string{"a", "b", "c"} {
		q := fn.Query(fn.Arg(name, img), ir.ImageQueryNumLevels{})
		if i == 0 {
			sum = q
		} else {
			sum = fn.Binary(ir.BinaryAdd, sum, q)
		}
	}
	fn.Returns(u32, nil)
	fn.Return(sum)
	helper := fn.Finish()

	fs := b.Function("fs_main")
	fragment(b, fs, fs.Call(helper, fs.Global(texs[0]), fs.Global(texs[1]), fs.Global(texs[2])))

	out, res, err := runTextureBuiltins(t, b.Module(), ubo30)
	if err != nil {
		t.Fatal(err)
	}
	args := out.Functions[helper].Arguments
	want := []string{"a", "b", "c", "tex_builtin_value", "tex_builtin_value_1", "tex_builtin_value_2"}
	if len(args) != len(want) {
		t.Fatalf("arguments = %+v", args)
	}
	for i, a := range args {
		if a.Name != want[i] {
			t.Errorf("argument %d = %q, want %q", i, a.Name, want[i])
		}
	}
	for i := uint32(0); i < 3; i++ {
		if got := res.BindpointToData[binding.Point{Binding: i}].Offset; got != 4*i {
			t.Errorf("binding %d at offset %d, want %d", i, got, 4*i)
		}
	}
}

func TestTextureBuiltins_Mixed(t *testing.T) {
	b, texs := texModule(2)
	img := b.Module().GlobalVariables[0].Type
	u32 := b.Types().Scalar(ir.U32)

	fn := b.Function("levels_plus")
	a := fn.Arg("a", img)
	fn.Returns(u32, nil)
	fn.Return(fn.Binary(ir.BinaryAdd, fn.Query(a, ir.ImageQueryNumLevels{}), fn.Query(fn.Global(texs[1]), ir.ImageQueryNumLevels{})))
	helper := fn.Finish()

	fs := b.Function("fs_main")
	direct := fs.Query(fs.Global(texs[1]), ir.ImageQueryNumLevels{})
	fragment(b, fs, fs.Binary(ir.BinaryAdd, direct, fs.Call(helper, fs.Global(texs[0]))))

	out, res, err := runTextureBuiltins(t, b.Module(), ubo30)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(out.Functions[helper].Arguments); n != 2 {
		t.Errorf("helper has %d arguments, want 2", n)
	}
	// The helper reads t1 itself and is rewritten first.
	if got := res.BindpointToData[binding.Point{Binding: 1}].Offset; got != 0 {
		t.Errorf("t1 at offset %d, want 0", got)
	}
	if got := res.BindpointToData[binding.Point{Binding: 0}].Offset; got != 4 {
		t.Errorf("t0 at offset %d, want 4", got)
	}
}

func TestTextureBuiltins_NumSamples(t *testing.T) {
	b := ir.NewModuleBuilder()
	ms := b.Type("", ir.ImageType{Dim: ir.Dim2D, Class: ir.ImageClassSampled, Multisampled: true})
	tex := b.Resource("ms", ir.SpaceHandle, ms, 1, 4)
	fs := b.Function("fs_main")
	fragment(b, fs, fs.Query(fs.Global(tex), ir.ImageQueryNumSamples{}))

	out, res, err := runTextureBuiltins(t, b.Module(), ubo30)
	if err != nil {
		t.Fatal(err)
	}
	got := res.BindpointToData[binding.Point{Group: 1, Binding: 4}]
	if got.Kind != TextureNumSamples {
		t.Errorf("kind = %s, want TextureNumSamples", got.Kind)
	}
	if st := builtinsStruct(t, out, ubo30); st.Members[0].Name != "texture_num_samples_1_4" {
		t.Errorf("member name = %q", st.Members[0].Name)
	}
}

func TestTextureBuiltins_ExtendsExistingUniform(t *testing.T) {
	b, texs := texModule(1)
	u32 := b.Types().Scalar(ir.U32)
	params := b.Type("Params", ir.StructType{Members: []ir.StructMember{{Name: "scale", Type: u32}}, Span: 4})
	ubo := b.Resource("params", ir.SpaceUniform, params, 0, 30)
	fs := b.Function("fs_main")
	scale := fs.Load(fs.Member(fs.Global(ubo), 0))
	fragment(b, fs, fs.Binary(ir.BinaryAdd, scale, fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{})))
	m := b.Module()

	out, res, err := runTextureBuiltins(t, m, ubo30)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.GlobalVariables) != len(m.GlobalVariables) {
		t.Error("a new uniform was added instead of extending the existing one")
	}
	st := builtinsStruct(t, out, ubo30)
	if len(st.Members) != 2 || st.Members[0].Name != "scale" || st.Members[1].Offset != 4 {
		t.Errorf("extended struct = %+v", st)
	}
	if got := res.BindpointToData[binding.Point{}].Offset; got != 4 {
		t.Errorf("offset = %d, want 4", got)
	}
	if len(out.Types) != len(m.Types) {
		t.Errorf("types = %d, want %d: the struct should grow in place", len(out.Types), len(m.Types))
	}
	if n := countNamedTypes(out, "Params"); n != 1 {
		t.Errorf("%d types named Params, want 1", n)
	}
}

func countNamedTypes(m *ir.Module, name string) int {
	n := 0
	for _, ty := range m.Types {
		if ty.Name == name {
			n++
		}
	}
	return n
}

func TestTextureBuiltins_ExtendsSharedUniformType(t *testing.T) {
	b, texs := texModule(1)
	u32 := b.Types().Scalar(ir.U32)
	params := b.Type("Params", ir.StructType{Members: []ir.StructMember{{Name: "scale", Type: u32}}, Span: 4})
	ubo := b.Resource("params", ir.SpaceUniform, params, 0, 30)
	other := b.Resource("other", ir.SpaceUniform, params, 1, 0)
	fs := b.Function("fs_main")
	scale := fs.Binary(ir.BinaryAdd, fs.Load(fs.Member(fs.Global(ubo), 0)), fs.Load(fs.Member(fs.Global(other), 0)))
	fragment(b, fs, fs.Binary(ir.BinaryAdd, scale, fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{})))
	m := b.Module()

	out, _, err := runTextureBuiltins(t, m, ubo30)
	if err != nil {
		t.Fatal(err)
	}
	if n := countNamedTypes(out, "Params"); n != 1 {
		t.Errorf("%d types named Params, want 1", n)
	}
	if st, _ := out.StructOf(out.GlobalVariables[other].Type); len(st.Members) != 1 {
		t.Errorf("shared struct changed: %+v", st)
	}
	extended := out.GlobalVariables[ubo].Type
	if got := out.Types[extended].Name; got != "Params_1" {
		t.Errorf("extended struct name = %q, want Params_1", got)
	}
	if st := builtinsStruct(t, out, ubo30); len(st.Members) != 2 {
		t.Errorf("extended struct = %+v", st)
	}
}

func TestTextureBuiltins_Errors(t *testing.T) {
	t.Run("missing data", func(t *testing.T) {
		b, texs := texModule(1)
		fs := b.Function("fs_main")
		fragment(b, fs, fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{}))
		m := b.Module()
		out, _, err := transform.Run(TextureBuiltinsFromUniform{}, m, transform.NewDataMap())
		if !errors.Is(err, transform.ErrMissingData) {
			t.Fatalf("err = %v, want MissingData", err)
		}
		if out != m {
			t.Error("module not returned unchanged")
		}
	})
	t.Run("binding taken by a texture", func(t *testing.T) {
		b, texs := texModule(1)
		fs := b.Function("fs_main")
		fragment(b, fs, fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{}))
		_, _, err := runTextureBuiltins(t, b.Module(), binding.Point{})
		if !errors.Is(err, transform.ErrInvalidConfig) {
			t.Errorf("err = %v, want InvalidConfig", err)
		}
	})
	t.Run("levels and samples of one texture", func(t *testing.T) {
		b, texs := texModule(1)
		fs := b.Function("fs_main")
		l := fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{})
		s := fs.Query(fs.Global(texs[0]), ir.ImageQueryNumSamples{})
		fragment(b, fs, fs.Binary(ir.BinaryAdd, l, s))
		_, _, err := runTextureBuiltins(t, b.Module(), ubo30)
		if !errors.Is(err, transform.ErrUnsupportedInput) {
			t.Errorf("err = %v, want UnsupportedInput", err)
		}
	})
}

func TestTextureBuiltins_Deterministic(t *testing.T) {
	build := func() *ir.Module {
		b, texs := texModule(3)
		outer := chain(b, 2, ir.ImageQueryNumLevels{})
		fs := b.Function("fs_main")
		sum := fs.Call(outer, fs.Global(texs[2]))
		sum = fs.Binary(ir.BinaryAdd, sum, fs.Query(fs.Global(texs[0]), ir.ImageQueryNumLevels{}))
		fragment(b, fs, sum)
		return b.Module()
	}
	a, _, errA := runTextureBuiltins(t, build(), ubo30)
	c, _, errC := runTextureBuiltins(t, build(), ubo30)
	if errA != nil || errC != nil {
		t.Fatal(errA, errC)
	}
	if ir.Disassemble(a) != ir.Disassemble(c) {
		t.Error("output differs between runs")
	}
}

func TestFieldKindString(t *testing.T) {
	if TextureNumLevels.String() != "TextureNumLevels" || TextureNumSamples.String() != "TextureNumSamples" {
		t.Error("unexpected names")
	}
	if FieldKind(9).String() != "FieldKind(9)" {
		t.Errorf("got %q", FieldKind(9).String())
	}
}

package fuzz

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/glsl"
	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// Generator produces random modules and transform configs. Equal seeds
// produce equal sequences.
type Generator struct {
	Seed  int64
	faker *gofakeit.Faker
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{Seed: seed, faker: gofakeit.New(seed)}
}

// Intn returns a value in [lo, hi].
func (g *Generator) Intn(lo, hi int) int {
	return g.faker.Number(lo, hi)
}

// Bool returns a random bool.
func (g *Generator) Bool() bool {
	return g.faker.Bool()
}

// word returns a random lower-case identifier fragment.
func (g *Generator) word() string {
	w := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, strings.ToLower(g.faker.Noun()))
	if w == "" {
		return "res"
	}
	return w
}

// Point returns a binding point with group and binding below the limits.
func (g *Generator) Point(groups, bindings int) binding.Point {
	return binding.Point{
		Group:   uint32(g.Intn(0, groups-1)),
		Binding: uint32(g.Intn(0, bindings-1)),
	}
}

// Module returns a random module with:
//
//   - 1 to 3 sampled textures in group 0 and one sampler
//   - 0 to 2 storage buffers with runtime-sized arrays in group 1
//   - a uniform in group 2
//   - helper chains of up to 3 functions forwarding a texture or a buffer
//     pointer down to the query
//   - a fragment entry point writing frag_depth or a location, and
//     sometimes a vertex entry point reading vertex_index and
//     instance_index
//
// Every query result flows into the entry point's output so the module
// validates.
//
//nolint:funlen // one fixture, read top to bottom
func (g *Generator) Module() *ir.Module {
	b := ir.NewModuleBuilder()
	types := b.Types()
	u32 := types.Scalar(ir.U32)
	f32 := types.Scalar(ir.F32)
	vec4f := types.Vector(ir.Vec4, ir.F32)
	width := uint8(4)

	params := b.Type("Params", ir.StructType{Members: []ir.StructMember{{Name: "bias", Type: u32}}, Span: 4})
	ubo := b.Resource("params", ir.SpaceUniform, params, 2, 0)

	var textures []ir.GlobalVariableHandle
	for i := range g.Intn(1, 3) {
		dim := ir.Dim2D
		if g.Bool() {
			dim = ir.Dim3D
		}
		img := b.Type("", ir.ImageType{Dim: dim, Class: ir.ImageClassSampled, Multisampled: dim == ir.Dim2D && g.Bool()})
		textures = append(textures, b.Resource(fmt.Sprintf("%s_tex%d", g.word(), i), ir.SpaceHandle, img, 0, uint32(i)))
	}
	smp := b.Resource("smp", ir.SpaceHandle, b.Type("", ir.SamplerType{}), 0, 8)

	arr := types.RuntimeArray(f32, 4)
	var buffers []ir.GlobalVariableHandle
	for i := range g.Intn(0, 2) {
		buffers = append(buffers, b.Resource(fmt.Sprintf("buf%d", i), ir.SpaceStorage, arr, 1, uint32(i)))
	}

	// query returns a u32 computed from a texture through a helper chain.
	texQuery := func(img ir.ImageType) ir.ImageQuery {
		if img.Multisampled {
			return ir.ImageQueryNumSamples{}
		}
		return ir.ImageQueryNumLevels{}
	}
	imgTy := func(gv ir.GlobalVariableHandle) ir.ImageType {
		m := b.Module()
		return m.Types[m.GlobalVariables[gv].Type].Inner.(ir.ImageType)
	}
	texChain := func(gv ir.GlobalVariableHandle, depth int) ir.FunctionHandle {
		ty := b.Module().GlobalVariables[gv].Type
		q := texQuery(imgTy(gv))
		var prev ir.FunctionHandle
		for d := range depth {
			fn := b.Function(fmt.Sprintf("%s_level%d", b.Module().GlobalVariables[gv].Name, d))
			t := fn.Arg("t", ty)
			fn.Returns(u32, nil)
			if d == 0 {
				fn.Return(fn.Query(t, q))
			} else {
				fn.Return(fn.Call(prev, t))
			}
			prev = fn.Finish()
		}
		return prev
	}
	bufChain := func(gv ir.GlobalVariableHandle, depth int) ir.FunctionHandle {
		ptr := types.GetOrCreate("", ir.PointerType{Base: arr, Space: ir.SpaceStorage})
		var prev ir.FunctionHandle
		for d := range depth {
			fn := b.Function(fmt.Sprintf("%s_len%d", b.Module().GlobalVariables[gv].Name, d))
			p := fn.Arg("p", ptr)
			fn.Returns(u32, nil)
			if d == 0 {
				fn.Return(fn.Expr(ir.ExprArrayLength{Array: p}))
			} else {
				fn.Return(fn.Call(prev, p))
			}
			prev = fn.Finish()
		}
		return prev
	}

	// Chains are built before the entry point so the entry point can call
	// them.
	type use struct {
		gv    ir.GlobalVariableHandle
		chain *ir.FunctionHandle
		tex   bool
	}
	var uses []use
	for _, tex := range textures {
		u := use{gv: tex, tex: true}
		if depth := g.Intn(0, 3); depth > 0 {
			h := texChain(tex, depth)
			u.chain = &h
		}
		uses = append(uses, u)
	}
	for _, buf := range buffers {
		u := use{gv: buf}
		if depth := g.Intn(0, 3); depth > 0 {
			h := bufChain(buf, depth)
			u.chain = &h
		}
		uses = append(uses, u)
	}

	fs := b.Function("fs_main")
	sum := fs.Load(fs.Member(fs.Global(ubo), 0))
	for _, u := range uses {
		var v ir.ExpressionHandle
		switch {
		case u.chain != nil:
			v = fs.Call(*u.chain, fs.Global(u.gv))
		case u.tex:
			v = fs.Query(fs.Global(u.gv), texQuery(imgTy(u.gv)))
		default:
			v = fs.Expr(ir.ExprArrayLength{Array: fs.Global(u.gv)})
		}
		sum = fs.Binary(ir.BinaryAdd, sum, v)
	}
	out := fs.Expr(ir.ExprAs{Expr: sum, Kind: ir.ScalarFloat, Convert: &width})
	if tex := textures[0]; !imgTy(tex).Multisampled && imgTy(tex).Dim == ir.Dim2D && g.Bool() {
		coord := fs.Expr(ir.ExprSplat{Size: ir.Vec2, Value: fs.F32(0.5)})
		texel := fs.Expr(ir.ExprImageSample{Image: fs.Global(tex), Sampler: fs.Global(smp), Coordinate: coord, Level: ir.SampleLevelAuto{}})
		out = fs.Binary(ir.BinaryAdd, out, fs.Member(texel, 0))
	}
	if g.Bool() {
		fs.Returns(f32, ir.BuiltinBinding{Builtin: ir.BuiltinFragDepth})
	} else {
		fs.Returns(f32, ir.LocationBinding{Location: 0})
	}
	fs.Return(out)
	b.EntryPoint("fs_main", ir.StageFragment, fs.Finish())

	if g.Bool() {
		vs := b.Function("vs_main")
		vi := vs.BuiltinArg("vi", u32, ir.BuiltinVertexIndex)
		ii := vs.BuiltinArg("ii", u32, ir.BuiltinInstanceIndex)
		vs.Returns(vec4f, ir.BuiltinBinding{Builtin: ir.BuiltinPosition})
		idx := vs.Binary(ir.BinaryAdd, vi, ii)
		x := vs.Expr(ir.ExprAs{Expr: idx, Kind: ir.ScalarFloat, Convert: &width})
		vs.Return(vs.Expr(ir.ExprSplat{Size: ir.Vec4, Value: x}))
		b.EntryPoint("vs_main", ir.StageVertex, vs.Finish())
	}
	return b.Module()
}

// Remappings moves a random subset of m's bindings, sometimes onto each
// other.
func (g *Generator) Remappings(m *ir.Module) transform.Remappings {
	r := transform.Remappings{
		BindingPoints:   make(map[binding.Point]binding.Point),
		AccessControls:  make(map[binding.Point]ir.StorageAccess),
		AllowCollisions: g.Intn(0, 3) == 0,
	}
	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		if g.Bool() {
			r.BindingPoints[*gv.Binding] = g.Point(4, 10)
		}
		if gv.Space == ir.SpaceStorage && g.Intn(0, 3) == 0 {
			r.AccessControls[*gv.Binding] = ir.StorageReadWrite
		}
	}
	return r
}

// ArrayLengthOptions gives most storage buffers of m a size index and
// places the uniform at a free point.
func (g *Generator) ArrayLengthOptions(m *ir.Module) transform.ArrayLengthFromUniformOptions {
	opts := transform.ArrayLengthFromUniformOptions{
		UBOBinding:           binding.Point{Group: 3, Binding: uint32(g.Intn(0, 3))},
		BindpointToSizeIndex: make(map[binding.Point]uint32),
	}
	for _, gv := range m.GlobalVariables {
		if gv.Space == ir.SpaceStorage && gv.Binding != nil && g.Intn(0, 4) > 0 {
			opts.BindpointToSizeIndex[*gv.Binding] = uint32(g.Intn(0, 9))
		}
	}
	return opts
}

// TextureBuiltinsOptions places the builtin uniform at a free point.
func (g *Generator) TextureBuiltinsOptions() glsl.TextureBuiltinsFromUniformOptions {
	return glsl.TextureBuiltinsFromUniformOptions{UBOBinding: binding.Point{Group: 3, Binding: uint32(g.Intn(0, 3))}}
}

// CombineSamplersOptions names some pairs of m explicitly.
func (g *Generator) CombineSamplersOptions(m *ir.Module) glsl.CombineSamplersOptions {
	opts := glsl.CombineSamplersOptions{
		SamplerTextureToName:      make(map[glsl.SamplerTexturePair]string),
		PlaceholderSamplerBinding: binding.Point{Group: 3, Binding: 9},
	}
	var sampler *binding.Point
	for _, gv := range m.GlobalVariables {
		if _, ok := m.Types[gv.Type].Inner.(ir.SamplerType); ok && gv.Binding != nil {
			sampler = gv.Binding
		}
	}
	for _, gv := range m.GlobalVariables {
		if _, ok := m.Types[gv.Type].Inner.(ir.ImageType); !ok || gv.Binding == nil || sampler == nil || !g.Bool() {
			continue
		}
		pair := glsl.SamplerTexturePair{Texture: *gv.Binding, Sampler: *sampler}
		opts.SamplerTextureToName[pair] = g.word() + "_" + g.word()
	}
	return opts
}

// DepthRange returns push-constant offsets for the depth range, usually
// valid.
func (g *Generator) DepthRange() transform.DepthRangeOffsets {
	lo := uint32(g.Intn(0, 4)) * 4
	hi := lo + 4
	if g.Intn(0, 9) == 0 {
		hi = lo
	}
	return transform.DepthRangeOffsets{Min: lo, Max: hi}
}

// FirstIndex returns push-constant offsets for the first vertex and
// instance, each present half the time.
func (g *Generator) FirstIndex() transform.OffsetFirstIndexConfig {
	var cfg transform.OffsetFirstIndexConfig
	if g.Bool() {
		v := uint32(g.Intn(0, 2)) * 4
		cfg.FirstVertexOffset = &v
	}
	if g.Bool() {
		i := 8 + uint32(g.Intn(0, 2))*4
		cfg.FirstInstanceOffset = &i
	}
	return cfg
}

package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/ir"
)

func TestRoundUp(t *testing.T) {
	assert.Equal(t, uint32(0), RoundUp(0, 4))
	assert.Equal(t, uint32(4), RoundUp(1, 4))
	assert.Equal(t, uint32(16), RoundUp(16, 16))
	assert.Equal(t, uint32(32), RoundUp(17, 16))
	assert.Equal(t, uint32(7), RoundUp(7, 0))
}

func TestSizeAndAlign(t *testing.T) {
	b := ir.NewModuleBuilder()
	r := b.Types()
	u32 := r.Scalar(ir.U32)
	vec2 := r.Vector(ir.Vec2, ir.F32)
	vec3 := r.Vector(ir.Vec3, ir.F32)
	vec4u := r.Vector(ir.Vec4, ir.U32)
	mat3 := b.Type("", ir.MatrixType{Columns: ir.Vec3, Rows: ir.Vec3, Scalar: ir.F32})
	arr := r.Array(vec4u, 3, 16)
	rt := r.RuntimeArray(u32, 4)
	st := b.Type("S", ir.StructType{
		Members: []ir.StructMember{{Name: "a", Type: u32}, {Name: "b", Type: vec3, Offset: 16}},
		Span:    32,
	})
	m := b.Module()

	tests := []struct {
		name        string
		ty          ir.TypeHandle
		size, align uint32
	}{
		{"u32", u32, 4, 4},
		{"vec2<f32>", vec2, 8, 8},
		{"vec3<f32>", vec3, 12, 16},
		{"vec4<u32>", vec4u, 16, 16},
		{"mat3x3<f32>", mat3, 48, 16},
		{"array<vec4<u32>, 3>", arr, 48, 16},
		{"array<u32>", rt, 4, 4},
		{"struct", st, 32, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.size, SizeOf(m, tt.ty), "size")
			assert.Equal(t, tt.align, AlignOf(m, tt.ty), "align")
		})
	}
}

func TestStructBuilder_Heterogeneous(t *testing.T) {
	b := ir.NewModuleBuilder()
	u32 := b.Types().Scalar(ir.U32)
	vec3 := b.Types().Vector(ir.Vec3, ir.F32)

	sb := NewStructBuilder(b.Module())
	assert.Equal(t, uint32(0), sb.Add("a", u32))
	assert.Equal(t, uint32(16), sb.Add("b", vec3))
	assert.Equal(t, uint32(28), sb.Add("c", u32))
	assert.Equal(t, uint32(32), sb.Span())

	st := sb.Finish()
	require.Len(t, st.Members, 3)
	assert.Equal(t, uint32(32), st.Span)
}

func TestStructBuilder_AddAt(t *testing.T) {
	b := ir.NewModuleBuilder()
	u32 := b.Types().Scalar(ir.U32)
	vec2 := b.Types().Vector(ir.Vec2, ir.U32)

	sb := NewStructBuilder(b.Module())
	require.NoError(t, sb.AddAt("max", u32, 12))
	require.NoError(t, sb.AddAt("min", u32, 8))
	require.NoError(t, sb.AddAt("pair", vec2, 0))

	idx, ok := sb.Index("min")
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)
	assert.Equal(t, uint32(16), sb.Span())

	assert.ErrorIs(t, sb.AddAt("odd", u32, 6), ErrUnaligned)
	assert.ErrorIs(t, sb.AddAt("clash", u32, 4), ErrOverlap)
	assert.ErrorIs(t, sb.AddAt("clash", vec2, 12), ErrOverlap)
	assert.Equal(t, 3, sb.Len())
}

func TestExtend(t *testing.T) {
	b := ir.NewModuleBuilder()
	u32 := b.Types().Scalar(ir.U32)
	vec4 := b.Types().Vector(ir.Vec4, ir.F32)
	existing := ir.StructType{
		Members: []ir.StructMember{{Name: "a", Type: u32}, {Name: "b", Type: vec4, Offset: 16}},
		Span:    32,
	}

	sb := Extend(b.Module(), existing)
	assert.Equal(t, uint32(32), sb.Add("c", u32))
	assert.Equal(t, uint32(48), sb.Span())
}

type slotKey struct {
	point binding.Point
	kind  int
}

func TestAllocator_Idempotent(t *testing.T) {
	b := ir.NewModuleBuilder()
	u32 := b.Types().Scalar(ir.U32)
	a := NewAllocator[slotKey](NewStructBuilder(b.Module()))

	k0 := slotKey{binding.Point{Group: 0, Binding: 0}, 0}
	k1 := slotKey{binding.Point{Group: 0, Binding: 1}, 0}
	k2 := slotKey{binding.Point{Group: 0, Binding: 0}, 1}

	assert.Equal(t, Slot{Member: 0, Offset: 0}, a.Get(k0, "m0", u32))
	assert.Equal(t, Slot{Member: 1, Offset: 4}, a.Get(k1, "m1", u32))
	assert.Equal(t, Slot{Member: 0, Offset: 0}, a.Get(k0, "ignored", u32))
	assert.Equal(t, Slot{Member: 2, Offset: 8}, a.Get(k2, "m2", u32))

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []slotKey{k0, k1, k2}, a.Keys())
	s, ok := a.Lookup(k1)
	assert.True(t, ok)
	assert.Equal(t, uint32(4), s.Offset)

	st := a.StructType()
	assert.Equal(t, uint32(12), st.Span)
	assert.Equal(t, "m0", st.Members[0].Name)
}

package ir

import (
	"testing"
)

func TestTypeRegistry_ScalarDeduplication(t *testing.T) {
	m := &Module{}
	registry := NewTypeRegistry(m)

	f32a := registry.GetOrCreate("f32", F32)
	f32b := registry.GetOrCreate("f32", F32)

	if f32a != f32b {
		t.Errorf("Expected same handle for identical scalar types, got %d and %d", f32a, f32b)
	}
	if registry.Count() != 1 {
		t.Errorf("Expected 1 type, got %d", registry.Count())
	}
}

func TestTypeRegistry_ReusesModuleTypes(t *testing.T) {
	m := &Module{Types: []Type{
		{Name: "f32", Inner: F32},
		{Name: "u32", Inner: U32},
		{Name: "u32_again", Inner: U32},
	}}
	registry := NewTypeRegistry(m)

	if got := registry.Scalar(U32); got != 1 {
		t.Errorf("Scalar(u32) = %d, want 1 (first matching type)", got)
	}
	if len(m.Types) != 3 {
		t.Errorf("len(Types) = %d, want 3", len(m.Types))
	}

	vec := registry.Vector(Vec4, U32)
	if vec != 3 {
		t.Errorf("Vector(4, u32) = %d, want 3", vec)
	}
	if _, ok := m.Types[vec].Inner.(VectorType); !ok {
		t.Errorf("appended type is %T, want VectorType", m.Types[vec].Inner)
	}
}

func TestTypeRegistry_DifferentScalars(t *testing.T) {
	registry := NewTypeRegistry(&Module{})

	handles := []TypeHandle{
		registry.Scalar(F32),
		registry.Scalar(I32),
		registry.Scalar(U32),
		registry.Scalar(ScalarType{Kind: ScalarFloat, Width: 2}),
	}
	for i := 0; i < len(handles); i++ {
		for j := i + 1; j < len(handles); j++ {
			if handles[i] == handles[j] {
				t.Errorf("Expected different handles for different types, got %d == %d", handles[i], handles[j])
			}
		}
	}
}

func TestTypeRegistry_StructsAreNominal(t *testing.T) {
	m := &Module{}
	registry := NewTypeRegistry(m)
	u32 := registry.Scalar(U32)

	layout := StructType{Members: []StructMember{{Name: "x", Type: u32}}, Span: 4}
	a := registry.GetOrCreate("A", layout)
	b := registry.GetOrCreate("B", layout)
	a2 := registry.GetOrCreate("A", layout)

	if a == b {
		t.Error("structs with different names should not be deduplicated")
	}
	if a != a2 {
		t.Errorf("GetOrCreate(A) = %d, want %d", a2, a)
	}
}

func TestTypeRegistry_Arrays(t *testing.T) {
	registry := NewTypeRegistry(&Module{})
	u32 := registry.Scalar(U32)

	a4 := registry.Array(u32, 4, 4)
	a4again := registry.Array(u32, 4, 4)
	a8 := registry.Array(u32, 8, 4)

	if a4 != a4again {
		t.Errorf("array<u32, 4> deduplication failed: %d vs %d", a4, a4again)
	}
	if a4 == a8 {
		t.Error("array<u32, 4> and array<u32, 8> should differ")
	}
}

func TestTypeRegistry_ImageAccessDistinguishes(t *testing.T) {
	registry := NewTypeRegistry(&Module{})
	base := ImageType{Dim: Dim2D, Class: ImageClassStorage, Format: StorageFormatR32Uint}

	read := base
	read.Access = StorageRead
	write := base
	write.Access = StorageWrite
	rov := write
	rov.RasterizerOrdered = true

	if registry.GetOrCreate("", read) == registry.GetOrCreate("", write) {
		t.Error("storage images with different access should differ")
	}
	if registry.GetOrCreate("", write) == registry.GetOrCreate("", rov) {
		t.Error("rasterizer-ordered images should differ from plain ones")
	}
}

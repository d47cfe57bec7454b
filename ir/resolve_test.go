package ir

import (
	"reflect"
	"testing"
)

func TestResolveExpressionType(t *testing.T) {
	b := NewModuleBuilder()
	u32 := b.Type("u32", U32)
	params := b.Type("Params", StructType{Members: []StructMember{{Name: "count", Type: u32}}, Span: 4})
	tex := b.Type("", ImageType{Dim: Dim2D, Class: ImageClassSampled})
	arr := b.Types().RuntimeArray(u32, 4)
	gParams := b.Resource("params", SpaceUniform, params, 0, 0)
	gTex := b.Resource("tex", SpaceHandle, tex, 0, 1)
	gArr := b.Resource("data", SpaceStorage, arr, 0, 2)

	f := b.Function("f")
	ptr := f.Global(gParams)
	member := f.Member(ptr, 0)
	count := f.Load(member)
	texture := f.Global(gTex)
	size := f.Query(texture, ImageQuerySize{})
	levels := f.Query(texture, ImageQueryNumLevels{})
	less := f.Binary(BinaryLess, count, f.U32(3))
	length := f.Expr(ExprArrayLength{Array: f.Global(gArr)})
	width := uint8(4)
	asFloat := f.Expr(ExprAs{Expr: count, Kind: ScalarFloat, Convert: &width})
	f.ReturnVoid()
	f.Finish()
	m := b.Module()
	fn := &m.Functions[0]

	tests := []struct {
		name string
		expr ExpressionHandle
		want TypeInner
	}{
		{"uniform global is a pointer", ptr, PointerType{Base: params, Space: SpaceUniform}},
		{"member through pointer", member, PointerType{Base: u32, Space: SpaceUniform}},
		{"load", count, U32},
		{"handle global is a value", texture, ImageType{Dim: Dim2D, Class: ImageClassSampled}},
		{"2d size", size, VectorType{Size: Vec2, Scalar: U32}},
		{"levels", levels, U32},
		{"comparison", less, Bool},
		{"array length", length, U32},
		{"conversion", asFloat, F32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveExpressionType(m, fn, tt.expr)
			if err != nil {
				t.Fatalf("ResolveExpressionType: %v", err)
			}
			if inner := got.Inner(m); !reflect.DeepEqual(inner, tt.want) {
				t.Errorf("type = %#v, want %#v", inner, tt.want)
			}
		})
	}
}

func TestResolveExpressionType_Errors(t *testing.T) {
	m := paramsModule()
	fn := &m.Functions[0]
	if _, err := ResolveExpressionType(m, fn, 99); err == nil {
		t.Error("expected error for out of range handle")
	}

	fn.Expressions = append(fn.Expressions, Expression{Kind: ExprLoad{Pointer: 3}})
	if _, err := ResolveExpressionType(m, fn, ExpressionHandle(len(fn.Expressions)-1)); err == nil {
		t.Error("expected error for load of a non-pointer")
	}
}

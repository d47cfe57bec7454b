package ir

import "testing"

// paramsModule builds:
//
//	struct Params { count: u32 }
//	@group(0) @binding(0) var<uniform> params: Params;
//	fn f() -> u32 { return params.count + 1u; }
func paramsModule() *Module {
	b := NewModuleBuilder()
	u32 := b.Type("u32", U32)
	params := b.Type("Params", StructType{Members: []StructMember{{Name: "count", Type: u32}}, Span: 4})
	g := b.Resource("params", SpaceUniform, params, 0, 0)

	f := b.Function("f")
	f.Returns(u32, nil)
	count := f.Load(f.Member(f.Global(g), 0))
	f.Return(f.Binary(BinaryAdd, count, f.U32(1)))
	f.Finish()
	return b.Module()
}

func emitRanges(block Block) []Range {
	var ranges []Range
	WalkStatements(block, func(s Statement) {
		if e, ok := s.Kind.(StmtEmit); ok {
			ranges = append(ranges, e.Range)
		}
	})
	return ranges
}

func TestFunctionBuilder_EmitRanges(t *testing.T) {
	m := paramsModule()
	got := emitRanges(m.Functions[0].Body)
	want := []Range{{Start: 1, End: 3}, {Start: 4, End: 5}}
	if len(got) != len(want) {
		t.Fatalf("emit ranges = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d = %v, want %v", i, got[i], want[i])
		}
	}

	errors, err := Validate(m)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if len(errors) != 0 {
		t.Errorf("unexpected validation errors: %v", errors)
	}
}

func TestModuleBuilder_Resource(t *testing.T) {
	b := NewModuleBuilder()
	u32 := b.Type("u32", U32)
	arr := b.Types().RuntimeArray(u32, 4)
	h := b.Resource("data", SpaceStorage, arr, 1, 2)

	gv := b.Module().GlobalVariables[h]
	if gv.Binding == nil || gv.Binding.Group != 1 || gv.Binding.Binding != 2 {
		t.Errorf("binding = %v, want group 1 binding 2", gv.Binding)
	}
	if gv.Access != StorageRead {
		t.Errorf("access = %v, want read", gv.Access)
	}
	if got, ok := b.Module().GlobalAt(*gv.Binding); !ok || got != h {
		t.Errorf("GlobalAt = %d, %v; want %d", got, ok, h)
	}
}

func TestModuleBuilder_ComputeWorkgroup(t *testing.T) {
	b := NewModuleBuilder()
	f := b.Function("main")
	f.ReturnVoid()
	b.EntryPoint("main", StageCompute, f.Finish())

	if got := b.Module().EntryPoints[0].Workgroup; got != [3]uint32{1, 1, 1} {
		t.Errorf("workgroup = %v, want [1 1 1]", got)
	}
	if got := b.Module().StageOf(0); got != StageCompute {
		t.Errorf("StageOf = %v, want compute", got)
	}
}

func TestFunctionBuilder_If(t *testing.T) {
	b := NewModuleBuilder()
	u32 := b.Type("u32", U32)
	f := b.Function("f")
	x := f.Arg("x", u32)
	cond := f.Binary(BinaryLess, x, f.U32(4))
	f.If(cond, func() {
		f.Return(x)
	}, func() {
		f.Return(f.U32(0))
	})
	f.Returns(u32, nil)
	f.Finish()

	body := b.Module().Functions[0].Body
	stmt, ok := body[len(body)-1].Kind.(StmtIf)
	if !ok {
		t.Fatalf("last statement = %T, want StmtIf", body[len(body)-1].Kind)
	}
	if len(stmt.Accept) != 1 || len(stmt.Reject) != 1 {
		t.Errorf("accept/reject lengths = %d/%d, want 1/1", len(stmt.Accept), len(stmt.Reject))
	}
}

package ir

import "testing"

func TestRewriter_CopyIsIdentity(t *testing.T) {
	m := paramsModule()
	rewritten := NewRewriter(m, 0).Run()

	out := m.Clone()
	out.Functions[0] = *rewritten
	if got, want := Disassemble(out), Disassemble(m); got != want {
		t.Errorf("rewritten module differs:\n%s\nwant:\n%s", got, want)
	}
}

func TestRewriter_ExpressionHook(t *testing.T) {
	m := paramsModule()
	rw := NewRewriter(m, 0)
	rw.Expression = func(rw *Rewriter, old ExpressionHandle) (ExpressionHandle, bool) {
		if _, ok := rw.Old.Expressions[old].Kind.(ExprLoad); ok {
			return rw.Add(Literal{Value: LiteralU32(7)}), true
		}
		return 0, false
	}
	fn := rw.Run()

	var sum ExprBinary
	for _, e := range fn.Expressions {
		if b, ok := e.Kind.(ExprBinary); ok {
			sum = b
		}
	}
	lit, ok := fn.Expressions[sum.Left].Kind.(Literal)
	if !ok || lit.Value != LiteralU32(7) {
		t.Fatalf("left operand = %#v, want literal 7", fn.Expressions[sum.Left].Kind)
	}

	out := m.Clone()
	out.Functions[0] = *fn
	if errors, _ := Validate(out); len(errors) != 0 {
		t.Errorf("validation errors: %v", errors)
	}
}

func TestRewriter_CallHookAppendsArguments(t *testing.T) {
	b := NewModuleBuilder()
	u32 := b.Type("u32", U32)

	helper := b.Function("helper")
	x := helper.Arg("x", u32)
	helper.Returns(u32, nil)
	helper.Return(x)
	helperHandle := helper.Finish()

	main := b.Function("main")
	main.Call(helperHandle, main.U32(5))
	main.ReturnVoid()
	b.EntryPoint("main", StageCompute, main.Finish())
	m := b.Module()

	hrw := NewRewriter(m, helperHandle)
	if idx := hrw.AddArgument("extra", u32); idx != 1 {
		t.Fatalf("AddArgument index = %d, want 1", idx)
	}
	newHelper := hrw.Run()

	var sites []int
	mrw := NewRewriter(m, 1)
	mrw.Call = func(rw *Rewriter, site int, call StmtCall, args []ExpressionHandle) []ExpressionHandle {
		sites = append(sites, site)
		return append(args, rw.Add(Literal{Value: LiteralU32(9)}))
	}
	newMain := mrw.Run()

	m.Functions[helperHandle] = *newHelper
	m.Functions[1] = *newMain
	if len(sites) != 1 || sites[0] != 0 {
		t.Errorf("call sites = %v, want [0]", sites)
	}
	calls := CallSites(&m.Functions[1])
	if len(calls) != 1 || len(calls[0].Arguments) != 2 {
		t.Fatalf("calls = %+v, want one call with two arguments", calls)
	}
	if errors, _ := Validate(m); len(errors) != 0 {
		t.Errorf("validation errors: %v", errors)
	}
}

func TestRewriter_DropArguments(t *testing.T) {
	b := NewModuleBuilder()
	u32 := b.Type("u32", U32)

	helper := b.Function("helper")
	helper.Arg("unused", u32)
	y := helper.Arg("y", u32)
	helper.Returns(u32, nil)
	helper.Return(y)
	helperHandle := helper.Finish()

	main := b.Function("main")
	main.Call(helperHandle, main.U32(5), main.U32(6))
	main.ReturnVoid()
	b.EntryPoint("main", StageCompute, main.Finish())
	m := b.Module()

	hrw := NewRewriter(m, helperHandle)
	hrw.DropArguments(func(i uint32) bool { return i == 0 })
	if idx := hrw.AddArgument("extra", u32); idx != 1 {
		t.Fatalf("AddArgument index = %d, want 1", idx)
	}
	newHelper := hrw.Run()
	if len(newHelper.Arguments) != 2 || newHelper.Arguments[0].Name != "y" {
		t.Fatalf("arguments = %+v, want [y extra]", newHelper.Arguments)
	}
	ret := newHelper.Body[len(newHelper.Body)-1].Kind.(StmtReturn)
	if arg, ok := newHelper.Expressions[*ret.Value].Kind.(ExprFunctionArgument); !ok || arg.Index != 0 {
		t.Errorf("return value = %v, want argument 0", newHelper.Expressions[*ret.Value].Kind)
	}

	mrw := NewRewriter(m, 1)
	mrw.KeepArgument = func(call StmtCall, i int) bool { return call.Function != helperHandle || i != 0 }
	mrw.Call = func(rw *Rewriter, _ int, _ StmtCall, args []ExpressionHandle) []ExpressionHandle {
		return append(args, rw.Add(Literal{Value: LiteralU32(9)}))
	}
	newMain := mrw.Run()
	for _, e := range newMain.Expressions {
		if lit, ok := e.Kind.(Literal); ok && lit.Value == LiteralU32(5) {
			t.Error("dropped argument was copied")
		}
	}

	m.Functions[helperHandle] = *newHelper
	m.Functions[1] = *newMain
	calls := CallSites(&m.Functions[1])
	if len(calls) != 1 || len(calls[0].Arguments) != 2 {
		t.Fatalf("calls = %+v, want one call with two arguments", calls)
	}
	if errors, _ := Validate(m); len(errors) != 0 {
		t.Errorf("validation errors: %v", errors)
	}
}

func TestRewriter_ReturnHook(t *testing.T) {
	m := paramsModule()
	rw := NewRewriter(m, 0)
	rw.Return = func(rw *Rewriter, value *ExpressionHandle) *ExpressionHandle {
		doubled := rw.Add(ExprBinary{Op: BinaryMultiply, Left: *value, Right: rw.Add(Literal{Value: LiteralU32(2)})})
		return &doubled
	}
	fn := rw.Run()

	ret, ok := fn.Body[len(fn.Body)-1].Kind.(StmtReturn)
	if !ok || ret.Value == nil {
		t.Fatalf("last statement = %#v, want return with value", fn.Body[len(fn.Body)-1].Kind)
	}
	mul, ok := fn.Expressions[*ret.Value].Kind.(ExprBinary)
	if !ok || mul.Op != BinaryMultiply {
		t.Fatalf("return value = %#v, want multiply", fn.Expressions[*ret.Value].Kind)
	}

	out := m.Clone()
	out.Functions[0] = *fn
	if errors, _ := Validate(out); len(errors) != 0 {
		t.Errorf("validation errors: %v", errors)
	}
}

func TestRewriter_Prologue(t *testing.T) {
	b := NewModuleBuilder()
	u32 := b.Type("u32", U32)
	f := b.Function("f")
	v := f.Local("v", u32)
	f.Store(v, f.U32(1))
	f.ReturnVoid()
	f.Finish()
	m := b.Module()

	rw := NewRewriter(m, 0)
	rw.Prologue = func(rw *Rewriter) {
		rw.AddStatement(StmtStore{Pointer: rw.Lookup(v), Value: rw.Add(Literal{Value: LiteralU32(0)})})
	}
	fn := rw.Run()

	first, ok := fn.Body[0].Kind.(StmtStore)
	if !ok {
		t.Fatalf("first statement = %T, want StmtStore", fn.Body[0].Kind)
	}
	if lit := fn.Expressions[first.Value].Kind.(Literal); lit.Value != LiteralU32(0) {
		t.Errorf("prologue stored %v, want 0", lit.Value)
	}
	if len(fn.Body) != 3 {
		t.Errorf("body has %d statements, want 3", len(fn.Body))
	}
}

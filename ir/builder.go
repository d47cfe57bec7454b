package ir

import "github.com/gogpu/raise/binding"

// ModuleBuilder assembles a Module one declaration at a time.
type ModuleBuilder struct {
	m     *Module
	types *TypeRegistry
}

// NewModuleBuilder returns a builder for an empty module.
func NewModuleBuilder() *ModuleBuilder {
	m := &Module{}
	return &ModuleBuilder{m: m, types: NewTypeRegistry(m)}
}

// Types returns the builder's type registry.
func (b *ModuleBuilder) Types() *TypeRegistry { return b.types }

// Type returns a handle for the type, reusing an identical existing type.
func (b *ModuleBuilder) Type(name string, inner TypeInner) TypeHandle {
	return b.types.GetOrCreate(name, inner)
}

// Global appends a global variable.
func (b *ModuleBuilder) Global(gv GlobalVariable) GlobalVariableHandle {
	b.m.GlobalVariables = append(b.m.GlobalVariables, gv)
	return GlobalVariableHandle(len(b.m.GlobalVariables) - 1)
}

// Resource appends a global bound at (group, bind) in the given space.
func (b *ModuleBuilder) Resource(name string, space AddressSpace, ty TypeHandle, group, bind uint32) GlobalVariableHandle {
	gv := GlobalVariable{Name: name, Space: space, Type: ty, Binding: &binding.Point{Group: group, Binding: bind}}
	if space == SpaceStorage {
		gv.Access = StorageRead
	}
	return b.Global(gv)
}

// EntryPoint registers fn as an entry point.
func (b *ModuleBuilder) EntryPoint(name string, stage ShaderStage, fn FunctionHandle) {
	ep := EntryPoint{Name: name, Stage: stage, Function: fn}
	if stage == StageCompute {
		ep.Workgroup = [3]uint32{1, 1, 1}
	}
	b.m.EntryPoints = append(b.m.EntryPoints, ep)
}

// Module returns the module built so far.
func (b *ModuleBuilder) Module() *Module { return b.m }

// Function starts a new function. Its handle is reserved immediately and
// the body is stored by Finish.
func (b *ModuleBuilder) Function(name string) *FunctionBuilder {
	b.m.Functions = append(b.m.Functions, Function{Name: name})
	f := &FunctionBuilder{
		mb:     b,
		handle: FunctionHandle(len(b.m.Functions) - 1),
		fn:     Function{Name: name},
	}
	f.block = &f.fn.Body
	return f
}

// FunctionBuilder appends arguments, expressions and statements to one
// function. Expressions that need emitting are covered by an Emit statement
// as soon as they are added.
type FunctionBuilder struct {
	mb     *ModuleBuilder
	handle FunctionHandle
	fn     Function
	block  *Block
}

// Handle returns the function's reserved handle.
func (f *FunctionBuilder) Handle() FunctionHandle { return f.handle }

// Arg appends an argument and returns the expression referencing it.
func (f *FunctionBuilder) Arg(name string, ty TypeHandle) ExpressionHandle {
	return f.arg(FunctionArgument{Name: name, Type: ty})
}

// BuiltinArg appends an argument carrying a builtin binding.
func (f *FunctionBuilder) BuiltinArg(name string, ty TypeHandle, builtin BuiltinValue) ExpressionHandle {
	var bind Binding = BuiltinBinding{Builtin: builtin}
	return f.arg(FunctionArgument{Name: name, Type: ty, Binding: &bind})
}

func (f *FunctionBuilder) arg(a FunctionArgument) ExpressionHandle {
	f.fn.Arguments = append(f.fn.Arguments, a)
	return f.Expr(ExprFunctionArgument{Index: uint32(len(f.fn.Arguments) - 1)})
}

// Returns sets the result type and optional binding.
func (f *FunctionBuilder) Returns(ty TypeHandle, bind Binding) {
	res := &FunctionResult{Type: ty}
	if bind != nil {
		res.Binding = &bind
	}
	f.fn.Result = res
}

// Local declares a local variable and returns a pointer expression to it.
func (f *FunctionBuilder) Local(name string, ty TypeHandle) ExpressionHandle {
	f.fn.LocalVars = append(f.fn.LocalVars, LocalVariable{Name: name, Type: ty})
	return f.Expr(ExprLocalVariable{Variable: uint32(len(f.fn.LocalVars) - 1)})
}

// Expr appends an expression, emitting it if required.
func (f *FunctionBuilder) Expr(kind ExpressionKind) ExpressionHandle {
	h := ExpressionHandle(len(f.fn.Expressions))
	f.fn.Expressions = append(f.fn.Expressions, Expression{Kind: kind})
	if !NeedsEmit(kind) {
		return h
	}
	if n := len(*f.block); n > 0 {
		if emit, ok := (*f.block)[n-1].Kind.(StmtEmit); ok && emit.Range.End == h {
			(*f.block)[n-1].Kind = StmtEmit{Range: Range{Start: emit.Range.Start, End: h + 1}}
			return h
		}
	}
	f.stmt(StmtEmit{Range: Range{Start: h, End: h + 1}})
	return h
}

// Global returns an expression referencing a global variable.
func (f *FunctionBuilder) Global(gv GlobalVariableHandle) ExpressionHandle {
	return f.Expr(ExprGlobalVariable{Variable: gv})
}

// U32 returns a u32 literal.
func (f *FunctionBuilder) U32(v uint32) ExpressionHandle {
	return f.Expr(Literal{Value: LiteralU32(v)})
}

// F32 returns an f32 literal.
func (f *FunctionBuilder) F32(v float32) ExpressionHandle {
	return f.Expr(Literal{Value: LiteralF32(v)})
}

// Load loads through a pointer.
func (f *FunctionBuilder) Load(ptr ExpressionHandle) ExpressionHandle {
	return f.Expr(ExprLoad{Pointer: ptr})
}

// Member accesses a struct member or constant-index element.
func (f *FunctionBuilder) Member(base ExpressionHandle, index uint32) ExpressionHandle {
	return f.Expr(ExprAccessIndex{Base: base, Index: index})
}

// Binary applies a binary operator.
func (f *FunctionBuilder) Binary(op BinaryOperator, left, right ExpressionHandle) ExpressionHandle {
	return f.Expr(ExprBinary{Op: op, Left: left, Right: right})
}

// Query applies an image query.
func (f *FunctionBuilder) Query(image ExpressionHandle, q ImageQuery) ExpressionHandle {
	return f.Expr(ExprImageQuery{Image: image, Query: q})
}

// Call calls fn with args. If fn returns a value the call result expression
// is returned; otherwise the result is meaningless.
func (f *FunctionBuilder) Call(fn FunctionHandle, args ...ExpressionHandle) ExpressionHandle {
	call := StmtCall{Function: fn, Arguments: append([]ExpressionHandle(nil), args...)}
	var res ExpressionHandle
	if f.mb.m.Functions[fn].Result != nil || fn == f.handle && f.fn.Result != nil {
		res = f.Expr(ExprCallResult{Function: fn})
		call.Result = &res
	}
	f.stmt(call)
	return res
}

// Store stores value through ptr.
func (f *FunctionBuilder) Store(ptr, value ExpressionHandle) {
	f.stmt(StmtStore{Pointer: ptr, Value: value})
}

// Return returns value from the function.
func (f *FunctionBuilder) Return(value ExpressionHandle) {
	f.stmt(StmtReturn{Value: &value})
}

// ReturnVoid returns without a value.
func (f *FunctionBuilder) ReturnVoid() {
	f.stmt(StmtReturn{})
}

// If appends an if statement; accept and reject (either may be nil) add
// statements to the respective branches.
func (f *FunctionBuilder) If(cond ExpressionHandle, accept, reject func()) {
	var s StmtIf
	s.Condition = cond
	outer := f.block
	if accept != nil {
		f.block = &s.Accept
		accept()
	}
	if reject != nil {
		f.block = &s.Reject
		reject()
	}
	f.block = outer
	f.stmt(s)
}

// Statement appends an arbitrary statement.
func (f *FunctionBuilder) Statement(kind StatementKind) {
	f.stmt(kind)
}

func (f *FunctionBuilder) stmt(kind StatementKind) {
	*f.block = append(*f.block, Statement{Kind: kind})
}

// Finish stores the function in the module and returns its handle.
func (f *FunctionBuilder) Finish() FunctionHandle {
	f.mb.m.Functions[f.handle] = f.fn
	return f.handle
}

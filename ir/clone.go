package ir

import "github.com/gogpu/raise/binding"

// Clone returns a deep copy of m. The copy shares no slices, maps or
// pointers with m, so it may be mutated freely.
func (m *Module) Clone() *Module {
	out := &Module{
		Types:           make([]Type, len(m.Types)),
		Constants:       make([]Constant, len(m.Constants)),
		GlobalVariables: make([]GlobalVariable, len(m.GlobalVariables)),
		Functions:       make([]Function, len(m.Functions)),
		EntryPoints:     append([]EntryPoint(nil), m.EntryPoints...),
	}
	for i, t := range m.Types {
		out.Types[i] = Type{Name: t.Name, Inner: cloneTypeInner(t.Inner)}
	}
	for i, c := range m.Constants {
		out.Constants[i] = c
		if comp, ok := c.Value.(CompositeValue); ok {
			out.Constants[i].Value = CompositeValue{Components: append([]ConstantHandle(nil), comp.Components...)}
		}
	}
	for i, gv := range m.GlobalVariables {
		out.GlobalVariables[i] = gv.clone()
	}
	for i := range m.Functions {
		out.Functions[i] = m.Functions[i].Clone()
	}
	return out
}

func (gv GlobalVariable) clone() GlobalVariable {
	if gv.Binding != nil {
		b := *gv.Binding
		gv.Binding = &b
	}
	if gv.Init != nil {
		c := *gv.Init
		gv.Init = &c
	}
	return gv
}

// WithBinding returns a copy of gv bound at p.
func (gv GlobalVariable) WithBinding(p binding.Point) GlobalVariable {
	gv = gv.clone()
	gv.Binding = &p
	return gv
}

func cloneTypeInner(inner TypeInner) TypeInner {
	switch t := inner.(type) {
	case ArrayType:
		if t.Size.Constant != nil {
			n := *t.Size.Constant
			t.Size.Constant = &n
		}
		return t
	case StructType:
		members := make([]StructMember, len(t.Members))
		for i, mem := range t.Members {
			mem.Binding = cloneBinding(mem.Binding)
			members[i] = mem
		}
		return StructType{Members: members, Span: t.Span}
	default:
		return inner
	}
}

func cloneBinding(b *Binding) *Binding {
	if b == nil {
		return nil
	}
	c := *b
	if loc, ok := c.(LocationBinding); ok && loc.Interpolation != nil {
		interp := *loc.Interpolation
		loc.Interpolation = &interp
		c = loc
	}
	return &c
}

// Clone returns a deep copy of fn.
func (fn *Function) Clone() Function {
	out := Function{
		Name:        fn.Name,
		Arguments:   make([]FunctionArgument, len(fn.Arguments)),
		LocalVars:   make([]LocalVariable, len(fn.LocalVars)),
		Expressions: make([]Expression, len(fn.Expressions)),
		Body:        cloneBlock(fn.Body),
	}
	for i, arg := range fn.Arguments {
		arg.Binding = cloneBinding(arg.Binding)
		out.Arguments[i] = arg
	}
	if fn.Result != nil {
		out.Result = &FunctionResult{Type: fn.Result.Type, Binding: cloneBinding(fn.Result.Binding)}
	}
	for i, lv := range fn.LocalVars {
		lv.Init = cloneHandle(lv.Init)
		out.LocalVars[i] = lv
	}
	identity := func(h ExpressionHandle) ExpressionHandle { return h }
	for i, e := range fn.Expressions {
		out.Expressions[i] = Expression{Kind: MapOperands(e.Kind, identity)}
	}
	return out
}

func cloneHandle(h *ExpressionHandle) *ExpressionHandle {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

func cloneBlock(b Block) Block {
	if b == nil {
		return nil
	}
	out := make(Block, len(b))
	for i, s := range b {
		out[i] = Statement{Kind: cloneStatement(s.Kind)}
	}
	return out
}

func cloneStatement(kind StatementKind) StatementKind {
	switch k := kind.(type) {
	case StmtBlock:
		return StmtBlock{Block: cloneBlock(k.Block)}
	case StmtIf:
		return StmtIf{Condition: k.Condition, Accept: cloneBlock(k.Accept), Reject: cloneBlock(k.Reject)}
	case StmtSwitch:
		cases := make([]SwitchCase, len(k.Cases))
		for i, c := range k.Cases {
			cases[i] = SwitchCase{Value: c.Value, Body: cloneBlock(c.Body), FallThrough: c.FallThrough}
		}
		return StmtSwitch{Selector: k.Selector, Cases: cases}
	case StmtLoop:
		return StmtLoop{Body: cloneBlock(k.Body), Continuing: cloneBlock(k.Continuing), BreakIf: cloneHandle(k.BreakIf)}
	case StmtReturn:
		return StmtReturn{Value: cloneHandle(k.Value)}
	case StmtImageStore:
		return StmtImageStore{Image: k.Image, Coordinate: k.Coordinate, ArrayIndex: cloneHandle(k.ArrayIndex), Value: k.Value}
	case StmtCall:
		return StmtCall{Function: k.Function, Arguments: append([]ExpressionHandle(nil), k.Arguments...), Result: cloneHandle(k.Result)}
	default:
		return kind
	}
}

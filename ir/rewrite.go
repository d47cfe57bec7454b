package ir

import "fmt"

// Rewriter rebuilds one function of a module into a fresh expression arena.
//
// The old function is read only. Expressions are copied the first time they
// are looked up, so the new arena only contains what the new body uses.
// Replacements for emitted expressions are materialized at the position of
// the original; replacements for argument or variable references happen
// where they are first used, so values needed in several blocks belong in
// the Prologue.
type Rewriter struct {
	Module *Module
	Old    *Function
	New    *Function

	// Prologue runs before the body is copied. Statements and expressions
	// it adds are placed at the start of the new body.
	Prologue func(rw *Rewriter)

	// Expression may replace an old expression. It is called once per old
	// handle, the first time that handle is looked up.
	Expression func(rw *Rewriter, old ExpressionHandle) (ExpressionHandle, bool)

	// Call may append arguments to a call. site is the ordinal of the call
	// among the old function's Call statements in WalkStatements order.
	Call func(rw *Rewriter, site int, call StmtCall, args []ExpressionHandle) []ExpressionHandle

	// KeepArgument, if set, filters the old arguments of every call before
	// they are looked up. Dropped arguments are never copied.
	KeepArgument func(call StmtCall, i int) bool

	// Return may replace the value of a return statement, adding statements
	// before it with AddStatement.
	Return func(rw *Rewriter, value *ExpressionHandle) *ExpressionHandle

	// Epilogue runs after the body when control can reach its end without
	// a return statement.
	Epilogue func(rw *Rewriter)

	mapped  []ExpressionHandle
	done    []bool
	args    map[uint32]ExpressionHandle
	argMap  []int
	pending *ExpressionHandle
	block   *Block
	site    int
}

// NewRewriter prepares to rewrite m.Functions[fn]. The rewritten function
// is returned by Run; m itself is only modified by callers.
func NewRewriter(m *Module, fn FunctionHandle) *Rewriter {
	old := &m.Functions[fn]
	rw := &Rewriter{
		Module: m,
		Old:    old,
		New: &Function{
			Name:      old.Name,
			Arguments: append([]FunctionArgument(nil), old.Arguments...),
			LocalVars: append([]LocalVariable(nil), old.LocalVars...),
		},
		mapped: make([]ExpressionHandle, len(old.Expressions)),
		done:   make([]bool, len(old.Expressions)),
		args:   make(map[uint32]ExpressionHandle),
	}
	for i := range rw.New.Arguments {
		rw.New.Arguments[i].Binding = cloneBinding(old.Arguments[i].Binding)
	}
	if old.Result != nil {
		rw.New.Result = &FunctionResult{Type: old.Result.Type, Binding: cloneBinding(old.Result.Binding)}
	}
	return rw
}

// AddArgument appends a parameter to the new function and returns its index.
func (rw *Rewriter) AddArgument(name string, ty TypeHandle) uint32 {
	rw.New.Arguments = append(rw.New.Arguments, FunctionArgument{Name: name, Type: ty})
	return uint32(len(rw.New.Arguments) - 1)
}

// DropArguments removes the old parameters for which drop reports true from
// the new function. It must be called before AddArgument. References to the
// remaining parameters are renumbered; referencing a dropped one panics.
func (rw *Rewriter) DropArguments(drop func(i uint32) bool) {
	rw.argMap = make([]int, len(rw.Old.Arguments))
	var kept []FunctionArgument
	for i, a := range rw.New.Arguments[:len(rw.Old.Arguments)] {
		if drop(uint32(i)) {
			rw.argMap[i] = -1
			continue
		}
		rw.argMap[i] = len(kept)
		kept = append(kept, a)
	}
	rw.New.Arguments = kept
}

func (rw *Rewriter) oldArgument(index uint32) uint32 {
	if rw.argMap == nil {
		return index
	}
	i := rw.argMap[index]
	if i < 0 {
		panic(fmt.Sprintf("ir: dropped parameter %q of %q is still referenced", rw.Old.Arguments[index].Name, rw.Old.Name))
	}
	return uint32(i)
}

// Argument returns the new-arena expression referencing argument index of
// the new function.
func (rw *Rewriter) Argument(index uint32) ExpressionHandle {
	if h, ok := rw.args[index]; ok {
		return h
	}
	h := rw.Add(ExprFunctionArgument{Index: index})
	rw.args[index] = h
	return h
}

// Map records that old is replaced by h.
func (rw *Rewriter) Map(old, h ExpressionHandle) {
	rw.mapped[old] = h
	rw.done[old] = true
}

// Lookup returns the new handle for an old expression, copying or replacing
// it on first use.
func (rw *Rewriter) Lookup(old ExpressionHandle) ExpressionHandle {
	if rw.done[old] {
		return rw.mapped[old]
	}
	if rw.Expression != nil {
		if h, ok := rw.Expression(rw, old); ok {
			rw.Map(old, h)
			return h
		}
	}
	var h ExpressionHandle
	if arg, ok := rw.Old.Expressions[old].Kind.(ExprFunctionArgument); ok {
		h = rw.Argument(rw.oldArgument(arg.Index))
	} else {
		h = rw.Add(MapOperands(rw.Old.Expressions[old].Kind, rw.Lookup))
	}
	rw.Map(old, h)
	return h
}

// Copy copies an old expression into the new arena without consulting the
// Expression hook for it. Operands are looked up normally.
func (rw *Rewriter) Copy(old ExpressionHandle) ExpressionHandle {
	return rw.Add(MapOperands(rw.Old.Expressions[old].Kind, rw.Lookup))
}

// Add appends an expression to the new arena.
func (rw *Rewriter) Add(kind ExpressionKind) ExpressionHandle {
	h := ExpressionHandle(len(rw.New.Expressions))
	rw.New.Expressions = append(rw.New.Expressions, Expression{Kind: kind})
	if NeedsEmit(kind) {
		if rw.pending == nil {
			start := h
			rw.pending = &start
		}
	} else {
		rw.flushTo(h)
	}
	return h
}

// AddStatement appends a statement to the current block after emitting any
// pending expressions.
func (rw *Rewriter) AddStatement(kind StatementKind) {
	rw.flush()
	*rw.block = append(*rw.block, Statement{Kind: kind})
}

func (rw *Rewriter) flush() {
	rw.flushTo(ExpressionHandle(len(rw.New.Expressions)))
}

func (rw *Rewriter) flushTo(end ExpressionHandle) {
	if rw.pending == nil {
		return
	}
	if *rw.pending < end {
		*rw.block = append(*rw.block, Statement{Kind: StmtEmit{Range: Range{Start: *rw.pending, End: end}}})
	}
	rw.pending = nil
}

// Run rewrites the function and returns the result.
func (rw *Rewriter) Run() *Function {
	rw.block = &rw.New.Body
	for i, lv := range rw.Old.LocalVars {
		if lv.Init != nil {
			h := rw.Lookup(*lv.Init)
			rw.New.LocalVars[i].Init = &h
		}
	}
	if rw.Prologue != nil {
		rw.Prologue(rw)
	}
	rw.flush()
	rw.rewriteInto(&rw.New.Body, rw.Old.Body)
	if rw.Epilogue != nil && !terminates(rw.Old.Body) {
		rw.block = &rw.New.Body
		rw.Epilogue(rw)
		rw.flush()
	}
	return rw.New
}

func terminates(b Block) bool {
	if len(b) == 0 {
		return false
	}
	switch k := b[len(b)-1].Kind.(type) {
	case StmtReturn, StmtKill:
		return true
	case StmtBlock:
		return terminates(k.Block)
	case StmtIf:
		return terminates(k.Accept) && terminates(k.Reject)
	default:
		return false
	}
}

func (rw *Rewriter) rewriteBlock(old Block) Block {
	if old == nil {
		return nil
	}
	out := make(Block, 0, len(old))
	rw.rewriteInto(&out, old)
	return out
}

func (rw *Rewriter) rewriteInto(dst *Block, old Block) {
	outer := rw.block
	rw.block = dst
	for _, stmt := range old {
		rw.rewriteStatement(stmt)
	}
	rw.flush()
	rw.block = outer
}

func (rw *Rewriter) optional(h *ExpressionHandle) *ExpressionHandle {
	if h == nil {
		return nil
	}
	n := rw.Lookup(*h)
	return &n
}

//nolint:gocyclo,cyclop,funlen // one case per statement kind
func (rw *Rewriter) rewriteStatement(stmt Statement) {
	switch k := stmt.Kind.(type) {
	case StmtEmit:
		for h := k.Range.Start; h < k.Range.End; h++ {
			rw.Lookup(h)
		}
		rw.flush()

	case StmtBlock:
		rw.flush()
		rw.AddStatement(StmtBlock{Block: rw.rewriteBlock(k.Block)})

	case StmtIf:
		cond := rw.Lookup(k.Condition)
		rw.flush()
		accept := rw.rewriteBlock(k.Accept)
		reject := rw.rewriteBlock(k.Reject)
		rw.AddStatement(StmtIf{Condition: cond, Accept: accept, Reject: reject})

	case StmtSwitch:
		sel := rw.Lookup(k.Selector)
		rw.flush()
		cases := make([]SwitchCase, len(k.Cases))
		for i, c := range k.Cases {
			cases[i] = SwitchCase{Value: c.Value, Body: rw.rewriteBlock(c.Body), FallThrough: c.FallThrough}
		}
		rw.AddStatement(StmtSwitch{Selector: sel, Cases: cases})

	case StmtLoop:
		rw.flush()
		body := rw.rewriteBlock(k.Body)
		continuing := rw.rewriteBlock(k.Continuing)
		rw.AddStatement(StmtLoop{Body: body, Continuing: continuing, BreakIf: rw.optional(k.BreakIf)})

	case StmtReturn:
		value := rw.optional(k.Value)
		if rw.Return != nil {
			value = rw.Return(rw, value)
		}
		rw.AddStatement(StmtReturn{Value: value})

	case StmtStore:
		ptr := rw.Lookup(k.Pointer)
		rw.AddStatement(StmtStore{Pointer: ptr, Value: rw.Lookup(k.Value)})

	case StmtImageStore:
		rw.AddStatement(StmtImageStore{
			Image:      rw.Lookup(k.Image),
			Coordinate: rw.Lookup(k.Coordinate),
			ArrayIndex: rw.optional(k.ArrayIndex),
			Value:      rw.Lookup(k.Value),
		})

	case StmtCall:
		site := rw.site
		rw.site++
		args := make([]ExpressionHandle, 0, len(k.Arguments))
		for i, a := range k.Arguments {
			if rw.KeepArgument != nil && !rw.KeepArgument(k, i) {
				continue
			}
			args = append(args, rw.Lookup(a))
		}
		if rw.Call != nil {
			args = rw.Call(rw, site, k, args)
		}
		call := StmtCall{Function: k.Function, Arguments: args}
		if k.Result != nil {
			res := rw.Add(ExprCallResult{Function: k.Function})
			rw.Map(*k.Result, res)
			call.Result = &res
		}
		rw.AddStatement(call)

	default:
		// Break, Continue, Kill, Barrier carry no expressions.
		rw.AddStatement(stmt.Kind)
	}
}

// CallSites returns the Call statements of fn in WalkStatements order; the
// slice index is the site ordinal passed to Rewriter.Call.
func CallSites(fn *Function) []StmtCall {
	var sites []StmtCall
	WalkStatements(fn.Body, func(s Statement) {
		if call, ok := s.Kind.(StmtCall); ok {
			sites = append(sites, call)
		}
	})
	return sites
}

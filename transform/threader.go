package transform

import (
	"errors"
	"fmt"

	"github.com/oleiade/lane"

	"github.com/gogpu/raise/ir"
)

// State is the progress of one function through a threading pass.
type State uint8

const (
	NotVisited State = iota
	Queued
	Rewritten
)

// Source says where a function obtains one threaded value.
type Source[K comparable] struct {
	Kind K
	// Param is the index of the function's extra parameter carrying the
	// value, or -1 when the value is read from Global.
	Param  int
	Global ir.GlobalVariableHandle
	// Expr is the expression of the function the value was derived from.
	Expr ir.ExpressionHandle
}

type paramKey[K comparable] struct {
	arg  uint32
	kind K
}

// keyed marks parameters added by RequireKey, which no single argument of
// the function determines.
const keyed = ^uint32(0)

type threadFunc[K comparable] struct {
	state  State
	params []paramKey[K]
	index  map[paramKey[K]]int
	sites  map[int][]Source[K]
	uses   bool
}

// Threader makes values that live in global resources available inside
// functions that only see the resource through a parameter. For every
// (parameter, kind) a function needs, it gains one extra parameter, and
// every call site passes the matching value, read directly when the caller
// sees the resource and forwarded when the caller got it as a parameter too.
//
// A Threader is used for a single Apply: Analyze, then Rewrite.
type Threader[K comparable] struct {
	m     *ir.Module
	order []ir.FunctionHandle
	funcs []threadFunc[K]

	// ParamName names extra parameters; n counts from zero per function.
	ParamName func(n int) string
	// ParamType is the type of every extra parameter.
	ParamType ir.TypeHandle
	// ParamTypeOf, if set, overrides ParamType per parameter.
	ParamTypeOf func(fn ir.FunctionHandle, kind K) ir.TypeHandle

	// CheckGlobal, if set, vets each global-rooted source found at a call
	// site while analyzing fn.
	CheckGlobal func(fn ir.FunctionHandle, src Source[K]) error

	// Forward resolves, at a call in fn, the argument for a parameter the
	// callee gained through RequireKey. It is required when RequireKey is
	// used.
	Forward func(fn ir.FunctionHandle, f *ir.Function, call ir.StmtCall, kind K) (Source[K], error)

	extra []uint32
}

// NewThreader prepares a pass over m. Recursive modules are rejected.
func NewThreader[K comparable](m *ir.Module, paramName func(n int) string, paramType ir.TypeHandle) (*Threader[K], error) {
	cg := ir.BuildCallGraph(m)
	all, err := cg.CalleesFirst()
	if err != nil {
		var rec *ir.RecursionError
		if errors.As(err, &rec) {
			return nil, &Error{Kind: UnsupportedInput, Message: err.Error()}
		}
		return nil, err
	}
	return &Threader[K]{
		m:         m,
		order:     all,
		funcs:     make([]threadFunc[K], len(m.Functions)),
		ParamName: paramName,
		ParamType: paramType,
	}, nil
}

// Order returns every function, callees first. Functions no entry point
// reaches are included so their calls stay consistent with the rewritten
// callees.
func (th *Threader[K]) Order() []ir.FunctionHandle { return th.order }

// State returns the state of fn.
func (th *Threader[K]) State(fn ir.FunctionHandle) State { return th.funcs[fn].state }

// ExtraParams returns the number of parameters fn gains.
func (th *Threader[K]) ExtraParams(fn ir.FunctionHandle) int { return len(th.funcs[fn].params) }

// Require returns the source of kind for the value rooted at root in fn.
// An argument root gives fn an extra parameter the first time (argument,
// kind) is required. ok is false when root is neither a global nor an
// argument.
func (th *Threader[K]) Require(fn ir.FunctionHandle, root ir.ExpressionHandle, kind K, expr ir.ExpressionHandle) (Source[K], bool) {
	f := &th.m.Functions[fn]
	switch k := f.Expressions[root].Kind.(type) {
	case ir.ExprGlobalVariable:
		return Source[K]{Kind: kind, Param: -1, Global: k.Variable, Expr: expr}, true
	case ir.ExprFunctionArgument:
		return th.param(fn, paramKey[K]{arg: k.Index, kind: kind}, expr), true
	default:
		return Source[K]{}, false
	}
}

// RequireKey gives fn an extra parameter carrying kind the first time kind
// is required in fn. Unlike Require, the value is not tied to one argument;
// callers obtain it through Forward.
func (th *Threader[K]) RequireKey(fn ir.FunctionHandle, kind K, expr ir.ExpressionHandle) Source[K] {
	return th.param(fn, paramKey[K]{arg: keyed, kind: kind}, expr)
}

func (th *Threader[K]) param(fn ir.FunctionHandle, key paramKey[K], expr ir.ExpressionHandle) Source[K] {
	tf := &th.funcs[fn]
	i, ok := tf.index[key]
	if !ok {
		if tf.index == nil {
			tf.index = make(map[paramKey[K]]int)
		}
		i = len(tf.params)
		tf.params = append(tf.params, key)
		tf.index[key] = i
		th.queue(fn)
	}
	return Source[K]{Kind: key.kind, Param: i, Expr: expr}
}

// MarkUse records that fn has a use site to rewrite.
func (th *Threader[K]) MarkUse(fn ir.FunctionHandle) {
	th.funcs[fn].uses = true
	th.queue(fn)
}

func (th *Threader[K]) queue(fn ir.FunctionHandle) {
	if th.funcs[fn].state == NotVisited {
		th.funcs[fn].state = Queued
	}
}

// Analyze visits every function callee-first. visit is called
// for each emitted expression in source order; calls to functions that
// gained parameters get their extra arguments resolved in between, in the
// same order.
func (th *Threader[K]) Analyze(visit func(fn ir.FunctionHandle, f *ir.Function, h ir.ExpressionHandle) error) error {
	for _, fn := range th.order {
		f := &th.m.Functions[fn]
		site := 0
		var err error
		ir.WalkEmitted(f, func(h ir.ExpressionHandle) {
			if err == nil {
				err = visit(fn, f, h)
			}
		}, func(s ir.Statement) {
			call, ok := s.Kind.(ir.StmtCall)
			if !ok {
				return
			}
			if err == nil {
				err = th.forward(fn, f, site, call)
			}
			site++
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (th *Threader[K]) forward(fn ir.FunctionHandle, f *ir.Function, site int, call ir.StmtCall) error {
	callee := &th.funcs[call.Function]
	if len(callee.params) == 0 {
		return nil
	}
	sources := make([]Source[K], len(callee.params))
	for i, p := range callee.params {
		if p.arg == keyed {
			if th.Forward == nil {
				return fmt.Errorf("threading %q: keyed parameter without a Forward hook", th.m.Functions[call.Function].Name)
			}
			src, err := th.Forward(fn, f, call, p.kind)
			if err != nil {
				return err
			}
			sources[i] = src
			continue
		}
		if int(p.arg) >= len(call.Arguments) {
			return &Error{Kind: UnsupportedInput, Message: fmt.Sprintf(
				"call to %q passes too few arguments", th.m.Functions[call.Function].Name)}
		}
		arg := call.Arguments[p.arg]
		src, ok := th.Require(fn, f.Root(arg), p.kind, arg)
		if !ok {
			return &Error{Kind: UnsupportedInput, Message: fmt.Sprintf(
				"argument %d of call to %q in %q is not a resource or parameter",
				p.arg, th.m.Functions[call.Function].Name, f.Name)}
		}
		if src.Param < 0 && th.CheckGlobal != nil {
			if err := th.CheckGlobal(fn, src); err != nil {
				return err
			}
		}
		sources[i] = src
	}
	tf := &th.funcs[fn]
	if tf.sites == nil {
		tf.sites = make(map[int][]Source[K])
	}
	tf.sites[site] = sources
	th.queue(fn)
	return nil
}

// Hooks customize Rewrite.
type Hooks[K comparable] struct {
	// Use may replace an old expression of fn, typically a use site
	// recorded during Analyze. Values come from Threader.Value.
	Use func(rw *ir.Rewriter, fn ir.FunctionHandle, old ir.ExpressionHandle) (ir.ExpressionHandle, bool)

	// Materialize reads a global-rooted source in the function being
	// rewritten.
	Materialize func(rw *ir.Rewriter, src Source[K]) ir.ExpressionHandle

	// DropArgument, if set, removes original parameter i of fn from every
	// rewritten function and the matching argument from every rewritten
	// call. Functions declaring or calling such parameters must be queued.
	DropArgument func(fn ir.FunctionHandle, i uint32) bool
}

// Value returns the new-arena expression holding src in the function being
// rewritten by rw.
func (th *Threader[K]) Value(rw *ir.Rewriter, src Source[K], h Hooks[K]) ir.ExpressionHandle {
	if src.Param >= 0 {
		return rw.Argument(th.extra[src.Param])
	}
	return h.Materialize(rw, src)
}

// Rewrite rewrites every queued function of m into out, at most once each.
// out must be a clone of the module the Threader was built for.
func (th *Threader[K]) Rewrite(out *ir.Module, h Hooks[K]) {
	q := lane.NewQueue()
	for _, fn := range th.order {
		if th.funcs[fn].state == Queued {
			q.Enqueue(fn)
		}
	}
	for !q.Empty() {
		fn := q.Dequeue().(ir.FunctionHandle)
		if th.funcs[fn].state == Rewritten {
			continue
		}
		out.Functions[fn] = *th.rewrite(fn, h)
		th.funcs[fn].state = Rewritten
	}
}

func (th *Threader[K]) rewrite(fn ir.FunctionHandle, h Hooks[K]) *ir.Function {
	tf := &th.funcs[fn]
	rw := ir.NewRewriter(th.m, fn)
	if h.DropArgument != nil {
		rw.DropArguments(func(i uint32) bool { return h.DropArgument(fn, i) })
		rw.KeepArgument = func(call ir.StmtCall, i int) bool { return !h.DropArgument(call.Function, uint32(i)) }
	}
	taken := make(map[string]bool, len(rw.New.Arguments))
	for _, a := range rw.New.Arguments {
		taken[a.Name] = true
	}
	th.extra = th.extra[:0]
	n := 0
	for _, p := range tf.params {
		name := th.ParamName(n)
		for taken[name] {
			n++
			name = th.ParamName(n)
		}
		taken[name] = true
		n++
		ty := th.ParamType
		if th.ParamTypeOf != nil {
			ty = th.ParamTypeOf(fn, p.kind)
		}
		th.extra = append(th.extra, rw.AddArgument(name, ty))
	}
	if h.Use != nil {
		rw.Expression = func(rw *ir.Rewriter, old ir.ExpressionHandle) (ir.ExpressionHandle, bool) {
			return h.Use(rw, fn, old)
		}
	}
	rw.Call = func(rw *ir.Rewriter, site int, _ ir.StmtCall, args []ir.ExpressionHandle) []ir.ExpressionHandle {
		for _, src := range tf.sites[site] {
			args = append(args, th.Value(rw, src, h))
		}
		return args
	}
	return rw.Run()
}

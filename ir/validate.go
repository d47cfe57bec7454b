package ir

import (
	"errors"
	"fmt"

	"github.com/gogpu/raise/binding"
)

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Message string

	// Function names the function the problem is in, if any.
	Function string
	// Expression is set for problems with one expression.
	Expression *ExpressionHandle
	// Statement is the index of the offending statement within its block,
	// or -1.
	Statement int
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	switch {
	case e.Function == "":
		return e.Message
	case e.Expression != nil:
		return fmt.Sprintf("in function %s, expression %d: %s", e.Function, *e.Expression, e.Message)
	case e.Statement >= 0:
		return fmt.Sprintf("in function %s, statement %d: %s", e.Function, e.Statement, e.Message)
	default:
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
}

// ValidateOptions relaxes individual checks.
type ValidateOptions struct {
	// AllowBindingAliases accepts several globals sharing a binding point.
	// Aliasing is legal when no entry point uses more than one of them.
	AllowBindingAliases bool
}

// Validate checks that every handle in m is in range and that the module
// is well formed. It returns nil when no problem is found; the error is
// non-nil only when m itself is nil.
func Validate(m *Module) ([]ValidationError, error) {
	return ValidateWith(m, ValidateOptions{})
}

// ValidateWith is Validate with relaxed checks.
func ValidateWith(m *Module, opts ValidateOptions) ([]ValidationError, error) {
	if m == nil {
		return nil, errors.New("module is nil")
	}
	v := &validator{m: m, opts: opts}
	v.types()
	v.constants()
	v.globals()
	v.functions()
	v.entryPoints()
	return v.errs, nil
}

type validator struct {
	m    *Module
	opts ValidateOptions
	errs []ValidationError
}

func (v *validator) failf(format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Message: fmt.Sprintf(format, args...), Statement: -1})
}

func (v *validator) hasType(h TypeHandle) bool { return int(h) < len(v.m.Types) }

func (v *validator) hasFunction(h FunctionHandle) bool { return int(h) < len(v.m.Functions) }

func validSize(n VectorSize) bool { return n >= Vec2 && n <= Vec4 }

func validWidth(w uint8) bool { return w == 1 || w == 2 || w == 4 || w == 8 }

//nolint:gocyclo,cyclop // one case per type kind
func (v *validator) types() {
	for i, ty := range v.m.Types {
		h := TypeHandle(i)
		switch inner := ty.Inner.(type) {
		case nil:
			v.failf("type %d has no definition", h)
		case ScalarType:
			if !validWidth(inner.Width) {
				v.failf("type %d: scalar width %d is not 1, 2, 4 or 8", h, inner.Width)
			}
		case VectorType:
			if !validSize(inner.Size) {
				v.failf("type %d: vector size %d is not 2, 3 or 4", h, inner.Size)
			}
			if !validWidth(inner.Scalar.Width) {
				v.failf("type %d: scalar width %d is not 1, 2, 4 or 8", h, inner.Scalar.Width)
			}
		case MatrixType:
			if !validSize(inner.Columns) || !validSize(inner.Rows) {
				v.failf("type %d: matrix is %dx%d, both sides must be 2, 3 or 4", h, inner.Columns, inner.Rows)
			}
			if inner.Scalar.Kind != ScalarFloat {
				v.failf("type %d: matrix of %v, want float", h, inner.Scalar.Kind)
			}
		case ArrayType:
			v.typeRef(h, "array element", inner.Base)
		case PointerType:
			v.typeRef(h, "pointer base", inner.Base)
		case StructType:
			seen := make(map[string]bool, len(inner.Members))
			for j, mem := range inner.Members {
				switch {
				case mem.Name == "":
					v.failf("type %d: member %d has no name", h, j)
				case seen[mem.Name]:
					v.failf("type %d: duplicate member %q", h, mem.Name)
				}
				seen[mem.Name] = true
				v.typeRef(h, fmt.Sprintf("member %q", mem.Name), mem.Type)
			}
		}
	}
}

// typeRef checks a reference from type h to ref.
func (v *validator) typeRef(h TypeHandle, what string, ref TypeHandle) {
	switch {
	case !v.hasType(ref):
		v.failf("type %d: %s type %d does not exist", h, what, ref)
	case ref == h:
		v.failf("type %d: %s refers to the type itself", h, what)
	}
}

func (v *validator) constants() {
	for i, c := range v.m.Constants {
		if !v.hasType(c.Type) {
			v.failf("constant %d (%s): type %d does not exist", i, c.Name, c.Type)
		}
	}
}

func (v *validator) globals() {
	names := make(map[string]bool)
	bound := make(map[binding.Point]string)
	for i, gv := range v.m.GlobalVariables {
		if gv.Name != "" {
			if names[gv.Name] {
				v.failf("duplicate global variable name %q", gv.Name)
			}
			names[gv.Name] = true
		}
		if !v.hasType(gv.Type) {
			v.failf("global variable %d (%s): type %d does not exist", i, gv.Name, gv.Type)
		}
		if gv.Init != nil && int(*gv.Init) >= len(v.m.Constants) {
			v.failf("global variable %q: init constant %d does not exist", gv.Name, *gv.Init)
		}

		if gv.Binding != nil {
			if other, taken := bound[*gv.Binding]; taken && !v.opts.AllowBindingAliases {
				v.failf("global variable %q: binding %s is already used by %q", gv.Name, *gv.Binding, other)
			} else if !taken {
				bound[*gv.Binding] = gv.Name
			}
		}

		// Handle variables may be unbound: combined GLSL samplers are
		// bound by name.
		if (gv.Space == SpaceUniform || gv.Space == SpaceStorage) && gv.Binding == nil {
			v.failf("global variable %q: %s variable has no binding", gv.Name, gv.Space)
		}
		if gv.Space == SpaceStorage && !gv.Access.Valid() {
			v.failf("global variable %q: storage buffer has invalid access mode %d", gv.Name, gv.Access)
		}
	}
}

func (v *validator) functions() {
	names := make(map[string]bool)
	for i := range v.m.Functions {
		fn := &v.m.Functions[i]
		if fn.Name != "" {
			if names[fn.Name] {
				v.failf("duplicate function name %q", fn.Name)
			}
			names[fn.Name] = true
		}
		s := &scope{v: v, fn: fn}
		s.signature()
		for h := range fn.Expressions {
			s.expression(ExpressionHandle(h))
		}
		s.block(fn.Body)
	}
}

// scope validates the contents of one function.
type scope struct {
	v          *validator
	fn         *Function
	loops      int
	continuing bool
}

func (s *scope) add(e ValidationError, format string, args ...any) {
	e.Message = fmt.Sprintf(format, args...)
	e.Function = s.fn.Name
	s.v.errs = append(s.v.errs, e)
}

func (s *scope) failf(format string, args ...any) {
	s.add(ValidationError{Statement: -1}, format, args...)
}

func (s *scope) exprFailf(h ExpressionHandle, format string, args ...any) {
	s.add(ValidationError{Expression: &h, Statement: -1}, format, args...)
}

func (s *scope) stmtFailf(i int, format string, args ...any) {
	s.add(ValidationError{Statement: i}, format, args...)
}

func (s *scope) has(h ExpressionHandle) bool { return int(h) < len(s.fn.Expressions) }

func (s *scope) signature() {
	for i, arg := range s.fn.Arguments {
		if !s.v.hasType(arg.Type) {
			s.failf("argument %d (%s): type %d does not exist", i, arg.Name, arg.Type)
		}
	}
	if s.fn.Result != nil && !s.v.hasType(s.fn.Result.Type) {
		s.failf("result type %d does not exist", s.fn.Result.Type)
	}
	for i, lv := range s.fn.LocalVars {
		if !s.v.hasType(lv.Type) {
			s.failf("local variable %d (%s): type %d does not exist", i, lv.Name, lv.Type)
		}
		if lv.Init != nil && !s.has(*lv.Init) {
			s.failf("local variable %q: init expression %d does not exist", lv.Name, *lv.Init)
		}
	}
}

//nolint:gocyclo,cyclop // one case per expression kind with non-operand references
func (s *scope) expression(h ExpressionHandle) {
	kind := s.fn.Expressions[h].Kind
	if kind == nil {
		s.exprFailf(h, "expression has no kind")
		return
	}
	for i, op := range Operands(kind) {
		if !s.has(op) {
			s.exprFailf(h, "operand %d: expression %d does not exist", i, op)
		}
	}

	switch k := kind.(type) {
	case ExprConstant:
		if int(k.Constant) >= len(s.v.m.Constants) {
			s.exprFailf(h, "constant %d does not exist", k.Constant)
		}
	case ExprZeroValue:
		if !s.v.hasType(k.Type) {
			s.exprFailf(h, "type %d does not exist", k.Type)
		}
	case ExprCompose:
		if !s.v.hasType(k.Type) {
			s.exprFailf(h, "type %d does not exist", k.Type)
		}
	case ExprSplat:
		if !validSize(k.Size) {
			s.exprFailf(h, "splat size %d is not 2, 3 or 4", k.Size)
		}
	case ExprSwizzle:
		if !validSize(k.Size) {
			s.exprFailf(h, "swizzle size %d is not 2, 3 or 4", k.Size)
			break
		}
		for i := range int(k.Size) {
			if k.Pattern[i] > SwizzleW {
				s.exprFailf(h, "swizzle component %d is %d", i, k.Pattern[i])
			}
		}
	case ExprFunctionArgument:
		if int(k.Index) >= len(s.fn.Arguments) {
			s.exprFailf(h, "argument %d out of range, function has %d", k.Index, len(s.fn.Arguments))
		}
	case ExprGlobalVariable:
		if int(k.Variable) >= len(s.v.m.GlobalVariables) {
			s.exprFailf(h, "global variable %d does not exist", k.Variable)
		}
	case ExprLocalVariable:
		if int(k.Variable) >= len(s.fn.LocalVars) {
			s.exprFailf(h, "local variable %d out of range, function has %d", k.Variable, len(s.fn.LocalVars))
		}
	case ExprCallResult:
		if !s.v.hasFunction(k.Function) {
			s.exprFailf(h, "function %d does not exist", k.Function)
		}
	}
}

func (s *scope) block(b Block) {
	for i := range b {
		s.statement(i, b[i].Kind)
	}
}

// operand checks a statement's reference to an expression.
func (s *scope) operand(i int, what string, h ExpressionHandle) {
	if !s.has(h) {
		s.stmtFailf(i, "%s expression %d does not exist", what, h)
	}
}

func (s *scope) optional(i int, what string, h *ExpressionHandle) {
	if h != nil {
		s.operand(i, what, *h)
	}
}

//nolint:gocyclo,cyclop,funlen // one case per statement kind
func (s *scope) statement(i int, kind StatementKind) {
	switch k := kind.(type) {
	case nil:
		s.stmtFailf(i, "statement has no kind")
	case StmtEmit:
		s.emit(i, k.Range)
	case StmtBlock:
		s.block(k.Block)
	case StmtIf:
		s.operand(i, "condition", k.Condition)
		s.block(k.Accept)
		s.block(k.Reject)
	case StmtSwitch:
		s.operand(i, "selector", k.Selector)
		defaults := 0
		for _, c := range k.Cases {
			if _, ok := c.Value.(SwitchValueDefault); ok {
				defaults++
			}
			s.block(c.Body)
		}
		switch {
		case defaults == 0:
			s.stmtFailf(i, "switch missing default case")
		case defaults > 1:
			s.stmtFailf(i, "switch has %d default cases", defaults)
		}
	case StmtLoop:
		s.loops++
		s.block(k.Body)
		outer := s.continuing
		s.continuing = true
		s.block(k.Continuing)
		s.continuing = outer
		s.optional(i, "break-if", k.BreakIf)
		s.loops--
	case StmtBreak:
		s.jump(i, "break")
	case StmtContinue:
		s.jump(i, "continue")
	case StmtReturn:
		if s.continuing {
			s.stmtFailf(i, "return in continuing block")
		}
		s.optional(i, "return value", k.Value)
	case StmtKill:
		if s.continuing {
			s.stmtFailf(i, "kill in continuing block")
		}
	case StmtStore:
		s.operand(i, "pointer", k.Pointer)
		s.operand(i, "value", k.Value)
	case StmtImageStore:
		s.operand(i, "image", k.Image)
		s.operand(i, "coordinate", k.Coordinate)
		s.optional(i, "array index", k.ArrayIndex)
		s.operand(i, "value", k.Value)
	case StmtCall:
		for j, arg := range k.Arguments {
			s.operand(i, fmt.Sprintf("argument %d", j), arg)
		}
		s.optional(i, "result", k.Result)
		if !s.v.hasFunction(k.Function) {
			s.stmtFailf(i, "function %d does not exist", k.Function)
			break
		}
		callee := &s.v.m.Functions[k.Function]
		if len(k.Arguments) != len(callee.Arguments) {
			s.stmtFailf(i, "call to %q passes %d arguments, want %d",
				callee.Name, len(k.Arguments), len(callee.Arguments))
		}
		if (k.Result != nil) != (callee.Result != nil) {
			s.stmtFailf(i, "call to %q: result presence does not match the callee", callee.Name)
		}
	}
}

func (s *scope) emit(i int, r Range) {
	n := ExpressionHandle(len(s.fn.Expressions))
	switch {
	case r.Start >= r.End:
		s.stmtFailf(i, "emit range [%d, %d) is empty", r.Start, r.End)
		return
	case r.End > n:
		s.stmtFailf(i, "emit range [%d, %d) exceeds %d expressions", r.Start, r.End, n)
		return
	}
	for h := r.Start; h < r.End; h++ {
		if k := s.fn.Expressions[h].Kind; k != nil && !NeedsEmit(k) {
			s.stmtFailf(i, "expression %d (%T) must not be emitted", h, k)
		}
	}
}

// jump checks a break or continue.
func (s *scope) jump(i int, what string) {
	switch {
	case s.loops == 0:
		s.stmtFailf(i, "%s outside of loop", what)
	case s.continuing:
		s.stmtFailf(i, "%s in continuing block", what)
	}
}

func (v *validator) entryPoints() {
	names := make(map[string]bool)
	for i, ep := range v.m.EntryPoints {
		switch {
		case ep.Name == "":
			v.failf("entry point %d has no name", i)
		case names[ep.Name]:
			v.failf("duplicate entry point name %q", ep.Name)
		}
		names[ep.Name] = true

		if !v.hasFunction(ep.Function) {
			v.failf("entry point %q: function %d does not exist", ep.Name, ep.Function)
			continue
		}
		fn := &v.m.Functions[ep.Function]
		switch ep.Stage {
		case StageVertex:
			if fn.Result == nil || !v.returnsBuiltin(fn.Result, BuiltinPosition) {
				v.failf("entry point %q (@vertex): must return @builtin(position)", ep.Name)
			}
		case StageCompute:
			if ep.Workgroup[0] == 0 || ep.Workgroup[1] == 0 || ep.Workgroup[2] == 0 {
				v.failf("entry point %q (@compute): workgroup size must be non-zero", ep.Name)
			}
		}
	}
}

// returnsBuiltin reports whether r is bound to b directly or through a
// struct member.
func (v *validator) returnsBuiltin(r *FunctionResult, b BuiltinValue) bool {
	is := func(bind *Binding) bool {
		if bind == nil {
			return false
		}
		bb, ok := (*bind).(BuiltinBinding)
		return ok && bb.Builtin == b
	}
	if is(r.Binding) {
		return true
	}
	if !v.hasType(r.Type) {
		return false
	}
	st, ok := v.m.Types[r.Type].Inner.(StructType)
	if !ok {
		return false
	}
	for _, mem := range st.Members {
		if is(mem.Binding) {
			return true
		}
	}
	return false
}

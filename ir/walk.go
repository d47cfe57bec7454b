package ir

// Operands returns the expressions read by kind, in evaluation order.
func Operands(kind ExpressionKind) []ExpressionHandle {
	var ops []ExpressionHandle
	MapOperands(kind, func(h ExpressionHandle) ExpressionHandle {
		ops = append(ops, h)
		return h
	})
	return ops
}

// MapOperands returns a copy of kind with every operand replaced by f(operand).
// Operands are visited in evaluation order. Slices and optional operands
// are copied, never shared with kind.
//
//nolint:gocyclo,cyclop,funlen // one case per expression kind
func MapOperands(kind ExpressionKind, f func(ExpressionHandle) ExpressionHandle) ExpressionKind {
	opt := func(p *ExpressionHandle) *ExpressionHandle {
		if p == nil {
			return nil
		}
		h := f(*p)
		return &h
	}

	switch k := kind.(type) {
	case ExprCompose:
		comps := make([]ExpressionHandle, len(k.Components))
		for i, c := range k.Components {
			comps[i] = f(c)
		}
		return ExprCompose{Type: k.Type, Components: comps}
	case ExprAccess:
		return ExprAccess{Base: f(k.Base), Index: f(k.Index)}
	case ExprAccessIndex:
		return ExprAccessIndex{Base: f(k.Base), Index: k.Index}
	case ExprSplat:
		return ExprSplat{Size: k.Size, Value: f(k.Value)}
	case ExprSwizzle:
		return ExprSwizzle{Size: k.Size, Vector: f(k.Vector), Pattern: k.Pattern}
	case ExprLoad:
		return ExprLoad{Pointer: f(k.Pointer)}
	case ExprImageSample:
		out := ExprImageSample{
			Image:      f(k.Image),
			Sampler:    f(k.Sampler),
			Coordinate: f(k.Coordinate),
			ArrayIndex: opt(k.ArrayIndex),
			Level:      k.Level,
		}
		switch lvl := k.Level.(type) {
		case SampleLevelExact:
			out.Level = SampleLevelExact{Level: f(lvl.Level)}
		case SampleLevelBias:
			out.Level = SampleLevelBias{Bias: f(lvl.Bias)}
		}
		out.DepthRef = opt(k.DepthRef)
		return out
	case ExprImageLoad:
		return ExprImageLoad{
			Image:      f(k.Image),
			Coordinate: f(k.Coordinate),
			ArrayIndex: opt(k.ArrayIndex),
			Sample:     opt(k.Sample),
			Level:      opt(k.Level),
		}
	case ExprImageQuery:
		out := ExprImageQuery{Image: f(k.Image), Query: k.Query}
		if size, ok := k.Query.(ImageQuerySize); ok {
			out.Query = ImageQuerySize{Level: opt(size.Level)}
		}
		return out
	case ExprUnary:
		return ExprUnary{Op: k.Op, Expr: f(k.Expr)}
	case ExprBinary:
		return ExprBinary{Op: k.Op, Left: f(k.Left), Right: f(k.Right)}
	case ExprSelect:
		return ExprSelect{Condition: f(k.Condition), Accept: f(k.Accept), Reject: f(k.Reject)}
	case ExprMath:
		return ExprMath{Fun: k.Fun, Arg: f(k.Arg), Arg1: opt(k.Arg1), Arg2: opt(k.Arg2)}
	case ExprAs:
		out := ExprAs{Expr: f(k.Expr), Kind: k.Kind}
		if k.Convert != nil {
			w := *k.Convert
			out.Convert = &w
		}
		return out
	case ExprArrayLength:
		return ExprArrayLength{Array: f(k.Array)}
	default:
		// Literal, ExprConstant, ExprZeroValue, ExprFunctionArgument,
		// ExprGlobalVariable, ExprLocalVariable, ExprCallResult.
		return kind
	}
}

// WalkStatements calls visit for every statement of block in source order,
// descending into nested blocks after visiting their parent.
func WalkStatements(block Block, visit func(Statement)) {
	for _, stmt := range block {
		visit(stmt)
		switch k := stmt.Kind.(type) {
		case StmtBlock:
			WalkStatements(k.Block, visit)
		case StmtIf:
			WalkStatements(k.Accept, visit)
			WalkStatements(k.Reject, visit)
		case StmtSwitch:
			for _, c := range k.Cases {
				WalkStatements(c.Body, visit)
			}
		case StmtLoop:
			WalkStatements(k.Body, visit)
			WalkStatements(k.Continuing, visit)
		}
	}
}

// WalkEmitted calls visit for every emitted expression handle and every
// statement of fn, in source order. Expressions are reported when their
// Emit statement is reached.
func WalkEmitted(fn *Function, expr func(ExpressionHandle), stmt func(Statement)) {
	WalkStatements(fn.Body, func(s Statement) {
		if emit, ok := s.Kind.(StmtEmit); ok {
			if expr != nil {
				for h := emit.Range.Start; h < emit.Range.End; h++ {
					expr(h)
				}
			}
			return
		}
		if stmt != nil {
			stmt(s)
		}
	})
}

// Root follows access chains and loads from h back to the value they
// start from. It returns the handle of the root expression.
func (fn *Function) Root(h ExpressionHandle) ExpressionHandle {
	for int(h) < len(fn.Expressions) {
		switch k := fn.Expressions[h].Kind.(type) {
		case ExprAccessIndex:
			h = k.Base
		case ExprAccess:
			h = k.Base
		case ExprLoad:
			h = k.Pointer
		default:
			return h
		}
	}
	return h
}

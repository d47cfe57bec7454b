package ir

import "fmt"

// TypeResolution is the type of an expression. It either references a type
// in the module arena (Handle) or is an inline type (Value).
type TypeResolution struct {
	Handle *TypeHandle
	Value  TypeInner
}

// Inner returns the resolved type body.
func (r TypeResolution) Inner(m *Module) TypeInner {
	if r.Handle != nil {
		return m.Types[*r.Handle].Inner
	}
	return r.Value
}

func handleOf(h TypeHandle) TypeResolution {
	return TypeResolution{Handle: &h}
}

// ResolveExpressionType resolves the type of an expression in fn.
//
// References to globals outside the handle space and to locals resolve to
// pointers; Load strips the pointer again.
//
//nolint:gocyclo,cyclop,funlen // one case per expression kind
func ResolveExpressionType(m *Module, fn *Function, h ExpressionHandle) (TypeResolution, error) {
	if int(h) >= len(fn.Expressions) {
		return TypeResolution{}, fmt.Errorf("expression handle %d out of range (max %d)", h, len(fn.Expressions))
	}

	switch k := fn.Expressions[h].Kind.(type) {
	case Literal:
		return resolveLiteral(k)
	case ExprConstant:
		if int(k.Constant) >= len(m.Constants) {
			return TypeResolution{}, fmt.Errorf("constant %d out of range", k.Constant)
		}
		return handleOf(m.Constants[k.Constant].Type), nil
	case ExprZeroValue:
		return handleOf(k.Type), nil
	case ExprCompose:
		return handleOf(k.Type), nil
	case ExprAccess:
		return resolveElement(m, fn, k.Base, nil)
	case ExprAccessIndex:
		index := k.Index
		return resolveElement(m, fn, k.Base, &index)
	case ExprSplat:
		v, err := resolveScalar(m, fn, k.Value)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("splat value: %w", err)
		}
		return TypeResolution{Value: VectorType{Size: k.Size, Scalar: v}}, nil
	case ExprSwizzle:
		base, err := ResolveExpressionType(m, fn, k.Vector)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("swizzle vector: %w", err)
		}
		vec, ok := base.Inner(m).(VectorType)
		if !ok {
			return TypeResolution{}, fmt.Errorf("swizzle base must be vector, got %T", base.Inner(m))
		}
		return TypeResolution{Value: VectorType{Size: k.Size, Scalar: vec.Scalar}}, nil
	case ExprFunctionArgument:
		if int(k.Index) >= len(fn.Arguments) {
			return TypeResolution{}, fmt.Errorf("function argument index %d out of range", k.Index)
		}
		return handleOf(fn.Arguments[k.Index].Type), nil
	case ExprGlobalVariable:
		if int(k.Variable) >= len(m.GlobalVariables) {
			return TypeResolution{}, fmt.Errorf("global variable %d out of range", k.Variable)
		}
		gv := m.GlobalVariables[k.Variable]
		if gv.Space == SpaceHandle {
			return handleOf(gv.Type), nil
		}
		return TypeResolution{Value: PointerType{Base: gv.Type, Space: gv.Space}}, nil
	case ExprLocalVariable:
		if int(k.Variable) >= len(fn.LocalVars) {
			return TypeResolution{}, fmt.Errorf("local variable %d out of range", k.Variable)
		}
		return TypeResolution{Value: PointerType{Base: fn.LocalVars[k.Variable].Type, Space: SpaceFunction}}, nil
	case ExprLoad:
		ptr, err := ResolveExpressionType(m, fn, k.Pointer)
		if err != nil {
			return TypeResolution{}, fmt.Errorf("load pointer: %w", err)
		}
		p, ok := ptr.Inner(m).(PointerType)
		if !ok {
			return TypeResolution{}, fmt.Errorf("load requires pointer type, got %T", ptr.Inner(m))
		}
		return handleOf(p.Base), nil
	case ExprImageSample:
		img, err := resolveImage(m, fn, k.Image)
		if err != nil {
			return TypeResolution{}, err
		}
		if img.Class == ImageClassDepth {
			return TypeResolution{Value: F32}, nil
		}
		return TypeResolution{Value: VectorType{Size: Vec4, Scalar: F32}}, nil
	case ExprImageLoad:
		img, err := resolveImage(m, fn, k.Image)
		if err != nil {
			return TypeResolution{}, err
		}
		return TypeResolution{Value: texelType(img)}, nil
	case ExprImageQuery:
		return resolveQuery(m, fn, k)
	case ExprUnary:
		return ResolveExpressionType(m, fn, k.Expr)
	case ExprBinary:
		return resolveBinary(m, fn, k)
	case ExprSelect:
		return ResolveExpressionType(m, fn, k.Accept)
	case ExprMath:
		return resolveMath(m, fn, k)
	case ExprAs:
		return resolveAs(m, fn, k)
	case ExprCallResult:
		if int(k.Function) >= len(m.Functions) {
			return TypeResolution{}, fmt.Errorf("function %d out of range", k.Function)
		}
		result := m.Functions[k.Function].Result
		if result == nil {
			return TypeResolution{}, fmt.Errorf("function %q has no return type", m.Functions[k.Function].Name)
		}
		return handleOf(result.Type), nil
	case ExprArrayLength:
		return TypeResolution{Value: U32}, nil
	default:
		return TypeResolution{}, fmt.Errorf("unsupported expression kind: %T", k)
	}
}

func resolveLiteral(lit Literal) (TypeResolution, error) {
	switch v := lit.Value.(type) {
	case LiteralF32:
		return TypeResolution{Value: F32}, nil
	case LiteralU32:
		return TypeResolution{Value: U32}, nil
	case LiteralI32:
		return TypeResolution{Value: I32}, nil
	case LiteralBool:
		return TypeResolution{Value: Bool}, nil
	default:
		return TypeResolution{}, fmt.Errorf("unknown literal type: %T", v)
	}
}

// resolveElement resolves Access (index == nil) and AccessIndex. Through a
// pointer the result is a pointer to the element, which must be a module
// type.
func resolveElement(m *Module, fn *Function, base ExpressionHandle, index *uint32) (TypeResolution, error) {
	res, err := ResolveExpressionType(m, fn, base)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("access base: %w", err)
	}
	inner := res.Inner(m)
	ptr, isPtr := inner.(PointerType)
	if isPtr {
		inner = m.Types[ptr.Base].Inner
	}

	var elem TypeResolution
	switch t := inner.(type) {
	case ArrayType:
		elem = handleOf(t.Base)
	case VectorType:
		elem = TypeResolution{Value: t.Scalar}
	case MatrixType:
		elem = TypeResolution{Value: VectorType{Size: t.Rows, Scalar: t.Scalar}}
	case StructType:
		if index == nil {
			return TypeResolution{}, fmt.Errorf("struct member access needs a constant index")
		}
		if int(*index) >= len(t.Members) {
			return TypeResolution{}, fmt.Errorf("struct member index %d out of range", *index)
		}
		elem = handleOf(t.Members[*index].Type)
	default:
		return TypeResolution{}, fmt.Errorf("cannot index into type %T", t)
	}

	if !isPtr {
		return elem, nil
	}
	if elem.Handle == nil {
		return TypeResolution{}, fmt.Errorf("pointer to %T component has no module type", elem.Value)
	}
	return TypeResolution{Value: PointerType{Base: *elem.Handle, Space: ptr.Space}}, nil
}

func resolveScalar(m *Module, fn *Function, h ExpressionHandle) (ScalarType, error) {
	res, err := ResolveExpressionType(m, fn, h)
	if err != nil {
		return ScalarType{}, err
	}
	s, ok := res.Inner(m).(ScalarType)
	if !ok {
		return ScalarType{}, fmt.Errorf("expected scalar, got %T", res.Inner(m))
	}
	return s, nil
}

func resolveImage(m *Module, fn *Function, h ExpressionHandle) (ImageType, error) {
	res, err := ResolveExpressionType(m, fn, h)
	if err != nil {
		return ImageType{}, fmt.Errorf("image operand: %w", err)
	}
	img, ok := res.Inner(m).(ImageType)
	if !ok {
		return ImageType{}, fmt.Errorf("expected image type, got %T", res.Inner(m))
	}
	return img, nil
}

// texelType is the value type of a texel loaded from img.
func texelType(img ImageType) TypeInner {
	switch {
	case img.Class == ImageClassDepth:
		return F32
	case img.Format == StorageFormatR32Uint:
		return VectorType{Size: Vec4, Scalar: U32}
	case img.Format == StorageFormatR32Sint:
		return VectorType{Size: Vec4, Scalar: I32}
	default:
		return VectorType{Size: Vec4, Scalar: F32}
	}
}

func resolveQuery(m *Module, fn *Function, q ExprImageQuery) (TypeResolution, error) {
	if _, ok := q.Query.(ImageQuerySize); !ok {
		return TypeResolution{Value: U32}, nil
	}
	img, err := resolveImage(m, fn, q.Image)
	if err != nil {
		return TypeResolution{}, err
	}
	switch img.Dim {
	case Dim1D:
		return TypeResolution{Value: U32}, nil
	case Dim3D:
		return TypeResolution{Value: VectorType{Size: Vec3, Scalar: U32}}, nil
	default:
		return TypeResolution{Value: VectorType{Size: Vec2, Scalar: U32}}, nil
	}
}

func resolveBinary(m *Module, fn *Function, b ExprBinary) (TypeResolution, error) {
	left, err := ResolveExpressionType(m, fn, b.Left)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("binary left: %w", err)
	}
	switch b.Op {
	case BinaryEqual, BinaryNotEqual, BinaryLess, BinaryLessEqual, BinaryGreater, BinaryGreaterEqual:
		if vec, ok := left.Inner(m).(VectorType); ok {
			return TypeResolution{Value: VectorType{Size: vec.Size, Scalar: Bool}}, nil
		}
		return TypeResolution{Value: Bool}, nil
	case BinaryLogicalAnd, BinaryLogicalOr:
		return TypeResolution{Value: Bool}, nil
	}

	right, err := ResolveExpressionType(m, fn, b.Right)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("binary right: %w", err)
	}
	li, ri := left.Inner(m), right.Inner(m)
	_, leftScalar := li.(ScalarType)
	switch r := ri.(type) {
	case VectorType:
		if leftScalar {
			return right, nil
		}
		if lm, ok := li.(MatrixType); ok && b.Op == BinaryMultiply {
			return TypeResolution{Value: VectorType{Size: lm.Rows, Scalar: lm.Scalar}}, nil
		}
	case MatrixType:
		if leftScalar {
			return right, nil
		}
		if _, ok := li.(VectorType); ok && b.Op == BinaryMultiply {
			return TypeResolution{Value: VectorType{Size: r.Columns, Scalar: r.Scalar}}, nil
		}
	}
	return left, nil
}

func resolveMath(m *Module, fn *Function, e ExprMath) (TypeResolution, error) {
	arg, err := ResolveExpressionType(m, fn, e.Arg)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("math argument: %w", err)
	}
	switch e.Fun {
	case MathDot:
		if vec, ok := arg.Inner(m).(VectorType); ok {
			return TypeResolution{Value: vec.Scalar}, nil
		}
	case MathLength:
		if vec, ok := arg.Inner(m).(VectorType); ok {
			return TypeResolution{Value: vec.Scalar}, nil
		}
	}
	return arg, nil
}

func resolveAs(m *Module, fn *Function, e ExprAs) (TypeResolution, error) {
	res, err := ResolveExpressionType(m, fn, e.Expr)
	if err != nil {
		return TypeResolution{}, fmt.Errorf("as expr: %w", err)
	}
	width := uint8(4)
	if e.Convert != nil {
		width = *e.Convert
	}
	target := ScalarType{Kind: e.Kind, Width: width}
	switch t := res.Inner(m).(type) {
	case VectorType:
		if e.Convert == nil {
			target.Width = t.Scalar.Width
		}
		return TypeResolution{Value: VectorType{Size: t.Size, Scalar: target}}, nil
	case ScalarType:
		if e.Convert == nil {
			target.Width = t.Width
		}
		return TypeResolution{Value: target}, nil
	default:
		return TypeResolution{}, fmt.Errorf("cannot convert %T", t)
	}
}

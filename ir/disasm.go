package ir

import (
	"fmt"
	"strings"
)

// Disassemble renders m as text. Expressions are listed per function as
// "%N = ..." followed by the statement tree; it is meant for diagnostics and
// test failure output, not as input to any parser.
func Disassemble(m *Module) string {
	var sb strings.Builder
	d := disasm{m: m, sb: &sb}
	for i, t := range m.Types {
		fmt.Fprintf(&sb, "type %d %s = %s\n", i, t.Name, d.typeInner(t.Inner))
	}
	for i, gv := range m.GlobalVariables {
		fmt.Fprintf(&sb, "global %d %s%s: %s\n", i, d.resource(gv), gv.Name, d.typeName(gv.Type))
	}
	for i := range m.Functions {
		d.function(FunctionHandle(i))
	}
	for _, ep := range m.EntryPoints {
		fmt.Fprintf(&sb, "@%s entry %s = fn %d\n", ep.Stage, ep.Name, ep.Function)
	}
	return sb.String()
}

type disasm struct {
	m  *Module
	sb *strings.Builder
}

func (d *disasm) typeName(t TypeHandle) string {
	if int(t) < len(d.m.Types) && d.m.Types[t].Name != "" {
		return d.m.Types[t].Name
	}
	return fmt.Sprintf("type%d", t)
}

func scalarName(s ScalarType) string {
	switch s.Kind {
	case ScalarSint:
		return fmt.Sprintf("i%d", s.Width*8)
	case ScalarUint:
		return fmt.Sprintf("u%d", s.Width*8)
	case ScalarFloat:
		return fmt.Sprintf("f%d", s.Width*8)
	default:
		return "bool"
	}
}

func (d *disasm) typeInner(inner TypeInner) string {
	switch t := inner.(type) {
	case ScalarType:
		return scalarName(t)
	case VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	case MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, scalarName(t.Scalar))
	case ArrayType:
		if t.Size.Constant == nil {
			return fmt.Sprintf("array<%s>, stride %d", d.typeName(t.Base), t.Stride)
		}
		return fmt.Sprintf("array<%s, %d>, stride %d", d.typeName(t.Base), *t.Size.Constant, t.Stride)
	case StructType:
		parts := make([]string, len(t.Members))
		for i, mem := range t.Members {
			parts[i] = fmt.Sprintf("@offset(%d) %s: %s", mem.Offset, mem.Name, d.typeName(mem.Type))
		}
		return fmt.Sprintf("struct { %s } span %d", strings.Join(parts, ", "), t.Span)
	case PointerType:
		return fmt.Sprintf("ptr<%s, %s>", t.Space, d.typeName(t.Base))
	case AtomicType:
		return fmt.Sprintf("atomic<%s>", scalarName(t.Scalar))
	case SamplerType:
		if t.Comparison {
			return "sampler_comparison"
		}
		return "sampler"
	case ImageType:
		return imageName(t)
	default:
		return fmt.Sprintf("%T", inner)
	}
}

func imageName(t ImageType) string {
	dims := [...]string{Dim1D: "1d", Dim2D: "2d", Dim3D: "3d", DimCube: "cube"}
	dim := "?"
	if int(t.Dim) < len(dims) {
		dim = dims[t.Dim]
	}
	if t.Arrayed {
		dim += "_array"
	}
	switch t.Class {
	case ImageClassDepth:
		return "texture_depth_" + dim
	case ImageClassStorage:
		prefix := "texture_storage_"
		if t.RasterizerOrdered {
			prefix = "rasterizer_ordered_" + prefix
		}
		return fmt.Sprintf("%s%s<%s, %s>", prefix, dim, t.Format, t.Access)
	default:
		if t.Multisampled {
			return "texture_multisampled_" + dim
		}
		return "texture_" + dim
	}
}

func (d *disasm) resource(gv GlobalVariable) string {
	var attrs string
	if gv.Binding != nil {
		attrs = fmt.Sprintf("@group(%d) @binding(%d) ", gv.Binding.Group, gv.Binding.Binding)
	}
	switch gv.Space {
	case SpaceHandle:
		return attrs + "var "
	case SpaceStorage:
		return fmt.Sprintf("%svar<storage, %s> ", attrs, gv.Access)
	default:
		return fmt.Sprintf("%svar<%s> ", attrs, gv.Space)
	}
}

func bindingName(b *Binding) string {
	if b == nil {
		return ""
	}
	switch v := (*b).(type) {
	case BuiltinBinding:
		return fmt.Sprintf("@builtin(%s) ", v.Builtin)
	case LocationBinding:
		return fmt.Sprintf("@location(%d) ", v.Location)
	default:
		return ""
	}
}

func (d *disasm) function(h FunctionHandle) {
	fn := &d.m.Functions[h]
	args := make([]string, len(fn.Arguments))
	for i, a := range fn.Arguments {
		args[i] = fmt.Sprintf("%s%s: %s", bindingName(a.Binding), a.Name, d.typeName(a.Type))
	}
	fmt.Fprintf(d.sb, "fn %d %s(%s)", h, fn.Name, strings.Join(args, ", "))
	if fn.Result != nil {
		fmt.Fprintf(d.sb, " -> %s%s", bindingName(fn.Result.Binding), d.typeName(fn.Result.Type))
	}
	d.sb.WriteString(" {\n")
	for i, lv := range fn.LocalVars {
		fmt.Fprintf(d.sb, "  var %d %s: %s\n", i, lv.Name, d.typeName(lv.Type))
	}
	for i, e := range fn.Expressions {
		fmt.Fprintf(d.sb, "  %%%d = %s\n", i, d.expression(fn, e.Kind))
	}
	d.block(fn.Body, 1)
	d.sb.WriteString("}\n")
}

func ref(h ExpressionHandle) string { return fmt.Sprintf("%%%d", h) }

func refs(hs []ExpressionHandle) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = ref(h)
	}
	return strings.Join(parts, ", ")
}

//nolint:gocyclo,cyclop,funlen // one case per expression kind
func (d *disasm) expression(fn *Function, kind ExpressionKind) string {
	switch k := kind.(type) {
	case Literal:
		switch v := k.Value.(type) {
		case LiteralU32:
			return fmt.Sprintf("%du", uint32(v))
		case LiteralI32:
			return fmt.Sprintf("%di", int32(v))
		case LiteralF32:
			return fmt.Sprintf("%gf", float32(v))
		default:
			return fmt.Sprint(v)
		}
	case ExprConstant:
		return fmt.Sprintf("const %d", k.Constant)
	case ExprZeroValue:
		return fmt.Sprintf("zero %s", d.typeName(k.Type))
	case ExprCompose:
		return fmt.Sprintf("%s(%s)", d.typeName(k.Type), refs(k.Components))
	case ExprAccess:
		return fmt.Sprintf("%s[%s]", ref(k.Base), ref(k.Index))
	case ExprAccessIndex:
		return fmt.Sprintf("%s.%d", ref(k.Base), k.Index)
	case ExprSplat:
		return fmt.Sprintf("splat%d(%s)", k.Size, ref(k.Value))
	case ExprSwizzle:
		const xyzw = "xyzw"
		var sw strings.Builder
		for i := 0; i < int(k.Size); i++ {
			sw.WriteByte(xyzw[k.Pattern[i]])
		}
		return fmt.Sprintf("%s.%s", ref(k.Vector), sw.String())
	case ExprFunctionArgument:
		name := ""
		if int(k.Index) < len(fn.Arguments) {
			name = " " + fn.Arguments[k.Index].Name
		}
		return fmt.Sprintf("arg %d%s", k.Index, name)
	case ExprGlobalVariable:
		name := ""
		if int(k.Variable) < len(d.m.GlobalVariables) {
			name = " " + d.m.GlobalVariables[k.Variable].Name
		}
		return fmt.Sprintf("global %d%s", k.Variable, name)
	case ExprLocalVariable:
		return fmt.Sprintf("local %d", k.Variable)
	case ExprLoad:
		return "load " + ref(k.Pointer)
	case ExprImageSample:
		return fmt.Sprintf("sample %s, %s, %s", ref(k.Image), ref(k.Sampler), ref(k.Coordinate))
	case ExprImageLoad:
		return fmt.Sprintf("image_load %s, %s", ref(k.Image), ref(k.Coordinate))
	case ExprImageQuery:
		switch q := k.Query.(type) {
		case ImageQuerySize:
			if q.Level != nil {
				return fmt.Sprintf("dimensions %s, level %s", ref(k.Image), ref(*q.Level))
			}
			return "dimensions " + ref(k.Image)
		case ImageQueryNumLevels:
			return "num_levels " + ref(k.Image)
		case ImageQueryNumLayers:
			return "num_layers " + ref(k.Image)
		default:
			return "num_samples " + ref(k.Image)
		}
	case ExprUnary:
		ops := [...]string{UnaryNegate: "-", UnaryLogicalNot: "!", UnaryBitwiseNot: "~"}
		return ops[k.Op] + ref(k.Expr)
	case ExprBinary:
		return fmt.Sprintf("%s %s %s", ref(k.Left), k.Op, ref(k.Right))
	case ExprSelect:
		return fmt.Sprintf("select %s ? %s : %s", ref(k.Condition), ref(k.Accept), ref(k.Reject))
	case ExprMath:
		args := []ExpressionHandle{k.Arg}
		if k.Arg1 != nil {
			args = append(args, *k.Arg1)
		}
		if k.Arg2 != nil {
			args = append(args, *k.Arg2)
		}
		return fmt.Sprintf("%s(%s)", k.Fun, refs(args))
	case ExprAs:
		width := "bitcast"
		if k.Convert != nil {
			width = scalarName(ScalarType{Kind: k.Kind, Width: *k.Convert})
		}
		return fmt.Sprintf("as %s %s", width, ref(k.Expr))
	case ExprCallResult:
		return fmt.Sprintf("call_result fn %d", k.Function)
	case ExprArrayLength:
		return "array_length " + ref(k.Array)
	default:
		return fmt.Sprintf("%T", kind)
	}
}

func (d *disasm) block(b Block, depth int) {
	for _, s := range b {
		d.statement(s.Kind, depth)
	}
}

func (d *disasm) line(depth int, format string, args ...any) {
	d.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(d.sb, format, args...)
	d.sb.WriteByte('\n')
}

func (d *disasm) statement(kind StatementKind, depth int) {
	switch k := kind.(type) {
	case StmtEmit:
		d.line(depth, "emit %s..%s", ref(k.Range.Start), ref(k.Range.End))
	case StmtBlock:
		d.line(depth, "{")
		d.block(k.Block, depth+1)
		d.line(depth, "}")
	case StmtIf:
		d.line(depth, "if %s {", ref(k.Condition))
		d.block(k.Accept, depth+1)
		if len(k.Reject) > 0 {
			d.line(depth, "} else {")
			d.block(k.Reject, depth+1)
		}
		d.line(depth, "}")
	case StmtSwitch:
		d.line(depth, "switch %s {", ref(k.Selector))
		for _, c := range k.Cases {
			d.line(depth+1, "case %v:", c.Value)
			d.block(c.Body, depth+2)
		}
		d.line(depth, "}")
	case StmtLoop:
		d.line(depth, "loop {")
		d.block(k.Body, depth+1)
		if len(k.Continuing) > 0 {
			d.line(depth+1, "continuing {")
			d.block(k.Continuing, depth+2)
			d.line(depth+1, "}")
		}
		d.line(depth, "}")
	case StmtBreak:
		d.line(depth, "break")
	case StmtContinue:
		d.line(depth, "continue")
	case StmtReturn:
		if k.Value == nil {
			d.line(depth, "return")
		} else {
			d.line(depth, "return %s", ref(*k.Value))
		}
	case StmtKill:
		d.line(depth, "discard")
	case StmtBarrier:
		d.line(depth, "barrier %#x", uint32(k.Flags))
	case StmtStore:
		d.line(depth, "store %s, %s", ref(k.Pointer), ref(k.Value))
	case StmtImageStore:
		d.line(depth, "image_store %s, %s, %s", ref(k.Image), ref(k.Coordinate), ref(k.Value))
	case StmtCall:
		if k.Result != nil {
			d.line(depth, "%s = call fn %d(%s)", ref(*k.Result), k.Function, refs(k.Arguments))
		} else {
			d.line(depth, "call fn %d(%s)", k.Function, refs(k.Arguments))
		}
	default:
		d.line(depth, "%T", kind)
	}
}

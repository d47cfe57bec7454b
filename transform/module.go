package transform

import (
	"errors"
	"fmt"

	"github.com/gogpu/raise/ir"
)

// UniqueGlobalName returns base, or base with the smallest numeric suffix
// that no global of m uses.
func UniqueGlobalName(m *ir.Module, base string) string {
	taken := make(map[string]bool, len(m.GlobalVariables))
	for _, gv := range m.GlobalVariables {
		taken[gv.Name] = true
	}
	return uniqueName(taken, base)
}

// UniqueTypeName is UniqueGlobalName for type names.
func UniqueTypeName(m *ir.Module, base string) string {
	taken := make(map[string]bool, len(m.Types))
	for _, t := range m.Types {
		taken[t.Name] = true
	}
	return uniqueName(taken, base)
}

func uniqueName(taken map[string]bool, base string) string {
	if !taken[base] {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if !taken[name] {
			return name
		}
	}
}

// TypeUsedElsewhere reports whether anything in m other than the global gv
// refers to the type ty.
func TypeUsedElsewhere(m *ir.Module, ty ir.TypeHandle, gv ir.GlobalVariableHandle) bool {
	for i, g := range m.GlobalVariables {
		if g.Type == ty && ir.GlobalVariableHandle(i) != gv {
			return true
		}
	}
	for _, c := range m.Constants {
		if c.Type == ty {
			return true
		}
	}
	for _, t := range m.Types {
		switch inner := t.Inner.(type) {
		case ir.ArrayType:
			if inner.Base == ty {
				return true
			}
		case ir.PointerType:
			if inner.Base == ty {
				return true
			}
		case ir.StructType:
			for _, mem := range inner.Members {
				if mem.Type == ty {
					return true
				}
			}
		}
	}
	for i := range m.Functions {
		f := &m.Functions[i]
		if f.Result != nil && f.Result.Type == ty {
			return true
		}
		for _, a := range f.Arguments {
			if a.Type == ty {
				return true
			}
		}
		for _, lv := range f.LocalVars {
			if lv.Type == ty {
				return true
			}
		}
		for _, e := range f.Expressions {
			switch k := e.Kind.(type) {
			case ir.ExprZeroValue:
				if k.Type == ty {
					return true
				}
			case ir.ExprCompose:
				if k.Type == ty {
					return true
				}
			}
		}
	}
	return false
}

// UsesGlobal reports whether f references gv.
func UsesGlobal(f *ir.Function, gv ir.GlobalVariableHandle) bool {
	for _, e := range f.Expressions {
		if g, ok := e.Kind.(ir.ExprGlobalVariable); ok && g.Variable == gv {
			return true
		}
	}
	return false
}

// GlobalsUsedBy returns the globals fn references directly or through the
// functions it calls, in handle order.
func GlobalsUsedBy(m *ir.Module, cg *ir.CallGraph, fn ir.FunctionHandle) []ir.GlobalVariableHandle {
	used := make([]bool, len(m.GlobalVariables))
	seen := map[ir.FunctionHandle]bool{fn: true}
	stack := []ir.FunctionHandle{fn}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range m.Functions[cur].Expressions {
			if g, ok := e.Kind.(ir.ExprGlobalVariable); ok {
				used[g.Variable] = true
			}
		}
		for _, callee := range cg.Callees(cur) {
			if !seen[callee] {
				seen[callee] = true
				stack = append(stack, callee)
			}
		}
	}
	var out []ir.GlobalVariableHandle
	for i, u := range used {
		if u {
			out = append(out, ir.GlobalVariableHandle(i))
		}
	}
	return out
}

// EntryFunctions returns the functions of the entry points of stage, in
// entry point order without duplicates.
func EntryFunctions(m *ir.Module, stage ir.ShaderStage) []ir.FunctionHandle {
	var out []ir.FunctionHandle
	seen := make(map[ir.FunctionHandle]bool)
	for _, ep := range m.EntryPoints {
		if ep.Stage == stage && !seen[ep.Function] {
			seen[ep.Function] = true
			out = append(out, ep.Function)
		}
	}
	return out
}

// LoadGlobalMember adds expressions loading member of the struct global gv.
func LoadGlobalMember(rw *ir.Rewriter, gv ir.GlobalVariableHandle, member uint32) ir.ExpressionHandle {
	ptr := rw.Add(ir.ExprAccessIndex{Base: rw.Add(ir.ExprGlobalVariable{Variable: gv}), Index: member})
	return rw.Add(ir.ExprLoad{Pointer: ptr})
}

// Attribute sets the transform name of an *Error that has none, such as
// the errors returned by a Threader.
func Attribute(name string, err error) error {
	var te *Error
	if errors.As(err, &te) && te.Transform == "" {
		te.Transform = name
	}
	return err
}

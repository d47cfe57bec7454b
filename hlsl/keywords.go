// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"strings"

	"github.com/gogpu/raise/ir"
	"github.com/gogpu/raise/transform"
)

// reservedKeywords holds the HLSL words a generated resource name could
// collide with. FXC matches some of them case-insensitively, so lookups
// use the lower-cased name.
var reservedKeywords = func() map[string]struct{} {
	words := []string{
		"AppendStructuredBuffer", "Buffer", "ByteAddressBuffer", "ConsumeStructuredBuffer",
		"RWBuffer", "RWByteAddressBuffer", "RWStructuredBuffer", "RWTexture1D",
		"RWTexture2D", "RWTexture3D", "RasterizerOrderedTexture2D", "RasterizerOrderedBuffer",
		"StructuredBuffer", "Texture1D", "Texture2D", "Texture3D", "TextureCube",
		"SamplerState", "SamplerComparisonState", "cbuffer", "tbuffer", "register",
		"packoffset", "groupshared", "globallycoherent", "uniform", "static",
		"const", "extern", "shared", "volatile", "precise", "nointerpolation",
		"linear", "centroid", "sample", "in", "out", "inout", "struct", "typedef",
		"bool", "int", "uint", "dword", "half", "float", "double", "min16float",
		"min16int", "min16uint", "vector", "matrix", "string", "void", "true",
		"false", "if", "else", "for", "while", "do", "switch", "case", "default",
		"break", "continue", "discard", "return", "pixelfragment", "vertexfragment",
		"compile", "technique", "pass", "asm", "sampler", "texture", "main",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}()

// IsReserved checks if a name is an HLSL reserved keyword.
func IsReserved(name string) bool {
	_, ok := reservedKeywords[strings.ToLower(name)]
	return ok
}

// Escape returns a safe identifier name.
// If the name is reserved or empty, it's prefixed with underscore.
func Escape(name string) string {
	if name == "" {
		return "_unnamed"
	}
	if IsReserved(name) || strings.HasPrefix(name, "SV_") {
		return "_" + name
	}
	return name
}

// EscapeReserved renames globals, functions, named types and struct
// members whose names are HLSL keywords. Entry point names are left to the
// host.
type EscapeReserved struct{}

// Name implements transform.Transform.
func (EscapeReserved) Name() string { return "EscapeReserved" }

// ShouldRun implements transform.Transform.
func (EscapeReserved) ShouldRun(m *ir.Module, _ *transform.DataMap) bool {
	for _, gv := range m.GlobalVariables {
		if IsReserved(gv.Name) {
			return true
		}
	}
	for i := range m.Functions {
		if IsReserved(m.Functions[i].Name) {
			return true
		}
	}
	for _, t := range m.Types {
		if IsReserved(t.Name) {
			return true
		}
		if st, ok := t.Inner.(ir.StructType); ok {
			for _, mem := range st.Members {
				if IsReserved(mem.Name) {
					return true
				}
			}
		}
	}
	return false
}

// Apply implements transform.Transform.
func (t EscapeReserved) Apply(m *ir.Module, inputs, _ *transform.DataMap) (*ir.Module, error) {
	if !t.ShouldRun(m, inputs) {
		return nil, nil
	}
	out := m.Clone()
	for i := range out.GlobalVariables {
		if gv := &out.GlobalVariables[i]; IsReserved(gv.Name) {
			gv.Name = transform.UniqueGlobalName(out, Escape(gv.Name))
		}
	}
	for i := range out.Functions {
		if f := &out.Functions[i]; IsReserved(f.Name) {
			f.Name = Escape(f.Name)
		}
	}
	for i := range out.Types {
		ty := &out.Types[i]
		if IsReserved(ty.Name) {
			ty.Name = transform.UniqueTypeName(out, Escape(ty.Name))
		}
		if st, ok := ty.Inner.(ir.StructType); ok {
			for j := range st.Members {
				if IsReserved(st.Members[j].Name) {
					st.Members[j].Name = Escape(st.Members[j].Name)
				}
			}
		}
	}
	return out, nil
}

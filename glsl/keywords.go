// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import "strings"

// glslKeywords holds the reserved words a generated uniform name could hit:
// types, qualifiers and the words GLSL reserves for future use.
var glslKeywords = map[string]struct{}{
	"void": {}, "bool": {}, "int": {}, "uint": {}, "float": {}, "double": {},
	"vec2": {}, "vec3": {}, "vec4": {}, "ivec2": {}, "ivec3": {}, "ivec4": {},
	"uvec2": {}, "uvec3": {}, "uvec4": {}, "bvec2": {}, "bvec3": {}, "bvec4": {},
	"mat2": {}, "mat3": {}, "mat4": {},

	"sampler": {}, "sampler2D": {}, "sampler3D": {}, "samplerCube": {},
	"sampler2DShadow": {}, "sampler2DArray": {}, "sampler2DMS": {},
	"isampler2D": {}, "usampler2D": {}, "image2D": {},

	"attribute": {}, "const": {}, "uniform": {}, "varying": {}, "buffer": {},
	"shared": {}, "coherent": {}, "volatile": {}, "restrict": {},
	"readonly": {}, "writeonly": {}, "layout": {}, "centroid": {}, "flat": {},
	"smooth": {}, "noperspective": {}, "patch": {}, "sample": {},
	"break": {}, "continue": {}, "do": {}, "for": {}, "while": {},
	"switch": {}, "case": {}, "default": {}, "if": {}, "else": {},
	"in": {}, "out": {}, "inout": {}, "true": {}, "false": {},
	"invariant": {}, "precise": {}, "discard": {}, "return": {}, "struct": {},
	"lowp": {}, "mediump": {}, "highp": {}, "precision": {},

	"common": {}, "partition": {}, "active": {}, "asm": {}, "class": {},
	"union": {}, "enum": {}, "typedef": {}, "template": {}, "this": {},
	"resource": {}, "goto": {}, "inline": {}, "noinline": {}, "public": {},
	"static": {}, "extern": {}, "external": {}, "interface": {},
	"long": {}, "short": {}, "half": {}, "fixed": {}, "unsigned": {},
	"superp": {}, "input": {}, "output": {}, "filter": {}, "sizeof": {},
	"cast": {}, "namespace": {}, "using": {},

	"main": {}, "texture": {}, "texelFetch": {}, "textureSize": {},
}

// isKeyword checks if a name is a GLSL keyword or reserved word.
func isKeyword(name string) bool {
	_, ok := glslKeywords[name]
	return ok
}

// escapeKeyword makes name usable as a GLSL identifier. Reserved words and
// the reserved gl_ prefix get an underscore prefix; runs of underscores,
// which GLSL reserves, are collapsed.
func escapeKeyword(name string) string {
	if name == "" {
		return "_unnamed"
	}
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	if isKeyword(name) || strings.HasPrefix(name, "gl_") {
		return "_" + name
	}
	return name
}

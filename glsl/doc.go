// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl raises IR modules to the shape the GLSL writer accepts.
//
// GLSL differs from the source model in a few ways the pipeline hides:
//
//   - GLSL ES and desktop GLSL before 4.30 cannot query the mip level or
//     sample count of a texture. TextureBuiltinsFromUniform reads them from
//     a uniform buffer instead.
//   - Textures and samplers are combined. CombineSamplers creates one
//     combined sampler per pair used together.
//   - The draw call's first vertex and instance are not added to the
//     vertex builtins, and frag_depth is not clamped to the viewport depth
//     range. Both are read from push constants.
//
// # Basic Usage
//
//	out, results, err := glsl.Raise(module, glsl.DefaultOptions())
//	info, _ := transform.Get[glsl.TextureBuiltinsFromUniformResult](results)
//
// # Reserved Words
//
// Names generated for combined samplers avoid GLSL reserved words by
// prefixing them with an underscore.
package glsl

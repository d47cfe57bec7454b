// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package hlsl raises IR modules to the shape the HLSL writer accepts.
//
// HLSL is Microsoft's shader language for DirectX. Compared to the source
// model it lacks a way to query the length of a runtime-sized buffer array
// portably, binds resources to typed registers instead of (group, binding)
// pairs, and has no pixel-local storage. The pipeline rewrites each of
// these away before the writer runs.
//
// # Shader Model Support
//
// Shader Models 5.0 to 6.7 are accepted:
//   - SM 5.0-5.1: Legacy FXC compiler, DXBC output
//   - SM 6.0+: Modern DXC compiler, DXIL output
//
// Pixel-local storage is lowered to rasterizer-ordered views, which need
// SM 5.1.
//
// # Usage
//
//	options := hlsl.DefaultOptions()
//	options.ShaderModel = hlsl.ShaderModel6_0
//	out, results, err := hlsl.Raise(module, options)
//
// # Register Binding
//
// HLSL uses register-based resource binding with spaces:
//
//	cbuffer : register(b#, space#)  // Constant buffers
//	Texture : register(t#, space#)  // Textures/SRVs
//	Sampler : register(s#, space#)  // Samplers
//	RWTexture: register(u#, space#) // UAVs
//
// The BindingMap in Options maps each (group, binding) to a register. Two
// resources may share a register index when their register types differ.
package hlsl

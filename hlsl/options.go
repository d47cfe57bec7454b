// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/transform"
)

// Options configures the HLSL pipeline.
type Options struct {
	// ShaderModel specifies the target shader model.
	// Defaults to ShaderModel5_1 for maximum compatibility.
	ShaderModel ShaderModel

	// BindingMap maps source binding points to HLSL register targets.
	// If a binding is not found in the map and FakeMissingBindings is false,
	// Raise fails with ErrMissingBinding.
	BindingMap map[binding.Point]BindTarget

	// FakeMissingBindings keeps unmapped resources at their own binding
	// point, read as (space, register).
	FakeMissingBindings bool

	// ArrayLength, when set, replaces arrayLength() with reads of a
	// buffer-size constant buffer.
	ArrayLength *transform.ArrayLengthFromUniformOptions

	// PixelLocal, when set, lowers pixel_local variables to
	// rasterizer-ordered views. Requires ShaderModel5_1.
	PixelLocal *PixelLocalOptions

	// FirstIndexOffsets, when set, adds the first vertex and instance to
	// SV_VertexID and SV_InstanceID, which do not include them.
	FirstIndexOffsets *transform.OffsetFirstIndexConfig
}

// DefaultOptions returns options for Shader Model 5.1 with generated
// bindings.
func DefaultOptions() Options {
	return Options{
		ShaderModel:         ShaderModel5_1,
		BindingMap:          make(map[binding.Point]BindTarget),
		FakeMissingBindings: true,
	}
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"
	"strings"
)

// ShaderModel represents a DirectX Shader Model version.
type ShaderModel uint8

// Supported Shader Model versions.
const (
	// ShaderModel5_0 is the base SM5 version (DirectX 11).
	ShaderModel5_0 ShaderModel = iota

	// ShaderModel5_1 adds register spaces and rasterizer ordered views
	// (default).
	ShaderModel5_1

	ShaderModel6_0
	ShaderModel6_1
	ShaderModel6_2
	ShaderModel6_3
	ShaderModel6_4
	ShaderModel6_5
	ShaderModel6_6
	ShaderModel6_7
)

// String returns a human-readable representation of the shader model.
// Example: "SM 5.1", "SM 6.0"
func (sm ShaderModel) String() string {
	major, minor := sm.version()
	return fmt.Sprintf("SM %d.%d", major, minor)
}

// ProfileSuffix returns the shader profile suffix for this model.
// Example: "5_1", "6_0"
func (sm ShaderModel) ProfileSuffix() string {
	major, minor := sm.version()
	return fmt.Sprintf("%d_%d", major, minor)
}

func (sm ShaderModel) version() (major, minor uint8) {
	if sm <= ShaderModel5_1 {
		return 5, uint8(sm)
	}
	if sm <= ShaderModel6_7 {
		return 6, uint8(sm - ShaderModel6_0)
	}
	return 5, 1
}

// ParseShaderModel parses "5.1", "5_1" or "SM 5.1".
func ParseShaderModel(s string) (ShaderModel, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "SM"))
	s = strings.ReplaceAll(s, "_", ".")
	for sm := ShaderModel5_0; sm <= ShaderModel6_7; sm++ {
		major, minor := sm.version()
		if s == fmt.Sprintf("%d.%d", major, minor) {
			return sm, nil
		}
	}
	return 0, fmt.Errorf("unknown shader model %q", s)
}

// SupportsRasterizerOrderedViews returns true if this shader model has
// rasterizer-ordered views, which pixel-local storage is lowered to.
func (sm ShaderModel) SupportsRasterizerOrderedViews() bool {
	return sm >= ShaderModel5_1
}

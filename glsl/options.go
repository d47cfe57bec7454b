// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/raise/transform"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES (OpenGL ES / WebGL)
}

// Common GLSL versions.
var (
	Version330 = Version{Major: 3, Minor: 30}
	Version400 = Version{Major: 4, Minor: 0}
	Version430 = Version{Major: 4, Minor: 30}
	Version450 = Version{Major: 4, Minor: 50}
	Version460 = Version{Major: 4, Minor: 60}

	VersionES300 = Version{Major: 3, Minor: 0, ES: true}  // ES 3.0 / WebGL 2.0
	VersionES310 = Version{Major: 3, Minor: 10, ES: true} // ES 3.1 (compute shaders)
	VersionES320 = Version{Major: 3, Minor: 20, ES: true}
)

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%02d core", v.Major, v.Minor)
}

func (v Version) number() int {
	return int(v.Major)*100 + int(v.Minor)
}

// SupportsTextureQueryLevels reports whether textureQueryLevels() exists.
// GLSL ES has no version with it; desktop GLSL gained it in 4.30.
func (v Version) SupportsTextureQueryLevels() bool {
	return !v.ES && v.number() >= 430
}

// SupportsTextureSamples reports whether textureSamples() exists.
func (v Version) SupportsTextureSamples() bool {
	return !v.ES && v.number() >= 450
}

// SupportsStorageBuffers reports whether buffer blocks exist.
func (v Version) SupportsStorageBuffers() bool {
	if v.ES {
		return v.number() >= 310
	}
	return v.number() >= 430
}

// Options configures the GLSL raise pipeline.
type Options struct {
	// LangVersion is the target GLSL version.
	// Defaults to VersionES300 if zero.
	LangVersion Version

	// TextureBuiltinsFromUniform places the uniform that replaces texture
	// level and sample queries when LangVersion lacks them.
	TextureBuiltinsFromUniform TextureBuiltinsFromUniformOptions

	// CombineSamplers names combined samplers and places the placeholder
	// sampler.
	CombineSamplers CombineSamplersOptions

	// BindingRemapper moves resources explicitly. Its entries win over the
	// binding bases below.
	BindingRemapper transform.Remappings

	// FirstIndexOffsets enables first vertex/instance offsetting.
	FirstIndexOffsets *transform.OffsetFirstIndexConfig

	// DepthRangeOffsets enables frag_depth clamping.
	DepthRangeOffsets *transform.DepthRangeOffsets

	// Binding bases are added to the binding of each resource class.
	TextureBindingBase uint32
	SamplerBindingBase uint32
	UniformBindingBase uint32
	StorageBindingBase uint32
}

// DefaultOptions returns options for WebGL 2 with the builtin uniform at
// group 0, binding 30.
func DefaultOptions() Options {
	opts := Options{LangVersion: VersionES300}
	opts.TextureBuiltinsFromUniform.UBOBinding.Binding = 30
	return opts
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"fmt"

	"github.com/gogpu/raise/binding"
	"github.com/gogpu/raise/ir"
)

// BindTarget specifies the HLSL register binding for a resource.
// HLSL uses register(x#, space#) syntax for resource binding.
type BindTarget struct {
	// Space is the register space (0-based).
	// Spaces allow multiple resources to use the same register index.
	Space uint8

	// Register is the register index within the space.
	Register uint32
}

// Point returns the binding point the resource is moved to: the space
// becomes the group and the register the binding.
func (bt BindTarget) Point() binding.Point {
	return binding.Point{Group: uint32(bt.Space), Binding: bt.Register}
}

// String formats the target as space and register, e.g. "space1:3".
func (bt BindTarget) String() string {
	return fmt.Sprintf("space%d:%d", bt.Space, bt.Register)
}

// RegisterType represents the HLSL register type.
type RegisterType uint8

const (
	// RegisterTypeB is for constant buffers (cbuffer).
	RegisterTypeB RegisterType = iota

	// RegisterTypeT is for textures and shader resource views.
	RegisterTypeT

	// RegisterTypeS is for samplers.
	RegisterTypeS

	// RegisterTypeU is for unordered access views (UAV).
	RegisterTypeU
)

// String returns the single-character register prefix.
func (rt RegisterType) String() string {
	switch rt {
	case RegisterTypeB:
		return "b"
	case RegisterTypeT:
		return "t"
	case RegisterTypeS:
		return "s"
	case RegisterTypeU:
		return "u"
	default:
		return "b"
	}
}

// Register formats a register clause for the target.
func (rt RegisterType) Register(bt BindTarget) string {
	return fmt.Sprintf("register(%s%d, space%d)", rt, bt.Register, bt.Space)
}

// RegisterTypeOf returns the register class of a bound global: read-only
// storage buffers and sampled textures are SRVs, writable ones UAVs.
func RegisterTypeOf(m *ir.Module, gv *ir.GlobalVariable) RegisterType {
	switch inner := m.Types[gv.Type].Inner.(type) {
	case ir.SamplerType:
		return RegisterTypeS
	case ir.ImageType:
		if inner.Class == ir.ImageClassStorage && inner.Access&ir.StorageStore != 0 {
			return RegisterTypeU
		}
		return RegisterTypeT
	}
	switch gv.Space {
	case ir.SpaceStorage:
		if gv.Access&ir.StorageStore != 0 {
			return RegisterTypeU
		}
		return RegisterTypeT
	default:
		return RegisterTypeB
	}
}
